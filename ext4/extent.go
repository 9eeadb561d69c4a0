package ext4

import (
	"sort"

	"golang.org/x/xerrors"
)

// maxExtentTreeDepth bounds the iterative descent used by both
// CollectExtents and FindPhysicalBlock (spec §3 invariant: depth <= 5).
const maxExtentTreeDepth = 5

// rootExtentEntrySize is the 12-byte size of one extent-tree entry (index
// or leaf), which is also the size of the node header. The root node in
// an inode's 60-byte BlockOrExtents region holds the header plus up to 4
// such entries.
const rootExtentEntrySize = 12

// nonRootNodeMaxEntries is (4096 - 12) / 12, the maximum entries a
// full-block (non-root) extent-tree node can hold.
const nonRootNodeMaxEntries = (BlockSize - rootExtentEntrySize) / rootExtentEntrySize

// extentNode is one level of the extent tree being walked: the bytes of
// the node (root: the inode's 60-byte region; non-root: a full 4 KiB
// block) and its decoded header.
type extentNode struct {
	bytes  []byte
	header ExtentHeader
	level  int // distance from the root node (root is 0)
}

// CollectExtents enumerates every leaf extent reachable from inode's
// extent tree, in ascending ee_block order, matching on-disk order.
func (fs *Filesystem) CollectExtents(inode *Inode) ([]ExtentLeaf, error) {
	if !inode.UsesExtents() {
		return nil, xerrors.Errorf("collect extents: %w: inode does not use extents", ErrMalformedRecord)
	}

	root, err := fs.loadExtentNode(inode.BlockOrExtents[:])
	if err != nil {
		return nil, xerrors.Errorf("collect extents: %w", err)
	}

	var out []ExtentLeaf
	stack := []extentNode{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if node.header.IsLeafLevel() {
			leaves, err := decodeLeafEntries(node.bytes, node.header.Entries)
			if err != nil {
				return nil, xerrors.Errorf("collect extents: %w", err)
			}
			out = append(out, leaves...)
			continue
		}

		if node.level+1 > maxExtentTreeDepth {
			return nil, xerrors.Errorf("collect extents: %w: tree depth exceeds %d", ErrMalformedRecord, maxExtentTreeDepth)
		}

		indexes, err := decodeIndexEntries(node.bytes, node.header.Entries)
		if err != nil {
			return nil, xerrors.Errorf("collect extents: %w", err)
		}
		for _, idx := range indexes {
			child, err := fs.readBlock(idx.ChildBlock())
			if err != nil {
				fs.log.warnIoError("collect_extents")
				return nil, xerrors.Errorf("collect extents: read child block %d: %w", idx.ChildBlock(), err)
			}
			childNode, err := fs.loadExtentNode(child)
			if err != nil {
				return nil, xerrors.Errorf("collect extents: %w", err)
			}
			childNode.level = node.level + 1
			stack = append(stack, childNode)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Block < out[j].Block })
	return out, nil
}

// FindPhysicalBlock answers a point query: which physical block holds
// logical file-block logicalBlock. It walks only the path the binary
// search selects at each level, never the whole tree.
func (fs *Filesystem) FindPhysicalBlock(inode *Inode, logicalBlock uint64) (uint64, error) {
	if !inode.UsesExtents() {
		return 0, xerrors.Errorf("find physical block: %w: inode does not use extents", ErrMalformedRecord)
	}

	node, err := fs.loadExtentNode(inode.BlockOrExtents[:])
	if err != nil {
		return 0, xerrors.Errorf("find physical block: %w", err)
	}

	for depth := 0; ; depth++ {
		if depth > maxExtentTreeDepth {
			return 0, xerrors.Errorf("find physical block: %w: tree depth exceeds %d", ErrMalformedRecord, maxExtentTreeDepth)
		}

		if node.header.IsLeafLevel() {
			leaves, err := decodeLeafEntries(node.bytes, node.header.Entries)
			if err != nil {
				return 0, xerrors.Errorf("find physical block: %w", err)
			}
			i := searchLeaves(leaves, logicalBlock)
			if i < 0 || !leaves[i].covers(logicalBlock) {
				return 0, xerrors.Errorf("find physical block %d: %w", logicalBlock, ErrHoleInFile)
			}
			leaf := leaves[i]
			if leaf.Uninitialized() {
				return 0, xerrors.Errorf("find physical block %d: %w", logicalBlock, ErrHoleInFile)
			}
			offset := logicalBlock - uint64(leaf.Block)
			return leaf.StartBlock() + offset, nil
		}

		indexes, err := decodeIndexEntries(node.bytes, node.header.Entries)
		if err != nil {
			return 0, xerrors.Errorf("find physical block: %w", err)
		}
		i := searchIndexes(indexes, logicalBlock)
		if i < 0 {
			return 0, xerrors.Errorf("find physical block %d: %w", logicalBlock, ErrHoleInFile)
		}
		child, err := fs.readBlock(indexes[i].ChildBlock())
		if err != nil {
			fs.log.warnIoError("find_physical_block")
			return 0, xerrors.Errorf("find physical block: read child block %d: %w", indexes[i].ChildBlock(), err)
		}
		node, err = fs.loadExtentNode(child)
		if err != nil {
			return 0, xerrors.Errorf("find physical block: %w", err)
		}
	}
}

// loadExtentNode decodes the header at the start of b and returns an
// extentNode carrying both.
func (fs *Filesystem) loadExtentNode(b []byte) (extentNode, error) {
	h, err := decodeExtentHeader(b)
	if err != nil {
		fs.log.warnMalformed("load_extent_node")
		return extentNode{}, err
	}
	if h.Magic != extentHeaderMagic {
		fs.log.warnMalformed("load_extent_node")
		return extentNode{}, xerrors.Errorf("load extent node: %w: magic 0x%04x", ErrMalformedRecord, h.Magic)
	}
	if len(b) == BlockSize && h.Max > nonRootNodeMaxEntries {
		fs.log.warnMalformed("load_extent_node")
		return extentNode{}, xerrors.Errorf("load extent node: %w: eh_max %d exceeds block capacity", ErrMalformedRecord, h.Max)
	}
	return extentNode{bytes: b, header: h}, nil
}

// decodeLeafEntries decodes count leaf extent entries packed immediately
// after the 12-byte header in b.
func decodeLeafEntries(b []byte, count uint16) ([]ExtentLeaf, error) {
	out := make([]ExtentLeaf, 0, count)
	for i := uint16(0); i < count; i++ {
		start := rootExtentEntrySize + int(i)*rootExtentEntrySize
		end := start + rootExtentEntrySize
		if end > len(b) {
			return nil, xerrors.Errorf("%w: leaf entry %d out of bounds", ErrMalformedRecord, i)
		}
		leaf, err := decodeExtentLeaf(b[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, leaf)
	}
	return out, nil
}

// decodeIndexEntries decodes count internal extent-tree entries packed
// immediately after the 12-byte header in b.
func decodeIndexEntries(b []byte, count uint16) ([]ExtentIndex, error) {
	out := make([]ExtentIndex, 0, count)
	for i := uint16(0); i < count; i++ {
		start := rootExtentEntrySize + int(i)*rootExtentEntrySize
		end := start + rootExtentEntrySize
		if end > len(b) {
			return nil, xerrors.Errorf("%w: index entry %d out of bounds", ErrMalformedRecord, i)
		}
		idx, err := decodeExtentIndex(b[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, idx)
	}
	return out, nil
}

// searchLeaves binary-searches entries (sorted ascending, non-overlapping
// by ee_block) for the index of the entry with the greatest ee_block <=
// target. Returns -1 if every entry's ee_block is greater than target.
func searchLeaves(entries []ExtentLeaf, target uint64) int {
	lo, hi := 0, len(entries)-1
	best := -1
	for lo <= hi {
		mid := (lo + hi) / 2
		if uint64(entries[mid].Block) <= target {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best
}

// searchIndexes is the same tie-break rule as searchLeaves, over index
// entries keyed by ei_block.
func searchIndexes(entries []ExtentIndex, target uint64) int {
	lo, hi := 0, len(entries)-1
	best := -1
	for lo <= hi {
		mid := (lo + hi) / 2
		if uint64(entries[mid].Block) <= target {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best
}
