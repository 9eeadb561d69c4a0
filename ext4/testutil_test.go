package ext4

import (
	"bytes"
	"encoding/binary"
)

// memDevice is a synthetic, in-memory BlockDevice used by every test in
// this package, grounded on the teacher's own byte-buffer-backed reads
// (ext4.go's readBlock): no disk image fixture is needed to exercise the
// decoder.
type memDevice struct {
	blocks map[uint64][]byte
}

func newMemDevice() *memDevice {
	return &memDevice{blocks: make(map[uint64][]byte)}
}

func (d *memDevice) setBlock(id uint64, data []byte) {
	buf := make([]byte, BlockSize)
	copy(buf, data)
	d.blocks[id] = buf
}

func (d *memDevice) ReadBlock(id uint64, out []byte) error {
	if len(out) != BlockSize {
		panic("memDevice.ReadBlock: buffer is not BlockSize bytes")
	}
	if b, ok := d.blocks[id]; ok {
		copy(out, b)
		return nil
	}
	for i := range out {
		out[i] = 0
	}
	return nil
}

func (d *memDevice) WriteBlock(_ uint64, _ []byte) error {
	return nil
}

func (d *memDevice) BlockSize() int {
	return BlockSize
}

func (d *memDevice) BlockCount() uint64 {
	return uint64(len(d.blocks))
}

// packFixed serializes v (a struct of fixed-size fields) the same way
// decodeFixed deserializes it, for building synthetic on-disk records in
// tests.
func packFixed(v interface{}) []byte {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// packDirEntry packs a single directory-entry record in the on-disk
// layout decodeDirEntry expects.
func packDirEntry(inode uint32, recLen uint16, fileType uint8, name string) []byte {
	buf := make([]byte, 8+len(name))
	binary.LittleEndian.PutUint32(buf[0:4], inode)
	binary.LittleEndian.PutUint16(buf[4:6], recLen)
	buf[6] = byte(len(name))
	buf[7] = fileType
	copy(buf[8:], name)
	return buf
}

// dirEntrySpec describes one entry for buildDirBlock.
type dirEntrySpec struct {
	inode    uint32
	fileType uint8
	name     string
}

// buildDirBlock packs entries back-to-back into a full BlockSize buffer,
// the way an ext4 directory data block is laid out: every entry's
// rec_len is its exact encoded size except the last, whose rec_len
// stretches to the end of the block.
func buildDirBlock(entries []dirEntrySpec) []byte {
	block := make([]byte, BlockSize)
	cursor := 0
	for i, e := range entries {
		size := 8 + len(e.name)
		recLen := size
		if i == len(entries)-1 {
			recLen = BlockSize - cursor
		}
		copy(block[cursor:], packDirEntry(e.inode, uint16(recLen), e.fileType, e.name))
		cursor += recLen
	}
	return block
}

// minimalSuperblock returns a Superblock with just enough fields set for
// Open/ReadInode to function against a synthetic single-group volume.
func minimalSuperblock(inodesPerGroup, inodeSize uint32, descSize uint16, firstDataBlock uint32) Superblock {
	return Superblock{
		InodeCount:     inodesPerGroup,
		BlockCountLo:   1 << 20,
		FirstDataBlock: firstDataBlock,
		BlockPerGroup:  1 << 20,
		InodePerGroup:  inodesPerGroup,
		Magic:          superblockMagic,
		FirstIno:       11,
		InodeSize:      uint16(inodeSize),
		DescSize:       descSize,
	}
}

// buildSingleGroupImage writes a superblock at offset 1024, a single
// group descriptor pointing at inodeTableBlock, and returns the device
// plus the superblock used, so tests can write inode/data blocks
// directly afterward.
func buildSingleGroupImage(inodeTableBlock uint64) (*memDevice, Superblock) {
	return buildSingleGroupImageWithLayout(inodeTableBlock, 8192, 256, 64)
}

// buildSingleGroupImageWithLayout is buildSingleGroupImage with explicit
// control over inodesPerGroup/inodeSize/descSize, for tests that need a
// non-default inode-table geometry (e.g. the legal inode_size=128 case).
func buildSingleGroupImageWithLayout(inodeTableBlock uint64, inodesPerGroup, inodeSize uint32, descSize uint16) (*memDevice, Superblock) {
	dev := newMemDevice()
	sb := minimalSuperblock(inodesPerGroup, inodeSize, descSize, 0)

	sbBytes := packFixed(sb)
	// The superblock starts at byte 1024 inside block 0.
	block0 := make([]byte, BlockSize)
	copy(block0[SuperblockOffset:], sbBytes)
	dev.setBlock(0, block0)

	gd := GroupDescriptor{InodeTableLo: uint32(inodeTableBlock)}
	gdBytes := packFixed(gd)
	// Group descriptor table starts at block 1 (first_data_block=0, so
	// descriptor_block = 0 + 1 + 0).
	gdBlock := make([]byte, BlockSize)
	copy(gdBlock, gdBytes)
	dev.setBlock(1, gdBlock)

	return dev, sb
}

// writeInode encodes inode at its correct byte offset for inodeNo on a
// volume built by buildSingleGroupImage(inodeTableBlock, ...), given the
// superblock's InodeSize.
func writeInode(dev *memDevice, sb Superblock, inodeTableBlock uint64, inodeNo int64, inode Inode) {
	index := (inodeNo - 1) % int64(sb.InodePerGroup)
	byteOffset := int64(inodeTableBlock)*BlockSize + index*int64(sb.InodeSize)
	blockID := uint64(byteOffset) / BlockSize
	inBlockOffset := int(byteOffset % BlockSize)

	block := make([]byte, BlockSize)
	if existing, ok := dev.blocks[blockID]; ok {
		copy(block, existing)
	}
	copy(block[inBlockOffset:], packFixed(inode))
	dev.setBlock(blockID, block)
}

// rootExtentBytes packs an extent-tree header plus leaf or index entries
// into a 60-byte BlockOrExtents region.
func rootExtentBytes(header ExtentHeader, entries [][]byte) [60]byte {
	var out [60]byte
	copy(out[:], packFixed(header))
	offset := 12
	for _, e := range entries {
		copy(out[offset:], e)
		offset += len(e)
	}
	return out
}
