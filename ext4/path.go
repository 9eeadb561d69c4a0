package ext4

import (
	"errors"
	"strings"

	"golang.org/x/xerrors"
)

// maxComponentLen is the largest filename a directory entry's NameLen
// byte can encode (spec §9 point 4).
const maxComponentLen = 255

// FindInDirBlock scans a single 4 KiB directory data block for an entry
// named targetName, skipping tombstones. It is the innermost loop of the
// path walk.
func (fs *Filesystem) FindInDirBlock(blockBytes []byte, targetName string) (*DirEntry, error) {
	cursor := 0
	for cursor < len(blockBytes) {
		entry, err := decodeDirEntry(blockBytes, cursor)
		if err != nil {
			fs.log.warnMalformed("find_in_dir_block")
			return nil, xerrors.Errorf("find in dir block: %w", err)
		}
		if !entry.IsDeleted() && entry.Name() == targetName {
			return &entry, nil
		}
		cursor += int(entry.RecLen)
	}
	return nil, xerrors.Errorf("find %q in dir block: %w", targetName, ErrNotFound)
}

// FindInDir scans every data block of dirInode for an entry named
// targetName, resolving each logical block to a physical block with
// FindPhysicalBlock (C4's point query).
func (fs *Filesystem) FindInDir(dirInode *Inode, targetName string) (*DirEntry, error) {
	numBlocks := dirInode.Size() / BlockSize
	for i := int64(0); i < numBlocks; i++ {
		phys, err := fs.FindPhysicalBlock(dirInode, uint64(i))
		if err != nil {
			if errors.Is(err, ErrHoleInFile) {
				continue
			}
			return nil, xerrors.Errorf("find %q in dir: %w", targetName, err)
		}
		block, err := fs.readBlock(phys)
		if err != nil {
			fs.log.warnIoError("find_in_dir")
			return nil, xerrors.Errorf("find %q in dir: %w", targetName, err)
		}
		entry, err := fs.FindInDirBlock(block, targetName)
		if err == nil {
			return entry, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, xerrors.Errorf("find %q in dir: %w", targetName, ErrNotFound)
}

// ListDir collects every non-tombstone directory entry of dirInode, in
// on-disk order, across every block the extent tree covers. Callers
// typically skip the first two entries ("." and "..").
func (fs *Filesystem) ListDir(dirInode *Inode) ([]DirEntry, error) {
	extents, err := fs.CollectExtents(dirInode)
	if err != nil {
		return nil, xerrors.Errorf("list dir: %w", err)
	}

	var entries []DirEntry
	for _, e := range extents {
		for off := uint16(0); off < e.EffectiveLen(); off++ {
			phys := e.StartBlock() + uint64(off)
			block, err := fs.readBlock(phys)
			if err != nil {
				fs.log.warnIoError("list_dir")
				return nil, xerrors.Errorf("list dir: read block %d: %w", phys, err)
			}
			blockEntries, err := fs.decodeDirBlockEntries(block)
			if err != nil {
				return nil, xerrors.Errorf("list dir: %w", err)
			}
			entries = append(entries, blockEntries...)
		}
	}
	return entries, nil
}

// ListDirTolerant is ListDir's best-effort sibling: a block that fails to
// read or decode is skipped rather than aborting the whole listing, and
// every skipped block's error is aggregated (via multierr) into the
// single error returned alongside whatever entries were recovered. This
// mirrors the spec's own tombstone-skipping philosophy extended to
// damaged blocks: keep going, but don't hide that something was dropped.
func (fs *Filesystem) ListDirTolerant(dirInode *Inode) ([]DirEntry, error) {
	extents, err := fs.CollectExtents(dirInode)
	if err != nil {
		return nil, xerrors.Errorf("list dir: %w", err)
	}

	var entries []DirEntry
	var errs []error
	for _, e := range extents {
		for off := uint16(0); off < e.EffectiveLen(); off++ {
			phys := e.StartBlock() + uint64(off)
			block, err := fs.readBlock(phys)
			if err != nil {
				fs.log.warnIoError("list_dir_tolerant")
				errs = append(errs, xerrors.Errorf("read block %d: %w", phys, err))
				continue
			}
			blockEntries, err := fs.decodeDirBlockEntries(block)
			if err != nil {
				errs = append(errs, xerrors.Errorf("decode block %d: %w", phys, err))
				continue
			}
			entries = append(entries, blockEntries...)
		}
	}
	return entries, combineErrors(errs)
}

// decodeDirBlockEntries decodes every non-tombstone entry in a single
// directory data block.
func (fs *Filesystem) decodeDirBlockEntries(block []byte) ([]DirEntry, error) {
	var entries []DirEntry
	cursor := 0
	for cursor < len(block) {
		entry, err := decodeDirEntry(block, cursor)
		if err != nil {
			fs.log.warnMalformed("decode_dir_block_entries")
			return nil, err
		}
		if !entry.IsDeleted() {
			entries = append(entries, entry)
		}
		cursor += int(entry.RecLen)
	}
	return entries, nil
}

// OpenPath is C5's path walk: it drives FindInDir from the root inode
// (2) through each path component, returning a handle identifying the
// resolved inode. The handle is not yet materialized: call
// LoadInodeAttrs and MaterializeBlocks before streaming reads.
func (fs *Filesystem) OpenPath(path string) (*OpenedFile, error) {
	remaining := strings.TrimPrefix(path, ".")

	currentIno := int64(RootInodeNumber)
	currentInode, err := fs.ReadInode(currentIno)
	if err != nil {
		return nil, xerrors.Errorf("open path %q: %w", path, err)
	}

	for {
		remaining = strings.TrimLeft(remaining, "/")
		if remaining == "" {
			return &OpenedFile{fs: fs, InodeNo: currentIno}, nil
		}

		idx := strings.IndexByte(remaining, '/')
		var component string
		var isTerminal bool
		if idx == -1 {
			component = remaining
			isTerminal = true
			remaining = ""
		} else {
			component = remaining[:idx]
			isTerminal = false
			remaining = remaining[idx+1:]
		}

		if len(component) > maxComponentLen {
			return nil, xerrors.Errorf("open path %q: component %q: %w", path, component, ErrMalformedRecord)
		}

		entry, err := fs.FindInDir(currentInode, component)
		if err != nil {
			return nil, xerrors.Errorf("open path %q: %w", path, err)
		}

		if isTerminal {
			return &OpenedFile{fs: fs, InodeNo: int64(entry.Inode)}, nil
		}

		if !entry.IsDir() {
			return nil, xerrors.Errorf("open path %q: component %q: %w", path, component, ErrNotADirectory)
		}

		currentIno = int64(entry.Inode)
		currentInode, err = fs.ReadInode(currentIno)
		if err != nil {
			return nil, xerrors.Errorf("open path %q: %w", path, err)
		}
	}
}
