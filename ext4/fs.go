package ext4

import "golang.org/x/xerrors"

// Filesystem is the mounted, read-only ext4 volume: a cached superblock
// snapshot plus the block device it was read from. It is immutable after
// Open returns and is safe for concurrent read calls, provided dev is
// itself safe for concurrent ReadBlock calls; the core performs no
// internal locking of its own.
type Filesystem struct {
	dev BlockDevice
	br  blockReader

	sb Superblock

	inodeCache Cache[string, Inode]
	gdCache    Cache[string, GroupDescriptor]
	log        Logger
}

// MountOptions configures Open. The zero value is a valid MountOptions:
// no caching, a no-op logger, matching the teacher's own mockCache
// default.
type MountOptions struct {
	// Logger receives structured diagnostics. Nil means discard.
	Logger *Logger

	// InodeCache memoizes decoded inode records across ReadInode calls.
	// Nil means no caching.
	InodeCache Cache[string, Inode]

	// GroupDescriptorCache memoizes decoded group-descriptor records.
	// Nil means no caching.
	GroupDescriptorCache Cache[string, GroupDescriptor]
}

// Open reads the superblock once at byte offset 1024 and caches it,
// returning a mounted Filesystem ready for ReadInode/OpenPath/ListDir
// calls.
func Open(dev BlockDevice, opts ...MountOptions) (*Filesystem, error) {
	var opt MountOptions
	if len(opts) > 0 {
		opt = opts[0]
	}

	br := blockReader{dev: dev}
	raw, err := br.readAtOffset(SuperblockOffset)
	if err != nil {
		return nil, xerrors.Errorf("open: %w", err)
	}
	sb, err := decodeSuperblock(raw[SuperblockOffset%BlockSize:])
	if err != nil {
		return nil, xerrors.Errorf("open: %w", err)
	}
	if sb.Magic != superblockMagic {
		return nil, xerrors.Errorf("open: %w: magic 0x%04x", ErrMalformedRecord, sb.Magic)
	}

	fs := &Filesystem{
		dev:        dev,
		br:         br,
		sb:         sb,
		inodeCache: opt.InodeCache,
		gdCache:    opt.GroupDescriptorCache,
		log:        NewNopLogger(),
	}
	if opt.Logger != nil {
		fs.log = *opt.Logger
	}
	if fs.inodeCache == nil {
		fs.inodeCache = &noopCache[string, Inode]{}
	}
	if fs.gdCache == nil {
		fs.gdCache = &noopCache[string, GroupDescriptor]{}
	}
	return fs, nil
}

// Superblock returns the cached superblock snapshot.
func (fs *Filesystem) Superblock() Superblock {
	return fs.sb
}

// RootInode is a convenience for ReadInode(2).
func (fs *Filesystem) RootInode() (*Inode, error) {
	inode, err := fs.ReadInode(RootInodeNumber)
	if err != nil {
		return nil, xerrors.Errorf("root inode: %w", err)
	}
	return inode, nil
}

// ReadDirEntries lists every non-tombstone entry of the directory at
// inode number inodeNo.
func (fs *Filesystem) ReadDirEntries(inodeNo int64) ([]DirEntry, error) {
	inode, err := fs.ReadInode(inodeNo)
	if err != nil {
		return nil, xerrors.Errorf("read dir entries: %w", err)
	}
	if !inode.IsDir() {
		return nil, xerrors.Errorf("read dir entries: inode %d: %w", inodeNo, ErrNotADirectory)
	}
	entries, err := fs.ListDir(inode)
	if err != nil {
		return nil, xerrors.Errorf("read dir entries: %w", err)
	}
	return entries, nil
}

// readBlock reads the single 4 KiB block numbered blockID.
func (fs *Filesystem) readBlock(blockID uint64) ([]byte, error) {
	return fs.br.readBlock(blockID)
}
