package ext4

import "golang.org/x/xerrors"

// ReadInode is C3: it maps an inode number to its on-disk location via
// the superblock and group descriptors, and returns the decoded record.
func (fs *Filesystem) ReadInode(inodeNo int64) (*Inode, error) {
	if inodeNo <= 0 || inodeNo > int64(fs.sb.InodeCount) {
		return nil, xerrors.Errorf("read inode %d: %w", inodeNo, ErrInvalidInode)
	}

	key := inodeCacheKey(inodeNo)
	if cached, ok := fs.inodeCache.Get(key); ok {
		fs.log.debugCache(true, key)
		return &cached, nil
	}
	fs.log.debugCache(false, key)

	group := uint32((inodeNo - 1) / int64(fs.sb.InodePerGroup))
	index := (inodeNo - 1) % int64(fs.sb.InodePerGroup)

	tableBlock, err := fs.inodeTableBlock(group)
	if err != nil {
		return nil, xerrors.Errorf("read inode %d: %w", inodeNo, err)
	}

	byteOffset := int64(tableBlock)*BlockSize + index*int64(fs.inodeRecordSize())
	blockID := uint64(byteOffset) / BlockSize
	inBlockOffset := int(byteOffset % BlockSize)

	block, err := fs.readBlock(blockID)
	if err != nil {
		fs.log.warnIoError("read_inode")
		return nil, xerrors.Errorf("read inode %d: %w", inodeNo, err)
	}
	if inBlockOffset+inodeOnDiskSize > len(block) {
		// The 128-byte inode record straddles a block boundary: pull in
		// the next block so decodeInode sees a contiguous slice.
		next, err := fs.readBlock(blockID + 1)
		if err != nil {
			fs.log.warnIoError("read_inode")
			return nil, xerrors.Errorf("read inode %d: %w", inodeNo, err)
		}
		block = append(append([]byte{}, block...), next...)
	}

	inode, err := decodeInode(block[inBlockOffset:])
	if err != nil {
		fs.log.warnMalformed("read_inode")
		return nil, xerrors.Errorf("read inode %d: %w", inodeNo, err)
	}

	fs.inodeCache.Add(key, inode)
	return &inode, nil
}

// inodeRecordSize is the superblock's InodeSize, defaulting to 128 when
// unset (pre-dynamic-rev volumes).
func (fs *Filesystem) inodeRecordSize() uint16 {
	if fs.sb.InodeSize == 0 {
		return 128
	}
	return fs.sb.InodeSize
}

// inodeTableBlock is locate_inode_table: it finds the group descriptor
// covering group and returns its inode-table starting block.
func (fs *Filesystem) inodeTableBlock(group uint32) (uint64, error) {
	if cached, ok := fs.gdCache.Get(groupDescCacheKey(group)); ok {
		return cached.InodeTableBlock(fs.sb.FeatureIncompat64bit()), nil
	}

	descSize := fs.sb.GetDescSize()
	descriptorsPerBlock := BlockSize / descSize
	if descriptorsPerBlock == 0 {
		return 0, xerrors.Errorf("locate inode table: %w: desc_size %d too large", ErrMalformedRecord, descSize)
	}

	descriptorBlock := uint64(fs.sb.FirstDataBlock) + 1 + uint64(group)/uint64(descriptorsPerBlock)
	offsetInBlock := (int(group) % descriptorsPerBlock) * descSize

	block, err := fs.readBlock(descriptorBlock)
	if err != nil {
		return 0, xerrors.Errorf("locate inode table: %w", err)
	}
	if offsetInBlock+descSize > len(block) {
		return 0, xerrors.Errorf("locate inode table: %w: group %d out of bounds", ErrMalformedRecord, group)
	}

	gd, err := decodeGroupDescriptor(block[offsetInBlock : offsetInBlock+descSize])
	if err != nil {
		return 0, xerrors.Errorf("locate inode table: %w", err)
	}

	fs.gdCache.Add(groupDescCacheKey(group), gd)
	return gd.InodeTableBlock(fs.sb.FeatureIncompat64bit()), nil
}
