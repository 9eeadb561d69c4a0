package ext4

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestReadInodeLastInodeOfBlockWithMinimalInodeSize covers the
// inode_size=128 case: with 32 exact 128-byte inodes per 4 KiB block,
// the last inode of a table block sits flush against the block
// boundary (offset 3968, 3968+128 == 4096) and must decode from exactly
// the bytes available, without needing a supplemental block fetch.
func TestReadInodeLastInodeOfBlockWithMinimalInodeSize(t *testing.T) {
	const inodeTableBlock = 10
	const inodesPerGroup = 32
	dev, sb := buildSingleGroupImageWithLayout(inodeTableBlock, inodesPerGroup, 128, 32)

	// inode 32: index 31 within group 0, the last slot of the first
	// (and only, given inodesPerGroup=32) inode-table block.
	const lastInodeNo = inodesPerGroup
	in := Inode{Mode: modeRegular | 0644, SizeLo: 999}
	writeInode(dev, sb, inodeTableBlock, lastInodeNo, in)

	fs, err := Open(dev)
	require.NoError(t, err)

	got, err := fs.ReadInode(lastInodeNo)
	require.NoError(t, err)
	require.True(t, got.IsRegular())
	require.EqualValues(t, 999, got.Size())
}
