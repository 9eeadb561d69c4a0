package ext4

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenRejectsBadMagic(t *testing.T) {
	dev, sb := buildSingleGroupImage(10)
	sb.Magic = 0
	block0 := make([]byte, BlockSize)
	copy(block0[SuperblockOffset:], packFixed(sb))
	dev.setBlock(0, block0)

	_, err := Open(dev)
	require.ErrorIs(t, err, ErrMalformedRecord)
}

func TestOpenSucceedsAndExposesSuperblock(t *testing.T) {
	dev, _ := buildSingleGroupImage(10)
	fs, err := Open(dev)
	require.NoError(t, err)
	require.EqualValues(t, superblockMagic, fs.Superblock().Magic)
}

func TestMountEnumerateRootEndToEnd(t *testing.T) {
	fs := buildTestTree(t)

	root, err := fs.RootInode()
	require.NoError(t, err)
	require.True(t, root.IsDir())

	entries, err := fs.ReadDirEntries(RootInodeNumber)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.ElementsMatch(t, []string{".", "..", "sub"}, names)
}

func TestReadDirEntriesRejectsNonDirectory(t *testing.T) {
	fs := buildTestTree(t)
	_, err := fs.ReadDirEntries(13)
	require.ErrorIs(t, err, ErrNotADirectory)
}

func TestReadInodeRejectsOutOfRangeNumber(t *testing.T) {
	fs := buildTestTree(t)
	_, err := fs.ReadInode(0)
	require.ErrorIs(t, err, ErrInvalidInode)

	_, err = fs.ReadInode(999999)
	require.ErrorIs(t, err, ErrInvalidInode)
}

func TestReadInodeUsesCache(t *testing.T) {
	dev, sb := buildSingleGroupImage(10)
	fs, err := Open(dev, MountOptions{InodeCache: NewSyncMapCache[string, Inode]()})
	require.NoError(t, err)

	in := singleLeafInode(0, 1, 500)
	in.Mode = modeRegular | 0644
	writeInode(dev, sb, 10, 50, in)

	got, err := fs.ReadInode(50)
	require.NoError(t, err)
	require.True(t, got.IsRegular())

	// Zero the first inode-table blocks, including block 13 that holds
	// inode 50; a cache hit should still return the previously decoded
	// record rather than re-reading the zeroed (non-regular) inode.
	for id := uint64(10); id < 30; id++ {
		dev.setBlock(id, make([]byte, BlockSize))
	}
	got2, err := fs.ReadInode(50)
	require.NoError(t, err)
	require.True(t, got2.IsRegular())
}
