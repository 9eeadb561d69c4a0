package ext4

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCombineErrorsNilForEmpty(t *testing.T) {
	require.NoError(t, combineErrors(nil))
}

func TestCombineErrorsAggregates(t *testing.T) {
	err := combineErrors([]error{errors.New("a"), errors.New("b")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "a")
	require.Contains(t, err.Error(), "b")
}

func TestListDirTolerantSkipsDamagedBlock(t *testing.T) {
	dev, _ := buildSingleGroupImage(10)

	good := buildDirBlock([]dirEntrySpec{
		{inode: 2, fileType: ftDirectory, name: "."},
		{inode: 2, fileType: ftDirectory, name: ".."},
	})
	dev.setBlock(200, good)
	// Block 201 is left as all-zero: rec_len 0 on the first entry, which
	// decodeDirEntry rejects as malformed.

	header := ExtentHeader{Magic: extentHeaderMagic, Entries: 2, Max: 4, Depth: 0}
	leafA := ExtentLeaf{Block: 0, Len: 1, StartLo: 200}
	leafB := ExtentLeaf{Block: 1, Len: 1, StartLo: 201}
	region := rootExtentBytes(header, [][]byte{packFixed(leafA), packFixed(leafB)})
	dirInode := Inode{Mode: modeDir | 0755, Flags: extentsFlag, SizeLo: 2 * BlockSize, BlockOrExtents: region}

	fs, err := Open(dev)
	require.NoError(t, err)

	entries, err := fs.ListDirTolerant(&dirInode)
	require.Error(t, err)
	require.Len(t, entries, 2)
}
