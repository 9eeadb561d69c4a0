package ext4

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIOFSOpenAndReadAll(t *testing.T) {
	fs := buildTestTree(t)
	fs.dev.(*memDevice).setBlock(300, bytes.Repeat([]byte{0x9A}, BlockSize))

	f, err := fs.Open("sub/file.txt")
	require.NoError(t, err)
	defer f.Close()

	got, err := io.ReadAll(f)
	require.NoError(t, err)
	require.Equal(t, bytes.Repeat([]byte{0x9A}, BlockSize), got)
}

func TestIOFSReadDirSkipsDotEntries(t *testing.T) {
	fs := buildTestTree(t)

	entries, err := fs.ReadDir("/")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.ElementsMatch(t, []string{"sub"}, names)
}

func TestIOFSStatRoot(t *testing.T) {
	fs := buildTestTree(t)

	info, err := fs.Stat("/")
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestIOFSOpenRejectsDirectory(t *testing.T) {
	fs := buildTestTree(t)
	_, err := fs.Open("sub")
	require.Error(t, err)
}
