package ext4

import (
	"io"
	"io/fs"
	"time"
)

// Filesystem additionally implements io/fs.FS, io/fs.ReadDirFS, and
// io/fs.StatFS as an ambient convenience layered on top of (not
// replacing) the named operations above: a host that wants
// fs.WalkDir/fs.Glob compatibility gets it without a second
// implementation. Nothing here is part of the spec's own contract.
var (
	_ fs.FS        = &Filesystem{}
	_ fs.ReadDirFS = &Filesystem{}
	_ fs.StatFS    = &Filesystem{}
	_ fs.File      = &ioFile{}
	_ fs.FileInfo  = ioFileInfo{}
	_ fs.DirEntry  = ioDirEntry{}
)

type ioFileInfo struct {
	name  string
	inode *Inode
}

func (fi ioFileInfo) Name() string       { return fi.name }
func (fi ioFileInfo) Size() int64        { return fi.inode.Size() }
func (fi ioFileInfo) Mode() fs.FileMode  { return fs.FileMode(fi.inode.Mode) }
func (fi ioFileInfo) ModTime() time.Time { return time.Unix(int64(fi.inode.Mtime), 0) }
func (fi ioFileInfo) IsDir() bool        { return fi.inode.IsDir() }
func (fi ioFileInfo) Sys() interface{}   { return nil }

type ioDirEntry struct {
	ioFileInfo
}

func (d ioDirEntry) Type() fs.FileMode          { return d.ioFileInfo.Mode().Type() }
func (d ioDirEntry) Info() (fs.FileInfo, error) { return d.ioFileInfo, nil }

// ioFile adapts an OpenedFile to io/fs.File's byte-stream Read contract,
// trimming the final materialized block to the inode's declared size —
// the trimming ReadNextBlock itself deliberately leaves to the caller.
type ioFile struct {
	fs     *Filesystem
	handle *OpenedFile
	info   ioFileInfo

	buf []byte
}

func (f *ioFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *ioFile) Close() error               { return nil }

func (f *ioFile) Read(p []byte) (int, error) {
	for len(f.buf) == 0 {
		remaining := f.info.inode.Size() - int64(f.handle.readIndex)*BlockSize
		if remaining <= 0 {
			return 0, io.EOF
		}
		block := make([]byte, BlockSize)
		_, err := f.fs.ReadNextBlock(f.handle, block)
		if err != nil {
			return 0, err
		}
		if remaining < BlockSize {
			block = block[:remaining]
		}
		f.buf = block
	}
	n := copy(p, f.buf)
	f.buf = f.buf[n:]
	return n, nil
}

// Open implements io/fs.FS. name is a slash-separated path relative to
// the volume root, without a leading slash (per fs.ValidPath).
func (fs4 *Filesystem) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	handle, err := fs4.OpenPath(name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	if err := fs4.LoadInodeAttrs(handle); err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	if handle.Mode&modeTypeMask == modeDir {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	if err := fs4.MaterializeBlocks(handle); err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}

	inode, err := fs4.ReadInode(handle.InodeNo)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return &ioFile{
		fs:     fs4,
		handle: handle,
		info:   ioFileInfo{name: name, inode: inode},
	}, nil
}

// ReadDir implements io/fs.ReadDirFS.
func (fs4 *Filesystem) ReadDir(name string) ([]fs.DirEntry, error) {
	if name == "." || name == "" {
		name = "/"
	}
	handle, err := fs4.OpenPath(name)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: err}
	}
	dirInode, err := fs4.ReadInode(handle.InodeNo)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: err}
	}
	if !dirInode.IsDir() {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: ErrNotADirectory}
	}

	entries, err := fs4.ListDir(dirInode)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: err}
	}

	var out []fs.DirEntry
	for _, e := range entries {
		if e.Name() == "." || e.Name() == ".." {
			continue
		}
		childInode, err := fs4.ReadInode(int64(e.Inode))
		if err != nil {
			return nil, &fs.PathError{Op: "readdir", Path: name, Err: err}
		}
		out = append(out, ioDirEntry{ioFileInfo{name: e.Name(), inode: childInode}})
	}
	return out, nil
}

// Stat implements io/fs.StatFS.
func (fs4 *Filesystem) Stat(name string) (fs.FileInfo, error) {
	if name == "." || name == "" || name == "/" {
		inode, err := fs4.RootInode()
		if err != nil {
			return nil, &fs.PathError{Op: "stat", Path: name, Err: err}
		}
		return ioFileInfo{name: "/", inode: inode}, nil
	}

	handle, err := fs4.OpenPath(name)
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: err}
	}
	inode, err := fs4.ReadInode(handle.InodeNo)
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: err}
	}
	return ioFileInfo{name: name, inode: inode}, nil
}
