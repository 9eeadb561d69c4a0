package ext4

import (
	"bytes"
	"encoding/binary"

	"github.com/lunixbochs/struc"
	"golang.org/x/xerrors"
)

// decodeFixed binary.Reads a fixed-layout little-endian record out of b
// into v, failing with ErrMalformedRecord if b is shorter than the
// record's on-disk size. This is the shared primitive behind every
// decodeX function below except decodeDirEntry, whose variable-length
// name field needs struc's sizeof= framing instead.
func decodeFixed(b []byte, v interface{}) error {
	size := binary.Size(v)
	if size < 0 {
		panic("ext4: decodeFixed called with a type binary.Size cannot measure")
	}
	if len(b) < size {
		return xerrors.Errorf("%w: need %d bytes, have %d", ErrMalformedRecord, size, len(b))
	}
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, v); err != nil {
		return xerrors.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return nil
}

// decodeSuperblock decodes the 1024-byte superblock record. The caller is
// responsible for having already seeked/sliced to byte offset 1024
// (SuperblockOffset) and for checking sb.Magic; decoding performs no
// semantic validation beyond length.
func decodeSuperblock(b []byte) (Superblock, error) {
	var sb Superblock
	if err := decodeFixed(b, &sb); err != nil {
		return Superblock{}, xerrors.Errorf("decode superblock: %w", err)
	}
	return sb, nil
}

// decodeGroupDescriptor decodes a group-descriptor record. b may be
// either the 32-byte (32-bit) or 64-byte (64-bit feature) on-disk form;
// shorter records are zero-extended so the 64-bit-only fields simply
// read as zero, matching the absence of a 64-bit feature.
func decodeGroupDescriptor(b []byte) (GroupDescriptor, error) {
	const shortForm = 32
	if len(b) < shortForm {
		return GroupDescriptor{}, xerrors.Errorf("decode group descriptor: %w: need %d bytes, have %d", ErrMalformedRecord, shortForm, len(b))
	}
	full := binary.Size(GroupDescriptor{})
	padded := make([]byte, full)
	copy(padded, b)

	var gd GroupDescriptor
	if err := decodeFixed(padded, &gd); err != nil {
		return GroupDescriptor{}, xerrors.Errorf("decode group descriptor: %w", err)
	}
	return gd, nil
}

// decodeInode decodes the fixed 128-byte inode record this core
// understands, regardless of the superblock's (possibly larger)
// InodeSize.
func decodeInode(b []byte) (Inode, error) {
	var inode Inode
	if err := decodeFixed(b, &inode); err != nil {
		return Inode{}, xerrors.Errorf("decode inode: %w", err)
	}
	return inode, nil
}

// decodeExtentHeader decodes the 12-byte extent-tree node header. The
// caller is responsible for checking h.Magic; decoding performs no
// semantic validation beyond length.
func decodeExtentHeader(b []byte) (ExtentHeader, error) {
	var h ExtentHeader
	if err := decodeFixed(b, &h); err != nil {
		return ExtentHeader{}, xerrors.Errorf("decode extent header: %w", err)
	}
	return h, nil
}

// decodeExtentIndex decodes a 12-byte internal extent-tree entry.
func decodeExtentIndex(b []byte) (ExtentIndex, error) {
	var e ExtentIndex
	if err := decodeFixed(b, &e); err != nil {
		return ExtentIndex{}, xerrors.Errorf("decode extent index: %w", err)
	}
	return e, nil
}

// decodeExtentLeaf decodes a 12-byte leaf extent entry.
func decodeExtentLeaf(b []byte) (ExtentLeaf, error) {
	var e ExtentLeaf
	if err := decodeFixed(b, &e); err != nil {
		return ExtentLeaf{}, xerrors.Errorf("decode extent leaf: %w", err)
	}
	return e, nil
}

// direntHeader is the struc-tagged view of a directory entry's fixed
// prefix (inode, rec_len, name_len, file_type) plus its variable-length
// name, unpacked via struc's sizeof= framing the way the teacher's
// DirectoryEntry2 does.
type direntHeader struct {
	Inode    uint32 `struc:"uint32,little"`
	RecLen   uint16 `struc:"uint16,little"`
	NameLen  uint8  `struc:"uint8,sizeof=Name"`
	FileType uint8  `struc:"uint8"`
	Name     string `struc:"[]byte"`
}

const direntFixedPrefix = 8 // inode(4) + rec_len(2) + name_len(1) + file_type(1)

// decodeDirEntry decodes a single directory-entry record starting at
// offset within b. It returns the decoded entry; the caller advances by
// RecLen to reach the next entry. rec_len == 0 is rejected with
// ErrMalformedRecord to guard against an infinite loop. name_len is a
// single byte, so a decoded name always fits the 255-byte name buffer.
func decodeDirEntry(b []byte, offset int) (DirEntry, error) {
	if offset < 0 || offset+direntFixedPrefix > len(b) {
		return DirEntry{}, xerrors.Errorf("decode dir entry at %d: %w", offset, ErrMalformedRecord)
	}

	var raw direntHeader
	if err := struc.Unpack(bytes.NewReader(b[offset:]), &raw); err != nil {
		return DirEntry{}, xerrors.Errorf("decode dir entry at %d: %w: %v", offset, ErrMalformedRecord, err)
	}
	if raw.RecLen == 0 {
		return DirEntry{}, xerrors.Errorf("decode dir entry at %d: %w: rec_len is zero", offset, ErrMalformedRecord)
	}
	var d DirEntry
	d.Inode = raw.Inode
	d.RecLen = raw.RecLen
	d.NameLen = raw.NameLen
	d.FileType = raw.FileType
	copy(d.name[:], raw.Name)
	return d, nil
}
