package ext4

import (
	"errors"

	"go.uber.org/multierr"
)

// Error kinds the core returns. Callers distinguish them with errors.Is;
// the concrete values carry no extra state beyond what xerrors.Errorf's
// %w wrapping preserves from the underlying cause.
var (
	// ErrIoError wraps a failure reported by the underlying BlockDevice.
	ErrIoError = errors.New("ext4: io error")

	// ErrMalformedRecord is returned when a fixed-layout decode runs out
	// of bytes, an extent header's magic does not match 0xF30A, a
	// directory entry's rec_len is zero, or a path component exceeds the
	// 255-byte name field.
	ErrMalformedRecord = errors.New("ext4: malformed record")

	// ErrInvalidInode is returned for inode number 0 or a number outside
	// [1, inodes_count].
	ErrInvalidInode = errors.New("ext4: invalid inode")

	// ErrNotFound is returned when a path component is absent from its
	// parent directory.
	ErrNotFound = errors.New("ext4: not found")

	// ErrNotADirectory is returned when a non-terminal path component
	// resolves to an inode that is not a directory.
	ErrNotADirectory = errors.New("ext4: not a directory")

	// ErrHoleInFile is returned when a logical-block query falls inside
	// an unmapped range of a sparse file.
	ErrHoleInFile = errors.New("ext4: hole in file")

	// ErrEndOfFile is returned by a streaming read once the materialized
	// block list is exhausted.
	ErrEndOfFile = errors.New("ext4: end of file")
)

// combineErrors aggregates a slice of per-block failures from a
// best-effort scan (ListDirTolerant) into a
// single error, or nil if errs is empty.
func combineErrors(errs []error) error {
	return multierr.Combine(errs...)
}
