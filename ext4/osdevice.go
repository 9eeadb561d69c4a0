package ext4

import "io"

// ReaderAtDevice adapts any io.ReaderAt (an *os.File backing a raw disk
// image, for instance) into a native 4 KiB BlockDevice. It is a
// convenience for hosts that already have random-access file I/O and
// don't need the sector-coalescing behavior SectorCoalescingDevice
// provides.
type ReaderAtDevice struct {
	R     io.ReaderAt
	Count uint64 // total block count, for BlockCount(); 0 if unknown
}

// NewReaderAtDevice wraps r as a BlockDevice with the given total block
// count (pass 0 if the device's size is not known up front).
func NewReaderAtDevice(r io.ReaderAt, blockCount uint64) *ReaderAtDevice {
	return &ReaderAtDevice{R: r, Count: blockCount}
}

func (d *ReaderAtDevice) ReadBlock(blockID uint64, out []byte) error {
	if len(out) != BlockSize {
		panic("ext4: ReadBlock called with buffer that is not BlockSize bytes")
	}
	_, err := d.R.ReadAt(out, int64(blockID)*BlockSize)
	return err
}

func (d *ReaderAtDevice) WriteBlock(_ uint64, _ []byte) error {
	panic("ext4: ReaderAtDevice is read-only")
}

func (d *ReaderAtDevice) BlockSize() int {
	return BlockSize
}

func (d *ReaderAtDevice) BlockCount() uint64 {
	return d.Count
}
