package ext4

import "golang.org/x/xerrors"

// BlockSize is the fixed block size this core assumes, per spec. Real
// ext4 volumes may format with 1/2/4 KiB blocks (derived from the
// superblock's log_block_size); this core only supports the 4 KiB case.
const BlockSize = 4096

// SuperblockOffset is the fixed absolute byte offset of the superblock.
const SuperblockOffset = 1024

// RootInodeNumber is always 2 on ext4.
const RootInodeNumber = 2

// BlockDevice is the capability this core requires from its host: a
// synchronous, fixed-size block read/write primitive. WriteBlock exists
// only to complete the contract described by the spec; this read-only
// core never calls it.
type BlockDevice interface {
	// ReadBlock fills out with the contents of device block blockID.
	// len(out) must equal BlockSize().
	ReadBlock(blockID uint64, out []byte) error

	// WriteBlock is not used by this core.
	WriteBlock(blockID uint64, data []byte) error

	// BlockSize returns the device's native block size in bytes.
	BlockSize() int

	// BlockCount returns the number of blocks exposed by the device.
	BlockCount() uint64
}

// blockReader is C2: it turns a byte offset into a fully populated
// 4 KiB buffer, coalescing reads through BlockDevice.ReadBlock.
type blockReader struct {
	dev BlockDevice
}

// readAtOffset reads the single 4 KiB block containing byteOffset.
func (b blockReader) readAtOffset(byteOffset int64) ([]byte, error) {
	blockID := uint64(byteOffset) / BlockSize
	buf := make([]byte, BlockSize)
	if err := b.dev.ReadBlock(blockID, buf); err != nil {
		return nil, xerrors.Errorf("%w: read block %d: %v", ErrIoError, blockID, err)
	}
	return buf, nil
}

// readBlock reads the 4 KiB block numbered blockID directly.
func (b blockReader) readBlock(blockID uint64) ([]byte, error) {
	buf := make([]byte, BlockSize)
	if err := b.dev.ReadBlock(blockID, buf); err != nil {
		return nil, xerrors.Errorf("%w: read block %d: %v", ErrIoError, blockID, err)
	}
	return buf, nil
}

// SectorCoalescingDevice adapts a BlockDevice whose native block size is
// smaller than 4096 (e.g. 512-byte disk sectors) into one that looks like
// a native 4 KiB device to the rest of this package, per the host-adapter
// requirement in §6: the host must coalesce multiple sectors into a 4 KiB
// read when the underlying device reports a smaller native size.
type SectorCoalescingDevice struct {
	Sectors BlockDevice
}

// NewSectorCoalescingDevice wraps a sector-granular device.
func NewSectorCoalescingDevice(sectors BlockDevice) *SectorCoalescingDevice {
	return &SectorCoalescingDevice{Sectors: sectors}
}

func (d *SectorCoalescingDevice) sectorsPerBlock() int {
	n := BlockSize / d.Sectors.BlockSize()
	if n < 1 {
		n = 1
	}
	return n
}

func (d *SectorCoalescingDevice) ReadBlock(blockID uint64, out []byte) error {
	if len(out) != BlockSize {
		panic("ext4: ReadBlock called with buffer that is not BlockSize bytes")
	}
	spb := uint64(d.sectorsPerBlock())
	sectorSize := d.Sectors.BlockSize()
	first := blockID * spb
	for i := uint64(0); i < spb; i++ {
		if err := d.Sectors.ReadBlock(first+i, out[int(i)*sectorSize:int(i+1)*sectorSize]); err != nil {
			return err
		}
	}
	return nil
}

func (d *SectorCoalescingDevice) WriteBlock(blockID uint64, data []byte) error {
	spb := uint64(d.sectorsPerBlock())
	sectorSize := d.Sectors.BlockSize()
	first := blockID * spb
	for i := uint64(0); i < spb; i++ {
		if err := d.Sectors.WriteBlock(first+i, data[int(i)*sectorSize:int(i+1)*sectorSize]); err != nil {
			return err
		}
	}
	return nil
}

func (d *SectorCoalescingDevice) BlockSize() int {
	return BlockSize
}

func (d *SectorCoalescingDevice) BlockCount() uint64 {
	return d.Sectors.BlockCount() / uint64(d.sectorsPerBlock())
}
