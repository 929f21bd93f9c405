package device

import (
	"fmt"
	"os"

	"github.com/jnwhiteh/h2fs/common"
)

// Ramdisk is a block device held entirely in memory. It follows the same
// contract as File, which makes it useful for tests and dry runs.
type Ramdisk struct {
	data   []byte
	bsize  int
	closed bool
}

var _ common.BlockDevice = (*Ramdisk)(nil)

// NewRamdisk creates a ramdisk over data. The slice is used directly, so
// writes to the device are visible to the caller.
func NewRamdisk(data []byte, blockSize int) (*Ramdisk, error) {
	if !common.ValidBlockSize(blockSize) {
		return nil, fmt.Errorf("%w: %d", common.ErrBlockSize, blockSize)
	}
	return &Ramdisk{data: data, bsize: blockSize}, nil
}

// NewRamdiskFile loads the contents of an image file into a new ramdisk.
func NewRamdiskFile(filename string, blockSize int) (*Ramdisk, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, openError(filename, err)
	}
	return NewRamdisk(data, blockSize)
}

// Bytes returns the backing store of the ramdisk.
func (dev *Ramdisk) Bytes() []byte {
	return dev.data
}

func (dev *Ramdisk) BlockSize() int {
	return dev.bsize
}

func (dev *Ramdisk) SetBlockSize(size int) error {
	if dev.closed {
		return common.ErrDeviceClosed
	}
	if !common.ValidBlockSize(size) {
		return fmt.Errorf("%w: %d", common.ErrBlockSize, size)
	}
	dev.bsize = size
	return nil
}

func (dev *Ramdisk) Size() int64 {
	return int64(len(dev.data))
}

func (dev *Ramdisk) ReadBlock(bnum int, buf []byte) error {
	if dev.closed {
		return common.ErrDeviceClosed
	}
	pos, err := blockOffset(bnum, dev.bsize, len(buf), dev.Size())
	if err != nil {
		return err
	}
	copy(buf, dev.data[pos:])
	return nil
}

func (dev *Ramdisk) WriteBlock(bnum int, buf []byte) error {
	if dev.closed {
		return common.ErrDeviceClosed
	}
	pos, err := blockOffset(bnum, dev.bsize, len(buf), dev.Size())
	if err != nil {
		return err
	}
	copy(dev.data[pos:], buf)
	return nil
}

func (dev *Ramdisk) Sync() error {
	if dev.closed {
		return common.ErrDeviceClosed
	}
	return nil
}

// Close marks the ramdisk closed. The backing slice is kept so callers can
// still inspect it through Bytes.
func (dev *Ramdisk) Close() error {
	if dev.closed {
		return common.ErrDeviceClosed
	}
	dev.closed = true
	return nil
}
