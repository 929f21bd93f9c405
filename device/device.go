// Package device implements the block device layer: fixed-size block reads
// and writes addressed by logical block number, over a disk image or raw
// block special file.
package device

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/jnwhiteh/h2fs/common"
)

// Registry enforces a single live device per filesystem context. The
// package-level default registry backs Open; tests create their own.
type Registry struct {
	m    sync.Mutex
	open *File
}

var defaultRegistry = new(Registry)

// Open opens the named device for reading and writing through the default
// registry.
func Open(path string, blockSize int) (*File, error) {
	return defaultRegistry.Open(path, blockSize)
}

// File is a block device backed by an open file descriptor.
type File struct {
	file   *os.File
	path   string
	bsize  int   // bytes per block
	size   int64 // addressable bytes
	closed bool
	reg    *Registry
}

var _ common.BlockDevice = (*File)(nil)

// Open opens the named device for reading and writing. It fails with
// ErrAlreadyOpen if this registry already holds a live device.
func (r *Registry) Open(path string, blockSize int) (*File, error) {
	if !common.ValidBlockSize(blockSize) {
		return nil, fmt.Errorf("open %s: %w: %d", path, common.ErrBlockSize, blockSize)
	}

	r.m.Lock()
	defer r.m.Unlock()

	if r.open != nil {
		return nil, fmt.Errorf("open %s: %w: %s is in use", path, common.ErrAlreadyOpen, r.open.path)
	}

	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, openError(path, err)
	}

	if err := lockFile(file); err != nil {
		file.Close()
		if errors.Is(err, common.ErrAlreadyOpen) {
			return nil, fmt.Errorf("open %s: %w: locked by another process", path, err)
		}
		return nil, fmt.Errorf("lock %s: %w: %w", path, common.ErrIO, err)
	}

	size, err := deviceSize(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("size %s: %w: %w", path, common.ErrIO, err)
	}

	dev := &File{
		file:  file,
		path:  path,
		bsize: blockSize,
		size:  size,
		reg:   r,
	}
	r.open = dev
	return dev, nil
}

func (r *Registry) release(dev *File) {
	r.m.Lock()
	defer r.m.Unlock()
	if r.open == dev {
		r.open = nil
	}
}

func openError(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("open %s: %w: %w", path, common.ErrDeviceNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("open %s: %w: %w", path, common.ErrPermissionDenied, err)
	}
	return fmt.Errorf("open %s: %w: %w", path, common.ErrIO, err)
}

// blockOffset translates a block number into a byte offset, checking that
// n bytes starting there lie inside the device.
func blockOffset(bnum, bsize, n int, size int64) (int64, error) {
	if bnum < 0 {
		return 0, fmt.Errorf("block %d: %w", bnum, common.ErrOutOfRange)
	}
	// compare before multiplying so a huge block number cannot wrap
	if int64(n) > size || int64(bnum) > (size-int64(n))/int64(bsize) {
		return 0, fmt.Errorf("block %d (%d bytes of %d byte blocks, device has %d): %w",
			bnum, n, bsize, size, common.ErrOutOfRange)
	}
	return int64(bnum) * int64(bsize), nil
}

func (dev *File) Path() string {
	return dev.path
}

func (dev *File) BlockSize() int {
	return dev.bsize
}

// SetBlockSize changes the block size used to translate block numbers. It
// is called once the superblock has named the real block size.
func (dev *File) SetBlockSize(size int) error {
	if dev.closed {
		return common.ErrDeviceClosed
	}
	if !common.ValidBlockSize(size) {
		return fmt.Errorf("%w: %d", common.ErrBlockSize, size)
	}
	dev.bsize = size
	return nil
}

func (dev *File) Size() int64 {
	return dev.size
}

// ReadBlock reads exactly len(buf) bytes starting at the given block.
func (dev *File) ReadBlock(bnum int, buf []byte) error {
	if dev.closed {
		return common.ErrDeviceClosed
	}
	pos, err := blockOffset(bnum, dev.bsize, len(buf), dev.size)
	if err != nil {
		return err
	}

	n, err := dev.file.ReadAt(buf, pos)
	if n < len(buf) {
		if err == nil || errors.Is(err, io.EOF) {
			return fmt.Errorf("block %d: %w: %d of %d bytes", bnum, common.ErrShortRead, n, len(buf))
		}
		return fmt.Errorf("block %d: %w: %w", bnum, common.ErrIO, err)
	}
	return nil
}

// WriteBlock writes all of buf starting at the given block.
func (dev *File) WriteBlock(bnum int, buf []byte) error {
	if dev.closed {
		return common.ErrDeviceClosed
	}
	pos, err := blockOffset(bnum, dev.bsize, len(buf), dev.size)
	if err != nil {
		return err
	}

	n, err := dev.file.WriteAt(buf, pos)
	if n < len(buf) {
		return fmt.Errorf("block %d: %w: %d of %d bytes: %v", bnum, common.ErrShortWrite, n, len(buf), err)
	}
	if err != nil {
		return fmt.Errorf("block %d: %w: %w", bnum, common.ErrIO, err)
	}
	return nil
}

func (dev *File) Sync() error {
	if dev.closed {
		return common.ErrDeviceClosed
	}
	if err := dev.file.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w: %w", dev.path, common.ErrIO, err)
	}
	return nil
}

// Close releases the descriptor and the registry slot. Closing a device
// twice fails with ErrDeviceClosed.
func (dev *File) Close() error {
	if dev.closed {
		return common.ErrDeviceClosed
	}
	dev.closed = true
	dev.reg.release(dev)

	if err := dev.file.Close(); err != nil {
		return fmt.Errorf("close %s: %w: %w", dev.path, common.ErrIO, err)
	}
	return nil
}
