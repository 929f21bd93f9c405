// Package fs ties the layers together: it brings a filesystem up from a
// device (superblock, then inode list) and tears it down again.
package fs

import (
	"errors"
	"fmt"

	"github.com/jnwhiteh/h2fs/common"
	"github.com/jnwhiteh/h2fs/device"
	"github.com/jnwhiteh/h2fs/ilist"
	"github.com/jnwhiteh/h2fs/super"
)

// FileSystem is one mounted filesystem context: the device, its superblock
// and the inode list built from them.
type FileSystem struct {
	Dev    common.BlockDevice
	Super  *common.Superblock
	Inodes *ilist.List
}

// OpenFileSystemFile mounts the named device through the default device
// registry.
func OpenFileSystemFile(filename string) (*FileSystem, error) {
	return OpenFileSystem(nil, filename)
}

// OpenFileSystem opens the named device through reg (the default registry
// when nil) and mounts it. The device is closed again if the mount fails.
func OpenFileSystem(reg *device.Registry, filename string) (*FileSystem, error) {
	var dev *device.File
	var err error
	if reg == nil {
		dev, err = device.Open(filename, common.MIN_BLOCK_SIZE)
	} else {
		dev, err = reg.Open(filename, common.MIN_BLOCK_SIZE)
	}
	if err != nil {
		return nil, err
	}

	fs, err := NewFileSystem(dev)
	if err != nil {
		dev.Close()
		return nil, err
	}
	return fs, nil
}

// NewFileSystem mounts an already open device. Ownership of dev passes to
// the FileSystem only on success; on failure dev is left open with the block
// size it had on entry.
func NewFileSystem(dev common.BlockDevice) (*FileSystem, error) {
	sb, err := super.Read(dev)
	if err != nil {
		return nil, fmt.Errorf("read super block: %w", err)
	}

	// The super block lives at offset 0 whatever the block size, so it can
	// be read before the device knows the real geometry.
	bsize := dev.BlockSize()
	if err := dev.SetBlockSize(int(sb.Block_size)); err != nil {
		return nil, err
	}

	inodes, err := loadInodes(dev, sb)
	if err != nil {
		dev.SetBlockSize(bsize)
		return nil, err
	}

	return &FileSystem{
		Dev:    dev,
		Super:  sb,
		Inodes: inodes,
	}, nil
}

func loadInodes(dev common.BlockDevice, sb *common.Superblock) (*ilist.List, error) {
	need := int64(sb.Nblocks) * int64(sb.Block_size)
	if dev.Size() < need {
		return nil, fmt.Errorf("%w: super block describes %d bytes, device has %d",
			common.ErrCorruptSuperblock, need, dev.Size())
	}

	inodes, err := ilist.Init(sb, dev)
	if err != nil {
		return nil, fmt.Errorf("init inode list: %w", err)
	}
	return inodes, nil
}

// Shutdown writes back changed inodes, releases the inode list and closes
// the device. The list is released and the device closed even if the write
// back fails.
func (fs *FileSystem) Shutdown() error {
	var errs []error
	if fs.Inodes.State() == ilist.Ready && fs.Inodes.Dirty() {
		if err := fs.Inodes.Sync(); err != nil {
			errs = append(errs, fmt.Errorf("sync inodes: %w", err))
		} else if err := fs.Dev.Sync(); err != nil {
			errs = append(errs, err)
		}
	}
	fs.Inodes.Cleanup()
	if err := fs.Dev.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
