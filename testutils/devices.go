package testutils

import (
	"path/filepath"
	"testing"

	"github.com/jnwhiteh/h2fs/common"
	"github.com/jnwhiteh/h2fs/device"
	"github.com/jnwhiteh/h2fs/mkfs"
)

//////////////////////////////////////////////////////////////////////////////
// A ramdisk device with a certain number of blocks with a given block size.
// Each block is filled with the bytes of the block number, so each byte in
// the first block contains a 0, the next block contains all 1, etc.
//////////////////////////////////////////////////////////////////////////////

func NewTestDevice(test *testing.T, bsize, blocks int) *device.Ramdisk {
	test.Helper()
	data := make([]byte, bsize*blocks)
	for i := 0; i < blocks; i++ {
		for j := 0; j < bsize; j++ {
			data[(i*bsize)+j] = byte(i)
		}
	}
	dev, err := device.NewRamdisk(data, bsize)
	if err != nil {
		FatalHere(test, "Failed when creating ramdisk device: %s", err)
	}
	return dev
}

// NewImage returns a ramdisk holding a freshly formatted filesystem.
func NewImage(test *testing.T, bsize, blocks, inodes int) (*device.Ramdisk, *common.Superblock) {
	test.Helper()
	dev, err := device.NewRamdisk(make([]byte, bsize*blocks), bsize)
	if err != nil {
		FatalHere(test, "Failed when creating ramdisk device: %s", err)
	}
	sb, err := mkfs.Make(dev, mkfs.Options{Blocks: blocks, Inodes: inodes, BlockSize: bsize})
	if err != nil {
		FatalHere(test, "Failed when formatting ramdisk: %s", err)
	}
	return dev, sb
}

// NewImageFile writes a freshly formatted filesystem to a file in a
// temporary directory and returns its path.
func NewImageFile(test *testing.T, bsize, blocks, inodes int) string {
	test.Helper()
	dev, _ := NewImage(test, bsize, blocks, inodes)
	path := filepath.Join(test.TempDir(), "h2fs.img")
	if err := mkfs.CreateImage(path, dev.Size()); err != nil {
		FatalHere(test, "Failed when creating image file: %s", err)
	}

	file, err := new(device.Registry).Open(path, bsize)
	if err != nil {
		FatalHere(test, "Failed when opening image file: %s", err)
	}
	defer file.Close()
	for b := 0; b < blocks; b++ {
		if err := file.WriteBlock(b, dev.Bytes()[b*bsize:(b+1)*bsize]); err != nil {
			FatalHere(test, "Failed when writing image block %d: %s", b, err)
		}
	}
	return path
}
