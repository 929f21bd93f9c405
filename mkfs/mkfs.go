// Package mkfs lays down a new, empty filesystem: a superblock, a zeroed
// inode table and a root directory owned by the superuser.
package mkfs

import (
	"fmt"
	"os"
	"time"

	"github.com/jnwhiteh/h2fs/common"
	"github.com/jnwhiteh/h2fs/super"
)

type Options struct {
	Blocks    int // size of the filesystem in blocks, 0 fills the device
	Inodes    int // number of inodes, 0 picks one per 4KB
	BlockSize int // block size in bytes, 0 means DEFAULT_BLKSIZE
	Uid, Gid  uint16
	Mode      uint16 // permission bits of the root directory
}

func (opts Options) withDefaults(dev common.BlockDevice) Options {
	if opts.BlockSize == 0 {
		opts.BlockSize = common.DEFAULT_BLKSIZE
	}
	if opts.Blocks == 0 {
		opts.Blocks = int(dev.Size() / int64(opts.BlockSize))
	}
	if opts.Mode == 0 {
		opts.Mode = 0755
	}
	return opts
}

// Make formats dev and returns the superblock it wrote. The device block
// size is switched to the one chosen for the filesystem.
func Make(dev common.BlockDevice, opts Options) (*common.Superblock, error) {
	opts = opts.withDefaults(dev)

	sb, err := super.Format(opts.Blocks, opts.Inodes, opts.BlockSize)
	if err != nil {
		return nil, err
	}

	need := int64(sb.Nblocks) * int64(sb.Block_size)
	if dev.Size() < need {
		return nil, fmt.Errorf("%w: filesystem needs %d bytes, device has %d",
			common.ErrOutOfRange, need, dev.Size())
	}
	if err := dev.SetBlockSize(int(sb.Block_size)); err != nil {
		return nil, err
	}

	// Zero the inode table, with the root directory in the first record
	block := make([]byte, sb.Block_size)
	for b := 0; b < int(sb.Itable_blocks); b++ {
		if b == 0 {
			if err := common.EncodeInodes(block, common.InodeBlock{rootInode(opts)}); err != nil {
				return nil, err
			}
		}
		if err := dev.WriteBlock(int(sb.Itable_start)+b, block); err != nil {
			return nil, fmt.Errorf("inode table block %d: %w", int(sb.Itable_start)+b, err)
		}
		if b == 0 {
			clear(block)
		}
	}

	if err := super.Write(dev, sb); err != nil {
		return nil, err
	}
	if err := dev.Sync(); err != nil {
		return nil, err
	}
	return sb, nil
}

func rootInode(opts Options) common.Inode {
	return common.Inode{
		Mode:   common.I_DIRECTORY | (opts.Mode & common.ALL_MODES),
		Nlinks: 2,
		Uid:    opts.Uid,
		Gid:    opts.Gid,
		Mtime:  uint32(time.Now().Unix()),
	}
}

// CreateImage creates (or truncates) a disk image file of the given size.
func CreateImage(filename string, size int64) error {
	file, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("create image %s: %w", filename, err)
	}
	if err := file.Truncate(size); err != nil {
		file.Close()
		return fmt.Errorf("size image %s: %w", filename, err)
	}
	return file.Close()
}
