package main

import (
	"fmt"

	"github.com/jnwhiteh/h2fs/common"
	"github.com/jnwhiteh/h2fs/debug"
	"github.com/jnwhiteh/h2fs/device"
	"github.com/jnwhiteh/h2fs/mkfs"
	"github.com/spf13/cobra"
)

type mkfsOptions struct {
	inodes    int
	blockSize int
	blocks    int
	uid, gid  uint16
	create    bool
	dryRun    bool
}

// This command is used to create a new filesystem with a root directory
// owned by the superuser (uid 0) unless told otherwise.
func newMkfsCommand(root *rootOptions) *cobra.Command {
	opts := new(mkfsOptions)

	cmd := &cobra.Command{
		Use:   "mkfs",
		Short: "Create a new filesystem on the device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !changed(cmd, "blocksize") {
				opts.blockSize = root.conf.BlockSize
			}
			if !common.ValidBlockSize(opts.blockSize) {
				return fmt.Errorf("block size must be a power of two between %d and %d bytes",
					common.MIN_BLOCK_SIZE, common.MAX_BLOCK_SIZE)
			}
			if (opts.create || opts.dryRun) && opts.blocks < 1 {
				return fmt.Errorf("--size is required with --create and --dry-run")
			}

			dev, err := openForMkfs(root, opts)
			if err != nil {
				return err
			}

			sb, err := mkfs.Make(dev, mkfs.Options{
				Blocks:    opts.blocks,
				Inodes:    opts.inodes,
				BlockSize: opts.blockSize,
				Uid:       opts.uid,
				Gid:       opts.gid,
			})
			if err != nil {
				dev.Close()
				return err
			}
			debug.WriteSuper(cmd.OutOrStdout(), sb)
			return dev.Close()
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&opts.inodes, "inodes", 0, "the number of inodes in the filesystem (0 picks one per 4KB)")
	flags.IntVar(&opts.blockSize, "blocksize", common.DEFAULT_BLKSIZE, "the block size (in bytes)")
	flags.IntVar(&opts.blocks, "size", 0, "the size of the filesystem (in blocks, 0 fills the device)")
	flags.Uint16Var(&opts.uid, "uid", 0, "owner of the root directory")
	flags.Uint16Var(&opts.gid, "gid", 0, "group of the root directory")
	flags.BoolVar(&opts.create, "create", false, "create the device as an image file of --size blocks")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "format an in-memory device and print the result")
	return cmd
}

func openForMkfs(root *rootOptions, opts *mkfsOptions) (common.BlockDevice, error) {
	size := int64(opts.blocks) * int64(opts.blockSize)
	if opts.dryRun {
		return device.NewRamdisk(make([]byte, size), opts.blockSize)
	}
	if opts.create {
		if err := mkfs.CreateImage(root.conf.Device, size); err != nil {
			return nil, err
		}
	}
	return device.Open(root.conf.Device, opts.blockSize)
}
