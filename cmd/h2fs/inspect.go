package main

import (
	"fmt"
	"strconv"

	"github.com/jnwhiteh/h2fs/debug"
	"github.com/jnwhiteh/h2fs/fs"
	"github.com/spf13/cobra"
)

func newInfoCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the superblock and inode usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.withFileSystem(func(fsys *fs.FileSystem) error {
				out := cmd.OutOrStdout()
				debug.WriteSuper(out, fsys.Super)
				fmt.Fprintf(out, "free inodes   = %d of %d\n", fsys.Inodes.NumFree(), fsys.Inodes.Len())
				return nil
			})
		},
	}
}

func newLsCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List the allocated inodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.withFileSystem(func(fsys *fs.FileSystem) error {
				return debug.WriteInodes(cmd.OutOrStdout(), fsys.Inodes)
			})
		},
	}
}

func newStatCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stat INODE...",
		Short: "Show individual inodes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inums := make([]int, len(args))
			for i, arg := range args {
				inum, err := strconv.Atoi(arg)
				if err != nil {
					return fmt.Errorf("bad inode number %q", arg)
				}
				inums[i] = inum
			}

			return root.withFileSystem(func(fsys *fs.FileSystem) error {
				for _, inum := range inums {
					ino, err := fsys.Inodes.Lookup(inum)
					if err != nil {
						return err
					}
					debug.WriteInode(cmd.OutOrStdout(), inum, ino)
				}
				return nil
			})
		},
	}
}
