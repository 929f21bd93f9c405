// This command brings an h2fs filesystem up from a block device and tears it
// down again. Subcommands format, inspect and list the filesystem.
package main

import (
	"log"
	"os"

	"github.com/jnwhiteh/h2fs/config"
	"github.com/jnwhiteh/h2fs/debug"
	"github.com/jnwhiteh/h2fs/fs"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var logger = log.New(os.Stderr, "h2fs: ", 0)

type rootOptions struct {
	configPath string
	device     string
	debug      bool

	conf config.Config
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logger.Printf("%s", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := new(rootOptions)

	cmd := &cobra.Command{
		Use:           "h2fs",
		Short:         "Mount and inspect h2fs filesystems",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMount(opts)
		},
	}

	addGlobalFlags(cmd.PersistentFlags(), opts)

	cmd.AddCommand(newMkfsCommand(opts))
	cmd.AddCommand(newInfoCommand(opts))
	cmd.AddCommand(newLsCommand(opts))
	cmd.AddCommand(newStatCommand(opts))
	return cmd
}

func addGlobalFlags(flags *pflag.FlagSet, opts *rootOptions) {
	flags.StringVarP(&opts.configPath, "config", "c", "", "configuration file (.yaml or .jsonc)")
	flags.StringVarP(&opts.device, "device", "d", "", "the block device or disk image")
	flags.BoolVar(&opts.debug, "debug", false, "log debugging output")
}

// load reads the configuration file and environment, then applies any
// flags given on the command line.
func (opts *rootOptions) load(cmd *cobra.Command) error {
	conf, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if changed(cmd, "device") {
		conf.Device = opts.device
	}
	if changed(cmd, "debug") {
		conf.Debug = opts.debug
	}
	if err := conf.Validate(); err != nil {
		return err
	}

	opts.conf = conf
	if conf.Debug {
		logger.SetFlags(log.LstdFlags | log.Lshortfile)
	}
	return nil
}

func changed(cmd *cobra.Command, name string) bool {
	flag := cmd.Flag(name)
	return flag != nil && flag.Changed
}

// withFileSystem mounts the configured device, runs fn and unmounts it.
func (opts *rootOptions) withFileSystem(fn func(*fs.FileSystem) error) error {
	fsys, err := fs.OpenFileSystemFile(opts.conf.Device)
	if err != nil {
		return err
	}
	if opts.conf.Debug {
		logger.Printf("mounted %s: %d inodes, %d byte blocks",
			opts.conf.Device, fsys.Super.Ninodes, fsys.Super.Block_size)
	}

	err = fn(fsys)
	if serr := fsys.Shutdown(); err == nil {
		err = serr
	}
	return err
}

// runMount performs the plain bring-up and teardown of the filesystem.
func runMount(opts *rootOptions) error {
	return opts.withFileSystem(func(fsys *fs.FileSystem) error {
		if opts.conf.Debug {
			debug.PrintInodes(logger, fsys.Inodes)
		}
		return nil
	})
}
