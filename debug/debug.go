// Package debug renders superblocks and inode tables for humans.
package debug

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/jnwhiteh/h2fs/common"
	"github.com/jnwhiteh/h2fs/ilist"
)

var l_ifmt = []byte("?pc?d?b?-?l?s???")

// ModeString renders a mode the way ls -l does.
func ModeString(mode uint16) string {
	// Start with a default, which we overwrite
	rwx := []byte("drwxr-x--x")

	// Map the file type into a letter for display in ls -l
	rwx[0] = l_ifmt[(mode>>12)&0xF]
	if mode&common.I_TYPE == common.I_NOT_ALLOC {
		rwx[0] = '-'
	}

	perm := mode & common.RWX_MODES
	for index := 7; index >= 1; index -= 3 {
		rwx[index+0] = bit(perm&common.R_BIT != 0, 'r')
		rwx[index+1] = bit(perm&common.W_BIT != 0, 'w')
		rwx[index+2] = bit(perm&common.X_BIT != 0, 'x')
		perm >>= 3
	}

	if mode&common.I_SET_UID_BIT != 0 && mode&(common.X_BIT<<6) != 0 {
		rwx[3] = 's'
	}
	if mode&common.I_SET_GID_BIT != 0 && mode&(common.X_BIT<<3) != 0 {
		rwx[6] = 's'
	}
	if mode&common.I_SET_STCKY_BIT != 0 && mode&common.X_BIT != 0 {
		rwx[9] = 't'
	}
	return string(rwx)
}

func bit(set bool, c byte) byte {
	if set {
		return c
	}
	return '-'
}

// WriteSuper prints the fields of a superblock, one per line.
func WriteSuper(w io.Writer, sb *common.Superblock) {
	fmt.Fprintf(w, "magic         = 0x%08x\n", sb.Magic)
	fmt.Fprintf(w, "version       = %d\n", sb.Version)
	fmt.Fprintf(w, "block size    = %d\n", sb.Block_size)
	fmt.Fprintf(w, "blocks        = %d\n", sb.Nblocks)
	fmt.Fprintf(w, "inodes        = %d\n", sb.Ninodes)
	fmt.Fprintf(w, "itable start  = %d\n", sb.Itable_start)
	fmt.Fprintf(w, "itable blocks = %d\n", sb.Itable_blocks)
	fmt.Fprintf(w, "uuid          = %s\n", sb.Uuid)
}

// WriteInode prints a single inode in the same columns as WriteInodes.
func WriteInode(w io.Writer, inum int, ino common.Inode) {
	fmt.Fprintf(w, "%8d %s %6d %5d %5d %10d %s %v\n", inum, ModeString(ino.Mode), ino.Nlinks,
		ino.Uid, ino.Gid, ino.Size, time.Unix(int64(ino.Mtime), 0).UTC().Format(time.RFC3339), ino.Zone)
}

// WriteInodes prints every allocated inode of the list.
func WriteInodes(w io.Writer, list *ilist.List) error {
	fmt.Fprintf(w, "%8s %-10s %6s %5s %5s %10s %-20s %s\n",
		"INODE #", "MODE", "NLINKS", "UID", "GID", "SIZE", "MTIME", "ZONES")
	return list.Walk(func(inum int, ino common.Inode) error {
		WriteInode(w, inum, ino)
		return nil
	})
}

// PrintInodes logs the allocated inodes of the list.
func PrintInodes(logger *log.Logger, list *ilist.List) {
	buf := bytes.NewBuffer(nil)
	if err := WriteInodes(buf, list); err != nil {
		logger.Printf("Could not walk inode list: %s", err)
		return
	}
	logger.Printf("Inode table follows:\n%s", buf.String())
}
