package device

import (
	"errors"
	"os"
	"unsafe"

	"github.com/jnwhiteh/h2fs/common"
	"golang.org/x/sys/unix"
)

// deviceSize returns the addressable size of an image file or block special
// file. Block special files report a zero size through stat, so ask the
// kernel instead.
func deviceSize(file *os.File) (int64, error) {
	info, err := file.Stat()
	if err != nil {
		return 0, err
	}

	mode := info.Mode()
	if mode&os.ModeDevice != 0 && mode&os.ModeCharDevice == 0 {
		return blkGetSize64(file)
	}
	return info.Size(), nil
}

// blkGetSize64 asks the kernel for the size of a block special file. The
// ioctl stores a u64, wider than int on 32-bit platforms.
func blkGetSize64(file *os.File) (int64, error) {
	var size uint64
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, file.Fd(), unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&size)))
	if errno != 0 {
		return 0, errno
	}
	return int64(size), nil
}

// lockFile takes an exclusive advisory lock so a second process cannot
// open the same device. The lock goes away with the descriptor.
func lockFile(file *os.File) error {
	err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if errors.Is(err, unix.EWOULDBLOCK) {
		return common.ErrAlreadyOpen
	}
	return err
}
