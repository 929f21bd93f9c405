package common

import "errors"

// Error classes. Every sentinel below belongs to exactly one of these, so
// callers can test either the class or the precise kind with errors.Is.
var (
	ErrDevice = errors.New("device error")
	ErrFormat = errors.New("format error")
	ErrUsage  = errors.New("usage error")
)

// Error is a sentinel error tagged with its class.
type Error struct {
	Class error
	Msg   string
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Is(target error) bool {
	return target == e.Class
}

func deviceError(msg string) *Error { return &Error{ErrDevice, msg} }
func formatError(msg string) *Error { return &Error{ErrFormat, msg} }
func usageError(msg string) *Error { return &Error{ErrUsage, msg} }

// Block device failures
var (
	ErrDeviceNotFound   = deviceError("device not found")
	ErrPermissionDenied = deviceError("permission denied")
	ErrAlreadyOpen      = deviceError("device already open")
	ErrDeviceClosed     = deviceError("device closed")
	ErrOutOfRange       = deviceError("block out of range")
	ErrShortRead        = deviceError("short read")
	ErrShortWrite       = deviceError("short write")
	ErrIO               = deviceError("i/o error")
	ErrBlockSize        = deviceError("invalid block size")
)

// On-disk format failures
var (
	ErrBadMagic          = formatError("bad magic number in super block")
	ErrCorruptSuperblock = formatError("corrupt super block")
	ErrCorruptInode      = formatError("corrupt inode")
)

// Misuse of the inode list
var (
	ErrNotFound        = usageError("no such inode")
	ErrUseAfterRelease = usageError("inode list used after release")
	ErrNoFreeInodes    = usageError("out of inodes on device")
	ErrInvalid         = usageError("invalid argument")
	ErrNotReady        = usageError("inode list not ready")
)
