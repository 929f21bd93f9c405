package common

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// InodeBlock is the decoded form of one inode table block.
type InodeBlock []Inode

// DecodeInodes decodes the first n inode records of an inode table block.
// Records past n are left alone.
func DecodeInodes(buf []byte, n int) (InodeBlock, error) {
	if n < 0 || n*INODE_SIZE > len(buf) {
		return nil, fmt.Errorf("%w: %d records do not fit in %d bytes", ErrCorruptInode, n, len(buf))
	}
	inodes := make(InodeBlock, n)
	if err := binary.Read(bytes.NewReader(buf[:n*INODE_SIZE]), binary.LittleEndian, inodes); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptInode, err)
	}
	return inodes, nil
}

// EncodeInodes overwrites the leading records of buf with inodes, leaving
// the bytes after them untouched.
func EncodeInodes(buf []byte, inodes InodeBlock) error {
	if len(inodes)*INODE_SIZE > len(buf) {
		return fmt.Errorf("%w: %d records do not fit in %d bytes", ErrInvalid, len(inodes), len(buf))
	}
	out := bytes.NewBuffer(make([]byte, 0, len(inodes)*INODE_SIZE))
	if err := binary.Write(out, binary.LittleEndian, []Inode(inodes)); err != nil {
		return err
	}
	copy(buf, out.Bytes())
	return nil
}
