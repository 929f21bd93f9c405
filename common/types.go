package common

import "github.com/google/uuid"

// A superblock as stored on disk, in little-endian byte order at offset 0 of
// block 0. The rest of the block is reserved and written as zeroes.
type Superblock struct {
	Magic         uint32    // magic number to recognize super-blocks
	Version       uint32    // on-disk format version
	Block_size    uint32    // block size in bytes
	Nblocks       uint32    // total device size in blocks
	Ninodes       uint32    // number of inodes in the inode table
	Itable_start  uint32    // first block of the inode table
	Itable_blocks uint32    // number of blocks in the inode table
	Uuid          uuid.UUID // filesystem identity, zero if never set
}

// InodesPerBlock returns the number of inode records in one table block.
func (sb *Superblock) InodesPerBlock() int {
	return int(sb.Block_size) / INODE_SIZE
}

// An inode as stored on disk
type Inode struct {
	Mode   uint16 // file type, protection, etc.
	Nlinks uint16 // how many links to this file
	Uid    uint16 // user id of the file's owner
	Gid    uint16 // group number
	Size   uint32 // current file size in bytes
	Mtime  uint32 // when was file data last changed
	Zone   [NR_ZONES]uint32
}

func (ino *Inode) Type() uint16 {
	return ino.Mode & I_TYPE
}

func (ino *Inode) IsFree() bool {
	return ino.Type() == I_NOT_ALLOC
}

func (ino *Inode) IsDir() bool {
	return ino.Type() == I_DIRECTORY
}

// KnownType reports whether the type bits of mode name one of the inode
// kinds this filesystem stores.
func KnownType(mode uint16) bool {
	switch mode & I_TYPE {
	case I_NOT_ALLOC, I_NAMED_PIPE, I_CHAR_SPECIAL, I_DIRECTORY,
		I_BLOCK_SPECIAL, I_REGULAR, I_SYMBOLIC_LINK, I_UNIX_SOCKET:
		return true
	}
	return false
}

// BlockDevice is a random access device addressed in fixed-size blocks.
// Block numbers are translated to byte offsets using BlockSize only.
type BlockDevice interface {
	ReadBlock(bnum int, buf []byte) error
	WriteBlock(bnum int, buf []byte) error
	BlockSize() int
	SetBlockSize(size int) error
	Size() int64
	Sync() error
	Close() error
}

// ValidBlockSize reports whether size is a power of two in the supported
// range.
func ValidBlockSize(size int) bool {
	return size >= MIN_BLOCK_SIZE && size <= MAX_BLOCK_SIZE && size&(size-1) == 0
}
