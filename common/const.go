package common

const (
	SUPER_MAGIC   = 0x53463248 // "H2FS" as stored on disk
	SUPER_VERSION = 1          // the only on-disk format we understand

	SUPER_BLOCK     = 0  // block number of the superblock
	SUPER_SIZE      = 44 // bytes of block 0 that carry superblock fields
	INODE_SIZE      = 32 // the size of an inode in bytes
	NR_ZONES        = 4  // number of zone numbers in an inode
	ROOT_INODE_NUM  = 0  // the root inode number
	DEFAULT_DEVICE  = "/dev/loop0"
	MIN_BLOCK_SIZE  = 512
	MAX_BLOCK_SIZE  = 65536
	SECTOR_SIZE     = 512
	DEFAULT_BLKSIZE = 4096 // block size used by mkfs when none is given

	NO_INODE = -1
	NO_ZONE  = 0

	I_TYPE          = 0170000 // bit mask for type of inode
	I_UNIX_SOCKET   = 0140000 // unix domain socket
	I_SYMBOLIC_LINK = 0120000 // file is a symbolic link
	I_REGULAR       = 0100000 // regular file, not dir or special
	I_BLOCK_SPECIAL = 0060000 // block special file
	I_DIRECTORY     = 0040000 // file is a directory
	I_CHAR_SPECIAL  = 0020000 // character special file
	I_NAMED_PIPE    = 0010000 // named pipe (FIFO)
	I_SET_UID_BIT   = 0004000 // set effective uid_t on exec
	I_SET_GID_BIT   = 0002000 // set effective gid_t on exec
	I_SET_STCKY_BIT = 0001000 // sticky bit
	I_NOT_ALLOC     = 0000000 // this inode is free

	ALL_MODES = 0007777 // all bits for user, group and others
	RWX_MODES = 0000777 // mode bits for RWX only

	R_BIT = 0000004 // Rwx protection bit
	W_BIT = 0000002 // rWx protection bit
	X_BIT = 0000001 // rwX protection bit
)
