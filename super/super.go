// Package super reads, writes and validates the superblock stored at the
// start of block 0.
//
// Layout (little-endian, offsets in bytes):
//
//	0  magic               4
//	4  version             4
//	8  block_size          4
//	12 total_blocks        4
//	16 inode_count         4
//	20 inode_table_start   4
//	24 inode_table_blocks  4
//	28 uuid               16
//	44 reserved, zero to the end of the block
package super

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"github.com/jnwhiteh/h2fs/common"
)

// Decode transforms the leading bytes of block 0 into a superblock. It does
// not validate the result.
func Decode(buf []byte) (*common.Superblock, error) {
	if len(buf) < common.SUPER_SIZE {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", common.ErrCorruptSuperblock, common.SUPER_SIZE, len(buf))
	}
	sb := new(common.Superblock)
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, sb); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrCorruptSuperblock, err)
	}
	return sb, nil
}

// Encode lays the superblock out in a zeroed buffer of blockSize bytes.
func Encode(sb *common.Superblock, blockSize int) ([]byte, error) {
	if blockSize < common.SUPER_SIZE {
		return nil, fmt.Errorf("%w: %d", common.ErrBlockSize, blockSize)
	}
	buf := bytes.NewBuffer(make([]byte, 0, blockSize))
	if err := binary.Write(buf, binary.LittleEndian, sb); err != nil {
		return nil, err
	}
	block := make([]byte, blockSize)
	copy(block, buf.Bytes())
	return block, nil
}

// Validate checks the magic number and the geometry described by sb.
func Validate(sb *common.Superblock) error {
	if sb.Magic != common.SUPER_MAGIC {
		return fmt.Errorf("%w: 0x%08x", common.ErrBadMagic, sb.Magic)
	}
	if sb.Version != common.SUPER_VERSION {
		return fmt.Errorf("%w: unsupported version %d", common.ErrBadMagic, sb.Version)
	}
	if !common.ValidBlockSize(int(sb.Block_size)) {
		return fmt.Errorf("%w: block size %d", common.ErrCorruptSuperblock, sb.Block_size)
	}
	if sb.Nblocks == 0 {
		return fmt.Errorf("%w: no blocks", common.ErrCorruptSuperblock)
	}
	if sb.Itable_start <= common.SUPER_BLOCK {
		return fmt.Errorf("%w: inode table at block %d overlaps the super block",
			common.ErrCorruptSuperblock, sb.Itable_start)
	}

	end := uint64(sb.Itable_start) + uint64(sb.Itable_blocks)
	if end > uint64(sb.Nblocks) {
		return fmt.Errorf("%w: inode table [%d, %d) extends past the last block %d",
			common.ErrCorruptSuperblock, sb.Itable_start, end, sb.Nblocks)
	}

	capacity := uint64(sb.Itable_blocks) * uint64(sb.InodesPerBlock())
	if uint64(sb.Ninodes) > capacity {
		return fmt.Errorf("%w: %d inodes do not fit in %d table blocks",
			common.ErrCorruptSuperblock, sb.Ninodes, sb.Itable_blocks)
	}
	return nil
}

// Read the superblock from block 0 of the device
func Read(dev common.BlockDevice) (*common.Superblock, error) {
	buf := make([]byte, common.SUPER_SIZE)
	if err := dev.ReadBlock(common.SUPER_BLOCK, buf); err != nil {
		return nil, err
	}

	sb, err := Decode(buf)
	if err != nil {
		return nil, err
	}
	if err := Validate(sb); err != nil {
		return nil, err
	}
	return sb, nil
}

// Write the superblock to block 0, padding the rest of the block with
// zeroes. The device block size must match the superblock.
func Write(dev common.BlockDevice, sb *common.Superblock) error {
	if dev.BlockSize() != int(sb.Block_size) {
		return fmt.Errorf("%w: device uses %d byte blocks, super block %d",
			common.ErrBlockSize, dev.BlockSize(), sb.Block_size)
	}
	block, err := Encode(sb, int(sb.Block_size))
	if err != nil {
		return err
	}
	return dev.WriteBlock(common.SUPER_BLOCK, block)
}

// Creates a new superblock data structure based on specified parameters. A
// zero inode count picks one inode for every 4KB of space, rounded up to
// fill the last inode table block.
func Format(blocks, inodes, blockSize int) (*common.Superblock, error) {
	if !common.ValidBlockSize(blockSize) {
		return nil, fmt.Errorf("%w: block size must be a power of two between %d and %d",
			common.ErrBlockSize, common.MIN_BLOCK_SIZE, common.MAX_BLOCK_SIZE)
	}
	if blocks < 2 {
		return nil, fmt.Errorf("%w: need at least 2 blocks, got %d", common.ErrInvalid, blocks)
	}

	inodesPerBlock := blockSize / common.INODE_SIZE

	// Check to see if inode count is automatic (0) and adjust accordingly
	if inodes == 0 {
		kb := (blocks * blockSize) / 1024
		inodes = kb / 4

		// round up to fill inode block
		inodes = inodes + inodesPerBlock - 1
		inodes = inodes / inodesPerBlock * inodesPerBlock
	}
	if inodes < 1 {
		return nil, fmt.Errorf("%w: inode count is too small", common.ErrInvalid)
	}

	itableBlocks := (inodes + inodesPerBlock - 1) / inodesPerBlock
	if 1+itableBlocks > blocks {
		return nil, fmt.Errorf("%w: %d inodes need %d table blocks, device has %d blocks",
			common.ErrInvalid, inodes, itableBlocks, blocks)
	}

	sb := &common.Superblock{
		Magic:         common.SUPER_MAGIC,
		Version:       common.SUPER_VERSION,
		Block_size:    uint32(blockSize),
		Nblocks:       uint32(blocks),
		Ninodes:       uint32(inodes),
		Itable_start:  common.SUPER_BLOCK + 1,
		Itable_blocks: uint32(itableBlocks),
		Uuid:          uuid.New(),
	}
	if err := Validate(sb); err != nil {
		return nil, err
	}
	return sb, nil
}
