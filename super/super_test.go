package super_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/google/uuid"
	"github.com/jnwhiteh/h2fs/common"
	"github.com/jnwhiteh/h2fs/device"
	"github.com/jnwhiteh/h2fs/super"
	"github.com/jnwhiteh/h2fs/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSuper() *common.Superblock {
	return &common.Superblock{
		Magic:         common.SUPER_MAGIC,
		Version:       common.SUPER_VERSION,
		Block_size:    512,
		Nblocks:       4,
		Ninodes:       16,
		Itable_start:  1,
		Itable_blocks: 1,
	}
}

func TestRoundTrip(t *testing.T) {
	id := uuid.MustParse("0b5a4f0e-2c55-4d6e-9a52-7d7c4e1f6a01")
	for _, bsize := range []uint32{512, 1024, 4096, 65536} {
		for _, geom := range [][3]uint32{{2, 1, 1}, {100, 1, 10}, {1 << 20, 7, 100}, {50, 49, 1}} {
			sb := &common.Superblock{
				Magic:         common.SUPER_MAGIC,
				Version:       common.SUPER_VERSION,
				Block_size:    bsize,
				Nblocks:       geom[0],
				Itable_start:  geom[1],
				Itable_blocks: geom[2],
				Ninodes:       geom[2] * bsize / common.INODE_SIZE,
				Uuid:          id,
			}
			require.NoError(t, super.Validate(sb))

			block, err := super.Encode(sb, int(bsize))
			require.NoError(t, err)
			assert.Len(t, block, int(bsize))
			assert.Equal(t, make([]byte, int(bsize)-common.SUPER_SIZE), block[common.SUPER_SIZE:],
				"reserved area is zeroed")

			decoded, err := super.Decode(block)
			require.NoError(t, err)
			assert.Equal(t, sb, decoded)
		}
	}
}

func TestByteOrder(t *testing.T) {
	sb := validSuper()
	block, err := super.Encode(sb, 512)
	require.NoError(t, err)

	assert.Equal(t, []byte("H2FS"), block[0:4])
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(block[4:8]))
	assert.Equal(t, []byte{0x00, 0x02, 0x00, 0x00}, block[8:12])
	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(block[12:16]))
	assert.Equal(t, uint32(16), binary.LittleEndian.Uint32(block[16:20]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(block[20:24]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(block[24:28]))
}

func TestDecodeShort(t *testing.T) {
	_, err := super.Decode(make([]byte, 20))
	assert.ErrorIs(t, err, common.ErrCorruptSuperblock)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(sb *common.Superblock)
		err    error
	}{
		{"bad magic", func(sb *common.Superblock) { sb.Magic = 0x4d5a }, common.ErrBadMagic},
		{"bad version", func(sb *common.Superblock) { sb.Version = 2 }, common.ErrBadMagic},
		{"block size not a power of two", func(sb *common.Superblock) { sb.Block_size = 768 }, common.ErrCorruptSuperblock},
		{"block size too small", func(sb *common.Superblock) { sb.Block_size = 256 }, common.ErrCorruptSuperblock},
		{"no blocks", func(sb *common.Superblock) { sb.Nblocks = 0 }, common.ErrCorruptSuperblock},
		{"table over super block", func(sb *common.Superblock) { sb.Itable_start = 0 }, common.ErrCorruptSuperblock},
		{"table past the end", func(sb *common.Superblock) { sb.Itable_start = 3; sb.Itable_blocks = 2 }, common.ErrCorruptSuperblock},
		{"table overflows", func(sb *common.Superblock) { sb.Itable_start = 0xffffffff; sb.Itable_blocks = 2 }, common.ErrCorruptSuperblock},
		{"too many inodes", func(sb *common.Superblock) { sb.Ninodes = 17 }, common.ErrCorruptSuperblock},
	}

	require.NoError(t, super.Validate(validSuper()))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sb := validSuper()
			tt.modify(sb)
			assert.ErrorIs(t, super.Validate(sb), tt.err)
		})
	}
}

func TestReadWrite(t *testing.T) {
	dev := testutils.NewTestDevice(t, 512, 4)
	sb := validSuper()
	require.NoError(t, super.Write(dev, sb))

	// block 1 is untouched
	assert.Equal(t, bytes.Repeat([]byte{1}, 512), dev.Bytes()[512:1024])

	read, err := super.Read(dev)
	require.NoError(t, err)
	assert.Equal(t, sb, read)
}

func TestReadBadMagic(t *testing.T) {
	// every byte of block 0 is zero
	dev := testutils.NewTestDevice(t, 512, 4)
	_, err := super.Read(dev)
	assert.ErrorIs(t, err, common.ErrBadMagic)
}

func TestReadCorrupt(t *testing.T) {
	dev := testutils.NewTestDevice(t, 512, 4)
	sb := validSuper()
	sb.Itable_blocks = 4
	block, err := super.Encode(sb, 512)
	require.NoError(t, err)
	require.NoError(t, dev.WriteBlock(0, block))

	_, err = super.Read(dev)
	assert.ErrorIs(t, err, common.ErrCorruptSuperblock)
}

func TestReadDeviceError(t *testing.T) {
	dev, err := device.NewRamdisk(make([]byte, 512), 512)
	require.NoError(t, err)
	require.NoError(t, dev.Close())

	_, err = super.Read(dev)
	assert.ErrorIs(t, err, common.ErrDeviceClosed)
}

func TestWriteBlockSizeMismatch(t *testing.T) {
	dev := testutils.NewTestDevice(t, 1024, 4)
	assert.ErrorIs(t, super.Write(dev, validSuper()), common.ErrBlockSize)
}

func TestFormat(t *testing.T) {
	sb, err := super.Format(1000, 0, 1024)
	require.NoError(t, err)
	assert.Equal(t, uint32(1024), sb.Block_size)
	assert.Equal(t, uint32(1000), sb.Nblocks)
	assert.Equal(t, uint32(1), sb.Itable_start)
	// 1000KB at one inode per 4KB is 250, rounded up to 32 per block
	assert.Equal(t, uint32(256), sb.Ninodes)
	assert.Equal(t, uint32(8), sb.Itable_blocks)
	assert.NotEqual(t, uuid.Nil, sb.Uuid)

	sb, err = super.Format(4, 16, 512)
	require.NoError(t, err)
	assert.Equal(t, uint32(16), sb.Ninodes)
	assert.Equal(t, uint32(1), sb.Itable_blocks)

	_, err = super.Format(1000, 0, 1000)
	assert.ErrorIs(t, err, common.ErrBlockSize)

	_, err = super.Format(1, 16, 512)
	assert.ErrorIs(t, err, common.ErrInvalid)

	_, err = super.Format(2, 100, 512)
	assert.ErrorIs(t, err, common.ErrInvalid)
}
