package device

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jnwhiteh/h2fs/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const maxInt = int(^uint(0) >> 1)

// makeImage creates an image file of the given number of blocks, where each
// byte of a block holds the block number.
func makeImage(t *testing.T, bsize, blocks int) string {
	t.Helper()
	data := make([]byte, bsize*blocks)
	for i := range data {
		data[i] = byte(i / bsize)
	}
	path := filepath.Join(t.TempDir(), "disk.img")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestOpenNotFound(t *testing.T) {
	reg := new(Registry)
	_, err := reg.Open(filepath.Join(t.TempDir(), "missing.img"), 512)
	assert.ErrorIs(t, err, common.ErrDeviceNotFound)
	assert.ErrorIs(t, err, common.ErrDevice)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenPermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits do not apply to root")
	}
	path := makeImage(t, 512, 4)
	require.NoError(t, os.Chmod(path, 0400))

	_, err := new(Registry).Open(path, 512)
	assert.ErrorIs(t, err, common.ErrPermissionDenied)
}

func TestOpenBadBlockSize(t *testing.T) {
	path := makeImage(t, 512, 4)
	_, err := new(Registry).Open(path, 1000)
	assert.ErrorIs(t, err, common.ErrBlockSize)
}

func TestAlreadyOpen(t *testing.T) {
	reg := new(Registry)
	first := makeImage(t, 512, 4)
	second := makeImage(t, 512, 4)

	dev, err := reg.Open(first, 512)
	require.NoError(t, err)

	_, err = reg.Open(second, 512)
	assert.ErrorIs(t, err, common.ErrAlreadyOpen)

	// Once closed, the registry accepts a new device
	require.NoError(t, dev.Close())
	dev, err = reg.Open(second, 512)
	require.NoError(t, err)
	require.NoError(t, dev.Close())
}

func TestAlreadyOpenLocked(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("device locking is only implemented on linux")
	}
	path := makeImage(t, 512, 4)

	dev, err := new(Registry).Open(path, 512)
	require.NoError(t, err)
	defer dev.Close()

	_, err = new(Registry).Open(path, 512)
	assert.ErrorIs(t, err, common.ErrAlreadyOpen)
}

func TestReadWriteBlocks(t *testing.T) {
	dev, err := new(Registry).Open(makeImage(t, 512, 8), 512)
	require.NoError(t, err)
	defer dev.Close()

	assert.Equal(t, int64(512*8), dev.Size())
	assert.Equal(t, 512, dev.BlockSize())

	buf := make([]byte, 512)
	require.NoError(t, dev.ReadBlock(3, buf))
	assert.Equal(t, bytes.Repeat([]byte{3}, 512), buf)

	// partial block reads start at the block boundary
	small := make([]byte, 10)
	require.NoError(t, dev.ReadBlock(5, small))
	assert.Equal(t, bytes.Repeat([]byte{5}, 10), small)

	data := bytes.Repeat([]byte{0xee}, 512)
	require.NoError(t, dev.WriteBlock(7, data))
	require.NoError(t, dev.Sync())
	require.NoError(t, dev.ReadBlock(7, buf))
	assert.Equal(t, data, buf)
}

func TestSetBlockSize(t *testing.T) {
	dev, err := new(Registry).Open(makeImage(t, 512, 8), 512)
	require.NoError(t, err)
	defer dev.Close()

	require.NoError(t, dev.SetBlockSize(1024))
	buf := make([]byte, 1024)
	require.NoError(t, dev.ReadBlock(1, buf))
	assert.Equal(t, bytes.Repeat([]byte{2}, 512), buf[:512])
	assert.Equal(t, bytes.Repeat([]byte{3}, 512), buf[512:])

	assert.ErrorIs(t, dev.SetBlockSize(100), common.ErrBlockSize)
	assert.Equal(t, 1024, dev.BlockSize())
}

func TestOutOfRange(t *testing.T) {
	dev, err := new(Registry).Open(makeImage(t, 512, 4), 512)
	require.NoError(t, err)
	defer dev.Close()

	buf := make([]byte, 512)
	assert.ErrorIs(t, dev.ReadBlock(4, buf), common.ErrOutOfRange)
	assert.ErrorIs(t, dev.ReadBlock(-1, buf), common.ErrOutOfRange)
	assert.ErrorIs(t, dev.WriteBlock(4, buf), common.ErrOutOfRange)

	// a buffer that runs off the end of the device
	assert.ErrorIs(t, dev.ReadBlock(3, make([]byte, 513)), common.ErrOutOfRange)
	assert.ErrorIs(t, dev.ReadBlock(0, make([]byte, 4096)), common.ErrOutOfRange)

	// block numbers whose byte offset does not fit in an int64
	for _, bnum := range []int{maxInt / 512, maxInt/256 + 3, maxInt} {
		assert.ErrorIs(t, dev.ReadBlock(bnum, buf), common.ErrOutOfRange, "block %d", bnum)
		assert.ErrorIs(t, dev.WriteBlock(bnum, buf), common.ErrOutOfRange, "block %d", bnum)
	}
}

func TestBlockOffset(t *testing.T) {
	var tests = []struct {
		bnum, bsize, n int
		size           int64
		pos            int64
		ok             bool
	}{
		{0, 512, 512, 2048, 0, true},
		{3, 512, 512, 2048, 1536, true},
		{3, 512, 44, 2048, 1536, true},
		{4, 512, 512, 2048, 0, false},
		{3, 512, 513, 2048, 0, false},
		{0, 512, 4096, 2048, 0, false},
		{-1, 512, 512, 2048, 0, false},
		{maxInt / 256, 512, 512, 2048, 0, false},
		{maxInt / 4, 65536, 512, 1 << 40, 0, false},
		{maxInt, 512, 512, 2048, 0, false},
	}

	for _, tt := range tests {
		pos, err := blockOffset(tt.bnum, tt.bsize, tt.n, tt.size)
		if !tt.ok {
			assert.ErrorIs(t, err, common.ErrOutOfRange, "block %d", tt.bnum)
			continue
		}
		if assert.NoError(t, err, "block %d", tt.bnum) {
			assert.Equal(t, tt.pos, pos)
		}
	}
}

func TestShortRead(t *testing.T) {
	path := makeImage(t, 512, 4)
	dev, err := new(Registry).Open(path, 512)
	require.NoError(t, err)
	defer dev.Close()

	// The image shrinks underneath the open device
	require.NoError(t, os.Truncate(path, 512*3+100))
	err = dev.ReadBlock(3, make([]byte, 512))
	assert.ErrorIs(t, err, common.ErrShortRead)
}

func TestClosed(t *testing.T) {
	dev, err := new(Registry).Open(makeImage(t, 512, 4), 512)
	require.NoError(t, err)
	require.NoError(t, dev.Close())

	buf := make([]byte, 512)
	assert.ErrorIs(t, dev.ReadBlock(0, buf), common.ErrDeviceClosed)
	assert.ErrorIs(t, dev.WriteBlock(0, buf), common.ErrDeviceClosed)
	assert.ErrorIs(t, dev.Sync(), common.ErrDeviceClosed)
	assert.ErrorIs(t, dev.SetBlockSize(1024), common.ErrDeviceClosed)
	assert.ErrorIs(t, dev.Close(), common.ErrDeviceClosed)
}
