// Package ilist builds and owns the in-memory inode list decoded from the
// on-disk inode table.
//
// Inodes are numbered from 0 and inode 0 is the root directory for the whole
// life of the list. The table is materialized eagerly: Init reads and checks
// every record, so a corrupt inode is reported by Init and never by Lookup.
// A List does no locking of its own; callers sharing one across goroutines
// must serialize access.
package ilist

import (
	"fmt"
	"time"

	"github.com/jnwhiteh/h2fs/common"
	"github.com/jnwhiteh/h2fs/super"
)

type State int

const (
	Uninitialized State = iota
	Initializing
	Ready
	Released
)

var stateNames = []string{"uninitialized", "initializing", "ready", "released"}

func (s State) String() string {
	if s < Uninitialized || s > Released {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// List is the in-memory inode table. The device is borrowed, not owned:
// Cleanup never closes it.
type List struct {
	dev common.BlockDevice
	sb  common.Superblock

	inodes []common.Inode // arena indexed by inode number
	dirty  []bool         // per inode table block, needs writing
	search int            // start searching for unallocated inodes here
	state  State
}

// Init reads the inode table described by sb from dev. The superblock is
// validated before any block is read. On failure no list is returned.
func Init(sb *common.Superblock, dev common.BlockDevice) (*List, error) {
	if err := super.Validate(sb); err != nil {
		return nil, err
	}
	if dev.BlockSize() != int(sb.Block_size) {
		return nil, fmt.Errorf("%w: device uses %d byte blocks, super block %d",
			common.ErrBlockSize, dev.BlockSize(), sb.Block_size)
	}

	list := &List{
		dev:    dev,
		sb:     *sb,
		inodes: make([]common.Inode, 0, sb.Ninodes),
		dirty:  make([]bool, sb.Itable_blocks),
		search: common.ROOT_INODE_NUM + 1,
		state:  Initializing,
	}

	if err := list.load(); err != nil {
		list.inodes = nil
		list.dirty = nil
		return nil, err
	}

	list.state = Ready
	return list, nil
}

func (l *List) load() error {
	ninodes := int(l.sb.Ninodes)
	perBlock := l.sb.InodesPerBlock()
	buf := make([]byte, l.sb.Block_size)

	for b := 0; len(l.inodes) < ninodes; b++ {
		bnum := int(l.sb.Itable_start) + b
		if err := l.dev.ReadBlock(bnum, buf); err != nil {
			return fmt.Errorf("inode table block %d: %w", bnum, err)
		}

		// The last block may be partially used; records past the inode
		// count are not inodes.
		n := min(perBlock, ninodes-len(l.inodes))
		records, err := common.DecodeInodes(buf, n)
		if err != nil {
			return fmt.Errorf("inode table block %d: %w", bnum, err)
		}

		for i := range records {
			if err := l.check(len(l.inodes)+i, &records[i]); err != nil {
				return err
			}
		}
		l.inodes = append(l.inodes, records...)
	}
	return nil
}

// check rejects records whose fields contradict each other.
func (l *List) check(inum int, ino *common.Inode) error {
	if !common.KnownType(ino.Mode) {
		return fmt.Errorf("%w: inode %d has unknown type 0%06o", common.ErrCorruptInode, inum, ino.Type())
	}

	if ino.IsFree() {
		if ino.Nlinks != 0 || ino.Size != 0 || ino.Zone != [common.NR_ZONES]uint32{} {
			return fmt.Errorf("%w: free inode %d has links, size or zones", common.ErrCorruptInode, inum)
		}
		return nil
	}

	if inum == common.ROOT_INODE_NUM && !ino.IsDir() {
		return fmt.Errorf("%w: root inode is not a directory (mode 0%06o)", common.ErrCorruptInode, ino.Mode)
	}

	switch ino.Type() {
	case common.I_CHAR_SPECIAL, common.I_BLOCK_SPECIAL:
		if ino.Size != 0 {
			return fmt.Errorf("%w: special inode %d has size %d", common.ErrCorruptInode, inum, ino.Size)
		}
	default:
		for i, z := range ino.Zone {
			if z != common.NO_ZONE && z >= l.sb.Nblocks {
				return fmt.Errorf("%w: inode %d zone %d points at block %d of %d",
					common.ErrCorruptInode, inum, i, z, l.sb.Nblocks)
			}
		}
	}
	return nil
}

func (l *List) ready() error {
	switch l.state {
	case Ready:
		return nil
	case Released:
		return common.ErrUseAfterRelease
	}
	return fmt.Errorf("%w: %s", common.ErrNotReady, l.state)
}

func (l *List) inRange(inum int) error {
	if inum < 0 || inum >= len(l.inodes) {
		return fmt.Errorf("inode %d: %w", inum, common.ErrNotFound)
	}
	return nil
}

// Lookup returns a copy of the given inode.
func (l *List) Lookup(inum int) (common.Inode, error) {
	if err := l.ready(); err != nil {
		return common.Inode{}, err
	}
	if err := l.inRange(inum); err != nil {
		return common.Inode{}, err
	}
	return l.inodes[inum], nil
}

// Alloc claims a free inode, gives it the requested mode and returns its
// number. The root inode is never handed out.
func (l *List) Alloc(mode uint16) (int, error) {
	if err := l.ready(); err != nil {
		return common.NO_INODE, err
	}
	if mode&common.I_TYPE == common.I_NOT_ALLOC || !common.KnownType(mode) {
		return common.NO_INODE, fmt.Errorf("%w: mode 0%06o", common.ErrInvalid, mode)
	}

	n := len(l.inodes)
	origin := l.search
	if origin <= common.ROOT_INODE_NUM || origin >= n {
		origin = common.ROOT_INODE_NUM + 1 // for robustness
	}

	for i := 0; i < n-1; i++ {
		inum := origin + i
		if inum >= n {
			inum = inum - n + common.ROOT_INODE_NUM + 1
		}
		if !l.inodes[inum].IsFree() {
			continue
		}

		l.inodes[inum] = common.Inode{
			Mode:  mode,
			Mtime: uint32(time.Now().Unix()),
		}
		l.markDirty(inum)
		l.search = inum // next time start here
		return inum, nil
	}
	return common.NO_INODE, common.ErrNoFreeInodes
}

// Free returns an inode to the pool of free inodes.
func (l *List) Free(inum int) error {
	if err := l.ready(); err != nil {
		return err
	}
	if err := l.inRange(inum); err != nil {
		return err
	}
	if inum == common.ROOT_INODE_NUM {
		return fmt.Errorf("%w: cannot free the root inode", common.ErrInvalid)
	}
	if l.inodes[inum].IsFree() {
		return fmt.Errorf("%w: tried to free unused inode %d", common.ErrInvalid, inum)
	}

	l.inodes[inum] = common.Inode{}
	l.markDirty(inum)
	if inum < l.search {
		l.search = inum
	}
	return nil
}

// Update replaces an allocated inode. The new record must pass the same
// checks Init applies to records on disk.
func (l *List) Update(inum int, ino common.Inode) error {
	if err := l.ready(); err != nil {
		return err
	}
	if err := l.inRange(inum); err != nil {
		return err
	}
	if l.inodes[inum].IsFree() || ino.IsFree() {
		return fmt.Errorf("%w: inode %d: use Alloc and Free to change allocation", common.ErrInvalid, inum)
	}
	if err := l.check(inum, &ino); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalid, err)
	}

	l.inodes[inum] = ino
	l.markDirty(inum)
	return nil
}

func (l *List) markDirty(inum int) {
	l.dirty[inum/l.sb.InodesPerBlock()] = true
}

// Sync writes every dirty inode table block back to the device. Records
// past the inode count in the last block are preserved.
func (l *List) Sync() error {
	if err := l.ready(); err != nil {
		return err
	}

	perBlock := l.sb.InodesPerBlock()
	buf := make([]byte, l.sb.Block_size)

	for b, dirty := range l.dirty {
		if !dirty {
			continue
		}
		bnum := int(l.sb.Itable_start) + b
		if err := l.dev.ReadBlock(bnum, buf); err != nil {
			return fmt.Errorf("inode table block %d: %w", bnum, err)
		}

		first := b * perBlock
		last := min(first+perBlock, len(l.inodes))
		if err := common.EncodeInodes(buf, l.inodes[first:last]); err != nil {
			return err
		}
		if err := l.dev.WriteBlock(bnum, buf); err != nil {
			return fmt.Errorf("inode table block %d: %w", bnum, err)
		}
		l.dirty[b] = false
	}
	return nil
}

// Walk calls fn for each allocated inode in inode number order, stopping at
// the first error.
func (l *List) Walk(fn func(inum int, ino common.Inode) error) error {
	if err := l.ready(); err != nil {
		return err
	}
	for inum, ino := range l.inodes {
		if ino.IsFree() {
			continue
		}
		if err := fn(inum, ino); err != nil {
			return err
		}
	}
	return nil
}

// Dirty reports whether any inode has changed since the last Sync.
func (l *List) Dirty() bool {
	for _, d := range l.dirty {
		if d {
			return true
		}
	}
	return false
}

func (l *List) Len() int {
	return len(l.inodes)
}

// NumFree returns the number of unallocated inodes.
func (l *List) NumFree() int {
	free := 0
	for _, ino := range l.inodes {
		if ino.IsFree() {
			free++
		}
	}
	return free
}

func (l *List) State() State {
	return l.state
}

// Superblock returns the geometry the list was built from.
func (l *List) Superblock() common.Superblock {
	return l.sb
}

// Cleanup releases the memory held by the list. Unsynced changes are
// discarded and the device stays open. Calling Cleanup on a released list
// does nothing; every other operation on it fails with ErrUseAfterRelease.
func (l *List) Cleanup() {
	if l.state == Released {
		return
	}
	l.inodes = nil
	l.dirty = nil
	l.dev = nil
	l.state = Released
}
