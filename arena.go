// This file manages the scratch memory that parsed on-disk data lives in. The
// raw record bytes and the copied name of a File are carved out of that
// File's Arena, and the up-case table of a Volume out of the Volume's own
// Arena; each Arena is released at once.

package ntfs

import (
	"encoding/binary"

	"github.com/dsoprea/go-logging"
)

const (
	arenaDefaultReservedSize = 16 * 1024 * 1024
	arenaDefaultCommitSize   = 1 * 1024 * 1024

	// Every chunk is preceded by one word recording its aligned size. Resize
	// uses it to recognize and rewind the most recent allocation.
	arenaHeaderSize = 8

	arenaAlignment = 8
)

// Arena is a bump allocator over a single backing buffer with a
// reserved/committed split: the capacity is the reservation and the length is
// the committed prefix, which doubles on demand. Allocating past the
// reservation is a precondition violation, not a growth trigger.
type Arena struct {
	buffer     []byte
	offset     uint64
	lastOffset uint64
}

// NewArena reserves the default region and commits the default prefix.
func NewArena() *Arena {
	return &Arena{
		buffer: make([]byte, arenaDefaultCommitSize, arenaDefaultReservedSize),
	}
}

// ReservedSize returns the total size the arena may grow to.
func (arena *Arena) ReservedSize() uint64 {
	return uint64(cap(arena.buffer))
}

// CommittedSize returns the currently committed prefix size.
func (arena *Arena) CommittedSize() uint64 {
	return uint64(len(arena.buffer))
}

func (arena *Arena) commit(highWater uint64) {
	if highWater > arena.ReservedSize() {
		log.Panicf("arena allocation exceeds reservation: (%d) > (%d)", highWater, arena.ReservedSize())
	}

	committed := arena.CommittedSize()
	for committed < highWater {
		committed *= 2
		if committed > arena.ReservedSize() {
			committed = arena.ReservedSize()
		}
	}

	arena.buffer = arena.buffer[:committed]
}

// Alloc carves a zeroed chunk of exactly `size` bytes out of the arena. The
// returned slice is capacity-capped so appends can not clobber neighbors.
func (arena *Arena) Alloc(size uint64) []byte {
	sizeAligned := Align(size+arenaHeaderSize, arenaAlignment)

	arena.commit(arena.offset + sizeAligned)

	chunkOffset := arena.offset
	arena.lastOffset = chunkOffset
	arena.offset += sizeAligned

	binary.LittleEndian.PutUint64(arena.buffer[chunkOffset:], sizeAligned)

	dataOffset := chunkOffset + arenaHeaderSize
	data := arena.buffer[dataOffset : dataOffset+size : dataOffset+size]
	for i := range data {
		data[i] = 0
	}

	return data
}

func (arena *Arena) isLastAllocation(allocation []byte) bool {
	if len(allocation) == 0 {
		return false
	}

	dataOffset := arena.lastOffset + arenaHeaderSize
	if dataOffset >= arena.offset {
		return false
	}

	return &allocation[0] == &arena.buffer[dataOffset]
}

// Resize grows or shrinks a previous allocation. When the allocation is the
// most recent one it is resized in place; otherwise a fresh chunk is
// allocated and the old bytes are copied over. Either way the first
// min(old, new) bytes are preserved.
func (arena *Arena) Resize(allocation []byte, size uint64) []byte {
	if arena.isLastAllocation(allocation) != true {
		data := arena.Alloc(size)
		copy(data, allocation)

		return data
	}

	sizeAligned := Align(size+arenaHeaderSize, arenaAlignment)

	arena.commit(arena.lastOffset + sizeAligned)
	arena.offset = arena.lastOffset + sizeAligned

	binary.LittleEndian.PutUint64(arena.buffer[arena.lastOffset:], sizeAligned)

	dataOffset := arena.lastOffset + arenaHeaderSize
	return arena.buffer[dataOffset : dataOffset+size : dataOffset+size]
}

// PushCopy copies raw bytes into an arena-owned chunk.
func (arena *Arena) PushCopy(raw []byte) []byte {
	data := arena.Alloc(uint64(len(raw)))
	copy(data, raw)

	return data
}

// Reset rewinds the arena. Chunks returned before the reset are invalidated
// (and will be clobbered by subsequent allocations).
func (arena *Arena) Reset() {
	arena.offset = 0
	arena.lastOffset = 0
}

// Destroy releases the backing buffer. The arena must not be used afterwards.
func (arena *Arena) Destroy() {
	arena.buffer = nil
	arena.offset = 0
	arena.lastOffset = 0
}
