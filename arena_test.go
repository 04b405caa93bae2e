package ntfs

import (
	"bytes"
	"testing"
)

func TestArena_Alloc_Zeroed(t *testing.T) {
	arena := NewArena()

	defer arena.Destroy()

	data := arena.Alloc(64)
	if len(data) != 64 {
		t.Fatalf("Allocation size not correct: (%d)", len(data))
	}

	for i, c := range data {
		if c != 0 {
			t.Fatalf("Allocation not zeroed at (%d).", i)
		}
	}
}

func TestArena_Alloc_Disjoint(t *testing.T) {
	arena := NewArena()

	defer arena.Destroy()

	first := arena.Alloc(16)
	second := arena.Alloc(16)

	for i := range first {
		first[i] = 0xaa
	}

	for _, c := range second {
		if c != 0 {
			t.Fatalf("Allocations overlap.")
		}
	}
}

func TestArena_Resize_LastAllocationInPlace(t *testing.T) {
	arena := NewArena()

	defer arena.Destroy()

	data := arena.Alloc(8)
	copy(data, []byte("abcdefgh"))

	offsetBefore := arena.offset

	resized := arena.Resize(data, 32)
	if len(resized) != 32 {
		t.Fatalf("Resized allocation size not correct: (%d)", len(resized))
	}

	if bytes.Equal(resized[:8], []byte("abcdefgh")) != true {
		t.Fatalf("Resize did not preserve the original bytes.")
	}

	// An in-place resize rewinds to the same chunk rather than appending.
	if arena.offset >= offsetBefore+32 {
		t.Fatalf("Resize did not happen in place: (%d) -> (%d)", offsetBefore, arena.offset)
	}

	if &resized[0] != &data[0] {
		t.Fatalf("Resize of the last allocation moved the data.")
	}
}

func TestArena_Resize_ShrinkPreservesPrefix(t *testing.T) {
	arena := NewArena()

	defer arena.Destroy()

	data := arena.Alloc(16)
	copy(data, []byte("0123456789abcdef"))

	resized := arena.Resize(data, 4)
	if len(resized) != 4 {
		t.Fatalf("Shrunk allocation size not correct: (%d)", len(resized))
	}

	if bytes.Equal(resized, []byte("0123")) != true {
		t.Fatalf("Shrink did not preserve the prefix.")
	}
}

func TestArena_Resize_NotLastAllocationCopies(t *testing.T) {
	arena := NewArena()

	defer arena.Destroy()

	first := arena.Alloc(8)
	copy(first, []byte("abcdefgh"))

	arena.Alloc(8)

	resized := arena.Resize(first, 16)
	if &resized[0] == &first[0] {
		t.Fatalf("Resize of an older allocation did not relocate.")
	}

	if bytes.Equal(resized[:8], []byte("abcdefgh")) != true {
		t.Fatalf("Relocating resize did not copy the original bytes.")
	}
}

func TestArena_CommitDoubles(t *testing.T) {
	arena := NewArena()

	defer arena.Destroy()

	if arena.CommittedSize() != arenaDefaultCommitSize {
		t.Fatalf("Initial commit not correct: (%d)", arena.CommittedSize())
	}

	arena.Alloc(arenaDefaultCommitSize + 1)

	if arena.CommittedSize() != arenaDefaultCommitSize*2 {
		t.Fatalf("Commit did not double to cover the high-water mark: (%d)", arena.CommittedSize())
	}

	if arena.ReservedSize() != arenaDefaultReservedSize {
		t.Fatalf("Reservation changed: (%d)", arena.ReservedSize())
	}
}

func TestArena_AllocPastReservationPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("Allocating past the reservation did not panic.")
		}
	}()

	arena := NewArena()

	defer arena.Destroy()

	arena.Alloc(arenaDefaultReservedSize + 1)
}

func TestArena_Reset(t *testing.T) {
	arena := NewArena()

	defer arena.Destroy()

	first := arena.Alloc(16)

	arena.Reset()

	second := arena.Alloc(16)
	if &first[0] != &second[0] {
		t.Fatalf("Reset did not rewind the arena.")
	}
}

func TestArena_PushCopy(t *testing.T) {
	arena := NewArena()

	defer arena.Destroy()

	original := []byte("content")

	copied := arena.PushCopy(original)
	if bytes.Equal(copied, original) != true {
		t.Fatalf("Copy not correct.")
	}

	original[0] = 'X'
	if copied[0] != 'c' {
		t.Fatalf("Copy aliases the original.")
	}
}
