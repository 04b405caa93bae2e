package ntfs

import (
	"testing"
)

func TestDynList_EmptyState(t *testing.T) {
	list := DynList[int]{}

	if list.Len() != 0 {
		t.Fatalf("Empty-state length not correct: (%d)", list.Len())
	} else if list.Cap() != 0 {
		t.Fatalf("Empty-state capacity not correct: (%d)", list.Cap())
	} else if list.Items() != nil {
		t.Fatalf("Empty-state items not correct.")
	}
}

func TestDynList_PushAllocatesDefaultCapacity(t *testing.T) {
	list := DynList[int]{}
	list.Push(11)

	if list.Len() != 1 {
		t.Fatalf("Length not correct: (%d)", list.Len())
	} else if list.Cap() != dynListDefaultCapacity {
		t.Fatalf("Capacity not correct: (%d)", list.Cap())
	} else if *list.At(0) != 11 {
		t.Fatalf("Element not correct: (%d)", *list.At(0))
	}
}

func TestDynList_CapacityDoubles(t *testing.T) {
	list := DynList[int]{}

	for i := 0; i < dynListDefaultCapacity+1; i++ {
		list.Push(i)
	}

	if list.Len() != dynListDefaultCapacity+1 {
		t.Fatalf("Length not correct: (%d)", list.Len())
	} else if list.Cap() != dynListDefaultCapacity*2 {
		t.Fatalf("Capacity did not double: (%d)", list.Cap())
	}

	for i := 0; i < list.Len(); i++ {
		if *list.At(i) != i {
			t.Fatalf("Element (%d) not correct after growth: (%d)", i, *list.At(i))
		}
	}
}
