package util

import (
	"math/rand"
	"sort"
	"testing"
)

// TestNewMapHeap tests the creation of a new MapHeap
func TestNewMapHeap(t *testing.T) {
	mh := NewMapHeap[string, int]()

	if mh == nil {
		t.Fatal("NewMapHeap() returned nil")
	}

	if mh.Len() != 0 {
		t.Errorf("New heap should be empty, but has length %d", mh.Len())
	}

	if len(mh.h.itemsMap) != 0 {
		t.Errorf("New heap's map should be empty, but has %d items", len(mh.h.itemsMap))
	}
}

// TestAddItem tests adding items to the heap
func TestAddItem(t *testing.T) {
	mh := NewMapHeap[string, int]()

	mh.AddItem("a", 100, 1)
	mh.AddItem("b", 200, 2)
	mh.AddItem("c", 50, 3)

	if mh.Len() != 3 {
		t.Errorf("Heap should have 3 items, but has %d", mh.Len())
	}

	for _, key := range []string{"a", "b", "c"} {
		if !mh.Contains(key) {
			t.Errorf("Heap should contain key %s", key)
		}
	}

	// Check the order (min heap, so the lowest priority should be first)
	item, exists := mh.Peek()
	if !exists {
		t.Fatal("Peek() should return an item")
	}

	if item.Key != "c" || item.Priority != 50 || item.Value != 3 {
		t.Errorf("Expected min item to be (c,50,3), got %s", item)
	}
}

// TestUpdateItem tests updating existing items
func TestUpdateItem(t *testing.T) {
	mh := NewMapHeap[string, int]()

	mh.AddItem("a", 100, 1)
	mh.AddItem("b", 200, 2)

	// Move item a behind item b
	mh.AddItem("a", 300, 10)

	item, exists := mh.GetByKey("a")
	if !exists {
		t.Fatal("Item with key a should exist")
	}
	if item.Priority != 300 || item.Value != 10 {
		t.Errorf("Item a should be (300,10), got (%d,%d)", item.Priority, item.Value)
	}

	min, _ := mh.Peek()
	if min.Key != "b" {
		t.Errorf("Min item should now be key b, got %s", min.Key)
	}

	if mh.Len() != 2 {
		t.Errorf("Update must not add an item, length is %d", mh.Len())
	}
}

// TestRemoveByKey tests removing items by key
func TestRemoveByKey(t *testing.T) {
	mh := NewMapHeap[string, int]()

	mh.AddItem("a", 100, 1)
	mh.AddItem("b", 200, 2)
	mh.AddItem("c", 300, 3)

	item, exists := mh.RemoveByKey("b")
	if !exists {
		t.Fatal("RemoveByKey should return true for existing key")
	}
	if item.Value != 2 {
		t.Errorf("RemoveByKey should return value 2, got %d", item.Value)
	}
	if mh.Len() != 2 {
		t.Errorf("Heap should have 2 items after removal, has %d", mh.Len())
	}
	if mh.Contains("b") {
		t.Error("Heap should not contain key b after removal")
	}

	// Try to remove non-existent key
	if _, exists = mh.RemoveByKey("zz"); exists {
		t.Error("RemoveByKey should return false for non-existent key")
	}

	// Remaining order must be intact
	min, _ := mh.Peek()
	if min.Key != "a" {
		t.Errorf("Min item should be a, got %s", min.Key)
	}
}

// TestPopOrder tests if items are popped in correct order
func TestPopOrder(t *testing.T) {
	mh := NewMapHeap[uint64, struct{}]()

	keys := []uint64{5, 3, 1, 4, 2}
	for _, k := range keys {
		mh.AddItem(k, k*10, struct{}{})
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for i, expected := range keys {
		item, ok := mh.PopMin()
		if !ok {
			t.Fatalf("Heap empty after %d items, expected %d items", i, len(keys))
		}
		if item.Key != expected {
			t.Errorf("Pop %d: expected key %d, got %d", i, expected, item.Key)
		}
	}

	if _, ok := mh.PopMin(); ok {
		t.Error("PopMin on empty heap should return false")
	}
}

// TestPeekEmptyHeap tests behavior when peeking an empty heap
func TestPeekEmptyHeap(t *testing.T) {
	mh := NewMapHeap[string, int]()

	if _, exists := mh.Peek(); exists {
		t.Error("Peek on empty heap should return exists=false")
	}
}

// TestClear tests that Clear drains the heap in priority order
func TestClear(t *testing.T) {
	mh := NewMapHeap[int, int]()
	for i := 10; i > 0; i-- {
		mh.AddItem(i, uint64(i), i)
	}

	items := mh.Clear()
	if len(items) != 10 {
		t.Fatalf("Clear should return 10 items, got %d", len(items))
	}
	for i, item := range items {
		if item.Key != i+1 {
			t.Errorf("Clear position %d: expected key %d, got %d", i, i+1, item.Key)
		}
	}
	if mh.Len() != 0 || len(mh.h.itemsMap) != 0 {
		t.Error("Heap should be empty after Clear")
	}
}

// TestLargeNumberOfItems interleaves inserts and removals and checks the heap order
func TestLargeNumberOfItems(t *testing.T) {
	mh := NewMapHeap[int, int]()
	rng := rand.New(rand.NewSource(42))

	const n = 10000
	for i := 0; i < n; i++ {
		mh.AddItem(i, uint64(i), i)
	}

	// Remove a random half by key
	removed := make(map[int]bool)
	for len(removed) < n/2 {
		k := rng.Intn(n)
		if removed[k] {
			continue
		}
		if _, ok := mh.RemoveByKey(k); !ok {
			t.Fatalf("Key %d should exist", k)
		}
		removed[k] = true
	}

	// The rest must come out in insertion order
	last := -1
	for mh.Len() > 0 {
		item, _ := mh.PopMin()
		if removed[item.Key] {
			t.Fatalf("Removed key %d popped", item.Key)
		}
		if item.Key <= last {
			t.Fatalf("Keys out of order: %d after %d", item.Key, last)
		}
		last = item.Key
	}
}
