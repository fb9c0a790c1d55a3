// Package util
//
// This file provides an insertion-ordered index for in-flight requests.
//
// The implementation combines a binary heap with a hash map to provide both
// efficient access to the oldest entry and key-based access. The outbound
// request tracker uses it with a monotonic sequence number as priority: the
// head of the heap is always the request that was sent first, while a response
// can be matched to its request by uid without scanning.
//
// Time Complexity:
//   - O(1) for Peek and key-based lookups
//   - O(log n) for Push, PopMin and RemoveByKey
//
// Concurrency Considerations:
//   - This implementation is not thread-safe
//   - For concurrent use, external synchronization should be applied
//
// Example usage:
//
//	idx := NewMapHeap[string, *request]()
//
//	idx.AddItem("a", 1, reqA)
//	idx.AddItem("b", 2, reqB)
//
//	// Get the oldest item
//	oldest, exists := idx.Peek()
//
//	// Remove a specific item (e.g. when its response arrived)
//	idx.RemoveByKey("a")
package util

import (
	"container/heap"
	"fmt"
)

// Item is one entry of the MapHeap
type Item[K comparable, V any] struct {
	Key      K      // Unique identifier for the item
	Priority uint64 // Priority used for ordering in the heap (lowest first)
	Value    V      // Payload stored with the item
	index    int    // Index in the heap, maintained by heap package
}

func (i *Item[K, V]) String() string {
	return fmt.Sprintf("{Key: %v, Priority: %d}", i.Key, i.Priority)
}

// itemHeap is the heap.Interface part of the MapHeap
type itemHeap[K comparable, V any] struct {
	items    []*Item[K, V]
	itemsMap map[K]*Item[K, V]
}

// Len returns the number of items in the queue (part of heap.Interface)
func (h *itemHeap[K, V]) Len() int { return len(h.items) }

// Less compares items by priority (part of heap.Interface)
func (h *itemHeap[K, V]) Less(i, j int) bool {
	return h.items[i].Priority < h.items[j].Priority
}

// Swap exchanges items at positions i and j (part of heap.Interface)
func (h *itemHeap[K, V]) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}

// Push adds an item to the heap (part of heap.Interface)
func (h *itemHeap[K, V]) Push(x any) {
	item := x.(*Item[K, V])
	item.index = len(h.items)
	h.items = append(h.items, item)
	h.itemsMap[item.Key] = item
}

// Pop removes and returns the last item (part of heap.Interface)
func (h *itemHeap[K, V]) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // Avoid memory leak
	item.index = -1 // For safety
	h.items = old[:n-1]
	delete(h.itemsMap, item.Key)
	return item
}

// MapHeap is a min-heap by priority with O(1) access by key
type MapHeap[K comparable, V any] struct {
	h itemHeap[K, V]
}

// NewMapHeap creates a new, empty MapHeap
func NewMapHeap[K comparable, V any]() *MapHeap[K, V] {
	return &MapHeap[K, V]{
		h: itemHeap[K, V]{
			items:    make([]*Item[K, V], 0),
			itemsMap: make(map[K]*Item[K, V]),
		},
	}
}

// Len returns the number of items
func (m *MapHeap[K, V]) Len() int { return m.h.Len() }

// AddItem adds a new item or updates the priority and value of an existing one
func (m *MapHeap[K, V]) AddItem(key K, priority uint64, value V) {
	// Check if item already exists
	if item, exists := m.h.itemsMap[key]; exists {
		item.Priority = priority
		item.Value = value
		heap.Fix(&m.h, item.index)
		return
	}

	heap.Push(&m.h, &Item[K, V]{
		Key:      key,
		Priority: priority,
		Value:    value,
	})
}

// RemoveByKey removes an item by its key
func (m *MapHeap[K, V]) RemoveByKey(key K) (*Item[K, V], bool) {
	item, exists := m.h.itemsMap[key]
	if !exists {
		return nil, false
	}

	heap.Remove(&m.h, item.index)
	return item, true
}

// Peek returns the item with the lowest priority without removing it
func (m *MapHeap[K, V]) Peek() (*Item[K, V], bool) {
	if len(m.h.items) == 0 {
		return nil, false
	}
	return m.h.items[0], true
}

// PopMin removes and returns the item with the lowest priority
func (m *MapHeap[K, V]) PopMin() (*Item[K, V], bool) {
	if len(m.h.items) == 0 {
		return nil, false
	}
	return heap.Pop(&m.h).(*Item[K, V]), true
}

// Contains checks if a key exists in the queue
func (m *MapHeap[K, V]) Contains(key K) bool {
	_, exists := m.h.itemsMap[key]
	return exists
}

// GetByKey retrieves an item by its key without removing it
func (m *MapHeap[K, V]) GetByKey(key K) (*Item[K, V], bool) {
	item, exists := m.h.itemsMap[key]
	return item, exists
}

// Clear removes all items and returns them ordered by priority
func (m *MapHeap[K, V]) Clear() []*Item[K, V] {
	out := make([]*Item[K, V], 0, m.Len())
	for m.Len() > 0 {
		item, _ := m.PopMin()
		out = append(out, item)
	}
	return out
}
