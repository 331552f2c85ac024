// Package queue provides the priority queues used by the forest index.
package queue

import "container/heap"

// Compile time check to ensure PriorityQueue satisfies the heap interface.
var _ heap.Interface = (*PriorityQueue)(nil)

// Item represents an entry in the priority queue.
type Item struct {
	Ref      int32   // Ref identifies the element the priority belongs to (item slot or tree node).
	Priority float32 // Priority orders the queue (distance or split margin).
}

// PriorityQueue implements heap.Interface over Items.
// Use NewMin to pop the smallest priority first, NewMax for the largest.
type PriorityQueue struct {
	max   bool
	items []Item
}

// NewMin initializes a priority queue that pops the smallest priority first.
func NewMin(capacity int) *PriorityQueue {
	return &PriorityQueue{items: make([]Item, 0, capacity)}
}

// NewMax initializes a priority queue that pops the largest priority first.
func NewMax(capacity int) *PriorityQueue {
	return &PriorityQueue{max: true, items: make([]Item, 0, capacity)}
}

// Len returns the number of elements in the priority queue.
func (pq *PriorityQueue) Len() int { return len(pq.items) }

// Less reports whether the element with index i should sort before the element with index j.
func (pq *PriorityQueue) Less(i, j int) bool {
	if pq.max {
		return pq.items[i].Priority > pq.items[j].Priority
	}

	return pq.items[i].Priority < pq.items[j].Priority
}

// Swap swaps the elements with indexes i and j.
func (pq *PriorityQueue) Swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
}

// Push adds x to the backing slice (used by container/heap).
func (pq *PriorityQueue) Push(x any) {
	item, _ := x.(Item)
	pq.items = append(pq.items, item)
}

// Pop removes and returns the last element of the backing slice (used by container/heap).
func (pq *PriorityQueue) Pop() any {
	n := len(pq.items)
	if n == 0 {
		return Item{}
	}

	item := pq.items[n-1]
	pq.items[n-1] = Item{} // Zero out for GC
	pq.items = pq.items[:n-1]

	return item
}

// PushItem inserts an item while maintaining the heap invariant.
func (pq *PriorityQueue) PushItem(item Item) {
	heap.Push(pq, item)
}

// PopItem removes and returns the top element while maintaining the heap invariant.
func (pq *PriorityQueue) PopItem() (Item, bool) {
	if len(pq.items) == 0 {
		return Item{}, false
	}

	item, _ := heap.Pop(pq).(Item)

	return item, true
}

// TopItem returns the top element without removing it.
func (pq *PriorityQueue) TopItem() (Item, bool) {
	if len(pq.items) == 0 {
		return Item{}, false
	}

	return pq.items[0], true
}
