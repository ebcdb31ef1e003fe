// Package queue provides a generic priority queue used by efile's
// k-way merge to keep each active run's current head ordered. It wraps
// container/heap behind a three-way comparator to match Order[T]'s
// shape used throughout this module.
package queue

import "container/heap"

// item is a container for holding values with a priority in the queue.
type item[E any] struct {
	value E
	// index is maintained by the heap.Interface methods.
	index int
}

// innerPriorityQueue implements heap.Interface and holds items, ordered by
// cmp: negative if a sorts before b, per the Order[T] convention.
type innerPriorityQueue[E any] struct {
	items []*item[E]
	cmp   func(a, b E) int
}

// PriorityQueue is a heap-backed priority queue; Peek/Pop always return
// the minimum element under cmp.
type PriorityQueue[E any] struct {
	ipq innerPriorityQueue[E]
}

// NewPriorityQueue creates a new heap-based PriorityQueue using cmp as the
// three-way comparison function.
func NewPriorityQueue[E any](cmp func(a, b E) int) *PriorityQueue[E] {
	var pq PriorityQueue[E]
	pq.ipq.items = make([]*item[E], 0)
	pq.ipq.cmp = cmp
	heap.Init(&pq.ipq)
	return &pq
}

// Len returns the number of items in the queue.
func (pq *PriorityQueue[E]) Len() int {
	return pq.ipq.Len()
}

// Push adds x to the queue.
func (pq *PriorityQueue[E]) Push(x E) {
	heap.Push(&pq.ipq, &item[E]{value: x})
}

// Pop removes and returns the minimum item in the queue.
func (pq *PriorityQueue[E]) Pop() E {
	it := heap.Pop(&pq.ipq).(*item[E])
	return it.value
}

// Peek returns the minimum item in the queue without removing it.
func (pq *PriorityQueue[E]) Peek() E {
	return pq.ipq.items[0].value
}

// PeekUpdate re-establishes heap order after the caller has mutated the
// value currently at Peek() in place, without a Pop/Push round trip.
func (pq *PriorityQueue[E]) PeekUpdate() {
	heap.Fix(&pq.ipq, 0)
}

func (pq *innerPriorityQueue[E]) Len() int {
	return len(pq.items)
}

func (pq *innerPriorityQueue[E]) Less(i, j int) bool {
	return pq.cmp(pq.items[i].value, pq.items[j].value) < 0
}

func (pq *innerPriorityQueue[E]) Swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
	pq.items[i].index = i
	pq.items[j].index = j
}

func (pq *innerPriorityQueue[E]) Push(x any) {
	it := x.(*item[E])
	it.index = len(pq.items)
	pq.items = append(pq.items, it)
}

func (pq *innerPriorityQueue[E]) Pop() any {
	old := pq.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	pq.items = old[:n-1]
	return it
}
