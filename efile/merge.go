package efile

import (
	"context"
	"io"

	"github.com/riftbio/synchrony"
	"github.com/riftbio/synchrony/iter"
	"github.com/riftbio/synchrony/queue"
)

// runHead pairs a run's iterator with its current head value, so the
// priority queue can compare runs by value without re-reading Head() on
// every comparison.
type runHead[T any] struct {
	it   iter.Iterator[T]
	head T
}

// mergeIterators performs an N-way merge of already-sorted iterators
// under order, producing a single lazily-pulled, non-decreasing Iterator.
// Initial heads are pulled lazily, on the first call to the returned
// Iterator, so an error on that first pull surfaces through the normal
// Next() error path instead of being swallowed during setup. Each input
// iterator is closed as it's exhausted, and all remaining ones are closed
// if the returned Iterator is closed early.
func mergeIterators[T any](order synchrony.Order[T], its []iter.Iterator[T]) iter.Iterator[T] {
	pq := queue.NewPriorityQueue(func(a, b *runHead[T]) int {
		return order(a.head, b.head)
	})
	started := false

	closeAll := func() error {
		var first error
		for pq.Len() > 0 {
			r := pq.Pop()
			if err := r.it.Close(); err != nil && first == nil {
				first = err
			}
		}
		for _, it := range its {
			if err := it.Close(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}

	start := func() error {
		started = true
		for _, it := range its {
			v, err := it.Next()
			if err == io.EOF {
				it.Close()
				continue
			}
			if err != nil {
				return err
			}
			pq.Push(&runHead[T]{it: it, head: v})
		}
		its = nil
		return nil
	}

	return iter.FromFunc(func() (T, error) {
		var zero T
		if !started {
			if err := start(); err != nil {
				return zero, err
			}
		}
		if pq.Len() == 0 {
			return zero, io.EOF
		}
		top := pq.Peek()
		out := top.head

		next, err := top.it.Next()
		if err == io.EOF {
			pq.Pop()
			top.it.Close()
		} else if err != nil {
			pq.Pop()
			top.it.Close()
			return zero, err
		} else {
			top.head = next
			pq.PeekUpdate()
		}
		return out, nil
	}, closeAll)
}

// MergedWith merges f with others under order, assuming every input is
// already non-decreasing per order; merge does not verify sortedness.
// The result is a Transient File backed by a lazy
// N-way merge; call Stored to canonicalize it.
func (f File[T]) MergedWith(ctx context.Context, order synchrony.Order[T], others ...File[T]) (File[T], error) {
	all := append([]File[T]{f}, others...)
	its := make([]iter.Iterator[T], 0, len(all))
	for _, ef := range all {
		it, err := ef.Iterator()
		if err != nil {
			for _, opened := range its {
				opened.Close()
			}
			return File[T]{}, err
		}
		its = append(its, it)
	}
	merged := mergeIterators(order, its)
	return NewTransient(merged, f.settings), nil
}

// IsSorted reports whether f is already non-decreasing under order. It
// consumes a Transient f's source; for re-readable states it opens and
// closes a scoped iterator.
func (f File[T]) IsSorted(order synchrony.Order[T]) (bool, error) {
	it, err := f.Iterator()
	if err != nil {
		return false, err
	}
	defer it.Close()

	prev, err := it.Next()
	if err == io.EOF {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	for {
		cur, err := it.Next()
		if err == io.EOF {
			return true, nil
		}
		if err != nil {
			return false, err
		}
		if order(prev, cur) > 0 {
			return false, nil
		}
		prev = cur
	}
}

// HasSameValueAs reports whether f and other hold element-wise Equal
// sequences in iteration order. If either side is Transient and force is
// false, the comparison is skipped and false is returned without
// consuming either source: observing a one-shot stream just to answer an
// equality question is surprising, so callers must opt in via force.
func (f File[T]) HasSameValueAs(ctx context.Context, other File[T], force bool) (bool, error) {
	if !force && (f.kind == kindTransient || other.kind == kindTransient) {
		return false, nil
	}
	itA, err := f.Iterator()
	if err != nil {
		return false, err
	}
	defer itA.Close()
	itB, err := other.Iterator()
	if err != nil {
		return false, err
	}
	defer itB.Close()

	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		a, errA := itA.Next()
		b, errB := itB.Next()
		if errA == io.EOF && errB == io.EOF {
			return true, nil
		}
		if errA == io.EOF || errB == io.EOF {
			return false, nil
		}
		if errA != nil {
			return false, errA
		}
		if errB != nil {
			return false, errB
		}
		if !f.settings.Equality(a, b) {
			return false, nil
		}
	}
}
