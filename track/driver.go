// Package track implements the synchronized iteration engine: co-traversal
// of a landmark stream Y and an experiment stream X under caller-supplied
// isBefore/canSee predicates, producing a maximal visible window of
// landmarks for each experiment element in a single forward pass over
// both streams.
//
// Go does not allow a method to introduce type parameters beyond its
// receiver's, so the six operator variants are free functions parameterized
// over a Driver rather than methods on it.
package track

import (
	"context"

	"github.com/riftbio/synchrony/iter"
)

// Driver holds the two predicates a synchronized traversal needs: IsBefore
// reports whether y's position precedes x's under the streams' shared
// order, and CanSee reports whether y and x are close enough to match. The
// caller is responsible for the monotonicity/antimonotonicity contracts
// between the two; the engine does not verify them.
type Driver[Y, X any] struct {
	IsBefore func(y Y, x X) bool
	CanSee   func(y Y, x X) bool
}

// NewDriver builds a Driver from the two predicates.
func NewDriver[Y, X any](isBefore func(Y, X) bool, canSee func(Y, X) bool) Driver[Y, X] {
	return Driver[Y, X]{IsBefore: isBefore, CanSee: canSee}
}

// ycursor merges a buffered replay prefix (pending) in front of a live
// iterator (ys): the prefix is served FIFO before any further pull reaches
// ys. Re-seating the revisit window Z in front of Y is just appending Z to
// pending, which is why Z never needs to be spliced back into ys itself.
type ycursor[Y any] struct {
	pending []Y
	ys      iter.Iterator[Y]
}

func (c *ycursor[Y]) head() (Y, bool) {
	if len(c.pending) > 0 {
		return c.pending[0], true
	}
	return c.ys.Head()
}

// hasMoreAfterHead reports whether any element follows the current head in
// the merged sequence, without consuming anything.
func (c *ycursor[Y]) hasMoreAfterHead() bool {
	if len(c.pending) > 0 {
		if len(c.pending) > 1 {
			return true
		}
		return c.ys.HasNext()
	}
	_, ok := c.ys.PeekAhead(1)
	return ok
}

// pop consumes and returns the current head.
func (c *ycursor[Y]) pop() Y {
	if len(c.pending) > 0 {
		v := c.pending[0]
		c.pending = c.pending[1:]
		return v
	}
	v, _ := c.ys.Next()
	return v
}

// reseat re-queues z (the discarded revisit window) in front of the
// current head so the next x still sees it; include is appended after z
// only when the current head itself came from pending (and so must be
// explicitly re-buffered to survive into the next window) and was not
// yet popped from it. When the head instead came live from ys, it was
// only peeked, never consumed — it still sits at ys.Head() — so
// appending it here too would make it visible twice.
func (c *ycursor[Y]) reseat(z []Y, include Y, includeHead bool) {
	fromPending := len(c.pending) > 0
	next := make([]Y, 0, len(z)+2)
	next = append(next, z...)
	if includeHead && fromPending {
		next = append(next, include)
		next = append(next, c.pending[1:]...)
	}
	c.pending = next
}

// runGrouped invokes onGroup at most once per experiment element x with the
// maximal window of landmarks canSee considers visible to it; that window
// can be empty. Once no landmark remains, neither live nor buffered in the
// window, it returns without visiting the remaining experiment elements.
// It does not close xs or ys; callers own that.
func runGrouped[Y, X any](ctx context.Context, d Driver[Y, X], xs iter.Iterator[X], ys iter.Iterator[Y], onGroup func(x X, group []Y) error) error {
	cur := &ycursor[Y]{ys: ys}
	var z []Y

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		x, xOk := xs.Head()
		if !xOk {
			return nil
		}

		advanced := false
		for !advanced {
			if err := ctx.Err(); err != nil {
				return err
			}
			y, yOk := cur.head()
			if !yOk {
				if len(z) == 0 {
					return nil
				}
				cur.reseat(z, y, false)
				z = nil
				continue
			}

			before := d.IsBefore(y, x)
			see := d.CanSee(y, x)

			switch {
			case before && !see:
				cur.pop()
			case !before && !see:
				if err := onGroup(x, z); err != nil {
					return err
				}
				cur.reseat(z, y, true)
				z = nil
				advanced = true
			case see && !cur.hasMoreAfterHead():
				group := append(append([]Y{}, z...), y)
				if err := onGroup(x, group); err != nil {
					return err
				}
				cur.reseat(z, y, true)
				z = nil
				advanced = true
			default: // see && more Y remain
				z = append(z, y)
				cur.pop()
			}
		}

		if _, err := xs.Next(); err != nil {
			return err
		}
	}
}

// PairwiseFold folds step(x, y, acc) over every (x, y) pair with
// d.CanSee(y, x), in x-major, y-minor order.
func PairwiseFold[Y, X, A any](ctx context.Context, d Driver[Y, X], xs iter.Iterator[X], ys iter.Iterator[Y], zero A, step func(x X, y Y, acc A) A) (A, error) {
	acc := zero
	err := runGrouped(ctx, d, xs, ys, func(x X, group []Y) error {
		for _, y := range group {
			acc = step(x, y, acc)
		}
		return nil
	})
	return acc, err
}

// GroupedFold folds step(x, group, acc) once per x that runGrouped visits,
// over its maximal visible window of landmarks.
func GroupedFold[Y, X, A any](ctx context.Context, d Driver[Y, X], xs iter.Iterator[X], ys iter.Iterator[Y], zero A, step func(x X, group []Y, acc A) A) (A, error) {
	acc := zero
	err := runGrouped(ctx, d, xs, ys, func(x X, group []Y) error {
		acc = step(x, group, acc)
		return nil
	})
	return acc, err
}
