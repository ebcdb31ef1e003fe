package track

import (
	"context"

	"github.com/riftbio/synchrony/iter"
)

// lazyRun drives runGrouped on a background goroutine, translating each
// finalized group into zero or more R values pushed onto a channel, and
// adapts that channel pair into a pull Iterator via iter.FromChannel.
// Closing the returned Iterator (or cancelling ctx) stops the goroutine
// and closes xs and ys; Z is simply never replayed further.
func lazyRun[Y, X, R any](ctx context.Context, d Driver[Y, X], xs iter.Iterator[X], ys iter.Iterator[Y], expand func(x X, group []Y) []R) iter.Iterator[R] {
	out := make(chan R)
	errc := make(chan error, 1)
	runCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(out)
		defer xs.Close()
		defer ys.Close()

		err := runGrouped(runCtx, d, xs, ys, func(x X, group []Y) error {
			for _, r := range expand(x, group) {
				select {
				case out <- r:
				case <-runCtx.Done():
					return runCtx.Err()
				}
			}
			return nil
		})
		errc <- err
		close(errc)
	}()

	it := iter.FromChannel(out, errc)
	return iter.FromFunc(it.Next, func() error {
		cancel()
		return it.Close()
	})
}

// PairwiseMap lazily emits mapFn(x, y) for every (x, y) pair with
// d.CanSee(y, x), in x-major, y-minor order.
func PairwiseMap[Y, X, R any](ctx context.Context, d Driver[Y, X], xs iter.Iterator[X], ys iter.Iterator[Y], mapFn func(x X, y Y) R) iter.Iterator[R] {
	return lazyRun(ctx, d, xs, ys, func(x X, group []Y) []R {
		out := make([]R, len(group))
		for i, y := range group {
			out[i] = mapFn(x, y)
		}
		return out
	})
}

// PairwiseFlatMap lazily emits the elements of mapFn(x, y) for every
// (x, y) pair with d.CanSee(y, x).
func PairwiseFlatMap[Y, X, R any](ctx context.Context, d Driver[Y, X], xs iter.Iterator[X], ys iter.Iterator[Y], mapFn func(x X, y Y) []R) iter.Iterator[R] {
	return lazyRun(ctx, d, xs, ys, func(x X, group []Y) []R {
		var out []R
		for _, y := range group {
			out = append(out, mapFn(x, y)...)
		}
		return out
	})
}

// GroupedMap lazily emits mapFn(x, group) once per x that runGrouped
// visits, over its maximal visible window of landmarks.
func GroupedMap[Y, X, R any](ctx context.Context, d Driver[Y, X], xs iter.Iterator[X], ys iter.Iterator[Y], mapFn func(x X, group []Y) R) iter.Iterator[R] {
	return lazyRun(ctx, d, xs, ys, func(x X, group []Y) []R {
		return []R{mapFn(x, group)}
	})
}

// GroupedFlatMap lazily emits the elements of mapFn(x, group) once per x
// that runGrouped visits.
func GroupedFlatMap[Y, X, R any](ctx context.Context, d Driver[Y, X], xs iter.Iterator[X], ys iter.Iterator[Y], mapFn func(x X, group []Y) []R) iter.Iterator[R] {
	return lazyRun(ctx, d, xs, ys, mapFn)
}
