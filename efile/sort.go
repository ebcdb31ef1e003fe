package efile

import (
	"bytes"
	"context"
	"io"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/riftbio/synchrony"
	"github.com/riftbio/synchrony/iter"
)

// Sorted sorts f under f.settings.Order and returns the result. It is
// shorthand for SortedWith(ctx, f.settings.Order).
func (f File[T]) Sorted(ctx context.Context) (File[T], error) {
	return f.SortedWith(ctx, f.settings.Order)
}

// SortedIfNeeded returns f unchanged if it is already sorted under order,
// avoiding the cost of a full external sort; otherwise it delegates to
// SortedWith.
func (f File[T]) SortedIfNeeded(ctx context.Context, order synchrony.Order[T]) (File[T], error) {
	sorted, err := f.IsSorted(order)
	if err != nil {
		return File[T]{}, err
	}
	if sorted {
		return f, nil
	}
	return f.SortedWith(ctx, order)
}

// SortedWith performs an external merge sort of f under order: f is
// chunked into runs sized to fit within f.settings.RAMCap/Cap (estimated
// from a sample of the first SamplingSize records when DoSampling is
// set), each run is sorted in memory by a pool of parallel workers, runs
// too large to keep resident are spilled to temp files, and the sorted
// runs are N-way merged. The final result is canonicalized per
// f.settings.AlwaysOnDisk: in memory when the merge output is small
// enough and disk spilling was never forced, on disk otherwise. An
// OnDisk input always finalizes OnDisk too, even when every run happens
// to fit in memory, so sorting never turns a disk-backed file ephemeral.
func (f File[T]) SortedWith(ctx context.Context, order synchrony.Order[T]) (File[T], error) {
	src, err := f.Iterator()
	if err != nil {
		return File[T]{}, err
	}
	defer src.Close()

	runSize := f.estimateRunSize(src)

	g, gctx := errgroup.WithContext(ctx)
	runsCh := make(chan File[T])
	const numWorkers = 4
	chunks := make(chan []T, numWorkers)

	g.Go(func() error {
		defer close(chunks)
		for {
			chunk, err := readChunk(src, runSize)
			if err != nil {
				return err
			}
			if len(chunk) == 0 {
				return nil
			}
			select {
			case chunks <- chunk:
			case <-gctx.Done():
				return gctx.Err()
			}
			if len(chunk) < runSize {
				return nil
			}
		}
	})

	var forcedOnDisk atomic.Bool
	forcedOnDisk.Store(f.kind == kindOnDisk)
	var workersWG sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		workersWG.Add(1)
		g.Go(func() error {
			defer workersWG.Done()
			for chunk := range chunks {
				slices.SortFunc(chunk, order)
				runFile, err := f.materializeRun(ctx, chunk)
				if err != nil {
					return err
				}
				if runFile.kind == kindOnDisk {
					forcedOnDisk.Store(true)
				}
				select {
				case runsCh <- runFile:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	// Sort-worker errors are joined into g, so the first one cancels
	// gctx and unblocks the producer's and every other worker's select
	// on it, instead of leaving them parked on a channel nobody drains.
	go func() {
		workersWG.Wait()
		close(runsCh)
	}()

	var runs []File[T]
	for r := range runsCh {
		runs = append(runs, r)
	}
	if err := g.Wait(); err != nil {
		for _, r := range runs {
			r.Destruct()
		}
		return File[T]{}, err
	}

	switch len(runs) {
	case 0:
		if f.settings.AlwaysOnDisk || forcedOnDisk.Load() {
			return spillEmpty(f.settings)
		}
		return NewInMemory[T](nil, f.settings), nil
	case 1:
		return f.finalize(ctx, runs[0], forcedOnDisk.Load())
	}

	its := make([]iter.Iterator[T], 0, len(runs))
	for _, r := range runs {
		it, err := r.Iterator()
		if err != nil {
			return File[T]{}, err
		}
		its = append(its, it)
	}
	merged := NewTransient(mergeIterators(order, its), f.settings)
	result, err := f.finalizeTransient(ctx, merged, forcedOnDisk.Load())
	for _, r := range runs {
		r.Destruct()
	}
	return result, err
}

// spillEmpty produces an on-disk File holding zero records, for callers
// that require AlwaysOnDisk even when there was nothing to sort.
func spillEmpty[T any](settings synchrony.Settings[T]) (File[T], error) {
	empty := NewInMemory[T](nil, settings)
	return empty.Serialized(context.Background(), "")
}

// estimateRunSize samples up to settings.SamplingSize records ahead of
// src's cursor (non-destructively, via Lookahead) to estimate serialized
// size per record, then derives a run length that keeps one run within
// RAMCap bytes, capped by settings.Cap. If DoSampling is false or no
// sample is available, settings.Cap is used directly.
func (f File[T]) estimateRunSize(src iter.Iterator[T]) int {
	cap := f.settings.Cap
	if cap <= 0 {
		cap = 100_000
	}
	if !f.settings.DoSampling || f.settings.Serializer == nil {
		return cap
	}
	sample := src.Lookahead(f.settings.SamplingSize)
	if len(sample) == 0 {
		return cap
	}
	var buf bytes.Buffer
	for i, v := range sample {
		var err error
		if i == 0 {
			err = f.settings.Serializer.WriteHeader(&buf, v)
		} else {
			err = f.settings.Serializer.WriteRow(&buf, v)
		}
		if err != nil {
			return cap
		}
	}
	avgSize := buf.Len() / len(sample)
	if avgSize <= 0 {
		avgSize = f.settings.AveSize
	}
	ramCap := f.settings.RAMCap
	if ramCap <= 0 {
		return cap
	}
	estimated := ramCap / avgSize
	if estimated <= 0 {
		estimated = 1
	}
	if estimated > cap {
		return cap
	}
	return estimated
}

// readChunk pulls up to n records from src, stopping early on EOF.
func readChunk[T any](src iter.Iterator[T], n int) ([]T, error) {
	chunk := make([]T, 0, n)
	for i := 0; i < n; i++ {
		v, err := src.Next()
		if err == io.EOF {
			return chunk, nil
		}
		if err != nil {
			return nil, err
		}
		chunk = append(chunk, v)
	}
	return chunk, nil
}

// materializeRun decides whether a sorted chunk stays InMemory or spills
// to disk, by the same CardCap/AlwaysOnDisk policy Stored uses.
func (f File[T]) materializeRun(ctx context.Context, chunk []T) (File[T], error) {
	if !f.settings.AlwaysOnDisk && len(chunk) <= f.settings.CardCap {
		return NewInMemory(chunk, f.settings), nil
	}
	run := NewInMemory(chunk, f.settings)
	return run.Serialized(ctx, "")
}

// finalize canonicalizes a single sorted run as the final sort output.
func (f File[T]) finalize(ctx context.Context, run File[T], forcedOnDisk bool) (File[T], error) {
	if f.settings.AlwaysOnDisk || forcedOnDisk {
		return run.Serialized(ctx, "")
	}
	return run, nil
}

// finalizeTransient canonicalizes a Transient merge result as the final
// sort output, using the same Stored policy but honoring forcedOnDisk
// (any run already spilled means the whole sort is disk-backed).
func (f File[T]) finalizeTransient(ctx context.Context, merged File[T], forcedOnDisk bool) (File[T], error) {
	if f.settings.AlwaysOnDisk || forcedOnDisk {
		return merged.Serialized(ctx, "")
	}
	return merged.Stored(ctx)
}
