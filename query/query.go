// Package query is a thin, genome-query-language-flavored façade over
// efile and track: Overlaps, Within, and Nearest compose their exported
// API into the verbs a caller working with interval tracks actually
// wants, without adding any algorithmic surface of their own.
package query

import (
	"context"
	"strconv"

	"github.com/riftbio/synchrony/efile"
	"github.com/riftbio/synchrony/record"
	"github.com/riftbio/synchrony/track"
)

// Match pairs one experiment record with one landmark record that can see
// it, as produced by Overlaps/Within's pairwise join.
type Match struct {
	Experiment record.Record
	Landmark   record.Record
}

// canSeeWith adapts an undirected interval predicate (e.g. record.Overlaps)
// into the (y, x) shape track.Driver expects.
func canSeeWith(pred func(a, b record.Record) bool) func(y, x record.Record) bool {
	return func(y, x record.Record) bool { return pred(y, x) }
}

// Overlaps joins experiments against landmarks on interval overlap: both
// Files must already be sorted under record.Order. The result is the set
// of (experiment, landmark) pairs whose intervals share at least one base
// on the same chromosome.
func Overlaps(ctx context.Context, experiments, landmarks efile.File[record.Record]) (efile.File[record.Record], error) {
	return pairwiseJoin(ctx, experiments, landmarks, canSeeWith(record.Overlaps))
}

// Within joins experiments against landmarks that lie no more than dist
// bases away on the same chromosome (0 meaning touching or overlapping).
func Within(ctx context.Context, experiments, landmarks efile.File[record.Record], dist int) (efile.File[record.Record], error) {
	return pairwiseJoin(ctx, experiments, landmarks, canSeeWith(record.WithinDistance(dist)))
}

// pairwiseJoin runs a pairwise synchrony map between experiments and
// landmarks using canSee, flattening each matched pair into a single
// output Record via mergeMatch (the experiment's Attrs plus the landmark's
// Name and Score under "landmark_" keys), and wraps the result back into a
// Transient File.
func pairwiseJoin(ctx context.Context, experiments, landmarks efile.File[record.Record], canSee func(y, x record.Record) bool) (efile.File[record.Record], error) {
	xs, err := experiments.Iterator()
	if err != nil {
		return efile.File[record.Record]{}, err
	}
	ys, err := landmarks.Iterator()
	if err != nil {
		xs.Close()
		return efile.File[record.Record]{}, err
	}

	d := track.NewDriver[record.Record, record.Record](record.IsBefore, canSee)
	joined := track.PairwiseMap(ctx, d, xs, ys, mergeMatch)
	return efile.NewTransient(joined, experiments.Settings()), nil
}

// mergeMatch folds a matched (experiment, landmark) pair into a single
// Record: the experiment's core fields, annotated with the landmark's
// Name/Score under reserved Attrs keys.
func mergeMatch(x, y record.Record) record.Record {
	out := x
	out.Attrs = make(map[string]string, len(x.Attrs)+2)
	for k, v := range x.Attrs {
		out.Attrs[k] = v
	}
	out.Attrs["landmark_name"] = y.Name
	out.Attrs["landmark_score"] = strconv.Itoa(y.Score)
	return out
}

// Nearest reports, for each experiment record, the single closest
// landmark on the same chromosome within maxDist bases (by gap, ties
// broken by landmark order), or no entry if none qualifies.
func Nearest(ctx context.Context, experiments, landmarks efile.File[record.Record], maxDist int) (efile.File[record.Record], error) {
	xs, err := experiments.Iterator()
	if err != nil {
		return efile.File[record.Record]{}, err
	}
	ys, err := landmarks.Iterator()
	if err != nil {
		xs.Close()
		return efile.File[record.Record]{}, err
	}

	within := record.WithinDistance(maxDist)
	d := track.NewDriver[record.Record, record.Record](record.IsBefore, canSeeWith(within))

	nearest := track.GroupedFlatMap(ctx, d, xs, ys, func(x record.Record, group []record.Record) []record.Record {
		if len(group) == 0 {
			return nil
		}
		best := group[0]
		bestGap := gap(best, x)
		for _, y := range group[1:] {
			if g := gap(y, x); g < bestGap {
				best, bestGap = y, g
			}
		}
		return []record.Record{mergeMatch(x, best)}
	})
	return efile.NewTransient(nearest, experiments.Settings()), nil
}

func gap(y, x record.Record) int {
	switch {
	case y.End <= x.Start:
		return x.Start - y.End
	case x.End <= y.Start:
		return y.Start - x.End
	default:
		return 0
	}
}

// SortedTrack sorts recs under record.Order and returns the canonicalized
// result, applying the usual in-memory/on-disk materialization policy.
func SortedTrack(ctx context.Context, recs efile.File[record.Record]) (efile.File[record.Record], error) {
	sorted, err := recs.SortedWith(ctx, record.Order)
	if err != nil {
		return efile.File[record.Record]{}, err
	}
	return sorted.Stored(ctx)
}
