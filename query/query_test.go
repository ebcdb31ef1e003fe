package query_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/riftbio/synchrony"
	"github.com/riftbio/synchrony/efile"
	"github.com/riftbio/synchrony/query"
	"github.com/riftbio/synchrony/record"
)

func settings() synchrony.Settings[record.Record] {
	return synchrony.DefaultSettings[record.Record](record.Order, record.Equal, record.Serializer{}, record.Deserializer{})
}

func rec(chrom string, start, end int, name string) record.Record {
	return record.Record{Chrom: chrom, Start: start, End: end, Name: name}
}

func collectNames(t *testing.T, f efile.File[record.Record]) []string {
	t.Helper()
	it, err := f.Iterator()
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	defer it.Close()
	var names []string
	for {
		v, err := it.Next()
		if err != nil {
			break
		}
		label := v.Name
		if ln, ok := v.Attrs["landmark_name"]; ok {
			label += "/" + ln
		}
		names = append(names, label)
	}
	return names
}

func TestOverlapsJoinsIntervalsSharingBases(t *testing.T) {
	experiments := efile.NewInMemory([]record.Record{
		rec("chr1", 10, 20, "x1"),
		rec("chr1", 30, 40, "x2"),
	}, settings())
	landmarks := efile.NewInMemory([]record.Record{
		rec("chr1", 15, 25, "y1"),
		rec("chr1", 35, 45, "y2"),
	}, settings())

	result, err := query.Overlaps(context.Background(), experiments, landmarks)
	if err != nil {
		t.Fatalf("Overlaps: %v", err)
	}
	got := collectNames(t, result)
	want := []string{"x1/y1", "x2/y2"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestWithinRespectsDistance(t *testing.T) {
	experiments := efile.NewInMemory([]record.Record{
		rec("chr1", 100, 110, "x"),
	}, settings())
	landmarks := efile.NewInMemory([]record.Record{
		rec("chr1", 0, 5, "far"),
		rec("chr1", 90, 95, "near"),
	}, settings())

	result, err := query.Within(context.Background(), experiments, landmarks, 10)
	if err != nil {
		t.Fatalf("Within: %v", err)
	}
	got := collectNames(t, result)
	want := []string{"x/near"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNearestPicksClosestLandmark(t *testing.T) {
	experiments := efile.NewInMemory([]record.Record{
		rec("chr1", 100, 110, "x"),
	}, settings())
	landmarks := efile.NewInMemory([]record.Record{
		rec("chr1", 80, 90, "far"),
		rec("chr1", 95, 99, "near"),
	}, settings())

	result, err := query.Nearest(context.Background(), experiments, landmarks, 50)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	got := collectNames(t, result)
	want := []string{"x/near"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSortedTrackOrdersByChromStart(t *testing.T) {
	f := efile.NewInMemory([]record.Record{
		rec("chr2", 5, 10, "b"),
		rec("chr1", 50, 60, "a2"),
		rec("chr1", 1, 2, "a1"),
	}, settings())

	sorted, err := query.SortedTrack(context.Background(), f)
	if err != nil {
		t.Fatalf("SortedTrack: %v", err)
	}
	got := collectNames(t, sorted)
	want := []string{"a1", "a2", "b"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
