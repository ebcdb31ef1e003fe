package efile_test

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/riftbio/synchrony"
	"github.com/riftbio/synchrony/efile"
	"github.com/riftbio/synchrony/iter"
)

// val is a minimal record used only by this package's tests: an int key
// with a textual, newline-delimited serialization.
type val struct {
	Key int
}

type valSerializer struct{}

func (valSerializer) WriteHeader(dst io.Writer, first val) error {
	_, err := fmt.Fprintf(dst, "%d\n", first.Key)
	return err
}

func (valSerializer) WriteRow(dst io.Writer, rec val) error {
	_, err := fmt.Fprintf(dst, "%d\n", rec.Key)
	return err
}

type valDeserializer struct{}

func (valDeserializer) Read(src io.ReadCloser, skip func(line string) bool) (iter.Iterator[val], error) {
	scanner := bufio.NewScanner(src)
	closed := false
	closeSrc := func() error {
		if closed {
			return nil
		}
		closed = true
		return src.Close()
	}
	return iter.FromFunc(func() (val, error) {
		for scanner.Scan() {
			line := scanner.Text()
			if skip != nil && skip(line) {
				continue
			}
			n, err := strconv.Atoi(strings.TrimSpace(line))
			if err != nil {
				closeSrc()
				return val{}, err
			}
			return val{Key: n}, nil
		}
		if err := scanner.Err(); err != nil {
			closeSrc()
			return val{}, err
		}
		closeSrc()
		return val{}, io.EOF
	}, closeSrc), nil
}

func valOrder(a, b val) int { return a.Key - b.Key }
func valEqual(a, b val) bool { return a.Key == b.Key }

func testSettings() synchrony.Settings[val] {
	return synchrony.DefaultSettings[val](valOrder, valEqual, valSerializer{}, valDeserializer{}).
		WithCardCap(4)
}

func collect(t *testing.T, it iter.Iterator[val]) []int {
	t.Helper()
	defer it.Close()
	var out []int
	for {
		v, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out = append(out, v.Key)
	}
	return out
}

func vals(keys ...int) []val {
	out := make([]val, len(keys))
	for i, k := range keys {
		out[i] = val{Key: k}
	}
	return out
}

func TestInMemoryIteratorRereadable(t *testing.T) {
	f := efile.NewInMemory(vals(1, 2, 3), testSettings())

	for pass := 0; pass < 2; pass++ {
		it, err := f.Iterator()
		if err != nil {
			t.Fatalf("Iterator: %v", err)
		}
		if got := collect(t, it); fmt.Sprint(got) != "[1 2 3]" {
			t.Fatalf("pass %d: got %v", pass, got)
		}
	}
}

func TestTransientConsumedOnce(t *testing.T) {
	f := efile.NewTransient[val](iter.FromSlice(vals(1, 2)), testSettings())

	it, err := f.Iterator()
	if err != nil {
		t.Fatalf("first Iterator: %v", err)
	}
	it.Close()

	if _, err := f.Iterator(); err != efile.ErrTransientConsumed {
		t.Fatalf("second Iterator err = %v, want ErrTransientConsumed", err)
	}
}

func TestStoredKeepsSmallSequenceInMemory(t *testing.T) {
	settings := testSettings() // CardCap=4
	f := efile.NewTransient[val](iter.FromSlice(vals(1, 2, 3)), settings)

	stored, err := f.Stored(context.Background())
	if err != nil {
		t.Fatalf("Stored: %v", err)
	}
	if stored.Kind() != efile.KindInMemory {
		t.Fatalf("Kind() = %s, want %s", stored.Kind(), efile.KindInMemory)
	}
	it, _ := stored.Iterator()
	if got := collect(t, it); fmt.Sprint(got) != "[1 2 3]" {
		t.Fatalf("got %v", got)
	}
}

func TestStoredSpillsLargeSequenceToDisk(t *testing.T) {
	settings := testSettings() // CardCap=4
	f := efile.NewTransient[val](iter.FromSlice(vals(1, 2, 3, 4, 5, 6)), settings)

	stored, err := f.Stored(context.Background())
	if err != nil {
		t.Fatalf("Stored: %v", err)
	}
	if stored.Kind() != efile.KindOnDisk {
		t.Fatalf("Kind() = %s, want %s", stored.Kind(), efile.KindOnDisk)
	}
	defer stored.Destruct()

	it, err := stored.Iterator()
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	if got := collect(t, it); fmt.Sprint(got) != "[1 2 3 4 5 6]" {
		t.Fatalf("got %v", got)
	}
}

func TestStoredExactlyAtCardCapStaysInMemory(t *testing.T) {
	settings := testSettings() // CardCap=4
	f := efile.NewTransient[val](iter.FromSlice(vals(1, 2, 3, 4)), settings)

	stored, err := f.Stored(context.Background())
	if err != nil {
		t.Fatalf("Stored: %v", err)
	}
	if stored.Kind() != efile.KindInMemory {
		t.Fatalf("Kind() = %s, want %s (exactly CardCap items must not spill)", stored.Kind(), efile.KindInMemory)
	}
}

func TestSerializedAndSlurpedRoundTrip(t *testing.T) {
	settings := testSettings()
	f := efile.NewInMemory(vals(5, 6, 7), settings)

	onDisk, err := f.Serialized(context.Background(), "")
	if err != nil {
		t.Fatalf("Serialized: %v", err)
	}
	defer onDisk.Destruct()
	if onDisk.Kind() != efile.KindOnDisk {
		t.Fatalf("Kind() = %s, want %s", onDisk.Kind(), efile.KindOnDisk)
	}

	slurped, err := onDisk.Slurped()
	if err != nil {
		t.Fatalf("Slurped: %v", err)
	}
	it, err := slurped.Iterator()
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	if got := collect(t, it); fmt.Sprint(got) != "[5 6 7]" {
		t.Fatalf("got %v", got)
	}
}

func TestMergedWithInterleavesSortedRuns(t *testing.T) {
	settings := testSettings()
	a := efile.NewInMemory(vals(1, 3, 5), settings)
	b := efile.NewInMemory(vals(2, 4, 6), settings)

	merged, err := a.MergedWith(context.Background(), valOrder, b)
	if err != nil {
		t.Fatalf("MergedWith: %v", err)
	}
	it, err := merged.Iterator()
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	if got := collect(t, it); fmt.Sprint(got) != "[1 2 3 4 5 6]" {
		t.Fatalf("got %v", got)
	}
}

func TestSortedWithUnsortedInput(t *testing.T) {
	settings := testSettings().WithCap(2) // force multiple small runs
	f := efile.NewInMemory(vals(9, 2, 7, 1, 5, 3, 8, 4, 6), settings)

	sorted, err := f.SortedWith(context.Background(), valOrder)
	if err != nil {
		t.Fatalf("SortedWith: %v", err)
	}
	defer sorted.Destruct()

	it, err := sorted.Iterator()
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	if got := collect(t, it); fmt.Sprint(got) != "[1 2 3 4 5 6 7 8 9]" {
		t.Fatalf("got %v", got)
	}
}

func TestSortedWithKeepsOnDiskInputOnDisk(t *testing.T) {
	settings := testSettings() // CardCap=4
	f := efile.NewInMemory(vals(3, 1, 2), settings)
	onDisk, err := f.Serialized(context.Background(), "")
	if err != nil {
		t.Fatalf("Serialized: %v", err)
	}
	defer onDisk.Destruct()

	sorted, err := onDisk.SortedWith(context.Background(), valOrder)
	if err != nil {
		t.Fatalf("SortedWith: %v", err)
	}
	defer sorted.Destruct()

	if sorted.Kind() != efile.KindOnDisk {
		t.Fatalf("Kind() = %s, want %s (sorting an OnDisk input must stay OnDisk even though the result is tiny)", sorted.Kind(), efile.KindOnDisk)
	}
	it, err := sorted.Iterator()
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	if got := collect(t, it); fmt.Sprint(got) != "[1 2 3]" {
		t.Fatalf("got %v", got)
	}
}

func TestIsSorted(t *testing.T) {
	settings := testSettings()
	sorted := efile.NewInMemory(vals(1, 2, 3), settings)
	unsorted := efile.NewInMemory(vals(3, 1, 2), settings)

	ok, err := sorted.IsSorted(valOrder)
	if err != nil || !ok {
		t.Fatalf("IsSorted(sorted) = %v, %v", ok, err)
	}
	ok, err = unsorted.IsSorted(valOrder)
	if err != nil || ok {
		t.Fatalf("IsSorted(unsorted) = %v, %v", ok, err)
	}
}

func TestSortedIfNeededSkipsAlreadySorted(t *testing.T) {
	settings := testSettings()
	f := efile.NewInMemory(vals(1, 2, 3), settings)

	out, err := f.SortedIfNeeded(context.Background(), valOrder)
	if err != nil {
		t.Fatalf("SortedIfNeeded: %v", err)
	}
	if out.Kind() != efile.KindInMemory {
		t.Fatalf("Kind() = %s, want unchanged %s", out.Kind(), efile.KindInMemory)
	}
}

func TestHasSameValueAsRefusesTransientWithoutForce(t *testing.T) {
	settings := testSettings()
	a := efile.NewTransient[val](iter.FromSlice(vals(1, 2)), settings)
	b := efile.NewInMemory(vals(1, 2), settings)

	same, err := a.HasSameValueAs(context.Background(), b, false)
	if err != nil {
		t.Fatalf("HasSameValueAs: %v", err)
	}
	if same {
		t.Fatalf("HasSameValueAs with unforced Transient = true, want false")
	}
}

func TestHasSameValueAsForcedComparesContents(t *testing.T) {
	settings := testSettings()
	a := efile.NewInMemory(vals(1, 2, 3), settings)
	b := efile.NewInMemory(vals(1, 2, 3), settings)
	c := efile.NewInMemory(vals(1, 2, 4), settings)

	same, err := a.HasSameValueAs(context.Background(), b, true)
	if err != nil || !same {
		t.Fatalf("HasSameValueAs(a, b) = %v, %v", same, err)
	}
	same, err = a.HasSameValueAs(context.Background(), c, true)
	if err != nil || same {
		t.Fatalf("HasSameValueAs(a, c) = %v, %v", same, err)
	}
}

func TestFilteredKeepsMatchingElements(t *testing.T) {
	settings := testSettings()
	f := efile.NewInMemory(vals(1, 2, 3, 4, 5), settings)

	filtered, err := f.Filtered(func(v val) bool { return v.Key%2 == 0 })
	if err != nil {
		t.Fatalf("Filtered: %v", err)
	}
	it, err := filtered.Iterator()
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	if got := collect(t, it); fmt.Sprint(got) != "[2 4]" {
		t.Fatalf("got %v", got)
	}
}

func TestNth(t *testing.T) {
	settings := testSettings()
	f := efile.NewInMemory(vals(10, 20, 30), settings)

	v, ok, err := f.Nth(1)
	if err != nil || !ok || v.Key != 20 {
		t.Fatalf("Nth(1) = %v, %v, %v", v, ok, err)
	}
	_, ok, err = f.Nth(5)
	if err != nil || ok {
		t.Fatalf("Nth(5) = ok %v, err %v, want ok=false", ok, err)
	}
}
