// Package record implements the BED (Browser Extensible Data) interval
// format as a concrete Serializer/Deserializer pair. It is an external
// collaborator: package synchrony, efile, and track know nothing about
// BED and would work identically with any other record type satisfying
// the same two interfaces.
package record

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/riftbio/synchrony"
	"github.com/riftbio/synchrony/iter"
)

// Record is a single BED interval: a half-open [Start, End) span on Chrom,
// with the usual optional BED columns plus a free-form Attrs map for any
// additional fields a caller's track carries.
type Record struct {
	Chrom  string
	Start  int
	End    int
	Name   string
	Score  int
	Strand byte

	Attrs map[string]string
}

// Order compares two Records by Chrom, then Start, then End — the order
// BED files are conventionally sorted under, and the order synchrony's
// external sort/merge require for a track to be queryable.
func Order(a, b Record) int {
	if c := strings.Compare(a.Chrom, b.Chrom); c != 0 {
		return c
	}
	if a.Start != b.Start {
		return a.Start - b.Start
	}
	return a.End - b.End
}

// Equal reports whether a and b carry the same core fields and Attrs.
func Equal(a, b Record) bool {
	if a.Chrom != b.Chrom || a.Start != b.Start || a.End != b.End ||
		a.Name != b.Name || a.Score != b.Score || a.Strand != b.Strand {
		return false
	}
	if len(a.Attrs) != len(b.Attrs) {
		return false
	}
	for k, v := range a.Attrs {
		if b.Attrs[k] != v {
			return false
		}
	}
	return true
}

// IsBefore reports whether landmark y's interval starts strictly before
// experiment x's, for use as a track.Driver predicate over Record
// landmarks and experiments sharing Order's sort order.
func IsBefore(y, x Record) bool {
	if y.Chrom != x.Chrom {
		return y.Chrom < x.Chrom
	}
	return y.Start < x.Start
}

// Overlaps reports whether y and x share any base on the same Chrom,
// using BED's half-open interval convention.
func Overlaps(y, x Record) bool {
	return y.Chrom == x.Chrom && y.Start < x.End && x.Start < y.End
}

// WithinDistance returns a canSee predicate treating y and x as visible to
// each other when they are on the same Chrom and no more than d bases
// apart (0 for exactly touching or overlapping).
func WithinDistance(d int) func(y, x Record) bool {
	return func(y, x Record) bool {
		if y.Chrom != x.Chrom {
			return false
		}
		gap := x.Start - y.End
		if y.End <= x.Start {
			// y entirely before x
		} else if x.End <= y.Start {
			gap = y.Start - x.End
		} else {
			gap = 0 // overlapping
		}
		if gap < 0 {
			gap = 0
		}
		return gap <= d
	}
}

// fieldOrder is the canonical column order a header line establishes.
var fieldOrder = []string{"chrom", "start", "end", "name", "score", "strand"}

// Serializer writes Records as tab-delimited BED lines: the first record
// written carries a field=value header establishing column order and any
// Attrs keys present on it; every subsequent record is written
// positionally in that same order.
type Serializer struct{}

// attrKeys returns rec's Attrs keys in sorted order, so the column order a
// header establishes is reproducible by every WriteRow call independent of
// Go's randomized map iteration.
func attrKeys(rec Record) []string {
	keys := make([]string, 0, len(rec.Attrs))
	for k := range rec.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (Serializer) WriteHeader(dst io.Writer, first Record) error {
	cols := append(append([]string{}, fieldOrder...), attrKeys(first)...)
	values := fieldValues(first)
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		v, ok := values[c]
		if !ok {
			v = first.Attrs[c]
		}
		parts = append(parts, c+"="+v)
	}
	_, err := fmt.Fprintln(dst, strings.Join(parts, "\t"))
	return err
}

func (Serializer) WriteRow(dst io.Writer, rec Record) error {
	values := fieldValues(rec)
	parts := make([]string, 0, len(fieldOrder)+len(rec.Attrs))
	for _, c := range fieldOrder {
		parts = append(parts, values[c])
	}
	for _, k := range attrKeys(rec) {
		parts = append(parts, rec.Attrs[k])
	}
	_, err := fmt.Fprintln(dst, strings.Join(parts, "\t"))
	return err
}

func fieldValues(rec Record) map[string]string {
	return map[string]string{
		"chrom":  rec.Chrom,
		"start":  strconv.Itoa(rec.Start),
		"end":    strconv.Itoa(rec.End),
		"name":   rec.Name,
		"score":  strconv.Itoa(rec.Score),
		"strand": string(rec.Strand),
	}
}

// DefaultSkipLine skips blank lines and the lines a BED file conventionally
// carries outside its data rows: UCSC/Ensembl track declaration lines and
// comments.
func DefaultSkipLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == "" || strings.HasPrefix(trimmed, "track") || strings.HasPrefix(trimmed, "#")
}

// Deserializer reads Records from the Serializer's textual form: a
// field=value header line establishing column order (and any extra Attrs
// columns), followed by positional data lines in that order.
type Deserializer struct{}

func (Deserializer) Read(src io.ReadCloser, skip func(line string) bool) (iter.Iterator[Record], error) {
	scanner := bufio.NewScanner(src)
	var cols []string
	lineNo := 0
	closed := false
	closeSrc := func() error {
		if closed {
			return nil
		}
		closed = true
		return src.Close()
	}

	return iter.FromFunc(func() (Record, error) {
		for scanner.Scan() {
			lineNo++
			line := scanner.Text()
			if skip != nil && skip(line) {
				continue
			}
			if cols == nil {
				header, parsed, err := parseHeader(line)
				if err != nil {
					closeSrc()
					return Record{}, synchrony.NewDeserializationError(err, lineNo)
				}
				cols = header
				return parsed, nil
			}
			rec, err := parseRow(cols, line)
			if err != nil {
				closeSrc()
				return Record{}, synchrony.NewDeserializationError(err, lineNo)
			}
			return rec, nil
		}
		if err := scanner.Err(); err != nil {
			closeSrc()
			return Record{}, err
		}
		closeSrc()
		return Record{}, io.EOF
	}, closeSrc), nil
}

func parseHeader(line string) ([]string, Record, error) {
	tokens := strings.Split(line, "\t")
	cols := make([]string, len(tokens))
	values := make(map[string]string, len(tokens))
	for i, tok := range tokens {
		k, v, ok := strings.Cut(tok, "=")
		if !ok {
			return nil, Record{}, fmt.Errorf("record: malformed header field %q", tok)
		}
		cols[i] = k
		values[k] = v
	}
	rec, err := recordFromValues(cols, values)
	return cols, rec, err
}

func parseRow(cols []string, line string) (Record, error) {
	tokens := strings.Split(line, "\t")
	if len(tokens) != len(cols) {
		return Record{}, fmt.Errorf("record: expected %d columns, got %d", len(cols), len(tokens))
	}
	values := make(map[string]string, len(tokens))
	for i, c := range cols {
		values[c] = tokens[i]
	}
	return recordFromValues(cols, values)
}

func recordFromValues(cols []string, values map[string]string) (Record, error) {
	var rec Record
	known := map[string]bool{}
	for _, c := range fieldOrder {
		known[c] = true
	}
	var err error
	rec.Chrom = values["chrom"]
	if rec.Start, err = atoiOr0(values["start"]); err != nil {
		return Record{}, err
	}
	if rec.End, err = atoiOr0(values["end"]); err != nil {
		return Record{}, err
	}
	rec.Name = values["name"]
	if rec.Score, err = atoiOr0(values["score"]); err != nil {
		return Record{}, err
	}
	if s := values["strand"]; s != "" {
		rec.Strand = s[0]
	}
	for _, c := range cols {
		if known[c] {
			continue
		}
		if rec.Attrs == nil {
			rec.Attrs = map[string]string{}
		}
		rec.Attrs[c] = values[c]
	}
	return rec, nil
}

func atoiOr0(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
