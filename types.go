package synchrony

import (
	"io"

	"github.com/riftbio/synchrony/iter"
)

// Order is a total order on T: negative if a sorts before b, zero if they
// are equal under the order, positive if a sorts after b. Equal elements
// are permitted and may come out of sort/merge in either relative order.
type Order[T any] func(a, b T) int

// Equality is a caller-supplied equality test on T, independent of Order
// (two elements can be Order-equal without being Equal, e.g. when Order
// only looks at a key field).
type Equality[T any] func(a, b T) bool

// Serializer writes an iterator of T to dst as a self-describing
// textual form: one record per line, with the first
// record optionally written as field=value pairs (WriteHeader) to
// establish column order, and every subsequent record written positionally
// (WriteRow) in that same order.
type Serializer[T any] interface {
	WriteHeader(dst io.Writer, first T) error
	WriteRow(dst io.Writer, rec T) error
}

// Deserializer reads a lazy Iterator of T from src. skip is invoked with
// each raw line before it is parsed as data; if skip returns true the line
// is discarded (used for header/comment/track lines). The returned
// Iterator must close src on exhaustion, on error, or when the caller
// explicitly closes it.
type Deserializer[T any] interface {
	Read(src io.ReadCloser, skip func(line string) bool) (iter.Iterator[T], error)
}

// Settings is the immutable capability bundle and tuning configuration
// passed to every efile operation over T. Construct with
// DefaultSettings and adjust via the With* builder methods, each of which
// returns a modified copy; there are no in-place setters, so a Settings
// value can be shared safely across concurrent operations once built.
type Settings[T any] struct {
	// File-naming conventions for spill/persist.
	Prefix    string
	SuffixTmp string
	SuffixSav string

	// AveSize is a hint for the expected serialized size of one record,
	// used before any sampling has occurred. CardCap is the record-count
	// threshold above which a Transient File spills to disk instead of
	// materializing InMemory.
	AveSize int
	CardCap int

	// RAMCap is the byte budget for a single in-memory sort run. Cap is
	// the record-count cap for a single sort run; when sampling is on, the
	// sampling-derived estimate is used instead only if it is smaller.
	RAMCap int
	Cap    int

	// DoSampling/SamplingSize control whether and how many records are
	// peeked to estimate per-record serialized size for dynamic run
	// sizing (see efile.SortedWith).
	DoSampling   bool
	SamplingSize int

	// AlwaysOnDisk forces sort/serialize output to spill to disk even
	// when the result would otherwise fit in memory.
	AlwaysOnDisk bool

	Serializer   Serializer[T]
	Deserializer Deserializer[T]
	Order        Order[T]
	Equality     Equality[T]

	// SkipLine, if non-nil, is passed to Deserializer.Read as its guard
	// predicate: lines for which it returns true (header/comment/track
	// lines) are discarded before parsing.
	SkipLine func(line string) bool
}

// DefaultSettings returns sensible numeric/behavioral defaults paired
// with the given capability bundle. Defaults can be overridden via the
// With* methods.
func DefaultSettings[T any](order Order[T], equality Equality[T], ser Serializer[T], deser Deserializer[T]) Settings[T] {
	return Settings[T]{
		Prefix:       "synchrony-",
		SuffixTmp:    ".eftmp",
		SuffixSav:    ".efsav",
		AveSize:      1000,
		CardCap:      2000,
		RAMCap:       200_000_000,
		Cap:          100_000,
		DoSampling:   true,
		SamplingSize: 30,
		AlwaysOnDisk: false,
		Serializer:   ser,
		Deserializer: deser,
		Order:        order,
		Equality:     equality,
	}
}

// WithCardCap returns a copy of s with CardCap set to n.
func (s Settings[T]) WithCardCap(n int) Settings[T] { s.CardCap = n; return s }

// WithCap returns a copy of s with Cap set to n.
func (s Settings[T]) WithCap(n int) Settings[T] { s.Cap = n; return s }

// WithRAMCap returns a copy of s with RAMCap set to n.
func (s Settings[T]) WithRAMCap(n int) Settings[T] { s.RAMCap = n; return s }

// WithAlwaysOnDisk returns a copy of s with AlwaysOnDisk set to v.
func (s Settings[T]) WithAlwaysOnDisk(v bool) Settings[T] { s.AlwaysOnDisk = v; return s }

// WithSampling returns a copy of s with sampling behavior overridden.
func (s Settings[T]) WithSampling(enabled bool, size int) Settings[T] {
	s.DoSampling = enabled
	s.SamplingSize = size
	return s
}
