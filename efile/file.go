// Package efile implements the externalized file abstraction and its
// external merge/sort operations: a File[T] is a tagged union across
// four physical representations — on-disk serialized, in-memory,
// slurped-but-unparsed, and one-shot transient — that adapts
// automatically between in-memory and on-disk execution.
//
// Dispatch is by an explicit kind switch, never by an interface method
// set: every operation below enumerates all four states rather than
// delegating to per-state types, per the "no virtual methods" discipline
// this module follows throughout.
package efile

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/riftbio/synchrony"
	"github.com/riftbio/synchrony/iter"
	"github.com/riftbio/synchrony/tmproot"
)

// ErrTransientConsumed is returned by Iterator when called a second time
// on a File already in the Transient state whose one-shot stream has
// already been handed out.
var ErrTransientConsumed = errors.New("efile: transient file already consumed")

type kind int

const (
	kindOnDisk kind = iota
	kindInMemory
	kindSlurped
	kindTransient
)

// File is the tagged EFile union over four physical representations of a
// sequence of T. The zero value is not usable; construct with NewOnDisk,
// NewInMemory, NewSlurped, or NewTransient.
type File[T any] struct {
	kind     kind
	settings synchrony.Settings[T]

	path string // kindOnDisk

	records []T // kindInMemory

	raw    []byte // kindSlurped
	origin string // kindSlurped: path it was read from, if any

	src      iter.Iterator[T] // kindTransient
	consumed *bool            // kindTransient: shared so copies observe consumption

	destructed *sync.Once
}

// NewOnDisk wraps an existing serialized file at path.
func NewOnDisk[T any](path string, settings synchrony.Settings[T]) File[T] {
	synchrony.MarkConfigInUse()
	return File[T]{kind: kindOnDisk, settings: settings, path: path, destructed: new(sync.Once)}
}

// NewInMemory wraps an already-materialized, re-readable slice.
func NewInMemory[T any](records []T, settings synchrony.Settings[T]) File[T] {
	synchrony.MarkConfigInUse()
	return File[T]{kind: kindInMemory, settings: settings, records: records, destructed: new(sync.Once)}
}

// NewSlurped wraps raw bytes read from origin but not yet parsed.
func NewSlurped[T any](raw []byte, origin string, settings synchrony.Settings[T]) File[T] {
	synchrony.MarkConfigInUse()
	return File[T]{kind: kindSlurped, settings: settings, raw: raw, origin: origin, destructed: new(sync.Once)}
}

// NewTransient wraps a one-shot source. Reading it more than once (via
// Iterator or any operation that needs re-reading) requires first
// canonicalizing with Stored or Serialized. IsEmpty only peeks and does
// not consume it.
func NewTransient[T any](src iter.Iterator[T], settings synchrony.Settings[T]) File[T] {
	synchrony.MarkConfigInUse()
	consumed := false
	return File[T]{kind: kindTransient, settings: settings, src: src, consumed: &consumed, destructed: new(sync.Once)}
}

// Kind strings, exported only for diagnostics/tests.
const (
	KindOnDisk    = "on-disk"
	KindInMemory  = "in-memory"
	KindSlurped   = "slurped"
	KindTransient = "transient"
)

// Kind reports which of the four representations f currently is.
func (f File[T]) Kind() string {
	switch f.kind {
	case kindOnDisk:
		return KindOnDisk
	case kindInMemory:
		return KindInMemory
	case kindSlurped:
		return KindSlurped
	default:
		return KindTransient
	}
}

// Settings returns the capability bundle f was constructed with.
func (f File[T]) Settings() synchrony.Settings[T] { return f.settings }

// Path returns the backing path for an on-disk File, or "" otherwise.
func (f File[T]) Path() string {
	if f.kind == kindOnDisk {
		return f.path
	}
	return ""
}

// Iterator returns a fresh Iterator over f's current state. For
// OnDisk/InMemory/Slurped this can be called any number of times; for
// Transient it can be called exactly once (it returns the wrapped source
// and marks it consumed).
func (f File[T]) Iterator() (iter.Iterator[T], error) {
	switch f.kind {
	case kindInMemory:
		return iter.FromSlice(f.records), nil
	case kindSlurped:
		return f.settings.Deserializer.Read(io.NopCloser(bytes.NewReader(f.raw)), f.settings.SkipLine)
	case kindOnDisk:
		file, err := os.Open(f.path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, synchrony.NewFileNotFoundError(f.path)
			}
			return nil, err
		}
		return f.settings.Deserializer.Read(file, f.settings.SkipLine)
	case kindTransient:
		if *f.consumed {
			return nil, ErrTransientConsumed
		}
		*f.consumed = true
		return f.src, nil
	}
	panic("efile: unreachable kind")
}

// IsEmpty reports whether f has no elements. It never consumes: for
// re-readable states it opens and immediately closes a scoped iterator;
// for Transient it peeks the wrapped source's Head without marking it
// consumed.
func (f File[T]) IsEmpty() (bool, error) {
	switch f.kind {
	case kindInMemory:
		return len(f.records) == 0, nil
	case kindTransient:
		_, ok := f.src.Head()
		return !ok, nil
	default:
		it, err := f.Iterator()
		if err != nil {
			return false, err
		}
		defer it.Close()
		return !it.HasNext(), nil
	}
}

// Nth returns the n-th (0-based) element. O(1) for InMemory; O(n) for
// every other state via a scoped iterator closed on both the normal and
// error paths.
func (f File[T]) Nth(n int) (T, bool, error) {
	var zero T
	if n < 0 {
		return zero, false, nil
	}
	if f.kind == kindInMemory {
		if n >= len(f.records) {
			return zero, false, nil
		}
		return f.records[n], true, nil
	}
	it, err := f.Iterator()
	if err != nil {
		return zero, false, err
	}
	defer it.Close()
	for i := 0; ; i++ {
		v, err := it.Next()
		if err == io.EOF {
			return zero, false, nil
		}
		if err != nil {
			return zero, false, err
		}
		if i == n {
			return v, true, nil
		}
	}
}

// Filtered returns a Transient File wrapping a filtered view of f: pred
// decides which elements survive. Consumes f's Transient source
// immediately (Iterator semantics), or opens a fresh view for re-readable
// states.
func (f File[T]) Filtered(pred func(T) bool) (File[T], error) {
	it, err := f.Iterator()
	if err != nil {
		return File[T]{}, err
	}
	return NewTransient(iter.Filter(it, pred), f.settings), nil
}

// Stored canonicalizes f to a re-readable state: OnDisk/InMemory/Slurped
// are returned unchanged. Transient is materialized according to policy:
// peek CardCap+1 items; if fewer are found and AlwaysOnDisk is false,
// materialize InMemory; otherwise spill everything to a fresh temp file
// and return OnDisk.
func (f File[T]) Stored(ctx context.Context) (File[T], error) {
	if f.kind != kindTransient {
		return f, nil
	}
	it, err := f.Iterator()
	if err != nil {
		return File[T]{}, err
	}
	preview := it.Lookahead(f.settings.CardCap + 1)
	if len(preview) <= f.settings.CardCap && !f.settings.AlwaysOnDisk {
		defer it.Close()
		return NewInMemory(preview, f.settings), nil
	}
	return f.spill(ctx, it)
}

// spill drains it (which may already have `preview`'s worth of elements
// buffered ahead of the cursor — draining still yields them first) into a
// fresh temp file using f.settings.Serializer, and returns the resulting
// OnDisk File. it is closed on every exit path.
func (f File[T]) spill(ctx context.Context, it iter.Iterator[T]) (File[T], error) {
	defer it.Close()

	dir, err := tmproot.TmpDir()
	if err != nil {
		return File[T]{}, err
	}
	tmpFile, err := os.CreateTemp(dir, f.settings.Prefix+"*"+f.settings.SuffixTmp)
	if err != nil {
		return File[T]{}, err
	}
	path := tmpFile.Name()
	synchrony.Log.Debugf("efile: spilling to %s", path)

	if err := writeAll(ctx, tmpFile, f.settings, it); err != nil {
		tmpFile.Close()
		os.Remove(path)
		return File[T]{}, err
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(path)
		return File[T]{}, err
	}
	return NewOnDisk(path, f.settings), nil
}

// writeAll drains it into dst using settings.Serializer: the first record
// is written with WriteHeader, every subsequent record with WriteRow.
func writeAll[T any](ctx context.Context, dst io.Writer, settings synchrony.Settings[T], it iter.Iterator[T]) error {
	w := bufio.NewWriter(dst)
	first := true
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		v, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if first {
			err = settings.Serializer.WriteHeader(w, v)
			first = false
		} else {
			err = settings.Serializer.WriteRow(w, v)
		}
		if err != nil {
			return synchrony.NewSerializationError(err, "efile.writeAll")
		}
	}
	return w.Flush()
}

// Slurped canonicalizes an OnDisk File under synchrony.Config().SizeLimit
// (or unconditionally if AutoSlurp is set) into a Slurped File holding the
// file's raw bytes. Any other state is returned unchanged.
func (f File[T]) Slurped() (File[T], error) {
	if f.kind != kindOnDisk {
		return f, nil
	}
	cfg := synchrony.Config()
	info, err := os.Stat(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return File[T]{}, synchrony.NewFileNotFoundError(f.path)
		}
		return File[T]{}, err
	}
	if !cfg.AutoSlurp && info.Size() >= cfg.SizeLimit {
		return f, nil
	}
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return File[T]{}, err
	}
	return NewSlurped(raw, f.path, f.settings), nil
}

// Serialized canonicalizes f to OnDisk. If f is already OnDisk and folder
// is empty (no override requested), f is returned unchanged. Otherwise
// f's iterator is drained into a fresh file under folder (or the
// process-wide temp directory if folder is empty).
func (f File[T]) Serialized(ctx context.Context, folder string) (File[T], error) {
	if f.kind == kindOnDisk && folder == "" {
		return f, nil
	}
	it, err := f.Iterator()
	if err != nil {
		return File[T]{}, err
	}
	defer it.Close()

	dir := folder
	if dir == "" {
		dir, err = tmproot.TmpDir()
		if err != nil {
			return File[T]{}, err
		}
	}
	tmpFile, err := os.CreateTemp(dir, f.settings.Prefix+"*"+f.settings.SuffixTmp)
	if err != nil {
		return File[T]{}, err
	}
	path := tmpFile.Name()
	if err := writeAll(ctx, tmpFile, f.settings, it); err != nil {
		tmpFile.Close()
		os.Remove(path)
		return File[T]{}, err
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(path)
		return File[T]{}, err
	}
	return NewOnDisk(path, f.settings), nil
}

// SavedAs serializes f (if needed) and atomically renames the result to
// folder/name (folder defaults to the process-wide ans/ directory; name
// gets settings.SuffixSav appended unless it already has that suffix),
// replacing any existing file at the destination.
func (f File[T]) SavedAs(ctx context.Context, name string, folder string) (File[T], error) {
	serialized, err := f.Serialized(ctx, "")
	if err != nil {
		return File[T]{}, err
	}
	dir := folder
	if dir == "" {
		dir, err = tmproot.AnsDir()
		if err != nil {
			return File[T]{}, err
		}
	}
	if filepath.Ext(name) != serialized.settings.SuffixSav {
		name += serialized.settings.SuffixSav
	}
	dest := filepath.Join(dir, name)
	if err := os.Rename(serialized.path, dest); err != nil {
		return File[T]{}, synchrony.NewFileCannotSaveError(serialized.path, dest, err)
	}
	synchrony.Log.Debugf("efile: saved %s", dest)
	return NewOnDisk(dest, serialized.settings), nil
}

// Destruct best-effort deletes the backing file of an OnDisk File (including
// one wrapped around an existing path with NewOnDisk) or closes the
// underlying stream (Transient). A Slurped File's origin is never deleted.
// It swallows OS errors and is safe to call more than once.
func (f File[T]) Destruct() error {
	f.destructed.Do(func() {
		switch f.kind {
		case kindOnDisk:
			_ = os.Remove(f.path)
		case kindTransient:
			_ = f.src.Close()
		}
	})
	return nil
}
