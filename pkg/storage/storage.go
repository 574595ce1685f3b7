// Package storage persists sequences of codec records. Every backend offers
// the same three primitives: scan everything, replace everything, and append
// one record.
package storage

import (
	"errors"
	"fmt"

	"github.com/ssargent/kvfile/pkg/codec"
)

// Backend is the capability set the operation layer needs from a store.
// Implementations hold no state between calls; each method acquires and
// releases its own handles.
type Backend interface {
	// ReadAll returns every record in store order. A store that does not
	// exist yet is empty. The first undecodable record fails the whole scan
	// with a *CorruptError.
	ReadAll() ([]*codec.Record, error)
	// WriteAll replaces the store contents with records.
	WriteAll(records []*codec.Record) error
	// Append adds one record without rewriting the others.
	Append(record *codec.Record) error
	// Path returns the location of the store on disk.
	Path() string
}

// Kind names a backend implementation
type Kind string

const (
	KindFile   Kind = "file"
	KindBolt   Kind = "bolt"
	KindPebble Kind = "pebble"
)

// Kinds lists the supported backends
var Kinds = []Kind{KindFile, KindBolt, KindPebble}

// Options configures Open
type Options struct {
	Kind  Kind              // Backend implementation, KindFile when empty
	Path  string            // File (or directory for pebble) holding the store
	Sync  bool              // Fsync after every write
	Codec *codec.RecordCodec // Record codec, default limits when nil
}

var (
	// ErrCorrupt matches any *CorruptError via errors.Is
	ErrCorrupt = errors.New("store is corrupt")
	// ErrUnknownBackend is returned by Open for an unsupported Kind
	ErrUnknownBackend = errors.New("unknown storage backend")
)

// CorruptError reports the first record that could not be decoded
type CorruptError struct {
	Path   string
	Offset int64 // Byte offset for the file backend, record position for keyed backends
	Err    error // Underlying codec error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt record at offset %d in %s: %v", e.Offset, e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrCorrupt) match without losing the codec cause
func (e *CorruptError) Is(target error) bool {
	return target == ErrCorrupt
}

// Open returns the backend described by opts
func Open(opts Options) (Backend, error) {
	if opts.Path == "" {
		return nil, errors.New("storage path is required")
	}
	if opts.Codec == nil {
		opts.Codec = codec.NewRecordCodec()
	}

	switch opts.Kind {
	case KindFile, "":
		return NewFile(opts.Path, opts.Codec, opts.Sync), nil
	case KindBolt:
		return NewBolt(opts.Path, opts.Codec), nil
	case KindPebble:
		return NewPebble(opts.Path, opts.Codec, opts.Sync), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Kind)
	}
}

// ParseKind validates a backend name from configuration or flags
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want one of %v)", ErrUnknownBackend, s, Kinds)
}
