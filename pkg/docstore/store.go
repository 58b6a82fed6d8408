// Package docstore is a small transactional document store interface with Firestore, MongoDB,
// Postgres and in-memory backends.
//
// The API follows Firestore's transaction model: inside RunTransaction every read must
// happen before the first write, writes become visible atomically at commit, and the
// function may run more than once when a backend detects a conflict. Transaction functions
// must therefore not have side effects outside their writes.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a document required by an operation does not exist.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrAlreadyExists is returned by Create when the document exists.
	ErrAlreadyExists = errors.New("docstore: document already exists")
	// ErrReadAfterWrite is returned when a transaction reads after it has written.
	ErrReadAfterWrite = errors.New("docstore: reads must precede writes in a transaction")

	// errConcurrentCreate marks a Create that lost to another transaction after this one had
	// read the document as missing. Backends without optimistic concurrency retry on it.
	errConcurrentCreate = fmt.Errorf("%w: created concurrently", ErrAlreadyExists)
)

// Fields is the data written to a document. Values may be the sentinels ServerTimestamp,
// DeleteField, Increment and ArrayUnion.
type Fields map[string]any

// SetOption changes how Set writes a document.
type SetOption int

// MergeAll makes Set update only the given fields, creating the document if needed.
const MergeAll SetOption = 1

func isMerge(opts []SetOption) bool {
	for _, o := range opts {
		if o == MergeAll {
			return true
		}
	}
	return false
}

// Snapshot is the state of a document at read time.
type Snapshot struct {
	Ref    Ref
	data   map[string]any
	exists bool
}

// NewSnapshot returns a snapshot of an existing document.
func NewSnapshot(ref Ref, data map[string]any) *Snapshot {
	if data == nil {
		data = map[string]any{}
	}
	return &Snapshot{Ref: ref, data: data, exists: true}
}

func missingSnapshot(ref Ref) *Snapshot {
	return &Snapshot{Ref: ref}
}

// Exists reports whether the document existed when read.
func (s *Snapshot) Exists() bool {
	return s != nil && s.exists
}

// Data returns the raw document fields. The map must not be modified.
func (s *Snapshot) Data() map[string]any {
	if !s.Exists() {
		return nil
	}
	return s.data
}

// StringField returns a string field, or "" when it is missing or not a string.
func (s *Snapshot) StringField(field string) string {
	v, _ := s.Data()[field].(string)
	return v
}

// IntField returns a numeric field as int64, or 0 when it is missing or not a number.
func (s *Snapshot) IntField(field string) int64 {
	switch x := canonical(s.Data()[field]).(type) {
	case int64:
		return x
	case float64:
		return int64(x)
	default:
		return 0
	}
}

// DataTo decodes the document into v using its json tags.
func (s *Snapshot) DataTo(v any) error {
	if !s.Exists() {
		return fmt.Errorf("%w: %s", ErrNotFound, s.Ref)
	}
	raw, err := json.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("docstore: encode %s: %w", s.Ref, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("docstore: decode %s: %w", s.Ref, err)
	}
	return nil
}

// Tx is the view of the store inside a transaction.
type Tx interface {
	// Get returns the document; a missing document yields a snapshot whose Exists is false.
	Get(ref Ref) (*Snapshot, error)
	Query(q Query) ([]*Snapshot, error)
	Create(ref Ref, data Fields) error
	Set(ref Ref, data Fields, opts ...SetOption) error
	// Update fails with ErrNotFound at commit when the document is missing.
	Update(ref Ref, data Fields) error
	// Delete of a missing document is a no-op.
	Delete(ref Ref) error
}

// TxFunc is the body of a transaction.
type TxFunc func(ctx context.Context, tx Tx) error

// Store is a transactional document store.
type Store interface {
	RunTransaction(ctx context.Context, fn TxFunc) error
	Get(ctx context.Context, ref Ref) (*Snapshot, error)
	Query(ctx context.Context, q Query) ([]*Snapshot, error)
	Create(ctx context.Context, ref Ref, data Fields) error
	Set(ctx context.Context, ref Ref, data Fields, opts ...SetOption) error
	Update(ctx context.Context, ref Ref, data Fields) error
	Delete(ctx context.Context, ref Ref) error
	Close() error
}

// CreateWatcher is implemented by stores that can stream document creations.
type CreateWatcher interface {
	// WatchCreates calls fn for every document created in col until ctx is done.
	// It returns nil when ctx is cancelled.
	WatchCreates(ctx context.Context, col CollectionRef, fn func(context.Context, *Snapshot)) error
}
