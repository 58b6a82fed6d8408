package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps documents in process memory. Transactions are serialized, so they never
// conflict. It backs tests and local development.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[Ref]map[string]any
	now  func() time.Time

	watchMu  sync.Mutex
	watchers []*memoryWatcher
}

type memoryWatcher struct {
	col  CollectionRef
	ch   chan *Snapshot
	done chan struct{}
}

// NewMemory returns an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		docs: make(map[Ref]map[string]any),
		now:  time.Now,
	}
}

// SetClock replaces the time source used for ServerTimestamp.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// RunTransaction runs fn with exclusive access to the store and commits its writes atomically.
func (s *MemoryStore) RunTransaction(ctx context.Context, fn TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	tx := &memoryTx{store: s}
	if err := fn(ctx, tx); err != nil {
		s.mu.Unlock()
		return err
	}
	created, err := tx.commit()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	for _, snap := range created {
		s.notify(snap)
	}
	return nil
}

// Get returns a snapshot of the document.
func (s *MemoryStore) Get(ctx context.Context, ref Ref) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(ref), nil
}

// Query returns the documents matching q ordered by path.
func (s *MemoryStore) Query(ctx context.Context, q Query) ([]*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query(q), nil
}

// Create writes a new document.
func (s *MemoryStore) Create(ctx context.Context, ref Ref, data Fields) error {
	return s.RunTransaction(ctx, func(_ context.Context, tx Tx) error {
		return tx.Create(ref, data)
	})
}

// Set writes the document, replacing it unless MergeAll is given.
func (s *MemoryStore) Set(ctx context.Context, ref Ref, data Fields, opts ...SetOption) error {
	return s.RunTransaction(ctx, func(_ context.Context, tx Tx) error {
		return tx.Set(ref, data, opts...)
	})
}

// Update changes fields of an existing document.
func (s *MemoryStore) Update(ctx context.Context, ref Ref, data Fields) error {
	return s.RunTransaction(ctx, func(_ context.Context, tx Tx) error {
		return tx.Update(ref, data)
	})
}

// Delete removes the document.
func (s *MemoryStore) Delete(ctx context.Context, ref Ref) error {
	return s.RunTransaction(ctx, func(_ context.Context, tx Tx) error {
		return tx.Delete(ref)
	})
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// WatchCreates streams documents created in col until ctx is done.
func (s *MemoryStore) WatchCreates(ctx context.Context, col CollectionRef, fn func(context.Context, *Snapshot)) error {
	w := &memoryWatcher{col: col, ch: make(chan *Snapshot), done: make(chan struct{})}

	s.watchMu.Lock()
	s.watchers = append(s.watchers, w)
	s.watchMu.Unlock()

	defer func() {
		s.watchMu.Lock()
		for i, other := range s.watchers {
			if other == w {
				s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
				break
			}
		}
		s.watchMu.Unlock()
		close(w.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap := <-w.ch:
			fn(ctx, snap)
		}
	}
}

func (s *MemoryStore) notify(snap *Snapshot) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for _, w := range s.watchers {
		if w.col != snap.Ref.Parent() {
			continue
		}
		go func(w *memoryWatcher) {
			select {
			case w.ch <- snap:
			case <-w.done:
			}
		}(w)
	}
}

func (s *MemoryStore) snapshot(ref Ref) *Snapshot {
	data, ok := s.docs[ref]
	if !ok {
		return missingSnapshot(ref)
	}
	return NewSnapshot(ref, canonicalMap(data))
}

func (s *MemoryStore) query(q Query) []*Snapshot {
	var refs []Ref
	for ref, data := range s.docs {
		if ref.Parent() == q.collection && matches(data, q.filters) {
			refs = append(refs, ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })
	if q.limit > 0 && len(refs) > q.limit {
		refs = refs[:q.limit]
	}

	out := make([]*Snapshot, 0, len(refs))
	for _, ref := range refs {
		out = append(out, s.snapshot(ref))
	}
	return out
}

type writeKind int

const (
	writeCreate writeKind = iota
	writeSet
	writeMerge
	writeUpdate
	writeDelete
)

type memoryWrite struct {
	kind writeKind
	ref  Ref
	data Fields
}

type memoryTx struct {
	store  *MemoryStore
	writes []memoryWrite
}

func (t *memoryTx) Get(ref Ref) (*Snapshot, error) {
	if len(t.writes) > 0 {
		return nil, ErrReadAfterWrite
	}
	return t.store.snapshot(ref), nil
}

func (t *memoryTx) Query(q Query) ([]*Snapshot, error) {
	if len(t.writes) > 0 {
		return nil, ErrReadAfterWrite
	}
	return t.store.query(q), nil
}

func (t *memoryTx) Create(ref Ref, data Fields) error {
	t.writes = append(t.writes, memoryWrite{kind: writeCreate, ref: ref, data: data})
	return nil
}

func (t *memoryTx) Set(ref Ref, data Fields, opts ...SetOption) error {
	kind := writeSet
	if isMerge(opts) {
		kind = writeMerge
	}
	t.writes = append(t.writes, memoryWrite{kind: kind, ref: ref, data: data})
	return nil
}

func (t *memoryTx) Update(ref Ref, data Fields) error {
	t.writes = append(t.writes, memoryWrite{kind: writeUpdate, ref: ref, data: data})
	return nil
}

func (t *memoryTx) Delete(ref Ref) error {
	t.writes = append(t.writes, memoryWrite{kind: writeDelete, ref: ref})
	return nil
}

// commit applies the buffered writes all-or-nothing. The caller holds the store lock.
func (t *memoryTx) commit() ([]*Snapshot, error) {
	now := t.store.now()
	staged := make(map[Ref]map[string]any)
	deleted := make(map[Ref]bool)

	current := func(ref Ref) (map[string]any, bool) {
		if deleted[ref] {
			return nil, false
		}
		if data, ok := staged[ref]; ok {
			return data, true
		}
		data, ok := t.store.docs[ref]
		return data, ok
	}

	for _, w := range t.writes {
		existing, exists := current(w.ref)
		switch w.kind {
		case writeCreate:
			if exists {
				return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, w.ref)
			}
			staged[w.ref] = resolveMap(w.data, now)
		case writeSet:
			staged[w.ref] = resolveMap(w.data, now)
		case writeMerge, writeUpdate:
			if !exists && w.kind == writeUpdate {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, w.ref)
			}
			next := canonicalMap(existing)
			applyFields(next, w.data, now)
			staged[w.ref] = next
		case writeDelete:
			delete(staged, w.ref)
			deleted[w.ref] = true
			continue
		}
		delete(deleted, w.ref)
	}

	var created []*Snapshot
	for ref := range deleted {
		delete(t.store.docs, ref)
	}
	for ref, data := range staged {
		if _, existed := t.store.docs[ref]; !existed {
			created = append(created, NewSnapshot(ref, canonicalMap(data)))
		}
		t.store.docs[ref] = data
	}
	return created, nil
}
