package docstore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore is the production backend on Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestore wraps an initialized Firestore client.
func NewFirestore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

// RunTransaction runs fn in a Firestore transaction, retried by the client on contention.
func (s *FirestoreStore) RunTransaction(ctx context.Context, fn TxFunc) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(ctx, &firestoreTx{store: s, tx: tx})
	})
	return translateFirestoreError(err)
}

// Get returns a snapshot of the document.
func (s *FirestoreStore) Get(ctx context.Context, ref Ref) (*Snapshot, error) {
	ds, err := s.client.Doc(string(ref)).Get(ctx)
	return fromFirestore(ref, ds, err)
}

// Query runs q outside a transaction.
func (s *FirestoreStore) Query(ctx context.Context, q Query) ([]*Snapshot, error) {
	docs, err := s.query(q).Documents(ctx).GetAll()
	if err != nil {
		return nil, translateFirestoreError(err)
	}
	return firestoreSnapshots(q.collection, docs), nil
}

// Create writes a new document.
func (s *FirestoreStore) Create(ctx context.Context, ref Ref, data Fields) error {
	_, err := s.client.Doc(string(ref)).Create(ctx, toFirestoreMap(data))
	return translateFirestoreError(err)
}

// Set writes the document, replacing it unless MergeAll is given.
func (s *FirestoreStore) Set(ctx context.Context, ref Ref, data Fields, opts ...SetOption) error {
	_, err := s.client.Doc(string(ref)).Set(ctx, toFirestoreMap(data), firestoreSetOptions(opts)...)
	return translateFirestoreError(err)
}

// Update changes fields of an existing document.
func (s *FirestoreStore) Update(ctx context.Context, ref Ref, data Fields) error {
	_, err := s.client.Doc(string(ref)).Update(ctx, firestoreUpdates(data))
	return translateFirestoreError(err)
}

// Delete removes the document.
func (s *FirestoreStore) Delete(ctx context.Context, ref Ref) error {
	_, err := s.client.Doc(string(ref)).Delete(ctx)
	return translateFirestoreError(err)
}

// Close releases the client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// WatchCreates listens to col and reports every added document. The first snapshot
// contains every existing document, so fn must tolerate documents it has already handled.
func (s *FirestoreStore) WatchCreates(ctx context.Context, col CollectionRef, fn func(context.Context, *Snapshot)) error {
	it := s.client.Collection(string(col)).Snapshots(ctx)
	defer it.Stop()

	for {
		qs, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled {
				return nil
			}
			return fmt.Errorf("docstore: watch %s: %w", col, err)
		}
		for _, change := range qs.Changes {
			if change.Kind != firestore.DocumentAdded {
				continue
			}
			fn(ctx, NewSnapshot(col.Doc(change.Doc.Ref.ID), change.Doc.Data()))
		}
	}
}

func (s *FirestoreStore) query(q Query) firestore.Query {
	fq := s.client.Collection(string(q.collection)).Query
	for _, f := range q.filters {
		fq = fq.Where(f.Field, "==", f.Value)
	}
	if q.limit > 0 {
		fq = fq.Limit(q.limit)
	}
	return fq
}

type firestoreTx struct {
	store *FirestoreStore
	tx    *firestore.Transaction
}

func (t *firestoreTx) Get(ref Ref) (*Snapshot, error) {
	ds, err := t.tx.Get(t.store.client.Doc(string(ref)))
	return fromFirestore(ref, ds, err)
}

func (t *firestoreTx) Query(q Query) ([]*Snapshot, error) {
	docs, err := t.tx.Documents(t.store.query(q)).GetAll()
	if err != nil {
		return nil, err
	}
	return firestoreSnapshots(q.collection, docs), nil
}

func (t *firestoreTx) Create(ref Ref, data Fields) error {
	return t.tx.Create(t.store.client.Doc(string(ref)), toFirestoreMap(data))
}

func (t *firestoreTx) Set(ref Ref, data Fields, opts ...SetOption) error {
	return t.tx.Set(t.store.client.Doc(string(ref)), toFirestoreMap(data), firestoreSetOptions(opts)...)
}

func (t *firestoreTx) Update(ref Ref, data Fields) error {
	return t.tx.Update(t.store.client.Doc(string(ref)), firestoreUpdates(data))
}

func (t *firestoreTx) Delete(ref Ref) error {
	return t.tx.Delete(t.store.client.Doc(string(ref)))
}

func fromFirestore(ref Ref, ds *firestore.DocumentSnapshot, err error) (*Snapshot, error) {
	if status.Code(err) == codes.NotFound {
		return missingSnapshot(ref), nil
	}
	if err != nil {
		return nil, err
	}
	if !ds.Exists() {
		return missingSnapshot(ref), nil
	}
	return NewSnapshot(ref, ds.Data()), nil
}

func firestoreSnapshots(col CollectionRef, docs []*firestore.DocumentSnapshot) []*Snapshot {
	out := make([]*Snapshot, 0, len(docs))
	for _, ds := range docs {
		out = append(out, NewSnapshot(col.Doc(ds.Ref.ID), ds.Data()))
	}
	return out
}

func firestoreSetOptions(opts []SetOption) []firestore.SetOption {
	if isMerge(opts) {
		return []firestore.SetOption{firestore.MergeAll}
	}
	return nil
}

func firestoreUpdates(data Fields) []firestore.Update {
	updates := make([]firestore.Update, 0, len(data))
	for k, v := range data {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: toFirestoreValue(v)})
	}
	return updates
}

func toFirestoreMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = toFirestoreValue(v)
	}
	return out
}

func toFirestoreValue(v any) any {
	switch x := v.(type) {
	case sentinel:
		if x == deleteField {
			return firestore.Delete
		}
		return firestore.ServerTimestamp
	case increment:
		return firestore.Increment(x.n)
	case arrayUnion:
		return firestore.ArrayUnion(x.elems...)
	case Fields:
		return toFirestoreMap(x)
	case map[string]any:
		return toFirestoreMap(x)
	default:
		return v
	}
}

func translateFirestoreError(err error) error {
	switch status.Code(err) {
	case codes.OK:
		return err
	case codes.NotFound:
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %v", ErrAlreadyExists, err)
	default:
		return err
	}
}
