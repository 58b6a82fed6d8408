package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultTxAttempts = 5

// document is the single table holding every document as JSON.
type document struct {
	Path       string         `gorm:"primaryKey;size:768"`
	Collection string         `gorm:"size:768;index"`
	Data       datatypes.JSON `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName pins the table name.
func (document) TableName() string {
	return "documents"
}

// PostgresStore keeps documents as JSON rows. Transactions lock the rows they read and are
// retried on serialization failures, deadlocks and inserts racing a read of the same missing
// path. The *gorm.DB must be opened with TranslateError enabled.
type PostgresStore struct {
	db          *gorm.DB
	maxAttempts int
}

// NewPostgres migrates the documents table and returns the store.
func NewPostgres(db *gorm.DB) (*PostgresStore, error) {
	if err := db.AutoMigrate(&document{}); err != nil {
		return nil, fmt.Errorf("docstore: migrate documents: %w", err)
	}
	return &PostgresStore{db: db, maxAttempts: defaultTxAttempts}, nil
}

// RunTransaction runs fn in a database transaction, re-running it on conflicts.
func (s *PostgresStore) RunTransaction(ctx context.Context, fn TxFunc) error {
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(ctx, &postgresTx{tx: tx, readMissing: map[Ref]bool{}})
		})
		if err == nil || !retryablePostgresError(err) {
			return err
		}
	}
	return err
}

// Get returns a snapshot of the document.
func (s *PostgresStore) Get(ctx context.Context, ref Ref) (*Snapshot, error) {
	return (&postgresTx{tx: s.db.WithContext(ctx), unlocked: true}).Get(ref)
}

// Query runs q outside a transaction.
func (s *PostgresStore) Query(ctx context.Context, q Query) ([]*Snapshot, error) {
	return (&postgresTx{tx: s.db.WithContext(ctx), unlocked: true}).Query(q)
}

// Create writes a new document.
func (s *PostgresStore) Create(ctx context.Context, ref Ref, data Fields) error {
	return s.RunTransaction(ctx, func(_ context.Context, tx Tx) error {
		return tx.Create(ref, data)
	})
}

// Set writes the document, replacing it unless MergeAll is given.
func (s *PostgresStore) Set(ctx context.Context, ref Ref, data Fields, opts ...SetOption) error {
	return s.RunTransaction(ctx, func(_ context.Context, tx Tx) error {
		return tx.Set(ref, data, opts...)
	})
}

// Update changes fields of an existing document.
func (s *PostgresStore) Update(ctx context.Context, ref Ref, data Fields) error {
	return s.RunTransaction(ctx, func(_ context.Context, tx Tx) error {
		return tx.Update(ref, data)
	})
}

// Delete removes the document.
func (s *PostgresStore) Delete(ctx context.Context, ref Ref) error {
	return s.RunTransaction(ctx, func(_ context.Context, tx Tx) error {
		return tx.Delete(ref)
	})
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func retryablePostgresError(err error) bool {
	if errors.Is(err, errConcurrentCreate) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure, deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

type postgresTx struct {
	tx          *gorm.DB
	unlocked    bool
	readMissing map[Ref]bool // row locks cannot cover documents read as missing
}

func (t *postgresTx) Get(ref Ref) (*Snapshot, error) {
	data, ok, err := t.load(ref)
	if err != nil {
		return nil, err
	}
	if !ok {
		t.markMissing(ref)
		return missingSnapshot(ref), nil
	}
	return NewSnapshot(ref, data), nil
}

func (t *postgresTx) Query(q Query) ([]*Snapshot, error) {
	db := t.tx.Where("collection = ?", string(q.collection))
	for _, f := range q.filters {
		db = db.Where(datatypes.JSONQuery("data").Equals(f.Value, f.Field))
	}
	if q.limit > 0 {
		db = db.Limit(q.limit)
	}
	if !t.unlocked {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var docs []document
	if err := db.Order("path").Find(&docs).Error; err != nil {
		return nil, err
	}
	out := make([]*Snapshot, 0, len(docs))
	for _, d := range docs {
		data, err := decodeDocument(d)
		if err != nil {
			return nil, err
		}
		out = append(out, NewSnapshot(Ref(d.Path), data))
	}
	return out, nil
}

func (t *postgresTx) Create(ref Ref, data Fields) error {
	doc, err := newDocument(ref, resolveMap(data, time.Now()))
	if err != nil {
		return err
	}
	if err := t.tx.Create(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if t.readMissing[ref] {
				return fmt.Errorf("%w: %s", errConcurrentCreate, ref)
			}
			return fmt.Errorf("%w: %s: %w", ErrAlreadyExists, ref, err)
		}
		return err
	}
	return nil
}

func (t *postgresTx) markMissing(ref Ref) {
	if t.readMissing != nil {
		t.readMissing[ref] = true
	}
}

func (t *postgresTx) Set(ref Ref, data Fields, opts ...SetOption) error {
	if !isMerge(opts) {
		return t.save(ref, resolveMap(data, time.Now()))
	}
	current, _, err := t.load(ref)
	if err != nil {
		return err
	}
	if current == nil {
		current = map[string]any{}
	}
	applyFields(current, data, time.Now())
	return t.save(ref, current)
}

func (t *postgresTx) Update(ref Ref, data Fields) error {
	current, ok, err := t.load(ref)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	applyFields(current, data, time.Now())
	return t.save(ref, current)
}

func (t *postgresTx) Delete(ref Ref) error {
	return t.tx.Where("path = ?", string(ref)).Delete(&document{}).Error
}

func (t *postgresTx) load(ref Ref) (map[string]any, bool, error) {
	db := t.tx
	if !t.unlocked {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var doc document
	err := db.Where("path = ?", string(ref)).Take(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	data, err := decodeDocument(doc)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (t *postgresTx) save(ref Ref, data map[string]any) error {
	doc, err := newDocument(ref, data)
	if err != nil {
		return err
	}
	return t.tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&doc).Error
}

func newDocument(ref Ref, data map[string]any) (document, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return document{}, fmt.Errorf("docstore: encode %s: %w", ref, err)
	}
	return document{Path: string(ref), Collection: string(ref.Parent()), Data: datatypes.JSON(raw)}, nil
}

func decodeDocument(d document) (map[string]any, error) {
	data := map[string]any{}
	if err := json.Unmarshal(d.Data, &data); err != nil {
		return nil, fmt.Errorf("docstore: decode %s: %w", d.Path, err)
	}
	return data, nil
}
