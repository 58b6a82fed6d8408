package mediastore

import (
	"context"
	"fmt"
	"sync"
)

// Memory keeps a set of objects of one bucket in process. Used by tests and the memory backend.
type Memory struct {
	bucket string

	mu      sync.Mutex
	objects map[Object]bool
	deleted []Object
}

// NewMemory returns an empty store for bucket.
func NewMemory(bucket string) *Memory {
	return &Memory{bucket: bucket, objects: make(map[Object]bool)}
}

// Resolve returns the object behind mediaURL if it lives in the store's bucket.
func (m *Memory) Resolve(mediaURL string) (Object, error) {
	return resolveIn(m.bucket, mediaURL)
}

// Put records an object as present. Objects of other buckets may be put so tests can check
// they are left alone.
func (m *Memory) Put(mediaURL string) error {
	obj, err := ParseURL(mediaURL)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[obj] = true
	return nil
}

// Exists reports whether the object is present.
func (m *Memory) Exists(mediaURL string) bool {
	obj, err := ParseURL(mediaURL)
	if err != nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objects[obj]
}

// Deleted returns the objects removed so far, in order.
func (m *Memory) Deleted() []Object {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Object(nil), m.deleted...)
}

// Delete removes the object. URLs outside the bucket are refused.
func (m *Memory) Delete(ctx context.Context, mediaURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	obj, err := m.Resolve(mediaURL)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.objects[obj] {
		return fmt.Errorf("%w: %s", ErrNotFound, obj)
	}
	delete(m.objects, obj)
	m.deleted = append(m.deleted, obj)
	return nil
}
