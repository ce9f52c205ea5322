package storage

import (
	"context"
	"errors"
	"io"
	"sync"
)

// ErrObjectNotFound is returned by MemoryStore for unknown keys.
var ErrObjectNotFound = errors.New("object not found")

// MemoryStore keeps objects in memory. Used for local development and tests.
type MemoryStore struct {
	BaseURL string
	Bucket  string
	// FailWith makes every write fail when set.
	FailWith error

	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func NewMemoryStore(baseURL, bucket string) *MemoryStore {
	return &MemoryStore{BaseURL: baseURL, Bucket: bucket, objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *MemoryStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	m.types[key] = contentType
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return ErrObjectNotFound
	}
	delete(m.objects, key)
	delete(m.types, key)
	return nil
}

func (m *MemoryStore) URL(key string) string {
	return ObjectURL(m.BaseURL, m.Bucket, key)
}

func (m *MemoryStore) Key(downloadURL string) (string, bool) {
	return ObjectKey(m.BaseURL, m.Bucket, downloadURL)
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return m.FailWith
}

// Object returns a stored object and its content type.
func (m *MemoryStore) Object(key string) ([]byte, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	return b, m.types[key], ok
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
