package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrObjectNotFound is returned by Open for an unknown path
var ErrObjectNotFound = errors.New("media object not found")

// Object is an open media object. Callers must Close it.
type Object struct {
	io.ReadCloser
	ContentType string
	Size        int64
}

// MediaStore persists uploaded files under slash-separated paths
type MediaStore interface {
	Put(ctx context.Context, path, contentType string, r io.Reader) error
	Open(ctx context.Context, path string) (*Object, error)
}

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryStore keeps objects in memory
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

func (s *MemoryStore) Put(ctx context.Context, path, contentType string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read upload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = memoryObject{data: data, contentType: contentType}
	return nil
}

func (s *MemoryStore) Open(ctx context.Context, path string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[path]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return &Object{
		ReadCloser:  io.NopCloser(bytes.NewReader(obj.data)),
		ContentType: obj.contentType,
		Size:        int64(len(obj.data)),
	}, nil
}

// Len returns the number of stored objects
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
