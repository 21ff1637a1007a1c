package repository

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu   sync.Mutex
	seq  int64
	docs map[string]Document
}

// NewMemoryStore crea un DocumentStore en memoria, util para tests y desarrollo local.
func NewMemoryStore() DocumentStore {
	return &memoryStore{
		docs: make(map[string]Document),
	}
}

func (s *memoryStore) Get(_ context.Context, path string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[path]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{Value: append([]byte(nil), doc.Value...), Version: doc.Version}, nil
}

func (s *memoryStore) Create(_ context.Context, path string, value []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[path]; ok {
		return 0, ErrExists
	}
	s.seq++
	s.docs[path] = Document{Value: append([]byte(nil), value...), Version: s.seq}
	return s.seq, nil
}

func (s *memoryStore) Set(_ context.Context, path string, value []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.docs[path] = Document{Value: append([]byte(nil), value...), Version: s.seq}
	return s.seq, nil
}

func (s *memoryStore) CompareAndSwap(_ context.Context, path string, version int64, value []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[path]
	if !ok {
		return 0, ErrNotFound
	}
	if doc.Version != version {
		return 0, ErrVersionConflict
	}
	s.seq++
	next := Document{Value: append([]byte(nil), value...), Version: s.seq}
	s.docs[path] = next
	return next.Version, nil
}

func (s *memoryStore) CompareAndDelete(_ context.Context, path string, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[path]
	if !ok {
		return ErrNotFound
	}
	if doc.Version != version {
		return ErrVersionConflict
	}
	delete(s.docs, path)
	return nil
}

