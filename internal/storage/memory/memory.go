// Package memory is the in-process Store used by tests and single-shot
// CLI sessions.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cory-johannsen/digigm/internal/storage"
)

type collection struct {
	order []string
	docs  map[string]json.RawMessage
}

// Store keeps documents in maps guarded by one mutex.
type Store struct {
	mu    sync.RWMutex
	kinds map[storage.Kind]*collection
}

// New returns an empty Store.
func New() *Store {
	return &Store{kinds: make(map[storage.Kind]*collection)}
}

func (s *Store) collection(kind storage.Kind) *collection {
	c, ok := s.kinds[kind]
	if !ok {
		c = &collection{docs: make(map[string]json.RawMessage)}
		s.kinds[kind] = c
	}
	return c
}

// Get implements storage.Store.
func (s *Store) Get(_ context.Context, kind storage.Kind, id string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.kinds[kind]
	if !ok {
		return nil, storage.ErrNotFound
	}
	doc, ok := c.docs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return clone(doc), nil
}

// List implements storage.Store.
func (s *Store) List(_ context.Context, kind storage.Kind, filter map[string]any) ([]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.kinds[kind]
	if !ok {
		return []json.RawMessage{}, nil
	}
	out := make([]json.RawMessage, 0, len(c.order))
	for _, id := range c.order {
		doc := c.docs[id]
		ok, err := storage.Matches(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, clone(doc))
		}
	}
	return out, nil
}

// Insert implements storage.Store.
func (s *Store) Insert(_ context.Context, kind storage.Kind, id string, doc json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.collection(kind)
	if _, ok := c.docs[id]; ok {
		return storage.ErrExists
	}
	c.docs[id] = clone(doc)
	c.order = append(c.order, id)
	return nil
}

// Update implements storage.Store.
func (s *Store) Update(_ context.Context, kind storage.Kind, id string, patch map[string]any) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.kinds[kind]
	if !ok {
		return nil, storage.ErrNotFound
	}
	doc, ok := c.docs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	merged, err := storage.Merge(doc, patch)
	if err != nil {
		return nil, err
	}
	c.docs[id] = merged
	return clone(merged), nil
}

// Delete implements storage.Store.
func (s *Store) Delete(_ context.Context, kind storage.Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.kinds[kind]
	if !ok {
		return storage.ErrNotFound
	}
	if _, ok := c.docs[id]; !ok {
		return storage.ErrNotFound
	}
	delete(c.docs, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func clone(doc json.RawMessage) json.RawMessage {
	return append(json.RawMessage(nil), doc...)
}
