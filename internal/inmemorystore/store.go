package inmemorystore

import (
	"context"
	"maps"
	"sync"

	"github.com/specialistvlad/sweepgrid/internal/cache"
	"github.com/specialistvlad/sweepgrid/internal/fingerprint"
)

// Store is an in-memory implementation of cache.Store using sync.Map.
//
// Keys are independent fingerprints that are written once and read many
// times, which is the access pattern sync.Map is optimized for. Entries are
// copied on the way in and out so callers cannot mutate stored state.
type Store struct {
	entries sync.Map // Key: fingerprint.Fingerprint, Value: *cache.Entry
}

// New creates a new, empty in-memory cache store.
func New() *Store {
	return &Store{}
}

// Get returns the entry for fp, or cache.ErrNotFound.
func (s *Store) Get(ctx context.Context, fp fingerprint.Fingerprint) (*cache.Entry, error) {
	v, ok := s.entries.Load(fp)
	if !ok {
		return nil, cache.ErrNotFound
	}
	return clone(v.(*cache.Entry)), nil
}

// Put stores e, replacing any previous entry with the same fingerprint.
func (s *Store) Put(ctx context.Context, e *cache.Entry) error {
	s.entries.Store(e.Fingerprint, clone(e))
	return nil
}

// Delete removes the entry for fp. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, fp fingerprint.Fingerprint) error {
	s.entries.Delete(fp)
	return nil
}

// Flush is a no-op; there is nothing to write back.
func (s *Store) Flush(ctx context.Context) error {
	return nil
}

// Len counts the stored entries.
func (s *Store) Len() int {
	n := 0
	s.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func clone(e *cache.Entry) *cache.Entry {
	c := *e
	c.Outputs = maps.Clone(e.Outputs)
	return &c
}

var _ cache.Store = (*Store)(nil)
