package store

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/mediavault/internal/asset"
	"github.com/dmitrijs2005/mediavault/internal/common"
)

// MemoryStore is an in-memory Store. It backs tests and deployments
// where the CMS document store is reached through another adapter.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*asset.Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*asset.Record)}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*asset.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) Create(ctx context.Context, rec *asset.Record) (*asset.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[rec.ID]; ok {
		cp := *existing
		return &cp, nil
	}

	cp := *rec
	s.records[rec.ID] = &cp
	out := cp
	return &out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return common.ErrorNotFound
	}
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) ExistingFingerprints(ctx context.Context, fingerprints []string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byFingerprint := make(map[string]bool, len(fingerprints))
	for _, rec := range s.records {
		byFingerprint[rec.Fingerprint] = true
	}

	out := make(map[string]bool, len(fingerprints))
	for _, fp := range fingerprints {
		if byFingerprint[fp] {
			out[fp] = true
		}
	}
	return out, nil
}

// Len reports the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
