package repository

import (
	"context"
	"sync"
	"time"

	"github.com/signet-id/signet/internal/models"
)

// MemoryRevocationStore keeps revocation records in process. Verification is
// read-heavy, so lookups take the read lock; expired records are purged
// lazily when touched.
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	records map[string]models.RevocationRecord
}

// NewMemoryRevocationStore constructs an empty in-memory revocation table.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{records: make(map[string]models.RevocationRecord)}
}

// Put records a freshly issued token.
func (s *MemoryRevocationStore) Put(ctx context.Context, rec *models.RevocationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.TokenID] = *rec
	return nil
}

// Get returns the record for tokenID, dropping it when past its expiry.
func (s *MemoryRevocationStore) Get(ctx context.Context, tokenID string) (*models.RevocationRecord, error) {
	s.mu.RLock()
	rec, ok := s.records[tokenID]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if rec.Expired(time.Now().UTC()) {
		s.mu.Lock()
		delete(s.records, tokenID)
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	return &rec, nil
}

// Delete removes the record, revoking the token. Returns ErrNotFound when
// the token was already revoked or never tracked.
func (s *MemoryRevocationStore) Delete(ctx context.Context, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[tokenID]; !ok {
		return ErrNotFound
	}
	delete(s.records, tokenID)
	return nil
}

// Sweep drops all expired records. Callers may run it periodically; nothing
// depends on prompt cleanup beyond memory usage.
func (s *MemoryRevocationStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, rec := range s.records {
		if rec.Expired(now) {
			delete(s.records, id)
			removed++
		}
	}
	return removed
}
