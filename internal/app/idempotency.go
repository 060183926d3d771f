package app

import (
	"sync"
	"time"

	"github.com/neomorfeo/ledgerlab/internal/domain"
)

// IdempotencyStore guarantees at-most-one execution of a producer per key
// and returns the original result unchanged on every replay, regardless of
// whether the caller's payload differs from the first call. Records live
// for the process lifetime; no eviction or TTL is defined.
//
// The store is an injectable struct rather than a package-level map so
// tests can reset state by constructing a fresh one.
type IdempotencyStore struct {
	mu      sync.Mutex
	records map[string]*domain.IdempotencyRecord
}

// NewIdempotencyStore creates an empty store.
func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{records: make(map[string]*domain.IdempotencyRecord)}
}

// GetOrCreate returns the stored result for the key if one exists,
// reporting replayed=true, or invokes the producer exactly once and stores
// its result. Keys are namespaced by operation so the same caller token
// cannot collide across operation kinds. A producer error stores nothing;
// the next call with the same key runs the producer again.
//
// The lock is held across the producer call. That serializes writers
// sharing the store, which is the price of the exactly-once guarantee
// under concurrent callers.
func (s *IdempotencyStore) GetOrCreate(key, operation, tenantID string, producer func() ([]byte, error)) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	storageKey := operation + ":" + key
	if rec, ok := s.records[storageKey]; ok {
		rec.ReplayCount++
		return cloneBytes(rec.Result), true, nil
	}

	result, err := producer()
	if err != nil {
		return nil, false, err
	}

	s.records[storageKey] = &domain.IdempotencyRecord{
		Key:       key,
		Operation: operation,
		TenantID:  tenantID,
		Result:    cloneBytes(result),
		CreatedAt: time.Now().UTC(),
	}

	return result, false, nil
}

// Record returns a copy of the stored record for a key, if present.
func (s *IdempotencyStore) Record(key, operation string) (domain.IdempotencyRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[operation+":"+key]
	if !ok {
		return domain.IdempotencyRecord{}, false
	}
	out := *rec
	out.Result = cloneBytes(rec.Result)
	return out, true
}

// Len returns the number of stored records.
func (s *IdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// cloneBytes keeps stored results immutable against caller mutation.
func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
