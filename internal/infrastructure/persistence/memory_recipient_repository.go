package persistence

import (
	"context"
	"sync"

	"github.com/certify/backend/internal/domain/certificate"
	"github.com/certify/backend/internal/domain/shared"
)

// MemoryRecipientRepository is a process-local RecipientRepository for
// development and tests. Records do not survive a restart.
type MemoryRecipientRepository struct {
	mu      sync.RWMutex
	records map[string]certificate.Recipient
	saves   int
}

// NewMemoryRecipientRepository creates an empty MemoryRecipientRepository
func NewMemoryRecipientRepository() *MemoryRecipientRepository {
	return &MemoryRecipientRepository{records: make(map[string]certificate.Recipient)}
}

var _ certificate.RecipientRepository = (*MemoryRecipientRepository)(nil)

// Exists reports whether a record with the given ID is stored
func (r *MemoryRecipientRepository) Exists(ctx context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.records[id]
	return ok, nil
}

// Save stores a copy of the recipient, replacing any record with the same ID
func (r *MemoryRecipientRepository) Save(ctx context.Context, recipient *certificate.Recipient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[recipient.ID] = *recipient
	r.saves++
	return nil
}

// FindByID returns a copy of the stored recipient
func (r *MemoryRecipientRepository) FindByID(ctx context.Context, id string) (*certificate.Recipient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &rec, nil
}

// Len returns the number of stored records
func (r *MemoryRecipientRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Saves returns how many times Save has been called
func (r *MemoryRecipientRepository) Saves() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}
