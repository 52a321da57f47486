package certificate

import "context"

// RecipientRepository defines the interface for recipient persistence
type RecipientRepository interface {
	// Exists reports whether a recipient with the given ID is stored
	Exists(ctx context.Context, id string) (bool, error)
	// Save writes the recipient. For an ID that is already stored the
	// record is replaced; callers applying the deduplicating policy check
	// Exists first.
	Save(ctx context.Context, recipient *Recipient) error
	// FindByID returns the stored recipient or shared.ErrNotFound
	FindByID(ctx context.Context, id string) (*Recipient, error)
}
