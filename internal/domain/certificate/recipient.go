package certificate

import (
	"strings"

	"github.com/certify/backend/internal/domain/shared"
)

// Recipient is the durable record of a certificate holder.
// A recipient is identified by a caller-supplied ID and is never mutated
// once written under the deduplicating policy.
type Recipient struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Grade string `json:"grade"`
}

// NewRecipient creates a new Recipient, rejecting blank fields
func NewRecipient(id, name, grade string) (*Recipient, error) {
	if strings.TrimSpace(id) == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Recipient ID cannot be empty")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Recipient name cannot be empty")
	}
	if strings.TrimSpace(grade) == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Recipient grade cannot be empty")
	}

	return &Recipient{
		ID:    id,
		Name:  name,
		Grade: grade,
	}, nil
}

// ArtifactKey returns the object key of the recipient's certificate PDF
func (r *Recipient) ArtifactKey() string {
	return ArtifactKey(r.ID)
}
