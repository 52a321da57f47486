package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/certify/backend/internal/domain/certificate"
	"go.uber.org/zap"
)

// ObjectStorage is the object store a Publisher writes to
type ObjectStorage interface {
	// Upload writes data under storageKey, replacing any existing object
	Upload(ctx context.Context, storageKey string, data []byte, contentType string, public bool) error
	// ObjectExists reports whether an object is stored under storageKey
	ObjectExists(ctx context.Context, storageKey string) (bool, error)
	// PublicURL returns the public URL of storageKey
	PublicURL(storageKey string) string
}

// Publisher publishes certificate PDFs under their deterministic key
type Publisher struct {
	store  ObjectStorage
	logger *zap.Logger
}

// NewPublisher creates a Publisher over the given object storage
func NewPublisher(store ObjectStorage, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		store:  store,
		logger: logger,
	}
}

// Publish uploads the PDF as {recipientID}.pdf with public read access and
// returns its URL. A second publish for the same recipient replaces the
// object; there is no conflict detection.
func (p *Publisher) Publish(ctx context.Context, recipientID string, pdf []byte) (string, error) {
	if recipientID == "" {
		return "", errors.New("recipient ID is required")
	}
	if len(pdf) == 0 {
		return "", errors.New("artifact is empty")
	}

	key := certificate.ArtifactKey(recipientID)
	if err := p.store.Upload(ctx, key, pdf, certificate.ArtifactContentType, true); err != nil {
		return "", fmt.Errorf("failed to publish certificate %s: %w", key, err)
	}

	url := p.store.PublicURL(key)
	p.logger.Info("Certificate published",
		zap.String("key", key),
		zap.String("url", url),
		zap.Int("bytes", len(pdf)))

	return url, nil
}

// URL returns the public URL a recipient's certificate is published at.
// It is computed, not looked up.
func (p *Publisher) URL(recipientID string) string {
	return p.store.PublicURL(certificate.ArtifactKey(recipientID))
}

// Exists reports whether a certificate has been published for the recipient
func (p *Publisher) Exists(ctx context.Context, recipientID string) (bool, error) {
	return p.store.ObjectExists(ctx, certificate.ArtifactKey(recipientID))
}
