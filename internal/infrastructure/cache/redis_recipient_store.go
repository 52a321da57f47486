// Package cache provides Redis-backed stores.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/certify/backend/internal/domain/certificate"
	"github.com/certify/backend/internal/domain/shared"
	"github.com/certify/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

const defaultRecipientKeyPrefix = "certificate:recipient:"

// RedisRecipientStore implements RecipientRepository with one Redis hash per
// recipient. Records carry no TTL.
type RedisRecipientStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

var _ certificate.RecipientRepository = (*RedisRecipientStore)(nil)

// NewRedisClient creates a Redis client and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// NewRedisRecipientStore creates a store with an existing Redis client.
// An empty keyPrefix selects "certificate:recipient:".
func NewRedisRecipientStore(client redis.UniversalClient, keyPrefix string) *RedisRecipientStore {
	if keyPrefix == "" {
		keyPrefix = defaultRecipientKeyPrefix
	}
	return &RedisRecipientStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (s *RedisRecipientStore) key(id string) string {
	return s.keyPrefix + id
}

// Exists reports whether a record with the given ID is stored
func (s *RedisRecipientStore) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check recipient existence: %w", err)
	}
	return n > 0, nil
}

// Save writes the recipient hash, replacing fields of an existing record
func (s *RedisRecipientStore) Save(ctx context.Context, recipient *certificate.Recipient) error {
	err := s.client.HSet(ctx, s.key(recipient.ID),
		"id", recipient.ID,
		"name", recipient.Name,
		"grade", recipient.Grade,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to save recipient: %w", err)
	}
	return nil
}

// FindByID returns the recipient with the given ID
func (s *RedisRecipientStore) FindByID(ctx context.Context, id string) (*certificate.Recipient, error) {
	fields, err := s.client.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find recipient: %w", err)
	}
	if len(fields) == 0 {
		return nil, shared.ErrNotFound
	}

	return &certificate.Recipient{
		ID:    id,
		Name:  fields["name"],
		Grade: fields["grade"],
	}, nil
}
