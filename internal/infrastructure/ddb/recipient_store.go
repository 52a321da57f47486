// Package ddb stores recipient records in DynamoDB.
package ddb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/certify/backend/internal/domain/certificate"
	"github.com/certify/backend/internal/domain/shared"
	"github.com/certify/backend/internal/infrastructure/config"
)

// DefaultTableName is the table holding recipient records
const DefaultTableName = "users_certificates"

// API is the subset of the DynamoDB client used by RecipientStore
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// RecipientStore implements RecipientRepository on a DynamoDB table keyed by "id"
type RecipientStore struct {
	client API
	table  string
}

var _ certificate.RecipientRepository = (*RecipientStore)(nil)

// NewClient creates a DynamoDB client. Static keys are optional; without them
// the default AWS credential chain is used.
func NewClient(ctx context.Context, cfg config.DynamoDBConfig, accessKey, secretKey string) (*dynamodb.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if accessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// NewRecipientStore creates a RecipientStore. An empty table selects users_certificates.
func NewRecipientStore(client API, table string) *RecipientStore {
	if table == "" {
		table = DefaultTableName
	}
	return &RecipientStore{client: client, table: table}
}

func keyOf(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}

// Exists reports whether an item with the given ID is stored
func (s *RecipientStore) Exists(ctx context.Context, id string) (bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(s.table),
		Key:                  keyOf(id),
		ProjectionExpression: aws.String("id"),
	})
	if err != nil {
		return false, fmt.Errorf("failed to check recipient existence: %w", err)
	}
	return len(out.Item) > 0, nil
}

// Save puts the recipient item, replacing an existing item with the same ID
func (s *RecipientStore) Save(ctx context.Context, recipient *certificate.Recipient) error {
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item: map[string]types.AttributeValue{
			"id":    &types.AttributeValueMemberS{Value: recipient.ID},
			"name":  &types.AttributeValueMemberS{Value: recipient.Name},
			"grade": &types.AttributeValueMemberS{Value: recipient.Grade},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to save recipient: %w", err)
	}
	return nil
}

// FindByID returns the recipient with the given ID
func (s *RecipientStore) FindByID(ctx context.Context, id string) (*certificate.Recipient, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       keyOf(id),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("recipient table %s not found: %w", s.table, err)
		}
		return nil, fmt.Errorf("failed to find recipient: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, shared.ErrNotFound
	}

	return &certificate.Recipient{
		ID:    id,
		Name:  stringAttr(out.Item, "name"),
		Grade: stringAttr(out.Item, "grade"),
	}, nil
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}
