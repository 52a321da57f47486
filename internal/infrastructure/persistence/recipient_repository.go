package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/certify/backend/internal/domain/certificate"
	"github.com/certify/backend/internal/domain/shared"
	"github.com/certify/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRecipientRepository implements RecipientRepository using GORM
type GormRecipientRepository struct {
	db    *gorm.DB
	table string
}

// NewGormRecipientRepository creates a new GormRecipientRepository.
// An empty table name selects users_certificates.
func NewGormRecipientRepository(db *gorm.DB, table string) *GormRecipientRepository {
	if table == "" {
		table = models.RecipientTableName
	}
	return &GormRecipientRepository{db: db, table: table}
}

// Ensure GormRecipientRepository implements RecipientRepository
var _ certificate.RecipientRepository = (*GormRecipientRepository)(nil)

func (r *GormRecipientRepository) scoped(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table(r.table)
}

// Exists reports whether a record with the given ID is stored
func (r *GormRecipientRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.scoped(ctx).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check recipient existence: %w", err)
	}
	return count > 0, nil
}

// Save inserts the recipient, replacing name and grade if the ID exists
func (r *GormRecipientRepository) Save(ctx context.Context, recipient *certificate.Recipient) error {
	model := models.RecipientModelFromDomain(recipient)
	err := r.scoped(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "grade", "updated_at"}),
		}).
		Create(model).Error
	if err != nil {
		return fmt.Errorf("failed to save recipient: %w", err)
	}
	return nil
}

// FindByID returns the recipient with the given ID
func (r *GormRecipientRepository) FindByID(ctx context.Context, id string) (*certificate.Recipient, error) {
	var model models.RecipientModel
	if err := r.scoped(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find recipient: %w", err)
	}
	return model.ToDomain(), nil
}
