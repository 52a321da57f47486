// Package models holds the GORM models repositories convert domain entities to.
package models

import (
	"time"

	"github.com/certify/backend/internal/domain/certificate"
)

// RecipientTableName is the default table holding recipient records
const RecipientTableName = "users_certificates"

// RecipientModel is the persistence model for a certificate recipient
type RecipientModel struct {
	ID        string    `gorm:"type:varchar(255);primaryKey"`
	Name      string    `gorm:"type:varchar(255);not null"`
	Grade     string    `gorm:"type:varchar(64);not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the default table name
func (RecipientModel) TableName() string {
	return RecipientTableName
}

// ToDomain converts the model to a domain Recipient
func (m *RecipientModel) ToDomain() *certificate.Recipient {
	return &certificate.Recipient{
		ID:    m.ID,
		Name:  m.Name,
		Grade: m.Grade,
	}
}

// RecipientModelFromDomain converts a domain Recipient to its model
func RecipientModelFromDomain(r *certificate.Recipient) *RecipientModel {
	return &RecipientModel{
		ID:    r.ID,
		Name:  r.Name,
		Grade: r.Grade,
	}
}
