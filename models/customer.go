package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Customer mirrors the provider's customer record. Rows are replaced
// wholesale on each sync.
type Customer struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	AccountId  string    `gorm:"size:36;index;not null" json:"account_id"`
	ExternalId string    `gorm:"size:64;uniqueIndex;not null" json:"external_id"`
	Name       string    `gorm:"size:100;not null" json:"name"`
	Email      *string   `gorm:"size:100" json:"email"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

func UpsertCustomerByExternalId(ctx context.Context, db *gorm.DB, cust *Customer) (*Customer, error) {
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"account_id", "name", "email", "updated_at",
		}),
	}).Create(cust).Error
	if err != nil {
		return nil, err
	}

	var stored Customer
	if err := db.WithContext(ctx).Where("external_id = ?", cust.ExternalId).Take(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}
