package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account is the tenant root. Every other record hangs off an account id.
type Account struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// ListAccounts returns every tenant. This is the one store call that is not
// account-scoped; it feeds the daily job.
func ListAccounts(ctx context.Context, db *gorm.DB) ([]Account, error) {
	var accounts []Account
	if err := db.WithContext(ctx).Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func GetAccountById(ctx context.Context, db *gorm.DB, id string) (*Account, error) {
	var account Account
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}
