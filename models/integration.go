package models

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Integration holds the OAuth credential and provider-side tenant identifier
// for one (account, provider) pair. It is created by the OAuth callback and
// read-only to the sync path.
type Integration struct {
	ID           string              `gorm:"primaryKey;size:36" json:"id"`
	AccountId    string              `gorm:"size:36;not null;uniqueIndex:idx_integrations_account_provider" json:"account_id"`
	Provider     IntegrationProvider `gorm:"size:32;not null;uniqueIndex:idx_integrations_account_provider" json:"provider"`
	AccessToken  string              `gorm:"type:text" json:"-"`
	RefreshToken string              `gorm:"type:text" json:"-"`
	Status       IntegrationStatus   `gorm:"size:20;not null;default:'active'" json:"status"`
	Metadata     datatypes.JSON      `json:"metadata"`
	CreatedAt    time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

func (i *Integration) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

type integrationMetadata struct {
	RealmId string `json:"realmId"`
}

// RealmId extracts the provider-side tenant identifier from the metadata
// blob. Empty string means the integration cannot be used for API calls.
func (i *Integration) RealmId() string {
	if len(i.Metadata) == 0 {
		return ""
	}
	var meta integrationMetadata
	if err := json.Unmarshal(i.Metadata, &meta); err != nil {
		return ""
	}
	return strings.TrimSpace(meta.RealmId)
}

// ConnectIntegration upserts the (account, provider) integration on OAuth
// completion, marking it active with fresh tokens.
func ConnectIntegration(ctx context.Context, db *gorm.DB, accountId string, provider IntegrationProvider, accessToken, refreshToken, realmId string) (*Integration, error) {
	metadata, err := json.Marshal(integrationMetadata{RealmId: realmId})
	if err != nil {
		return nil, err
	}

	integration := Integration{
		AccountId:    accountId,
		Provider:     provider,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Status:       IntegrationStatusActive,
		Metadata:     metadata,
	}
	err = db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}, {Name: "provider"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token", "refresh_token", "status", "metadata", "updated_at",
		}),
	}).Create(&integration).Error
	if err != nil {
		return nil, err
	}

	var stored Integration
	err = db.WithContext(ctx).
		Where("account_id = ? AND provider = ?", accountId, provider).
		Take(&stored).Error
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// GetActiveIntegration returns the account's active integration for the
// provider, or gorm.ErrRecordNotFound when none is connected.
func GetActiveIntegration(ctx context.Context, db *gorm.DB, accountId string, provider IntegrationProvider) (*Integration, error) {
	var integration Integration
	err := db.WithContext(ctx).
		Where("account_id = ? AND provider = ? AND status = ?", accountId, provider, IntegrationStatusActive).
		Take(&integration).Error
	if err != nil {
		return nil, err
	}
	return &integration, nil
}
