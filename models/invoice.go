package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Invoice is the canonical invoice record mirrored from the accounting
// provider. ExternalId is unique across the whole store, not just per
// account: upserts key on it.
type Invoice struct {
	ID                 string          `gorm:"primaryKey;size:36" json:"id"`
	AccountId          string          `gorm:"size:36;index;not null" json:"account_id"`
	ExternalId         string          `gorm:"size:64;uniqueIndex;not null" json:"external_id"`
	AmountDue          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount_due"`
	Currency           string          `gorm:"size:10;not null;default:'usd'" json:"currency"`
	DueDate            time.Time       `gorm:"index;not null" json:"due_date"`
	Status             InvoiceStatus   `gorm:"size:20;not null;default:'pending'" json:"status"`
	CustomerId         *string         `gorm:"size:36" json:"customer_id"`
	ExternalCustomerId *string         `gorm:"size:64" json:"external_customer_id"`
	Metadata           datatypes.JSON  `json:"metadata"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (inv *Invoice) BeforeCreate(tx *gorm.DB) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	return nil
}

// UpsertInvoiceByExternalId inserts or refreshes the row keyed on
// external_id and returns the stored record, so a re-sync of unchanged
// provider data leaves exactly one row per external invoice.
func UpsertInvoiceByExternalId(ctx context.Context, db *gorm.DB, inv *Invoice) (*Invoice, error) {
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"account_id", "amount_due", "currency", "due_date", "status",
			"customer_id", "external_customer_id", "metadata", "updated_at",
		}),
	}).Create(inv).Error
	if err != nil {
		return nil, err
	}

	// On conflict the generated id in inv is not the stored one; read back.
	var stored Invoice
	if err := db.WithContext(ctx).Where("external_id = ?", inv.ExternalId).Take(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// ListInvoices returns the account's invoices ordered by due date, soonest
// first.
func ListInvoices(ctx context.Context, db *gorm.DB, accountId string) ([]Invoice, error) {
	var invoices []Invoice
	err := db.WithContext(ctx).
		Where("account_id = ?", accountId).
		Order("due_date ASC").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

// GetOverdueInvoices returns pending invoices due on or before today.
// An invoice due today counts as overdue by zero days.
func GetOverdueInvoices(ctx context.Context, db *gorm.DB, accountId string, today time.Time) ([]Invoice, error) {
	var invoices []Invoice
	err := db.WithContext(ctx).
		Where("account_id = ? AND status = ? AND due_date <= ?", accountId, InvoiceStatusPending, today).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}
