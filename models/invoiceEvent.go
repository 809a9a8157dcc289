package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InvoiceEvent is the append-only audit trail for an invoice. Events are
// never updated or deleted.
type InvoiceEvent struct {
	ID        string           `gorm:"primaryKey;size:36" json:"id"`
	InvoiceId string           `gorm:"size:36;index;not null" json:"invoice_id"`
	Type      InvoiceEventType `gorm:"size:20;not null" json:"type"`
	Metadata  datatypes.JSON   `json:"metadata"`
	CreatedAt time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

func (e *InvoiceEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

func CreateInvoiceEvent(ctx context.Context, db *gorm.DB, invoiceId string, eventType InvoiceEventType, metadata datatypes.JSON) error {
	event := InvoiceEvent{
		InvoiceId: invoiceId,
		Type:      eventType,
		Metadata:  metadata,
	}
	return db.WithContext(ctx).Create(&event).Error
}
