package models

type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
)

type IntegrationStatus string

const (
	IntegrationStatusActive       IntegrationStatus = "active"
	IntegrationStatusDisconnected IntegrationStatus = "disconnected"
)

type IntegrationProvider string

const (
	IntegrationProviderQuickBooks IntegrationProvider = "quickbooks"
)

type InvoiceEventType string

const (
	InvoiceEventTypeSync InvoiceEventType = "sync"
)
