package quickbooks

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/chasinhq/chasin_backend/config"
	"github.com/chasinhq/chasin_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const dueDateLayout = "2006-01-02"

// SyncInvoicesForAccount pulls the account's invoices from QuickBooks and
// reconciles them into the store. It returns false only for structural
// failures: no usable integration, or a fetch that never completed. A failed
// upsert of an individual record is logged and skipped so one bad invoice
// cannot abort the sync.
func SyncInvoicesForAccount(ctx context.Context, db *gorm.DB, accountId string) bool {
	logger := config.GetLogger()

	integration, err := models.GetActiveIntegration(ctx, db, accountId, models.IntegrationProviderQuickBooks)
	if err != nil {
		config.LogError(logger, "quickbooks", "SyncInvoicesForAccount", "no active quickbooks integration", accountId, err)
		return false
	}

	realmId := integration.RealmId()
	if realmId == "" {
		logger.WithFields(logrus.Fields{
			"module":     "quickbooks",
			"account_id": accountId,
		}).Error("missing quickbooks realmId for integration")
		return false
	}

	client, err := newQbClient(integration.AccessToken)
	if err != nil {
		config.LogError(logger, "quickbooks", "SyncInvoicesForAccount", "client init", accountId, err)
		return false
	}

	invoices, err := client.FetchInvoices(ctx, realmId)
	if err != nil {
		config.LogError(logger, "quickbooks", "SyncInvoicesForAccount", "fetch invoices", accountId, err)
		return false
	}

	synced := 0
	for _, raw := range invoices {
		invoice, err := mapInvoice(accountId, raw)
		if err != nil {
			config.LogError(logger, "quickbooks", "SyncInvoicesForAccount", "map invoice "+raw.Id, accountId, err)
			continue
		}

		stored, err := models.UpsertInvoiceByExternalId(ctx, db, invoice)
		if err != nil {
			config.LogError(logger, "quickbooks", "SyncInvoicesForAccount", "upsert invoice "+raw.Id, accountId, err)
			continue
		}

		if err := models.CreateInvoiceEvent(ctx, db, stored.ID, models.InvoiceEventTypeSync, datatypes.JSON(raw.Raw)); err != nil {
			config.LogError(logger, "quickbooks", "SyncInvoicesForAccount", "invoice event "+raw.Id, accountId, err)
		}
		synced++
	}

	logger.WithFields(logrus.Fields{
		"module":     "quickbooks",
		"account_id": accountId,
		"synced":     synced,
		"fetched":    len(invoices),
	}).Info("invoice sync completed")
	return true
}

// SyncCustomersForAccount mirrors the provider's customer records into the
// store with the same structural/record failure split as the invoice sync.
func SyncCustomersForAccount(ctx context.Context, db *gorm.DB, accountId string) bool {
	logger := config.GetLogger()

	integration, err := models.GetActiveIntegration(ctx, db, accountId, models.IntegrationProviderQuickBooks)
	if err != nil {
		config.LogError(logger, "quickbooks", "SyncCustomersForAccount", "no active quickbooks integration", accountId, err)
		return false
	}

	realmId := integration.RealmId()
	if realmId == "" {
		logger.WithFields(logrus.Fields{
			"module":     "quickbooks",
			"account_id": accountId,
		}).Error("missing quickbooks realmId for integration")
		return false
	}

	client, err := newQbClient(integration.AccessToken)
	if err != nil {
		config.LogError(logger, "quickbooks", "SyncCustomersForAccount", "client init", accountId, err)
		return false
	}

	customers, err := client.FetchCustomers(ctx, realmId)
	if err != nil {
		config.LogError(logger, "quickbooks", "SyncCustomersForAccount", "fetch customers", accountId, err)
		return false
	}

	for _, raw := range customers {
		cust := &models.Customer{
			AccountId:  accountId,
			ExternalId: raw.Id,
			Name:       raw.DisplayName,
		}
		if raw.PrimaryEmailAddr != nil && raw.PrimaryEmailAddr.Address != "" {
			email := raw.PrimaryEmailAddr.Address
			cust.Email = &email
		}

		if _, err := models.UpsertCustomerByExternalId(ctx, db, cust); err != nil {
			config.LogError(logger, "quickbooks", "SyncCustomersForAccount", "upsert customer "+raw.Id, accountId, err)
		}
	}

	logger.WithFields(logrus.Fields{
		"module":     "quickbooks",
		"account_id": accountId,
		"synced":     len(customers),
	}).Info("customer sync completed")
	return true
}

// mapInvoice translates one provider invoice into the canonical shape. All
// provider schema drift surfaces here, nowhere else.
func mapInvoice(accountId string, raw RawInvoice) (*models.Invoice, error) {
	amount, err := decimalFromNumber(raw.TotalAmt)
	if err != nil {
		return nil, err
	}
	balance, err := decimalFromNumber(raw.Balance)
	if err != nil {
		return nil, err
	}
	dueDate, err := time.Parse(dueDateLayout, raw.DueDate)
	if err != nil {
		return nil, err
	}

	currency := "usd"
	if raw.CurrencyRef != nil && raw.CurrencyRef.Value != "" {
		currency = raw.CurrencyRef.Value
	}

	status := models.InvoiceStatusPaid
	if balance.IsPositive() {
		status = models.InvoiceStatusPending
	}

	invoice := &models.Invoice{
		AccountId:  accountId,
		ExternalId: raw.Id,
		AmountDue:  amount,
		Currency:   currency,
		DueDate:    dueDate,
		Status:     status,
		Metadata:   datatypes.JSON(raw.Raw),
	}
	if raw.CustomerRef != nil && raw.CustomerRef.Value != "" {
		externalCustomerId := raw.CustomerRef.Value
		invoice.ExternalCustomerId = &externalCustomerId
	}
	return invoice, nil
}

func decimalFromNumber(n json.Number) (decimal.Decimal, error) {
	s := strings.TrimSpace(n.String())
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
