package quickbooks

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/chasinhq/chasin_backend/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}

func seedConnectedAccount(t *testing.T, db *gorm.DB, realmId string) models.Account {
	t.Helper()
	ctx := context.Background()
	account := models.Account{Name: "Acme"}
	if err := db.Create(&account).Error; err != nil {
		t.Fatalf("failed to create account: %v", err)
	}
	if _, err := models.ConnectIntegration(ctx, db, account.ID, models.IntegrationProviderQuickBooks, "test-token", "test-refresh", realmId); err != nil {
		t.Fatalf("failed to connect integration: %v", err)
	}
	return account
}

func invoiceQueryServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("got authorization %q, want bearer test-token", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

const twoInvoiceResponse = `{
	"QueryResponse": {
		"Invoice": [
			{
				"Id": "qb-101",
				"DocNumber": "INV-1",
				"TotalAmt": 500,
				"Balance": 500,
				"DueDate": "2026-03-05",
				"CustomerRef": {"value": "cust-7", "name": "Acme"},
				"BillEmail": {"Address": "billing@acme.test"}
			},
			{
				"Id": "qb-102",
				"DocNumber": "INV-2",
				"TotalAmt": 120.5,
				"Balance": 0,
				"DueDate": "2026-02-01",
				"CurrencyRef": {"value": "eur"}
			}
		]
	}
}`

func TestSyncInvoicesForAccount_StoresProviderInvoices(t *testing.T) {
	db := newTestDB(t)
	account := seedConnectedAccount(t, db, "realm-1")
	srv := invoiceQueryServer(t, twoInvoiceResponse)
	t.Setenv("QB_API_BASE_URL", srv.URL)

	if ok := SyncInvoicesForAccount(context.Background(), db, account.ID); !ok {
		t.Fatal("expected sync to succeed")
	}

	var open models.Invoice
	if err := db.Where("external_id = ?", "qb-101").Take(&open).Error; err != nil {
		t.Fatalf("invoice qb-101 not stored: %v", err)
	}
	if open.Status != models.InvoiceStatusPending {
		t.Fatalf("got status %q, want pending for positive balance", open.Status)
	}
	if open.AmountDue.String() != "500" {
		t.Fatalf("got amount %s, want 500", open.AmountDue)
	}
	if open.Currency != "usd" {
		t.Fatalf("got currency %q, want the usd default", open.Currency)
	}
	if open.ExternalCustomerId == nil || *open.ExternalCustomerId != "cust-7" {
		t.Fatalf("customer ref not mapped: %+v", open.ExternalCustomerId)
	}
	if len(open.Metadata) == 0 || !strings.Contains(string(open.Metadata), "billing@acme.test") {
		t.Fatal("original payload not kept in metadata")
	}

	var settled models.Invoice
	if err := db.Where("external_id = ?", "qb-102").Take(&settled).Error; err != nil {
		t.Fatalf("invoice qb-102 not stored: %v", err)
	}
	if settled.Status != models.InvoiceStatusPaid {
		t.Fatalf("got status %q, want paid for zero balance", settled.Status)
	}
	if settled.Currency != "eur" {
		t.Fatalf("got currency %q, want eur", settled.Currency)
	}

	var events int64
	if err := db.Model(&models.InvoiceEvent{}).Count(&events).Error; err != nil {
		t.Fatalf("event count failed: %v", err)
	}
	if events != 2 {
		t.Fatalf("expected one sync event per invoice, got %d", events)
	}
}

func TestSyncInvoicesForAccount_ResyncKeepsOneRowPerInvoice(t *testing.T) {
	db := newTestDB(t)
	account := seedConnectedAccount(t, db, "realm-1")
	srv := invoiceQueryServer(t, twoInvoiceResponse)
	t.Setenv("QB_API_BASE_URL", srv.URL)

	ctx := context.Background()
	if ok := SyncInvoicesForAccount(ctx, db, account.ID); !ok {
		t.Fatal("first sync failed")
	}
	if ok := SyncInvoicesForAccount(ctx, db, account.ID); !ok {
		t.Fatal("second sync failed")
	}

	var invoices int64
	if err := db.Model(&models.Invoice{}).Count(&invoices).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if invoices != 2 {
		t.Fatalf("expected 2 invoices after re-sync, got %d", invoices)
	}

	// Every sync pass appends its own audit event.
	var events int64
	if err := db.Model(&models.InvoiceEvent{}).Count(&events).Error; err != nil {
		t.Fatalf("event count failed: %v", err)
	}
	if events != 4 {
		t.Fatalf("expected 4 sync events, got %d", events)
	}
}

func TestSyncInvoicesForAccount_EmptyResponse(t *testing.T) {
	db := newTestDB(t)
	account := seedConnectedAccount(t, db, "realm-1")
	srv := invoiceQueryServer(t, `{"QueryResponse": {}}`)
	t.Setenv("QB_API_BASE_URL", srv.URL)

	if ok := SyncInvoicesForAccount(context.Background(), db, account.ID); !ok {
		t.Fatal("a realm with no invoices is a successful sync")
	}
}

func TestSyncInvoicesForAccount_SkipsRecordsThatDoNotMap(t *testing.T) {
	db := newTestDB(t)
	account := seedConnectedAccount(t, db, "realm-1")
	srv := invoiceQueryServer(t, `{
		"QueryResponse": {
			"Invoice": [
				{"Id": "qb-bad", "TotalAmt": 10, "Balance": 10, "DueDate": "not-a-date"},
				{"Id": "qb-good", "TotalAmt": 10, "Balance": 10, "DueDate": "2026-03-05"}
			]
		}
	}`)
	t.Setenv("QB_API_BASE_URL", srv.URL)

	if ok := SyncInvoicesForAccount(context.Background(), db, account.ID); !ok {
		t.Fatal("one bad record must not fail the whole sync")
	}

	var count int64
	if err := db.Model(&models.Invoice{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected only the good record stored, got %d", count)
	}
	var stored models.Invoice
	if err := db.Take(&stored).Error; err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if stored.ExternalId != "qb-good" {
		t.Fatalf("stored %q, want qb-good", stored.ExternalId)
	}
}

func TestSyncInvoicesForAccount_WithoutIntegration(t *testing.T) {
	db := newTestDB(t)
	account := models.Account{Name: "Acme"}
	if err := db.Create(&account).Error; err != nil {
		t.Fatalf("failed to create account: %v", err)
	}

	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	t.Cleanup(srv.Close)
	t.Setenv("QB_API_BASE_URL", srv.URL)

	if ok := SyncInvoicesForAccount(context.Background(), db, account.ID); ok {
		t.Fatal("expected sync to fail without an integration")
	}
	if calls.Load() != 0 {
		t.Fatal("sync must not call the provider without an integration")
	}
}

func TestSyncInvoicesForAccount_MissingRealm(t *testing.T) {
	db := newTestDB(t)
	account := seedConnectedAccount(t, db, "")
	srv := invoiceQueryServer(t, twoInvoiceResponse)
	t.Setenv("QB_API_BASE_URL", srv.URL)

	if ok := SyncInvoicesForAccount(context.Background(), db, account.ID); ok {
		t.Fatal("expected sync to fail without a realm id")
	}
}

func TestSyncInvoicesForAccount_ProviderError(t *testing.T) {
	db := newTestDB(t)
	account := seedConnectedAccount(t, db, "realm-1")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"Fault":{}}`, http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)
	t.Setenv("QB_API_BASE_URL", srv.URL)

	if ok := SyncInvoicesForAccount(context.Background(), db, account.ID); ok {
		t.Fatal("expected sync to fail on a provider error response")
	}
}

func TestSyncCustomersForAccount(t *testing.T) {
	db := newTestDB(t)
	account := seedConnectedAccount(t, db, "realm-1")

	var seenPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"QueryResponse": {
				"Customer": [
					{"Id": "cust-7", "DisplayName": "Acme", "PrimaryEmailAddr": {"Address": "billing@acme.test"}},
					{"Id": "cust-8", "DisplayName": "No Mail Ltd"}
				]
			}
		}`)
	}))
	t.Cleanup(srv.Close)
	t.Setenv("QB_API_BASE_URL", srv.URL)

	if ok := SyncCustomersForAccount(context.Background(), db, account.ID); !ok {
		t.Fatal("expected customer sync to succeed")
	}

	// The customer endpoint does not interpolate the realm id. Pinned here so
	// a fix shows up as a deliberate test change.
	if seenPath != "/v3/company/${realmId}/query" {
		t.Fatalf("customer query hit %q", seenPath)
	}

	var withEmail models.Customer
	if err := db.Where("external_id = ?", "cust-7").Take(&withEmail).Error; err != nil {
		t.Fatalf("customer cust-7 not stored: %v", err)
	}
	if withEmail.Email == nil || *withEmail.Email != "billing@acme.test" {
		t.Fatalf("email not mapped: %+v", withEmail.Email)
	}

	var withoutEmail models.Customer
	if err := db.Where("external_id = ?", "cust-8").Take(&withoutEmail).Error; err != nil {
		t.Fatalf("customer cust-8 not stored: %v", err)
	}
	if withoutEmail.Email != nil {
		t.Fatalf("expected nil email, got %q", *withoutEmail.Email)
	}
}
