// daily-invoice-check runs one daily reminder cycle and exits non-zero when
// the run could not start. Intended for cron/manual runs outside the API.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/daily-invoice-check
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/chasinhq/chasin_backend/config"
	"github.com/chasinhq/chasin_backend/models"
	"github.com/chasinhq/chasin_backend/reminders"
	"github.com/chasinhq/chasin_backend/workflow"
)

func main() {
	ctx := context.Background()

	db := config.ConnectDatabaseWithRetry()
	if err := models.Migrate(db); err != nil {
		fmt.Fprintf(os.Stderr, "failed to migrate schema: %v\n", err)
		os.Exit(1)
	}

	runner := workflow.NewRunner(db, reminders.NewSMTPMailer(), config.NewRedisLocker())
	if !runner.RunDailyInvoiceCheck(ctx) {
		os.Exit(1)
	}
}
