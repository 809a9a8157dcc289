// seed-demo provisions a demo tenant for local development: one account,
// one login user and a small set of reminder rules.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-demo
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/chasinhq/chasin_backend/config"
	"github.com/chasinhq/chasin_backend/models"
)

const (
	demoAccountName = "Acme Demo"
	demoEmail       = "demo@chasin.ai"
	demoPassword    = "demo-p@ssw0rd"
)

func main() {
	ctx := context.Background()

	db := config.ConnectDatabaseWithRetry()
	if err := models.Migrate(db); err != nil {
		fmt.Fprintf(os.Stderr, "failed to migrate schema: %v\n", err)
		os.Exit(1)
	}

	if _, err := models.GetUserByEmail(ctx, db, demoEmail); err == nil {
		fmt.Println("demo user already seeded")
		return
	}

	account, user, _, err := models.CreateAccountAndUser(ctx, db, &models.NewSignup{
		AccountName: demoAccountName,
		Email:       demoEmail,
		Password:    demoPassword,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create demo account: %v\n", err)
		os.Exit(1)
	}

	rules := []models.NewReminderRule{
		{
			Name:        "Gentle nudge",
			Subject:     "Invoice {{ invoice_number }} is past due",
			Body:        "Dear {{ customer_name }},\n\nInvoice {{ invoice_number }} for {{ amount_due }} is {{ days_overdue }} days overdue. Could you take a look?\n\nThanks,\nAcme Demo",
			Color:       "#FFB020",
			DaysOverdue: 3,
		},
		{
			Name:        "Second reminder",
			Subject:     "Reminder: invoice {{ invoice_number }} remains unpaid",
			Body:        "Dear {{ customer_name }},\n\nInvoice {{ invoice_number }} ({{ amount_due }}) is now {{ days_overdue }} days overdue. Please arrange payment.\n\nAcme Demo",
			Color:       "#F2994A",
			DaysOverdue: 10,
		},
		{
			Name:        "Final notice",
			Subject:     "Final notice for invoice {{ invoice_number }}",
			Body:        "Dear {{ customer_name }},\n\nDespite earlier reminders, invoice {{ invoice_number }} for {{ amount_due }} is {{ days_overdue }} days overdue. This is our final notice before escalation.\n\nAcme Demo",
			Color:       "#EB5757",
			DaysOverdue: 30,
		},
	}
	for i := range rules {
		if _, err := models.SaveRule(ctx, db, account.ID, "", &rules[i]); err != nil {
			fmt.Fprintf(os.Stderr, "failed to seed rule %q: %v\n", rules[i].Name, err)
			os.Exit(1)
		}
	}

	fmt.Printf("seeded account %s (%s) with user %s and %d reminder rules\n",
		account.Name, account.ID, user.Email, len(rules))
}
