package reminders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/chasinhq/chasin_backend/models"
	"github.com/chasinhq/chasin_backend/quickbooks"
	"gorm.io/gorm"
)

// Outcome is the per-invoice result of one reminder evaluation.
type Outcome int

const (
	// OutcomeUnmatched means no rule fires for this invoice today; nothing
	// was sent and nothing is wrong.
	OutcomeUnmatched Outcome = iota
	OutcomeSent
	// OutcomeSendFailed means a rule matched and rendered but the mail
	// transport refused the message.
	OutcomeSendFailed
)

// SendInvoiceReminder evaluates one overdue invoice: read the billing email
// from the provider metadata, match a rule, render both templates, dispatch.
// Errors are fatal for this invoice only; the caller continues the batch.
func SendInvoiceReminder(ctx context.Context, db *gorm.DB, mailer Mailer, invoice models.Invoice, today time.Time) (Outcome, *models.ReminderRule, error) {
	var meta quickbooks.RawInvoice
	if err := json.Unmarshal(invoice.Metadata, &meta); err != nil {
		return OutcomeUnmatched, nil, fmt.Errorf("decode invoice metadata: %w", err)
	}
	if meta.BillEmail == nil || meta.BillEmail.Address == "" {
		return OutcomeUnmatched, nil, errors.New("invoice has no billing email")
	}

	rule, err := MatchRule(ctx, db, invoice, today)
	if err != nil {
		return OutcomeUnmatched, nil, err
	}
	if rule == nil {
		return OutcomeUnmatched, nil, nil
	}

	customerName := "there"
	if meta.CustomerRef != nil && meta.CustomerRef.Name != "" {
		customerName = meta.CustomerRef.Name
	}

	message, err := Render(rule.Message, map[string]string{
		"customer_name":  customerName,
		"invoice_number": meta.DocNumber,
		"amount_due":     meta.TotalAmt.String(),
		"days_overdue":   strconv.Itoa(rule.DaysOverdue),
	})
	if err != nil {
		return OutcomeUnmatched, rule, err
	}

	subject, err := Render(rule.SubjectLine, map[string]string{
		"invoice_number": meta.DocNumber,
	})
	if err != nil {
		return OutcomeUnmatched, rule, err
	}

	if !mailer.Send(meta.BillEmail.Address, subject, message) {
		return OutcomeSendFailed, rule, nil
	}
	return OutcomeSent, rule, nil
}
