package reminders

import (
	"context"
	"errors"
	"time"

	"github.com/chasinhq/chasin_backend/models"
	"github.com/chasinhq/chasin_backend/utils"
	"gorm.io/gorm"
)

const millisPerDay = int64(24 * time.Hour / time.Millisecond)

// DaysOverdue is the whole number of calendar days between dueDate and
// today, truncated toward zero. Negative means not yet due; zero means due
// today.
func DaysOverdue(dueDate time.Time, today time.Time) int {
	return int(today.Sub(dueDate).Milliseconds() / millisPerDay)
}

// MatchRule selects the account's rule whose days_overdue equals the
// invoice's current age. (nil, nil) means no rule fires for this invoice
// today. Duplicate rules for the same day count are an error, never an
// arbitrary pick.
func MatchRule(ctx context.Context, db *gorm.DB, invoice models.Invoice, today time.Time) (*models.ReminderRule, error) {
	daysOverdue := DaysOverdue(invoice.DueDate, today)

	rule, err := models.GetRuleByDaysOverdue(ctx, db, invoice.AccountId, daysOverdue)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rule, nil
}
