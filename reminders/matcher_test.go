package reminders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/chasinhq/chasin_backend/models"
	"github.com/chasinhq/chasin_backend/utils"
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

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestDaysOverdue(t *testing.T) {
	today := date(2026, time.March, 15)

	cases := []struct {
		due  time.Time
		want int
	}{
		{date(2026, time.March, 15), 0},
		{date(2026, time.March, 5), 10},
		{date(2026, time.March, 14), 1},
		{date(2026, time.March, 16), -1},
		{date(2026, time.April, 1), -17},
		{date(2025, time.March, 15), 365},
	}
	for _, tc := range cases {
		if got := DaysOverdue(tc.due, today); got != tc.want {
			t.Errorf("DaysOverdue(%s, %s) = %d, want %d", tc.due.Format("2006-01-02"), today.Format("2006-01-02"), got, tc.want)
		}
	}
}

func TestDaysOverdue_PartialDayTruncates(t *testing.T) {
	due := time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)
	today := time.Date(2026, time.March, 15, 23, 0, 0, 0, time.UTC)

	// 10 days and 23 hours is still 10 whole days.
	if got := DaysOverdue(due, today); got != 10 {
		t.Fatalf("got %d, want 10", got)
	}
}

func TestMatchRule(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	account := models.Account{Name: "Acme"}
	if err := db.Create(&account).Error; err != nil {
		t.Fatalf("failed to create account: %v", err)
	}
	rule := models.ReminderRule{
		AccountId:   account.ID,
		DaysOverdue: 10,
		SubjectLine: "Invoice {{ invoice_number }} overdue",
		Message:     "Dear {{ customer_name }}, {{ amount_due }} is due.",
	}
	if err := db.Create(&rule).Error; err != nil {
		t.Fatalf("failed to create rule: %v", err)
	}

	today := date(2026, time.March, 15)
	invoice := models.Invoice{
		AccountId: account.ID,
		DueDate:   date(2026, time.March, 5),
	}

	matched, err := MatchRule(ctx, db, invoice, today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matched == nil || matched.ID != rule.ID {
		t.Fatalf("expected rule %s to match, got %+v", rule.ID, matched)
	}

	// Same inputs, same result.
	again, err := MatchRule(ctx, db, invoice, today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again == nil || again.ID != matched.ID {
		t.Fatal("matching is not deterministic")
	}
}

func TestMatchRule_NoRuleConfigured(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	account := models.Account{Name: "Acme"}
	if err := db.Create(&account).Error; err != nil {
		t.Fatalf("failed to create account: %v", err)
	}

	invoice := models.Invoice{
		AccountId: account.ID,
		DueDate:   date(2026, time.March, 5),
	}

	matched, err := MatchRule(ctx, db, invoice, date(2026, time.March, 15))
	if err != nil {
		t.Fatalf("expected no error for a missing rule, got %v", err)
	}
	if matched != nil {
		t.Fatalf("expected no match, got %+v", matched)
	}

	// Not yet due with no configured rule is also a quiet no-match.
	matched, err = MatchRule(ctx, db, invoice, date(2026, time.March, 1))
	if err != nil || matched != nil {
		t.Fatalf("expected quiet no-match for a future invoice, got rule=%v err=%v", matched, err)
	}
}

func TestMatchRule_DuplicateRulesFail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	account := models.Account{Name: "Acme"}
	if err := db.Create(&account).Error; err != nil {
		t.Fatalf("failed to create account: %v", err)
	}
	for i := 0; i < 2; i++ {
		rule := models.ReminderRule{AccountId: account.ID, DaysOverdue: 10, SubjectLine: "s", Message: "m"}
		if err := db.Create(&rule).Error; err != nil {
			t.Fatalf("failed to create rule: %v", err)
		}
	}

	invoice := models.Invoice{AccountId: account.ID, DueDate: date(2026, time.March, 5)}
	_, err := MatchRule(ctx, db, invoice, date(2026, time.March, 15))
	if !errors.Is(err, utils.ErrorDuplicateRule) {
		t.Fatalf("expected duplicate-rule error, got %v", err)
	}
}
