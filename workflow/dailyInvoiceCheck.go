package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/chasinhq/chasin_backend/config"
	"github.com/chasinhq/chasin_backend/models"
	"github.com/chasinhq/chasin_backend/quickbooks"
	"github.com/chasinhq/chasin_backend/reminders"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const dailyJobLockKey = "jobs:daily-invoice-check"

// Runner drives the daily invoice check: per account, sync invoices from the
// provider, query overdue invoices, and send at most one reminder per
// matched rule. Accounts and invoices are processed strictly sequentially;
// a failure never crosses the account boundary.
type Runner struct {
	db     *gorm.DB
	mailer reminders.Mailer
	locker *redislock.Client

	syncInvoices func(ctx context.Context, db *gorm.DB, accountId string) bool
	publishEvent func(ctx context.Context, event config.ReminderEvent)
	now          func() time.Time
}

func NewRunner(db *gorm.DB, mailer reminders.Mailer, locker *redislock.Client) *Runner {
	return &Runner{
		db:           db,
		mailer:       mailer,
		locker:       locker,
		syncInvoices: quickbooks.SyncInvoicesForAccount,
		publishEvent: config.PublishReminderEvent,
		now:          time.Now,
	}
}

// RunSummary collects the per-item outcomes of one run so the orchestrator's
// fault-isolation contract shows up in data, not just in logs.
type RunSummary struct {
	Accounts        int
	SyncFailures    int
	OverdueInvoices int
	RemindersSent   int
	Unmatched       int
	Failures        int
}

// RunDailyInvoiceCheck executes one full run. It returns false only when the
// account listing itself fails; every other failure is logged, counted, and
// skipped so the run makes maximal forward progress.
//
// Dispatch is not deduplicated across runs: re-running on the same day
// re-sends the same reminders. The redis lock below narrows the overlap
// window but correctness does not depend on it (a best-effort optimization,
// and Redis being down must not stop the job).
func (r *Runner) RunDailyInvoiceCheck(ctx context.Context) bool {
	logger := config.GetLogger()
	logger.WithField("module", "workflow").Info("daily invoice check started")

	if r.locker != nil {
		lock, err := r.locker.Obtain(ctx, dailyJobLockKey, 30*time.Minute, nil)
		switch {
		case err == nil:
			defer lock.Release(context.Background())
		case errors.Is(err, redislock.ErrNotObtained):
			logger.WithField("module", "workflow").Info("another daily invoice check holds the lock; skipping")
			return true
		default:
			config.LogError(logger, "workflow", "RunDailyInvoiceCheck", "obtain job lock", nil, err)
		}
	}

	now := r.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	accounts, err := models.ListAccounts(ctx, r.db)
	if err != nil {
		config.LogError(logger, "workflow", "RunDailyInvoiceCheck", "list accounts", nil, err)
		return false
	}

	summary := RunSummary{Accounts: len(accounts)}
	for _, account := range accounts {
		r.processAccount(ctx, account, today, &summary)
	}

	logger.WithFields(logrus.Fields{
		"module":           "workflow",
		"accounts":         summary.Accounts,
		"sync_failures":    summary.SyncFailures,
		"overdue_invoices": summary.OverdueInvoices,
		"reminders_sent":   summary.RemindersSent,
		"unmatched":        summary.Unmatched,
		"failures":         summary.Failures,
	}).Info("daily invoice check finished")
	return true
}

func (r *Runner) processAccount(ctx context.Context, account models.Account, today time.Time, summary *RunSummary) {
	logger := config.GetLogger()
	logger.WithFields(logrus.Fields{
		"module":     "workflow",
		"account_id": account.ID,
		"account":    account.Name,
	}).Info("syncing invoices for account")

	// A failed sync is logged but does not skip the reminder pass: already
	// stored invoices still age and still deserve reminders.
	if !r.syncInvoices(ctx, r.db, account.ID) {
		summary.SyncFailures++
		logger.WithFields(logrus.Fields{
			"module":     "workflow",
			"account_id": account.ID,
		}).Warn("invoice sync failed for account")
	}

	overdue, err := models.GetOverdueInvoices(ctx, r.db, account.ID, today)
	if err != nil {
		config.LogError(logger, "workflow", "processAccount", "query overdue invoices", account.ID, err)
		summary.Failures++
		return
	}
	summary.OverdueInvoices += len(overdue)

	for _, invoice := range overdue {
		outcome, rule, err := reminders.SendInvoiceReminder(ctx, r.db, r.mailer, invoice, today)
		if err != nil {
			config.LogError(logger, "workflow", "processAccount", "reminder for invoice "+invoice.ExternalId, account.ID, err)
			summary.Failures++
			continue
		}

		switch outcome {
		case reminders.OutcomeSent:
			summary.RemindersSent++
			r.publishEvent(ctx, config.ReminderEvent{
				AccountId:         account.ID,
				InvoiceId:         invoice.ID,
				InvoiceExternalId: invoice.ExternalId,
				RuleId:            rule.ID,
				DaysOverdue:       rule.DaysOverdue,
				SentAt:            r.now(),
			})
		case reminders.OutcomeSendFailed:
			summary.Failures++
		default:
			summary.Unmatched++
		}
	}
}
