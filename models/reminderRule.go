package models

import (
	"context"
	"time"

	"github.com/chasinhq/chasin_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReminderRule maps an exact overdue-day count to a reminder template.
// The matcher treats (account_id, days_overdue) as a lookup key and expects
// at most one rule per pair.
type ReminderRule struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	AccountId   string    `gorm:"size:36;index;not null" json:"account_id"`
	DaysOverdue int       `gorm:"not null" json:"days_overdue"`
	SubjectLine string    `gorm:"type:text" json:"subject_line"`
	Message     string    `gorm:"type:text" json:"message"`
	Name        string    `gorm:"size:100" json:"name"`
	Color       string    `gorm:"size:20" json:"color"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *ReminderRule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

type NewReminderRule struct {
	Name        string `json:"name"`
	Subject     string `json:"subject" binding:"required"`
	Body        string `json:"body" binding:"required"`
	Color       string `json:"color"`
	DaysOverdue int    `json:"days_overdue"`
}

// GetRuleByDaysOverdue fetches the unique rule for (account, daysOverdue).
// Not found returns utils.ErrorRecordNotFound; more than one match is an
// error rather than an arbitrary pick, since picking one would silently send
// the wrong template.
func GetRuleByDaysOverdue(ctx context.Context, db *gorm.DB, accountId string, daysOverdue int) (*ReminderRule, error) {
	var rules []ReminderRule
	err := db.WithContext(ctx).
		Where("account_id = ? AND days_overdue = ?", accountId, daysOverdue).
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	switch len(rules) {
	case 0:
		return nil, utils.ErrorRecordNotFound
	case 1:
		return &rules[0], nil
	default:
		return nil, utils.ErrorDuplicateRule
	}
}

func GetRule(ctx context.Context, db *gorm.DB, accountId string, id string) (*ReminderRule, error) {
	var rule ReminderRule
	err := db.WithContext(ctx).
		Where("account_id = ? AND id = ?", accountId, id).
		Take(&rule).Error
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListRules returns the account's rules ordered by days_overdue ascending.
func ListRules(ctx context.Context, db *gorm.DB, accountId string) ([]ReminderRule, error) {
	var rules []ReminderRule
	err := db.WithContext(ctx).
		Where("account_id = ?", accountId).
		Order("days_overdue ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// SaveRule upserts a rule by id. A blank id creates a new rule.
func SaveRule(ctx context.Context, db *gorm.DB, accountId string, id string, input *NewReminderRule) (*ReminderRule, error) {
	rule := ReminderRule{
		ID:          id,
		AccountId:   accountId,
		DaysOverdue: input.DaysOverdue,
		SubjectLine: input.Subject,
		Message:     input.Body,
		Name:        input.Name,
		Color:       input.Color,
	}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"days_overdue", "subject_line", "message", "name", "color", "updated_at",
		}),
	}).Create(&rule).Error
	if err != nil {
		return nil, err
	}
	return GetRule(ctx, db, accountId, rule.ID)
}
