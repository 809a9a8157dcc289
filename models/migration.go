package models

import "gorm.io/gorm"

// Migrate creates or updates the schema for every record kind.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Account{},
		&User{},
		&Customer{},
		&Invoice{},
		&InvoiceEvent{},
		&ReminderRule{},
		&Integration{},
	)
}
