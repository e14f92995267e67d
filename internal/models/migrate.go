package models

import "gorm.io/gorm"

// Migrate runs the schema migrations for every persisted model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Job{},
	)
}
