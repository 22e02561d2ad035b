package dao

import "gorm.io/gorm"

func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Drop{},
		&WaitlistEntry{},
		&Claim{},
	)
}

// TruncateTables empties every table and restarts the id sequences.
func TruncateTables(db *gorm.DB) error {
	return db.Exec("TRUNCATE TABLE claims, waitlist_entries, drops, users RESTART IDENTITY CASCADE").Error
}
