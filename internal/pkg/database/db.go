package database

import "gorm.io/gorm"

// DB is the process-wide connection pool, set by SetupDatabase.
var DB *gorm.DB

// GetDB returns the shared connection, nil before SetupDatabase ran.
func GetDB() *gorm.DB {
	return DB
}

// SetDB replaces the shared connection (tests, tools).
func SetDB(db *gorm.DB) {
	DB = db
}
