package database

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	connectAttempts = 10
	connectDelay    = 2 * time.Second
)

const sqlitePrefix = "sqlite:"

// Open picks the engine from dsn: "sqlite:<path>" opens SQLite, anything else is
// handed to Postgres.
func Open(dsn string) (*gorm.DB, error) {
	if path, ok := strings.CutPrefix(dsn, sqlitePrefix); ok {
		return OpenSQLite(path)
	}
	return Connect(dsn)
}

// Connect opens the Postgres database, retrying while the server comes up.
func Connect(dsn string) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	for i := 1; i <= connectAttempts; i++ {
		log.Printf("trying to connect to DB (attempt %d/%d)...", i, connectAttempts)

		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			log.Println("connected to DB successfully")
			return db, nil
		}

		log.Printf("failed to connect to DB: %v", err)
		time.Sleep(connectDelay)
	}
	return nil, fmt.Errorf("connect after %d attempts: %w", connectAttempts, err)
}

// OpenSQLite opens an SQLite database with foreign keys enforced.
// path may be a file name or a "file:" URI; an in-memory URI is used by tests.
func OpenSQLite(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = "accounts.db"
	}
	dsn = withQueryParam(dsn, "_foreign_keys", "on")
	dsn = withQueryParam(dsn, "_busy_timeout", "5000")

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// One connection keeps in-memory databases alive and serializes writers.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Close releases the pool behind db.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func withQueryParam(dsn, key, value string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + key + "=" + value
	}
	return dsn + "?" + key + "=" + value
}
