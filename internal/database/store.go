package database

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	queryTimeout = 3 * time.Second
	listTimeout  = 5 * time.Second

	defaultListLimit = 100
	maxListLimit     = 500
)

// Store runs the account operations against one database handle.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for callers that bootstrap or close it.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) conn(ctx context.Context, timeout time.Duration) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return s.db.WithContext(ctx), cancel
}

// NormalizeEmail is applied on every write and lookup of users.email,
// so uniqueness and login are case-insensitive on every engine.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
