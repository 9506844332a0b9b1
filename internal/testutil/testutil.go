package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"gorm.io/gorm"

	"accounts-backend/internal/database"
)

var dbSeq atomic.Int64

// OpenDB opens a private in-memory SQLite database and bootstraps the schema.
// The database is closed through t.Cleanup.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))

	db, err := database.OpenSQLite(dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })

	if err := database.Bootstrap(context.Background(), db); err != nil {
		t.Fatalf("bootstrap test db: %v", err)
	}
	return db
}

// NewStore returns a store over a fresh bootstrapped database.
func NewStore(t testing.TB) *database.Store {
	t.Helper()
	return database.NewStore(OpenDB(t))
}

// SeedUser creates a role (if name is new), a person and a user with the given password hash.
func SeedUser(t testing.TB, s *database.Store, email, passwordHash, roleName string) uint {
	t.Helper()
	ctx := context.Background()

	role, err := s.RoleByName(ctx, roleName)
	if err != nil {
		role, err = s.CreateRole(ctx, roleName, nil)
		if err != nil {
			t.Fatalf("create role %q: %v", roleName, err)
		}
	}
	pd, err := s.CreatePersonalData(ctx, "Test", "User")
	if err != nil {
		t.Fatalf("create personal data: %v", err)
	}
	u, err := s.CreateUser(ctx, database.NewUser{
		Email:          email,
		PasswordHash:   passwordHash,
		PersonalDataID: pd.ID,
		RoleID:         role.ID,
	})
	if err != nil {
		t.Fatalf("create user %q: %v", email, err)
	}
	return u.ID
}
