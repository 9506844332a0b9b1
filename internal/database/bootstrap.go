package database

import (
	"context"
	"errors"
	"fmt"
	"log"

	"accounts-backend/internal/models"

	"gorm.io/gorm"
)

// Bootstrap creates the schema in dependency order and seeds the default role.
// Running it again is a no-op.
func Bootstrap(ctx context.Context, db *gorm.DB) error {
	err := db.WithContext(ctx).AutoMigrate(
		&models.Role{},
		&models.PersonalData{},
		&models.User{},
		&models.AppSession{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	return seedDefaultRole(ctx, db)
}

func seedDefaultRole(ctx context.Context, db *gorm.DB) error {
	var existing models.Role
	err := db.WithContext(ctx).Where("name = ?", models.DefaultRoleName).First(&existing).Error
	if err == nil {
		log.Printf("role %q already exists", models.DefaultRoleName)
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check default role: %w", err)
	}

	description := models.DefaultRoleDescription
	role := models.Role{Name: models.DefaultRoleName, Description: &description}
	if err := db.WithContext(ctx).Create(&role).Error; err != nil {
		// a concurrent bootstrap won the insert
		if errors.Is(translate(err), ErrUniqueViolation) {
			return nil
		}
		return fmt.Errorf("create default role: %w", err)
	}

	log.Printf("created role %q with id %d", role.Name, role.ID)
	return nil
}
