package database

import (
	"context"
	"fmt"
	"strings"

	"accounts-backend/internal/models"
)

// CreateRole inserts a role. A taken name fails with ErrUniqueViolation.
func (s *Store) CreateRole(ctx context.Context, name string, description *string) (*models.Role, error) {
	const op = "database.CreateRole"

	name = strings.TrimSpace(name)
	if err := required("roles.name", name); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := maxLen("roles.name", name, 50); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, cancel := s.conn(ctx, queryTimeout)
	defer cancel()

	role := models.Role{Name: name, Description: description}
	if err := db.Create(&role).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	return &role, nil
}

func (s *Store) RoleByID(ctx context.Context, id uint) (*models.Role, error) {
	const op = "database.RoleByID"

	db, cancel := s.conn(ctx, queryTimeout)
	defer cancel()

	var role models.Role
	if err := db.First(&role, id).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	return &role, nil
}

func (s *Store) RoleByName(ctx context.Context, name string) (*models.Role, error) {
	const op = "database.RoleByName"

	db, cancel := s.conn(ctx, queryTimeout)
	defer cancel()

	var role models.Role
	if err := db.Where("name = ?", strings.TrimSpace(name)).First(&role).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	return &role, nil
}

// Roles lists every role ordered by name.
func (s *Store) Roles(ctx context.Context) ([]models.Role, error) {
	const op = "database.Roles"

	db, cancel := s.conn(ctx, listTimeout)
	defer cancel()

	var roles []models.Role
	if err := db.Order("name asc").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	return roles, nil
}

// DeleteRole removes an unreferenced role. Roles still held by users fail with
// ErrForeignKeyViolation.
func (s *Store) DeleteRole(ctx context.Context, id uint) error {
	const op = "database.DeleteRole"

	db, cancel := s.conn(ctx, queryTimeout)
	defer cancel()

	res := db.Delete(&models.Role{}, id)
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
