package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"accounts-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewUser carries the columns a caller supplies; active and created_at come from the schema defaults.
type NewUser struct {
	Email          string
	PasswordHash   string
	PersonalDataID uint
	RoleID         uint
}

func (u *NewUser) validateCredentials() error {
	if err := required("users.email", u.Email); err != nil {
		return err
	}
	if err := maxLen("users.email", u.Email, 150); err != nil {
		return err
	}
	if err := required("users.password", u.PasswordHash); err != nil {
		return err
	}
	return maxLen("users.password", u.PasswordHash, 255)
}

func (u *NewUser) validate() error {
	if err := u.validateCredentials(); err != nil {
		return err
	}
	if err := requiredID("users.personal_data_id", u.PersonalDataID); err != nil {
		return err
	}
	return requiredID("users.role_id", u.RoleID)
}

// Registration is a self-service signup: a person, their credentials and the role to hold.
type Registration struct {
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	RoleName     string
}

// CreateUser inserts a user referencing existing rows. A taken email fails with
// ErrUniqueViolation; a missing role or personal data row fails with ErrForeignKeyViolation.
func (s *Store) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	const op = "database.CreateUser"

	in.Email = NormalizeEmail(in.Email)
	if err := in.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, cancel := s.conn(ctx, queryTimeout)
	defer cancel()

	u, err := insertUser(db, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func insertUser(db *gorm.DB, in NewUser) (*models.User, error) {
	u := models.User{
		Email:          in.Email,
		Password:       in.PasswordHash,
		PersonalDataID: in.PersonalDataID,
		RoleID:         in.RoleID,
		Active:         true,
	}
	if err := db.Omit(clause.Associations).Create(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// RegisterUser creates the personal data row and the user in one transaction.
// Any failure, including a taken email, leaves neither row behind.
func (s *Store) RegisterUser(ctx context.Context, r Registration) (*models.User, error) {
	const op = "database.RegisterUser"

	firstName, lastName := strings.TrimSpace(r.FirstName), strings.TrimSpace(r.LastName)
	if err := validatePersonalData(firstName, lastName); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	roleName := strings.TrimSpace(r.RoleName)
	if roleName == "" {
		roleName = models.DefaultRoleName
	}
	in := NewUser{Email: NormalizeEmail(r.Email), PasswordHash: r.PasswordHash}
	if err := in.validateCredentials(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, cancel := s.conn(ctx, queryTimeout)
	defer cancel()

	var created *models.User
	err := db.Transaction(func(tx *gorm.DB) error {
		pd := models.PersonalData{FirstName: firstName, LastName: lastName}
		if err := tx.Create(&pd).Error; err != nil {
			return translate(err)
		}

		var role models.Role
		if err := tx.Where("name = ?", roleName).First(&role).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("role %q: %w", roleName, ErrNotFound)
			}
			return err
		}

		in.PersonalDataID, in.RoleID = pd.ID, role.ID
		u, err := insertUser(tx, in)
		if err != nil {
			return err
		}
		u.PersonalData, u.Role = &pd, &role
		created = u
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

// UserByEmail is the authentication lookup; it preloads role and personal data.
func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "database.UserByEmail"

	db, cancel := s.conn(ctx, queryTimeout)
	defer cancel()

	var u models.User
	err := db.Preload("Role").Preload("PersonalData").
		Where("email = ?", NormalizeEmail(email)).
		First(&u).Error
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	return &u, nil
}

func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	const op = "database.UserByID"

	db, cancel := s.conn(ctx, queryTimeout)
	defer cancel()

	var u models.User
	if err := db.Preload("Role").Preload("PersonalData").First(&u, id).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	return &u, nil
}

// Users pages through accounts ordered by id.
func (s *Store) Users(ctx context.Context, limit, offset int) ([]models.User, error) {
	const op = "database.Users"

	limit, offset = pageBounds(limit, offset)

	db, cancel := s.conn(ctx, listTimeout)
	defer cancel()

	var users []models.User
	err := db.Preload("Role").Preload("PersonalData").
		Order("id asc").Limit(limit).Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	return users, nil
}

func (s *Store) DeactivateUser(ctx context.Context, id uint) error {
	return s.setActive(ctx, "database.DeactivateUser", id, false)
}

func (s *Store) ReactivateUser(ctx context.Context, id uint) error {
	return s.setActive(ctx, "database.ReactivateUser", id, true)
}

// setActive only touches users.active; referenced rows are left alone.
func (s *Store) setActive(ctx context.Context, op string, id uint, active bool) error {
	db, cancel := s.conn(ctx, queryTimeout)
	defer cancel()

	res := db.Model(&models.User{}).Where("id = ?", id).Update("active", active)
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// DeleteUser removes the account and its sessions. Its role and personal data stay.
func (s *Store) DeleteUser(ctx context.Context, id uint) error {
	const op = "database.DeleteUser"

	db, cancel := s.conn(ctx, queryTimeout)
	defer cancel()

	res := db.Delete(&models.User{}, id)
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
