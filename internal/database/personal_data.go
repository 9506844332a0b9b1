package database

import (
	"context"
	"fmt"
	"strings"

	"accounts-backend/internal/models"
)

func validatePersonalData(firstName, lastName string) error {
	if err := required("personal_data.first_name", firstName); err != nil {
		return err
	}
	if err := required("personal_data.last_name", lastName); err != nil {
		return err
	}
	if err := maxLen("personal_data.first_name", firstName, 100); err != nil {
		return err
	}
	return maxLen("personal_data.last_name", lastName, 100)
}

func (s *Store) CreatePersonalData(ctx context.Context, firstName, lastName string) (*models.PersonalData, error) {
	const op = "database.CreatePersonalData"

	firstName, lastName = strings.TrimSpace(firstName), strings.TrimSpace(lastName)
	if err := validatePersonalData(firstName, lastName); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, cancel := s.conn(ctx, queryTimeout)
	defer cancel()

	pd := models.PersonalData{FirstName: firstName, LastName: lastName}
	if err := db.Create(&pd).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	return &pd, nil
}

func (s *Store) PersonalDataByID(ctx context.Context, id uint) (*models.PersonalData, error) {
	const op = "database.PersonalDataByID"

	db, cancel := s.conn(ctx, queryTimeout)
	defer cancel()

	var pd models.PersonalData
	if err := db.First(&pd, id).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	return &pd, nil
}

// DeletePersonalData fails with ErrForeignKeyViolation while a user references the row.
func (s *Store) DeletePersonalData(ctx context.Context, id uint) error {
	const op = "database.DeletePersonalData"

	db, cancel := s.conn(ctx, queryTimeout)
	defer cancel()

	res := db.Delete(&models.PersonalData{}, id)
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
