package database

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

var (
	ErrNotFound            = errors.New("record not found")
	ErrUniqueViolation     = errors.New("uniqueness violation")
	ErrForeignKeyViolation = errors.New("referential integrity violation")
	ErrNotNullViolation    = errors.New("not null violation")
	ErrValueTooLong        = errors.New("value too long")
	ErrExpired             = errors.New("expired")
)

// Postgres SQLSTATE codes.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
	pgStringTooLong       = "22001"
)

// ConstraintError is a write rejected by a schema constraint.
// It matches both its Kind sentinel and the driver error with errors.Is / errors.As.
type ConstraintError struct {
	Kind   error
	Column string
	Err    error
}

func (e *ConstraintError) Error() string {
	msg := e.Kind.Error()
	if e.Column != "" {
		msg += " on " + e.Column
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConstraintError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// translate maps engine errors onto the package taxonomy. Unknown errors pass through.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		column := pgErr.ConstraintName
		if pgErr.ColumnName != "" {
			column = pgErr.ColumnName
			if pgErr.TableName != "" {
				column = pgErr.TableName + "." + column
			}
		}
		switch pgErr.Code {
		case pgUniqueViolation:
			return &ConstraintError{Kind: ErrUniqueViolation, Column: column, Err: err}
		case pgForeignKeyViolation:
			return &ConstraintError{Kind: ErrForeignKeyViolation, Column: column, Err: err}
		case pgNotNullViolation:
			return &ConstraintError{Kind: ErrNotNullViolation, Column: column, Err: err}
		case pgStringTooLong:
			return &ConstraintError{Kind: ErrValueTooLong, Column: column, Err: err}
		}
		return err
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.Code == sqlite3.ErrConstraint {
		column := sqliteColumn(liteErr.Error())
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return &ConstraintError{Kind: ErrUniqueViolation, Column: column, Err: err}
		case sqlite3.ErrConstraintForeignKey:
			return &ConstraintError{Kind: ErrForeignKeyViolation, Column: column, Err: err}
		case sqlite3.ErrConstraintNotNull:
			return &ConstraintError{Kind: ErrNotNullViolation, Column: column, Err: err}
		}
	}
	return err
}

// sqliteColumn extracts "users.email" from "UNIQUE constraint failed: users.email".
func sqliteColumn(msg string) string {
	_, after, ok := strings.Cut(msg, "failed: ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(after)
}

// required reports empty values as the NOT NULL violation the column would raise for NULL.
func required(column, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ConstraintError{Kind: ErrNotNullViolation, Column: column}
	}
	return nil
}

func requiredID(column string, id uint) error {
	if id == 0 {
		return &ConstraintError{Kind: ErrNotNullViolation, Column: column}
	}
	return nil
}

// maxLen enforces varchar limits on engines that do not (SQLite).
func maxLen(column, value string, limit int) error {
	if utf8.RuneCountInString(value) > limit {
		return &ConstraintError{
			Kind:   ErrValueTooLong,
			Column: column,
			Err:    fmt.Errorf("%d characters, limit %d", utf8.RuneCountInString(value), limit),
		}
	}
	return nil
}
