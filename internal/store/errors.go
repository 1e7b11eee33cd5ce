package store

import (
	"errors"
	"strings"

	"stockcount-backend/internal/apperr"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation recognises duplicate key errors from postgres, from gorm's
// translated error and from sqlite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// wrap turns a gorm error into the taxonomy.
func wrap(op, what string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(what)
	}
	if IsUniqueViolation(err) {
		return &apperr.Error{Kind: apperr.KindBusinessRule, Code: apperr.CodeDuplicate, Message: what + " already exists", Err: err}
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.Storage(op, err)
}
