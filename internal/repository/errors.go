package repository

import (
	"errors"

	"shopfront/internal/database"
	"shopfront/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes.
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
	pgNumericOutOfRange   = "22003"
)

// violation returns the violated constraint name when err is a PostgreSQL
// integrity error with the given SQLSTATE code.
func violation(err error, code string) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != code {
		return "", false
	}
	return pgErr.ConstraintName, true
}

// outOfRange reports whether err is a PostgreSQL numeric overflow.
func outOfRange(err error) bool {
	_, ok := violation(err, pgNumericOutOfRange)
	return ok
}

// totalOutOfRange reports an order total too large for NUMERIC(12,2).
func totalOutOfRange() error {
	return model.NewValidationError("total_amount", "Ensure that there are no more than 12 digits in total.")
}

// constraintError maps unique, check and category foreign key violations and
// numeric overflows to field-level validation errors. Other errors are
// returned unchanged.
func constraintError(err error) error {
	if name, ok := violation(err, pgUniqueViolation); ok {
		switch name {
		case database.ConstraintCategoriesName:
			return model.NewValidationError("name", "category with this name already exists.")
		case database.ConstraintCategoriesSlug:
			return model.NewValidationError("slug", "category with this slug already exists.")
		case database.ConstraintProductsSlug:
			return model.NewValidationError("slug", "product with this slug already exists.")
		case database.ConstraintUsersUsername:
			return model.NewValidationError("username", "A user with that username already exists.")
		}
	}

	if name, ok := violation(err, pgCheckViolation); ok {
		switch name {
		case database.ConstraintProductsPriceCheck:
			return model.NewValidationError("price", "Ensure this value is greater than or equal to 0.01.")
		case database.ConstraintProductsStockCheck:
			return model.NewValidationError("stock", "Ensure this value is greater than or equal to 0.")
		}
	}

	if name, ok := violation(err, pgForeignKeyViolation); ok && name == database.ConstraintProductsCategory {
		return model.NewValidationError("category_id", "Invalid pk - object does not exist.")
	}

	if outOfRange(err) {
		return model.NewValidationError("non_field_errors", "A numeric value is out of range.")
	}

	return err
}
