// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/textbook/internal/platform/apperr"
)

var (
	// ErrUniqueViolation marks a broken unique constraint in an error chain.
	ErrUniqueViolation = errors.New("unique constraint violated")

	// ErrForeignKeyViolation marks a broken foreign key in an error chain.
	ErrForeignKeyViolation = errors.New("foreign key constraint violated")
)

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
//
// Context cancellation stays visible to errors.Is.
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	if apperr.IsAppError(err) {
		return err
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", action, err)
	}

	// 1. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("Resource")
	}

	// 2. Constraint violations keep a sentinel in the cause chain
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return UniqueViolation(pgErr.ConstraintName, err)
		case pgerrcode.ForeignKeyViolation:
			return ForeignKeyViolation(pgErr.ConstraintName, err)
		case pgerrcode.InvalidTextRepresentation:
			// A malformed UUID can never match a row.
			return apperr.NotFound("Resource").WithCause(err)
		case pgerrcode.NumericValueOutOfRange:
			return apperr.ValidationError("Numeric value out of range").WithCause(err)
		}
	}

	// 3. Unknown query errors become Internal Server Errors
	return apperr.Internal(fmt.Errorf("%s: %w", action, err))
}

// UniqueViolation builds the integrity error reported for a broken unique constraint.
// Storage backends that do not speak SQL use it to report the same category.
func UniqueViolation(constraint string, cause error) *apperr.AppError {
	return apperr.Integrity("Record conflicts with an existing one").
		WithCause(join(ErrUniqueViolation, constraint, cause))
}

// ForeignKeyViolation builds the integrity error reported for a dangling reference.
func ForeignKeyViolation(constraint string, cause error) *apperr.AppError {
	return apperr.Integrity("Record references a missing or dependent resource").
		WithCause(join(ErrForeignKeyViolation, constraint, cause))
}

// IsUniqueViolation reports whether err stems from a unique constraint.
func IsUniqueViolation(err error) bool {
	return errors.Is(err, ErrUniqueViolation)
}

// IsForeignKeyViolation reports whether err stems from a foreign key constraint.
func IsForeignKeyViolation(err error) bool {
	return errors.Is(err, ErrForeignKeyViolation)
}

func join(sentinel error, constraint string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w (%s)", sentinel, constraint)
	}
	return fmt.Errorf("%w (%s): %w", sentinel, constraint, cause)
}

// Sanitize returns application errors unchanged and hides anything else
// behind [apperr.Internal], keeping the original as the logged cause.
func Sanitize(err error) error {
	if err == nil || apperr.IsAppError(err) {
		return err
	}
	return apperr.Internal(err)
}
