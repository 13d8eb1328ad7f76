package db

import (
	"errors"
	"strings"

	pkgerrors "github.com/angelmondragon/garage-backend/pkg/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	sqlStateUniqueViolation      = "23505"
	sqlStateForeignKeyViolation  = "23503"
	sqlStateCheckViolation       = "23514"
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
)

// IsUniqueViolation reports whether the provided error references a unique violation.
// When constraintName is provided, the constraint must also match.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if code, constraint, ok := sqlState(err); ok {
		if code != sqlStateUniqueViolation {
			return false
		}
		return constraintName == "" || constraint == constraintName
	}
	msg := err.Error()
	if !strings.Contains(msg, "duplicate key value") && !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return constraintName == "" || strings.Contains(msg, constraintName)
}

// IsForeignKeyViolation reports whether err was raised by a foreign key constraint.
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if code, _, ok := sqlState(err); ok {
		return code == sqlStateForeignKeyViolation
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// IsCheckViolation reports whether err was raised by a CHECK constraint.
func IsCheckViolation(err error) bool {
	if err == nil {
		return false
	}
	if code, _, ok := sqlState(err); ok {
		return code == sqlStateCheckViolation
	}
	return strings.Contains(err.Error(), "CHECK constraint failed")
}

// IsRetryable reports lock timeouts, deadlocks and serialization failures: the transaction
// rolled back entirely and the caller may retry from scratch.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if code, _, ok := sqlState(err); ok {
		switch code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateLockNotAvailable:
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}

func sqlState(err error) (string, string, bool) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code, pgxErr.ConstraintName, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint, true
	}
	return "", "", false
}

// Classify maps a persistence failure onto the typed error taxonomy. Errors that are already
// typed pass through untouched.
func Classify(err error, message string) error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	switch {
	case IsRetryable(err):
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "The operation conflicted with concurrent activity. Please retry.")
	case IsUniqueViolation(err, ""):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, message+": duplicate value")
	case IsForeignKeyViolation(err):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, message+": referenced record missing or still in use")
	case IsCheckViolation(err):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, message+": value out of range")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
	}
}
