package persistence

import (
	"errors"

	"github.com/fulfillcrm/backend/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// PostgreSQL SQLSTATE codes the domain reacts to
const (
	pgLockNotAvailable     = "55P03"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// translateError maps driver errors onto domain errors. Only order rows are
// locked with NOWAIT, so a lock-not-available error always means ORDER_LOCKED.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable:
			return shared.ErrOrderLocked
		case pgSerializationFailure, pgDeadlockDetected:
			return shared.ErrSerializationFailure
		case pgUniqueViolation:
			return shared.ErrAlreadyExists
		}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}
	return err
}

// notFound maps gorm.ErrRecordNotFound to the given domain error
func notFound(err error, domainErr error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainErr
	}
	return translateError(err)
}
