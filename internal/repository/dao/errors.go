package dao

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrUserEmailExists = errors.New("user already exists")
	ErrUserNotFound    = errors.New("user not found")
	ErrDropNotFound    = errors.New("drop not found")
	ErrDropHasClaims   = errors.New("drop has claims and cannot be deleted")
	ErrOutOfStock      = errors.New("drop is out of stock")
	ErrAlreadyClaimed  = errors.New("user already claimed this drop")
	ErrClaimCodeTaken  = errors.New("claim code already in use")
	ErrClaimNotFound   = errors.New("claim not found")

	// ErrTxConflict marks a transaction the database aborted to keep concurrent writers
	// serializable. Retrying the whole unit of work is safe.
	ErrTxConflict = errors.New("transaction conflict")
)

const (
	usersEmailIndex     = "ux_users_email"
	claimsUserDropIndex = "ux_claims_user_drop"
	claimsCodeIndex     = "ux_claims_code"
)

func asPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}

	return nil, false
}

func isUniqueViolation(err error, index string) bool {
	pgErr, ok := asPgError(err)
	if !ok || pgErr.Code != pgerrcode.UniqueViolation {
		return false
	}

	return pgErr.ConstraintName == index || strings.Contains(pgErr.Message, `"`+index+`"`)
}

// classifyTxErr turns the errors Postgres uses to abort one of two racing transactions
// into ErrTxConflict and leaves everything else untouched.
func classifyTxErr(err error) error {
	if err == nil {
		return nil
	}

	pgErr, ok := asPgError(err)
	if !ok {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected, pgerrcode.LockNotAvailable:
		return fmt.Errorf("%w: %s (%s)", ErrTxConflict, pgErr.Message, pgErr.Code)
	}

	return err
}
