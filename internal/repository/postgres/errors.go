package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"library-backend/internal/domain"
)

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"

	// A concurrent borrow of the same (user, book) pair hit the partial unique index.
	// Retrying re-runs the eligibility checks, which then report the duplicate.
	constraintOneActiveLoan = "loans_one_active_per_user_book"
)

// pgError extracts the SQLSTATE and constraint from either driver's error type.
func pgError(err error) (code, constraint string, ok bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint, true
	}
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code, pgxErr.ConstraintName, true
	}
	return "", "", false
}

// classify maps driver errors onto domain error kinds. Typed errors pass through.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	code, constraint, ok := pgError(err)
	if !ok {
		return err
	}
	switch code {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return domain.WrapError(domain.KindTransient, err, "write conflict")
	case codeUniqueViolation:
		if constraint == constraintOneActiveLoan {
			return domain.WrapError(domain.KindTransient, err, "concurrent loan for the same book")
		}
		return domain.WrapError(domain.KindConflict, err, fmt.Sprintf("unique constraint %s violated", constraint))
	case codeForeignKeyViolation:
		return domain.WrapError(domain.KindConflict, err, "record is still referenced")
	case codeCheckViolation:
		return domain.WrapError(domain.KindInvariantViolation, err, fmt.Sprintf("check constraint %s violated", constraint))
	}
	return err
}

// notFound turns sql.ErrNoRows into a typed NotFound error for the given entity.
func notFound(err error, entity string, key any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewError(domain.KindNotFound, "%s %v not found", entity, key)
	}
	return classify(err)
}

// affectedOne checks an UPDATE/DELETE touched exactly one row.
func affectedOne(res sql.Result, err error, entity string, id int32) error {
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		return domain.NewError(domain.KindNotFound, "%s %d not found", entity, id)
	}
	return nil
}
