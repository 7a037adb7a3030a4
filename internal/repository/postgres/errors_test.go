package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"library-backend/internal/domain"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want *domain.Error
	}{
		{"pq serialization", &pq.Error{Code: codeSerializationFailure}, domain.ErrTransient},
		{"pgx deadlock", &pgconn.PgError{Code: codeDeadlockDetected}, domain.ErrTransient},
		{"lock not available", &pq.Error{Code: codeLockNotAvailable}, domain.ErrTransient},
		{"active loan race", &pq.Error{Code: codeUniqueViolation, Constraint: constraintOneActiveLoan}, domain.ErrTransient},
		{"pgx active loan race", &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: constraintOneActiveLoan}, domain.ErrTransient},
		{"isbn unique", &pq.Error{Code: codeUniqueViolation, Constraint: "books_isbn_key"}, domain.ErrConflict},
		{"foreign key", &pgconn.PgError{Code: codeForeignKeyViolation}, domain.ErrConflict},
		{"quantity check", &pq.Error{Code: codeCheckViolation, Constraint: "books_quantity_non_negative"}, domain.ErrInvariantViolation},
		{"wrapped", fmt.Errorf("exec: %w", &pq.Error{Code: codeSerializationFailure}), domain.ErrTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, classify(tc.err), tc.want)
		})
	}

	t.Run("Passthrough", func(t *testing.T) {
		assert.NoError(t, classify(nil))
		typed := domain.NewError(domain.KindUnavailable, "no copies")
		assert.Same(t, typed, classify(typed))
		assert.ErrorIs(t, classify(context.Canceled), context.Canceled)

		plain := errors.New("connection reset")
		assert.Equal(t, plain, classify(plain))
		assert.Equal(t, domain.KindInternal, domain.KindOf(classify(plain)))

		other := &pq.Error{Code: "42601"}
		assert.Equal(t, error(other), classify(other))
	})
}

func TestNotFoundAndAffectedOne(t *testing.T) {
	assert.ErrorIs(t, notFound(sql.ErrNoRows, "book", 1), domain.ErrNotFound)
	assert.ErrorIs(t, notFound(&pq.Error{Code: codeDeadlockDetected}, "book", 1), domain.ErrTransient)

	assert.NoError(t, affectedOne(sqlmock.NewResult(0, 1), nil, "book", 1))
	assert.ErrorIs(t, affectedOne(sqlmock.NewResult(0, 0), nil, "book", 1), domain.ErrNotFound)
	assert.ErrorIs(t, affectedOne(nil, &pq.Error{Code: codeForeignKeyViolation}, "book", 1), domain.ErrConflict)
	assert.Error(t, affectedOne(sqlmock.NewErrorResult(errors.New("no rows info")), nil, "book", 1))
}

func TestOrderExpression(t *testing.T) {
	ds := dialect.From("books").Order(orderExpression(bookSortable, "year", true, "id"))
	query, _, err := ds.ToSQL()
	assert.NoError(t, err)
	assert.Contains(t, query, `ORDER BY "published_year" DESC`)

	ds = dialect.From("books").Order(orderExpression(bookSortable, "password_hash; --", false, "id"))
	query, _, err = ds.ToSQL()
	assert.NoError(t, err)
	assert.Contains(t, query, `ORDER BY "id" ASC`)
}
