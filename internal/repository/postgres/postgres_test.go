package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/domain"
	"library-backend/internal/repository"
	"library-backend/internal/repository/postgres"
)

var (
	bookCols = []string{"id", "title", "author", "isbn", "published_year", "description", "quantity", "created_on", "updated_on"}
	loanCols = []string{"id", "user_id", "book_id", "loan_date", "due_date", "return_date", "extended"}
	userCols = []string{"id", "email", "full_name", "password_hash", "is_active", "is_admin", "created_on", "updated_on"}
)

func newMockStore(t *testing.T) (*postgres.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return postgres.NewStore(sqlx.NewDb(db, "postgres")), mock
}

func TestBookRepository_Create(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		b := &domain.Book{Title: "Dune", Author: "Frank Herbert", ISBN: "978-0441013593", PublishedYear: 1965, Quantity: 3}
		mock.ExpectQuery("INSERT INTO books").
			WithArgs(b.Title, b.Author, b.ISBN, b.PublishedYear, b.Description, b.Quantity, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

		require.NoError(t, store.Books().Create(ctx, b))
		assert.Equal(t, int32(7), b.ID)
		assert.False(t, b.CreatedOn.IsZero())
	})

	t.Run("Duplicate ISBN", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO books").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "books_isbn_key"})

		err := store.Books().Create(ctx, &domain.Book{Title: "Dune", Author: "Frank Herbert", ISBN: "978-0441013593"})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})
}

func TestBookRepository_GetByID(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM books WHERE id = \$1`).
			WithArgs(int32(7)).
			WillReturnRows(sqlmock.NewRows(bookCols).AddRow(7, "Dune", "Frank Herbert", "978-0441013593", 1965, "", 3, now, now))
		mock.ExpectQuery(`SELECT category_id FROM book_categories WHERE book_id = \$1`).
			WithArgs(int32(7)).
			WillReturnRows(sqlmock.NewRows([]string{"category_id"}).AddRow(1).AddRow(4))

		b, err := store.Books().GetByID(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, "Dune", b.Title)
		assert.Equal(t, int32(3), b.Quantity)
		assert.Equal(t, []int32{1, 4}, b.CategoryIDs)
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM books WHERE id = \$1`).
			WithArgs(int32(9)).
			WillReturnRows(sqlmock.NewRows(bookCols))

		_, err := store.Books().GetByID(ctx, 9)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("For Update", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM books WHERE id = \$1 FOR UPDATE`).
			WithArgs(int32(7)).
			WillReturnRows(sqlmock.NewRows(bookCols).AddRow(7, "Dune", "Frank Herbert", "978-0441013593", 1965, "", 0, now, now))

		b, err := store.Books().GetByIDForUpdate(ctx, 7)
		require.NoError(t, err)
		assert.False(t, b.IsAvailable())
	})
}

func TestBookRepository_List(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "books" WHERE (.+)"title" ILIKE \$1(.+)"quantity" > \$2`).
		WithArgs("%dune%", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT "id", "title", (.+) FROM "books" WHERE (.+) ORDER BY "quantity" DESC LIMIT`).
		WillReturnRows(sqlmock.NewRows(bookCols).AddRow(7, "Dune", "Frank Herbert", "978-0441013593", 1965, "", 3, now, now))

	books, total, err := store.Books().List(context.Background(),
		domain.BookFilter{Title: "dune", AvailableOnly: true},
		domain.Page{Limit: 10, Sort: domain.SortOrder{Field: "quantity", Desc: true}})
	require.NoError(t, err)
	assert.Equal(t, int32(1), total)
	require.Len(t, books, 1)
	assert.Equal(t, int32(7), books[0].ID)
}

func TestBookRepository_SetQuantity(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	t.Run("Negative Rejected Without Query", func(t *testing.T) {
		err := store.Books().SetQuantity(ctx, 1, -1)
		assert.ErrorIs(t, err, domain.ErrInvariantViolation)
	})

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`UPDATE books SET quantity=\$1`).
			WithArgs(int32(2), sqlmock.AnyArg(), int32(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, store.Books().SetQuantity(ctx, 1, 2))
	})

	t.Run("Missing Book", func(t *testing.T) {
		mock.ExpectExec(`UPDATE books SET quantity=\$1`).
			WithArgs(int32(2), sqlmock.AnyArg(), int32(99)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, store.Books().SetQuantity(ctx, 99, 2), domain.ErrNotFound)
	})

	t.Run("Check Constraint", func(t *testing.T) {
		mock.ExpectExec(`UPDATE books SET quantity=\$1`).
			WillReturnError(&pgconn.PgError{Code: "23514", ConstraintName: "books_quantity_non_negative"})
		assert.ErrorIs(t, store.Books().SetQuantity(ctx, 1, 0), domain.ErrInvariantViolation)
	})
}

func TestBookRepository_SetCategories(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM book_categories WHERE book_id = \$1`).
		WithArgs(int32(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "book_categories" \("book_id", "category_id"\) VALUES`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	assert.NoError(t, store.Books().SetCategories(context.Background(), 7, []int32{1, 2}))
}

func TestLoanRepository(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	loanDate := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	due := loanDate.Add(14 * 24 * time.Hour)

	t.Run("Create", func(t *testing.T) {
		l := &domain.Loan{UserID: 1, BookID: 2, LoanDate: loanDate, DueDate: due}
		mock.ExpectQuery("INSERT INTO loans").
			WithArgs(int32(1), int32(2), loanDate, due, nil, false).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
		require.NoError(t, store.Loans().Create(ctx, l))
		assert.Equal(t, int32(11), l.ID)
	})

	t.Run("Create Races Active Loan Index", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO loans").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "loans_one_active_per_user_book"})
		err := store.Loans().Create(ctx, &domain.Loan{UserID: 1, BookID: 2, LoanDate: loanDate, DueDate: due})
		assert.ErrorIs(t, err, domain.ErrTransient)
	})

	t.Run("List Active By User", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM loans WHERE user_id = \$1 AND return_date IS NULL ORDER BY id`).
			WithArgs(int32(1)).
			WillReturnRows(sqlmock.NewRows(loanCols).
				AddRow(11, 1, 2, loanDate, due, nil, false).
				AddRow(12, 1, 3, loanDate, due, nil, true))
		loans, err := store.Loans().ListActiveByUser(ctx, 1)
		require.NoError(t, err)
		require.Len(t, loans, 2)
		assert.Nil(t, loans[0].ReturnDate)
		assert.True(t, loans[1].Extended)
	})

	t.Run("List Overdue", func(t *testing.T) {
		now := due.Add(time.Hour)
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "loans" WHERE (.+)"return_date" IS NULL(.+)"due_date" < \$1`).
			WithArgs(now).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery(`SELECT "id", "user_id", (.+) FROM "loans" WHERE (.+) ORDER BY "due_date" ASC`).
			WillReturnRows(sqlmock.NewRows(loanCols).AddRow(11, 1, 2, loanDate, due, nil, false))
		loans, total, err := store.Loans().List(ctx, domain.LoanFilter{OverdueAt: &now}, domain.Page{Sort: domain.SortOrder{Field: "due_date"}})
		require.NoError(t, err)
		assert.Equal(t, int32(1), total)
		assert.True(t, loans[0].IsOverdue(now))
	})

	t.Run("Update", func(t *testing.T) {
		returned := due
		mock.ExpectExec(`UPDATE loans SET due_date=\$1, return_date=\$2, extended=\$3 WHERE id=\$4`).
			WithArgs(due, &returned, false, int32(11)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, store.Loans().Update(ctx, &domain.Loan{ID: 11, DueDate: due, ReturnDate: &returned}))
	})

	t.Run("Count Active By Book", func(t *testing.T) {
		mock.ExpectQuery(`SELECT count\(\*\) FROM loans WHERE book_id = \$1 AND return_date IS NULL`).
			WithArgs(int32(2)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
		n, err := store.Loans().CountActiveByBook(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, int32(3), n)
	})
}

func TestUserRepository_GetByEmail(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE LOWER\(email\) = LOWER\(\$1\)`).
		WithArgs("Ada@Example.com").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(1, "ada@example.com", "Ada", "hash", true, false, now, now))

	u, err := store.Users().GetByEmail(context.Background(), "Ada@Example.com")
	require.NoError(t, err)
	assert.Equal(t, int32(1), u.ID)
	assert.True(t, u.IsActive)
}

func TestReservationRepository(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	cutoff := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM reservations WHERE user_id = \$1 AND book_id = \$2\)`).
		WithArgs(int32(1), int32(2)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	exists, err := store.Reservations().Exists(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectExec(`DELETE FROM reservations WHERE reservation_date < \$1`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))
	n, err := store.Reservations().DeleteOlderThan(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestStatsRepository(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT\s+\(SELECT COALESCE\(SUM\(quantity\), 0\) FROM books\) AS total_books`).
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows([]string{"total_books", "unique_books", "total_users", "active_users", "total_loans", "active_loans", "overdue_loans"}).
			AddRow(12, 4, 3, 2, 9, 5, 1))
	general, err := store.Stats().General(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(12), general.TotalBooks)
	assert.Equal(t, int64(1), general.OverdueLoans)

	mock.ExpectQuery(`SELECT "b"."id" AS "id", (.+) FROM "books" AS "b" INNER JOIN "loans" AS "l" (.+) GROUP BY "b"."id" ORDER BY "loan_count" DESC, "b"."id" ASC LIMIT`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "author", "loan_count"}).AddRow(4, "Dune", "Frank Herbert", 6))
	top, err := store.Stats().MostBorrowedBooks(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, int64(6), top[0].LoanCount)

	mock.ExpectQuery(`to_char\(loan_date, 'YYYY-MM'\) AS "month"`).
		WillReturnRows(sqlmock.NewRows([]string{"month", "loan_count"}).AddRow("2024-02", 4).AddRow("2024-03", 2))
	monthly, err := store.Stats().MonthlyLoans(ctx, now.AddDate(0, -2, 0))
	require.NoError(t, err)
	assert.Equal(t, "2024-02", monthly[0].Month)
}

func TestStore_WithinTx(t *testing.T) {
	ctx := context.Background()

	t.Run("Commit", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE books SET quantity=\$1`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			return repos.Books().SetQuantity(ctx, 1, 4)
		})
		assert.NoError(t, err)
	})

	t.Run("Rollback Keeps Typed Error", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			return domain.NewError(domain.KindUnavailable, "no copies left")
		})
		assert.ErrorIs(t, err, domain.ErrUnavailable)
	})

	t.Run("Lock Timeout Is Transient", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1 FOR UPDATE`).
			WillReturnError(&pq.Error{Code: "55P03"})
		mock.ExpectRollback()

		err := store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			_, err := repos.Users().GetByIDForUpdate(ctx, 1)
			return err
		})
		assert.ErrorIs(t, err, domain.ErrTransient)
	})

	t.Run("Commit Serialization Failure", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(&pgconn.PgError{Code: "40001"})

		err := store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error { return nil })
		assert.ErrorIs(t, err, domain.ErrTransient)
	})

	t.Run("Begin Failure", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

		called := false
		err := store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			called = true
			return nil
		})
		assert.Error(t, err)
		assert.False(t, called)
	})

	t.Run("Not Found Inside Tx", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM loans WHERE id = \$1 FOR UPDATE`).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		err := store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			_, err := repos.Loans().GetByIDForUpdate(ctx, 5)
			return err
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestOpen(t *testing.T) {
	_, err := postgres.Open("sqlite", "file::memory:", 1)
	assert.Error(t, err)
}
