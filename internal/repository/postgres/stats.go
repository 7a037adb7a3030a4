package postgres

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"

	"library-backend/internal/domain"
)

type statsRepository struct {
	q querier
}

func (r *statsRepository) General(ctx context.Context, now time.Time) (*domain.GeneralStats, error) {
	query := `SELECT
		(SELECT COALESCE(SUM(quantity), 0) FROM books) AS total_books,
		(SELECT count(*) FROM books) AS unique_books,
		(SELECT count(*) FROM users) AS total_users,
		(SELECT count(*) FROM users WHERE is_active) AS active_users,
		(SELECT count(*) FROM loans) AS total_loans,
		(SELECT count(*) FROM loans WHERE return_date IS NULL) AS active_loans,
		(SELECT count(*) FROM loans WHERE return_date IS NULL AND due_date < $1) AS overdue_loans`
	stats := &domain.GeneralStats{}
	if err := r.q.GetContext(ctx, stats, query, now); err != nil {
		return nil, classify(err)
	}
	return stats, nil
}

func (r *statsRepository) MostBorrowedBooks(ctx context.Context, limit int32) ([]domain.BookLoanCount, error) {
	query, args, err := toSQL(dialect.From(goqu.T("books").As("b")).Prepared(true).
		Select(
			goqu.I("b.id").As("id"),
			goqu.I("b.title").As("title"),
			goqu.I("b.author").As("author"),
			goqu.COUNT(goqu.I("l.id")).As("loan_count"),
		).
		Join(goqu.T("loans").As("l"), goqu.On(goqu.I("l.book_id").Eq(goqu.I("b.id")))).
		GroupBy(goqu.I("b.id")).
		Order(goqu.I("loan_count").Desc(), goqu.I("b.id").Asc()).
		Limit(uint(limit)))
	if err != nil {
		return nil, err
	}
	out := []domain.BookLoanCount{}
	if err := r.q.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (r *statsRepository) MostActiveUsers(ctx context.Context, limit int32) ([]domain.UserLoanCount, error) {
	query, args, err := toSQL(dialect.From(goqu.T("users").As("u")).Prepared(true).
		Select(
			goqu.I("u.id").As("id"),
			goqu.I("u.full_name").As("full_name"),
			goqu.I("u.email").As("email"),
			goqu.COUNT(goqu.I("l.id")).As("loan_count"),
		).
		Join(goqu.T("loans").As("l"), goqu.On(goqu.I("l.user_id").Eq(goqu.I("u.id")))).
		GroupBy(goqu.I("u.id")).
		Order(goqu.I("loan_count").Desc(), goqu.I("u.id").Asc()).
		Limit(uint(limit)))
	if err != nil {
		return nil, err
	}
	out := []domain.UserLoanCount{}
	if err := r.q.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (r *statsRepository) MonthlyLoans(ctx context.Context, since time.Time) ([]domain.MonthlyLoanCount, error) {
	query, args, err := toSQL(dialect.From("loans").Prepared(true).
		Select(
			goqu.L("to_char(loan_date, 'YYYY-MM')").As("month"),
			goqu.COUNT(goqu.Star()).As("loan_count"),
		).
		Where(goqu.C("loan_date").Gte(since)).
		GroupBy(goqu.I("month")).
		Order(goqu.I("month").Asc()))
	if err != nil {
		return nil, err
	}
	out := []domain.MonthlyLoanCount{}
	if err := r.q.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, classify(err)
	}
	return out, nil
}
