package postgres

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"library-backend/internal/domain"
	"library-backend/internal/logger"
)

type loanRepository struct {
	q querier
}

var loanColumns = []interface{}{"id", "user_id", "book_id", "loan_date", "due_date", "return_date", "extended"}

var loanSortable = map[string]string{
	"id":          "id",
	"loan_date":   "loan_date",
	"due_date":    "due_date",
	"return_date": "return_date",
}

const loanSelect = `SELECT id, user_id, book_id, loan_date, due_date, return_date, extended FROM loans`

func (r *loanRepository) Create(ctx context.Context, l *domain.Loan) error {
	query := `INSERT INTO loans (user_id, book_id, loan_date, due_date, return_date, extended)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	logger.DatabaseCall("INSERT", "loans", "user_id", l.UserID, "book_id", l.BookID)
	return classify(r.q.QueryRowxContext(ctx, query, l.UserID, l.BookID, l.LoanDate, l.DueDate, l.ReturnDate, l.Extended).Scan(&l.ID))
}

func (r *loanRepository) GetByID(ctx context.Context, id int32) (*domain.Loan, error) {
	l := &domain.Loan{}
	if err := r.q.GetContext(ctx, l, loanSelect+` WHERE id = $1`, id); err != nil {
		return nil, notFound(err, "loan", id)
	}
	return l, nil
}

func (r *loanRepository) GetByIDForUpdate(ctx context.Context, id int32) (*domain.Loan, error) {
	l := &domain.Loan{}
	if err := r.q.GetContext(ctx, l, loanSelect+` WHERE id = $1 FOR UPDATE`, id); err != nil {
		return nil, notFound(err, "loan", id)
	}
	return l, nil
}

func loanWhere(f domain.LoanFilter) []exp.Expression {
	var where []exp.Expression
	if f.UserID != 0 {
		where = append(where, goqu.C("user_id").Eq(f.UserID))
	}
	if f.BookID != 0 {
		where = append(where, goqu.C("book_id").Eq(f.BookID))
	}
	if f.ActiveOnly || f.OverdueAt != nil {
		where = append(where, goqu.C("return_date").IsNull())
	}
	if f.OverdueAt != nil {
		where = append(where, goqu.C("due_date").Lt(*f.OverdueAt))
	}
	if f.LoanedSince != nil {
		where = append(where, goqu.C("loan_date").Gte(*f.LoanedSince))
	}
	return where
}

func (r *loanRepository) List(ctx context.Context, f domain.LoanFilter, page domain.Page) ([]domain.Loan, int32, error) {
	page = page.Normalize()
	where := loanWhere(f)

	countQuery, countArgs, err := toSQL(dialect.From("loans").Prepared(true).
		Select(goqu.COUNT(goqu.Star())).Where(where...))
	if err != nil {
		return nil, 0, err
	}
	var count int32
	if err := r.q.GetContext(ctx, &count, countQuery, countArgs...); err != nil {
		return nil, 0, classify(err)
	}

	query, args, err := toSQL(dialect.From("loans").Prepared(true).
		Select(loanColumns...).
		Where(where...).
		Order(orderExpression(loanSortable, page.Sort.Field, page.Sort.Desc, "id")).
		Limit(uint(page.Limit)).
		Offset(uint(page.Offset)))
	if err != nil {
		return nil, 0, err
	}
	loans := []domain.Loan{}
	if err := r.q.SelectContext(ctx, &loans, query, args...); err != nil {
		return nil, 0, classify(err)
	}
	return loans, count, nil
}

func (r *loanRepository) ListActiveByUser(ctx context.Context, userID int32) ([]domain.Loan, error) {
	loans := []domain.Loan{}
	err := r.q.SelectContext(ctx, &loans, loanSelect+` WHERE user_id = $1 AND return_date IS NULL ORDER BY id`, userID)
	if err != nil {
		return nil, classify(err)
	}
	return loans, nil
}

func (r *loanRepository) CountActiveByBook(ctx context.Context, bookID int32) (int32, error) {
	var count int32
	err := r.q.GetContext(ctx, &count, `SELECT count(*) FROM loans WHERE book_id = $1 AND return_date IS NULL`, bookID)
	return count, classify(err)
}

func (r *loanRepository) Update(ctx context.Context, l *domain.Loan) error {
	query := `UPDATE loans SET due_date=$1, return_date=$2, extended=$3 WHERE id=$4`
	logger.DatabaseCall("UPDATE", "loans", "loan_id", l.ID)
	res, err := r.q.ExecContext(ctx, query, l.DueDate, l.ReturnDate, l.Extended, l.ID)
	return affectedOne(res, err, "loan", l.ID)
}

func (r *loanRepository) Delete(ctx context.Context, id int32) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM loans WHERE id = $1`, id)
	return affectedOne(res, err, "loan", id)
}
