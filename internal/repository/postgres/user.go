package postgres

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"library-backend/internal/domain"
	"library-backend/internal/logger"
)

type userRepository struct {
	q querier
}

var userColumns = []interface{}{"id", "email", "full_name", "password_hash", "is_active", "is_admin", "created_on", "updated_on"}

var userSortable = map[string]string{
	"id":        "id",
	"email":     "email",
	"full_name": "full_name",
}

const userSelect = `SELECT id, email, full_name, password_hash, is_active, is_admin, created_on, updated_on FROM users`

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (email, full_name, password_hash, is_active, is_admin, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	now := time.Now().UTC()
	u.CreatedOn = now
	u.UpdatedOn = now
	logger.DatabaseCall("INSERT", "users", "email", u.Email)
	return classify(r.q.QueryRowxContext(ctx, query, u.Email, u.FullName, u.PasswordHash, u.IsActive, u.IsAdmin, u.CreatedOn, u.UpdatedOn).Scan(&u.ID))
}

func (r *userRepository) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	u := &domain.User{}
	if err := r.q.GetContext(ctx, u, userSelect+` WHERE id = $1`, id); err != nil {
		return nil, notFound(err, "user", id)
	}
	return u, nil
}

func (r *userRepository) GetByIDForUpdate(ctx context.Context, id int32) (*domain.User, error) {
	u := &domain.User{}
	if err := r.q.GetContext(ctx, u, userSelect+` WHERE id = $1 FOR UPDATE`, id); err != nil {
		return nil, notFound(err, "user", id)
	}
	return u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u := &domain.User{}
	if err := r.q.GetContext(ctx, u, userSelect+` WHERE LOWER(email) = LOWER($1)`, email); err != nil {
		return nil, notFound(err, "user with email", email)
	}
	return u, nil
}

func (r *userRepository) List(ctx context.Context, f domain.UserFilter, page domain.Page) ([]domain.User, int32, error) {
	page = page.Normalize()
	var where []exp.Expression
	if f.ActiveOnly {
		where = append(where, goqu.C("is_active").IsTrue())
	}
	if f.Email != "" {
		where = append(where, goqu.C("email").ILike("%"+f.Email+"%"))
	}

	countQuery, countArgs, err := toSQL(dialect.From("users").Prepared(true).
		Select(goqu.COUNT(goqu.Star())).Where(where...))
	if err != nil {
		return nil, 0, err
	}
	var count int32
	if err := r.q.GetContext(ctx, &count, countQuery, countArgs...); err != nil {
		return nil, 0, classify(err)
	}

	query, args, err := toSQL(dialect.From("users").Prepared(true).
		Select(userColumns...).
		Where(where...).
		Order(orderExpression(userSortable, page.Sort.Field, page.Sort.Desc, "id")).
		Limit(uint(page.Limit)).
		Offset(uint(page.Offset)))
	if err != nil {
		return nil, 0, err
	}
	users := []domain.User{}
	if err := r.q.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, classify(err)
	}
	return users, count, nil
}

func (r *userRepository) Update(ctx context.Context, u *domain.User) error {
	query := `UPDATE users SET email=$1, full_name=$2, password_hash=$3, is_active=$4, is_admin=$5, updated_on=$6 WHERE id=$7`
	u.UpdatedOn = time.Now().UTC()
	res, err := r.q.ExecContext(ctx, query, u.Email, u.FullName, u.PasswordHash, u.IsActive, u.IsAdmin, u.UpdatedOn, u.ID)
	return affectedOne(res, err, "user", u.ID)
}

func (r *userRepository) Delete(ctx context.Context, id int32) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return affectedOne(res, err, "user", id)
}
