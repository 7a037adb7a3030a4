package postgres

import (
	"context"

	"library-backend/internal/domain"
)

type categoryRepository struct {
	q querier
}

func (r *categoryRepository) Create(ctx context.Context, c *domain.Category) error {
	query := `INSERT INTO categories (name, description) VALUES ($1, $2) RETURNING id`
	return classify(r.q.QueryRowxContext(ctx, query, c.Name, c.Description).Scan(&c.ID))
}

func (r *categoryRepository) GetByID(ctx context.Context, id int32) (*domain.Category, error) {
	c := &domain.Category{}
	if err := r.q.GetContext(ctx, c, `SELECT id, name, description FROM categories WHERE id = $1`, id); err != nil {
		return nil, notFound(err, "category", id)
	}
	return c, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	categories := []domain.Category{}
	if err := r.q.SelectContext(ctx, &categories, `SELECT id, name, description FROM categories ORDER BY name`); err != nil {
		return nil, classify(err)
	}
	return categories, nil
}

func (r *categoryRepository) Delete(ctx context.Context, id int32) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	return affectedOne(res, err, "category", id)
}
