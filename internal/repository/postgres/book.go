package postgres

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"library-backend/internal/domain"
	"library-backend/internal/logger"
)

type bookRepository struct {
	q querier
}

var bookColumns = []interface{}{"id", "title", "author", "isbn", "published_year", "description", "quantity", "created_on", "updated_on"}

var bookSortable = map[string]string{
	"id":       "id",
	"title":    "title",
	"author":   "author",
	"quantity": "quantity",
	"year":     "published_year",
}

const bookSelect = `SELECT id, title, author, isbn, published_year, description, quantity, created_on, updated_on FROM books`

func (r *bookRepository) Create(ctx context.Context, b *domain.Book) error {
	query := `INSERT INTO books (title, author, isbn, published_year, description, quantity, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	now := time.Now().UTC()
	b.CreatedOn = now
	b.UpdatedOn = now
	logger.DatabaseCall("INSERT", "books", "isbn", b.ISBN)
	err := r.q.QueryRowxContext(ctx, query, b.Title, b.Author, b.ISBN, b.PublishedYear, b.Description, b.Quantity, b.CreatedOn, b.UpdatedOn).Scan(&b.ID)
	return classify(err)
}

func (r *bookRepository) GetByID(ctx context.Context, id int32) (*domain.Book, error) {
	b := &domain.Book{}
	if err := r.q.GetContext(ctx, b, bookSelect+` WHERE id = $1`, id); err != nil {
		return nil, notFound(err, "book", id)
	}
	if err := r.q.SelectContext(ctx, &b.CategoryIDs, `SELECT category_id FROM book_categories WHERE book_id = $1 ORDER BY category_id`, id); err != nil {
		return nil, classify(err)
	}
	return b, nil
}

func (r *bookRepository) GetByIDForUpdate(ctx context.Context, id int32) (*domain.Book, error) {
	b := &domain.Book{}
	if err := r.q.GetContext(ctx, b, bookSelect+` WHERE id = $1 FOR UPDATE`, id); err != nil {
		return nil, notFound(err, "book", id)
	}
	return b, nil
}

func (r *bookRepository) GetByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	b := &domain.Book{}
	if err := r.q.GetContext(ctx, b, bookSelect+` WHERE isbn = $1`, isbn); err != nil {
		return nil, notFound(err, "book with isbn", isbn)
	}
	return b, nil
}

func (r *bookRepository) List(ctx context.Context, f domain.BookFilter, page domain.Page) ([]domain.Book, int32, error) {
	page = page.Normalize()
	var where []exp.Expression
	if f.Title != "" {
		where = append(where, goqu.C("title").ILike("%"+f.Title+"%"))
	}
	if f.Author != "" {
		where = append(where, goqu.C("author").ILike("%"+f.Author+"%"))
	}
	if f.AvailableOnly {
		where = append(where, goqu.C("quantity").Gt(0))
	}
	if f.CategoryID != 0 {
		where = append(where, goqu.C("id").In(
			dialect.From("book_categories").Select("book_id").Where(goqu.C("category_id").Eq(f.CategoryID)),
		))
	}

	countQuery, countArgs, err := toSQL(dialect.From("books").Prepared(true).
		Select(goqu.COUNT(goqu.Star())).Where(where...))
	if err != nil {
		return nil, 0, err
	}
	var count int32
	if err := r.q.GetContext(ctx, &count, countQuery, countArgs...); err != nil {
		return nil, 0, classify(err)
	}

	query, args, err := toSQL(dialect.From("books").Prepared(true).
		Select(bookColumns...).
		Where(where...).
		Order(orderExpression(bookSortable, page.Sort.Field, page.Sort.Desc, "id")).
		Limit(uint(page.Limit)).
		Offset(uint(page.Offset)))
	if err != nil {
		return nil, 0, err
	}
	books := []domain.Book{}
	if err := r.q.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, 0, classify(err)
	}
	return books, count, nil
}

func (r *bookRepository) Update(ctx context.Context, b *domain.Book) error {
	query := `UPDATE books SET title=$1, author=$2, published_year=$3, description=$4, updated_on=$5 WHERE id=$6`
	b.UpdatedOn = time.Now().UTC()
	res, err := r.q.ExecContext(ctx, query, b.Title, b.Author, b.PublishedYear, b.Description, b.UpdatedOn, b.ID)
	return affectedOne(res, err, "book", b.ID)
}

func (r *bookRepository) SetQuantity(ctx context.Context, id int32, quantity int32) error {
	if quantity < 0 {
		return domain.NewError(domain.KindInvariantViolation, "quantity of book %d cannot become %d", id, quantity)
	}
	logger.DatabaseCall("UPDATE", "books.quantity", "book_id", id, "quantity", quantity)
	res, err := r.q.ExecContext(ctx, `UPDATE books SET quantity=$1, updated_on=$2 WHERE id=$3`, quantity, time.Now().UTC(), id)
	return affectedOne(res, err, "book", id)
}

func (r *bookRepository) SetCategories(ctx context.Context, bookID int32, categoryIDs []int32) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM book_categories WHERE book_id = $1`, bookID); err != nil {
		return classify(err)
	}
	if len(categoryIDs) == 0 {
		return nil
	}
	rows := make([]interface{}, 0, len(categoryIDs))
	for _, cid := range categoryIDs {
		rows = append(rows, goqu.Record{"book_id": bookID, "category_id": cid})
	}
	query, args, err := toSQL(dialect.Insert("book_categories").Prepared(true).Rows(rows...))
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, query, args...)
	return classify(err)
}

func (r *bookRepository) Delete(ctx context.Context, id int32) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	return affectedOne(res, err, "book", id)
}
