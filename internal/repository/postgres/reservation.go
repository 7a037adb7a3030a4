package postgres

import (
	"context"
	"time"

	"library-backend/internal/domain"
)

type reservationRepository struct {
	q querier
}

const reservationSelect = `SELECT id, user_id, book_id, reservation_date FROM reservations`

func (r *reservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	query := `INSERT INTO reservations (user_id, book_id, reservation_date) VALUES ($1, $2, $3) RETURNING id`
	return classify(r.q.QueryRowxContext(ctx, query, res.UserID, res.BookID, res.ReservationDate).Scan(&res.ID))
}

func (r *reservationRepository) GetByID(ctx context.Context, id int32) (*domain.Reservation, error) {
	res := &domain.Reservation{}
	if err := r.q.GetContext(ctx, res, reservationSelect+` WHERE id = $1`, id); err != nil {
		return nil, notFound(err, "reservation", id)
	}
	return res, nil
}

func (r *reservationRepository) Exists(ctx context.Context, userID, bookID int32) (bool, error) {
	var exists bool
	err := r.q.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM reservations WHERE user_id = $1 AND book_id = $2)`, userID, bookID)
	return exists, classify(err)
}

func (r *reservationRepository) ListByUser(ctx context.Context, userID int32) ([]domain.Reservation, error) {
	out := []domain.Reservation{}
	if err := r.q.SelectContext(ctx, &out, reservationSelect+` WHERE user_id = $1 ORDER BY reservation_date, id`, userID); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (r *reservationRepository) ListByBook(ctx context.Context, bookID int32) ([]domain.Reservation, error) {
	out := []domain.Reservation{}
	if err := r.q.SelectContext(ctx, &out, reservationSelect+` WHERE book_id = $1 ORDER BY reservation_date, id`, bookID); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (r *reservationRepository) Delete(ctx context.Context, id int32) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	return affectedOne(res, err, "reservation", id)
}

func (r *reservationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM reservations WHERE reservation_date < $1`, cutoff)
	if err != nil {
		return 0, classify(err)
	}
	return res.RowsAffected()
}
