package domain

import "time"

type Reservation struct {
	ID              int32     `json:"id" db:"id"`
	UserID          int32     `json:"user_id" db:"user_id"`
	BookID          int32     `json:"book_id" db:"book_id"`
	ReservationDate time.Time `json:"reservation_date" db:"reservation_date"`
}
