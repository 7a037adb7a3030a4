package service

import (
	"context"
	"time"

	"library-backend/internal/clock"
	"library-backend/internal/domain"
	"library-backend/internal/logger"
	"library-backend/internal/repository"
)

type reservationService struct {
	store repository.Store
	clock clock.Clock
}

func NewReservationService(store repository.Store, clk clock.Clock) ReservationService {
	return &reservationService{store: store, clock: clk}
}

func (s *reservationService) CreateReservation(ctx context.Context, userID, bookID int32) (*domain.Reservation, error) {
	var res *domain.Reservation
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		user, err := repos.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if !user.IsActive {
			return domain.NewError(domain.KindInactiveUser, "user %d is inactive", userID)
		}
		if _, err := repos.Books().GetByID(ctx, bookID); err != nil {
			return err
		}
		exists, err := repos.Reservations().Exists(ctx, userID, bookID)
		if err != nil {
			return err
		}
		if exists {
			return domain.NewError(domain.KindConflict, "user %d already reserved book %d", userID, bookID)
		}
		r := &domain.Reservation{UserID: userID, BookID: bookID, ReservationDate: s.clock.Now()}
		if err := repos.Reservations().Create(ctx, r); err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *reservationService) ListByUser(ctx context.Context, userID int32) ([]domain.Reservation, error) {
	return s.store.Reservations().ListByUser(ctx, userID)
}

func (s *reservationService) ListByBook(ctx context.Context, bookID int32) ([]domain.Reservation, error) {
	return s.store.Reservations().ListByBook(ctx, bookID)
}

func (s *reservationService) CancelReservation(ctx context.Context, caller domain.Caller, reservationID int32) error {
	res, err := s.store.Reservations().GetByID(ctx, reservationID)
	if err != nil {
		return err
	}
	if !caller.IsAdmin && res.UserID != caller.UserID {
		return domain.NewError(domain.KindPermissionDenied, "reservation %d belongs to another user", reservationID)
	}
	return s.store.Reservations().Delete(ctx, reservationID)
}

// PurgeOlderThan removes reservations made more than days ago.
func (s *reservationService) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	if days < 1 {
		return 0, domain.NewError(domain.KindInvalidArgument, "retention must be at least 1 day")
	}
	cutoff := s.clock.Now().Add(-time.Duration(days) * 24 * time.Hour)
	n, err := s.store.Reservations().DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	logger.Info("Purged stale reservations", "count", n, "cutoff", cutoff)
	return n, nil
}
