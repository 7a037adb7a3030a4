package service

import (
	"context"
	"time"

	"library-backend/internal/cache"
	"library-backend/internal/clock"
	"library-backend/internal/domain"
	"library-backend/internal/metrics"
	"library-backend/internal/repository"
)

const maxStatsLimit = 100

type statsService struct {
	stats   repository.StatsRepository
	clock   clock.Clock
	cache   *cache.Cache
	metrics *metrics.Metrics
}

func NewStatsService(stats repository.StatsRepository, clk clock.Clock, statsCache *cache.Cache, m *metrics.Metrics) StatsService {
	return &statsService{stats: stats, clock: clk, cache: statsCache, metrics: m}
}

func cached[T any](ctx context.Context, s *statsService, key string, tags []string, load func(ctx context.Context) (T, error)) (T, error) {
	if s.cache == nil {
		return load(ctx)
	}
	v, hit, err := cache.GetOrLoad(ctx, s.cache, key, tags, load)
	if err == nil {
		s.metrics.CacheLookup(hit)
	}
	return v, err
}

func clampLimit(limit int32) (int32, error) {
	if limit < 0 {
		return 0, domain.NewError(domain.KindInvalidArgument, "limit cannot be negative")
	}
	if limit == 0 {
		return 10, nil
	}
	if limit > maxStatsLimit {
		return maxStatsLimit, nil
	}
	return limit, nil
}

// The overdue count depends on now, so the key carries the current minute.
func (s *statsService) General(ctx context.Context) (*domain.GeneralStats, error) {
	now := s.clock.Now()
	key := cache.Key("general", now.Truncate(time.Minute).Unix())
	return cached(ctx, s, key, []string{cache.TagBooks, cache.TagUsers, cache.TagLoans}, func(ctx context.Context) (*domain.GeneralStats, error) {
		return s.stats.General(ctx, now)
	})
}

func (s *statsService) MostBorrowedBooks(ctx context.Context, limit int32) ([]domain.BookLoanCount, error) {
	limit, err := clampLimit(limit)
	if err != nil {
		return nil, err
	}
	return cached(ctx, s, cache.Key("most_borrowed_books", limit), []string{cache.TagBooks, cache.TagLoans}, func(ctx context.Context) ([]domain.BookLoanCount, error) {
		return s.stats.MostBorrowedBooks(ctx, limit)
	})
}

func (s *statsService) MostActiveUsers(ctx context.Context, limit int32) ([]domain.UserLoanCount, error) {
	limit, err := clampLimit(limit)
	if err != nil {
		return nil, err
	}
	return cached(ctx, s, cache.Key("most_active_users", limit), []string{cache.TagUsers, cache.TagLoans}, func(ctx context.Context) ([]domain.UserLoanCount, error) {
		return s.stats.MostActiveUsers(ctx, limit)
	})
}

// MonthlyLoans counts loans per calendar month over the last months months,
// the current one included.
func (s *statsService) MonthlyLoans(ctx context.Context, months int32) ([]domain.MonthlyLoanCount, error) {
	if months < 0 {
		return nil, domain.NewError(domain.KindInvalidArgument, "months cannot be negative")
	}
	if months == 0 {
		months = 12
	}
	now := s.clock.Now().UTC()
	since := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -int(months-1), 0)
	return cached(ctx, s, cache.Key("monthly_loans", since.Unix()), []string{cache.TagLoans}, func(ctx context.Context) ([]domain.MonthlyLoanCount, error) {
		return s.stats.MonthlyLoans(ctx, since)
	})
}
