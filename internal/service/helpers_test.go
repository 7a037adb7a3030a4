package service_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"library-backend/internal/cache"
	"library-backend/internal/clock"
	"library-backend/internal/domain"
	"library-backend/internal/metrics"
	"library-backend/internal/repository/memory"
	"library-backend/internal/service"
)

var (
	epoch = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	seq   atomic.Int64
)

type fixture struct {
	store   *memory.Store
	clock   *clock.Fake
	cache   *cache.Cache
	metrics *metrics.Metrics
	tx      *service.TxRunner
	loans   service.LoanService
	books   service.BookService
	users   service.UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   memory.NewStore(),
		clock:   clock.NewFake(epoch),
		cache:   cache.New(64, time.Minute),
		metrics: metrics.New(),
	}
	f.tx = service.NewTxRunner(f.store, 3, time.Millisecond, f.metrics)
	f.loans = service.NewLoanService(f.store, f.tx, f.clock, service.LoanSettings{
		DefaultPeriodDays:    14,
		DefaultExtensionDays: 7,
		MaxActiveLoans:       5,
	}, f.cache, f.metrics)
	f.books = service.NewBookService(f.store, f.tx, f.cache)
	f.users = service.NewUserService(f.store, f.cache)
	return f
}

func (f *fixture) user(t *testing.T, active bool) *domain.User {
	t.Helper()
	u := &domain.User{
		Email:    fmt.Sprintf("reader%d@example.com", seq.Add(1)),
		FullName: "Reader",
		IsActive: true,
	}
	require.NoError(t, f.users.CreateUser(context.Background(), u, "password123"))
	if !active {
		inactive := false
		_, err := f.users.UpdateUser(context.Background(), domain.Caller{IsAdmin: true}, service.UserUpdate{ID: u.ID, IsActive: &inactive})
		require.NoError(t, err)
		u.IsActive = false
	}
	return u
}

func (f *fixture) book(t *testing.T, quantity int32) *domain.Book {
	t.Helper()
	b := &domain.Book{
		Title:    "Dune",
		Author:   "Frank Herbert",
		ISBN:     fmt.Sprintf("978-%d", seq.Add(1)),
		Quantity: quantity,
	}
	require.NoError(t, f.books.CreateBook(context.Background(), b))
	return b
}

func (f *fixture) quantity(t *testing.T, bookID int32) int32 {
	t.Helper()
	b, err := f.store.Books().GetByID(context.Background(), bookID)
	require.NoError(t, err)
	return b.Quantity
}
