package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"library-backend/internal/clock"
	"library-backend/internal/config"
	"library-backend/internal/domain"
	"library-backend/internal/repository/memory"
	"library-backend/internal/service"
)

type mockEmail struct {
	mock.Mock
}

func (m *mockEmail) SendOverdueReminder(ctx context.Context, email, name string, reminder service.OverdueReminder) error {
	return m.Called(email, reminder.LoanID).Error(0)
}

type jobFixture struct {
	runner *JobRunner
	store  *memory.Store
	clock  *clock.Fake
	email  *mockEmail
	loans  service.LoanService
}

func newJobFixture(t *testing.T) *jobFixture {
	t.Helper()
	store := memory.NewStore()
	clk := clock.NewFake(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	tx := service.NewTxRunner(store, 1, 0, nil)
	loans := service.NewLoanService(store, tx, clk, service.LoanSettings{DefaultPeriodDays: 14, DefaultExtensionDays: 7, MaxActiveLoans: 5}, nil, nil)
	email := new(mockEmail)
	cfg := &config.Config{Scheduler: config.SchedulerConfig{ReservationTTLDays: 30}}
	runner := NewJobRunner(store, &Services{
		Email:        email,
		Loans:        loans,
		Reservations: service.NewReservationService(store, clk),
	}, cfg, clk)
	return &jobFixture{runner: runner, store: store, clock: clk, email: email, loans: loans}
}

func (f *jobFixture) borrow(t *testing.T, email string, active bool, periodDays int32) *domain.Loan {
	t.Helper()
	ctx := context.Background()
	u := &domain.User{Email: email, FullName: email, IsActive: true}
	require.NoError(t, f.store.Users().Create(ctx, u))
	b := &domain.Book{Title: "Book of " + email, Author: "A", ISBN: email, Quantity: 1}
	require.NoError(t, f.store.Books().Create(ctx, b))
	loan, err := f.loans.CreateLoan(ctx, u.ID, b.ID, periodDays)
	require.NoError(t, err)
	if !active {
		u.IsActive = false
		require.NoError(t, f.store.Users().Update(ctx, u))
	}
	return loan
}

func TestSendOverdueReminders(t *testing.T) {
	f := newJobFixture(t)
	late := f.borrow(t, "late@example.com", true, 1)
	failing := f.borrow(t, "bounce@example.com", true, 2)
	f.borrow(t, "gone@example.com", false, 1)
	f.borrow(t, "ontime@example.com", true, 30)

	f.clock.Advance(5 * 24 * time.Hour)
	f.email.On("SendOverdueReminder", "late@example.com", late.ID).Return(nil)
	f.email.On("SendOverdueReminder", "bounce@example.com", failing.ID).Return(errors.New("mailbox full"))

	stats, err := f.runner.sendOverdueReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reminderStats{Sent: 1, Skipped: 1, Failed: 1}, stats)
	f.email.AssertExpectations(t)
}

func TestRun(t *testing.T) {
	f := newJobFixture(t)
	assert.Equal(t, []string{JobPurgeStaleReservations, JobSendOverdueReminders}, f.runner.JobNames())
	assert.Error(t, f.runner.Run("no-such-job"))

	ctx := context.Background()
	u := &domain.User{Email: "r@example.com", FullName: "R", IsActive: true}
	require.NoError(t, f.store.Users().Create(ctx, u))
	b := &domain.Book{Title: "T", Author: "A", ISBN: "x"}
	require.NoError(t, f.store.Books().Create(ctx, b))
	require.NoError(t, f.store.Reservations().Create(ctx, &domain.Reservation{UserID: u.ID, BookID: b.ID, ReservationDate: f.clock.Now().AddDate(0, 0, -45)}))

	require.NoError(t, f.runner.Run(JobPurgeStaleReservations))
	left, err := f.store.Reservations().ListByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestRunWithRecovery(t *testing.T) {
	f := newJobFixture(t)
	err := f.runner.runWithRecovery("explode", func(context.Context) error { panic("boom") })
	assert.ErrorContains(t, err, "panicked")
}
