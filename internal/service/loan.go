package service

import (
	"context"
	"time"

	"library-backend/internal/cache"
	"library-backend/internal/clock"
	"library-backend/internal/config"
	"library-backend/internal/domain"
	"library-backend/internal/logger"
	"library-backend/internal/metrics"
	"library-backend/internal/repository"
)

const (
	opCreateLoan = "create_loan"
	opReturnLoan = "return_loan"
	opExtendLoan = "extend_loan"
)

// DefaultMaxLoanDays bounds a requested period or extension when LoanSettings.MaxDays is zero.
const DefaultMaxLoanDays = 365

type LoanSettings struct {
	DefaultPeriodDays    int32
	DefaultExtensionDays int32
	MaxDays              int32
	MaxActiveLoans       int
}

func LoanSettingsFromConfig(cfg config.LoanConfig) LoanSettings {
	return LoanSettings{
		DefaultPeriodDays:    int32(cfg.DefaultPeriodDays),
		DefaultExtensionDays: int32(cfg.DefaultExtensionDays),
		MaxDays:              int32(cfg.MaxDays),
		MaxActiveLoans:       cfg.MaxActiveLoans,
	}
}

type loanService struct {
	store    repository.Store
	tx       *TxRunner
	clock    clock.Clock
	settings LoanSettings
	borrow   *Policy[BorrowRequest]
	ret      *Policy[LoanState]
	extend   *Policy[LoanState]
	cache    *cache.Cache
	metrics  *metrics.Metrics
}

func NewLoanService(store repository.Store, tx *TxRunner, clk clock.Clock, settings LoanSettings, statsCache *cache.Cache, m *metrics.Metrics) LoanService {
	if settings.MaxDays <= 0 {
		settings.MaxDays = DefaultMaxLoanDays
	}
	return &loanService{
		store:    store,
		tx:       tx,
		clock:    clk,
		settings: settings,
		borrow:   NewBorrowPolicy(settings.MaxActiveLoans),
		ret:      NewReturnPolicy(),
		extend:   NewExtendPolicy(),
		cache:    statsCache,
		metrics:  m,
	}
}

func days(n int32) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

func (s *loanService) resolveDays(requested, fallback int32, what string) (int32, error) {
	if requested == 0 {
		return fallback, nil
	}
	if requested < 0 {
		return 0, domain.NewError(domain.KindInvalidArgument, "%s must be at least 1 day, got %d", what, requested)
	}
	if requested > s.settings.MaxDays {
		return 0, domain.NewError(domain.KindInvalidArgument, "%s must be at most %d days, got %d", what, s.settings.MaxDays, requested)
	}
	return requested, nil
}

func (s *loanService) invalidate(tags ...string) {
	if s.cache != nil {
		s.cache.Invalidate(tags...)
	}
}

func (s *loanService) CreateLoan(ctx context.Context, userID, bookID int32, periodDays int32) (loan *domain.Loan, err error) {
	start := time.Now()
	logger.EnterMethod(ctx, "CreateLoan", "user_id", userID, "book_id", bookID)
	defer func() {
		s.metrics.ObserveOperation(opCreateLoan, start, err)
		logger.ExitMethod(ctx, "CreateLoan", err, "user_id", userID, "book_id", bookID)
	}()

	period, err := s.resolveDays(periodDays, s.settings.DefaultPeriodDays, "loan period")
	if err != nil {
		return nil, err
	}

	err = s.tx.Run(ctx, opCreateLoan, func(ctx context.Context, repos repository.Repositories) error {
		user, err := repos.Users().GetByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		book, err := repos.Books().GetByIDForUpdate(ctx, bookID)
		if err != nil && domain.KindOf(err) != domain.KindNotFound {
			return err
		}
		active, err := repos.Loans().ListActiveByUser(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.borrow.Evaluate(BorrowRequest{User: user, BookID: bookID, Book: book, ActiveLoans: active}); err != nil {
			return err
		}

		now := s.clock.Now()
		l := &domain.Loan{
			UserID:   userID,
			BookID:   bookID,
			LoanDate: now,
			DueDate:  now.Add(days(period)),
		}
		if err := repos.Loans().Create(ctx, l); err != nil {
			return err
		}
		if err := NewInventory(repos.Books()).Adjust(ctx, book, -1); err != nil {
			return err
		}
		loan = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(cache.TagLoans, cache.TagBooks)
	logger.InfoContext(ctx, "Loan created", "loan_id", loan.ID, "user_id", userID, "book_id", bookID, "due_date", loan.DueDate)
	return loan, nil
}

func (s *loanService) ReturnLoan(ctx context.Context, loanID int32) (loan *domain.Loan, err error) {
	start := time.Now()
	logger.EnterMethod(ctx, "ReturnLoan", "loan_id", loanID)
	defer func() {
		s.metrics.ObserveOperation(opReturnLoan, start, err)
		logger.ExitMethod(ctx, "ReturnLoan", err, "loan_id", loanID)
	}()

	err = s.tx.Run(ctx, opReturnLoan, func(ctx context.Context, repos repository.Repositories) error {
		l, err := repos.Loans().GetByIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if err := s.ret.Evaluate(LoanState{Loan: l, Now: now}); err != nil {
			return err
		}
		book, err := repos.Books().GetByIDForUpdate(ctx, l.BookID)
		if err != nil {
			return err
		}

		l.ReturnDate = &now
		if err := repos.Loans().Update(ctx, l); err != nil {
			return err
		}
		if err := NewInventory(repos.Books()).Adjust(ctx, book, 1); err != nil {
			return err
		}
		loan = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(cache.TagLoans, cache.TagBooks)
	logger.InfoContext(ctx, "Loan returned", "loan_id", loan.ID, "book_id", loan.BookID, "late", loan.ReturnDate.After(loan.DueDate))
	return loan, nil
}

func (s *loanService) ExtendLoan(ctx context.Context, loanID int32, extensionDays int32) (loan *domain.Loan, err error) {
	start := time.Now()
	logger.EnterMethod(ctx, "ExtendLoan", "loan_id", loanID)
	defer func() {
		s.metrics.ObserveOperation(opExtendLoan, start, err)
		logger.ExitMethod(ctx, "ExtendLoan", err, "loan_id", loanID)
	}()

	extension, err := s.resolveDays(extensionDays, s.settings.DefaultExtensionDays, "extension")
	if err != nil {
		return nil, err
	}

	err = s.tx.Run(ctx, opExtendLoan, func(ctx context.Context, repos repository.Repositories) error {
		l, err := repos.Loans().GetByIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		if err := s.extend.Evaluate(LoanState{Loan: l, Now: s.clock.Now()}); err != nil {
			return err
		}
		l.DueDate = l.DueDate.Add(days(extension))
		l.Extended = true
		if err := repos.Loans().Update(ctx, l); err != nil {
			return err
		}
		loan = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(cache.TagLoans)
	logger.InfoContext(ctx, "Loan extended", "loan_id", loan.ID, "due_date", loan.DueDate)
	return loan, nil
}

func (s *loanService) GetLoan(ctx context.Context, loanID int32) (*domain.Loan, error) {
	return s.store.Loans().GetByID(ctx, loanID)
}

func (s *loanService) ListActiveLoans(ctx context.Context, page domain.Page) ([]domain.Loan, int32, error) {
	return s.store.Loans().List(ctx, domain.LoanFilter{ActiveOnly: true}, page)
}

func (s *loanService) ListOverdueLoans(ctx context.Context, page domain.Page) ([]domain.Loan, int32, error) {
	now := s.clock.Now()
	if page.Sort.Field == "" {
		page.Sort = domain.SortOrder{Field: "due_date"}
	}
	return s.store.Loans().List(ctx, domain.LoanFilter{OverdueAt: &now}, page)
}

func (s *loanService) ListLoansByUser(ctx context.Context, userID int32, page domain.Page) ([]domain.Loan, int32, error) {
	if _, err := s.store.Users().GetByID(ctx, userID); err != nil {
		return nil, 0, err
	}
	return s.store.Loans().List(ctx, domain.LoanFilter{UserID: userID}, page)
}

func (s *loanService) ListLoansByBook(ctx context.Context, bookID int32, page domain.Page) ([]domain.Loan, int32, error) {
	if _, err := s.store.Books().GetByID(ctx, bookID); err != nil {
		return nil, 0, err
	}
	return s.store.Loans().List(ctx, domain.LoanFilter{BookID: bookID}, page)
}
