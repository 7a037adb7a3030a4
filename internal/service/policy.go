package service

import (
	"time"

	"library-backend/internal/domain"
)

// Rule is one named predicate. Check returns nil when the subject passes.
type Rule[T any] struct {
	Name  string
	Check func(T) error
}

// Policy evaluates its rules in order and reports the first failure.
type Policy[T any] struct {
	rules []Rule[T]
}

func NewPolicy[T any](rules ...Rule[T]) *Policy[T] {
	return &Policy[T]{rules: rules}
}

func (p *Policy[T]) Evaluate(subject T) error {
	for _, r := range p.rules {
		if err := r.Check(subject); err != nil {
			return err
		}
	}
	return nil
}

func (p *Policy[T]) Names() []string {
	names := make([]string, len(p.rules))
	for i, r := range p.rules {
		names[i] = r.Name
	}
	return names
}

// BorrowRequest is the live state a new loan is judged against. Book is nil
// when the requested book does not exist.
type BorrowRequest struct {
	User        *domain.User
	BookID      int32
	Book        *domain.Book
	ActiveLoans []domain.Loan
}

// LoanState is an existing loan observed at Now.
type LoanState struct {
	Loan *domain.Loan
	Now  time.Time
}

func NewBorrowPolicy(maxActiveLoans int) *Policy[BorrowRequest] {
	return NewPolicy(
		Rule[BorrowRequest]{Name: "active-user", Check: func(r BorrowRequest) error {
			if !r.User.IsActive {
				return domain.NewError(domain.KindInactiveUser, "user %d is inactive", r.User.ID)
			}
			return nil
		}},
		Rule[BorrowRequest]{Name: "book-exists", Check: func(r BorrowRequest) error {
			if r.Book == nil {
				return domain.NewError(domain.KindNotFound, "book %d not found", r.BookID)
			}
			return nil
		}},
		Rule[BorrowRequest]{Name: "availability", Check: func(r BorrowRequest) error {
			if !r.Book.IsAvailable() {
				return domain.NewError(domain.KindUnavailable, "book %d has no available copies", r.Book.ID)
			}
			return nil
		}},
		Rule[BorrowRequest]{Name: "duplicate-loan", Check: func(r BorrowRequest) error {
			for _, l := range r.ActiveLoans {
				if l.BookID == r.Book.ID {
					return domain.NewError(domain.KindDuplicateActiveLoan, "user %d already borrowed book %d (loan %d)", r.User.ID, r.Book.ID, l.ID)
				}
			}
			return nil
		}},
		Rule[BorrowRequest]{Name: "concurrent-loan-limit", Check: func(r BorrowRequest) error {
			if len(r.ActiveLoans) >= maxActiveLoans {
				return domain.NewError(domain.KindLoanLimitExceeded, "user %d already has %d active loans (limit %d)", r.User.ID, len(r.ActiveLoans), maxActiveLoans)
			}
			return nil
		}},
	)
}

func notReturned(s LoanState) error {
	if !s.Loan.IsActive() {
		return domain.NewError(domain.KindAlreadyReturned, "loan %d was already returned", s.Loan.ID)
	}
	return nil
}

func NewReturnPolicy() *Policy[LoanState] {
	return NewPolicy(Rule[LoanState]{Name: "not-returned", Check: notReturned})
}

func NewExtendPolicy() *Policy[LoanState] {
	return NewPolicy(
		Rule[LoanState]{Name: "not-returned", Check: notReturned},
		Rule[LoanState]{Name: "not-overdue", Check: func(s LoanState) error {
			if s.Loan.DueDate.Before(s.Now) {
				return domain.NewError(domain.KindOverdueNotExtendable, "loan %d is overdue since %s", s.Loan.ID, s.Loan.DueDate.Format(time.RFC3339))
			}
			return nil
		}},
		Rule[LoanState]{Name: "not-extended", Check: func(s LoanState) error {
			if s.Loan.Extended {
				return domain.NewError(domain.KindAlreadyExtended, "loan %d was already extended", s.Loan.ID)
			}
			return nil
		}},
	)
}
