package domain

import "time"

type LoanStatus string

const (
	LoanStatusActive   LoanStatus = "ACTIVE"
	LoanStatusOverdue  LoanStatus = "OVERDUE"
	LoanStatusReturned LoanStatus = "RETURNED"
)

type Loan struct {
	ID         int32      `json:"id" db:"id"`
	UserID     int32      `json:"user_id" db:"user_id"`
	BookID     int32      `json:"book_id" db:"book_id"`
	LoanDate   time.Time  `json:"loan_date" db:"loan_date"`
	DueDate    time.Time  `json:"due_date" db:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty" db:"return_date"`
	Extended   bool       `json:"extended" db:"extended"`
}

// IsActive reports whether the loan has not been returned yet.
func (l *Loan) IsActive() bool {
	return l.ReturnDate == nil
}

// IsOverdue reports whether the loan is active and past its due date at now.
// Overdue is a read-only classification; it never blocks a return.
func (l *Loan) IsOverdue(now time.Time) bool {
	return l.IsActive() && l.DueDate.Before(now)
}

// Status classifies the loan at now.
func (l *Loan) Status(now time.Time) LoanStatus {
	switch {
	case !l.IsActive():
		return LoanStatusReturned
	case l.IsOverdue(now):
		return LoanStatusOverdue
	default:
		return LoanStatusActive
	}
}

// LoanFilter is the filter vocabulary of the loan record store.
// Zero values mean "no constraint".
type LoanFilter struct {
	UserID      int32
	BookID      int32
	ActiveOnly  bool
	OverdueAt   *time.Time // active loans with due_date before this instant
	LoanedSince *time.Time
}
