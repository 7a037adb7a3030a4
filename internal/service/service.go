package service

import (
	"context"

	"library-backend/internal/domain"
)

// LoanService owns the loan lifecycle and the inventory adjustments tied to it.
// Period and extension arguments are in days; zero selects the configured default.
type LoanService interface {
	CreateLoan(ctx context.Context, userID, bookID int32, periodDays int32) (*domain.Loan, error)
	ReturnLoan(ctx context.Context, loanID int32) (*domain.Loan, error)
	ExtendLoan(ctx context.Context, loanID int32, extensionDays int32) (*domain.Loan, error)
	GetLoan(ctx context.Context, loanID int32) (*domain.Loan, error)
	ListActiveLoans(ctx context.Context, page domain.Page) ([]domain.Loan, int32, error)
	ListOverdueLoans(ctx context.Context, page domain.Page) ([]domain.Loan, int32, error)
	ListLoansByUser(ctx context.Context, userID int32, page domain.Page) ([]domain.Loan, int32, error)
	ListLoansByBook(ctx context.Context, bookID int32, page domain.Page) ([]domain.Loan, int32, error)
}

type BookService interface {
	CreateBook(ctx context.Context, book *domain.Book) error
	GetBook(ctx context.Context, id int32) (*domain.Book, error)
	GetBookByISBN(ctx context.Context, isbn string) (*domain.Book, error)
	ListBooks(ctx context.Context, filter domain.BookFilter, page domain.Page) ([]domain.Book, int32, error)
	UpdateBook(ctx context.Context, book *domain.Book) (*domain.Book, error)
	DeleteBook(ctx context.Context, id int32) error

	CreateCategory(ctx context.Context, category *domain.Category) error
	ListCategories(ctx context.Context) ([]domain.Category, error)
	DeleteCategory(ctx context.Context, id int32) error
}

type UserService interface {
	CreateUser(ctx context.Context, user *domain.User, password string) error
	GetUser(ctx context.Context, id int32) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context, filter domain.UserFilter, page domain.Page) ([]domain.User, int32, error)
	UpdateUser(ctx context.Context, caller domain.Caller, update UserUpdate) (*domain.User, error)
	ChangePassword(ctx context.Context, userID int32, oldPassword, newPassword string) error
	DeleteUser(ctx context.Context, id int32) error
}

type AuthService interface {
	// Login returns a signed access token and its expiry as unix seconds.
	Login(ctx context.Context, email, password string) (string, int64, *domain.User, error)
}

type ReservationService interface {
	CreateReservation(ctx context.Context, userID, bookID int32) (*domain.Reservation, error)
	ListByUser(ctx context.Context, userID int32) ([]domain.Reservation, error)
	ListByBook(ctx context.Context, bookID int32) ([]domain.Reservation, error)
	CancelReservation(ctx context.Context, caller domain.Caller, reservationID int32) error
	PurgeOlderThan(ctx context.Context, days int) (int64, error)
}

type StatsService interface {
	General(ctx context.Context) (*domain.GeneralStats, error)
	MostBorrowedBooks(ctx context.Context, limit int32) ([]domain.BookLoanCount, error)
	MostActiveUsers(ctx context.Context, limit int32) ([]domain.UserLoanCount, error)
	MonthlyLoans(ctx context.Context, months int32) ([]domain.MonthlyLoanCount, error)
}

type EmailService interface {
	SendOverdueReminder(ctx context.Context, email, name string, reminder OverdueReminder) error
}
