package repository

import (
	"context"
	"time"

	"library-backend/internal/domain"
)

// Not-found lookups return an error matching domain.ErrNotFound.

type BookRepository interface {
	Create(ctx context.Context, book *domain.Book) error
	GetByID(ctx context.Context, id int32) (*domain.Book, error)
	// GetByIDForUpdate reads the book and holds a row lock until the transaction ends.
	GetByIDForUpdate(ctx context.Context, id int32) (*domain.Book, error)
	GetByISBN(ctx context.Context, isbn string) (*domain.Book, error)
	List(ctx context.Context, filter domain.BookFilter, page domain.Page) ([]domain.Book, int32, error)
	Update(ctx context.Context, book *domain.Book) error
	// SetQuantity stores the available copy count. Negative values are rejected.
	SetQuantity(ctx context.Context, id int32, quantity int32) error
	SetCategories(ctx context.Context, bookID int32, categoryIDs []int32) error
	Delete(ctx context.Context, id int32) error
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int32) (*domain.User, error)
	GetByIDForUpdate(ctx context.Context, id int32) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, filter domain.UserFilter, page domain.Page) ([]domain.User, int32, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id int32) error
}

type LoanRepository interface {
	Create(ctx context.Context, loan *domain.Loan) error
	GetByID(ctx context.Context, id int32) (*domain.Loan, error)
	GetByIDForUpdate(ctx context.Context, id int32) (*domain.Loan, error)
	List(ctx context.Context, filter domain.LoanFilter, page domain.Page) ([]domain.Loan, int32, error)
	// ListActiveByUser returns every loan of the user whose return_date is null.
	ListActiveByUser(ctx context.Context, userID int32) ([]domain.Loan, error)
	CountActiveByBook(ctx context.Context, bookID int32) (int32, error)
	Update(ctx context.Context, loan *domain.Loan) error
	Delete(ctx context.Context, id int32) error
}

type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	GetByID(ctx context.Context, id int32) (*domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
	Delete(ctx context.Context, id int32) error
}

type ReservationRepository interface {
	Create(ctx context.Context, reservation *domain.Reservation) error
	GetByID(ctx context.Context, id int32) (*domain.Reservation, error)
	Exists(ctx context.Context, userID, bookID int32) (bool, error)
	ListByUser(ctx context.Context, userID int32) ([]domain.Reservation, error)
	ListByBook(ctx context.Context, bookID int32) ([]domain.Reservation, error)
	Delete(ctx context.Context, id int32) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type StatsRepository interface {
	General(ctx context.Context, now time.Time) (*domain.GeneralStats, error)
	MostBorrowedBooks(ctx context.Context, limit int32) ([]domain.BookLoanCount, error)
	MostActiveUsers(ctx context.Context, limit int32) ([]domain.UserLoanCount, error)
	MonthlyLoans(ctx context.Context, since time.Time) ([]domain.MonthlyLoanCount, error)
}

// Repositories groups the record stores that take part in one unit of work.
type Repositories interface {
	Books() BookRepository
	Users() UserRepository
	Loans() LoanRepository
	Categories() CategoryRepository
	Reservations() ReservationRepository
}

// Store is the persistence entry point. Outside WithinTx every call autocommits.
type Store interface {
	Repositories
	Stats() StatsRepository
	// WithinTx runs fn in one transaction, committing when fn returns nil.
	// Write conflicts surface as errors matching domain.ErrTransient.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	Ping(ctx context.Context) error
}
