// Package memory provides an in-process implementation of repository.Store
// used by tests and by local runs without a database.
package memory

import (
	"context"
	"sync"

	"library-backend/internal/domain"
	"library-backend/internal/repository"
)

var _ repository.Store = (*Store)(nil)

type state struct {
	books          map[int32]domain.Book
	users          map[int32]domain.User
	loans          map[int32]domain.Loan
	categories     map[int32]domain.Category
	reservations   map[int32]domain.Reservation
	bookCategories map[int32][]int32
	seq            int32
}

func newState() *state {
	return &state{
		books:          map[int32]domain.Book{},
		users:          map[int32]domain.User{},
		loans:          map[int32]domain.Loan{},
		categories:     map[int32]domain.Category{},
		reservations:   map[int32]domain.Reservation{},
		bookCategories: map[int32][]int32{},
	}
}

func (s *state) nextID() int32 {
	s.seq++
	return s.seq
}

// clone copies every table. Rows are values so a shallow map copy is enough,
// except for the category slices.
func (s *state) clone() *state {
	c := newState()
	c.seq = s.seq
	for k, v := range s.books {
		c.books[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.loans {
		c.loans[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	for k, v := range s.bookCategories {
		c.bookCategories[k] = append([]int32(nil), v...)
	}
	return c
}

// Store serializes every transaction behind one mutex, which gives the same
// guarantees as row locks for a single process.
type Store struct {
	mu    sync.Mutex
	state *state
}

func NewStore() *Store {
	return &Store{state: newState()}
}

type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

type repos struct {
	s  *Store
	mu sync.Locker
}

func (r repos) Books() repository.BookRepository               { return &bookRepository{r} }
func (r repos) Users() repository.UserRepository               { return &userRepository{r} }
func (r repos) Loans() repository.LoanRepository               { return &loanRepository{r} }
func (r repos) Categories() repository.CategoryRepository      { return &categoryRepository{r} }
func (r repos) Reservations() repository.ReservationRepository { return &reservationRepository{r} }

func (s *Store) autocommit() repos {
	return repos{s: s, mu: &s.mu}
}

func (s *Store) Books() repository.BookRepository               { return s.autocommit().Books() }
func (s *Store) Users() repository.UserRepository               { return s.autocommit().Users() }
func (s *Store) Loans() repository.LoanRepository               { return s.autocommit().Loans() }
func (s *Store) Categories() repository.CategoryRepository      { return s.autocommit().Categories() }
func (s *Store) Reservations() repository.ReservationRepository { return s.autocommit().Reservations() }
func (s *Store) Stats() repository.StatsRepository              { return &statsRepository{s.autocommit()} }

// WithinTx runs fn with exclusive access; on error or panic every change fn made is discarded.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := s.state.clone()
	defer func() {
		if p := recover(); p != nil {
			s.state = snapshot
			panic(p)
		}
	}()
	if err := fn(ctx, repos{s: s, mu: noopLocker{}}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}
