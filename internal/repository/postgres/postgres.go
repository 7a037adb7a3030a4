package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // registers the postgres dialect
	"github.com/doug-martin/goqu/v9/exp"
	_ "github.com/jackc/pgx/v5/stdlib"                  // registers the "pgx" database/sql driver
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // registers the "postgres" database/sql driver

	"library-backend/internal/logger"
	"library-backend/internal/repository"
)

const (
	DriverPQ  = "postgres"
	DriverPGX = "pgx"
)

var dialect = goqu.Dialect("postgres")

// querier is satisfied by both *sqlx.DB and *sqlx.Tx so every repository
// works the same inside and outside a transaction.
type querier interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type repositories struct {
	books        repository.BookRepository
	users        repository.UserRepository
	loans        repository.LoanRepository
	categories   repository.CategoryRepository
	reservations repository.ReservationRepository
}

func newRepositories(q querier) *repositories {
	return &repositories{
		books:        &bookRepository{q: q},
		users:        &userRepository{q: q},
		loans:        &loanRepository{q: q},
		categories:   &categoryRepository{q: q},
		reservations: &reservationRepository{q: q},
	}
}

func (r *repositories) Books() repository.BookRepository               { return r.books }
func (r *repositories) Users() repository.UserRepository               { return r.users }
func (r *repositories) Loans() repository.LoanRepository               { return r.loans }
func (r *repositories) Categories() repository.CategoryRepository      { return r.categories }
func (r *repositories) Reservations() repository.ReservationRepository { return r.reservations }

type Store struct {
	*repositories
	db    *sqlx.DB
	stats repository.StatsRepository
}

var _ repository.Store = (*Store)(nil)

// Open connects with the named driver ("postgres" for lib/pq, "pgx" for pgx/v5).
func Open(driver, dsn string, maxOpenConns int) (*Store, error) {
	if driver == "" {
		driver = DriverPQ
	}
	if driver != DriverPQ && driver != DriverPGX {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	return NewStore(db), nil
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{
		repositories: newRepositories(db),
		db:           db,
		stats:        &statsRepository{q: db},
	}
}

func (s *Store) Stats() repository.StatsRepository {
	return s.stats
}

func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// WithinTx runs fn in a READ COMMITTED transaction. Callers take the row locks
// they need through the ForUpdate lookups.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return classify(err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, newRepositories(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Warn("Transaction rollback failed", "error", rbErr)
		}
		return classify(err)
	}
	if err := tx.Commit(); err != nil {
		return classify(err)
	}
	return nil
}

// toSQL renders a goqu dataset with positional placeholders.
func toSQL(ds interface {
	ToSQL() (string, []interface{}, error)
}) (string, []interface{}, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build query: %w", err)
	}
	return query, args, nil
}

func orderExpression(sortable map[string]string, sort string, desc bool, fallback string) exp.OrderedExpression {
	col, ok := sortable[sort]
	if !ok {
		col = fallback
	}
	if desc {
		return goqu.I(col).Desc()
	}
	return goqu.I(col).Asc()
}
