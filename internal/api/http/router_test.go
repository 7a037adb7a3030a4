package http_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpapi "library-backend/internal/api/http"
	"library-backend/internal/cache"
	"library-backend/internal/clock"
	"library-backend/internal/domain"
	"library-backend/internal/metrics"
	"library-backend/internal/repository/memory"
	"library-backend/internal/security"
	"library-backend/internal/service"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type apiFixture struct {
	router *mux.Router
	clock  *clock.Fake
	books  service.BookService
	users  service.UserService
	tokens security.TokenManager
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	store := memory.NewStore()
	clk := clock.NewFake(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	c := cache.New(64, time.Minute)
	m := metrics.New()
	tx := service.NewTxRunner(store, 3, time.Millisecond, m)
	tokens := security.NewTokenManager(testSecret, time.Hour)

	svc := httpapi.Services{
		Auth:  service.NewAuthService(store.Users(), tokens),
		Books: service.NewBookService(store, tx, c),
		Users: service.NewUserService(store, c),
		Loans: service.NewLoanService(store, tx, clk, service.LoanSettings{
			DefaultPeriodDays:    14,
			DefaultExtensionDays: 7,
			MaxActiveLoans:       2,
		}, c, m),
		Reservations: service.NewReservationService(store, clk),
		Stats:        service.NewStatsService(store.Stats(), clk, c, m),
	}
	return &apiFixture{
		router: httpapi.NewRouter(httpapi.NewHandler(svc, tokens, clk, store), m),
		clock:  clk,
		books:  svc.Books,
		users:  svc.Users,
		tokens: tokens,
	}
}

func (f *apiFixture) user(t *testing.T, email string, admin bool) string {
	t.Helper()
	u := &domain.User{Email: email, FullName: "Reader " + email, IsActive: true, IsAdmin: admin}
	require.NoError(t, f.users.CreateUser(context.Background(), u, "password123"))
	token, _, err := f.tokens.GenerateAccessToken(u.ID, u.Email, admin)
	require.NoError(t, err)
	return token
}

func (f *apiFixture) book(t *testing.T, isbn string, quantity int32) *domain.Book {
	t.Helper()
	b := &domain.Book{Title: "Dune", Author: "Frank Herbert", ISBN: isbn, Quantity: quantity}
	require.NoError(t, f.books.CreateBook(context.Background(), b))
	return b
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := jsoniter.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, jsoniter.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type loanBody struct {
	ID         int32      `json:"id"`
	UserID     int32      `json:"user_id"`
	BookID     int32      `json:"book_id"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date"`
	Extended   bool       `json:"extended"`
	Status     string     `json:"status"`
}

type errBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func TestLogin(t *testing.T) {
	f := newAPIFixture(t)
	f.user(t, "ada@example.com", false)

	rec := f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "ada@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}](t, rec)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "Bearer", resp.TokenType)

	me := f.do(t, http.MethodGet, "/api/v1/users/me", resp.AccessToken, nil)
	assert.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), "ada@example.com")
	assert.NotContains(t, me.Body.String(), "password")

	rec = f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "ada@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthenticated", decode[errBody](t, rec).Kind)
}

func TestAuthentication(t *testing.T) {
	f := newAPIFixture(t)
	reader := f.user(t, "reader@example.com", false)

	t.Run("Missing Token", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/loans/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Invalid Token", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/loans/me", "not-a-jwt", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Admin Only", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/loans/active", reader, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "PermissionDenied", decode[errBody](t, rec).Kind)
	})

	t.Run("Public Catalog", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/books", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestLoanLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	reader := f.user(t, "reader@example.com", false)
	other := f.user(t, "other@example.com", false)
	admin := f.user(t, "admin@example.com", true)
	book := f.book(t, "978-0441013593", 1)

	rec := f.do(t, http.MethodPost, "/api/v1/loans/me", reader, map[string]int32{"book_id": book.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	loan := decode[loanBody](t, rec)
	assert.Equal(t, "ACTIVE", loan.Status)
	assert.Equal(t, time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC), loan.DueDate.UTC())

	t.Run("Unavailable", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/loans/me", other, map[string]int32{"book_id": book.ID})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "Unavailable", decode[errBody](t, rec).Kind)
	})

	t.Run("Missing Book", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/loans/me", other, map[string]int32{"book_id": 9999})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Foreign Loan", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/loans/%d/return", loan.ID)
		rec := f.do(t, http.MethodPost, path, other, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("Extend", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/loans/%d/extend", loan.ID)
		rec := f.do(t, http.MethodPost, path, reader, map[string]int32{"extension_days": 3})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		extended := decode[loanBody](t, rec)
		assert.True(t, extended.Extended)
		assert.Equal(t, loan.DueDate.Add(72*time.Hour).UTC(), extended.DueDate.UTC())

		rec = f.do(t, http.MethodPost, path, reader, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "AlreadyExtended", decode[errBody](t, rec).Kind)
	})

	t.Run("Admin Views", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/loans/active", admin, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		list := decode[struct {
			Items []loanBody `json:"items"`
			Total int32      `json:"total"`
		}](t, rec)
		assert.Equal(t, int32(1), list.Total)

		f.clock.Advance(30 * 24 * time.Hour)
		rec = f.do(t, http.MethodGet, "/api/v1/loans/overdue", admin, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		overdue := decode[struct {
			Items []loanBody `json:"items"`
		}](t, rec)
		require.Len(t, overdue.Items, 1)
		assert.Equal(t, "OVERDUE", overdue.Items[0].Status)
	})

	t.Run("Return", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/loans/%d/return", loan.ID)
		rec := f.do(t, http.MethodPost, path, reader, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		returned := decode[loanBody](t, rec)
		assert.Equal(t, "RETURNED", returned.Status)
		assert.NotNil(t, returned.ReturnDate)

		rec = f.do(t, http.MethodPost, path, reader, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "AlreadyReturned", decode[errBody](t, rec).Kind)

		b := decode[domain.Book](t, f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/books/%d", book.ID), "", nil))
		assert.Equal(t, int32(1), b.Quantity)
	})
}

func TestBooksAPI(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.user(t, "admin@example.com", true)

	rec := f.do(t, http.MethodPost, "/api/v1/books", admin, map[string]any{
		"title": "Neuromancer", "author": "William Gibson", "isbn": "978-0441569595", "quantity": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[domain.Book](t, rec)

	rec = f.do(t, http.MethodPost, "/api/v1/books", admin, map[string]any{
		"title": "Copy", "author": "Someone", "isbn": "978-0441569595", "quantity": 1,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/books/isbn/978-0441569595", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/books?title=neuro&limit=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Items []domain.Book `json:"items"`
		Limit int32         `json:"limit"`
	}](t, rec)
	require.Len(t, list.Items, 1)
	assert.Equal(t, int32(5), list.Limit)

	rec = f.do(t, http.MethodGet, "/api/v1/books?limit=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, fmt.Sprintf("/api/v1/books/%d", created.ID), admin, map[string]any{
		"title": "Neuromancer", "author": "William Gibson", "isbn": "978-0000000000", "quantity": 2,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, fmt.Sprintf("/api/v1/books/%d", created.ID), admin, map[string]any{
		"title": "Neuromancer", "author": "William Gibson", "quantity": 4,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int32(4), decode[domain.Book](t, rec).Quantity)

	rec = f.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/books/%d", created.ID), admin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/books/%d", created.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMalformedBody(t *testing.T) {
	f := newAPIFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestLoanPeriodBounds(t *testing.T) {
	f := newAPIFixture(t)
	reader := f.user(t, "reader@example.com", false)
	book := f.book(t, "978-0441013593", 1)

	rec := f.do(t, http.MethodPost, "/api/v1/loans/me", reader, map[string]int32{"book_id": book.ID, "period_days": 213499})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/v1/loans/me", reader, map[string]int32{"book_id": book.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	loan := decode[loanBody](t, rec)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/loans/%d/extend", loan.ID), reader, map[string]int32{"extension_days": 213499})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestOperationalEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	f.do(t, http.MethodGet, "/api/v1/books", "", nil)
	rec = f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `library_http_requests_total{code="200",method="GET",route="/api/v1/books"}`)
}

func TestStatusFor(t *testing.T) {
	cases := map[domain.ErrorKind]int{
		domain.KindNotFound:             http.StatusNotFound,
		domain.KindInactiveUser:         http.StatusForbidden,
		domain.KindPermissionDenied:     http.StatusForbidden,
		domain.KindUnavailable:          http.StatusConflict,
		domain.KindLoanLimitExceeded:    http.StatusConflict,
		domain.KindOverdueNotExtendable: http.StatusConflict,
		domain.KindInvalidArgument:      http.StatusBadRequest,
		domain.KindUnauthenticated:      http.StatusUnauthorized,
		domain.KindTransient:            http.StatusServiceUnavailable,
		domain.KindInvariantViolation:   http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, httpapi.StatusFor(domain.NewError(kind, "x")), kind)
	}
	assert.Equal(t, http.StatusInternalServerError, httpapi.StatusFor(fmt.Errorf("boom")))
}
