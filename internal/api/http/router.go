// Package http exposes the library services as a JSON REST API.
package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"library-backend/internal/clock"
	"library-backend/internal/metrics"
	"library-backend/internal/security"
	"library-backend/internal/service"
)

// Services bundles everything the REST handlers call into.
type Services struct {
	Auth         service.AuthService
	Books        service.BookService
	Users        service.UserService
	Loans        service.LoanService
	Reservations service.ReservationService
	Stats        service.StatsService
}

// Pinger reports backend health for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	svc    Services
	auth   authenticator
	clock  clock.Clock
	health Pinger
}

func NewHandler(svc Services, tokens security.TokenManager, clk clock.Clock, health Pinger) *Handler {
	return &Handler{svc: svc, auth: authenticator{tokens: tokens}, clock: clk, health: health}
}

// NewRouter registers every route under /api/v1 plus /metrics and /healthz.
func NewRouter(h *Handler, m *metrics.Metrics) *mux.Router {
	router := mux.NewRouter()
	router.Use(requestContext(m))
	router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	a := h.auth

	api.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)

	api.HandleFunc("/books", h.listBooks).Methods(http.MethodGet)
	api.HandleFunc("/books", a.admin(h.createBook)).Methods(http.MethodPost)
	api.HandleFunc("/books/isbn/{isbn}", h.getBookByISBN).Methods(http.MethodGet)
	api.HandleFunc("/books/{id:[0-9]+}", h.getBook).Methods(http.MethodGet)
	api.HandleFunc("/books/{id:[0-9]+}", a.admin(h.updateBook)).Methods(http.MethodPut)
	api.HandleFunc("/books/{id:[0-9]+}", a.admin(h.deleteBook)).Methods(http.MethodDelete)
	api.HandleFunc("/categories", h.listCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories", a.admin(h.createCategory)).Methods(http.MethodPost)
	api.HandleFunc("/categories/{id:[0-9]+}", a.admin(h.deleteCategory)).Methods(http.MethodDelete)

	api.HandleFunc("/users", a.admin(h.listUsers)).Methods(http.MethodGet)
	api.HandleFunc("/users", a.admin(h.createUser)).Methods(http.MethodPost)
	api.HandleFunc("/users/me", a.authenticated(h.getMe)).Methods(http.MethodGet)
	api.HandleFunc("/users/me", a.authenticated(h.updateMe)).Methods(http.MethodPut)
	api.HandleFunc("/users/me/password", a.authenticated(h.changePassword)).Methods(http.MethodPost)
	api.HandleFunc("/users/{id:[0-9]+}", a.admin(h.getUser)).Methods(http.MethodGet)
	api.HandleFunc("/users/{id:[0-9]+}", a.admin(h.updateUser)).Methods(http.MethodPut)
	api.HandleFunc("/users/{id:[0-9]+}", a.admin(h.deleteUser)).Methods(http.MethodDelete)

	api.HandleFunc("/loans", a.admin(h.createLoan)).Methods(http.MethodPost)
	api.HandleFunc("/loans/me", a.authenticated(h.listMyLoans)).Methods(http.MethodGet)
	api.HandleFunc("/loans/me", a.authenticated(h.borrow)).Methods(http.MethodPost)
	api.HandleFunc("/loans/active", a.admin(h.listActiveLoans)).Methods(http.MethodGet)
	api.HandleFunc("/loans/overdue", a.admin(h.listOverdueLoans)).Methods(http.MethodGet)
	api.HandleFunc("/loans/user/{id:[0-9]+}", a.admin(h.listLoansByUser)).Methods(http.MethodGet)
	api.HandleFunc("/loans/book/{id:[0-9]+}", a.admin(h.listLoansByBook)).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id:[0-9]+}", a.authenticated(h.getLoan)).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id:[0-9]+}/return", a.authenticated(h.returnLoan)).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id:[0-9]+}/extend", a.authenticated(h.extendLoan)).Methods(http.MethodPost)

	api.HandleFunc("/reservations/me", a.authenticated(h.listMyReservations)).Methods(http.MethodGet)
	api.HandleFunc("/reservations/me", a.authenticated(h.reserve)).Methods(http.MethodPost)
	api.HandleFunc("/reservations/book/{id:[0-9]+}", a.admin(h.listReservationsByBook)).Methods(http.MethodGet)
	api.HandleFunc("/reservations/{id:[0-9]+}", a.authenticated(h.cancelReservation)).Methods(http.MethodDelete)

	api.HandleFunc("/stats/general", a.admin(h.generalStats)).Methods(http.MethodGet)
	api.HandleFunc("/stats/most-borrowed-books", a.admin(h.mostBorrowedBooks)).Methods(http.MethodGet)
	api.HandleFunc("/stats/most-active-users", a.admin(h.mostActiveUsers)).Methods(http.MethodGet)
	api.HandleFunc("/stats/monthly-loans", a.admin(h.monthlyLoans)).Methods(http.MethodGet)

	return router
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
