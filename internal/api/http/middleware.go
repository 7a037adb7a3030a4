package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"library-backend/internal/domain"
	"library-backend/internal/logger"
	"library-backend/internal/metrics"
	"library-backend/internal/security"
)

const headerRequestID = "X-Request-ID"

type callerKey struct{}

func withCaller(ctx context.Context, c domain.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFromContext returns the authenticated caller set by the auth middleware.
func CallerFromContext(ctx context.Context) (domain.Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(domain.Caller)
	return c, ok
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestContext attaches a request id and a request-scoped logger, recovers
// panics and records the outcome.
func requestContext(m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(headerRequestID)
			if _, err := uuid.Parse(requestID); err != nil {
				requestID = uuid.NewString()
			}
			w.Header().Set(headerRequestID, requestID)
			ctx := logger.WithRequestID(r.Context(), requestID)
			r = r.WithContext(ctx)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			defer func() {
				if p := recover(); p != nil {
					logger.ErrorContext(ctx, "Handler panicked", "panic", p, "path", r.URL.Path)
					writeError(rec, r, domain.NewError(domain.KindInternal, "internal error"))
				}
				route := r.URL.Path
				if cur := mux.CurrentRoute(r); cur != nil {
					if tpl, err := cur.GetPathTemplate(); err == nil {
						route = tpl
					}
				}
				m.ObserveHTTP(r.Method, route, rec.status)
				logger.FromContext(ctx).Debug("Request served", "method", r.Method, "route", route, "status", rec.status, "duration_ms", time.Since(start).Milliseconds())
			}()
			next.ServeHTTP(rec, r)
		})
	}
}

type authenticator struct {
	tokens security.TokenManager
}

func (a authenticator) caller(r *http.Request) (domain.Caller, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return domain.Caller{}, domain.NewError(domain.KindUnauthenticated, "authorization token is not provided")
	}
	token := header
	if len(token) > 7 && strings.EqualFold(token[:7], "Bearer ") {
		token = token[7:]
	}
	claims, err := a.tokens.ValidateToken(token)
	if err != nil {
		return domain.Caller{}, domain.WrapError(domain.KindUnauthenticated, err, "invalid token")
	}
	return domain.Caller{UserID: claims.UserID, IsAdmin: claims.IsAdmin}, nil
}

// authenticated rejects requests without a valid access token.
func (a authenticator) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := a.caller(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		ctx := withCaller(r.Context(), c)
		ctx = logger.WithContext(ctx, logger.FromContext(ctx).With("caller_id", c.UserID))
		next(w, r.WithContext(ctx))
	}
}

// admin additionally requires the is_admin claim.
func (a authenticator) admin(next http.HandlerFunc) http.HandlerFunc {
	return a.authenticated(func(w http.ResponseWriter, r *http.Request) {
		if c, _ := CallerFromContext(r.Context()); !c.IsAdmin {
			writeError(w, r, domain.NewError(domain.KindPermissionDenied, "administrator access required"))
			return
		}
		next(w, r)
	})
}

func mustCaller(r *http.Request) domain.Caller {
	c, _ := CallerFromContext(r.Context())
	return c
}
