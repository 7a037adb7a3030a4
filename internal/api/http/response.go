package http

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/gorilla/mux"

	"library-backend/internal/domain"
	"library-backend/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type listBody[T any] struct {
	Items  []T   `json:"items"`
	Total  int32 `json:"total"`
	Offset int32 `json:"offset"`
	Limit  int32 `json:"limit"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

func writeList[T any](w http.ResponseWriter, items []T, total int32, page domain.Page) {
	if items == nil {
		items = []T{}
	}
	page = page.Normalize()
	writeJSON(w, http.StatusOK, listBody[T]{Items: items, Total: total, Offset: page.Offset, Limit: page.Limit})
}

// StatusFor maps an error kind onto an HTTP status code.
func StatusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInactiveUser, domain.KindPermissionDenied:
		return http.StatusForbidden
	case domain.KindUnavailable, domain.KindDuplicateActiveLoan, domain.KindLoanLimitExceeded,
		domain.KindAlreadyReturned, domain.KindOverdueNotExtendable, domain.KindAlreadyExtended,
		domain.KindConflict:
		return http.StatusConflict
	case domain.KindInvalidArgument:
		return http.StatusBadRequest
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindTransient:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	kind := domain.KindOf(err)
	if status >= 500 {
		logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
	}
	if kind == domain.KindTransient {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, errorBody{
		Error:   http.StatusText(status),
		Kind:    string(kind),
		Message: domain.MessageOf(err),
	})
}

func decodeJSON(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return domain.WrapError(domain.KindInvalidArgument, err, "failed to read request body")
	}
	if len(data) == 0 {
		return domain.NewError(domain.KindInvalidArgument, "request body is required")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return domain.WrapError(domain.KindInvalidArgument, err, "malformed JSON body")
	}
	return nil
}

func pathID(r *http.Request, name string) (int32, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, domain.NewError(domain.KindInvalidArgument, "invalid %s %q", name, raw)
	}
	return int32(id), nil
}

func queryInt32(r *http.Request, name string, fallback int32) (int32, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, domain.NewError(domain.KindInvalidArgument, "invalid %s %q", name, raw)
	}
	return int32(v), nil
}

func queryBool(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}

// pageFromQuery reads offset, limit, sort and order (asc|desc).
func pageFromQuery(r *http.Request) (domain.Page, error) {
	offset, err := queryInt32(r, "offset", 0)
	if err != nil {
		return domain.Page{}, err
	}
	limit, err := queryInt32(r, "limit", domain.DefaultPageLimit)
	if err != nil {
		return domain.Page{}, err
	}
	if offset < 0 || limit < 0 {
		return domain.Page{}, domain.NewError(domain.KindInvalidArgument, "offset and limit must not be negative")
	}
	return domain.Page{
		Offset: offset,
		Limit:  limit,
		Sort: domain.SortOrder{
			Field: r.URL.Query().Get("sort"),
			Desc:  strings.EqualFold(r.URL.Query().Get("order"), "desc"),
		},
	}, nil
}
