package http

import "net/http"

func (h *Handler) generalStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats.General(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) mostBorrowedBooks(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt32(r, "limit", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows, err := h.svc.Stats.MostBorrowedBooks(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) mostActiveUsers(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt32(r, "limit", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows, err := h.svc.Stats.MostActiveUsers(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) monthlyLoans(w http.ResponseWriter, r *http.Request) {
	months, err := queryInt32(r, "months", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows, err := h.svc.Stats.MonthlyLoans(r.Context(), months)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
