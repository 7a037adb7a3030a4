package http

import (
	"net/http"

	"library-backend/internal/domain"
)

type reserveRequest struct {
	BookID int32 `json:"book_id"`
}

func (h *Handler) listMyReservations(w http.ResponseWriter, r *http.Request) {
	reservations, err := h.svc.Reservations.ListByUser(r.Context(), mustCaller(r).UserID)
	writeReservations(w, r, reservations, err)
}

func (h *Handler) listReservationsByBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	reservations, err := h.svc.Reservations.ListByBook(r.Context(), id)
	writeReservations(w, r, reservations, err)
}

func writeReservations(w http.ResponseWriter, r *http.Request, reservations []domain.Reservation, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	if reservations == nil {
		reservations = []domain.Reservation{}
	}
	writeJSON(w, http.StatusOK, reservations)
}

func (h *Handler) reserve(w http.ResponseWriter, r *http.Request) {
	var req reserveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reservation, err := h.svc.Reservations.CreateReservation(r.Context(), mustCaller(r).UserID, req.BookID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reservation)
}

func (h *Handler) cancelReservation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Reservations.CancelReservation(r.Context(), mustCaller(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
