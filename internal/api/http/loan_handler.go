package http

import (
	"net/http"

	"library-backend/internal/domain"
)

type loanView struct {
	domain.Loan
	Status domain.LoanStatus `json:"status"`
}

func (h *Handler) view(l *domain.Loan) loanView {
	return loanView{Loan: *l, Status: l.Status(h.clock.Now())}
}

func (h *Handler) views(loans []domain.Loan) []loanView {
	out := make([]loanView, len(loans))
	for i := range loans {
		out[i] = h.view(&loans[i])
	}
	return out
}

type borrowRequest struct {
	UserID     int32 `json:"user_id"`
	BookID     int32 `json:"book_id"`
	PeriodDays int32 `json:"period_days"`
}

type extendRequest struct {
	ExtensionDays int32 `json:"extension_days"`
}

// borrow creates a loan for the caller.
func (h *Handler) borrow(w http.ResponseWriter, r *http.Request) {
	var req borrowRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.createLoanFor(w, r, mustCaller(r).UserID, req)
}

// createLoan lets an administrator check a book out on behalf of any user.
func (h *Handler) createLoan(w http.ResponseWriter, r *http.Request) {
	var req borrowRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.UserID <= 0 {
		writeError(w, r, domain.NewError(domain.KindInvalidArgument, "user_id is required"))
		return
	}
	h.createLoanFor(w, r, req.UserID, req)
}

func (h *Handler) createLoanFor(w http.ResponseWriter, r *http.Request, userID int32, req borrowRequest) {
	if req.BookID <= 0 {
		writeError(w, r, domain.NewError(domain.KindInvalidArgument, "book_id is required"))
		return
	}
	loan, err := h.svc.Loans.CreateLoan(r.Context(), userID, req.BookID, req.PeriodDays)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.view(loan))
}

// ownedLoan loads the loan named in the path; non-admins may only touch their own.
func (h *Handler) ownedLoan(r *http.Request) (*domain.Loan, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	loan, err := h.svc.Loans.GetLoan(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if c := mustCaller(r); !c.IsAdmin && loan.UserID != c.UserID {
		return nil, domain.NewError(domain.KindPermissionDenied, "loan %d belongs to another user", id)
	}
	return loan, nil
}

func (h *Handler) getLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.ownedLoan(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(loan))
}

func (h *Handler) returnLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.ownedLoan(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	returned, err := h.svc.Loans.ReturnLoan(r.Context(), loan.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(returned))
}

func (h *Handler) extendLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.ownedLoan(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req extendRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	extended, err := h.svc.Loans.ExtendLoan(r.Context(), loan.ID, req.ExtensionDays)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(extended))
}

type loanLister func(r *http.Request, page domain.Page) ([]domain.Loan, int32, error)

func (h *Handler) serveLoans(list loanLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := pageFromQuery(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		loans, total, err := list(r, page)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeList(w, h.views(loans), total, page)
	}
}

func (h *Handler) listMyLoans(w http.ResponseWriter, r *http.Request) {
	h.serveLoans(func(r *http.Request, page domain.Page) ([]domain.Loan, int32, error) {
		return h.svc.Loans.ListLoansByUser(r.Context(), mustCaller(r).UserID, page)
	})(w, r)
}

func (h *Handler) listActiveLoans(w http.ResponseWriter, r *http.Request) {
	h.serveLoans(func(r *http.Request, page domain.Page) ([]domain.Loan, int32, error) {
		return h.svc.Loans.ListActiveLoans(r.Context(), page)
	})(w, r)
}

func (h *Handler) listOverdueLoans(w http.ResponseWriter, r *http.Request) {
	h.serveLoans(func(r *http.Request, page domain.Page) ([]domain.Loan, int32, error) {
		return h.svc.Loans.ListOverdueLoans(r.Context(), page)
	})(w, r)
}

func (h *Handler) listLoansByUser(w http.ResponseWriter, r *http.Request) {
	h.serveLoans(func(r *http.Request, page domain.Page) ([]domain.Loan, int32, error) {
		id, err := pathID(r, "id")
		if err != nil {
			return nil, 0, err
		}
		return h.svc.Loans.ListLoansByUser(r.Context(), id, page)
	})(w, r)
}

func (h *Handler) listLoansByBook(w http.ResponseWriter, r *http.Request) {
	h.serveLoans(func(r *http.Request, page domain.Page) ([]domain.Loan, int32, error) {
		id, err := pathID(r, "id")
		if err != nil {
			return nil, 0, err
		}
		return h.svc.Loans.ListLoansByBook(r.Context(), id, page)
	})(w, r)
}
