package grpc

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"library-backend/internal/clock"
	"library-backend/internal/domain"
	"library-backend/internal/service"
)

type LoanHandler struct {
	loanSvc service.LoanService
	clock   clock.Clock
}

var _ LoanServiceServer = (*LoanHandler)(nil)

func NewLoanHandler(loanSvc service.LoanService, clk clock.Clock) *LoanHandler {
	return &LoanHandler{loanSvc: loanSvc, clock: clk}
}

func (h *LoanHandler) reply(loan *domain.Loan, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := loanStruct(loan, h.clock.Now())
	return out, toStatus(err)
}

func (h *LoanHandler) replyList(loans []domain.Loan, total int32, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := loanListStruct(loans, total, h.clock.Now())
	return out, toStatus(err)
}

// CreateLoan borrows book_id for the caller. Administrators may pass user_id
// to borrow on behalf of another user.
func (h *LoanHandler) CreateLoan(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	caller, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	bookID, err := int32Field(req, "book_id", true)
	if err != nil {
		return nil, toStatus(err)
	}
	period, err := int32Field(req, "period_days", false)
	if err != nil {
		return nil, toStatus(err)
	}
	userID, err := int32Field(req, "user_id", false)
	if err != nil {
		return nil, toStatus(err)
	}
	switch {
	case userID == 0:
		userID = caller.UserID
	case userID != caller.UserID && !caller.IsAdmin:
		return nil, toStatus(domain.NewError(domain.KindPermissionDenied, "cannot borrow on behalf of another user"))
	}
	return h.reply(h.loanSvc.CreateLoan(ctx, userID, bookID, period))
}

// ownedLoan loads loan_id from req and checks the caller may act on it.
func (h *LoanHandler) ownedLoan(ctx context.Context, req *structpb.Struct) (*domain.Loan, error) {
	caller, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	loanID, err := int32Field(req, "loan_id", true)
	if err != nil {
		return nil, toStatus(err)
	}
	loan, err := h.loanSvc.GetLoan(ctx, loanID)
	if err != nil {
		return nil, toStatus(err)
	}
	if !caller.IsAdmin && loan.UserID != caller.UserID {
		return nil, toStatus(domain.NewError(domain.KindPermissionDenied, "loan %d belongs to another user", loanID))
	}
	return loan, nil
}

func (h *LoanHandler) ReturnLoan(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	loan, err := h.ownedLoan(ctx, req)
	if err != nil {
		return nil, err
	}
	return h.reply(h.loanSvc.ReturnLoan(ctx, loan.ID))
}

func (h *LoanHandler) ExtendLoan(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	loan, err := h.ownedLoan(ctx, req)
	if err != nil {
		return nil, err
	}
	days, err := int32Field(req, "extension_days", false)
	if err != nil {
		return nil, toStatus(err)
	}
	return h.reply(h.loanSvc.ExtendLoan(ctx, loan.ID, days))
}

func (h *LoanHandler) GetLoan(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	loan, err := h.ownedLoan(ctx, req)
	if err != nil {
		return nil, err
	}
	return h.reply(loan, nil)
}

func (h *LoanHandler) ListActiveLoans(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	page, err := pageFromStruct(req)
	if err != nil {
		return nil, toStatus(err)
	}
	return h.replyList(h.loanSvc.ListActiveLoans(ctx, page))
}

func (h *LoanHandler) ListOverdueLoans(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	page, err := pageFromStruct(req)
	if err != nil {
		return nil, toStatus(err)
	}
	return h.replyList(h.loanSvc.ListOverdueLoans(ctx, page))
}

// ListLoansByUser defaults to the caller; only administrators may name another user.
func (h *LoanHandler) ListLoansByUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	caller, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	page, err := pageFromStruct(req)
	if err != nil {
		return nil, toStatus(err)
	}
	userID, err := int32Field(req, "user_id", false)
	if err != nil {
		return nil, toStatus(err)
	}
	if userID == 0 {
		userID = caller.UserID
	}
	if userID != caller.UserID && !caller.IsAdmin {
		return nil, toStatus(domain.NewError(domain.KindPermissionDenied, "cannot list another user's loans"))
	}
	return h.replyList(h.loanSvc.ListLoansByUser(ctx, userID, page))
}

func (h *LoanHandler) ListLoansByBook(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	page, err := pageFromStruct(req)
	if err != nil {
		return nil, toStatus(err)
	}
	bookID, err := int32Field(req, "book_id", true)
	if err != nil {
		return nil, toStatus(err)
	}
	return h.replyList(h.loanSvc.ListLoansByBook(ctx, bookID, page))
}
