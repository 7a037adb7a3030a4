package grpc

import (
	"math"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"library-backend/internal/domain"
)

// MapDomainLoanToFields renders a loan as the field map carried in a Struct.
// Timestamps are RFC 3339 strings in UTC.
func MapDomainLoanToFields(l *domain.Loan, now time.Time) map[string]any {
	fields := map[string]any{
		"id":        l.ID,
		"user_id":   l.UserID,
		"book_id":   l.BookID,
		"loan_date": l.LoanDate.UTC().Format(time.RFC3339),
		"due_date":  l.DueDate.UTC().Format(time.RFC3339),
		"extended":  l.Extended,
		"status":    string(l.Status(now)),
	}
	if l.ReturnDate != nil {
		fields["return_date"] = l.ReturnDate.UTC().Format(time.RFC3339)
	}
	return fields
}

// MapStructToLoan reads a loan back from a Struct built by MapDomainLoanToFields.
func MapStructToLoan(s *structpb.Struct) (*domain.Loan, error) {
	f := s.GetFields()
	l := &domain.Loan{Extended: f["extended"].GetBoolValue()}
	var err error
	if l.ID, err = int32Field(s, "id", true); err != nil {
		return nil, err
	}
	if l.UserID, err = int32Field(s, "user_id", true); err != nil {
		return nil, err
	}
	if l.BookID, err = int32Field(s, "book_id", true); err != nil {
		return nil, err
	}
	if l.LoanDate, err = time.Parse(time.RFC3339, f["loan_date"].GetStringValue()); err != nil {
		return nil, domain.WrapError(domain.KindInvalidArgument, err, "invalid loan_date")
	}
	if l.DueDate, err = time.Parse(time.RFC3339, f["due_date"].GetStringValue()); err != nil {
		return nil, domain.WrapError(domain.KindInvalidArgument, err, "invalid due_date")
	}
	if v, ok := f["return_date"]; ok {
		ret, err := time.Parse(time.RFC3339, v.GetStringValue())
		if err != nil {
			return nil, domain.WrapError(domain.KindInvalidArgument, err, "invalid return_date")
		}
		l.ReturnDate = &ret
	}
	return l, nil
}

func loanStruct(l *domain.Loan, now time.Time) (*structpb.Struct, error) {
	return structpb.NewStruct(MapDomainLoanToFields(l, now))
}

func loanListStruct(loans []domain.Loan, total int32, now time.Time) (*structpb.Struct, error) {
	items := make([]any, len(loans))
	for i := range loans {
		items[i] = MapDomainLoanToFields(&loans[i], now)
	}
	return structpb.NewStruct(map[string]any{"loans": items, "total": total})
}

// int32Field reads an integral number field. Missing optional fields read as zero.
func int32Field(s *structpb.Struct, name string, required bool) (int32, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		if required {
			return 0, domain.NewError(domain.KindInvalidArgument, "%s is required", name)
		}
		return 0, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, domain.NewError(domain.KindInvalidArgument, "%s must be a number", name)
	}
	f := n.NumberValue
	if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, domain.NewError(domain.KindInvalidArgument, "%s must be a 32-bit integer", name)
	}
	return int32(f), nil
}

func pageFromStruct(s *structpb.Struct) (domain.Page, error) {
	offset, err := int32Field(s, "offset", false)
	if err != nil {
		return domain.Page{}, err
	}
	limit, err := int32Field(s, "limit", false)
	if err != nil {
		return domain.Page{}, err
	}
	if offset < 0 || limit < 0 {
		return domain.Page{}, domain.NewError(domain.KindInvalidArgument, "offset and limit must not be negative")
	}
	f := s.GetFields()
	return domain.Page{
		Offset: offset,
		Limit:  limit,
		Sort: domain.SortOrder{
			Field: f["sort"].GetStringValue(),
			Desc:  f["desc"].GetBoolValue(),
		},
	}, nil
}
