package grpc

import (
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"library-backend/internal/domain"
)

const errorDomain = "library-backend"

// CodeFor maps an error kind onto a gRPC status code.
func CodeFor(kind domain.ErrorKind) codes.Code {
	switch kind {
	case domain.KindNotFound:
		return codes.NotFound
	case domain.KindInactiveUser, domain.KindPermissionDenied:
		return codes.PermissionDenied
	case domain.KindUnavailable, domain.KindDuplicateActiveLoan, domain.KindLoanLimitExceeded,
		domain.KindAlreadyReturned, domain.KindOverdueNotExtendable, domain.KindAlreadyExtended:
		return codes.FailedPrecondition
	case domain.KindConflict:
		return codes.AlreadyExists
	case domain.KindInvalidArgument:
		return codes.InvalidArgument
	case domain.KindUnauthenticated:
		return codes.Unauthenticated
	case domain.KindTransient:
		return codes.Unavailable
	}
	return codes.Internal
}

// toStatus converts a service error into a gRPC status error. The error kind
// travels as the ErrorInfo reason so clients can branch on it.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok && !isDomainError(err) {
		return err
	}
	kind := domain.KindOf(err)
	st := status.New(CodeFor(kind), domain.MessageOf(err))
	if detailed, derr := st.WithDetails(&errdetails.ErrorInfo{Reason: string(kind), Domain: errorDomain}); derr == nil {
		st = detailed
	}
	return st.Err()
}

func isDomainError(err error) bool {
	var de *domain.Error
	return errors.As(err, &de)
}

// KindFromStatus recovers the error kind from a status produced by toStatus.
func KindFromStatus(err error) domain.ErrorKind {
	st, ok := status.FromError(err)
	if !ok {
		return domain.KindInternal
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.Domain == errorDomain {
			return domain.ErrorKind(info.Reason)
		}
	}
	return domain.KindInternal
}
