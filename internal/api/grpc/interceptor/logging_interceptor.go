package interceptor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"library-backend/internal/logger"
	"library-backend/internal/metrics"
)

const metadataRequestID = "x-request-id"

// Logging attaches a request-scoped logger, recovers panics and records
// each call in the request counter.
func Logging(m *metrics.Metrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		requestID := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get(metadataRequestID); len(ids) > 0 {
				requestID = ids[0]
			}
		}
		if _, perr := uuid.Parse(requestID); perr != nil {
			requestID = uuid.NewString()
		}
		ctx = logger.WithRequestID(ctx, requestID)

		start := time.Now()
		defer func() {
			if p := recover(); p != nil {
				logger.ErrorContext(ctx, "gRPC handler panicked", "method", info.FullMethod, "panic", p)
				err = status.Error(codes.Internal, "internal error")
			}
			code := status.Code(err)
			m.ObserveGRPC(info.FullMethod, code.String())
			l := logger.FromContext(ctx)
			if code == codes.Internal || code == codes.Unknown {
				l.Error("gRPC call failed", "method", info.FullMethod, "code", code.String(), "duration_ms", time.Since(start).Milliseconds(), "error", err)
				return
			}
			l.Debug("gRPC call served", "method", info.FullMethod, "code", code.String(), "duration_ms", time.Since(start).Milliseconds())
		}()
		return handler(ctx, req)
	}
}
