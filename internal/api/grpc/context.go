package grpc

import (
	"context"
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"library-backend/internal/api/grpc/interceptor"
	"library-backend/internal/domain"
)

// GetUserIDFromContext extracts the user ID from the gRPC metadata.
// It expects a header named "user-id".
func GetUserIDFromContext(ctx context.Context) (int32, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return 0, status.Errorf(codes.Unauthenticated, "metadata is not provided")
	}

	userIDs := md.Get(interceptor.MetadataUserID)
	if len(userIDs) == 0 {
		return 0, status.Errorf(codes.Unauthenticated, "user_id is not provided in metadata")
	}

	userID, err := strconv.ParseInt(userIDs[0], 10, 32)
	if err != nil {
		return 0, status.Errorf(codes.InvalidArgument, "invalid user_id format: %v", err)
	}

	return int32(userID), nil
}

// GetCallerFromContext returns the identity the auth interceptor injected.
func GetCallerFromContext(ctx context.Context) (domain.Caller, error) {
	userID, err := GetUserIDFromContext(ctx)
	if err != nil {
		return domain.Caller{}, err
	}
	md, _ := metadata.FromIncomingContext(ctx)
	isAdmin := false
	if v := md.Get(interceptor.MetadataIsAdmin); len(v) > 0 {
		isAdmin, _ = strconv.ParseBool(v[0])
	}
	return domain.Caller{UserID: userID, IsAdmin: isAdmin}, nil
}
