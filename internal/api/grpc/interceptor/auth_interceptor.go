package interceptor

import (
	"context"
	"strconv"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"library-backend/internal/security"
)

// Metadata keys the interceptor sets after validating the token. Values sent
// by the client under the same keys are replaced.
const (
	MetadataUserID  = "user-id"
	MetadataIsAdmin = "is-admin"
)

const bearerPrefix = "bearer "

type AuthInterceptor struct {
	tokens security.TokenManager
}

func NewAuthInterceptor(tokens security.TokenManager) *AuthInterceptor {
	return &AuthInterceptor{tokens: tokens}
}

// Unary checks the caller against the method's SecurityLevel and hands the
// handler a context carrying the verified library identity.
func (i *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		ctx, err := i.authorize(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

func (i *AuthInterceptor) authorize(ctx context.Context, fullMethod string) (context.Context, error) {
	level := GetSecurityLevel(fullMethod)
	if level == SecurityPublic {
		return ctx, nil
	}

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "metadata is not provided")
	}
	token, err := bearerToken(md)
	if err != nil {
		return nil, err
	}
	claims, err := i.tokens.ValidateToken(token)
	if err != nil {
		return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
	}
	if level == SecurityAdmin && !claims.IsAdmin {
		return nil, status.Errorf(codes.PermissionDenied, "%s requires a librarian account", fullMethod)
	}

	md = md.Copy()
	md.Set(MetadataUserID, strconv.Itoa(int(claims.UserID)))
	md.Set(MetadataIsAdmin, strconv.FormatBool(claims.IsAdmin))
	return metadata.NewIncomingContext(ctx, md), nil
}

// bearerToken reads the first authorization value; the "Bearer " scheme is optional.
func bearerToken(md metadata.MD) (string, error) {
	values := md.Get("authorization")
	if len(values) == 0 {
		return "", status.Error(codes.Unauthenticated, "authorization token is not provided")
	}
	token := values[0]
	if len(token) >= len(bearerPrefix) && strings.EqualFold(token[:len(bearerPrefix)], bearerPrefix) {
		token = token[len(bearerPrefix):]
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", status.Error(codes.Unauthenticated, "authorization token is empty")
	}
	return token, nil
}
