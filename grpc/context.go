// Package grpc carries the authenticated account identity across gRPC
// boundaries. Incoming calls present a bearer session token in metadata;
// the interceptor verifies it and records the account ID for handlers.
package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc/metadata"
)

const (
	// DefaultMetadataKeyAuthorization is the gRPC metadata key carrying the
	// bearer session token.
	DefaultMetadataKeyAuthorization = "authorization"

	bearerPrefix = "Bearer "
)

type accountIDKey struct{}

// AccountIDFromContext returns the account ID the interceptor attached after
// verifying the session token. Empty when the call is unauthenticated.
func AccountIDFromContext(ctx context.Context) string {
	accountID, _ := ctx.Value(accountIDKey{}).(string)
	return accountID
}

// ContextWithAccountID records a verified account ID on the context.
func ContextWithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, accountIDKey{}, accountID)
}

// IsAuthenticated reports whether the context carries a verified account.
func IsAuthenticated(ctx context.Context) bool {
	return AccountIDFromContext(ctx) != ""
}

// TokenToOutgoingContext attaches a session token to outgoing gRPC metadata
// so a downstream service can verify the same identity.
func TokenToOutgoingContext(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, DefaultMetadataKeyAuthorization, bearerPrefix+token)
}

// tokenFromIncomingContext pulls the bearer token out of incoming metadata.
// Returns empty when the metadata key is absent or not bearer-shaped.
func tokenFromIncomingContext(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(key)
	if len(values) == 0 {
		return ""
	}
	value := values[0]
	if strings.HasPrefix(value, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(value, bearerPrefix))
	}
	return strings.TrimSpace(value)
}
