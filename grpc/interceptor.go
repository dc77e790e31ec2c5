package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// InterceptorConfig configures the auth interceptors.
type InterceptorConfig struct {
	// VerifyToken verifies a session token and returns the account ID it
	// names. Required.
	VerifyToken func(token string) (string, error)

	// MetadataKeyAuthorization is the metadata key the bearer token arrives
	// on. Defaults to "authorization".
	MetadataKeyAuthorization string

	// RequireAuth when true rejects calls without a valid token.
	// When false, calls proceed but AccountIDFromContext returns empty.
	RequireAuth bool

	// PublicMethods are full method names ("/package.Service/Method") that
	// skip the auth requirement. Only consulted when RequireAuth is true.
	PublicMethods map[string]bool
}

// NewInterceptorConfig returns a config that requires auth for all methods
// except the listed ones.
func NewInterceptorConfig(verify func(token string) (string, error), publicMethods ...string) *InterceptorConfig {
	config := &InterceptorConfig{
		VerifyToken:   verify,
		RequireAuth:   true,
		PublicMethods: make(map[string]bool),
	}
	for _, method := range publicMethods {
		config.PublicMethods[method] = true
	}
	return config
}

// EnsureDefaults fills in default values for any unset fields.
func (c *InterceptorConfig) EnsureDefaults() {
	if c.MetadataKeyAuthorization == "" {
		c.MetadataKeyAuthorization = DefaultMetadataKeyAuthorization
	}
	if c.PublicMethods == nil {
		c.PublicMethods = make(map[string]bool)
	}
}

// UnaryAuthInterceptor returns a unary interceptor that verifies the bearer
// session token in metadata and attaches the account ID to the context.
func UnaryAuthInterceptor(config *InterceptorConfig) grpc.UnaryServerInterceptor {
	config.EnsureDefaults()

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		accountID := authenticate(ctx, config)
		if accountID == "" && config.RequireAuth && !config.PublicMethods[info.FullMethod] {
			return nil, status.Error(codes.Unauthenticated, "authentication required")
		}
		if accountID != "" {
			ctx = ContextWithAccountID(ctx, accountID)
		}
		return handler(ctx, req)
	}
}

// StreamAuthInterceptor returns the stream counterpart of UnaryAuthInterceptor.
func StreamAuthInterceptor(config *InterceptorConfig) grpc.StreamServerInterceptor {
	config.EnsureDefaults()

	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx := ss.Context()
		accountID := authenticate(ctx, config)
		if accountID == "" && config.RequireAuth && !config.PublicMethods[info.FullMethod] {
			return status.Error(codes.Unauthenticated, "authentication required")
		}
		if accountID != "" {
			ss = &authenticatedStream{ServerStream: ss, ctx: ContextWithAccountID(ctx, accountID)}
		}
		return handler(srv, ss)
	}
}

// authenticate verifies the token in metadata. An invalid or absent token is
// treated the same: no identity.
func authenticate(ctx context.Context, config *InterceptorConfig) string {
	token := tokenFromIncomingContext(ctx, config.MetadataKeyAuthorization)
	if token == "" || config.VerifyToken == nil {
		return ""
	}
	accountID, err := config.VerifyToken(token)
	if err != nil {
		return ""
	}
	return accountID
}

type authenticatedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authenticatedStream) Context() context.Context {
	return s.ctx
}
