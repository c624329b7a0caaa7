package auth

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	acerr "github.com/verityhq/authcore/pkg/errors"
)

// metadataAuthorization is the gRPC metadata key carrying the bearer
// token. gRPC metadata keys are lowercase.
const metadataAuthorization = "authorization"

// UnaryServerInterceptor returns a gRPC unary server interceptor that
// authenticates incoming requests.
//
// The interceptor performs the following steps:
//  1. Extracts the "authorization" metadata value (bearer token)
//  2. Authenticates the token via the [AuthenticationService]
//  3. Stores the resulting [AuthenticatedUser] in the request context
//  4. Passes the enriched context to the handler
//
// If no authorization metadata is present or authentication fails, the
// interceptor returns a gRPC error with a generic message; the specific
// failure kind is logged, never returned to the client.
func UnaryServerInterceptor(service *AuthenticationService) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		ctx, err := authenticateGRPC(ctx, service, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor returns a gRPC stream server interceptor that
// authenticates incoming streams.
//
// This interceptor performs the same authentication steps as
// [UnaryServerInterceptor] but wraps the stream to carry the enriched
// context.
func StreamServerInterceptor(service *AuthenticationService) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		ctx, err := authenticateGRPC(ss.Context(), service, info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: ctx})
	}
}

// authenticateGRPC extracts the bearer token from incoming metadata,
// authenticates it, and enriches the context with the user.
func authenticateGRPC(ctx context.Context, service *AuthenticationService, method string) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx, status.Error(codes.Unauthenticated, "missing metadata")
	}

	values := md.Get(metadataAuthorization)
	if len(values) == 0 {
		return ctx, status.Error(codes.Unauthenticated, "missing authorization metadata")
	}
	token := ExtractBearerToken(values[0])
	if token == "" {
		return ctx, status.Error(codes.Unauthenticated, "invalid authorization format")
	}

	user, err := service.Authenticate(ctx, token)
	if err != nil {
		slog.WarnContext(ctx, "auth: gRPC authentication failed",
			"error", err,
			"code", acerr.GetCode(err),
			"method", method,
		)
		return ctx, status.Error(grpcCode(err), "authentication failed")
	}

	return ContextWithUser(ctx, user), nil
}

// grpcCode maps an authentication error to a gRPC status code.
// Authorization failures map to PermissionDenied, dependency outages to
// Unavailable, everything else to Unauthenticated.
func grpcCode(err error) codes.Code {
	acErr, ok := acerr.AsError(err)
	if !ok {
		return codes.Unauthenticated
	}
	if acErr.Retryable() {
		return codes.Unavailable
	}
	switch acErr.Code.Category() {
	case "AUTHZ":
		return codes.PermissionDenied
	case "PROV":
		return codes.Unimplemented
	default:
		return codes.Unauthenticated
	}
}

// wrappedServerStream wraps a grpc.ServerStream to override its Context
// method. This is necessary because ServerStream.Context() returns the
// original stream context, which does not contain the user added by the
// interceptor.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapped context containing the authenticated user.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
