package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	acerr "github.com/verityhq/authcore/pkg/errors"
)

// fakeServerStream implements enough of grpc.ServerStream for the
// interceptor tests.
type fakeServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f *fakeServerStream) Context() context.Context {
	return f.ctx
}

func grpcTestContext(authorization string) context.Context {
	md := metadata.New(nil)
	if authorization != "" {
		md.Set(metadataAuthorization, authorization)
	}
	return metadata.NewIncomingContext(context.Background(), md)
}

func TestUnaryServerInterceptor(t *testing.T) {
	t.Parallel()

	service, sign := testService(t)
	interceptor := UnaryServerInterceptor(service)
	info := &grpc.UnaryServerInfo{FullMethod: "/authcore.v1.Documents/Get"}

	t.Run("valid token", func(t *testing.T) {
		var captured *AuthenticatedUser
		handler := func(ctx context.Context, req any) (any, error) {
			captured = MustUserFromContext(ctx)
			return "ok", nil
		}

		resp, err := interceptor(grpcTestContext("Bearer "+sign(nil)), nil, info, handler)
		require.NoError(t, err)
		assert.Equal(t, "ok", resp)
		require.NotNil(t, captured)
		assert.Equal(t, "user-1", captured.ProviderUserID())
	})

	t.Run("missing metadata", func(t *testing.T) {
		_, err := interceptor(context.Background(), nil, info, nil)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("missing authorization", func(t *testing.T) {
		_, err := interceptor(grpcTestContext(""), nil, info, nil)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := interceptor(grpcTestContext("Basic abc"), nil, info, nil)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("invalid token", func(t *testing.T) {
		_, err := interceptor(grpcTestContext("Bearer garbage"), nil, info, nil)
		require.Error(t, err)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
		// The status message never leaks the verification failure.
		assert.Equal(t, "authentication failed", status.Convert(err).Message())
	})
}

func TestStreamServerInterceptor(t *testing.T) {
	t.Parallel()

	service, sign := testService(t)
	interceptor := StreamServerInterceptor(service)
	info := &grpc.StreamServerInfo{FullMethod: "/authcore.v1.Documents/Watch"}

	t.Run("valid token", func(t *testing.T) {
		var captured *AuthenticatedUser
		handler := func(srv any, ss grpc.ServerStream) error {
			captured = MustUserFromContext(ss.Context())
			return nil
		}

		stream := &fakeServerStream{ctx: grpcTestContext("Bearer " + sign(nil))}
		err := interceptor(nil, stream, info, handler)
		require.NoError(t, err)
		require.NotNil(t, captured)
		assert.Equal(t, "user-1", captured.ProviderUserID())
	})

	t.Run("invalid token", func(t *testing.T) {
		stream := &fakeServerStream{ctx: grpcTestContext("Bearer garbage")}
		err := interceptor(nil, stream, info, nil)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})
}

func TestGRPCCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{
			name: "authorization failure",
			err:  acerr.New(acerr.CodeInsufficientPermissions, "missing grant"),
			want: codes.PermissionDenied,
		},
		{
			name: "provider unsupported",
			err:  acerr.NotImplementedByProvider("token refresh"),
			want: codes.Unimplemented,
		},
		{
			name: "retryable key outage",
			err:  acerr.New(acerr.CodeSigningKeyUnavailable, "key set unreachable"),
			want: codes.Unavailable,
		},
		{
			name: "expired token",
			err:  acerr.New(acerr.CodeTokenExpired, "token expired"),
			want: codes.Unauthenticated,
		},
		{
			name: "untyped error",
			err:  assert.AnError,
			want: codes.Unauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, grpcCode(tt.err))
		})
	}
}

func TestWrappedServerStream(t *testing.T) {
	t.Parallel()

	user := NewAuthenticatedUser(UserIDFromSubject("user-1"), "user-1", "", "", "jwt", false, nil, nil, nil)
	ctx := ContextWithUser(context.Background(), user)
	wrapped := &wrappedServerStream{ServerStream: &fakeServerStream{ctx: context.Background()}, ctx: ctx}

	assert.Same(t, user, MustUserFromContext(wrapped.Context()))
}
