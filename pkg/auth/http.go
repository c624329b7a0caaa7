package auth

import (
	"log/slog"
	"net/http"
	"strings"

	acerr "github.com/verityhq/authcore/pkg/errors"
)

// HeaderAuthorization is the standard authorization header carrying the
// bearer token.
const HeaderAuthorization = "Authorization"

// bearerPrefix is the standard "Bearer " prefix for authorization tokens.
const bearerPrefix = "Bearer "

// ExtractBearerToken extracts the token from an authorization header
// value. It handles the "Bearer " prefix case-insensitively. Returns an
// empty string if the header is empty or does not have a bearer prefix.
func ExtractBearerToken(authHeader string) string {
	if len(authHeader) <= len(bearerPrefix) {
		return ""
	}
	// Case-insensitive comparison for "Bearer " prefix.
	prefix := authHeader[:len(bearerPrefix)]
	if !strings.EqualFold(prefix, bearerPrefix) {
		return ""
	}
	return authHeader[len(bearerPrefix):]
}

// HTTPMiddleware returns an HTTP middleware that authenticates incoming
// requests.
//
// The middleware performs the following steps:
//  1. Extracts the "Authorization" header (bearer token)
//  2. Authenticates the token via the [AuthenticationService]
//  3. Stores the resulting [AuthenticatedUser] in the request context
//  4. Passes the enriched request to the next handler
//
// If no Authorization header is present or authentication fails, the
// middleware responds with the error's HTTP status and a generic body.
// The specific failure kind is logged, never returned to the client.
//
// Example:
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("/api/data", handleData)
//	handler := auth.HTTPMiddleware(service)(mux)
//	http.ListenAndServe(":8080", handler)
func HTTPMiddleware(service *AuthenticationService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractBearerToken(r.Header.Get(HeaderAuthorization))
			if token == "" {
				http.Error(w, "missing or invalid authorization header", http.StatusUnauthorized)
				return
			}

			ctx := r.Context()
			user, err := service.Authenticate(ctx, token)
			if err != nil {
				slog.WarnContext(ctx, "auth: request authentication failed",
					"error", err,
					"code", acerr.GetCode(err),
					"path", r.URL.Path,
				)
				http.Error(w, "authentication failed", httpStatus(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUser(ctx, user)))
		})
	}
}

// RequireHTTPPermissions wraps a handler so it only runs when the
// authenticated user in the request context holds every one of the
// given permissions. Requests without a user respond 401; users missing
// a permission respond 403.
//
// Must be used behind [HTTPMiddleware] (or any handler that stores the
// user with [ContextWithUser]).
func RequireHTTPPermissions(next http.Handler, permissions ...string) http.Handler {
	requirement := NewPermissionRequirement(permissions...)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		if err := requirement.Check(user); err != nil {
			slog.WarnContext(r.Context(), "auth: request lacks required permissions",
				"user", user.ID(),
				"path", r.URL.Path,
			)
			http.Error(w, "insufficient permissions", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireHTTPRoles wraps a handler so it only runs when the
// authenticated user in the request context holds at least one of the
// given roles. Requests without a user respond 401; users without a
// required role respond 403.
func RequireHTTPRoles(next http.Handler, roles ...string) http.Handler {
	requirement := NewRoleRequirement(roles...)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		if err := requirement.Check(user); err != nil {
			slog.WarnContext(r.Context(), "auth: request lacks required roles",
				"user", user.ID(),
				"path", r.URL.Path,
			)
			http.Error(w, "insufficient permissions", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// httpStatus maps an authentication error to its HTTP response status,
// defaulting to 401 for untyped errors.
func httpStatus(err error) int {
	if acErr, ok := acerr.AsError(err); ok {
		return acErr.HTTPStatus()
	}
	return http.StatusUnauthorized
}
