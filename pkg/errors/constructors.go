package errors

import (
	"errors"
	"fmt"
)

// New creates a new Error with the specified code and message.
// Use this for creating errors without an underlying cause.
//
// Example:
//
//	err := errors.New(errors.CodeTokenMalformed, "token has no key ID")
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with the specified code and formatted message.
// Use this for creating errors with dynamic content in the message.
//
// Example:
//
//	err := errors.Newf(errors.CodeKeyNotFound, "no key with ID %q in key set", kid)
func Newf(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with additional context.
// The wrapped error becomes the Cause of the new error.
// If err is nil, Wrap returns nil.
//
// Example:
//
//	body, err := io.ReadAll(resp.Body)
//	if err != nil {
//	    return errors.Wrap(err, errors.CodeKeyFetch, "failed to read key set response")
//	}
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with a formatted message.
// The wrapped error becomes the Cause of the new error.
// If err is nil, Wrapf returns nil.
//
// Example:
//
//	err := errors.Wrapf(err, errors.CodeKeyFetch, "fetching key set from %s", url)
func Wrapf(err error, code Code, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// Validation creates a new validation error.
// This is a convenience function equivalent to New(CodeValidation, message).
//
// Example:
//
//	err := errors.Validation("issuer must not be empty")
func Validation(message string) *Error {
	return New(CodeValidation, message)
}

// Validationf creates a new validation error with a formatted message.
//
// Example:
//
//	err := errors.Validationf("unsupported algorithm %q", alg)
func Validationf(format string, args ...any) *Error {
	return Newf(CodeValidation, format, args...)
}

// Unauthorized creates a new authentication error.
// Use this when token verification fails for a reason that has no more
// specific AUTH_xxx code.
//
// Example:
//
//	err := errors.Unauthorized("token verification failed")
func Unauthorized(message string) *Error {
	return New(CodeAuthentication, message)
}

// Forbidden creates a new authorization error.
// Use this when the authenticated user lacks permission for an action.
//
// Example:
//
//	err := errors.Forbidden("access to resource denied")
func Forbidden(message string) *Error {
	return New(CodeAuthorization, message)
}

// InsufficientPermissions creates an authorization error carrying the
// required and missing permission sets in its Details, so the boundary
// layer can log exactly which grants were absent.
func InsufficientPermissions(required, missing []string) *Error {
	return New(CodeInsufficientPermissions, "insufficient permissions").
		WithDetails(map[string]any{
			"required": required,
			"missing":  missing,
		})
}

// InsufficientRoles creates an authorization error carrying the required
// role set in its Details. The user held none of the required roles.
func InsufficientRoles(required []string) *Error {
	return New(CodeInsufficientRoles, "insufficient roles").
		WithDetail("required", required)
}

// NotImplementedByProvider creates a provider capability error for an
// operation that requires the provider's own token endpoint API.
//
// Example:
//
//	return errors.NotImplementedByProvider("RefreshToken")
func NotImplementedByProvider(operation string) *Error {
	return Newf(CodeNotImplementedByProvider,
		"%s must be implemented against the provider's token endpoint", operation)
}

// NotFound creates a new not found error.
//
// Example:
//
//	err := errors.NotFoundf("role %q not found", name)
func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}

// NotFoundf creates a new not found error with a formatted message.
func NotFoundf(format string, args ...any) *Error {
	return Newf(CodeNotFound, format, args...)
}

// Internal creates a new internal error.
// Use this for unexpected system failures that should not expose details to users.
//
// Example:
//
//	err := errors.Internal("an unexpected error occurred")
func Internal(message string) *Error {
	return New(CodeInternal, message)
}

// Internalf creates a new internal error with a formatted message.
func Internalf(format string, args ...any) *Error {
	return Newf(CodeInternal, format, args...)
}

// Unavailable creates a new service unavailable error.
// Use this when a backing store or dependency is temporarily unreachable.
//
// Example:
//
//	err := errors.Unavailable("revocation store is unavailable")
func Unavailable(message string) *Error {
	return New(CodeUnavailable, message)
}

// FromError converts a standard error to an Error.
// If the error is already an *Error, it is returned as-is.
// Otherwise, it is wrapped as an internal error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	return Wrap(err, CodeInternal, "an unexpected error occurred")
}
