// Package errors provides standardized error types and error handling utilities
// for the authcore library. It defines the error categories an authentication
// core produces, machine-readable error codes, and helper functions for
// creating, wrapping, and inspecting errors at the service boundary.
//
// # Error Categories
//
// The package defines the error categories of delegated OAuth2/JWT
// authentication:
//
//   - Validation errors: Invalid configuration or input
//   - Authentication errors: Malformed, expired, or unverifiable tokens
//   - Authorization errors: Insufficient permissions or roles
//   - Key errors: Signing key set cannot be fetched or lacks a key
//   - Provider errors: Capability not implemented by the token provider
//   - NotFound errors: Store lookups that matched nothing
//   - Internal errors: Unexpected system failures
//   - Unavailable errors: A backing store or dependency is unreachable
//
// # Error Codes
//
// Each error includes a machine-readable code (e.g., "AUTH_002") that can be
// used for error tracking, alerting, and client-side error handling. Error
// codes follow the pattern CATEGORY_XXX where CATEGORY is a short identifier
// and XXX is a numeric code. The boundary layer maps each category to a
// distinct HTTP response code via [Error.HTTPStatus]: authentication failures
// become 401, authorization failures 403, key-set outages 503.
//
// # Usage
//
// Create a new error with context:
//
//	err := errors.New(errors.CodeTokenMalformed, "token has no key ID")
//
// Wrap an existing error:
//
//	err := errors.Wrap(err, errors.CodeKeyFetch, "key set fetch failed")
//
// Check error category:
//
//	if errors.IsAuthentication(err) {
//	    // respond 401 with a generic message; log the code
//	}
//
// Extract error details for logging:
//
//	if e, ok := errors.AsError(err); ok {
//	    logger.Warn("authentication failed",
//	        "code", e.Code,
//	        "message", e.Message,
//	    )
//	}
package errors
