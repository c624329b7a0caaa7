package errors

// Code represents a machine-readable error code for categorizing errors.
// Error codes follow the pattern CATEGORY_XXX where CATEGORY is a short
// identifier (e.g., AUTH, KEY, INT) and XXX is a three-digit numeric code.
//
// Error codes are designed to be:
//   - Stable: Codes do not change once assigned
//   - Unique: Each error condition has a distinct code
//   - Searchable: Codes can be used to find documentation and solutions
//   - Machine-readable: Suitable for automated error handling
type Code string

// Error code categories and their ranges:
//
//	VAL_xxx     - Validation errors (400 Bad Request)
//	AUTH_xxx    - Authentication errors (401 Unauthorized)
//	AUTHZ_xxx   - Authorization errors (403 Forbidden)
//	NF_xxx      - Not found errors (404 Not Found)
//	PROV_xxx    - Provider capability errors (501 Not Implemented)
//	INT_xxx     - Internal errors (500 Internal Server Error)
//	KEY_xxx     - Signing key set errors (503 Service Unavailable)
//	UNAVAIL_xxx - Dependency unavailable (503 Service Unavailable)
const (
	// Validation errors (VAL_xxx) - HTTP 400
	// Used when configuration or input fails validation rules.

	// CodeValidation indicates a general validation failure.
	CodeValidation Code = "VAL_001"

	// CodeValidationRequired indicates a required field is missing.
	CodeValidationRequired Code = "VAL_002"

	// Authentication errors (AUTH_xxx) - HTTP 401
	// Used when a bearer token cannot be verified. The specific code is
	// retained internally for diagnostics; user-facing responses should
	// carry only a generic authentication-failed message.

	// CodeAuthentication indicates a general authentication failure. Also
	// the wrapper for unexpected errors during verification, so internal
	// error types never leak to callers unclassified.
	CodeAuthentication Code = "AUTH_001"

	// CodeTokenExpired indicates the token's expiry is in the past.
	CodeTokenExpired Code = "AUTH_002"

	// CodeTokenMalformed indicates the token cannot be parsed, has no
	// header, or is missing a key identifier.
	CodeTokenMalformed Code = "AUTH_003"

	// CodeSignatureInvalid indicates the token signature does not verify
	// against the provider's signing key, or the signing algorithm is not
	// on the configured allow-list.
	CodeSignatureInvalid Code = "AUTH_004"

	// CodeIssuerMismatch indicates the token's issuer claim does not
	// exactly equal the configured issuer.
	CodeIssuerMismatch Code = "AUTH_005"

	// CodeAudienceMismatch indicates the token's audience claim does not
	// contain the configured audience.
	CodeAudienceMismatch Code = "AUTH_006"

	// CodeSigningKeyUnavailable indicates the verifier could not obtain
	// the signing key for the token (key set unreachable or key absent).
	// This wraps KEY_xxx causes; unlike the other AUTH_xxx codes it is
	// retryable.
	CodeSigningKeyUnavailable Code = "AUTH_007"

	// Authorization errors (AUTHZ_xxx) - HTTP 403
	// Used when the authenticated user lacks required permissions or roles.

	// CodeAuthorization indicates a general authorization failure.
	CodeAuthorization Code = "AUTHZ_001"

	// CodeInsufficientPermissions indicates the user does not hold every
	// required permission. The error's Details carry the required and
	// missing sets.
	CodeInsufficientPermissions Code = "AUTHZ_002"

	// CodeInsufficientRoles indicates the user holds none of the required
	// roles. The error's Details carry the required set.
	CodeInsufficientRoles Code = "AUTHZ_003"

	// Not found errors (NF_xxx) - HTTP 404
	// Used when a store lookup matches nothing.

	// CodeNotFound indicates a general not found error.
	CodeNotFound Code = "NF_001"

	// Provider capability errors (PROV_xxx) - HTTP 501
	// Used when an operation requires a provider-specific API that the
	// configured provider does not implement.

	// CodeNotImplementedByProvider indicates the operation (token refresh,
	// token revocation) must be implemented against the provider's own
	// token endpoint and is not available from the generic JWT provider.
	CodeNotImplementedByProvider Code = "PROV_001"

	// Internal errors (INT_xxx) - HTTP 500
	// Used for unexpected internal failures.

	// CodeInternal indicates a general internal error.
	CodeInternal Code = "INT_001"

	// CodeInternalConfiguration indicates a configuration error.
	CodeInternalConfiguration Code = "INT_002"

	// Signing key set errors (KEY_xxx) - HTTP 503
	// Produced by the key cache layer. The verifier wraps these into
	// CodeSigningKeyUnavailable before they reach callers.

	// CodeKeyFetch indicates the remote key set endpoint was unreachable,
	// returned a non-2xx status, timed out, or returned an unparseable
	// body. Retryable.
	CodeKeyFetch Code = "KEY_001"

	// CodeKeyNotFound indicates the key set was fetched successfully but
	// contains no key matching the requested key ID, even after a forced
	// refresh.
	CodeKeyNotFound Code = "KEY_002"

	// Unavailable errors (UNAVAIL_xxx) - HTTP 503
	// Used when a backing store or dependency is temporarily unavailable.

	// CodeUnavailable indicates a general service unavailable error.
	CodeUnavailable Code = "UNAVAIL_001"

	// CodeUnavailableDependency indicates a dependent store (role store,
	// revocation list) is unavailable.
	CodeUnavailableDependency Code = "UNAVAIL_002"
)

// String returns the string representation of the error code.
func (c Code) String() string {
	return string(c)
}

// Category returns the category prefix of the error code (e.g., "AUTH", "KEY").
func (c Code) Category() string {
	s := string(c)
	for i, r := range s {
		if r == '_' {
			return s[:i]
		}
	}
	return s
}
