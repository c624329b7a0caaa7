// Package fixtures provides shared test data constants for the authcore
// test suite.
//
// Using common constants for test identities prevents magic strings in
// tests and keeps claims consistent across packages.
package fixtures

// Standard identity values for token and claims tests.
const (
	// Subject is the default token subject for unit tests. Not a UUID,
	// so identity mapping exercises the deterministic hashing path.
	Subject = "user-abc-123"

	// UUIDSubject is a token subject that already is a UUID, exercising
	// the pass-through identity mapping path.
	UUIDSubject = "b9c7d3f0-4a1e-4f6b-9d2c-8e5a7b3c1d0e"

	// Issuer is the default issuer for test tokens.
	Issuer = "https://auth.verityhq.test"

	// Audience is the default audience for test tokens.
	Audience = "authcore-api"

	// KeyID is the default signing key identifier for test tokens.
	KeyID = "test-key-1"

	// Email is the default email claim for test tokens.
	Email = "abc@verityhq.test"
)

// Standard role and permission grants for authorization tests.
const (
	// AdminRole is a role grant used across authorization tests.
	AdminRole = "admin"

	// ViewerRole is a role grant used across authorization tests.
	ViewerRole = "viewer"

	// WritePermission is a permission used in the admin write scenario.
	WritePermission = "admin:write"

	// ReadPermission is a permission used in the admin write scenario.
	ReadPermission = "admin:read"
)

// Standard database credentials for store configuration tests. These are
// deliberately weak values suitable only for unit tests.
const (
	// DBName is the default database name for store config tests.
	DBName = "authcore_test"

	// DBUser is the default database user for store config tests.
	DBUser = "testuser"

	// DBPassword is the default database password for store config tests.
	DBPassword = "testpass"
)
