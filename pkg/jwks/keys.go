package jwks

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
)

// Key is a verification key materialized from a JSON Web Key Set entry.
// The Public field holds the concrete public key (*rsa.PublicKey or
// *ecdsa.PublicKey) ready for signature verification.
type Key struct {
	// KeyID is the "kid" value that tokens reference in their header.
	KeyID string

	// Algorithm is the "alg" hint from the key set entry, if present.
	// It is advisory; the verifier enforces its own algorithm allow-list.
	Algorithm string

	// Use is the "use" value from the key set entry (typically "sig").
	Use string

	// Public is the materialized public key.
	Public crypto.PublicKey
}

// document represents the JSON structure of a JWKS endpoint response.
type document struct {
	Keys []entry `json:"keys"`
}

// entry represents a single key in a JWKS response. Only the fields
// needed for RSA and EC key reconstruction are included.
type entry struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	// RSA fields
	N string `json:"n"`
	E string `json:"e"`
	// EC fields
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

// materialize converts the parsed document into a kid-indexed key map.
// Entries without a kid, with unsupported key types, or with malformed
// parameters are skipped rather than failing the whole set: one bad key
// from a provider must not take down verification for the good keys.
func (d *document) materialize() map[string]Key {
	keys := make(map[string]Key, len(d.Keys))
	for _, e := range d.Keys {
		if e.Kid == "" {
			continue
		}
		var pub crypto.PublicKey
		var err error
		switch e.Kty {
		case "RSA":
			pub, err = parseRSAPublicKey(e.N, e.E)
		case "EC":
			pub, err = parseECPublicKey(e.Crv, e.X, e.Y)
		default:
			continue
		}
		if err != nil {
			continue
		}
		keys[e.Kid] = Key{
			KeyID:     e.Kid,
			Algorithm: e.Alg,
			Use:       e.Use,
			Public:    pub,
		}
	}
	return keys
}

// parseRSAPublicKey constructs an *rsa.PublicKey from base64url-encoded
// modulus (n) and exponent (e) values.
func parseRSAPublicKey(nBase64, eBase64 string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nBase64)
	if err != nil {
		return nil, fmt.Errorf("jwks: failed to decode RSA modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(eBase64)
	if err != nil {
		return nil, fmt.Errorf("jwks: failed to decode RSA exponent: %w", err)
	}
	if len(nBytes) == 0 || len(eBytes) == 0 {
		return nil, fmt.Errorf("jwks: RSA key has empty modulus or exponent")
	}

	n := new(big.Int).SetBytes(nBytes)
	e := new(big.Int).SetBytes(eBytes)

	return &rsa.PublicKey{
		N: n,
		E: int(e.Int64()),
	}, nil
}

// parseECPublicKey constructs an *ecdsa.PublicKey from a curve name and
// base64url-encoded x and y coordinates.
func parseECPublicKey(crv, xBase64, yBase64 string) (*ecdsa.PublicKey, error) {
	var curve elliptic.Curve
	switch crv {
	case "P-256":
		curve = elliptic.P256()
	case "P-384":
		curve = elliptic.P384()
	case "P-521":
		curve = elliptic.P521()
	default:
		return nil, fmt.Errorf("jwks: unsupported EC curve %q", crv)
	}

	xBytes, err := base64.RawURLEncoding.DecodeString(xBase64)
	if err != nil {
		return nil, fmt.Errorf("jwks: failed to decode EC x coordinate: %w", err)
	}
	yBytes, err := base64.RawURLEncoding.DecodeString(yBase64)
	if err != nil {
		return nil, fmt.Errorf("jwks: failed to decode EC y coordinate: %w", err)
	}

	return &ecdsa.PublicKey{
		Curve: curve,
		X:     new(big.Int).SetBytes(xBytes),
		Y:     new(big.Int).SetBytes(yBytes),
	}, nil
}
