// Package security holds API key verification and authentication throttling.
package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// KeyRing maps tenants to the SHA-256 digest of their API key. Raw keys are
// not retained after construction.
type KeyRing struct {
	digests map[string][sha256.Size]byte
}

// NewKeyRing builds a KeyRing from tenant → raw key pairs.
func NewKeyRing[K ~string](keys map[string]K) *KeyRing {
	digests := make(map[string][sha256.Size]byte, len(keys))
	for tenant, key := range keys {
		digests[tenant] = sha256.Sum256([]byte(key))
	}

	return &KeyRing{digests: digests}
}

// Verify reports whether apiKey is the key configured for tenantID. Unknown
// tenants still pay for a hash and a comparison.
func (r *KeyRing) Verify(tenantID, apiKey string) bool {
	got := sha256.Sum256([]byte(apiKey))

	want, ok := r.digests[tenantID]
	if !ok {
		var zero [sha256.Size]byte
		subtle.ConstantTimeCompare(got[:], zero[:])

		return false
	}

	return subtle.ConstantTimeCompare(got[:], want[:]) == 1
}

// Tenants returns the number of configured tenants.
func (r *KeyRing) Tenants() int { return len(r.digests) }

// Fingerprint returns a short, loggable identifier for apiKey.
func Fingerprint(apiKey string) string {
	h := sha256.Sum256([]byte(apiKey))

	return hex.EncodeToString(h[:8])
}
