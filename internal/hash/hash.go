// Package hash implements the Hasher component (spec §4.1): a deterministic
// content fingerprint used for chunk-content hashes and future cache keys.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest returns the 256-bit SHA-256 digest of content as lowercase hex.
// Pure function; no failure modes.
func Digest(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// DigestString is a convenience wrapper for string input.
func DigestString(content string) string {
	return Digest([]byte(content))
}
