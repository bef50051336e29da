package utils

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint returns the hex-encoded BLAKE2b-256 digest of the content.
// Submissions are keyed by this value, so identical content always maps to
// the same fingerprint.
func Fingerprint(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}
