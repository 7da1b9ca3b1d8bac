package checksum

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Matches reports whether digest is the Sum of secret, in constant time.
func Matches(digest, secret string) bool {
	want := Sum([]byte(secret))
	return subtle.ConstantTimeCompare([]byte(digest), []byte(want)) == 1
}
