// Package auth implements API key hashing and verification.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// HashKey returns the hex SHA-256 digest of an API key. Config stores
// digests, so a leaked config file does not leak the key itself.
func HashKey(key string) string {
	key = strings.TrimSpace(key)

	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// Verify reports whether the presented key matches the stored digest.
// The comparison is constant time.
func Verify(presented, storedHash string) bool {
	sum := HashKey(presented)
	return subtle.ConstantTimeCompare([]byte(sum), []byte(storedHash)) == 1
}
