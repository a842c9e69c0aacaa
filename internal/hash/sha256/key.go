// Package sha256 derives fixed-length keys for cache entries and blob paths.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex SHA-256 digest of s.
func Sum(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Key joins parts with a NUL separator, hashes them and prepends prefix, so
// ("a|b") and ("a", "b") never collide.
func Key(prefix string, parts ...string) string {
	return prefix + Sum(strings.Join(parts, "\x00"))
}
