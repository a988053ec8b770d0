package keys

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hashed returns prefix + ":" + the first 16 hex chars of sha256 over parts.
// Used for keys built from free-form input (search queries) so their length
// and charset stay bounded.
func Hashed(prefix string, parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return prefix + ":" + hex.EncodeToString(sum[:8])
}
