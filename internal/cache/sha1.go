package cache

import (
	"crypto/sha1" //nolint:gosec // matches redis.sha1hex() used server-side in the claim/confirm scripts, not for security
	"encoding/hex"
)

// sha1Hex mirrors the digest Redis computes server-side via redis.sha1hex()
// inside the claim/confirm Lua scripts, so client code can address the same
// per-member claim lock key without round-tripping through a script.
func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
