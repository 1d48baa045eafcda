package server

import (
	"crypto/sha256"
	"crypto/subtle"
)

// SecretEqual compares secrets by their SHA-256 digests so the comparison
// time does not depend on the length or content of either value.
func SecretEqual(got string, want string) bool {
	if want == "" {
		return false
	}
	g := sha256.Sum256([]byte(got))
	w := sha256.Sum256([]byte(want))
	return subtle.ConstantTimeCompare(g[:], w[:]) == 1
}
