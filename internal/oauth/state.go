package oauth

import (
	"crypto/rand"
	"crypto/subtle"
)

// newState returns an unguessable value for the authorization request's
// state parameter. rand.Text carries 128 bits of entropy.
func newState() string { return rand.Text() }

// validState reports whether the callback echoed the state we sent.
func validState(sent, received string) bool {
	return sent != "" && subtle.ConstantTimeCompare([]byte(sent), []byte(received)) == 1
}
