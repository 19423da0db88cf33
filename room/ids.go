package room

import "crypto/rand"

const (
	idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	idLength   = 7
)

// newID returns a short random lowercase-alphanumeric identifier. Uniqueness
// is the caller's job (retry against its own registry).
func newID() string {
	buf := make([]byte, idLength)
	rand.Read(buf)
	for i, b := range buf {
		buf[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(buf)
}
