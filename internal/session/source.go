package session

import (
	"crypto/rand"
	"math/big"
)

// Source produces the random identifiers used by the handshake.
type Source struct{}

func (s Source) randString(n int) string {
	const letters = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-"

	ret := make([]byte, n)
	for i := range n {
		num, _ := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		ret[i] = letters[num.Int64()]
	}

	return string(ret)
}

// State returns a fresh unguessable state value for one handshake attempt.
func (s Source) State() string {
	return s.randString(64)
}

func (s Source) SessionID() string {
	return s.randString(32) // Entropy E = L * log2(63) = 32 * log2(63) = 191.3 bits
}
