package crypto

import (
	"crypto/rand"

	"github.com/pkg/errors"
)

// NonceSize is the length in bytes of a server challenge nonce.
const NonceSize = 32

// GenerateNonce returns NonceSize cryptographically secure random bytes.
func GenerateNonce() ([]byte, error) {
	buf := make([]byte, NonceSize)
	if _, err := rand.Read(buf); err != nil {
		return nil, errors.Wrap(err, "crypto: generate nonce")
	}
	return buf, nil
}
