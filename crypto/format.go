package crypto

import (
	"crypto/ed25519"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

// sshKeyType is the algorithm tag used in both the wire encoding and the
// ASCII-armored line of the standard external public-key format.
const sshKeyType = "ssh-ed25519"

// ExportPublicKeySSH renders raw as the standard external public-key
// format: an ASCII line "ssh-ed25519 base64(wire)". golang.org/x/crypto/ssh
// already implements the exact length-prefixed wire shape (algorithm name,
// then raw key, each u32-length-prefixed), so this is a thin call into
// ssh.NewPublicKey + ssh.MarshalAuthorizedKey rather than a hand-rolled
// marshaler.
func ExportPublicKeySSH(raw []byte) (string, error) {
	pub, err := ImportRaw(raw)
	if err != nil {
		return "", err
	}
	sshPub, err := ssh.NewPublicKey(pub.Public)
	if err != nil {
		return "", errors.Wrap(err, "crypto: wrap ed25519 key for ssh marshaling")
	}
	// MarshalAuthorizedKey appends a trailing newline and emits "type
	// base64"; trim the newline since callers treat the result as a single
	// line, not a file.
	line := ssh.MarshalAuthorizedKey(sshPub)
	return trimTrailingNewline(line), nil
}

// ParsePublicKeySSH parses the standard external format back into a raw
// 32-byte Ed25519 public key.
func ParsePublicKeySSH(line string) ([]byte, error) {
	pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(line))
	if err != nil {
		return nil, errors.Wrap(err, "crypto: parse ssh public key")
	}
	if pub.Type() != sshKeyType {
		return nil, errors.Errorf("crypto: unexpected key type %q", pub.Type())
	}
	cryptoKey, ok := pub.(ssh.CryptoPublicKey)
	if !ok {
		return nil, errors.New("crypto: key does not expose a crypto.PublicKey")
	}
	edPub, ok := cryptoKey.CryptoPublicKey().(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("crypto: underlying key is not ed25519")
	}
	return append([]byte(nil), edPub...), nil
}

func trimTrailingNewline(b []byte) string {
	if n := len(b); n > 0 && b[n-1] == '\n' {
		b = b[:n-1]
	}
	return string(b)
}
