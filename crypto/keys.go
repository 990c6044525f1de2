// Package crypto implements the Ed25519 key management, signing and
// transcript-hashing primitives: key generation, raw/SSH-wire/PKCS8 export,
// signing, verification, fingerprinting and nonce generation.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"

	"github.com/pkg/errors"
)

// KeyPair is an Ed25519 key handle. A non-exportable pair still signs and
// verifies; it simply refuses ExportRaw and ExportPKCS8, a WebCrypto-style
// "extractable" flag for keys that should never leave the process in
// plaintext once loaded.
type KeyPair struct {
	Public     ed25519.PublicKey
	private    ed25519.PrivateKey
	Exportable bool
}

// ErrNotExportable is returned by any export operation on a non-exportable
// KeyPair.
var ErrNotExportable = errors.New("crypto: key is not exportable")

// GenerateKeyPair creates a new Ed25519 key pair. extractable controls
// whether raw and PKCS8 export is later permitted.
func GenerateKeyPair(extractable bool) (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "crypto: generate ed25519 key")
	}
	return &KeyPair{Public: pub, private: priv, Exportable: extractable}, nil
}

// Sign produces an Ed25519 signature over message. Signing never requires
// export, so it is permitted regardless of Exportable.
func (k *KeyPair) Sign(message []byte) []byte {
	return ed25519.Sign(k.private, message)
}

// Verify checks an Ed25519 signature against a raw 32-byte public key.
func Verify(pub, message, signature []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), message, signature)
}

// ExportRaw returns the 32-byte raw public key.
func (k *KeyPair) ExportRaw() ([]byte, error) {
	if !k.Exportable {
		return nil, ErrNotExportable
	}
	return append([]byte(nil), k.Public...), nil
}

// ImportRaw reconstructs a public-key-only KeyPair from 32 raw bytes, used
// to hold a peer's verification key (it carries no private half).
func ImportRaw(raw []byte) (*KeyPair, error) {
	if len(raw) != ed25519.PublicKeySize {
		return nil, errors.Errorf("crypto: raw public key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	return &KeyPair{Public: append(ed25519.PublicKey(nil), raw...)}, nil
}

// ExportPKCS8 returns the PKCS8 DER encoding of the private key.
func (k *KeyPair) ExportPKCS8() ([]byte, error) {
	if !k.Exportable {
		return nil, ErrNotExportable
	}
	der, err := x509.MarshalPKCS8PrivateKey(k.private)
	if err != nil {
		return nil, errors.Wrap(err, "crypto: marshal pkcs8")
	}
	return der, nil
}

// ImportPKCS8 reconstructs a KeyPair (non-exportable by default) from a
// PKCS8 DER blob.
func ImportPKCS8(der []byte) (*KeyPair, error) {
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, errors.Wrap(err, "crypto: parse pkcs8")
	}
	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("crypto: pkcs8 key is not ed25519")
	}
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("crypto: could not derive ed25519 public key")
	}
	return &KeyPair{Public: pub, private: priv, Exportable: false}, nil
}
