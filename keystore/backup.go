package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"

	perrors "github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"

	"github.com/xtaci/wsh/crypto"
	"github.com/xtaci/wsh/wire"
)

const (
	pbkdf2Iterations = 310000
	saltSize         = 16
	keySize          = 32 // AES-256
)

// Backup encrypts every exportable key's PKCS8 private-key material under a
// passphrase-derived AES-256-GCM key and returns a self-contained blob:
// salt || nonce || ciphertext. Keys generated with extractable=false are
// skipped; if none remain, Backup reports ErrNoExportableKeys rather than
// producing an empty-but-valid backup that would look like success.
func (s *Store) Backup(passphrase string) ([]byte, error) {
	s.mu.RLock()
	type namedKey struct {
		name string
		der  []byte
	}
	var exportable []namedKey
	for name, e := range s.keys {
		der, err := e.pair.ExportPKCS8()
		if err != nil {
			continue
		}
		exportable = append(exportable, namedKey{name: name, der: der})
	}
	s.mu.RUnlock()

	if len(exportable) == 0 {
		return nil, ErrNoExportableKeys
	}

	entries := make([]interface{}, len(exportable))
	for i, nk := range exportable {
		entries[i] = wire.Map{"name": nk.name, "pkcs8": nk.der}
	}
	plaintext, err := wire.Encode(nil, wire.Map{"keys": entries})
	if err != nil {
		return nil, perrors.Wrap(err, "keystore: encode backup payload")
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, perrors.Wrap(err, "keystore: generate salt")
	}
	key := pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, keySize, sha256.New)

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, perrors.Wrap(err, "keystore: generate nonce")
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	blob := make([]byte, 0, len(salt)+len(nonce)+len(ciphertext))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, ciphertext...)
	return blob, nil
}

// Restore decrypts a blob produced by Backup and installs every key it
// contains under its original name, skipping (not aborting on) names that
// already exist in the store. It returns the count of keys actually
// installed and the count skipped as duplicates.
func (s *Store) Restore(blob []byte, passphrase string) (restored, skipped int, err error) {
	if len(blob) < saltSize {
		return 0, 0, ErrDecryptionFailed
	}
	salt := blob[:saltSize]
	rest := blob[saltSize:]

	key := pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, keySize, sha256.New)
	gcm, err := newGCM(key)
	if err != nil {
		return 0, 0, err
	}
	if len(rest) < gcm.NonceSize() {
		return 0, 0, ErrDecryptionFailed
	}
	nonce := rest[:gcm.NonceSize()]
	ciphertext := rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return 0, 0, ErrDecryptionFailed
	}

	v, _, err := wire.Decode(plaintext)
	if err != nil {
		return 0, 0, perrors.Wrap(err, "keystore: decode backup payload")
	}
	m, ok := v.(wire.Map)
	if !ok {
		return 0, 0, perrors.New("keystore: backup payload is not a map")
	}
	rawEntries, _ := m["keys"].(wire.Array)

	for _, raw := range rawEntries {
		em, ok := raw.(wire.Map)
		if !ok {
			continue
		}
		name, _ := em["name"].(string)
		der, _ := em["pkcs8"].([]byte)
		if name == "" || der == nil {
			continue
		}
		kp, ierr := crypto.ImportPKCS8(der)
		if ierr != nil {
			continue
		}
		kp.Exportable = true
		if perr := s.put(name, kp); perr != nil {
			if _, dup := perr.(*DuplicateName); dup {
				skipped++
			}
			continue
		}
		restored++
	}
	return restored, skipped, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, perrors.Wrap(err, "keystore: new aes cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, perrors.Wrap(err, "keystore: new gcm")
	}
	return gcm, nil
}
