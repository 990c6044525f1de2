// Package keystore manages named Ed25519 key pairs on the client: generate,
// look up, list, delete, export a public key, and encrypt/decrypt an
// at-rest backup blob of the private material.
package keystore

import (
	"fmt"
	"sort"
	"sync"

	"github.com/xtaci/wsh/crypto"
)

// DuplicateName is returned by Generate when name already exists; Restore
// does not return it but counts such names as skipped.
type DuplicateName struct{ Name string }

func (e *DuplicateName) Error() string { return fmt.Sprintf("keystore: duplicate name %q", e.Name) }

// NotFound is returned by Get/Delete/ExportPublicKey for an unknown name.
type NotFound struct{ Name string }

func (e *NotFound) Error() string { return fmt.Sprintf("keystore: not found: %q", e.Name) }

// ErrNoExportableKeys is returned by Backup when every key in the store was
// generated with extractable=false.
var ErrNoExportableKeys = fmt.Errorf("keystore: no exportable keys to back up")

// ErrDecryptionFailed is returned by Restore when the passphrase is wrong or
// the blob has been tampered with; AES-GCM's authentication tag catches
// both cases identically.
var ErrDecryptionFailed = fmt.Errorf("keystore: decryption failed (wrong passphrase or corrupted backup)")

// entry holds one stored key pair; its name is the Store map key.
type entry struct {
	pair *crypto.KeyPair
}

// Store is a concurrency-safe in-memory table of named key pairs.
type Store struct {
	mu   sync.RWMutex
	keys map[string]entry
}

// New returns an empty Store.
func New() *Store {
	return &Store{keys: make(map[string]entry)}
}

// Generate creates a new key pair under name. extractable controls whether
// the key can later be exported (raw/PKCS8) or included in a Backup.
func (s *Store) Generate(name string, extractable bool) (*crypto.KeyPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.keys[name]; exists {
		return nil, &DuplicateName{Name: name}
	}
	kp, err := crypto.GenerateKeyPair(extractable)
	if err != nil {
		return nil, err
	}
	s.keys[name] = entry{pair: kp}
	return kp, nil
}

// Get returns the key pair stored under name.
func (s *Store) Get(name string) (*crypto.KeyPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.keys[name]
	if !ok {
		return nil, &NotFound{Name: name}
	}
	return e.pair, nil
}

// List returns every stored key's name in sorted order.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.keys))
	for name := range s.keys {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Delete removes the key pair stored under name.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[name]; !ok {
		return &NotFound{Name: name}
	}
	delete(s.keys, name)
	return nil
}

// ExportPublicKey renders the public half of the named key pair in the
// standard external "ssh-ed25519 base64(...)" format. Unlike private-key
// export, this never requires Exportable: revealing a public key carries no
// confidentiality risk.
func (s *Store) ExportPublicKey(name string) (string, error) {
	kp, err := s.Get(name)
	if err != nil {
		return "", err
	}
	return crypto.ExportPublicKeySSH(kp.Public)
}

// put installs an already-constructed key pair under name, used by Restore.
// Unlike Generate, a duplicate name is reported but does not abort a whole
// restore pass; the caller decides whether to treat it as fatal.
func (s *Store) put(name string, kp *crypto.KeyPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.keys[name]; exists {
		return &DuplicateName{Name: name}
	}
	s.keys[name] = entry{pair: kp}
	return nil
}
