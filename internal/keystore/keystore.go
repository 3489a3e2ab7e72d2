// Package keystore persists the device-local X25519 secret key.
//
// The secret key is written to a single file under a caller-chosen directory
// with 0600 permissions, using an atomic temp-file-plus-rename so a crash
// can never leave a partially written key. The package performs no network
// I/O; public-key directory registration is the caller's responsibility.
//
// Losing this file permanently forfeits the ability to decrypt messages
// encrypted against the matching public key. There is no recovery path.
package keystore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sealpost/messaging-go/internal/crypto"
)

// keyFileName is the secret key file inside the store directory.
const keyFileName = "identity.key"

var (
	// ErrKeyNotFound is returned by Load when no secret key has been
	// persisted on this device.
	ErrKeyNotFound = errors.New("no key material on this device")

	// ErrCorruptKeyFile is returned when the persisted key has the wrong size.
	ErrCorruptKeyFile = errors.New("corrupt key file")
)

// Store owns the on-disk location of the local keypair.
type Store struct {
	dir string
}

// New creates a store rooted at dir, creating the directory (0700) if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("keystore directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create keystore directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) keyPath() string {
	return filepath.Join(s.dir, keyFileName)
}

// Has reports whether a secret key exists in local persistent storage.
func (s *Store) Has() bool {
	info, err := os.Stat(s.keyPath())
	return err == nil && !info.IsDir()
}

// Generate creates a fresh keypair. Nothing is persisted; call Persist to
// commit it to disk.
func (s *Store) Generate() (*crypto.KeyPair, error) {
	return crypto.GenerateKeyPair()
}

// Persist writes the secret key to device-local storage and returns the
// serializable public key for directory registration. After a successful
// Persist, Has reports true.
func (s *Store) Persist(kp *crypto.KeyPair) ([]byte, error) {
	if !crypto.ValidateKeyPair(kp) {
		return nil, errors.New("refusing to persist malformed keypair")
	}

	// Atomic write: temp file in the same directory, then rename.
	tmp := s.keyPath() + ".tmp"
	if err := os.WriteFile(tmp, kp.SecretKey, 0o600); err != nil {
		return nil, fmt.Errorf("write key file: %w", err)
	}
	if err := os.Rename(tmp, s.keyPath()); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("commit key file: %w", err)
	}

	return append([]byte(nil), kp.PublicKey...), nil
}

// Load reads the persisted secret key and re-derives the public half.
// Returns ErrKeyNotFound when no key has been persisted.
func (s *Store) Load() (*crypto.KeyPair, error) {
	data, err := os.ReadFile(s.keyPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("read key file: %w", err)
	}

	if len(data) != crypto.KeySize {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrCorruptKeyFile, len(data), crypto.KeySize)
	}

	kp, err := crypto.FromSecretKey(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptKeyFile, err)
	}
	return kp, nil
}

// Discard removes the persisted key, ending the current key epoch. Messages
// wrapped to the discarded key become permanently undecryptable. The file is
// overwritten with zeros before removal (best effort).
func (s *Store) Discard() error {
	path := s.keyPath()
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat key file: %w", err)
	}

	zeros := make([]byte, info.Size())
	if err := os.WriteFile(path, zeros, 0o600); err != nil {
		return os.Remove(path)
	}
	return os.Remove(path)
}
