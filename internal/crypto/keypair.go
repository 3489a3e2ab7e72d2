package crypto

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/cloudflare/circl/dh/x25519"
)

// randReader is the random source used for key and nonce generation.
// It defaults to nil (which uses crypto/rand) but can be overridden for testing.
var randReader io.Reader

func randSource() io.Reader {
	if randReader != nil {
		return randReader
	}
	return rand.Reader
}

// KeyPair represents an X25519 keypair for key agreement.
type KeyPair struct {
	// PublicKey is the raw X25519 public key bytes.
	PublicKey []byte
	// SecretKey is the raw X25519 secret key bytes. Device-local; never
	// transmitted.
	SecretKey []byte
	// PublicKeyB64 is the public key encoded as URL-safe base64.
	PublicKeyB64 string
}

// GenerateKeyPair creates a new X25519 keypair from the platform RNG.
func GenerateKeyPair() (*KeyPair, error) {
	var secret, public x25519.Key
	if _, err := io.ReadFull(randSource(), secret[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}
	x25519.KeyGen(&public, &secret)

	return &KeyPair{
		PublicKey:    append([]byte(nil), public[:]...),
		SecretKey:    append([]byte(nil), secret[:]...),
		PublicKeyB64: ToBase64URL(public[:]),
	}, nil
}

// FromSecretKey reconstructs a keypair from the secret key by re-deriving
// the public half.
func FromSecretKey(secretKey []byte) (*KeyPair, error) {
	if len(secretKey) != KeySize {
		return nil, ErrInvalidSecretKeySize
	}
	if isZero(secretKey) {
		return nil, fmt.Errorf("%w: all-zero key material", ErrInvalidSecretKey)
	}

	var secret, public x25519.Key
	copy(secret[:], secretKey)
	x25519.KeyGen(&public, &secret)

	return &KeyPair{
		PublicKey:    append([]byte(nil), public[:]...),
		SecretKey:    append([]byte(nil), secretKey...),
		PublicKeyB64: ToBase64URL(public[:]),
	}, nil
}

// ValidateKeyPair reports whether a keypair has the correct structure, sizes,
// and a public key consistent with the secret key.
func ValidateKeyPair(kp *KeyPair) bool {
	if kp == nil {
		return false
	}
	if len(kp.PublicKey) != KeySize || len(kp.SecretKey) != KeySize || kp.PublicKeyB64 == "" {
		return false
	}

	decoded, err := FromBase64URL(kp.PublicKeyB64)
	if err != nil || !equalBytes(decoded, kp.PublicKey) {
		return false
	}

	var secret, public x25519.Key
	copy(secret[:], kp.SecretKey)
	x25519.KeyGen(&public, &secret)
	return equalBytes(public[:], kp.PublicKey)
}

// Wipe zeroes the secret key material in place.
func (kp *KeyPair) Wipe() {
	if kp == nil {
		return
	}
	wipe(kp.SecretKey)
}

func isZero(b []byte) bool {
	var acc byte
	for _, v := range b {
		acc |= v
	}
	return acc == 0
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
