package crypto

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/cloudflare/circl/dh/x25519"
)

// SealedMessage is the result of encrypting one message payload. All three
// fields travel to the recipient; none is useful without the recipient's
// secret key.
type SealedMessage struct {
	// Ciphertext is the AES-256-GCM encrypted payload (tag included).
	Ciphertext []byte
	// WrappedKey is the content-encryption key wrapped to the recipient's
	// public key: ephPub || wrapNonce || sealed CEK.
	WrappedKey []byte
	// Nonce is the AES-GCM nonce for the content ciphertext. Unique per
	// message; drawn from the platform RNG.
	Nonce []byte
}

// Encrypt encrypts plaintext to recipientPub.
//
// A fresh content-encryption key and a fresh nonce are generated per call,
// and the key is wrapped under an ephemeral X25519 agreement with the
// recipient's public key. Repeated calls with identical inputs produce
// different outputs.
func Encrypt(plaintext, recipientPub []byte) (*SealedMessage, error) {
	if len(plaintext) == 0 {
		return nil, ErrEmptyPlaintext
	}
	if len(plaintext) > MaxPlaintextSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPlaintextTooLarge, len(plaintext), MaxPlaintextSize)
	}
	if len(recipientPub) != KeySize {
		return nil, ErrInvalidPublicKeySize
	}

	cek := make([]byte, CEKSize)
	if _, err := io.ReadFull(randSource(), cek); err != nil {
		return nil, fmt.Errorf("generate content key: %w", err)
	}
	defer wipe(cek)

	nonce := make([]byte, AESNonceSize)
	if _, err := io.ReadFull(randSource(), nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext, err := encryptAESGCM(cek, nonce, nil, plaintext)
	if err != nil {
		return nil, fmt.Errorf("encrypt payload: %w", err)
	}

	wrapped, err := wrapCEK(cek, recipientPub)
	if err != nil {
		return nil, fmt.Errorf("wrap content key: %w", err)
	}

	return &SealedMessage{
		Ciphertext: ciphertext,
		WrappedKey: wrapped,
		Nonce:      nonce,
	}, nil
}

// wrapCEK seals the content-encryption key to the recipient's public key
// using an ephemeral X25519 agreement.
func wrapCEK(cek, recipientPub []byte) ([]byte, error) {
	var ephSecret, ephPub, pub, shared x25519.Key
	copy(pub[:], recipientPub)

	if _, err := io.ReadFull(randSource(), ephSecret[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}
	defer wipe(ephSecret[:])
	x25519.KeyGen(&ephPub, &ephSecret)

	if !x25519.Shared(&shared, &ephSecret, &pub) {
		return nil, ErrInvalidPublicKey
	}
	defer wipe(shared[:])

	wrapKey, err := deriveWrapKey(shared[:], ephPub[:], recipientPub)
	if err != nil {
		return nil, err
	}
	defer wipe(wrapKey)

	wrapNonce := make([]byte, AESNonceSize)
	if _, err := io.ReadFull(randSource(), wrapNonce); err != nil {
		return nil, fmt.Errorf("generate wrap nonce: %w", err)
	}

	sealed, err := encryptAESGCM(wrapKey, wrapNonce, nil, cek)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, WrappedKeySize)
	out = append(out, ephPub[:]...)
	out = append(out, wrapNonce...)
	out = append(out, sealed...)
	return out, nil
}

// deriveWrapKey performs HKDF-SHA-512 key derivation for the key wrap.
// The salt binds the derivation to both parties' public keys.
func deriveWrapKey(shared, ephPub, recipientPub []byte) ([]byte, error) {
	h := sha256.New()
	h.Write(ephPub)
	h.Write(recipientPub)
	salt := h.Sum(nil)

	return DeriveKey(shared, salt, []byte(HKDFContext), AESKeySize)
}
