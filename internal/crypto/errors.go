package crypto

import "errors"

var (
	// ErrKeyGeneration is returned when the platform RNG cannot supply
	// key material.
	ErrKeyGeneration = errors.New("key generation failed")

	// ErrInvalidPublicKeySize is returned when the public key size is invalid.
	ErrInvalidPublicKeySize = errors.New("invalid public key size")

	// ErrInvalidSecretKeySize is returned when the secret key size is invalid.
	ErrInvalidSecretKeySize = errors.New("invalid secret key size")

	// ErrInvalidPublicKey is returned when a public key is a low-order or
	// all-zero point unusable for key agreement.
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrInvalidSecretKey is returned when a secret key is unusable for
	// key agreement.
	ErrInvalidSecretKey = errors.New("invalid secret key")

	// ErrInvalidKeySize is returned when the AES key size is invalid.
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrInvalidNonceSize is returned when the nonce size is invalid.
	ErrInvalidNonceSize = errors.New("invalid nonce size")

	// ErrInvalidWrappedKeySize is returned when the wrapped key size is invalid.
	ErrInvalidWrappedKeySize = errors.New("invalid wrapped key size")

	// ErrDecryptionFailed is returned when unwrapping or AEAD decryption
	// fails: wrong key, tampered ciphertext, or malformed inputs.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrEmptyPlaintext is returned when encrypting an empty payload.
	ErrEmptyPlaintext = errors.New("empty plaintext")

	// ErrPlaintextTooLarge is returned when a payload exceeds MaxPlaintextSize.
	ErrPlaintextTooLarge = errors.New("plaintext too large")
)
