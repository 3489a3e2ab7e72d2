package crypto

import (
	"fmt"

	"github.com/cloudflare/circl/dh/x25519"
)

// Decrypt reverses Encrypt using the recipient's secret key.
//
// It is a pure function of its inputs: identical arguments always produce
// the identical plaintext. Any tampering with ciphertext, wrappedKey, or
// nonce, and any key mismatch, fails with an error matching
// ErrDecryptionFailed.
func Decrypt(ciphertext, wrappedKey, nonce, secretKey []byte) ([]byte, error) {
	if len(secretKey) != KeySize {
		return nil, ErrInvalidSecretKeySize
	}
	if len(nonce) != AESNonceSize {
		return nil, fmt.Errorf("%w: malformed nonce length %d", ErrDecryptionFailed, len(nonce))
	}
	if len(wrappedKey) != WrappedKeySize {
		return nil, fmt.Errorf("%w: malformed wrapped key length %d", ErrDecryptionFailed, len(wrappedKey))
	}
	if len(ciphertext) < AESTagSize {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}

	cek, err := unwrapCEK(wrappedKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("unwrap content key: %w", err)
	}
	defer wipe(cek)

	plaintext, err := decryptAESGCM(cek, nonce, nil, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decrypt payload: %w", err)
	}

	return plaintext, nil
}

// unwrapCEK recovers the content-encryption key from a wrapped key blob.
func unwrapCEK(wrappedKey, secretKey []byte) ([]byte, error) {
	var secret, myPub, ephPub, shared x25519.Key
	copy(secret[:], secretKey)
	copy(ephPub[:], wrappedKey[:KeySize])
	x25519.KeyGen(&myPub, &secret)

	if !x25519.Shared(&shared, &secret, &ephPub) {
		return nil, fmt.Errorf("%w: degenerate ephemeral key", ErrDecryptionFailed)
	}
	defer wipe(shared[:])

	wrapKey, err := deriveWrapKey(shared[:], ephPub[:], myPub[:])
	if err != nil {
		return nil, err
	}
	defer wipe(wrapKey)

	wrapNonce := wrappedKey[KeySize : KeySize+AESNonceSize]
	sealed := wrappedKey[KeySize+AESNonceSize:]

	return decryptAESGCM(wrapKey, wrapNonce, nil, sealed)
}
