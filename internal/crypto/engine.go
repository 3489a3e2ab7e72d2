package crypto

// Engine is the default, stateless implementation of the coordinator's
// crypto provider. It exists so callers can inject a substitute (for
// example a deterministic provider in tests) without touching the
// package-level functions.
type Engine struct{}

// GenerateKeyPair creates a new X25519 keypair.
func (Engine) GenerateKeyPair() (*KeyPair, error) {
	return GenerateKeyPair()
}

// Encrypt encrypts plaintext to recipientPub.
func (Engine) Encrypt(plaintext, recipientPub []byte) (*SealedMessage, error) {
	return Encrypt(plaintext, recipientPub)
}

// Decrypt reverses Encrypt using the recipient's secret key.
func (Engine) Decrypt(ciphertext, wrappedKey, nonce, secretKey []byte) ([]byte, error) {
	return Decrypt(ciphertext, wrappedKey, nonce, secretKey)
}
