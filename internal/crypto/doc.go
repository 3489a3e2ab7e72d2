// Package crypto implements the cryptographic core of the SealPost protocol.
// It covers keypair generation, per-message content encryption, and
// asymmetric key wrapping. The package performs no I/O; persistence and
// transport are handled by the keystore and api packages.
//
// # Algorithm Suite
//
//   - X25519 (RFC 7748): elliptic-curve Diffie-Hellman key agreement used to
//     wrap per-message content keys to a recipient's public key.
//
//   - AES-256-GCM: authenticated encryption (AEAD) for both message content
//     and the wrapped content key. Provides confidentiality and tamper
//     detection in one primitive.
//
//   - HKDF-SHA-512 (RFC 5869): derives the wrap key from the X25519 shared
//     secret with domain separation.
//
// # Message Format
//
// Every message is encrypted under a fresh random 32-byte content-encryption
// key (CEK) and a fresh random 12-byte nonce. The CEK is then wrapped to the
// recipient:
//
//	wrappedKey = ephPub(32) || wrapNonce(12) || AES-256-GCM(wrapKey, wrapNonce, CEK)
//	wrapKey    = HKDF-SHA-512(X25519(ephSecret, recipientPub),
//	                          salt=SHA-256(ephPub || recipientPub),
//	                          info="sealpost:dm:v1")
//
// None of {ciphertext, wrappedKey, nonce} is useful without the recipient's
// secret key.
//
// # Critical Security Notes
//
// AES-GCM nonces MUST be unique per key. Both the content nonce and the wrap
// nonce are drawn from crypto/rand, and every message uses a fresh CEK and a
// fresh ephemeral X25519 keypair, so nonce reuse under a repeated key cannot
// occur by construction.
//
// Secret keys must never be logged, transmitted, or stored outside the
// device-local keystore.
package crypto
