package crypto

import "github.com/cloudflare/circl/dh/x25519"

const (
	// HKDFContext is the context string used in HKDF key derivation
	// for domain separation.
	HKDFContext = "sealpost:dm:v1"

	// KeySize is the size of an X25519 public or secret key in bytes.
	KeySize = x25519.Size

	// CEKSize is the size of a per-message content-encryption key in bytes.
	CEKSize = 32

	// AESKeySize is the size of an AES-256 key in bytes.
	AESKeySize = 32
	// AESNonceSize is the size of an AES-GCM nonce in bytes.
	AESNonceSize = 12
	// AESTagSize is the size of an AES-GCM authentication tag in bytes.
	AESTagSize = 16

	// WrappedKeySize is the size of a wrapped content key:
	// ephemeral public key || wrap nonce || sealed CEK with tag.
	WrappedKeySize = KeySize + AESNonceSize + CEKSize + AESTagSize

	// MaxPlaintextSize bounds a single message payload (16 MiB).
	MaxPlaintextSize = 16 << 20
)

// AlgsCiphersuite is the canonical string representation of the algorithm suite.
var AlgsCiphersuite = "X25519:AES-256-GCM:HKDF-SHA-512"
