package sealpost

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sealpost/messaging-go/internal/crypto"
)

// ExportVersion is the current identity export format version.
const ExportVersion = 1

// ExportedIdentity contains all data needed to restore an identity on
// another device.
// WARNING: this contains private key material - handle securely. The
// private key never leaves the device except via this explicit export.
//
// The public key is not included as it is derived from the secret key on
// import.
type ExportedIdentity struct {
	// Version is the export format version. MUST be 1.
	Version int `json:"version"`
	// UserID is the identity owner. Non-empty.
	UserID string `json:"userId"`
	// SecretKey is the X25519 secret key (base64url, 32 bytes decoded).
	SecretKey string `json:"secretKey"`
	// ExportedAt is the export timestamp. Informational only.
	ExportedAt time.Time `json:"exportedAt"`
}

// Validate checks that the exported data is well formed.
func (e *ExportedIdentity) Validate() error {
	if e.Version != ExportVersion {
		return fmt.Errorf("%w: unsupported version %d, expected %d", ErrInvalidImportData, e.Version, ExportVersion)
	}
	if e.UserID == "" {
		return fmt.Errorf("%w: userId is required", ErrInvalidImportData)
	}
	if e.SecretKey == "" {
		return fmt.Errorf("%w: secretKey is required", ErrInvalidImportData)
	}
	secretKey, err := crypto.FromBase64URL(e.SecretKey)
	if err != nil {
		return fmt.Errorf("%w: invalid secretKey encoding", ErrInvalidImportData)
	}
	if len(secretKey) != crypto.KeySize {
		return fmt.Errorf("%w: secretKey size %d, expected %d", ErrInvalidImportData, len(secretKey), crypto.KeySize)
	}
	return nil
}

// ExportIdentity returns the local identity in exportable form.
func (c *Client) ExportIdentity() (*ExportedIdentity, error) {
	kp, err := c.keypairForUse()
	if err != nil {
		return nil, err
	}
	return &ExportedIdentity{
		Version:    ExportVersion,
		UserID:     c.userID,
		SecretKey:  crypto.ToBase64URL(kp.SecretKey),
		ExportedAt: time.Now().UTC(),
	}, nil
}

// ImportIdentity restores an identity from exported data, persists it and
// registers the public key with the directory. It refuses to overwrite an
// existing local identity.
func (c *Client) ImportIdentity(ctx context.Context, data *ExportedIdentity) error {
	if err := c.checkClosed(); err != nil {
		return err
	}
	if data == nil {
		return fmt.Errorf("%w: exported identity is nil", ErrInvalidImportData)
	}
	if err := data.Validate(); err != nil {
		return err
	}
	if data.UserID != c.userID {
		return fmt.Errorf("%w: identity belongs to %q, client is %q", ErrInvalidImportData, data.UserID, c.userID)
	}

	c.mu.Lock()
	if c.keypair != nil {
		c.mu.Unlock()
		return ErrIdentityAlreadyExists
	}
	c.mu.Unlock()
	if c.keys.Has() {
		return ErrIdentityAlreadyExists
	}

	// Validate() already verified the encoding and size.
	secretKey, _ := crypto.FromBase64URL(data.SecretKey)
	kp, err := crypto.FromSecretKey(secretKey)
	if err != nil {
		return fmt.Errorf("%w: failed to reconstruct keypair: %v", ErrInvalidImportData, err)
	}

	if _, err := c.keys.Persist(kp); err != nil {
		return &KeyStoreError{Op: "persist", Err: err}
	}
	c.mu.Lock()
	c.keypair = kp
	c.mu.Unlock()

	if err := c.apiClient.RegisterPublicKey(ctx, kp.PublicKeyB64); err != nil {
		return wrapError(err)
	}
	return nil
}

// ExportIdentityToFile exports the identity to a JSON file with secure
// permissions (0600).
func (c *Client) ExportIdentityToFile(filePath string) error {
	data, err := c.ExportIdentity()
	if err != nil {
		return err
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal identity data: %w", err)
	}

	if err := os.WriteFile(filePath, jsonData, 0600); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	return nil
}

// ImportIdentityFromFile imports an identity from a JSON file.
func (c *Client) ImportIdentityFromFile(ctx context.Context, filePath string) error {
	if err := c.checkClosed(); err != nil {
		return err
	}

	jsonData, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	var data ExportedIdentity
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImportData, err)
	}

	return c.ImportIdentity(ctx, &data)
}

// DiscardIdentity removes the local identity key file. This starts a new
// key epoch on the next Enroll: messages encrypted to the discarded key
// become permanently undecryptable.
func (c *Client) DiscardIdentity() error {
	if err := c.checkClosed(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.keypair != nil {
		c.keypair.Wipe()
		c.keypair = nil
	}
	c.mu.Unlock()

	if err := c.keys.Discard(); err != nil {
		return &KeyStoreError{Op: "discard", Err: err}
	}
	return nil
}
