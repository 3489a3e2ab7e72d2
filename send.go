package sealpost

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sealpost/messaging-go/internal/api"
	"github.com/sealpost/messaging-go/internal/crypto"
)

// Send encrypts plaintext for the recipient and delivers it. The steps run
// strictly in order: directory lookup, encryption, ciphertext upload,
// envelope submission. A failed lookup means nothing was encrypted or
// uploaded; a failed upload or submission returns a *DeliveryError and
// leaves at most an orphaned ciphertext blob the server garbage-collects.
//
// Send never retries. To resend, call Send again: the new attempt uses a
// fresh content key, nonce and object reference.
//
// Returns the envelope ID assigned by the server.
func (c *Client) Send(ctx context.Context, recipientID string, plaintext []byte) (string, error) {
	if err := c.checkClosed(); err != nil {
		return "", err
	}
	if recipientID == "" {
		return "", fmt.Errorf("recipient ID is required")
	}

	// Sending requires an enrolled identity even though encryption only
	// uses the recipient's key: unenrolled users cannot appear as senders.
	if _, err := c.keypairForUse(); err != nil {
		return "", err
	}

	// 1. Directory lookup. Failure here must leave zero side effects.
	record, err := c.apiClient.GetPublicKey(ctx, recipientID)
	if err != nil {
		return "", wrapError(err)
	}
	recipientPub, err := crypto.FromBase64URL(record.PublicKey)
	if err != nil {
		return "", fmt.Errorf("%w: malformed directory key for %s", ErrRecipientKeyUnavailable, recipientID)
	}

	// 2. Encrypt with a fresh content key.
	ciphertext, wrappedKey, nonce, err := c.provider.Encrypt(plaintext, recipientPub)
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}

	// 3. Upload the ciphertext to the relay.
	target, err := c.apiClient.RequestUploadTarget(ctx)
	if err != nil {
		return "", &DeliveryError{Stage: "target", Err: wrapError(err)}
	}
	if err := c.apiClient.UploadBlob(ctx, target.UploadURL, ciphertext); err != nil {
		return "", &DeliveryError{Stage: "upload", Err: wrapError(err)}
	}

	// 4. Submit the envelope.
	envelopeID, err := c.apiClient.SubmitEnvelope(ctx, &api.EnvelopeSubmission{
		RecipientID:     recipientID,
		ObjectReference: target.ObjectReference,
		WrappedKey:      crypto.ToBase64URL(wrappedKey),
		Nonce:           crypto.ToBase64URL(nonce),
		AttemptID:       uuid.NewString(),
	})
	if err != nil {
		return "", &DeliveryError{Stage: "submit", Err: wrapError(err)}
	}

	c.log.WithField("envelope", envelopeID).WithField("recipient", recipientID).
		Debug("message sent")
	return envelopeID, nil
}
