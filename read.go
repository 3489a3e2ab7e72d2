package sealpost

import (
	"context"
	"fmt"

	"github.com/sealpost/messaging-go/internal/crypto"
)

// Read fetches and decrypts one message on demand. The plaintext is cached
// for the session, so repeated Reads of the same envelope hit the cache,
// and concurrent Reads of the same envelope share a single download and
// decryption.
//
// A decryption failure is terminal for the session: the envelope moves to
// StateFailed and Read returns the same *DecryptionError without retrying.
// Transport failures are not terminal; a later Read attempts the download
// again.
func (c *Client) Read(ctx context.Context, envelopeID string) (*Message, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	if envelopeID == "" {
		return nil, fmt.Errorf("envelope ID is required")
	}

	// Session cache first.
	c.mu.RLock()
	entry := c.sessions[envelopeID]
	c.mu.RUnlock()
	if entry != nil {
		switch entry.state {
		case StateDecrypted:
			return entry.msg, nil
		case StateFailed:
			return nil, entry.err
		}
	}

	v, err, _ := c.sf.Do(envelopeID, func() (interface{}, error) {
		return c.readEnvelope(ctx, envelopeID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Message), nil
}

// readEnvelope performs the download/decrypt for one envelope. It runs at
// most once concurrently per envelope ID (guarded by the single-flight
// group in Read).
func (c *Client) readEnvelope(ctx context.Context, envelopeID string) (*Message, error) {
	c.setSessionState(envelopeID, StateFetching)

	// Any exit that is not a cached terminal outcome resets the envelope
	// so a later Read can try again.
	terminal := false
	defer func() {
		if !terminal {
			c.clearSession(envelopeID)
		}
	}()

	kp, err := c.keypairForUse()
	if err != nil {
		return nil, err
	}

	env, err := c.lookupEnvelope(ctx, envelopeID)
	if err != nil {
		return nil, err
	}

	target, err := c.apiClient.RequestDownloadTarget(ctx, env.ObjectReference)
	if err != nil {
		return nil, wrapError(err)
	}
	ciphertext, err := c.apiClient.DownloadBlob(ctx, target.DownloadURL)
	if err != nil {
		return nil, wrapError(err)
	}

	// The envelope's wrapped key and nonce are authoritative; the download
	// target carries duplicates for clients that fetch by reference alone.
	wrappedKey, err := crypto.FromBase64URL(env.WrappedKey)
	if err != nil {
		terminal = true
		return nil, c.failSession(envelopeID, "unwrap", err)
	}
	nonce, err := crypto.FromBase64URL(env.Nonce)
	if err != nil {
		terminal = true
		return nil, c.failSession(envelopeID, "unwrap", err)
	}

	plaintext, err := c.provider.Decrypt(ciphertext, wrappedKey, nonce, kp.SecretKey)
	if err != nil {
		terminal = true
		return nil, c.failSession(envelopeID, "content", err)
	}

	msg := &Message{
		EnvelopeID: env.ID,
		PartnerID:  env.PartnerID(c.userID),
		CreatedAt:  env.CreatedAt,
		ReadAt:     env.ReadAt,
		Text:       string(plaintext),
		Direction:  DirectionIncoming,
	}
	if env.SenderID == c.userID {
		msg.Direction = DirectionOutgoing
	}

	// Mark read server-side, best effort. read_at is the only envelope
	// field that ever changes; a failure here is logged, not surfaced.
	if msg.Direction == DirectionIncoming && env.ReadAt == nil {
		if err := c.apiClient.MarkEnvelopeRead(ctx, env.ID); err != nil {
			c.log.WithError(err).WithField("envelope", env.ID).
				Debug("mark read failed")
		}
	}

	terminal = true
	c.mu.Lock()
	c.sessions[envelopeID] = &sessionEntry{state: StateDecrypted, msg: msg}
	c.mu.Unlock()
	return msg, nil
}

// lookupEnvelope finds envelope metadata by ID, refreshing the cache from
// the server on a miss.
func (c *Client) lookupEnvelope(ctx context.Context, envelopeID string) (*Envelope, error) {
	c.mu.RLock()
	env := c.envelopes[envelopeID]
	c.mu.RUnlock()
	if env != nil {
		return envelopeFromAPI(env), nil
	}

	envelopes, err := c.apiClient.ListEnvelopes(ctx, "")
	if err != nil {
		return nil, wrapError(err)
	}
	c.cacheEnvelopes(envelopes)

	c.mu.RLock()
	env = c.envelopes[envelopeID]
	c.mu.RUnlock()
	if env == nil {
		return nil, ErrEnvelopeNotFound
	}
	return envelopeFromAPI(env), nil
}

// MessageState returns the session decryption state for an envelope.
func (c *Client) MessageState(envelopeID string) MessageState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry := c.sessions[envelopeID]; entry != nil {
		return entry.state
	}
	return StateUnfetched
}

// Forget drops cached plaintext for a conversation, e.g. when the user
// navigates away. Forgotten envelopes return to StateUnfetched; a later
// Read downloads and decrypts again.
func (c *Client) Forget(partnerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, entry := range c.sessions {
		if entry.msg != nil && entry.msg.PartnerID == partnerID {
			delete(c.sessions, id)
		}
	}
}

func (c *Client) setSessionState(envelopeID string, state MessageState) {
	c.mu.Lock()
	c.sessions[envelopeID] = &sessionEntry{state: state}
	c.mu.Unlock()
}

func (c *Client) clearSession(envelopeID string) {
	c.mu.Lock()
	if entry := c.sessions[envelopeID]; entry != nil && entry.state == StateFetching {
		delete(c.sessions, envelopeID)
	}
	c.mu.Unlock()
}

// failSession records a terminal decryption failure and returns it.
func (c *Client) failSession(envelopeID, stage string, cause error) error {
	err := &DecryptionError{EnvelopeID: envelopeID, Stage: stage, Err: cause}
	c.mu.Lock()
	c.sessions[envelopeID] = &sessionEntry{state: StateFailed, err: err}
	c.mu.Unlock()
	return err
}
