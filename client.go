package sealpost

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/sealpost/messaging-go/internal/api"
	"github.com/sealpost/messaging-go/internal/crypto"
	"github.com/sealpost/messaging-go/internal/delivery"
	"github.com/sealpost/messaging-go/internal/keystore"
)

// arrivalTimeout bounds fetching and decrypting a message after an
// arrival notification.
const arrivalTimeout = 30 * time.Second

// CryptoProvider is the encryption engine behind the client. The default
// provider implements X25519 key agreement with AES-256-GCM content
// encryption; replacing it swaps the algorithm suite without touching the
// coordination logic.
type CryptoProvider interface {
	// GenerateKeyPair creates a fresh identity keypair.
	GenerateKeyPair() (publicKey, secretKey []byte, err error)

	// Encrypt seals plaintext for the holder of recipientPublicKey using a
	// fresh content key. It returns the ciphertext, the wrapped content
	// key and the content nonce.
	Encrypt(plaintext, recipientPublicKey []byte) (ciphertext, wrappedKey, nonce []byte, err error)

	// Decrypt reverses Encrypt using the local secret key.
	Decrypt(ciphertext, wrappedKey, nonce, secretKey []byte) ([]byte, error)
}

// defaultCrypto adapts the built-in engine to the CryptoProvider interface.
type defaultCrypto struct {
	engine crypto.Engine
}

func (d defaultCrypto) GenerateKeyPair() ([]byte, []byte, error) {
	kp, err := d.engine.GenerateKeyPair()
	if err != nil {
		return nil, nil, err
	}
	return kp.PublicKey, kp.SecretKey, nil
}

func (d defaultCrypto) Encrypt(plaintext, recipientPublicKey []byte) ([]byte, []byte, []byte, error) {
	sealed, err := d.engine.Encrypt(plaintext, recipientPublicKey)
	if err != nil {
		return nil, nil, nil, err
	}
	return sealed.Ciphertext, sealed.WrappedKey, sealed.Nonce, nil
}

func (d defaultCrypto) Decrypt(ciphertext, wrappedKey, nonce, secretKey []byte) ([]byte, error) {
	return d.engine.Decrypt(ciphertext, wrappedKey, nonce, secretKey)
}

// sessionEntry tracks the decryption lifecycle of one envelope within this
// session. Once a decryption fails the failure is terminal: the entry keeps
// the error and the envelope is never retried.
type sessionEntry struct {
	state MessageState
	msg   *Message
	err   error
}

// Client coordinates the local identity, the encryption engine and the
// server collaborators into a conversation API.
type Client struct {
	userID    string
	apiClient *api.Client
	keys      *keystore.Store
	provider  CryptoProvider
	strategy  delivery.Strategy
	log       logrus.FieldLogger
	timeout   time.Duration

	mu        sync.RWMutex
	keypair   *crypto.KeyPair
	sessions  map[string]*sessionEntry // keyed by envelope ID
	envelopes map[string]*api.Envelope // envelope metadata cache
	seen      map[string]struct{}      // envelope IDs already announced to watchers
	closed    bool

	// single-flight group deduplicating concurrent Read calls per envelope
	sf singleflight.Group

	// Subscription manager for message notifications
	subs *subscriptionManager

	strategyCtx    context.Context
	strategyCancel context.CancelFunc
}

// defaultKeyDir returns the per-user identity key directory.
func defaultKeyDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "sealpost")
	}
	return ".sealpost"
}

// buildAPIClient creates and configures an API client from the given config.
func buildAPIClient(token string, cfg *clientConfig) (*api.Client, error) {
	apiOpts := []api.Option{}
	if cfg.baseURL != "" {
		apiOpts = append(apiOpts, api.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		apiOpts = append(apiOpts, api.WithTimeout(cfg.timeout))
	}

	apiClient, err := api.New(token, apiOpts...)
	if err != nil {
		return nil, err
	}

	if cfg.httpClient != nil {
		apiClient.SetHTTPClient(cfg.httpClient)
	}

	return apiClient, nil
}

// createDeliveryStrategy creates a delivery strategy based on the config.
func createDeliveryStrategy(cfg *clientConfig, apiClient *api.Client, log logrus.FieldLogger) delivery.Strategy {
	deliveryCfg := delivery.Config{
		APIClient:                apiClient,
		Logger:                   log,
		PollingInitialInterval:   cfg.pollingInitialInterval,
		PollingMaxBackoff:        cfg.pollingMaxBackoff,
		PollingBackoffMultiplier: cfg.pollingBackoffMultiplier,
		PollingJitterFactor:      cfg.pollingJitterFactor,
		SSEConnectionTimeout:     cfg.sseConnectionTimeout,
	}
	switch cfg.deliveryStrategy {
	case StrategyPolling:
		return delivery.NewPollingStrategy(deliveryCfg)
	case StrategySSE:
		return delivery.NewSSEStrategy(deliveryCfg)
	default:
		return delivery.NewAutoStrategy(deliveryCfg)
	}
}

// New creates a new SealPost client for the given user.
//
// If an identity key already exists in the key directory it is loaded;
// otherwise the client starts without an identity and Enroll must be
// called before sending or reading messages.
func New(userID, token string, opts ...Option) (*Client, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	if token == "" {
		return nil, ErrMissingToken
	}

	cfg := &clientConfig{
		deliveryStrategy: StrategyAuto,
		timeout:          defaultWaitTimeout,
		keyDir:           defaultKeyDir(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	log := cfg.logger
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	log = log.WithField("user", userID)

	apiClient, err := buildAPIClient(token, cfg)
	if err != nil {
		return nil, err
	}

	keys, err := keystore.New(cfg.keyDir)
	if err != nil {
		return nil, &KeyStoreError{Op: "open", Err: err}
	}

	provider := cfg.provider
	if provider == nil {
		provider = defaultCrypto{}
	}

	strategy := createDeliveryStrategy(cfg, apiClient, log)
	strategyCtx, strategyCancel := context.WithCancel(context.Background())

	c := &Client{
		userID:         userID,
		apiClient:      apiClient,
		keys:           keys,
		provider:       provider,
		strategy:       strategy,
		log:            log,
		timeout:        cfg.timeout,
		sessions:       make(map[string]*sessionEntry),
		envelopes:      make(map[string]*api.Envelope),
		seen:           make(map[string]struct{}),
		subs:           newSubscriptionManager(),
		strategyCtx:    strategyCtx,
		strategyCancel: strategyCancel,
	}

	// Load an existing identity if one is present. A corrupt key file is
	// an error; a missing one just means the user has not enrolled yet.
	if keys.Has() {
		kp, err := keys.Load()
		if err != nil {
			strategyCancel()
			return nil, &KeyStoreError{Op: "load", Err: err}
		}
		c.keypair = kp
	}

	// Start the strategy with an event handler
	if err := strategy.Start(strategyCtx, c.handleArrival); err != nil {
		strategyCancel()
		return nil, &StrategyError{Message: "start delivery strategy", Err: err}
	}

	// Sync envelopes after each reconnection to catch arrivals that
	// happened during the reconnection window.
	strategy.OnReconnect(c.syncEnvelopes)

	return c, nil
}

// UserID returns the local user ID.
func (c *Client) UserID() string {
	return c.userID
}

// Enrolled reports whether a local identity key exists.
func (c *Client) Enrolled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.keypair != nil
}

// Enroll ensures the user has an identity: it generates and persists a
// keypair if none exists and registers the public key with the directory.
// Calling Enroll on every start is safe; registration is idempotent.
//
// Re-enrolling after the key file was discarded starts a new key epoch:
// messages encrypted to the previous public key are permanently
// undecryptable.
func (c *Client) Enroll(ctx context.Context) error {
	if err := c.checkClosed(); err != nil {
		return err
	}

	c.mu.Lock()
	kp := c.keypair
	c.mu.Unlock()

	if kp == nil {
		pub, sec, err := c.provider.GenerateKeyPair()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrKeyGeneration, err)
		}
		kp = &crypto.KeyPair{
			PublicKey:    pub,
			SecretKey:    sec,
			PublicKeyB64: crypto.ToBase64URL(pub),
		}
		if _, err := c.keys.Persist(kp); err != nil {
			return &KeyStoreError{Op: "persist", Err: err}
		}
		c.mu.Lock()
		c.keypair = kp
		c.mu.Unlock()
	}

	if err := c.apiClient.RegisterPublicKey(ctx, kp.PublicKeyB64); err != nil {
		return wrapError(err)
	}
	return nil
}

// checkClosed returns ErrClientClosed if the client has been closed.
func (c *Client) checkClosed() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	return nil
}

// keypairForUse returns the loaded identity keypair or ErrNotEnrolled.
func (c *Client) keypairForUse() (*crypto.KeyPair, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClientClosed
	}
	if c.keypair == nil {
		return nil, ErrNotEnrolled
	}
	return c.keypair, nil
}

// cacheEnvelopes records envelope metadata for later Read calls.
func (c *Client) cacheEnvelopes(envelopes []api.Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range envelopes {
		env := envelopes[i]
		c.envelopes[env.ID] = &env
	}
}

// forgetSeen drops an envelope from the announced set so a later sync can
// replay it.
func (c *Client) forgetSeen(envelopeID string) {
	c.mu.Lock()
	delete(c.seen, envelopeID)
	c.mu.Unlock()
}

// handleArrival processes arrival events from the delivery strategy:
// it locates the envelope, decrypts the message and notifies watchers.
func (c *Client) handleArrival(event *api.ArrivalEvent) error {
	if event == nil {
		return nil
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	if _, dup := c.seen[event.EnvelopeID]; dup {
		c.mu.Unlock()
		return nil
	}
	c.seen[event.EnvelopeID] = struct{}{}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(c.strategyCtx, arrivalTimeout)
	defer cancel()

	// The event names the envelope but does not carry it; list the
	// sender's conversation to pick up the metadata.
	envelopes, err := c.apiClient.ListEnvelopes(ctx, event.SenderID)
	if err != nil {
		c.forgetSeen(event.EnvelopeID)
		c.log.WithError(err).WithField("envelope", event.EnvelopeID).
			Warn("arrival: list envelopes failed")
		return wrapError(err)
	}
	c.cacheEnvelopes(envelopes)

	msg, err := c.Read(ctx, event.EnvelopeID)
	if err != nil {
		// Decryption failures are terminal for the session; anything else
		// (a transport hiccup) may be replayed by a later reconnect sync.
		if c.MessageState(event.EnvelopeID) != StateFailed {
			c.forgetSeen(event.EnvelopeID)
		}
		c.log.WithError(err).WithField("envelope", event.EnvelopeID).
			Warn("arrival: read failed")
		return err
	}

	c.subs.notify(msg.PartnerID, msg)
	return nil
}

// syncEnvelopes lists all envelopes and replays unseen incoming ones
// through the arrival path. Called after SSE reconnection.
func (c *Client) syncEnvelopes(ctx context.Context) {
	if err := c.checkClosed(); err != nil {
		return
	}

	envelopes, err := c.apiClient.ListEnvelopes(ctx, "")
	if err != nil {
		c.log.WithError(err).Debug("sync: list envelopes failed")
		return
	}
	c.cacheEnvelopes(envelopes)

	for i := range envelopes {
		env := &envelopes[i]
		if env.SenderID == c.userID {
			continue
		}
		c.mu.RLock()
		_, dup := c.seen[env.ID]
		c.mu.RUnlock()
		if dup {
			continue
		}
		c.handleArrival(&api.ArrivalEvent{
			SenderID:   env.SenderID,
			EnvelopeID: env.ID,
		})
	}
}

// Close closes the client and releases resources. The session plaintext
// cache is dropped; the identity key file is untouched.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.strategyCancel != nil {
		c.strategyCancel()
	}
	if c.strategy != nil {
		if err := c.strategy.Stop(); err != nil {
			return err
		}
	}

	c.sessions = make(map[string]*sessionEntry)
	c.envelopes = make(map[string]*api.Envelope)
	c.subs.clear()

	return nil
}
