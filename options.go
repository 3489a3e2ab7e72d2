package sealpost

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// DeliveryStrategy specifies how the client learns about new envelopes.
type DeliveryStrategy string

const (
	// StrategyAuto tries SSE first, falls back to polling.
	StrategyAuto DeliveryStrategy = "auto"
	// StrategySSE uses Server-Sent Events for real-time push notifications.
	StrategySSE DeliveryStrategy = "sse"
	// StrategyPolling uses periodic API calls with exponential backoff.
	StrategyPolling DeliveryStrategy = "polling"
)

const (
	defaultWaitTimeout = 60 * time.Second
)

// clientConfig holds configuration for the client.
type clientConfig struct {
	baseURL          string
	httpClient       *http.Client
	deliveryStrategy DeliveryStrategy
	timeout          time.Duration
	keyDir           string
	logger           logrus.FieldLogger
	provider         CryptoProvider

	// Polling configuration
	pollingInitialInterval   time.Duration
	pollingMaxBackoff        time.Duration
	pollingBackoffMultiplier float64
	pollingJitterFactor      float64
	sseConnectionTimeout     time.Duration
}

// waitConfig holds configuration for waiting on messages.
type waitConfig struct {
	partnerID string
	predicate func(*Message) bool
	timeout   time.Duration
}

// Option configures the client.
type Option func(*clientConfig)

// WaitOption configures message waiting.
type WaitOption func(*waitConfig)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithDeliveryStrategy sets the delivery strategy.
func WithDeliveryStrategy(strategy DeliveryStrategy) Option {
	return func(c *clientConfig) {
		c.deliveryStrategy = strategy
	}
}

// WithTimeout sets the default timeout for API calls and waits.
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithKeyDir sets the directory where the identity key is persisted.
// Defaults to a "sealpost" directory under the user's config directory.
func WithKeyDir(dir string) Option {
	return func(c *clientConfig) {
		c.keyDir = dir
	}
}

// WithLogger sets the logger used for background diagnostics.
// Defaults to a logger that discards everything.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithCryptoProvider replaces the default encryption engine. Intended for
// algorithm migration and for tests; the default engine should serve
// everything else.
func WithCryptoProvider(provider CryptoProvider) Option {
	return func(c *clientConfig) {
		c.provider = provider
	}
}

// WithPollingInitialInterval sets the initial polling interval.
// This is the interval used while messages are actively arriving.
// Default: 2 seconds
func WithPollingInitialInterval(interval time.Duration) Option {
	return func(c *clientConfig) {
		c.pollingInitialInterval = interval
	}
}

// WithPollingMaxBackoff sets the maximum polling backoff interval.
// When nothing new arrives, the polling interval increases up to this maximum.
// Default: 30 seconds
func WithPollingMaxBackoff(maxBackoff time.Duration) Option {
	return func(c *clientConfig) {
		c.pollingMaxBackoff = maxBackoff
	}
}

// WithPollingBackoffMultiplier sets the backoff multiplier for polling.
// After each poll with nothing new, the interval is multiplied by this factor.
// Default: 1.5
func WithPollingBackoffMultiplier(multiplier float64) Option {
	return func(c *clientConfig) {
		c.pollingBackoffMultiplier = multiplier
	}
}

// WithPollingJitterFactor sets the jitter factor for polling intervals.
// Random jitter up to this fraction of the interval is added to prevent
// synchronized polling across multiple clients.
// Default: 0.3 (30%)
func WithPollingJitterFactor(factor float64) Option {
	return func(c *clientConfig) {
		c.pollingJitterFactor = factor
	}
}

// WithSSEConnectionTimeout sets the timeout for SSE connection establishment.
// When using StrategyAuto, if the SSE connection is not established within
// this timeout, the client falls back to polling.
// Default: 5 seconds
func WithSSEConnectionTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.sseConnectionTimeout = timeout
	}
}

// WithPartner filters messages by conversation partner.
func WithPartner(partnerID string) WaitOption {
	return func(c *waitConfig) {
		c.partnerID = partnerID
	}
}

// WithPredicate filters messages by custom predicate.
func WithPredicate(fn func(*Message) bool) WaitOption {
	return func(c *waitConfig) {
		c.predicate = fn
	}
}

// WithWaitTimeout sets the timeout for waiting.
func WithWaitTimeout(timeout time.Duration) WaitOption {
	return func(c *waitConfig) {
		c.timeout = timeout
	}
}

// Matches checks if a message matches the wait criteria.
func (w *waitConfig) Matches(m *Message) bool {
	if w.partnerID != "" && m.PartnerID != w.partnerID {
		return false
	}
	if w.predicate != nil && !w.predicate(m) {
		return false
	}
	return true
}
