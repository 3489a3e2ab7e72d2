package delivery

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sealpost/messaging-go/internal/api"
)

// EventHandler is a callback function invoked when a new envelope arrives.
// The handler receives an arrival event naming the sender and the envelope
// ID. Return an error to signal processing failure (currently errors are
// logged, not propagated).
type EventHandler func(event *api.ArrivalEvent) error

// Strategy defines the interface for arrival-notification mechanisms.
// Implementations include PollingStrategy, SSEStrategy, and AutoStrategy.
//
// The typical lifecycle is:
//  1. Create a strategy with NewXxxStrategy(cfg)
//  2. Call Start(ctx, handler) to begin receiving events
//  3. Call Stop() when done to release resources
//
// All implementations are safe for concurrent use.
type Strategy interface {
	// Start begins listening for envelope arrivals. The handler is called
	// for each new envelope. Start returns immediately; event delivery is
	// asynchronous.
	Start(ctx context.Context, handler EventHandler) error

	// Stop gracefully shuts down the strategy and releases resources.
	// After Stop returns, no more events will be delivered.
	// Stop is idempotent and safe to call multiple times.
	Stop() error

	// Name returns the strategy name for logging and debugging.
	// Examples: "polling", "sse", "auto:sse", "auto:polling"
	Name() string

	// OnReconnect sets a callback that is invoked after each successful
	// connection/reconnection. For SSE, this is called after the event
	// stream connects. For polling, this is a no-op since polling has no
	// persistent connection. Callers can use it to list envelopes that
	// may have arrived during the reconnection window.
	OnReconnect(fn func(ctx context.Context))
}

// Config holds configuration shared by all delivery strategies.
type Config struct {
	// APIClient is the API client used for making requests to the server.
	APIClient *api.Client

	// Logger receives connection and polling diagnostics. If nil, a
	// discard logger is used.
	Logger logrus.FieldLogger

	// PollingInitialInterval is the starting interval between polls.
	// If zero, defaults to DefaultPollingInitialInterval.
	PollingInitialInterval time.Duration

	// PollingMaxBackoff is the maximum interval between polls.
	// If zero, defaults to DefaultPollingMaxBackoff.
	PollingMaxBackoff time.Duration

	// PollingBackoffMultiplier is the factor by which the interval
	// increases after each poll with no new envelopes.
	// If zero, defaults to DefaultPollingBackoffMultiplier.
	PollingBackoffMultiplier float64

	// PollingJitterFactor is the maximum random jitter added to
	// poll intervals (as a fraction of the interval).
	// If zero, defaults to DefaultPollingJitterFactor.
	PollingJitterFactor float64

	// SSEConnectionTimeout is the maximum time to wait for an SSE connection
	// to be established before falling back to polling (when using auto mode).
	// If zero, defaults to DefaultSSEConnectionTimeout.
	SSEConnectionTimeout time.Duration
}

// Default polling configuration values.
const (
	DefaultPollingInitialInterval   = 2 * time.Second
	DefaultPollingMaxBackoff        = 30 * time.Second
	DefaultPollingBackoffMultiplier = 1.5
	DefaultPollingJitterFactor      = 0.3
	DefaultSSEConnectionTimeout     = 5 * time.Second
)

func (c Config) logger() logrus.FieldLogger {
	if c.Logger != nil {
		return c.Logger
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	return discard
}
