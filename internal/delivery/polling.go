package delivery

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sealpost/messaging-go/internal/api"
)

// PollingStrategy implements arrival notification by listing envelopes on
// an adaptive interval and reporting the ones it has not seen before.
type PollingStrategy struct {
	apiClient         *api.Client
	log               logrus.FieldLogger
	handler           EventHandler
	cancel            context.CancelFunc
	mu                sync.RWMutex
	started           bool
	seeded            bool
	seen              map[string]struct{} // envelope IDs already reported
	interval          time.Duration
	initialInterval   time.Duration
	maxBackoff        time.Duration
	backoffMultiplier float64
	jitterFactor      float64
}

// NewPollingStrategy creates a new polling strategy.
func NewPollingStrategy(cfg Config) *PollingStrategy {
	initial := cfg.PollingInitialInterval
	if initial == 0 {
		initial = DefaultPollingInitialInterval
	}
	maxBackoff := cfg.PollingMaxBackoff
	if maxBackoff == 0 {
		maxBackoff = DefaultPollingMaxBackoff
	}
	multiplier := cfg.PollingBackoffMultiplier
	if multiplier == 0 {
		multiplier = DefaultPollingBackoffMultiplier
	}
	jitter := cfg.PollingJitterFactor
	if jitter == 0 {
		jitter = DefaultPollingJitterFactor
	}
	return &PollingStrategy{
		apiClient:         cfg.APIClient,
		log:               cfg.logger(),
		seen:              make(map[string]struct{}),
		interval:          initial,
		initialInterval:   initial,
		maxBackoff:        maxBackoff,
		backoffMultiplier: multiplier,
		jitterFactor:      jitter,
	}
}

// Name returns the strategy name.
func (p *PollingStrategy) Name() string {
	return "polling"
}

// Start begins polling for envelope arrivals. Envelopes already present at
// the first poll form the baseline and are not reported; only envelopes
// that appear afterwards produce events.
func (p *PollingStrategy) Start(ctx context.Context, handler EventHandler) error {
	p.mu.Lock()
	p.handler = handler
	p.started = true
	p.mu.Unlock()

	ctx, p.cancel = context.WithCancel(ctx)
	go p.pollLoop(ctx)
	return nil
}

// OnReconnect is a no-op: polling has no persistent connection.
func (p *PollingStrategy) OnReconnect(fn func(ctx context.Context)) {}

// Stop gracefully shuts down the strategy.
func (p *PollingStrategy) Stop() error {
	p.mu.Lock()
	p.started = false
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	return nil
}

func (p *PollingStrategy) pollLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		p.poll(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.waitDuration()):
		}
	}
}

func (p *PollingStrategy) poll(ctx context.Context) {
	if p.apiClient == nil {
		return
	}

	envelopes, err := p.apiClient.ListEnvelopes(ctx, "")
	if err != nil {
		p.log.WithError(err).Debug("polling: list envelopes failed")
		return
	}

	p.mu.Lock()
	seeding := !p.seeded
	p.seeded = true
	var fresh []api.Envelope
	for _, env := range envelopes {
		if _, ok := p.seen[env.ID]; ok {
			continue
		}
		p.seen[env.ID] = struct{}{}
		if !seeding {
			fresh = append(fresh, env)
		}
	}
	handler := p.handler
	p.mu.Unlock()

	if len(fresh) == 0 {
		// Nothing new, back off
		p.mu.Lock()
		next := time.Duration(float64(p.interval) * p.backoffMultiplier)
		if next > p.maxBackoff {
			next = p.maxBackoff
		}
		p.interval = next
		p.mu.Unlock()
		return
	}

	p.mu.Lock()
	p.interval = p.initialInterval
	p.mu.Unlock()

	for _, env := range fresh {
		if handler == nil {
			continue
		}
		event := &api.ArrivalEvent{
			SenderID:   env.SenderID,
			EnvelopeID: env.ID,
		}
		if err := handler(event); err != nil {
			p.log.WithError(err).WithField("envelope", env.ID).
				Warn("polling: handler error")
		}
	}
}

func (p *PollingStrategy) waitDuration() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	// Add jitter to prevent thundering herd
	jitter := time.Duration(rand.Float64() * p.jitterFactor * float64(p.interval))
	return p.interval + jitter
}
