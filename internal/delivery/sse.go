package delivery

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sealpost/messaging-go/internal/api"
)

const (
	SSEReconnectInterval    = 5 * time.Second
	SSEMaxReconnectAttempts = 10
)

// SSEStrategy implements arrival notification via Server-Sent Events.
type SSEStrategy struct {
	apiClient     *api.Client
	log           logrus.FieldLogger
	handler       EventHandler
	cancel        context.CancelFunc
	mu            sync.RWMutex
	reconnectWait time.Duration
	attempts      int
	started       bool
	connected     chan struct{} // Signals when first connection is established
	connectedOnce sync.Once
	lastError     error
	onReconnect   func(ctx context.Context)
}

// NewSSEStrategy creates a new SSE strategy.
func NewSSEStrategy(cfg Config) *SSEStrategy {
	return &SSEStrategy{
		apiClient:     cfg.APIClient,
		log:           cfg.logger(),
		reconnectWait: SSEReconnectInterval,
		connected:     make(chan struct{}),
	}
}

// Name returns the strategy name.
func (s *SSEStrategy) Name() string {
	return "sse"
}

// Connected returns a channel that's closed when the SSE connection is established.
func (s *SSEStrategy) Connected() <-chan struct{} {
	return s.connected
}

// LastError returns the last connection error, if any.
func (s *SSEStrategy) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// Start begins listening for envelope arrivals.
func (s *SSEStrategy) Start(ctx context.Context, handler EventHandler) error {
	s.mu.Lock()
	s.handler = handler
	s.started = true
	s.mu.Unlock()

	ctx, s.cancel = context.WithCancel(ctx)
	go s.connectLoop(ctx)
	return nil
}

// OnReconnect sets a callback invoked after each successful connection.
func (s *SSEStrategy) OnReconnect(fn func(ctx context.Context)) {
	s.mu.Lock()
	s.onReconnect = fn
	s.mu.Unlock()
}

// Stop gracefully shuts down the strategy.
func (s *SSEStrategy) Stop() error {
	s.mu.Lock()
	s.started = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

func (s *SSEStrategy) connectLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := s.connect(ctx)
		if err == nil {
			// Clean disconnect
			return
		}

		// Handle reconnection with backoff
		s.attempts++
		if s.attempts >= SSEMaxReconnectAttempts {
			s.log.WithError(err).Warn("sse: giving up after max reconnect attempts")
			return
		}

		wait := s.reconnectWait * time.Duration(1<<(s.attempts-1))
		s.log.WithError(err).WithField("wait", wait).Debug("sse: reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (s *SSEStrategy) connect(ctx context.Context) error {
	if s.apiClient == nil {
		err := fmt.Errorf("sse strategy: API client is nil")
		s.mu.Lock()
		s.lastError = err
		s.mu.Unlock()
		return err
	}

	resp, err := s.apiClient.OpenEventStream(ctx)
	if err != nil {
		s.mu.Lock()
		s.lastError = err
		s.mu.Unlock()
		return err
	}
	defer resp.Body.Close()

	// Reset attempts on successful connection
	s.attempts = 0

	// Signal that connection is established
	s.connectedOnce.Do(func() {
		close(s.connected)
	})

	s.mu.RLock()
	onReconnect := s.onReconnect
	s.mu.RUnlock()
	if onReconnect != nil {
		go onReconnect(ctx)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		// Parse SSE data line
		if strings.HasPrefix(line, "data: ") {
			data := strings.TrimPrefix(line, "data: ")

			var event api.ArrivalEvent
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				continue // Skip malformed events
			}
			if event.EnvelopeID == "" {
				continue
			}

			s.mu.RLock()
			handler := s.handler
			s.mu.RUnlock()

			if handler != nil {
				if err := handler(&event); err != nil {
					s.log.WithError(err).WithField("envelope", event.EnvelopeID).
						Warn("sse: handler error")
				}
			}
		}
	}

	return scanner.Err()
}
