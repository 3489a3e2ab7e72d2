package delivery

import (
	"context"
	"time"
)

// AutoStrategy automatically selects between SSE and polling.
type AutoStrategy struct {
	cfg         Config
	current     Strategy
	onReconnect func(ctx context.Context)
}

// NewAutoStrategy creates a new auto strategy.
func NewAutoStrategy(cfg Config) *AutoStrategy {
	return &AutoStrategy{cfg: cfg}
}

// Name returns the strategy name.
func (a *AutoStrategy) Name() string {
	if a.current != nil {
		return "auto:" + a.current.Name()
	}
	return "auto"
}

// Start begins listening for arrivals, trying SSE first then falling back
// to polling.
func (a *AutoStrategy) Start(ctx context.Context, handler EventHandler) error {
	timeout := a.cfg.SSEConnectionTimeout
	if timeout == 0 {
		timeout = DefaultSSEConnectionTimeout
	}

	sse := NewSSEStrategy(a.cfg)
	if a.onReconnect != nil {
		sse.OnReconnect(a.onReconnect)
	}
	if err := sse.Start(ctx, handler); err != nil {
		// SSE failed to start, fall back to polling immediately
		return a.startPolling(ctx, handler)
	}

	// Wait for the SSE connection to be established or time out
	select {
	case <-sse.Connected():
		a.current = sse
		return nil
	case <-time.After(timeout):
		a.cfg.logger().WithError(sse.LastError()).
			Debug("auto: sse did not connect, falling back to polling")
		sse.Stop()
		return a.startPolling(ctx, handler)
	case <-ctx.Done():
		sse.Stop()
		return ctx.Err()
	}
}

func (a *AutoStrategy) startPolling(ctx context.Context, handler EventHandler) error {
	polling := NewPollingStrategy(a.cfg)
	if err := polling.Start(ctx, handler); err != nil {
		return err
	}
	a.current = polling
	return nil
}

// OnReconnect sets a callback on the selected strategy.
func (a *AutoStrategy) OnReconnect(fn func(ctx context.Context)) {
	a.onReconnect = fn
	if a.current != nil {
		a.current.OnReconnect(fn)
	}
}

// Stop gracefully shuts down the strategy.
func (a *AutoStrategy) Stop() error {
	if a.current != nil {
		return a.current.Stop()
	}
	return nil
}
