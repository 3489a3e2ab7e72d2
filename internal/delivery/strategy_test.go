package delivery

import (
	"testing"
	"time"
)

func TestDefaultConstants(t *testing.T) {
	t.Parallel()
	if DefaultPollingInitialInterval != 2*time.Second {
		t.Errorf("DefaultPollingInitialInterval = %v, want 2s", DefaultPollingInitialInterval)
	}
	if DefaultPollingMaxBackoff != 30*time.Second {
		t.Errorf("DefaultPollingMaxBackoff = %v, want 30s", DefaultPollingMaxBackoff)
	}
	if DefaultSSEConnectionTimeout != 5*time.Second {
		t.Errorf("DefaultSSEConnectionTimeout = %v, want 5s", DefaultSSEConnectionTimeout)
	}
}

// Test that strategies implement the Strategy interface
func TestStrategyInterface(t *testing.T) {
	t.Parallel()
	var _ Strategy = (*PollingStrategy)(nil)
	var _ Strategy = (*SSEStrategy)(nil)
	var _ Strategy = (*AutoStrategy)(nil)
}

func TestConfigLogger_NilLoggerDiscarded(t *testing.T) {
	t.Parallel()
	cfg := Config{}
	if cfg.logger() == nil {
		t.Fatal("logger() returned nil")
	}
}
