package sealpost

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sealpost/messaging-go/internal/api"
	"github.com/sealpost/messaging-go/internal/keystore"
)

// All public error types carry the marker interface.
var (
	_ SealPostError = (*APIError)(nil)
	_ SealPostError = (*NetworkError)(nil)
	_ SealPostError = (*TimeoutError)(nil)
	_ SealPostError = (*DeliveryError)(nil)
	_ SealPostError = (*DecryptionError)(nil)
	_ SealPostError = (*KeyStoreError)(nil)
	_ SealPostError = (*StrategyError)(nil)
)

func TestAPIError_Is(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *APIError
		target   error
		expected bool
	}{
		{"401 matches unauthorized", &APIError{StatusCode: 401}, ErrUnauthorized, true},
		{"401 does not match rate limited", &APIError{StatusCode: 401}, ErrRateLimited, false},
		{"404 key matches recipient key unavailable", &APIError{StatusCode: 404, Resource: "key"}, ErrRecipientKeyUnavailable, true},
		{"404 key does not match envelope not found", &APIError{StatusCode: 404, Resource: "key"}, ErrEnvelopeNotFound, false},
		{"404 envelope matches envelope not found", &APIError{StatusCode: 404, Resource: "envelope"}, ErrEnvelopeNotFound, true},
		{"404 object matches nothing", &APIError{StatusCode: 404, Resource: "object"}, ErrEnvelopeNotFound, false},
		{"429 matches rate limited", &APIError{StatusCode: 429}, ErrRateLimited, true},
		{"500 matches nothing", &APIError{StatusCode: 500}, ErrUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.expected {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.expected)
			}
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	t.Parallel()

	err := &APIError{StatusCode: 429, Message: "slow down", RequestID: "req-1"}
	msg := err.Error()
	for _, part := range []string{"429", "slow down", "req-1"} {
		if !strings.Contains(msg, part) {
			t.Errorf("Error() = %q, missing %q", msg, part)
		}
	}
}

func TestDeliveryError_Matching(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := &DeliveryError{Stage: "upload", Err: cause}

	if !errors.Is(err, ErrDeliverySend) {
		t.Error("DeliveryError does not match ErrDeliverySend")
	}
	if !errors.Is(err, cause) {
		t.Error("DeliveryError does not unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "upload") {
		t.Errorf("Error() = %q, missing stage", err.Error())
	}
}

func TestDecryptionError_Matching(t *testing.T) {
	t.Parallel()

	cause := errors.New("cipher: message authentication failed")
	err := &DecryptionError{EnvelopeID: "env-1", Stage: "content", Err: cause}

	if !errors.Is(err, ErrDecryptionFailed) {
		t.Error("DecryptionError does not match ErrDecryptionFailed")
	}
	if !errors.Is(err, cause) {
		t.Error("DecryptionError does not unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "env-1") {
		t.Errorf("Error() = %q, missing envelope ID", err.Error())
	}
}

func TestKeyStoreError_Matching(t *testing.T) {
	t.Parallel()

	notFound := &KeyStoreError{Op: "load", Err: fmt.Errorf("read: %w", keystore.ErrKeyNotFound)}
	if !errors.Is(notFound, ErrKeyNotFound) {
		t.Error("KeyStoreError wrapping a missing key does not match ErrKeyNotFound")
	}

	generation := &KeyStoreError{Op: "generate", Err: errors.New("entropy exhausted")}
	if !errors.Is(generation, ErrKeyGeneration) {
		t.Error("KeyStoreError for generation does not match ErrKeyGeneration")
	}
	if errors.Is(generation, ErrKeyNotFound) {
		t.Error("generation failure must not match ErrKeyNotFound")
	}
}

func TestWrapError(t *testing.T) {
	t.Parallel()

	t.Run("nil passes through", func(t *testing.T) {
		if wrapError(nil) != nil {
			t.Error("wrapError(nil) != nil")
		}
	})

	t.Run("api error converts", func(t *testing.T) {
		in := &api.APIError{
			StatusCode:   404,
			Message:      "no key",
			RequestID:    "req-2",
			ResourceType: api.ResourceKey,
		}
		out := wrapError(fmt.Errorf("get key: %w", in))

		var apiErr *APIError
		if !errors.As(out, &apiErr) {
			t.Fatalf("wrapError() = %T, want *APIError", out)
		}
		if apiErr.StatusCode != 404 || apiErr.Message != "no key" || apiErr.RequestID != "req-2" {
			t.Errorf("converted error lost fields: %+v", apiErr)
		}
		if apiErr.Resource != "key" {
			t.Errorf("Resource = %q, want key", apiErr.Resource)
		}
		if !errors.Is(out, ErrRecipientKeyUnavailable) {
			t.Error("converted 404 key error does not match ErrRecipientKeyUnavailable")
		}
	})

	t.Run("network error converts", func(t *testing.T) {
		in := &api.NetworkError{Err: errors.New("dial tcp: refused"), URL: "http://example.test"}
		out := wrapError(in)

		var netErr *NetworkError
		if !errors.As(out, &netErr) {
			t.Fatalf("wrapError() = %T, want *NetworkError", out)
		}
		if netErr.URL != "http://example.test" {
			t.Errorf("URL = %q", netErr.URL)
		}
	})

	t.Run("other errors pass through", func(t *testing.T) {
		in := errors.New("something else")
		if out := wrapError(in); out != in {
			t.Errorf("wrapError() = %v, want the original error", out)
		}
	})
}
