package sealpost

import (
	"errors"
	"fmt"
	"time"

	"github.com/sealpost/messaging-go/internal/api"
	"github.com/sealpost/messaging-go/internal/keystore"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrMissingUserID is returned when no user ID is provided.
	ErrMissingUserID = errors.New("user ID is required")

	// ErrMissingToken is returned when no access token is provided.
	ErrMissingToken = errors.New("access token is required")

	// ErrClientClosed is returned when operations are attempted on a closed client.
	ErrClientClosed = errors.New("client has been closed")

	// ErrUnauthorized is returned when the access token is invalid or expired.
	ErrUnauthorized = errors.New("invalid or expired access token")

	// ErrKeyGeneration is returned when keypair generation fails.
	ErrKeyGeneration = errors.New("key generation failed")

	// ErrKeyNotFound is returned when no local identity key exists.
	ErrKeyNotFound = errors.New("identity key not found")

	// ErrNotEnrolled is returned when an operation requires a local identity
	// and none has been enrolled yet.
	ErrNotEnrolled = errors.New("not enrolled: no identity key")

	// ErrRecipientKeyUnavailable is returned when the recipient has no
	// registered public key. Nothing is encrypted or uploaded in that case.
	ErrRecipientKeyUnavailable = errors.New("recipient public key unavailable")

	// ErrDecryptionFailed is returned when message decryption fails.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrDeliverySend is returned when a send fails after encryption,
	// during ciphertext upload or envelope submission.
	ErrDeliverySend = errors.New("message delivery failed")

	// ErrEnvelopeNotFound is returned when an envelope is not found.
	ErrEnvelopeNotFound = errors.New("envelope not found")

	// ErrRateLimited is returned when the API rate limit is exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidImportData is returned when imported identity data is invalid.
	ErrInvalidImportData = errors.New("invalid import data")

	// ErrIdentityAlreadyExists is returned when importing an identity while
	// a local identity key already exists.
	ErrIdentityAlreadyExists = errors.New("identity already exists")
)

// SealPostError is implemented by all SDK errors.
type SealPostError interface {
	error
	SealPostError() // marker method
}

// APIError represents an HTTP error from the SealPost API.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string // if returned by server
	Resource   string // "key", "envelope" or "object", when known
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		if e.Message != "" {
			return fmt.Sprintf("API error %d: %s (request_id: %s)", e.StatusCode, e.Message, e.RequestID)
		}
		return fmt.Sprintf("API error %d (request_id: %s)", e.StatusCode, e.RequestID)
	}
	if e.Message != "" {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error %d", e.StatusCode)
}

// SealPostError implements the SealPostError interface.
func (e *APIError) SealPostError() {}

// Is implements errors.Is for sentinel error matching.
func (e *APIError) Is(target error) bool {
	switch e.StatusCode {
	case 401:
		return target == ErrUnauthorized
	case 404:
		switch e.Resource {
		case "key":
			return target == ErrRecipientKeyUnavailable
		case "envelope":
			return target == ErrEnvelopeNotFound
		}
		return false
	case 429:
		return target == ErrRateLimited
	}
	return false
}

// NetworkError represents a network-level failure.
type NetworkError struct {
	Err error
	URL string
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// SealPostError implements the SealPostError interface.
func (e *NetworkError) SealPostError() {}

// TimeoutError represents an operation that exceeded its deadline.
type TimeoutError struct {
	Operation string
	Timeout   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %v", e.Operation, e.Timeout)
}

// SealPostError implements the SealPostError interface.
func (e *TimeoutError) SealPostError() {}

// DeliveryError represents a send that failed after encryption succeeded.
// Stage identifies the step that failed: "target", "upload" or "submit".
// The message was not delivered; resending produces a fresh ciphertext.
type DeliveryError struct {
	Stage string
	Err   error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed at %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *DeliveryError) Is(target error) bool {
	return target == ErrDeliverySend
}

// SealPostError implements the SealPostError interface.
func (e *DeliveryError) SealPostError() {}

// DecryptionError represents a failure to decrypt a message.
// Stage identifies the step that failed: "unwrap" or "content".
type DecryptionError struct {
	EnvelopeID string
	Stage      string
	Err        error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("decryption failed for envelope %s at %s: %v", e.EnvelopeID, e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecryptionError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *DecryptionError) Is(target error) bool {
	return target == ErrDecryptionFailed
}

// SealPostError implements the SealPostError interface.
func (e *DecryptionError) SealPostError() {}

// KeyStoreError represents a local key persistence failure.
type KeyStoreError struct {
	Op  string // "generate", "persist", "load", "discard"
	Err error
}

func (e *KeyStoreError) Error() string {
	return fmt.Sprintf("keystore %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *KeyStoreError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *KeyStoreError) Is(target error) bool {
	switch target {
	case ErrKeyNotFound:
		return errors.Is(e.Err, keystore.ErrKeyNotFound)
	case ErrKeyGeneration:
		return e.Op == "generate"
	}
	return false
}

// SealPostError implements the SealPostError interface.
func (e *KeyStoreError) SealPostError() {}

// StrategyError indicates a delivery strategy failure.
type StrategyError struct {
	Message string
	Err     error
}

func (e *StrategyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("strategy error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("strategy error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *StrategyError) Unwrap() error {
	return e.Err
}

// SealPostError implements the SealPostError interface.
func (e *StrategyError) SealPostError() {}

// wrapError converts internal API errors to public errors.
// This ensures that errors.Is() checks work with public sentinel errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return &APIError{
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Message,
			RequestID:  apiErr.RequestID,
			Resource:   string(apiErr.ResourceType),
		}
	}

	var netErr *api.NetworkError
	if errors.As(err, &netErr) {
		return &NetworkError{
			Err: netErr.Err,
			URL: netErr.URL,
		}
	}

	return err
}
