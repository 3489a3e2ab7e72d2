package api

import (
	"errors"
	"fmt"
)

// Common API errors that can be checked with errors.Is.
var (
	// ErrUnauthorized indicates the access token is invalid or expired.
	ErrUnauthorized = errors.New("invalid or expired access token")
	// ErrKeyNotFound indicates the directory holds no public key for the user.
	ErrKeyNotFound = errors.New("public key not found")
	// ErrEnvelopeNotFound indicates the requested envelope does not exist.
	ErrEnvelopeNotFound = errors.New("envelope not found")
	// ErrObjectNotFound indicates the requested ciphertext object does not exist.
	ErrObjectNotFound = errors.New("object not found")
	// ErrRateLimited indicates the rate limit has been exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// ResourceType indicates which type of resource an error relates to.
type ResourceType string

const (
	// ResourceUnknown indicates the resource type is not specified.
	ResourceUnknown ResourceType = ""
	// ResourceKey indicates the error relates to a directory key record.
	ResourceKey ResourceType = "key"
	// ResourceEnvelope indicates the error relates to an envelope.
	ResourceEnvelope ResourceType = "envelope"
	// ResourceObject indicates the error relates to a ciphertext object.
	ResourceObject ResourceType = "object"
)

// APIError represents an HTTP error from a SealPost collaborator service.
type APIError struct {
	StatusCode   int
	Message      string
	RequestID    string
	ResourceType ResourceType
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

// Is implements errors.Is for sentinel error matching.
func (e *APIError) Is(target error) bool {
	switch e.StatusCode {
	case 401:
		return target == ErrUnauthorized
	case 404:
		switch e.ResourceType {
		case ResourceKey:
			return target == ErrKeyNotFound
		case ResourceEnvelope:
			return target == ErrEnvelopeNotFound
		case ResourceObject:
			return target == ErrObjectNotFound
		default:
			return target == ErrKeyNotFound || target == ErrEnvelopeNotFound || target == ErrObjectNotFound
		}
	case 429:
		return target == ErrRateLimited
	}
	return false
}

// WithResourceType returns a copy of the error with the resource type set.
// If the error is not an *APIError, it is returned unchanged.
func WithResourceType(err error, rt ResourceType) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return &APIError{
			StatusCode:   apiErr.StatusCode,
			Message:      apiErr.Message,
			RequestID:    apiErr.RequestID,
			ResourceType: rt,
		}
	}
	return err
}

// NetworkError represents a network-level failure.
type NetworkError struct {
	Err error
	URL string
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
