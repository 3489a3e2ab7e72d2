package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// RegisterPublicKey publishes (or replaces) the caller's public key in the
// directory. Replacing a key starts a new key epoch server-side.
func (c *Client) RegisterPublicKey(ctx context.Context, publicKeyB64 string) error {
	body := struct {
		PublicKey string `json:"publicKey"`
	}{PublicKey: publicKeyB64}
	return c.do(ctx, http.MethodPut, "/api/keys/me", body, nil)
}

// GetPublicKey looks up a user's active public key. A missing record maps
// to ErrKeyNotFound.
func (c *Client) GetPublicKey(ctx context.Context, userID string) (*PublicKeyRecord, error) {
	path := fmt.Sprintf("/api/keys/%s", url.PathEscape(userID))
	var result PublicKeyRecord
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, WithResourceType(err, ResourceKey)
	}
	return &result, nil
}

// RequestUploadTarget asks the relay for a write URL and object reference.
func (c *Client) RequestUploadTarget(ctx context.Context) (*UploadTarget, error) {
	var result UploadTarget
	if err := c.do(ctx, http.MethodPost, "/api/objects", nil, &result); err != nil {
		return nil, WithResourceType(err, ResourceObject)
	}
	return &result, nil
}

// UploadBlob writes opaque ciphertext bytes to a relay upload URL.
func (c *Client) UploadBlob(ctx context.Context, uploadURL string, ciphertext []byte) error {
	_, err := c.doRaw(ctx, http.MethodPut, uploadURL, ciphertext)
	return err
}

// RequestDownloadTarget asks the relay for a read URL for an object.
func (c *Client) RequestDownloadTarget(ctx context.Context, objectReference string) (*DownloadTarget, error) {
	path := fmt.Sprintf("/api/objects/%s", url.PathEscape(objectReference))
	var result DownloadTarget
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, WithResourceType(err, ResourceObject)
	}
	return &result, nil
}

// DownloadBlob fetches opaque ciphertext bytes from a relay download URL.
func (c *Client) DownloadBlob(ctx context.Context, downloadURL string) ([]byte, error) {
	data, err := c.doRaw(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, WithResourceType(err, ResourceObject)
	}
	return data, nil
}

// SubmitEnvelope persists envelope metadata and returns the created
// envelope id.
func (c *Client) SubmitEnvelope(ctx context.Context, sub *EnvelopeSubmission) (string, error) {
	var result struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/envelopes", sub, &result); err != nil {
		return "", WithResourceType(err, ResourceEnvelope)
	}
	return result.ID, nil
}

// ListEnvelopes fetches envelope metadata, optionally filtered to one
// conversation partner. Ordering by created_at is established server-side.
func (c *Client) ListEnvelopes(ctx context.Context, partnerID string) ([]Envelope, error) {
	path := "/api/envelopes"
	if partnerID != "" {
		path += "?partner=" + url.QueryEscape(partnerID)
	}
	var result struct {
		Envelopes []Envelope `json:"envelopes"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, WithResourceType(err, ResourceEnvelope)
	}
	return result.Envelopes, nil
}

// MarkEnvelopeRead sets the envelope's read timestamp, the only mutation
// an envelope permits.
func (c *Client) MarkEnvelopeRead(ctx context.Context, envelopeID string) error {
	path := fmt.Sprintf("/api/envelopes/%s/read", url.PathEscape(envelopeID))
	return WithResourceType(c.do(ctx, http.MethodPatch, path, nil, nil), ResourceEnvelope)
}

// OpenEventStream opens an SSE connection for message-arrival events.
// The caller owns the response body.
func (c *Client) OpenEventStream(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/events", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// SSE connections are long-lived; bypass the client-wide timeout.
	streamClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err, URL: c.baseURL + "/api/events"}
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, parseErrorResponse(resp)
	}

	return resp, nil
}
