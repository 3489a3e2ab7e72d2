package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New("test-token", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	return c, srv
}

func TestNew_RequiresToken(t *testing.T) {
	t.Parallel()
	if _, err := New(""); err == nil {
		t.Error("New(\"\") should fail")
	}
}

func TestRegisterPublicKey(t *testing.T) {
	t.Parallel()
	var gotAuth, gotKey string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/keys/me" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		var body struct {
			PublicKey string `json:"publicKey"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		gotKey = body.PublicKey
		w.WriteHeader(http.StatusNoContent)
	}))

	if err := c.RegisterPublicKey(context.Background(), "cHVibGljLWtleQ"); err != nil {
		t.Fatalf("RegisterPublicKey() error = %v", err)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotKey != "cHVibGljLWtleQ" {
		t.Errorf("publicKey = %q", gotKey)
	}
}

func TestGetPublicKey(t *testing.T) {
	t.Parallel()
	registered := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/keys/bob" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(PublicKeyRecord{
			UserID:       "bob",
			PublicKey:    "Ym9iLXB1YmxpYw",
			RegisteredAt: registered,
		})
	}))

	rec, err := c.GetPublicKey(context.Background(), "bob")
	if err != nil {
		t.Fatalf("GetPublicKey() error = %v", err)
	}
	if rec.UserID != "bob" || rec.PublicKey != "Ym9iLXB1YmxpYw" {
		t.Errorf("record = %+v", rec)
	}
	if !rec.RegisteredAt.Equal(registered) {
		t.Errorf("RegisteredAt = %v, want %v", rec.RegisteredAt, registered)
	}
}

func TestGetPublicKey_NotFound(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "no key for user"})
	}))

	_, err := c.GetPublicKey(context.Background(), "carol")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("error = %v, want ErrKeyNotFound", err)
	}
	// The same 404, typed to keys, must not match envelope lookups.
	if errors.Is(err, ErrEnvelopeNotFound) {
		t.Error("key 404 matched ErrEnvelopeNotFound")
	}
}

func TestUploadDownloadBlob(t *testing.T) {
	t.Parallel()
	ciphertext := []byte{0x53, 0x50, 0x00, 0xff, 0x10}
	var uploaded []byte

	blobSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			if ct := r.Header.Get("Content-Type"); ct != "application/octet-stream" {
				t.Errorf("Content-Type = %q", ct)
			}
			uploaded, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			w.Write(uploaded)
		}
	}))
	t.Cleanup(blobSrv.Close)

	c, err := New("test-token")
	if err != nil {
		t.Fatal(err)
	}

	if err := c.UploadBlob(context.Background(), blobSrv.URL+"/obj-1", ciphertext); err != nil {
		t.Fatalf("UploadBlob() error = %v", err)
	}
	if !bytes.Equal(uploaded, ciphertext) {
		t.Errorf("uploaded = %x, want %x", uploaded, ciphertext)
	}

	got, err := c.DownloadBlob(context.Background(), blobSrv.URL+"/obj-1")
	if err != nil {
		t.Fatalf("DownloadBlob() error = %v", err)
	}
	if !bytes.Equal(got, ciphertext) {
		t.Errorf("downloaded = %x, want %x", got, ciphertext)
	}
}

func TestRequestUploadTarget(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/objects" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(UploadTarget{
			UploadURL:       "https://relay.example/put/abc",
			ObjectReference: "obj-abc",
		})
	}))

	target, err := c.RequestUploadTarget(context.Background())
	if err != nil {
		t.Fatalf("RequestUploadTarget() error = %v", err)
	}
	if target.ObjectReference != "obj-abc" {
		t.Errorf("ObjectReference = %q", target.ObjectReference)
	}
}

func TestSubmitAndListEnvelopes(t *testing.T) {
	t.Parallel()
	created := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	var gotSub EnvelopeSubmission

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/envelopes":
			if err := json.NewDecoder(r.Body).Decode(&gotSub); err != nil {
				t.Fatal(err)
			}
			json.NewEncoder(w).Encode(map[string]string{"id": "env-1"})
		case r.Method == http.MethodGet && r.URL.Path == "/api/envelopes":
			if got := r.URL.Query().Get("partner"); got != "bob" {
				t.Errorf("partner = %q", got)
			}
			json.NewEncoder(w).Encode(map[string][]Envelope{
				"envelopes": {{
					ID:              "env-1",
					SenderID:        "alice",
					RecipientID:     "bob",
					ObjectReference: "obj-abc",
					WrappedKey:      "d3JhcHBlZA",
					Nonce:           "bm9uY2U",
					CreatedAt:       created,
				}},
			})
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))

	id, err := c.SubmitEnvelope(context.Background(), &EnvelopeSubmission{
		RecipientID:     "bob",
		ObjectReference: "obj-abc",
		WrappedKey:      "d3JhcHBlZA",
		Nonce:           "bm9uY2U",
		AttemptID:       "attempt-1",
	})
	if err != nil {
		t.Fatalf("SubmitEnvelope() error = %v", err)
	}
	if id != "env-1" {
		t.Errorf("id = %q, want env-1", id)
	}
	if gotSub.RecipientID != "bob" || gotSub.AttemptID != "attempt-1" {
		t.Errorf("submission = %+v", gotSub)
	}

	envelopes, err := c.ListEnvelopes(context.Background(), "bob")
	if err != nil {
		t.Fatalf("ListEnvelopes() error = %v", err)
	}
	if len(envelopes) != 1 || envelopes[0].ID != "env-1" {
		t.Errorf("envelopes = %+v", envelopes)
	}
	if !envelopes[0].CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v", envelopes[0].CreatedAt)
	}
}

func TestMarkEnvelopeRead(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/api/envelopes/env-9/read" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	if err := c.MarkEnvelopeRead(context.Background(), "env-9"); err != nil {
		t.Fatalf("MarkEnvelopeRead() error = %v", err)
	}
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"bad token"}`, ErrUnauthorized},
		{"rate limited", http.StatusTooManyRequests, `{"error":"slow down"}`, ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))

			_, err := c.ListEnvelopes(context.Background(), "")
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error %T is not *APIError", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
		})
	}
}

func TestNoAutomaticRetries(t *testing.T) {
	t.Parallel()
	var calls int
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))

	if _, err := c.ListEnvelopes(context.Background(), ""); err == nil {
		t.Fatal("expected error from 500 response")
	}
	if calls != 1 {
		t.Errorf("server saw %d calls, want exactly 1 (no retries)", calls)
	}
}
