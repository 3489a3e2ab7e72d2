package sealpost

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/sealpost/messaging-go/internal/crypto"
)

func TestSend_HappyPath(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	alice := env.newClient(t, "alice")
	env.newClient(t, "bob")

	plaintext := []byte("hello bob")
	envelopeID, err := alice.Send(context.Background(), "bob", plaintext)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if envelopeID == "" {
		t.Fatal("Send() returned empty envelope ID")
	}

	env.backend.mu.Lock()
	defer env.backend.mu.Unlock()

	if env.backend.uploadCalls != 1 {
		t.Errorf("upload calls = %d, want 1", env.backend.uploadCalls)
	}
	if env.backend.submitCalls != 1 {
		t.Errorf("submit calls = %d, want 1", env.backend.submitCalls)
	}
	if len(env.backend.envelopes) != 1 {
		t.Fatalf("stored envelopes = %d, want 1", len(env.backend.envelopes))
	}

	rec := env.backend.envelopes[0]
	if rec.ID != envelopeID {
		t.Errorf("stored envelope ID = %q, want %q", rec.ID, envelopeID)
	}
	if rec.SenderID != "alice" || rec.RecipientID != "bob" {
		t.Errorf("envelope parties = %q -> %q, want alice -> bob", rec.SenderID, rec.RecipientID)
	}
	if rec.ReadAt != nil {
		t.Error("new envelope must not carry a read timestamp")
	}

	wrappedKey, err := crypto.FromBase64URL(rec.WrappedKey)
	if err != nil {
		t.Fatalf("wrapped key is not base64url: %v", err)
	}
	if len(wrappedKey) != crypto.WrappedKeySize {
		t.Errorf("wrapped key size = %d, want %d", len(wrappedKey), crypto.WrappedKeySize)
	}
	nonce, err := crypto.FromBase64URL(rec.Nonce)
	if err != nil {
		t.Fatalf("nonce is not base64url: %v", err)
	}
	if len(nonce) != crypto.AESNonceSize {
		t.Errorf("nonce size = %d, want %d", len(nonce), crypto.AESNonceSize)
	}

	blob := env.backend.blobs[rec.ObjectReference]
	if len(blob) == 0 {
		t.Fatal("no ciphertext stored for the envelope's object reference")
	}
	if bytes.Contains(blob, plaintext) {
		t.Error("stored blob contains the plaintext")
	}
}

func TestSend_DeliversReadablePlaintext(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	alice := env.newClient(t, "alice")
	bob := env.newClient(t, "bob")

	envelopeID, err := alice.Send(context.Background(), "bob", []byte("the eagle has landed"))
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	msg, err := bob.Read(context.Background(), envelopeID)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if msg.Text != "the eagle has landed" {
		t.Errorf("plaintext = %q, want %q", msg.Text, "the eagle has landed")
	}
	if msg.Direction != DirectionIncoming {
		t.Errorf("direction = %q, want %q", msg.Direction, DirectionIncoming)
	}
	if msg.PartnerID != "alice" {
		t.Errorf("partner = %q, want alice", msg.PartnerID)
	}
}

func TestSend_MissingRecipientKey(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	alice := env.newClient(t, "alice")

	_, err := alice.Send(context.Background(), "nobody", []byte("hello?"))
	if !errors.Is(err, ErrRecipientKeyUnavailable) {
		t.Fatalf("Send to unknown recipient: error = %v, want ErrRecipientKeyUnavailable", err)
	}

	// A failed lookup must leave zero side effects.
	env.backend.mu.Lock()
	defer env.backend.mu.Unlock()
	if env.backend.uploadCalls != 0 {
		t.Errorf("upload calls = %d, want 0", env.backend.uploadCalls)
	}
	if env.backend.submitCalls != 0 {
		t.Errorf("submit calls = %d, want 0", env.backend.submitCalls)
	}
	if len(env.backend.envelopes) != 0 {
		t.Errorf("stored envelopes = %d, want 0", len(env.backend.envelopes))
	}
}

func TestSend_FreshKeyPerAttempt(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	alice := env.newClient(t, "alice")
	env.newClient(t, "bob")

	for i := 0; i < 2; i++ {
		if _, err := alice.Send(context.Background(), "bob", []byte("same words")); err != nil {
			t.Fatalf("Send() attempt %d error = %v", i, err)
		}
	}

	env.backend.mu.Lock()
	defer env.backend.mu.Unlock()
	if len(env.backend.envelopes) != 2 {
		t.Fatalf("stored envelopes = %d, want 2", len(env.backend.envelopes))
	}
	a, b := env.backend.envelopes[0], env.backend.envelopes[1]
	if a.WrappedKey == b.WrappedKey {
		t.Error("two sends reused the same wrapped key")
	}
	if a.Nonce == b.Nonce {
		t.Error("two sends reused the same nonce")
	}
	if a.ObjectReference == b.ObjectReference {
		t.Error("two sends reused the same object reference")
	}
	if bytes.Equal(env.backend.blobs[a.ObjectReference], env.backend.blobs[b.ObjectReference]) {
		t.Error("two sends of the same plaintext produced identical ciphertexts")
	}
}

func TestSend_UploadFailure(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	alice := env.newClient(t, "alice")
	env.newClient(t, "bob")

	env.backend.mu.Lock()
	env.backend.failUpload = true
	env.backend.mu.Unlock()

	_, err := alice.Send(context.Background(), "bob", []byte("doomed"))
	var delivery *DeliveryError
	if !errors.As(err, &delivery) {
		t.Fatalf("Send with failing upload: error = %v, want *DeliveryError", err)
	}
	if delivery.Stage != "upload" {
		t.Errorf("delivery stage = %q, want %q", delivery.Stage, "upload")
	}
	if !errors.Is(err, ErrDeliverySend) {
		t.Error("delivery error does not match ErrDeliverySend")
	}

	// No envelope was submitted for the failed upload.
	env.backend.mu.Lock()
	defer env.backend.mu.Unlock()
	if env.backend.submitCalls != 0 {
		t.Errorf("submit calls = %d, want 0", env.backend.submitCalls)
	}
}

func TestSend_SubmitFailure(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	alice := env.newClient(t, "alice")
	env.newClient(t, "bob")

	env.backend.mu.Lock()
	env.backend.failSubmit = true
	env.backend.mu.Unlock()

	_, err := alice.Send(context.Background(), "bob", []byte("doomed"))
	var delivery *DeliveryError
	if !errors.As(err, &delivery) {
		t.Fatalf("Send with failing submission: error = %v, want *DeliveryError", err)
	}
	if delivery.Stage != "submit" {
		t.Errorf("delivery stage = %q, want %q", delivery.Stage, "submit")
	}

	// The orphaned blob is the server's to collect; no envelope exists.
	env.backend.mu.Lock()
	defer env.backend.mu.Unlock()
	if len(env.backend.envelopes) != 0 {
		t.Errorf("stored envelopes = %d, want 0", len(env.backend.envelopes))
	}
}

func TestSend_EmptyRecipient(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	alice := env.newClient(t, "alice")

	if _, err := alice.Send(context.Background(), "", []byte("hi")); err == nil {
		t.Error("Send with empty recipient did not fail")
	}
}
