package api

import "time"

// PublicKeyRecord is a user's active entry in the public-key directory.
type PublicKeyRecord struct {
	UserID       string    `json:"userId"`
	PublicKey    string    `json:"publicKey"` // base64url X25519 public key
	RegisteredAt time.Time `json:"registeredAt"`
}

// UploadTarget is the relay's answer to an upload request.
type UploadTarget struct {
	UploadURL       string `json:"uploadUrl"`
	ObjectReference string `json:"objectReference"`
}

// DownloadTarget is the relay's answer to a download request. The wrapped
// key and nonce mirror the envelope record so a client holding only the
// object reference can still decrypt.
type DownloadTarget struct {
	DownloadURL string `json:"downloadUrl"`
	WrappedKey  string `json:"wrappedKey,omitempty"`
	Nonce       string `json:"nonce,omitempty"`
}

// EnvelopeSubmission is the payload for creating a message envelope.
// AttemptID is a client-generated identifier correlating one send attempt
// across upload and submission; a resend carries a fresh one.
type EnvelopeSubmission struct {
	RecipientID     string `json:"recipientId"`
	ObjectReference string `json:"objectReference"`
	WrappedKey      string `json:"wrappedKey"`
	Nonce           string `json:"nonce"`
	AttemptID       string `json:"attemptId,omitempty"`
}

// Envelope is the server-stored metadata for one encrypted message.
// It never contains plaintext.
type Envelope struct {
	ID              string     `json:"id"`
	SenderID        string     `json:"senderId"`
	RecipientID     string     `json:"recipientId"`
	ObjectReference string     `json:"objectReference"`
	WrappedKey      string     `json:"wrappedKey"`
	Nonce           string     `json:"nonce"`
	CreatedAt       time.Time  `json:"createdAt"`
	ReadAt          *time.Time `json:"readAt,omitempty"`
}

// ArrivalEvent is a lightweight realtime signal that a new envelope exists.
// It carries no ciphertext.
type ArrivalEvent struct {
	SenderID   string `json:"senderId"`
	EnvelopeID string `json:"envelopeId"`
}
