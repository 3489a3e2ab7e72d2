package sealpost

import (
	"time"

	"github.com/sealpost/messaging-go/internal/api"
)

// Direction indicates whether a message was sent or received by the local user.
type Direction string

const (
	// DirectionIncoming marks a message sent to the local user.
	DirectionIncoming Direction = "incoming"
	// DirectionOutgoing marks a message sent by the local user.
	DirectionOutgoing Direction = "outgoing"
)

// MessageState tracks the per-session decryption lifecycle of an envelope.
type MessageState string

const (
	// StateUnfetched means the ciphertext has not been requested yet.
	StateUnfetched MessageState = "unfetched"
	// StateFetching means a download/decrypt is in flight.
	StateFetching MessageState = "fetching"
	// StateDecrypted means the plaintext is cached for this session.
	StateDecrypted MessageState = "decrypted"
	// StateFailed means decryption failed; the failure is terminal for
	// this session and will not be retried.
	StateFailed MessageState = "failed"
)

// Envelope is the metadata record the server keeps for one message.
// The server never sees the plaintext: the envelope carries an opaque
// object reference plus the wrapped content key and nonce needed to
// decrypt the referenced ciphertext. ReadAt is the only field that ever
// changes after creation.
type Envelope struct {
	ID              string
	SenderID        string
	RecipientID     string
	ObjectReference string
	WrappedKey      string // base64url
	Nonce           string // base64url
	CreatedAt       time.Time
	ReadAt          *time.Time
}

// PartnerID returns the conversation partner from the local user's
// perspective.
func (e *Envelope) PartnerID(userID string) string {
	if e.SenderID == userID {
		return e.RecipientID
	}
	return e.SenderID
}

// Message is the decrypted view of an envelope.
type Message struct {
	EnvelopeID string
	PartnerID  string
	Direction  Direction
	Text       string
	CreatedAt  time.Time
	ReadAt     *time.Time
}

// ConversationSummary describes one conversation, derived from the
// envelope list. Summaries are ordered by LastMessageAt, most recent
// first.
type ConversationSummary struct {
	PartnerID     string
	LastMessageAt time.Time
	UnreadCount   int
}

func envelopeFromAPI(e *api.Envelope) *Envelope {
	return &Envelope{
		ID:              e.ID,
		SenderID:        e.SenderID,
		RecipientID:     e.RecipientID,
		ObjectReference: e.ObjectReference,
		WrappedKey:      e.WrappedKey,
		Nonce:           e.Nonce,
		CreatedAt:       e.CreatedAt,
		ReadAt:          e.ReadAt,
	}
}
