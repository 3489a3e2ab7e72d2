package sealpost

import (
	"sync"
)

// Subscription represents an active subscription that can be unsubscribed.
type Subscription interface {
	// Unsubscribe stops the subscription and releases resources.
	Unsubscribe()
}

// MessageCallback is called when a new message arrives.
type MessageCallback func(msg *Message)

// ConversationMonitor monitors one or more conversations for new messages.
// It provides an event-emitter like pattern for receiving notifications.
//
// The monitor uses the client's delivery strategy (SSE, polling, or auto);
// with SSE enabled, messages are delivered as soon as the server pushes
// the arrival.
type ConversationMonitor struct {
	client        *Client
	partnerIDs    []string
	callbacks     []MessageCallback
	subscriptions []Subscription
	mu            sync.RWMutex
	started       bool
	unsubscribers []func()
}

// internalSubscription implements the Subscription interface.
type internalSubscription struct {
	cancel func()
}

func (s *internalSubscription) Unsubscribe() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Monitor creates a monitor for the given conversation partners. With no
// partners, the monitor covers every conversation.
func (c *Client) Monitor(partnerIDs ...string) *ConversationMonitor {
	if len(partnerIDs) == 0 {
		partnerIDs = []string{""}
	}
	return &ConversationMonitor{
		client:     c,
		partnerIDs: partnerIDs,
		callbacks:  make([]MessageCallback, 0),
	}
}

// OnMessage registers a callback to be called when a new message arrives in
// any monitored conversation. Returns a Subscription that can be used to
// unsubscribe this specific callback.
func (m *ConversationMonitor) OnMessage(callback MessageCallback) Subscription {
	m.mu.Lock()
	m.callbacks = append(m.callbacks, callback)
	callbackIndex := len(m.callbacks) - 1
	m.mu.Unlock()

	// Start monitoring if not already started
	m.startMonitoring()

	sub := &internalSubscription{
		cancel: func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			// Mark this callback as nil (don't remove to preserve indices)
			if callbackIndex < len(m.callbacks) {
				m.callbacks[callbackIndex] = nil
			}
		},
	}

	m.mu.Lock()
	m.subscriptions = append(m.subscriptions, sub)
	m.mu.Unlock()

	return sub
}

// Unsubscribe stops monitoring all conversations and releases resources.
func (m *ConversationMonitor) Unsubscribe() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, unsub := range m.unsubscribers {
		unsub()
	}

	m.callbacks = nil
	m.subscriptions = nil
	m.unsubscribers = nil
	m.started = false
}

// startMonitoring begins the monitoring process if not already started.
func (m *ConversationMonitor) startMonitoring() {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	for _, partnerID := range m.partnerIDs {
		unsub := m.client.subs.subscribe(partnerID, func(msg *Message) {
			m.emitMessage(msg)
		})
		m.mu.Lock()
		m.unsubscribers = append(m.unsubscribers, unsub)
		m.mu.Unlock()
	}
}

// emitMessage calls all registered callbacks with the new message.
func (m *ConversationMonitor) emitMessage(msg *Message) {
	m.mu.RLock()
	callbacks := make([]MessageCallback, len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.RUnlock()

	// Low volume expected; spawning per-message is fine.
	for _, callback := range callbacks {
		if callback != nil {
			go callback(msg)
		}
	}
}
