package sealpost

import (
	"strconv"
	"sync"
	"sync/atomic"
)

// subscription represents an active message subscription.
type subscription struct {
	id        string
	partnerID string
	callback  func(*Message)
	active    atomic.Bool
}

// subscriptionManager handles message subscriptions with safe lifecycle
// management. It ensures callbacks are never invoked after unsubscription
// completes. The empty partner ID subscribes to all conversations.
type subscriptionManager struct {
	mu     sync.RWMutex
	subs   map[string]map[string]*subscription // partnerID -> subID -> subscription
	nextID atomic.Uint64
}

// newSubscriptionManager creates a new subscription manager.
func newSubscriptionManager() *subscriptionManager {
	return &subscriptionManager{
		subs: make(map[string]map[string]*subscription),
	}
}

// subscribe registers a callback for messages arriving from the given
// partner ("" for all partners). The callback is invoked synchronously
// when messages arrive. Returns an unsubscribe function that must be
// called to clean up.
func (m *subscriptionManager) subscribe(partnerID string, callback func(*Message)) func() {
	id := strconv.FormatUint(m.nextID.Add(1), 10)

	sub := &subscription{
		id:        id,
		partnerID: partnerID,
		callback:  callback,
	}
	sub.active.Store(true)

	m.mu.Lock()
	if m.subs[partnerID] == nil {
		m.subs[partnerID] = make(map[string]*subscription)
	}
	m.subs[partnerID][id] = sub
	m.mu.Unlock()

	return func() {
		m.unsubscribe(partnerID, id)
	}
}

// unsubscribe removes a subscription. Safe to call multiple times.
func (m *subscriptionManager) unsubscribe(partnerID, subID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if partnerSubs, ok := m.subs[partnerID]; ok {
		if sub, ok := partnerSubs[subID]; ok {
			sub.active.Store(false) // Mark inactive before removing
			delete(partnerSubs, subID)
			if len(partnerSubs) == 0 {
				delete(m.subs, partnerID)
			}
		}
	}
}

// notify calls all callbacks registered for the given partner, plus the
// all-partners subscribers. Callbacks are invoked synchronously after
// releasing the read lock. The active flag is checked before invoking to
// prevent calls after unsubscribe.
func (m *subscriptionManager) notify(partnerID string, msg *Message) {
	m.mu.RLock()
	var subs []*subscription
	for _, sub := range m.subs[partnerID] {
		subs = append(subs, sub)
	}
	if partnerID != "" {
		for _, sub := range m.subs[""] {
			subs = append(subs, sub)
		}
	}
	m.mu.RUnlock()

	for _, sub := range subs {
		if sub.active.Load() {
			sub.callback(msg)
		}
	}
}

// clear removes all subscriptions. Called during Client.Close().
func (m *subscriptionManager) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, partnerSubs := range m.subs {
		for _, sub := range partnerSubs {
			sub.active.Store(false)
		}
	}
	m.subs = make(map[string]map[string]*subscription)
}
