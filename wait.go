package sealpost

import (
	"context"
)

// Watch returns a channel that receives decrypted messages as they arrive
// from the given partner ("" for all partners). The channel is not closed
// when the context is cancelled; use a select on ctx.Done() to detect
// cancellation.
//
// Example:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
//	defer cancel()
//
//	ch := client.Watch(ctx, "bob")
//	for {
//	    select {
//	    case <-ctx.Done():
//	        return
//	    case msg := <-ch:
//	        fmt.Printf("%s: %s\n", msg.PartnerID, msg.Text)
//	    }
//	}
func (c *Client) Watch(ctx context.Context, partnerID string) <-chan *Message {
	ch := make(chan *Message, 16)

	// Subscribe with callback that sends to channel
	unsubscribe := c.subs.subscribe(partnerID, func(msg *Message) {
		select {
		case ch <- msg:
		default:
			// Buffer full, drop
		}
	})

	// Cleanup goroutine: unsubscribe when context is cancelled.
	// We intentionally do not close(ch) to avoid a race where an
	// in-flight callback tries to send after close.
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()

	return ch
}

// WatchFunc calls fn for each message as it arrives until the context is
// cancelled. This is a convenience wrapper around Watch.
//
// Example:
//
//	client.WatchFunc(ctx, "bob", func(msg *sealpost.Message) {
//	    fmt.Printf("%s: %s\n", msg.PartnerID, msg.Text)
//	})
func (c *Client) WatchFunc(ctx context.Context, partnerID string, fn func(*Message)) {
	messages := c.Watch(ctx, partnerID)
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-messages:
			if msg != nil {
				fn(msg)
			}
		}
	}
}

// WaitForMessage waits for a message matching the given criteria. It uses
// the client's notification infrastructure, so with SSE active the wait
// resolves as soon as the server pushes the arrival.
func (c *Client) WaitForMessage(ctx context.Context, opts ...WaitOption) (*Message, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	cfg := &waitConfig{
		timeout: c.timeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	// 1. Start watching FIRST to avoid a race with arrivals.
	messages := c.Watch(ctx, cfg.partnerID)

	// 2. Check messages already decrypted this session.
	c.mu.RLock()
	var existing []*Message
	for _, entry := range c.sessions {
		if entry.state == StateDecrypted && entry.msg.Direction == DirectionIncoming {
			existing = append(existing, entry.msg)
		}
	}
	c.mu.RUnlock()
	for _, msg := range existing {
		if cfg.Matches(msg) {
			return msg, nil
		}
	}

	// 3. Wait for new arrivals.
	for {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return nil, &TimeoutError{Operation: "wait for message", Timeout: cfg.timeout}
			}
			return nil, ctx.Err()
		case msg := <-messages:
			if msg != nil && cfg.Matches(msg) {
				return msg, nil
			}
		}
	}
}
