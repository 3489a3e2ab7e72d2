// Package delivery provides the arrival-notification strategies used to
// learn about new envelopes addressed to the local user.
//
// # Delivery Strategies
//
// The package implements two delivery strategies:
//
//   - [SSEStrategy]: Holds a Server-Sent Events stream open and surfaces
//     arrival events as the server pushes them. Lowest latency, recommended
//     for most use cases.
//
//   - [PollingStrategy]: Periodically lists envelopes and reports the ones
//     it has not seen before. Uses adaptive backoff to reduce API calls
//     while the mailbox is quiet. Use when SSE is not available.
//
// [AutoStrategy] tries SSE first and falls back to polling when the stream
// cannot be established in time.
//
// # Usage
//
// All strategies implement the [Strategy] interface for event-driven delivery:
//
//	cfg := delivery.Config{APIClient: apiClient}
//	strategy := delivery.NewSSEStrategy(cfg)
//
//	strategy.Start(ctx, func(event *api.ArrivalEvent) error {
//	    // Handle new envelope arrival
//	    return nil
//	})
//	defer strategy.Stop()
//
// A strategy only reports that an envelope exists. Fetching and decrypting
// the referenced ciphertext is the caller's job, so a slow decryption never
// stalls the notification path.
//
// # Backoff and Reconnection
//
// Both strategies implement exponential backoff with jitter:
//
//   - Polling increases intervals from 2s to 30s max when nothing new arrives
//   - SSE reconnects with exponential backoff up to 10 attempts
//   - Jitter prevents thundering herd when multiple clients reconnect
//
// # Thread Safety
//
// All strategy types are safe for concurrent use.
package delivery
