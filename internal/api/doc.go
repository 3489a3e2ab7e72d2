// Package api provides the HTTP clients for the SealPost server-side
// collaborators: the public-key directory, the object relay, and the
// message-envelope service. Only opaque ciphertext, wrapped keys, and
// metadata cross this boundary — never plaintext or secret keys.
//
// The package deliberately performs no automatic retries. A failed call
// surfaces immediately to the coordinator, which treats resend as a fresh
// user-initiated attempt with fresh cryptographic material.
package api
