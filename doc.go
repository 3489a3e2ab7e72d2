// Package sealpost provides a Go client SDK for SealPost, an end-to-end
// encrypted direct-messaging service.
//
// Message content is encrypted on the sender's device with a fresh
// AES-256-GCM content key per message; the content key is wrapped to the
// recipient's X25519 public key. The server stores only ciphertext and
// routing metadata and can never read message content.
//
// Basic usage:
//
//	client, err := sealpost.New("alice", "access-token")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Ensure the local identity exists and is registered
//	if err := client.Enroll(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Send a message
//	envelopeID, err := client.Send(ctx, "bob", []byte("hello"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Wait for a reply
//	msg, err := client.WaitForMessage(ctx, sealpost.WithPartner("bob"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Reply:", msg.Text)
package sealpost
