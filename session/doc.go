// Package session provides the authenticated HTTP transport for the
// Advanced Trade REST API.
//
// Every request is signed freshly per attempt and retried with
// exponential backoff on transient failures (timeouts, connection
// errors, 5xx, 429). GET responses are served from and stored into a
// TTL cache. Mutating verbs invalidate cached entries in the same resource
// family so a write is never followed by a stale read.
//
// # Usage
//
//	client, err := session.New(session.Config{Key: key, Secret: secret})
//	resp, err := client.Do(ctx, session.Request{
//	    Method: http.MethodGet,
//	    Path:   "/accounts",
//	})
//
// A Client is safe for concurrent use; the response cache is its only
// shared mutable state.
package session
