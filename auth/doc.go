// Package auth implements HMAC-SHA256 request signing for the Advanced
// Trade API.
//
// REST requests carry CB-ACCESS-KEY, CB-ACCESS-SIGN, and
// CB-ACCESS-TIMESTAMP headers computed over the request method, path,
// and body. Websocket subscriptions carry api_key, timestamp, and
// signature fields computed over the channel and product IDs.
//
// Timestamps are valid only within a short server-enforced window, so a
// signature is computed freshly for every attempt and never reused.
// Signing is pure and safe for concurrent use.
package auth
