package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Header names used by the Advanced Trade REST API.
const (
	HeaderKey       = "CB-ACCESS-KEY"
	HeaderSign      = "CB-ACCESS-SIGN"
	HeaderTimestamp = "CB-ACCESS-TIMESTAMP"
)

// Headers is the set of authentication headers for one request. Derived
// deterministically from the request and the signing time; single-use.
type Headers struct {
	Key       string
	Signature string
	Timestamp string
}

// Apply sets the authentication headers on an HTTP request.
func (h Headers) Apply(req *http.Request) {
	req.Header.Set(HeaderKey, h.Key)
	req.Header.Set(HeaderSign, h.Signature)
	req.Header.Set(HeaderTimestamp, h.Timestamp)
}

// SubscriptionAuth is the set of authentication fields merged into a
// websocket subscribe message.
type SubscriptionAuth struct {
	APIKey    string `json:"api_key"`
	Timestamp string `json:"timestamp"`
	Signature string `json:"signature"`
}

// Signer computes per-request authentication signatures from a shared
// secret. It holds no mutable state and is safe for concurrent use.
type Signer struct {
	creds Credentials
}

// NewSigner builds a signer from an API key pair. Fails with
// *ConfigurationError if the credentials are malformed.
func NewSigner(key, secret string) (*Signer, error) {
	creds, err := NewCredentials(key, secret)
	if err != nil {
		return nil, err
	}
	return &Signer{creds: creds}, nil
}

// Sign produces authentication headers for one REST request attempt.
// requestPath must include the query string when present. body is the
// serialized payload, empty when the request has none.
func (s *Signer) Sign(method, requestPath, body string, at time.Time) Headers {
	ts := timestamp(at)
	message := ts + strings.ToUpper(method) + requestPath + body

	return Headers{
		Key:       s.creds.Key,
		Signature: s.sign(message),
		Timestamp: ts,
	}
}

// SignSubscription produces authentication fields for a websocket
// subscribe message covering a channel and its product IDs.
func (s *Signer) SignSubscription(channel string, productIDs []string, at time.Time) SubscriptionAuth {
	ts := timestamp(at)
	message := ts + channel + strings.Join(productIDs, ",")

	return SubscriptionAuth{
		APIKey:    s.creds.Key,
		Timestamp: ts,
		Signature: s.sign(message),
	}
}

// Key returns the API key, for callers that need to echo it in request
// metadata. The secret is never exposed.
func (s *Signer) Key() string {
	return s.creds.Key
}

// sign computes the hex-encoded HMAC-SHA256 of message keyed by the API
// secret.
func (s *Signer) sign(message string) string {
	mac := hmac.New(sha256.New, []byte(s.creds.Secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// timestamp formats a signing time as unix seconds.
func timestamp(at time.Time) string {
	return strconv.FormatInt(at.Unix(), 10)
}
