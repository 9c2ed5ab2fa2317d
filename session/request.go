package session

import (
	"encoding/json"
	"net/url"
)

// Request describes one outbound API call. Constructed per call and
// consumed once by the transport.
type Request struct {
	// Method is the HTTP method (GET, POST, PUT, DELETE).
	Method string
	// Path is appended to the client's BaseURL.
	Path string
	// Query are URL query parameters, canonicalized (sorted) before use.
	Query url.Values
	// Body is the request payload. Accepts []byte, string, or any value
	// that will be JSON-encoded.
	Body any
}

// Response is the result of an API call.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers.
	Headers map[string]string
	// Body is the raw response body.
	Body []byte
	// Cached reports that the body was served from the response cache
	// without a network call.
	Cached bool
}

// IsSuccess returns true if the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the JSON response body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// canonicalQuery renders the query parameters in sorted-key order, so
// logically identical requests share one cache key regardless of
// parameter order.
func (r *Request) canonicalQuery() string {
	if len(r.Query) == 0 {
		return ""
	}
	return r.Query.Encode()
}
