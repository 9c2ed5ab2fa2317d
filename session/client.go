package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cbkit/cbkit/auth"
	"github.com/cbkit/cbkit/logger"
	"github.com/cbkit/cbkit/resilience"
	"github.com/cbkit/cbkit/version"
)

// Client executes signed API calls with retry, backoff, and response
// caching. Safe for concurrent use; the cache is the only shared
// mutable state and is internally synchronized.
type Client struct {
	httpClient *http.Client
	config     Config
	signer     *auth.Signer
	cache      *responseCache
	rl         *resilience.RateLimiter
	log        *logger.Logger
}

// New creates a transport client. Malformed credentials fail here with
// *auth.ConfigurationError; no request is ever attempted with them.
func New(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	signer, err := auth.NewSigner(cfg.Key, cfg.Secret)
	if err != nil {
		return nil, err
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		signer:     signer,
		log:        cfg.Logger.WithComponent("session"),
	}

	if !cfg.Cache.Disabled {
		c.cache = newResponseCache(cfg.Cache.TTL)
	}
	if cfg.RateLimiter != nil {
		c.rl = resilience.NewRateLimiter(*cfg.RateLimiter)
	}

	return c, nil
}

// Do executes one logical API call: cache lookup, retry loop with fresh
// signatures per attempt, classification, and cache maintenance. The
// calling goroutine blocks for the duration of all attempts.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	key := cacheKey(req.Method, req.Path, req.canonicalQuery())

	if req.Method == http.MethodGet && c.cache != nil {
		if resp, ok := c.cache.get(key); ok {
			c.debugf("cache hit", logger.Fields(
				logger.FieldMethod, req.Method,
				logger.FieldPath, req.Path,
			))
			return resp, nil
		}
	}

	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, &Error{
			Code:    ErrCodeClient,
			Message: fmt.Sprintf("encode body: %v", err),
		}
	}

	retryCfg := resilience.RetryConfig{
		MaxAttempts: c.config.Retries,
		Backoff:     c.config.Backoff,
		MaxBackoff:  c.config.MaxBackoff,
		Jitter:      0.1,
		RetryIf:     IsRetryable,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			c.debugf("retrying request", logger.Fields(
				logger.FieldMethod, req.Method,
				logger.FieldPath, req.Path,
				logger.FieldAttempt, attempt,
				logger.FieldBackoff, delay.String(),
				logger.FieldError, err.Error(),
			))
		},
	}

	resp, err := resilience.Retry(ctx, retryCfg, func() (*Response, error) {
		return c.doOnce(ctx, req, body)
	})
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		switch req.Method {
		case http.MethodGet:
			c.cache.set(key, req.Path, resp)
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			c.cache.invalidateFamily(req.Path)
		}
	}

	return resp, nil
}

// Close releases idle connections. Safe to call more than once.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// doOnce executes a single signed attempt.
func (c *Client) doOnce(ctx context.Context, req Request, body []byte) (*Response, error) {
	if c.rl != nil {
		if err := c.rl.Wait(ctx); err != nil {
			return nil, err
		}
	}

	httpReq, err := c.buildRequest(ctx, req, body)
	if err != nil {
		return nil, err
	}

	if c.config.Debug {
		c.log.Debug("request", logger.Fields(
			logger.FieldMethod, httpReq.Method,
			logger.FieldPath, httpReq.URL.RequestURI(),
			"headers", logger.Redact(flattenHeaders(httpReq.Header)),
		))
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if isTimeout(err) {
			return nil, NewTimeoutError(err)
		}
		return nil, NewConnectionError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewConnectionError(fmt.Errorf("read response body: %w", err))
	}

	if c.config.Debug {
		c.log.Debug("response", logger.Fields(
			logger.FieldStatus, resp.StatusCode,
			logger.FieldPath, httpReq.URL.RequestURI(),
			"bytes", len(respBody),
		))
	}

	if classErr := ClassifyStatusCode(resp.StatusCode, respBody); classErr != nil {
		return nil, classErr
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
		Body:       respBody,
	}, nil
}

// buildRequest constructs and signs one attempt. The signature covers
// the request path including the canonical query string and is computed
// against the current clock, so every attempt carries a fresh
// single-use timestamp.
func (c *Client) buildRequest(ctx context.Context, req Request, body []byte) (*http.Request, error) {
	fullURL := strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(req.Path, "/")

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, reader)
	if err != nil {
		return nil, &Error{Code: ErrCodeClient, Message: fmt.Sprintf("create request: %v", err)}
	}

	if q := req.canonicalQuery(); q != "" {
		httpReq.URL.RawQuery = q
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept-Charset", "utf-8")
	httpReq.Header.Set("User-Agent", version.UserAgent())

	c.signer.Sign(req.Method, httpReq.URL.RequestURI(), string(body), time.Now()).Apply(httpReq)

	return httpReq, nil
}

// debugf logs only when debug mode is on.
func (c *Client) debugf(msg string, fields map[string]interface{}) {
	if c.config.Debug {
		c.log.Debug(msg, fields)
	}
}

// encodeBody converts a request payload into bytes for both signing and
// transmission.
func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	switch v := body.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return json.Marshal(v)
	}
}

// isTimeout reports whether a transport failure was a timeout rather
// than a connection-level problem.
func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// flattenHeaders converts multi-value headers to single-value.
func flattenHeaders(h http.Header) map[string]string {
	result := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			result[k] = v[0]
		}
	}
	return result
}
