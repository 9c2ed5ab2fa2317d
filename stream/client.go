package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cbkit/cbkit/auth"
	"github.com/cbkit/cbkit/logger"
	"github.com/cbkit/cbkit/resilience"
	"github.com/cbkit/cbkit/version"
)

// State is the connection lifecycle phase of a Client.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticating
	StateSubscribed
	StateClosing
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateSubscribed:
		return "subscribed"
	case StateClosing:
		return "closing"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

var (
	// ErrAlreadyListening reports a second Listen call on a running client.
	ErrAlreadyListening = errors.New("stream: already listening")
	// ErrClosed reports a Listen call on a closed client.
	ErrClosed = errors.New("stream: client closed")
)

// Feed endpoints by environment name.
var envEndpoints = map[string]string{
	"production": "wss://advanced-trade-ws.coinbase.com",
	"sandbox":    "wss://advanced-trade-ws-sandbox.coinbase.com",
}

// DefaultQueueSize is the capacity of the delivery channel. When the
// consumer falls behind, reads from the socket block rather than drop.
const DefaultQueueSize = 1024

const writeTimeout = 5 * time.Second

// Config configures a market data stream client.
type Config struct {
	// URL overrides the feed endpoint. Takes precedence over Env.
	URL string
	// Env selects a named endpoint ("production", "sandbox"). Defaults
	// to production.
	Env string

	// Key and Secret authenticate the subscription.
	Key    string
	Secret string

	// Channel is the feed channel to subscribe to.
	Channel string
	// ProductIDs are the currency pairs covered by the subscription.
	ProductIDs []string

	// QueueSize is the delivery channel capacity. Defaults to
	// DefaultQueueSize.
	QueueSize int

	// Reconnect shapes the redial backoff schedule. Attempts are
	// unbounded; only Backoff, MaxBackoff and Jitter apply. Defaults to
	// a one second base, a 60 second ceiling and 10% jitter.
	Reconnect resilience.RetryConfig

	// Logger receives connection lifecycle events. Defaults to a no-op
	// logger.
	Logger *logger.Logger

	// Dialer overrides the websocket dialer.
	Dialer *websocket.Dialer
}

func (c *Config) applyDefaults() error {
	if c.Channel == "" {
		return errors.New("stream: channel is required")
	}
	if c.URL == "" {
		env := c.Env
		if env == "" {
			env = "production"
		}
		url, ok := envEndpoints[env]
		if !ok {
			return fmt.Errorf("stream: unknown environment %q", env)
		}
		c.URL = url
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.Reconnect.Backoff <= 0 {
		c.Reconnect.Backoff = time.Second
	}
	if c.Reconnect.MaxBackoff <= 0 {
		c.Reconnect.MaxBackoff = 60 * time.Second
	}
	if c.Reconnect.Jitter <= 0 {
		c.Reconnect.Jitter = 0.1
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
	if c.Dialer == nil {
		c.Dialer = &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	}
	return nil
}

// subscribeMessage is the signed control frame that opens or closes a
// subscription. The embedded auth fields flatten into the payload.
type subscribeMessage struct {
	Type       string   `json:"type"`
	Channel    string   `json:"channel"`
	ProductIDs []string `json:"product_ids,omitempty"`
	auth.SubscriptionAuth
}

// Client is a reconnecting market data subscriber. Listen starts the
// connection loop; Messages delivers parsed envelopes until Close.
type Client struct {
	cfg    Config
	signer *auth.Signer
	log    *logger.Logger

	mu        sync.Mutex
	state     State
	conn      *websocket.Conn
	listening bool
	closed    bool

	// wmu serializes control-frame writes; the connection forbids
	// concurrent writers.
	wmu sync.Mutex

	done chan struct{}
	msgs chan Message
	wg   sync.WaitGroup
}

// New builds a stream client. Fails with *auth.ConfigurationError when
// the credentials are malformed.
func New(cfg Config) (*Client, error) {
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	signer, err := auth.NewSigner(cfg.Key, cfg.Secret)
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:    cfg,
		signer: signer,
		log:    cfg.Logger.WithComponent("stream"),
		done:   make(chan struct{}),
		msgs:   make(chan Message, cfg.QueueSize),
	}, nil
}

// Messages returns the delivery channel. It is closed after Close, or
// after the Listen context ends.
func (c *Client) Messages() <-chan Message {
	return c.msgs
}

// State returns the current connection phase.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Listen starts the connection loop in a background goroutine. It
// returns immediately; messages arrive on Messages. Calling Listen on
// a running client fails with ErrAlreadyListening.
func (c *Client) Listen(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.listening {
		c.mu.Unlock()
		return ErrAlreadyListening
	}
	c.listening = true
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run(ctx)
	return nil
}

// Close tears the stream down: a best-effort unsubscribe is sent, the
// connection is closed, and the delivery channel is closed once the
// loop drains. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.state = StateClosing
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		c.unsubscribe(conn)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeTimeout))
	}

	close(c.done)

	if conn != nil {
		conn.Close()
	}

	c.wg.Wait()

	c.mu.Lock()
	c.state = StateDisconnected
	c.mu.Unlock()
	return nil
}

// run dials, subscribes and reads until the client closes or the
// context ends. Every dropped connection is redialed on the backoff
// schedule; the attempt counter resets after each successful
// subscription.
func (c *Client) run(ctx context.Context) {
	defer c.wg.Done()
	defer close(c.msgs)

	attempt := 0
	for {
		if c.stopping(ctx) {
			return
		}

		conn, err := c.connect(ctx)
		if err != nil {
			attempt++
			if !c.backoff(ctx, attempt) {
				return
			}
			continue
		}
		attempt = 0

		if c.stopping(ctx) {
			conn.Close()
			return
		}

		// Unblock the blocking read when the stream is being torn down.
		stop := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				conn.Close()
			case <-c.done:
				conn.Close()
			case <-stop:
			}
		}()

		err = c.readLoop(ctx, conn)
		close(stop)
		conn.Close()
		c.setConn(nil, StateDisconnected)
		if c.stopping(ctx) {
			return
		}

		c.log.Warn("connection lost, reconnecting", logger.Fields(
			logger.FieldChannel, c.cfg.Channel,
			logger.FieldError, err,
		))
		attempt++
		if !c.backoff(ctx, attempt) {
			return
		}
	}
}

// connect dials the feed and sends a freshly signed subscribe message.
func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	c.setConn(nil, StateConnecting)
	c.log.Debug("dialing feed", logger.Fields("url", c.cfg.URL))

	header := http.Header{"User-Agent": []string{version.UserAgent()}}
	conn, resp, err := c.cfg.Dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		c.log.Warn("dial failed", logger.Fields(logger.FieldError, err))
		return nil, err
	}

	c.setConn(conn, StateAuthenticating)

	sub := subscribeMessage{
		Type:             "subscribe",
		Channel:          c.cfg.Channel,
		ProductIDs:       c.cfg.ProductIDs,
		SubscriptionAuth: c.signer.SignSubscription(c.cfg.Channel, c.cfg.ProductIDs, time.Now()),
	}
	if err := c.writeControl(conn, sub); err != nil {
		conn.Close()
		c.setConn(nil, StateDisconnected)
		return nil, fmt.Errorf("stream: subscribe: %w", err)
	}

	c.setConn(conn, StateSubscribed)
	c.log.Info("subscribed", logger.Fields(
		logger.FieldChannel, c.cfg.Channel,
		logger.FieldProducts, c.cfg.ProductIDs,
	))
	return conn, nil
}

// readLoop parses and delivers frames until the connection drops.
// Frames that do not parse are dropped. Delivery blocks when the queue
// is full; a slow consumer slows the socket, nothing is discarded.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Debug("dropping malformed frame", logger.Fields(logger.FieldError, err))
			continue
		}

		select {
		case c.msgs <- msg:
		case <-c.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// unsubscribe sends a signed unsubscribe for the active channel. Errors
// are ignored; the connection is going away regardless.
func (c *Client) unsubscribe(conn *websocket.Conn) {
	unsub := subscribeMessage{
		Type:             "unsubscribe",
		Channel:          c.cfg.Channel,
		ProductIDs:       c.cfg.ProductIDs,
		SubscriptionAuth: c.signer.SignSubscription(c.cfg.Channel, c.cfg.ProductIDs, time.Now()),
	}
	c.writeControl(conn, unsub)
}

// writeControl sends one subscribe or unsubscribe frame under the write
// lock and a bounded deadline.
func (c *Client) writeControl(conn *websocket.Conn, msg subscribeMessage) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	defer conn.SetWriteDeadline(time.Time{})
	return conn.WriteJSON(msg)
}

// backoff sleeps before the next redial. Returns false when the client
// closes or the context ends during the wait. The attempt counter is
// capped so the computed delay saturates at the ceiling instead of
// overflowing.
func (c *Client) backoff(ctx context.Context, attempt int) bool {
	if attempt > 16 {
		attempt = 16
	}
	delay := resilience.Delay(attempt, c.cfg.Reconnect)

	c.log.Debug("waiting before reconnect", logger.Fields(
		logger.FieldAttempt, attempt,
		logger.FieldBackoff, delay,
	))

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-c.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (c *Client) stopping(ctx context.Context) bool {
	select {
	case <-c.done:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// setConn records the active connection and state. A connection handed
// over after Close started is closed on the spot so the read loop
// unblocks.
func (c *Client) setConn(conn *websocket.Conn, state State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		if conn != nil {
			conn.Close()
		}
		return
	}
	c.conn = conn
	c.state = state
}
