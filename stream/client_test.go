package stream

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cbkit/cbkit/resilience"
)

var upgrader = websocket.Upgrader{}

// wsServer runs handler for every websocket connection and returns the
// ws:// URL to dial.
func wsServer(t *testing.T, handler func(conn *websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testConfig(url string) Config {
	return Config{
		URL:        url,
		Key:        "test-key",
		Secret:     "test-secret",
		Channel:    ChannelTicker,
		ProductIDs: []string{"BTC-USD", "ETH-USD"},
		Reconnect:  resilience.RetryConfig{Backoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond},
	}
}

// receivedSubscription is the control frame as seen by the server.
type receivedSubscription struct {
	Type       string   `json:"type"`
	Channel    string   `json:"channel"`
	ProductIDs []string `json:"product_ids"`
	APIKey     string   `json:"api_key"`
	Timestamp  string   `json:"timestamp"`
	Signature  string   `json:"signature"`
}

func readSubscription(t *testing.T, conn *websocket.Conn) receivedSubscription {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var sub receivedSubscription
	if err := conn.ReadJSON(&sub); err != nil {
		t.Errorf("reading subscription: %v", err)
	}
	return sub
}

func subscriptionSignature(secret, timestamp, channel string, productIDs []string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + channel + strings.Join(productIDs, ",")))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestListen_SubscribesWithValidSignature(t *testing.T) {
	got := make(chan receivedSubscription, 1)
	url := wsServer(t, func(conn *websocket.Conn) {
		got <- readSubscription(t, conn)
		conn.WriteJSON(map[string]any{
			"channel":      ChannelTicker,
			"sequence_num": 1,
			"events": []map[string]any{{
				"type": "update",
				"tickers": []map[string]any{{
					"product_id": "BTC-USD",
					"price":      "30000.50",
				}},
			}},
		})
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		conn.ReadMessage()
	})

	c, err := New(testConfig(url))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	if err := c.Listen(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sub := <-got
	if sub.Type != "subscribe" || sub.Channel != ChannelTicker {
		t.Errorf("unexpected control frame: %+v", sub)
	}
	if len(sub.ProductIDs) != 2 || sub.ProductIDs[0] != "BTC-USD" {
		t.Errorf("unexpected products: %v", sub.ProductIDs)
	}
	if sub.APIKey != "test-key" {
		t.Errorf("unexpected api key %q", sub.APIKey)
	}
	want := subscriptionSignature("test-secret", sub.Timestamp, sub.Channel, sub.ProductIDs)
	if sub.Signature != want {
		t.Errorf("signature mismatch: got %s want %s", sub.Signature, want)
	}

	select {
	case msg := <-c.Messages():
		if msg.Channel != ChannelTicker || msg.SequenceNum != 1 {
			t.Errorf("unexpected message: %+v", msg)
		}
		events, err := msg.TickerEvents()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(events) != 1 || len(events[0].Tickers) != 1 {
			t.Fatalf("unexpected events: %+v", events)
		}
		if events[0].Tickers[0].Price.String() != "30000.5" {
			t.Errorf("unexpected price: %s", events[0].Tickers[0].Price)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestListen_ResubscribesAfterDrop(t *testing.T) {
	var conns int32
	subs := make(chan receivedSubscription, 4)
	url := wsServer(t, func(conn *websocket.Conn) {
		n := atomic.AddInt32(&conns, 1)
		subs <- readSubscription(t, conn)
		if n == 1 {
			// drop the first connection right after the subscribe
			return
		}
		conn.WriteJSON(map[string]any{"channel": ChannelTicker, "sequence_num": 2, "events": []any{}})
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		conn.ReadMessage()
	})

	c, err := New(testConfig(url))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	if err := c.Listen(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := <-subs
	var second receivedSubscription
	select {
	case second = <-subs:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for resubscribe")
	}

	if second.Type != "subscribe" {
		t.Errorf("expected a fresh subscribe, got %+v", second)
	}
	want := subscriptionSignature("test-secret", second.Timestamp, second.Channel, second.ProductIDs)
	if second.Signature != want {
		t.Errorf("resubscribe signature invalid")
	}
	_ = first

	select {
	case msg := <-c.Messages():
		if msg.SequenceNum != 2 {
			t.Errorf("unexpected message after reconnect: %+v", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for post-reconnect message")
	}
}

func TestListen_SecondCallFails(t *testing.T) {
	url := wsServer(t, func(conn *websocket.Conn) {
		readSubscription(t, conn)
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		conn.ReadMessage()
	})

	c, err := New(testConfig(url))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	if err := c.Listen(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Listen(context.Background()); err != ErrAlreadyListening {
		t.Fatalf("expected ErrAlreadyListening, got %v", err)
	}
}

func TestListen_DropsMalformedFrames(t *testing.T) {
	url := wsServer(t, func(conn *websocket.Conn) {
		readSubscription(t, conn)
		conn.WriteMessage(websocket.TextMessage, []byte("{not json"))
		conn.WriteJSON(map[string]any{"channel": ChannelTicker, "sequence_num": 7, "events": []any{}})
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		conn.ReadMessage()
	})

	c, err := New(testConfig(url))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	if err := c.Listen(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case msg := <-c.Messages():
		if msg.SequenceNum != 7 {
			t.Errorf("malformed frame was delivered: %+v", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for valid frame")
	}
}

func TestClose_IsIdempotentAndClosesMessages(t *testing.T) {
	subscribed := make(chan struct{})
	url := wsServer(t, func(conn *websocket.Conn) {
		readSubscription(t, conn)
		close(subscribed)
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		conn.ReadMessage()
	})

	c, err := New(testConfig(url))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Listen(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-subscribed

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := c.Close(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if err := c.Close(); err != nil {
			t.Errorf("second close: %v", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("close did not finish in time")
	}

	select {
	case _, ok := <-c.Messages():
		if ok {
			return // buffered message, channel still draining
		}
	case <-time.After(5 * time.Second):
		t.Fatal("messages channel was not closed")
	}

	if got := c.State(); got != StateDisconnected {
		t.Errorf("expected disconnected, got %s", got)
	}

	if err := c.Listen(context.Background()); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestListen_ContextCancelStopsStream(t *testing.T) {
	url := wsServer(t, func(conn *websocket.Conn) {
		readSubscription(t, conn)
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		conn.ReadMessage()
	})

	c, err := New(testConfig(url))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	if err := c.Listen(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cancel()

	select {
	case _, ok := <-c.Messages():
		if ok {
			t.Error("expected channel close, got message")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop on context cancel")
	}
}

func TestConfig_Validation(t *testing.T) {
	t.Run("missing channel", func(t *testing.T) {
		if _, err := New(Config{Key: "k", Secret: "s"}); err == nil {
			t.Fatal("expected error")
		}
	})
	t.Run("unknown environment", func(t *testing.T) {
		if _, err := New(Config{Key: "k", Secret: "s", Channel: ChannelTicker, Env: "staging"}); err == nil {
			t.Fatal("expected error")
		}
	})
	t.Run("missing credentials", func(t *testing.T) {
		if _, err := New(Config{Channel: ChannelTicker}); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestMessage_JSONUnmarshal(t *testing.T) {
	raw := `{"channel":"ticker","client_id":"","timestamp":"2023-02-09T20:30:37.167359596Z","sequence_num":3,"events":[{"type":"snapshot","tickers":[{"product_id":"BTC-USD","price":"21890.92"}]}]}`
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Timestamp.IsZero() {
		t.Error("timestamp should parse")
	}
	events, err := msg.TickerEvents()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if events[0].Type != "snapshot" || events[0].Tickers[0].ProductID != "BTC-USD" {
		t.Errorf("unexpected events: %+v", events)
	}
}
