package session

import (
	"testing"
	"time"
)

func fixedClock(at *time.Time) func() time.Time {
	return func() time.Time { return *at }
}

func TestResponseCache_SetGet(t *testing.T) {
	now := time.Unix(1700000000, 0)
	c := newResponseCache(60 * time.Second)
	c.now = fixedClock(&now)

	key := cacheKey("GET", "/accounts", "")
	c.set(key, "/accounts", &Response{StatusCode: 200, Body: []byte(`{"a":1}`)})

	resp, ok := c.get(key)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if !resp.Cached {
		t.Error("cached response must be flagged")
	}
	if string(resp.Body) != `{"a":1}` {
		t.Errorf("unexpected body: %s", resp.Body)
	}
}

func TestResponseCache_LazyExpiry(t *testing.T) {
	now := time.Unix(1700000000, 0)
	c := newResponseCache(60 * time.Second)
	c.now = fixedClock(&now)

	key := cacheKey("GET", "/accounts", "")
	c.set(key, "/accounts", &Response{StatusCode: 200, Body: []byte(`{}`)})

	now = now.Add(59 * time.Second)
	if _, ok := c.get(key); !ok {
		t.Error("entry must be live just inside the TTL")
	}

	now = now.Add(2 * time.Second)
	if _, ok := c.get(key); ok {
		t.Error("entry must expire after the TTL")
	}
	if c.len() != 0 {
		t.Error("expired entry must be evicted on lookup")
	}
}

func TestResponseCache_KeyIncludesQuery(t *testing.T) {
	c := newResponseCache(time.Minute)

	c.set(cacheKey("GET", "/orders", "limit=10"), "/orders", &Response{Body: []byte(`ten`)})
	c.set(cacheKey("GET", "/orders", "limit=20"), "/orders", &Response{Body: []byte(`twenty`)})

	resp, ok := c.get(cacheKey("GET", "/orders", "limit=10"))
	if !ok || string(resp.Body) != "ten" {
		t.Errorf("expected distinct entries per query, got %v", resp)
	}
}

func TestResponseCache_InvalidateFamily(t *testing.T) {
	c := newResponseCache(time.Minute)

	entries := map[string]string{
		"/orders":                  "listing",
		"/orders/historical/batch": "batch",
		"/accounts":                "accounts",
	}
	for path, body := range entries {
		c.set(cacheKey("GET", path, ""), path, &Response{Body: []byte(body)})
	}

	// deeper mutating path drops shallower cached reads and vice versa
	c.invalidateFamily("/orders/batch_cancel")

	if _, ok := c.get(cacheKey("GET", "/orders", "")); ok {
		t.Error("order listing should be invalidated")
	}
	if _, ok := c.get(cacheKey("GET", "/accounts", "")); !ok {
		t.Error("accounts entry should survive")
	}

	c.set(cacheKey("GET", "/orders/historical/batch", ""), "/orders/historical/batch", &Response{Body: []byte(`x`)})
	c.invalidateFamily("/orders")
	if _, ok := c.get(cacheKey("GET", "/orders/historical/batch", "")); ok {
		t.Error("deeper listing should be invalidated by a shallower mutation")
	}
}

func TestSegmentPrefix(t *testing.T) {
	tests := []struct {
		path   string
		prefix string
		want   bool
	}{
		{"/orders/historical", "/orders", true},
		{"/orders", "/orders", true},
		{"/orders/", "/orders", true},
		{"/orders2", "/orders", false},
		{"/accounts", "/orders", false},
		{"/orders", "/orders/historical", false},
	}
	for _, tc := range tests {
		if got := segmentPrefix(tc.path, tc.prefix); got != tc.want {
			t.Errorf("segmentPrefix(%q, %q) = %v, want %v", tc.path, tc.prefix, got, tc.want)
		}
	}
}
