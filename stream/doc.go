// Package stream maintains an authenticated websocket subscription to
// the Advanced Trade market data feed. A Client dials the feed, sends a
// signed subscribe message, and delivers parsed messages to a bounded
// channel. Dropped connections are redialed with exponential backoff
// and the subscription is re-signed and re-sent on every reconnect, so
// a consumer ranging over Messages sees at most a gap, never a dead
// stream.
package stream
