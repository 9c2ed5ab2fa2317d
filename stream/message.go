package stream

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Channel names accepted by the market data feed.
const (
	ChannelTicker       = "ticker"
	ChannelTickerBatch  = "ticker_batch"
	ChannelLevel2       = "level2"
	ChannelMarketTrades = "market_trades"
	ChannelCandles      = "candles"
	ChannelUser         = "user"
	ChannelStatus       = "status"
	ChannelHeartbeats   = "heartbeats"
)

// Message is one envelope from the feed. Events carries the raw
// channel-specific payload; typed accessors decode the channels callers
// most commonly consume.
type Message struct {
	Channel     string          `json:"channel"`
	ClientID    string          `json:"client_id"`
	Timestamp   time.Time       `json:"timestamp"`
	SequenceNum int64           `json:"sequence_num"`
	Events      json.RawMessage `json:"events"`
}

// Ticker is one price update within a ticker event.
type Ticker struct {
	Type            string          `json:"type"`
	ProductID       string          `json:"product_id"`
	Price           decimal.Decimal `json:"price"`
	Volume24H       decimal.Decimal `json:"volume_24_h"`
	Low24H          decimal.Decimal `json:"low_24_h"`
	High24H         decimal.Decimal `json:"high_24_h"`
	Low52W          decimal.Decimal `json:"low_52_w"`
	High52W         decimal.Decimal `json:"high_52_w"`
	PricePercentChg decimal.Decimal `json:"price_percent_chg_24_h"`
	BestBid         decimal.Decimal `json:"best_bid"`
	BestBidQuantity decimal.Decimal `json:"best_bid_quantity"`
	BestAsk         decimal.Decimal `json:"best_ask"`
	BestAskQuantity decimal.Decimal `json:"best_ask_quantity"`
}

// TickerEvent groups the tickers delivered in one message.
type TickerEvent struct {
	Type    string   `json:"type"`
	Tickers []Ticker `json:"tickers"`
}

// TickerEvents decodes the message payload as ticker events.
func (m *Message) TickerEvents() ([]TickerEvent, error) {
	var events []TickerEvent
	if err := json.Unmarshal(m.Events, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// MarketTrade is one executed trade within a market_trades event.
type MarketTrade struct {
	TradeID   string          `json:"trade_id"`
	ProductID string          `json:"product_id"`
	Price     decimal.Decimal `json:"price"`
	Size      decimal.Decimal `json:"size"`
	Side      string          `json:"side"`
	Time      time.Time       `json:"time"`
}

// MarketTradesEvent groups the trades delivered in one message.
type MarketTradesEvent struct {
	Type   string        `json:"type"`
	Trades []MarketTrade `json:"trades"`
}

// MarketTradesEvents decodes the message payload as trade events.
func (m *Message) MarketTradesEvents() ([]MarketTradesEvent, error) {
	var events []MarketTradesEvent
	if err := json.Unmarshal(m.Events, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Level2Update is one order book change within a level2 event.
type Level2Update struct {
	Side        string          `json:"side"`
	EventTime   time.Time       `json:"event_time"`
	PriceLevel  decimal.Decimal `json:"price_level"`
	NewQuantity decimal.Decimal `json:"new_quantity"`
}

// Level2Event is one order book snapshot or update batch.
type Level2Event struct {
	Type      string         `json:"type"`
	ProductID string         `json:"product_id"`
	Updates   []Level2Update `json:"updates"`
}

// Level2Events decodes the message payload as order book events.
func (m *Message) Level2Events() ([]Level2Event, error) {
	var events []Level2Event
	if err := json.Unmarshal(m.Events, &events); err != nil {
		return nil, err
	}
	return events, nil
}
