package brokerage

import (
	"context"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/cbkit/cbkit/session"
)

// Candle granularities accepted by the candles endpoint.
const (
	GranularityOneMinute     = "ONE_MINUTE"
	GranularityFiveMinute    = "FIVE_MINUTE"
	GranularityFifteenMinute = "FIFTEEN_MINUTE"
	GranularityThirtyMinute  = "THIRTY_MINUTE"
	GranularityOneHour       = "ONE_HOUR"
	GranularityTwoHour       = "TWO_HOUR"
	GranularitySixHour       = "SIX_HOUR"
	GranularityOneDay        = "ONE_DAY"
)

// Product is one tradable currency pair.
type Product struct {
	ProductID                string          `json:"product_id"`
	Price                    decimal.Decimal `json:"price"`
	PricePctChange24h        decimal.Decimal `json:"price_percentage_change_24h"`
	Volume24h                decimal.Decimal `json:"volume_24h"`
	VolumePctChange24h       decimal.Decimal `json:"volume_percentage_change_24h"`
	BaseIncrement            decimal.Decimal `json:"base_increment"`
	QuoteIncrement           decimal.Decimal `json:"quote_increment"`
	QuoteMinSize             decimal.Decimal `json:"quote_min_size"`
	QuoteMaxSize             decimal.Decimal `json:"quote_max_size"`
	BaseMinSize              decimal.Decimal `json:"base_min_size"`
	BaseMaxSize              decimal.Decimal `json:"base_max_size"`
	BaseName                 string          `json:"base_name"`
	QuoteName                string          `json:"quote_name"`
	Status                   string          `json:"status"`
	CancelOnly               bool            `json:"cancel_only"`
	LimitOnly                bool            `json:"limit_only"`
	PostOnly                 bool            `json:"post_only"`
	TradingDisabled          bool            `json:"trading_disabled"`
	AuctionMode              bool            `json:"auction_mode"`
	ProductType              string          `json:"product_type"`
	QuoteCurrencyID          string          `json:"quote_currency_id"`
	BaseCurrencyID           string          `json:"base_currency_id"`
	MidMarketPrice           decimal.Decimal `json:"mid_market_price"`
}

// ProductsPage is the product listing.
type ProductsPage struct {
	Products    []Product `json:"products"`
	NumProducts int       `json:"num_products"`
}

// Candle is one aggregated price bucket.
type Candle struct {
	Start  string          `json:"start"`
	Low    decimal.Decimal `json:"low"`
	High   decimal.Decimal `json:"high"`
	Open   decimal.Decimal `json:"open"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}

// Trade is one recent market trade (tick).
type Trade struct {
	TradeID   string          `json:"trade_id"`
	ProductID string          `json:"product_id"`
	Price     decimal.Decimal `json:"price"`
	Size      decimal.Decimal `json:"size"`
	Time      string          `json:"time"`
	Side      string          `json:"side"`
}

// MarketTrades is a snapshot of recent trades and the current book top.
type MarketTrades struct {
	Trades  []Trade         `json:"trades"`
	BestBid decimal.Decimal `json:"best_bid"`
	BestAsk decimal.Decimal `json:"best_ask"`
}

// ListProductsOptions are the optional listing parameters.
type ListProductsOptions struct {
	Limit       int
	Offset      int
	ProductType string
}

func (o *ListProductsOptions) values() url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Offset > 0 {
		q.Set("offset", strconv.Itoa(o.Offset))
	}
	if o.ProductType != "" {
		q.Set("product_type", o.ProductType)
	}
	return q
}

// ProductsService accesses the products resource.
type ProductsService struct {
	s *session.Client
}

// List returns the available currency pairs.
func (svc *ProductsService) List(ctx context.Context, opts *ListProductsOptions) (*ProductsPage, error) {
	return get[ProductsPage](ctx, svc.s, "/products", opts.values())
}

// Get returns a single product by ID.
func (svc *ProductsService) Get(ctx context.Context, productID string) (*Product, error) {
	return get[Product](ctx, svc.s, "/products/"+productID, nil)
}

// Candles returns price buckets for a product between two unix
// timestamps at the given granularity.
func (svc *ProductsService) Candles(ctx context.Context, productID, start, end, granularity string) ([]Candle, error) {
	q := url.Values{}
	q.Set("start", start)
	q.Set("end", end)
	q.Set("granularity", granularity)

	envelope, err := get[struct {
		Candles []Candle `json:"candles"`
	}](ctx, svc.s, "/products/"+productID+"/candles", q)
	if err != nil {
		return nil, err
	}
	return envelope.Candles, nil
}

// MarketTrades returns recent trades and best bid/ask for a product.
func (svc *ProductsService) MarketTrades(ctx context.Context, productID string, limit int) (*MarketTrades, error) {
	q := url.Values{}
	if limit <= 0 {
		limit = 100
	}
	q.Set("limit", strconv.Itoa(limit))
	return get[MarketTrades](ctx, svc.s, "/products/"+productID+"/ticker", q)
}
