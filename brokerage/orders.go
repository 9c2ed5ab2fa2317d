package brokerage

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cbkit/cbkit/session"
)

// Order sides.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

var validate = validator.New()

// MarketIOC is a market order, immediate-or-cancel.
type MarketIOC struct {
	// QuoteSize is the quote currency to spend. Required for BUY.
	QuoteSize decimal.Decimal `json:"quote_size,omitempty"`
	// BaseSize is the base currency to sell. Required for SELL.
	BaseSize decimal.Decimal `json:"base_size,omitempty"`
}

// LimitGTC is a limit order, good-till-cancelled.
type LimitGTC struct {
	BaseSize   decimal.Decimal `json:"base_size"`
	LimitPrice decimal.Decimal `json:"limit_price"`
	PostOnly   bool            `json:"post_only,omitempty"`
}

// LimitGTD is a limit order, good-till-date.
type LimitGTD struct {
	BaseSize   decimal.Decimal `json:"base_size"`
	LimitPrice decimal.Decimal `json:"limit_price"`
	EndTime    time.Time       `json:"end_time"`
	PostOnly   bool            `json:"post_only,omitempty"`
}

// StopLimitGTC is a stop-limit order, good-till-cancelled.
type StopLimitGTC struct {
	BaseSize      decimal.Decimal `json:"base_size"`
	LimitPrice    decimal.Decimal `json:"limit_price"`
	StopPrice     decimal.Decimal `json:"stop_price"`
	StopDirection string          `json:"stop_direction"`
}

// StopLimitGTD is a stop-limit order, good-till-date.
type StopLimitGTD struct {
	BaseSize      decimal.Decimal `json:"base_size"`
	LimitPrice    decimal.Decimal `json:"limit_price"`
	StopPrice     decimal.Decimal `json:"stop_price"`
	EndTime       time.Time       `json:"end_time"`
	StopDirection string          `json:"stop_direction"`
}

// OrderConfiguration selects exactly one order type.
type OrderConfiguration struct {
	MarketIOC    *MarketIOC    `json:"market_market_ioc,omitempty"`
	LimitGTC     *LimitGTC     `json:"limit_limit_gtc,omitempty"`
	LimitGTD     *LimitGTD     `json:"limit_limit_gtd,omitempty"`
	StopLimitGTC *StopLimitGTC `json:"stop_limit_stop_limit_gtc,omitempty"`
	StopLimitGTD *StopLimitGTD `json:"stop_limit_stop_limit_gtd,omitempty"`
}

// CreateOrderRequest places an order for a product.
type CreateOrderRequest struct {
	// ClientOrderID is the caller's unique ID for this order. Generated
	// when empty.
	ClientOrderID string `json:"client_order_id"`
	// ProductID is the asset pair, e.g. "BTC-USD".
	ProductID string `json:"product_id" validate:"required"`
	// Side is BUY or SELL.
	Side string `json:"side" validate:"required,oneof=BUY SELL"`
	// OrderConfiguration selects the order type and its parameters.
	OrderConfiguration OrderConfiguration `json:"order_configuration"`
}

// CreateOrderResponse reports the outcome of order placement.
type CreateOrderResponse struct {
	Success         bool   `json:"success"`
	FailureReason   string `json:"failure_reason"`
	OrderID         string `json:"order_id"`
	SuccessResponse struct {
		OrderID       string `json:"order_id"`
		ProductID     string `json:"product_id"`
		Side          string `json:"side"`
		ClientOrderID string `json:"client_order_id"`
	} `json:"success_response"`
	ErrorResponse struct {
		Error                 string `json:"error"`
		Message               string `json:"message"`
		ErrorDetails          string `json:"error_details"`
		PreviewFailureReason  string `json:"preview_failure_reason"`
		NewOrderFailureReason string `json:"new_order_failure_reason"`
	} `json:"error_response"`
}

// CancelResult is the outcome of one cancel request.
type CancelResult struct {
	Success       bool   `json:"success"`
	FailureReason string `json:"failure_reason"`
	OrderID       string `json:"order_id"`
}

// Order is one historical order.
type Order struct {
	OrderID            string             `json:"order_id"`
	ClientOrderID      string             `json:"client_order_id"`
	ProductID          string             `json:"product_id"`
	UserID             string             `json:"user_id"`
	Side               string             `json:"side"`
	Status             string             `json:"status"`
	OrderType          string             `json:"order_type"`
	TimeInForce        string             `json:"time_in_force"`
	CreatedTime        time.Time          `json:"created_time"`
	CompletionPct      decimal.Decimal    `json:"completion_percentage"`
	FilledSize         decimal.Decimal    `json:"filled_size"`
	AverageFilledPrice decimal.Decimal    `json:"average_filled_price"`
	TotalFees          decimal.Decimal    `json:"total_fees"`
	FilledValue        decimal.Decimal    `json:"filled_value"`
	OrderConfiguration OrderConfiguration `json:"order_configuration"`
}

// OrdersPage is one page of the historical order listing.
type OrdersPage struct {
	Orders   []Order `json:"orders"`
	Sequence string  `json:"sequence"`
	HasNext  bool    `json:"has_next"`
	Cursor   string  `json:"cursor"`
}

// Fill is one execution against an order.
type Fill struct {
	EntryID            string          `json:"entry_id"`
	TradeID            string          `json:"trade_id"`
	OrderID            string          `json:"order_id"`
	ProductID          string          `json:"product_id"`
	TradeTime          time.Time       `json:"trade_time"`
	TradeType          string          `json:"trade_type"`
	Price              decimal.Decimal `json:"price"`
	Size               decimal.Decimal `json:"size"`
	Commission         decimal.Decimal `json:"commission"`
	SequenceTimestamp  time.Time       `json:"sequence_timestamp"`
	LiquidityIndicator string          `json:"liquidity_indicator"`
	Side               string          `json:"side"`
}

// FillsPage is one page of the fill listing.
type FillsPage struct {
	Fills  []Fill `json:"fills"`
	Cursor string `json:"cursor"`
}

// ListOrdersOptions filter the historical order listing.
type ListOrdersOptions struct {
	ProductID   string
	OrderStatus []string
	Limit       int
	StartDate   string
	EndDate     string
	OrderType   string
	OrderSide   string
	Cursor      string
	ProductType string
}

func (o *ListOrdersOptions) values() url.Values {
	q := url.Values{}
	limit := 100
	if o != nil {
		if o.ProductID != "" {
			q.Set("product_id", o.ProductID)
		}
		for _, st := range o.OrderStatus {
			q.Add("order_status", st)
		}
		if o.Limit > 0 {
			limit = o.Limit
		}
		if o.StartDate != "" {
			q.Set("start_date", o.StartDate)
		}
		if o.EndDate != "" {
			q.Set("end_date", o.EndDate)
		}
		if o.OrderType != "" {
			q.Set("order_type", o.OrderType)
		}
		if o.OrderSide != "" {
			q.Set("order_side", o.OrderSide)
		}
		if o.Cursor != "" {
			q.Set("cursor", o.Cursor)
		}
		if o.ProductType != "" {
			q.Set("product_type", o.ProductType)
		}
	}
	q.Set("limit", strconv.Itoa(limit))
	return q
}

// ListFillsOptions filter the fill listing.
type ListFillsOptions struct {
	OrderID                string
	ProductID              string
	StartSequenceTimestamp string
	EndSequenceTimestamp   string
	Limit                  int
	Cursor                 string
}

func (o *ListFillsOptions) values() url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}
	if o.OrderID != "" {
		q.Set("order_id", o.OrderID)
	}
	if o.ProductID != "" {
		q.Set("product_id", o.ProductID)
	}
	if o.StartSequenceTimestamp != "" {
		q.Set("start_sequence_timestamp", o.StartSequenceTimestamp)
	}
	if o.EndSequenceTimestamp != "" {
		q.Set("end_sequence_timestamp", o.EndSequenceTimestamp)
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Cursor != "" {
		q.Set("cursor", o.Cursor)
	}
	return q
}

// OrdersService accesses the orders resource.
type OrdersService struct {
	s *session.Client
}

// Create places an order. A missing ClientOrderID is generated so
// accidental resubmission cannot double-place.
func (svc *OrdersService) Create(ctx context.Context, req CreateOrderRequest) (*CreateOrderResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("brokerage: invalid order: %w", err)
	}
	if req.ClientOrderID == "" {
		req.ClientOrderID = uuid.NewString()
	}
	return post[CreateOrderResponse](ctx, svc.s, "/orders", req)
}

// BatchCancel initiates cancel requests for one or more orders.
func (svc *OrdersService) BatchCancel(ctx context.Context, orderIDs []string) ([]CancelResult, error) {
	envelope, err := post[struct {
		Results []CancelResult `json:"results"`
	}](ctx, svc.s, "/orders/batch_cancel", map[string][]string{"order_ids": orderIDs})
	if err != nil {
		return nil, err
	}
	return envelope.Results, nil
}

// List returns historical orders filtered by the options. The listing
// limit defaults to 100.
func (svc *OrdersService) List(ctx context.Context, opts *ListOrdersOptions) (*OrdersPage, error) {
	return get[OrdersPage](ctx, svc.s, "/orders/historical/batch", opts.values())
}

// Fills returns executions filtered by the options.
func (svc *OrdersService) Fills(ctx context.Context, opts *ListFillsOptions) (*FillsPage, error) {
	return get[FillsPage](ctx, svc.s, "/orders/historical/fills", opts.values())
}

// Get returns a single order by ID.
func (svc *OrdersService) Get(ctx context.Context, orderID string) (*Order, error) {
	envelope, err := get[struct {
		Order Order `json:"order"`
	}](ctx, svc.s, "/orders/historical/"+orderID, nil)
	if err != nil {
		return nil, err
	}
	return &envelope.Order, nil
}
