package brokerage

import (
	"context"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/cbkit/cbkit/session"
)

// FeeTier is the user's fee tier by trailing volume.
type FeeTier struct {
	PricingTier  string          `json:"pricing_tier"`
	USDFrom      decimal.Decimal `json:"usd_from"`
	USDTo        decimal.Decimal `json:"usd_to"`
	TakerFeeRate decimal.Decimal `json:"taker_fee_rate"`
	MakerFeeRate decimal.Decimal `json:"maker_fee_rate"`
}

// TransactionSummary aggregates volume and fees for the user.
type TransactionSummary struct {
	TotalVolume             decimal.Decimal `json:"total_volume"`
	TotalFees               decimal.Decimal `json:"total_fees"`
	FeeTier                 FeeTier         `json:"fee_tier"`
	AdvancedTradeOnlyVolume decimal.Decimal `json:"advanced_trade_only_volume"`
	AdvancedTradeOnlyFees   decimal.Decimal `json:"advanced_trade_only_fees"`
	CoinbaseProVolume       decimal.Decimal `json:"coinbase_pro_volume"`
	CoinbaseProFees         decimal.Decimal `json:"coinbase_pro_fees"`
}

// SummaryOptions scope the transaction summary.
type SummaryOptions struct {
	StartDate          string
	EndDate            string
	UserNativeCurrency string
	ProductType        string
}

func (o *SummaryOptions) values() url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}
	if o.StartDate != "" {
		q.Set("start_date", o.StartDate)
	}
	if o.EndDate != "" {
		q.Set("end_date", o.EndDate)
	}
	if o.UserNativeCurrency != "" {
		q.Set("user_native_currency", o.UserNativeCurrency)
	}
	if o.ProductType != "" {
		q.Set("product_type", o.ProductType)
	}
	return q
}

// SummaryService accesses the transaction_summary resource.
type SummaryService struct {
	s *session.Client
}

// Get returns fee tiers, total volume, and fees for the user.
func (svc *SummaryService) Get(ctx context.Context, opts *SummaryOptions) (*TransactionSummary, error) {
	return get[TransactionSummary](ctx, svc.s, "/transaction_summary", opts.values())
}
