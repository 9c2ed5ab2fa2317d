package brokerage

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cbkit/cbkit/session"
)

// Balance is an amount in a single currency.
type Balance struct {
	Value    decimal.Decimal `json:"value"`
	Currency string          `json:"currency"`
}

// Account is one trading account of the authenticated user.
type Account struct {
	UUID             string    `json:"uuid"`
	Name             string    `json:"name"`
	Currency         string    `json:"currency"`
	AvailableBalance Balance   `json:"available_balance"`
	Hold             Balance   `json:"hold"`
	Default          bool      `json:"default"`
	Active           bool      `json:"active"`
	Ready            bool      `json:"ready"`
	Type             string    `json:"type"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// AccountsPage is one page of the account listing.
type AccountsPage struct {
	Accounts []Account `json:"accounts"`
	HasNext  bool      `json:"has_next"`
	Cursor   string    `json:"cursor"`
	Size     int       `json:"size"`
}

// ListAccountsOptions are the optional listing parameters.
type ListAccountsOptions struct {
	// Limit is the pagination limit (server default 49, maximum 250).
	Limit int
	// Cursor resumes listing after a previous page.
	Cursor string
}

func (o *ListAccountsOptions) values() url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Cursor != "" {
		q.Set("cursor", o.Cursor)
	}
	return q
}

// AccountsService accesses the accounts resource.
type AccountsService struct {
	s *session.Client
}

// List returns a page of authenticated accounts.
func (svc *AccountsService) List(ctx context.Context, opts *ListAccountsOptions) (*AccountsPage, error) {
	return get[AccountsPage](ctx, svc.s, "/accounts", opts.values())
}

// Get returns a single account by UUID.
func (svc *AccountsService) Get(ctx context.Context, accountUUID string) (*Account, error) {
	if _, err := uuid.Parse(accountUUID); err != nil {
		return nil, fmt.Errorf("brokerage: invalid account uuid %q: %w", accountUUID, err)
	}

	envelope, err := get[struct {
		Account Account `json:"account"`
	}](ctx, svc.s, "/accounts/"+accountUUID, nil)
	if err != nil {
		return nil, err
	}
	return &envelope.Account, nil
}
