package brokerage

import (
	"context"
	"net/http"
	"net/url"

	"github.com/cbkit/cbkit/session"
)

// Client bundles the resource services behind one shared transport.
type Client struct {
	session *session.Client

	// Accounts accesses the accounts resource.
	Accounts *AccountsService
	// Orders accesses the orders resource.
	Orders *OrdersService
	// Products accesses the products resource.
	Products *ProductsService
	// TransactionSummary accesses the transaction_summary resource.
	TransactionSummary *SummaryService
}

// New creates a brokerage client. Credential problems surface here,
// never per-request.
func New(cfg session.Config) (*Client, error) {
	s, err := session.New(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithSession(s), nil
}

// NewWithSession wraps an existing transport, for callers that share
// one transport (and its cache) across services.
func NewWithSession(s *session.Client) *Client {
	return &Client{
		session:            s,
		Accounts:           &AccountsService{s: s},
		Orders:             &OrdersService{s: s},
		Products:           &ProductsService{s: s},
		TransactionSummary: &SummaryService{s: s},
	}
}

// Close releases the underlying transport. Safe to call more than once.
func (c *Client) Close() {
	c.session.Close()
}

// get executes a GET and decodes the JSON response into T.
func get[T any](ctx context.Context, s *session.Client, path string, query url.Values) (*T, error) {
	resp, err := s.Do(ctx, session.Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  query,
	})
	if err != nil {
		return nil, err
	}
	return decode[T](resp)
}

// post executes a POST with a JSON body and decodes the response into T.
func post[T any](ctx context.Context, s *session.Client, path string, body any) (*T, error) {
	resp, err := s.Do(ctx, session.Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   body,
	})
	if err != nil {
		return nil, err
	}
	return decode[T](resp)
}

func decode[T any](resp *session.Response) (*T, error) {
	var out T
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
