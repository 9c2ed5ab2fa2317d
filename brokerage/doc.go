// Package brokerage provides typed access to the Advanced Trade REST
// resources: accounts, orders, products, and transaction summary.
//
// Each service is a thin mapping of parameters to a URL path and HTTP
// verb over the session transport; retry, backoff, signing, and
// caching all live there. Monetary fields are decoded into
// decimal.Decimal.
//
// # Usage
//
//	client, err := brokerage.New(session.Config{Key: key, Secret: secret})
//	defer client.Close()
//
//	account, err := client.Accounts.Get(ctx, accountUUID)
//	orders, err := client.Orders.List(ctx, &brokerage.ListOrdersOptions{ProductID: "BTC-USD"})
package brokerage
