// Package pricing provides the SOL/USD reference price used to
// annotate swap records, behind a short-lived cache.
package pricing

import "context"

// Source fetches the current SOL price in USD from an external API.
type Source interface {
	FetchUSD(ctx context.Context) (float64, error)
}
