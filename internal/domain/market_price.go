package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// MarketPriceService defines the interface for fetching mark prices
type MarketPriceService interface {
	FetchRealTimePrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error)
	FetchSinglePrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}
