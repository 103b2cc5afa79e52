package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"papertrade/internal/domain"
)

// MarketPriceService fetches mark prices from the configured quote feed.
// It is only ever called outside the ledger transaction boundary.
type MarketPriceService struct {
	httpClient *http.Client
	baseURL    string
}

// NewMarketPriceService creates a new MarketPriceService
func NewMarketPriceService(baseURL string) domain.MarketPriceService {
	return &MarketPriceService{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// FetchRealTimePrices fetches current prices for multiple symbols
func (s *MarketPriceService) FetchRealTimePrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal)
	if len(symbols) == 0 {
		return prices, nil
	}

	url := fmt.Sprintf("%s/v1/quotes?symbols=%s", s.baseURL, strings.Join(symbols, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quotes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("quote feed error: status=%d, body=%s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	// The feed returns prices as strings; decimal keeps them exact.
	var quotes []struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}

	if err := json.Unmarshal(body, &quotes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quotes: %w", err)
	}

	for _, quote := range quotes {
		price, err := decimal.NewFromString(quote.Price)
		if err != nil {
			continue
		}
		prices[strings.ToUpper(quote.Symbol)] = price
	}

	// Check if we got all requested symbols
	if len(prices) != len(symbols) {
		missing := []string{}
		for _, symbol := range symbols {
			if _, ok := prices[strings.ToUpper(symbol)]; !ok {
				missing = append(missing, symbol)
			}
		}
		return prices, fmt.Errorf("missing prices for symbols: %v", missing)
	}

	return prices, nil
}

// FetchSinglePrice fetches the current price for a single symbol
func (s *MarketPriceService) FetchSinglePrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	prices, err := s.FetchRealTimePrices(ctx, []string{symbol})
	if err != nil {
		return decimal.Zero, err
	}

	price, ok := prices[strings.ToUpper(symbol)]
	if !ok {
		return decimal.Zero, fmt.Errorf("price not found for symbol: %s", symbol)
	}

	return price, nil
}
