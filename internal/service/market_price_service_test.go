package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func quoteFeed(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestFetchRealTimePrices(t *testing.T) {
	url := quoteFeed(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbols"); got != "AAPL,MSFT" {
			t.Errorf("symbols query = %q, want AAPL,MSFT", got)
		}
		fmt.Fprint(w, `[{"symbol":"aapl","price":"187.32"},{"symbol":"MSFT","price":"410.10"}]`)
	})

	svc := NewMarketPriceService(url)
	prices, err := svc.FetchRealTimePrices(context.Background(), []string{"AAPL", "MSFT"})
	if err != nil {
		t.Fatalf("FetchRealTimePrices() error = %v", err)
	}

	if !prices["AAPL"].Equal(dec("187.32")) {
		t.Errorf("AAPL = %s, want 187.32", prices["AAPL"])
	}
	if !prices["MSFT"].Equal(dec("410.10")) {
		t.Errorf("MSFT = %s, want 410.10", prices["MSFT"])
	}
}

func TestFetchRealTimePricesPartial(t *testing.T) {
	url := quoteFeed(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"symbol":"AAPL","price":"187.32"}]`)
	})

	svc := NewMarketPriceService(url)
	prices, err := svc.FetchRealTimePrices(context.Background(), []string{"AAPL", "ZZZZ"})
	if err == nil || !strings.Contains(err.Error(), "missing prices") {
		t.Fatalf("error = %v, want missing prices", err)
	}

	// The symbols that did resolve are still usable.
	if !prices["AAPL"].Equal(dec("187.32")) {
		t.Errorf("AAPL = %s, want 187.32", prices["AAPL"])
	}
}

func TestFetchRealTimePricesFeedDown(t *testing.T) {
	url := quoteFeed(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream maintenance", http.StatusBadGateway)
	})

	svc := NewMarketPriceService(url)
	if _, err := svc.FetchRealTimePrices(context.Background(), []string{"AAPL"}); err == nil {
		t.Fatal("expected error when the feed is down")
	}
}

func TestFetchRealTimePricesNoSymbols(t *testing.T) {
	svc := NewMarketPriceService("http://localhost:0")
	prices, err := svc.FetchRealTimePrices(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchRealTimePrices() error = %v", err)
	}
	if len(prices) != 0 {
		t.Errorf("prices = %v, want empty, no request made", prices)
	}
}

func TestFetchSinglePrice(t *testing.T) {
	url := quoteFeed(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"symbol":"AAPL","price":"187.32"}]`)
	})

	svc := NewMarketPriceService(url)
	price, err := svc.FetchSinglePrice(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("FetchSinglePrice() error = %v", err)
	}
	if !price.Equal(dec("187.32")) {
		t.Errorf("price = %s, want 187.32", price)
	}
}
