package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestDexScreenerMissingToken(t *testing.T) {
	d := NewDexScreener(DexScreenerOptions{}, noopLogger())
	if _, err := d.FetchPoolSnapshot(context.Background()); err == nil {
		t.Fatal("expected error without token address")
	}
}

func TestDexScreenerHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDexScreener(DexScreenerOptions{
		BaseURL:      srv.URL,
		TokenAddress: "0xabc",
		Timeout:      time.Second,
	}, noopLogger())

	if _, err := d.FetchPoolSnapshot(context.Background()); err == nil {
		t.Fatal("HTTP 500 should return an error")
	}
}

func TestDexScreenerFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"pairs": [
				{
					"dexId": "raydium",
					"pairAddress": "pool-a",
					"url": "https://dexscreener.com/pool-a",
					"baseToken": {"symbol": "TOKE"},
					"quoteToken": {"symbol": "USDC"},
					"priceNative": "0.5",
					"priceUsd": "1.25",
					"liquidity": {"usd": 50000}
				},
				{
					"dexId": "orca",
					"pairAddress": "",
					"priceUsd": "not-a-number"
				}
			]
		}`))
	}))
	defer srv.Close()

	d := NewDexScreener(DexScreenerOptions{
		BaseURL:      srv.URL,
		TokenAddress: "0xabc",
		Timeout:      time.Second,
		UserAgent:    "test",
	}, noopLogger())

	snapshot, err := d.FetchPoolSnapshot(context.Background())
	if err != nil {
		t.Fatalf("successful response should not error: %v", err)
	}
	if len(snapshot.Pools) != 1 {
		t.Fatalf("entries without a pair address must be dropped, got %d pools", len(snapshot.Pools))
	}

	entry := snapshot.Pools[0]
	if entry.PoolID != "pool-a" || entry.DexID != "raydium" {
		t.Fatalf("unexpected pool identity: %+v", entry)
	}
	if entry.PairLabel != "TOKE-USDC" {
		t.Fatalf("expected pair label TOKE-USDC, got %q", entry.PairLabel)
	}
	if entry.PriceUsd == nil || entry.PriceUsd.Cmp(decimal.RequireFromString("1.25")) != 0 {
		t.Fatalf("expected price 1.25, got %v", entry.PriceUsd)
	}
	if entry.LiquidityUsd == nil || entry.LiquidityUsd.Cmp(decimal.NewFromInt(50000)) != 0 {
		t.Fatalf("expected liquidity 50000, got %v", entry.LiquidityUsd)
	}
}

func TestDexScreenerMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	d := NewDexScreener(DexScreenerOptions{
		BaseURL:      srv.URL,
		TokenAddress: "0xabc",
		Timeout:      time.Second,
	}, noopLogger())

	if _, err := d.FetchPoolSnapshot(context.Background()); err == nil {
		t.Fatal("malformed payload should return an error")
	}
}
