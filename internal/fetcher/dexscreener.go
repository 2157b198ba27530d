package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const dexScreenerTokensPath = "/latest/dex/tokens/"

// DexScreenerOptions parameterise the pool snapshot fetcher.
type DexScreenerOptions struct {
	BaseURL      string
	TokenAddress string
	Timeout      time.Duration
	UserAgent    string
}

// DexScreener fetches the list of trading pairs for the asset from the
// DexScreener token-pairs API.
type DexScreener struct {
	opts    DexScreenerOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewDexScreener constructs a pool snapshot fetcher.
func NewDexScreener(opts DexScreenerOptions, logger zerolog.Logger) *DexScreener {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.dexscreener.com"
	}

	return &DexScreener{
		opts:    opts,
		logger:  logger.With().Str("component", "dexscreener_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchPoolSnapshot retrieves all currently tracked pairs for the token.
func (d *DexScreener) FetchPoolSnapshot(ctx context.Context) (MarketSnapshot, error) {
	if d.opts.TokenAddress == "" {
		return MarketSnapshot{}, fmt.Errorf("token address not configured: %w", ErrUnavailable)
	}

	endpoint := d.baseURL + dexScreenerTokensPath + d.opts.TokenAddress
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return MarketSnapshot{}, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(d.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return MarketSnapshot{}, fmt.Errorf("dexscreener request: %w", ErrUnavailable)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return MarketSnapshot{}, fmt.Errorf("read dexscreener response: %w", ErrUnavailable)
	}

	if resp.StatusCode != http.StatusOK {
		d.logger.Warn().Int("status", resp.StatusCode).Msg("dexscreener returned non-200")
		return MarketSnapshot{}, fmt.Errorf("dexscreener status %d: %w", resp.StatusCode, ErrUnavailable)
	}

	var body tokenPairsResponse
	if err := json.Unmarshal(payload, &body); err != nil {
		return MarketSnapshot{}, fmt.Errorf("decode dexscreener response: %w", ErrUnavailable)
	}

	pools := make([]PoolEntry, 0, len(body.Pairs))
	for _, pair := range body.Pairs {
		if pair.PairAddress == "" {
			continue
		}
		entry := PoolEntry{
			PoolID: pair.PairAddress,
			DexID:  pair.DexID,
			URL:    pair.URL,
		}
		if pair.BaseToken.Symbol != "" && pair.QuoteToken.Symbol != "" {
			entry.PairLabel = pair.BaseToken.Symbol + "-" + pair.QuoteToken.Symbol
		}
		entry.PriceNative = parseOptionalDecimal(pair.PriceNative)
		entry.PriceUsd = parseOptionalDecimal(pair.PriceUsd)
		if pair.Liquidity != nil {
			liq := decimal.NewFromFloat(pair.Liquidity.Usd)
			entry.LiquidityUsd = &liq
		}
		pools = append(pools, entry)
	}

	return MarketSnapshot{Pools: pools}, nil
}

type tokenPairsResponse struct {
	Pairs []struct {
		DexID       string `json:"dexId"`
		PairAddress string `json:"pairAddress"`
		URL         string `json:"url"`
		BaseToken   struct {
			Symbol string `json:"symbol"`
		} `json:"baseToken"`
		QuoteToken struct {
			Symbol string `json:"symbol"`
		} `json:"quoteToken"`
		PriceNative string `json:"priceNative"`
		PriceUsd    string `json:"priceUsd"`
		Liquidity   *struct {
			Usd float64 `json:"usd"`
		} `json:"liquidity"`
	} `json:"pairs"`
}

func parseOptionalDecimal(v string) *decimal.Decimal {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil
	}
	return &d
}

var _ PoolSnapshotFetcher = (*DexScreener)(nil)
