package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const birdeyePricePath = "/defi/price"

// BirdeyeOptions parameterise the spot price fetcher.
type BirdeyeOptions struct {
	BaseURL      string
	APIKey       string
	Chain        string
	TokenAddress string
	Timeout      time.Duration
}

// Birdeye fetches the spot USD price from the Birdeye public API.
type Birdeye struct {
	opts    BirdeyeOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewBirdeye constructs a spot price fetcher.
func NewBirdeye(opts BirdeyeOptions, logger zerolog.Logger) *Birdeye {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://public-api.birdeye.so"
	}

	return &Birdeye{
		opts:    opts,
		logger:  logger.With().Str("component", "birdeye_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchPrice retrieves the current spot price in USD.
func (b *Birdeye) FetchPrice(ctx context.Context) (decimal.Decimal, error) {
	if b.opts.TokenAddress == "" {
		return decimal.Decimal{}, fmt.Errorf("token address not configured: %w", ErrUnavailable)
	}

	endpoint := fmt.Sprintf("%s%s?address=%s", b.baseURL, birdeyePricePath, url.QueryEscape(b.opts.TokenAddress))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Decimal{}, err
	}
	req.Header.Set("Accept", "application/json")
	if b.opts.APIKey != "" {
		req.Header.Set("X-API-KEY", b.opts.APIKey)
	}
	if b.opts.Chain != "" {
		req.Header.Set("x-chain", b.opts.Chain)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("birdeye request: %w", ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b.logger.Warn().Int("status", resp.StatusCode).Msg("birdeye returned non-200")
		return decimal.Decimal{}, fmt.Errorf("birdeye status %d: %w", resp.StatusCode, ErrUnavailable)
	}

	var body priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode birdeye response: %w", ErrUnavailable)
	}
	if !body.Success || body.Data == nil {
		return decimal.Decimal{}, fmt.Errorf("birdeye returned no data: %w", ErrUnavailable)
	}

	price := decimal.NewFromFloat(body.Data.Value)
	if price.IsZero() {
		return decimal.Decimal{}, fmt.Errorf("birdeye returned zero price: %w", ErrUnavailable)
	}
	return price, nil
}

type priceResponse struct {
	Success bool `json:"success"`
	Data    *struct {
		Value float64 `json:"value"`
	} `json:"data"`
}

var _ PriceFetcher = (*Birdeye)(nil)
