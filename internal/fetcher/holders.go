package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const holderAccountsPath = "/v1/token-accounts"

// HoldersOptions parameterise the paginated token-account scan.
type HoldersOptions struct {
	BaseURL      string
	APIKey       string
	TokenAddress string
	PageSize     int
	MaxPages     int
	Timeout      time.Duration
}

// Holders counts token accounts by walking fixed-size pages of an indexer
// API until an empty page is returned. Owners holding several accounts are
// counted once per account; the result is a coarse holder approximation.
type Holders struct {
	opts    HoldersOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewHolders constructs a holder-count fetcher.
func NewHolders(opts HoldersOptions, logger zerolog.Logger) *Holders {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 1000
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 10000
	}

	return &Holders{
		opts:    opts,
		logger:  logger.With().Str("component", "holders_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

// FetchHolderCount sums record counts across all pages.
func (h *Holders) FetchHolderCount(ctx context.Context) (int, error) {
	if h.baseURL == "" {
		return 0, fmt.Errorf("holders base url not configured: %w", ErrUnavailable)
	}
	if h.opts.TokenAddress == "" {
		return 0, fmt.Errorf("token address not configured: %w", ErrUnavailable)
	}

	total := 0
	for page := 1; page <= h.opts.MaxPages; page++ {
		count, err := h.fetchPage(ctx, page)
		if err != nil {
			return 0, err
		}
		if count == 0 {
			return total, nil
		}
		total += count
	}

	h.logger.Warn().Int("max_pages", h.opts.MaxPages).Msg("holder scan hit page limit")
	return total, nil
}

func (h *Holders) fetchPage(ctx context.Context, page int) (int, error) {
	params := url.Values{}
	params.Set("mint", h.opts.TokenAddress)
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(h.opts.PageSize))

	endpoint := h.baseURL + holderAccountsPath + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if h.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.opts.APIKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("holder page %d: %w", page, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("holder page %d status %d: %w", page, resp.StatusCode, ErrUnavailable)
	}

	var body tokenAccountsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode holder page %d: %w", page, ErrUnavailable)
	}

	return len(body.Accounts), nil
}

type tokenAccountsResponse struct {
	Accounts []struct {
		Address string `json:"address"`
		Owner   string `json:"owner"`
		Amount  string `json:"amount"`
	} `json:"accounts"`
}

var _ HolderCountFetcher = (*Holders)(nil)
