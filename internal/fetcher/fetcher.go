package fetcher

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrUnavailable signals that an upstream source failed or returned a
// malformed payload. Callers must short-circuit: no store mutation and no
// formatting ever happens on a missing value.
var ErrUnavailable = errors.New("fetcher: upstream unavailable")

// PoolEntry is one currently observed trading pair for the asset.
type PoolEntry struct {
	PoolID       string
	DexID        string
	PairLabel    string
	URL          string
	PriceNative  *decimal.Decimal
	PriceUsd     *decimal.Decimal
	LiquidityUsd *decimal.Decimal
}

// MarketSnapshot is the ephemeral result of one gateway fetch cycle. It is
// never persisted as a unit; the engine persists per-pool records from it.
type MarketSnapshot struct {
	Pools []PoolEntry
}

// PriceFetcher retrieves the current spot price in USD.
type PriceFetcher interface {
	FetchPrice(ctx context.Context) (decimal.Decimal, error)
}

// SupplyFetcher retrieves the current circulating supply in UI units.
type SupplyFetcher interface {
	FetchSupply(ctx context.Context) (decimal.Decimal, error)
}

// PoolSnapshotFetcher retrieves all currently tracked trading pairs.
type PoolSnapshotFetcher interface {
	FetchPoolSnapshot(ctx context.Context) (MarketSnapshot, error)
}

// HolderCountFetcher counts token accounts via a paginated full scan. Every
// account counts as one holder; owners with several accounts are counted
// once per account.
type HolderCountFetcher interface {
	FetchHolderCount(ctx context.Context) (int, error)
}
