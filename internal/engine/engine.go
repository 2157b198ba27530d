package engine

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"poolwatch/internal/fetcher"
	"poolwatch/internal/storage"
)

// Engine reconciles observed pool snapshots against the persisted pool
// store and decides which change events to raise. It exclusively owns
// read-modify-write access to the store during a pass.
type Engine struct {
	store  storage.PoolStore
	logger zerolog.Logger
	now    func() time.Time
}

// New constructs a reconciliation engine.
func New(store storage.PoolStore, logger zerolog.Logger) *Engine {
	return &Engine{
		store:  store,
		logger: logger.With().Str("component", "engine").Logger(),
		now:    time.Now,
	}
}

// ReconcilePools diffs a fresh snapshot against the store. Unknown pools
// are inserted and raise a NewPool event; known pools get their price
// fields refreshed silently. Pools absent from the snapshot are ignored:
// the engine does not track removal. Per-pool store failures are skipped,
// pools are independent entities.
func (e *Engine) ReconcilePools(ctx context.Context, snapshot fetcher.MarketSnapshot) ([]ChangeEvent, error) {
	entries := dedupeEntries(snapshot.Pools)
	now := e.now().UTC()

	var events []ChangeEvent
	for _, entry := range entries {
		if ctx.Err() != nil {
			return events, ctx.Err()
		}

		if (storage.PoolRecord{PoolID: entry.PoolID}).IsBucket() {
			e.logger.Warn().Str("pool_id", entry.PoolID).Msg("snapshot entry collides with a bucket id, skipping")
			continue
		}

		existing, err := e.store.GetPool(ctx, entry.PoolID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			record := storage.PoolRecord{
				PoolID:       entry.PoolID,
				DexID:        entry.DexID,
				PairLabel:    entry.PairLabel,
				URL:          entry.URL,
				PriceNative:  entry.PriceNative,
				PriceUsd:     entry.PriceUsd,
				LiquidityUsd: entry.LiquidityUsd,
				LastSeen:     now,
			}
			if insertErr := e.store.InsertPool(ctx, record); insertErr != nil {
				e.logger.Error().Err(insertErr).Str("pool_id", entry.PoolID).Msg("failed to insert pool")
				continue
			}
			e.logger.Info().Str("pool_id", entry.PoolID).Str("dex_id", entry.DexID).Msg("new pool observed")
			events = append(events, ChangeEvent{Kind: EventNewPool, Pool: &record})

		case err != nil:
			e.logger.Error().Err(err).Str("pool_id", entry.PoolID).Msg("failed to look up pool")
			continue

		default:
			if updateErr := e.store.UpdatePoolPrices(ctx, existing.PoolID, entry.PriceNative, entry.PriceUsd, entry.LiquidityUsd, now); updateErr != nil {
				e.logger.Error().Err(updateErr).Str("pool_id", entry.PoolID).Msg("failed to refresh pool")
			}
		}
	}

	return events, nil
}

// RecordSupply stores the last observed circulating supply on a synthetic
// bucket row.
func (e *Engine) RecordSupply(ctx context.Context, bucketID string, supply decimal.Decimal) error {
	return e.store.RecordSupply(ctx, bucketID, supply, e.now().UTC())
}

// dedupeEntries collapses duplicate pool ids within one snapshot, the
// last-seen entry wins.
func dedupeEntries(entries []fetcher.PoolEntry) []fetcher.PoolEntry {
	index := make(map[string]int, len(entries))
	result := make([]fetcher.PoolEntry, 0, len(entries))
	for _, entry := range entries {
		if at, seen := index[entry.PoolID]; seen {
			result[at] = entry
			continue
		}
		index[entry.PoolID] = len(result)
		result = append(result, entry)
	}
	return result
}
