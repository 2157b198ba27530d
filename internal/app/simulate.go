package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"poolwatch/internal/engine"
	"poolwatch/internal/fetcher"
	"poolwatch/internal/service"
	"poolwatch/internal/storage"
)

// SimulateAlert drives one hourly pass against a seeded baseline so the
// alert path can be exercised without touching any upstream source.
func (a *App) SimulateAlert(ctx context.Context, previous, current decimal.Decimal) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is not enabled")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert channel configured")
	}

	store := &seededStore{baseline: previous}
	eng := engine.New(store, a.Logger)

	gateways := service.Gateways{
		Price:   &staticPriceFetcher{price: current},
		Supply:  &staticSupplyFetcher{},
		Pools:   &staticPoolFetcher{},
		Holders: &staticHolderFetcher{},
	}

	svc := service.New(a.Config, eng, gateways, nil, nil, notifier, a.Logger)

	// Pick a non-boundary hour so the pass never produces a daily summary.
	bucket := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	if a.Config.Alerting.RolloverHour == 12 {
		bucket = bucket.Add(time.Hour)
	}
	return svc.ProcessHourly(ctx, bucket)
}

// seededStore answers the first bucket swap with a fixed baseline price
// and discards all writes.
type seededStore struct {
	baseline decimal.Decimal
}

func (s *seededStore) GetPool(context.Context, string) (storage.PoolRecord, error) {
	return storage.PoolRecord{}, storage.ErrNotFound
}

func (s *seededStore) InsertPool(context.Context, storage.PoolRecord) error {
	return nil
}

func (s *seededStore) UpdatePoolPrices(context.Context, string, *decimal.Decimal, *decimal.Decimal, *decimal.Decimal, time.Time) error {
	return nil
}

func (s *seededStore) SwapBucketPrice(_ context.Context, _ string, _ decimal.Decimal, _ time.Time) (*decimal.Decimal, error) {
	prev := s.baseline
	return &prev, nil
}

func (s *seededStore) RecordSupply(context.Context, string, decimal.Decimal, time.Time) error {
	return nil
}

type staticPriceFetcher struct {
	price decimal.Decimal
}

func (s *staticPriceFetcher) FetchPrice(context.Context) (decimal.Decimal, error) {
	return s.price, nil
}

type staticSupplyFetcher struct{}

func (s *staticSupplyFetcher) FetchSupply(context.Context) (decimal.Decimal, error) {
	return decimal.Zero, fetcher.ErrUnavailable
}

type staticPoolFetcher struct{}

func (s *staticPoolFetcher) FetchPoolSnapshot(context.Context) (fetcher.MarketSnapshot, error) {
	return fetcher.MarketSnapshot{}, nil
}

type staticHolderFetcher struct{}

func (s *staticHolderFetcher) FetchHolderCount(context.Context) (int, error) {
	return 0, fetcher.ErrUnavailable
}

var _ storage.PoolStore = (*seededStore)(nil)
var _ fetcher.PriceFetcher = (*staticPriceFetcher)(nil)
var _ fetcher.PoolSnapshotFetcher = (*staticPoolFetcher)(nil)
