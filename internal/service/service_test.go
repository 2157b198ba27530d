package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"poolwatch/internal/alerting"
	"poolwatch/internal/config"
	"poolwatch/internal/engine"
	"poolwatch/internal/fetcher"
	"poolwatch/internal/storage"
)

// memoryStore is an in-memory PoolStore for service tests.
type memoryStore struct {
	mu      sync.Mutex
	records map[string]storage.PoolRecord
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string]storage.PoolRecord)}
}

func (m *memoryStore) GetPool(_ context.Context, poolID string) (storage.PoolRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[poolID]
	if !ok {
		return storage.PoolRecord{}, storage.ErrNotFound
	}
	return record, nil
}

func (m *memoryStore) InsertPool(_ context.Context, record storage.PoolRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[record.PoolID]; !exists {
		m.records[record.PoolID] = record
	}
	return nil
}

func (m *memoryStore) UpdatePoolPrices(_ context.Context, poolID string, native, usd, liquidity *decimal.Decimal, seen time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[poolID]
	if !ok {
		return storage.ErrNotFound
	}
	record.PriceNative = native
	record.PriceUsd = usd
	record.LiquidityUsd = liquidity
	record.LastSeen = seen
	m.records[poolID] = record
	return nil
}

func (m *memoryStore) SwapBucketPrice(_ context.Context, bucketID string, price decimal.Decimal, seen time.Time) (*decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, existed := m.records[bucketID]
	var prev *decimal.Decimal
	if existed && record.PriceUsd != nil {
		p := *record.PriceUsd
		prev = &p
	}
	record.PoolID = bucketID
	record.PriceUsd = &price
	record.LastSeen = seen
	m.records[bucketID] = record
	return prev, nil
}

func (m *memoryStore) RecordSupply(_ context.Context, bucketID string, supply decimal.Decimal, seen time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record := m.records[bucketID]
	record.PoolID = bucketID
	record.Supply = &supply
	record.LastSeen = seen
	m.records[bucketID] = record
	return nil
}

var _ storage.PoolStore = (*memoryStore)(nil)

// captureNotifier records every delivered message.
type captureNotifier struct {
	mu       sync.Mutex
	messages []alerting.Message
}

func (c *captureNotifier) Notify(_ context.Context, message alerting.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, message)
	return nil
}

func (c *captureNotifier) titles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	titles := make([]string, 0, len(c.messages))
	for _, m := range c.messages {
		titles = append(titles, m.Title)
	}
	return titles
}

type staticGateways struct {
	price      decimal.Decimal
	priceErr   error
	supply     decimal.Decimal
	supplyErr  error
	snapshot   fetcher.MarketSnapshot
	poolsErr   error
	holders    int
	holdersErr error
}

func (g *staticGateways) FetchPrice(context.Context) (decimal.Decimal, error) {
	return g.price, g.priceErr
}

func (g *staticGateways) FetchSupply(context.Context) (decimal.Decimal, error) {
	return g.supply, g.supplyErr
}

func (g *staticGateways) FetchPoolSnapshot(context.Context) (fetcher.MarketSnapshot, error) {
	return g.snapshot, g.poolsErr
}

func (g *staticGateways) FetchHolderCount(context.Context) (int, error) {
	return g.holders, g.holdersErr
}

func testConfig() *config.Config {
	return &config.Config{
		Token: config.TokenConfig{
			Address:       "0xabc",
			Symbol:        "TOKE",
			GenesisSupply: "420000069",
		},
		Alerting: config.AlertingConfig{
			Enabled:       true,
			VolatilityPct: 10.0,
			RolloverHour:  0,
		},
	}
}

func newTestService(store storage.PoolStore, gw *staticGateways, notifier alerting.Notifier) *Service {
	eng := engine.New(store, zerolog.Nop())
	gateways := Gateways{Price: gw, Supply: gw, Pools: gw, Holders: gw}
	return New(testConfig(), eng, gateways, nil, nil, notifier, zerolog.Nop())
}

func hourlyBucket(hour int) time.Time {
	return time.Date(2024, 3, 1, hour, 0, 0, 0, time.UTC)
}

func TestHourlyPassPostsPriceCard(t *testing.T) {
	store := newMemoryStore()
	notifier := &captureNotifier{}
	gw := &staticGateways{price: decimal.RequireFromString("1.25")}
	svc := newTestService(store, gw, notifier)

	if err := svc.ProcessHourly(context.Background(), hourlyBucket(12)); err != nil {
		t.Fatalf("hourly pass failed: %v", err)
	}

	titles := notifier.titles()
	if len(titles) != 1 || titles[0] != "**Price**" {
		t.Fatalf("expected a single price card, got %v", titles)
	}

	record, err := store.GetPool(context.Background(), storage.BucketHourlyPrice)
	if err != nil {
		t.Fatalf("hourly bucket should be persisted: %v", err)
	}
	if record.PriceUsd.Cmp(decimal.RequireFromString("1.25")) != 0 {
		t.Fatalf("baseline should be 1.25, got %s", record.PriceUsd)
	}
}

func TestHourlyPassVolatilityAlert(t *testing.T) {
	store := newMemoryStore()
	notifier := &captureNotifier{}
	gw := &staticGateways{price: decimal.RequireFromString("1.0")}
	svc := newTestService(store, gw, notifier)
	ctx := context.Background()

	if err := svc.ProcessHourly(ctx, hourlyBucket(12)); err != nil {
		t.Fatalf("baseline pass failed: %v", err)
	}

	gw.price = decimal.RequireFromString("1.2") // +20%, above the 10% threshold
	if err := svc.ProcessHourly(ctx, hourlyBucket(13)); err != nil {
		t.Fatalf("second pass failed: %v", err)
	}

	var sawAlert bool
	for _, title := range notifier.titles() {
		if title == "**Price Alert**" {
			sawAlert = true
		}
	}
	if !sawAlert {
		t.Fatalf("expected a volatility alert, got %v", notifier.titles())
	}
}

func TestHourlyPassBelowThresholdIsQuiet(t *testing.T) {
	store := newMemoryStore()
	notifier := &captureNotifier{}
	gw := &staticGateways{price: decimal.RequireFromString("1.0")}
	svc := newTestService(store, gw, notifier)
	ctx := context.Background()

	_ = svc.ProcessHourly(ctx, hourlyBucket(12))
	gw.price = decimal.RequireFromString("1.05") // +5%
	_ = svc.ProcessHourly(ctx, hourlyBucket(13))

	for _, title := range notifier.titles() {
		if title == "**Price Alert**" {
			t.Fatalf("5%% move must not alert at a 10%% threshold: %v", notifier.titles())
		}
	}
}

func TestHourlyPassPriceUnavailable(t *testing.T) {
	store := newMemoryStore()
	notifier := &captureNotifier{}
	gw := &staticGateways{priceErr: fetcher.ErrUnavailable}
	svc := newTestService(store, gw, notifier)

	if err := svc.ProcessHourly(context.Background(), hourlyBucket(12)); err == nil {
		t.Fatal("unavailable price should fail the pass")
	}
	if len(notifier.titles()) != 0 {
		t.Fatalf("a failed pass must stay silent, got %v", notifier.titles())
	}
	if len(store.records) != 0 {
		t.Fatalf("a failed pass must not mutate the store, got %d records", len(store.records))
	}
}

func TestPoolScanAnnouncesNewPools(t *testing.T) {
	store := newMemoryStore()
	notifier := &captureNotifier{}
	usd := decimal.RequireFromString("1.0")
	gw := &staticGateways{
		snapshot: fetcher.MarketSnapshot{Pools: []fetcher.PoolEntry{
			{PoolID: "pool-a", DexID: "raydium", PriceUsd: &usd},
		}},
	}
	svc := newTestService(store, gw, notifier)
	ctx := context.Background()

	if err := svc.ProcessPoolScan(ctx, hourlyBucket(12)); err != nil {
		t.Fatalf("pool scan failed: %v", err)
	}
	titles := notifier.titles()
	if len(titles) != 1 || titles[0] != "**New Pool**" {
		t.Fatalf("expected one new pool message, got %v", titles)
	}

	// Second scan with the same snapshot stays silent.
	if err := svc.ProcessPoolScan(ctx, hourlyBucket(13)); err != nil {
		t.Fatalf("second pool scan failed: %v", err)
	}
	if len(notifier.titles()) != 1 {
		t.Fatalf("repeat scan must not re-announce pools, got %v", notifier.titles())
	}
}

func TestRolloverPostsDailySummary(t *testing.T) {
	store := newMemoryStore()
	notifier := &captureNotifier{}
	gw := &staticGateways{
		price:   decimal.RequireFromString("1.25"),
		supply:  decimal.NewFromInt(420_000_000),
		holders: 1234,
	}
	svc := newTestService(store, gw, notifier)

	if err := svc.ProcessHourly(context.Background(), hourlyBucket(0)); err != nil {
		t.Fatalf("rollover pass failed: %v", err)
	}

	var daily *alerting.Message
	for i := range notifier.messages {
		if notifier.messages[i].Title == "**TOKE Daily**" {
			daily = &notifier.messages[i]
		}
	}
	if daily == nil {
		t.Fatalf("expected a daily summary, got %v", notifier.titles())
	}
	if !strings.Contains(daily.Description, "1234") {
		t.Fatalf("daily summary should carry the holder count: %q", daily.Description)
	}

	record, err := store.GetPool(context.Background(), storage.BucketBirdeyePrice)
	if err != nil {
		t.Fatalf("day bucket should be persisted: %v", err)
	}
	if record.Supply == nil || record.Supply.Cmp(decimal.NewFromInt(420_000_000)) != 0 {
		t.Fatalf("day bucket should record the observed supply, got %v", record.Supply)
	}
}

func TestRolloverSkippedOutsideBoundaryHour(t *testing.T) {
	store := newMemoryStore()
	notifier := &captureNotifier{}
	gw := &staticGateways{
		price:   decimal.RequireFromString("1.25"),
		supply:  decimal.NewFromInt(420_000_000),
		holders: 1234,
	}
	svc := newTestService(store, gw, notifier)

	if err := svc.ProcessHourly(context.Background(), hourlyBucket(12)); err != nil {
		t.Fatalf("hourly pass failed: %v", err)
	}
	for _, title := range notifier.titles() {
		if title == "**TOKE Daily**" {
			t.Fatalf("daily summary must only fire at the boundary hour: %v", notifier.titles())
		}
	}
}

func TestRolloverAbortsWhenHoldersUnavailable(t *testing.T) {
	store := newMemoryStore()
	notifier := &captureNotifier{}
	gw := &staticGateways{
		price:      decimal.RequireFromString("1.25"),
		supply:     decimal.NewFromInt(420_000_000),
		holdersErr: fetcher.ErrUnavailable,
	}
	svc := newTestService(store, gw, notifier)

	if err := svc.ProcessHourly(context.Background(), hourlyBucket(0)); err != nil {
		t.Fatalf("pass should survive a failed summary: %v", err)
	}

	titles := notifier.titles()
	for _, title := range titles {
		if title == "**TOKE Daily**" {
			t.Fatalf("summary must be skipped when a source is unavailable: %v", titles)
		}
	}
	// The price card still went out.
	if len(titles) == 0 || titles[0] != "**Price**" {
		t.Fatalf("expected the price card to survive, got %v", titles)
	}
}
