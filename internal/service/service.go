package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"poolwatch/internal/alerting"
	"poolwatch/internal/config"
	"poolwatch/internal/engine"
	"poolwatch/internal/fetcher"
	"poolwatch/internal/metrics"
	"poolwatch/internal/storage"
)

// Gateways bundles the market data sources a pass reads from.
type Gateways struct {
	Price   fetcher.PriceFetcher
	Supply  fetcher.SupplyFetcher
	Pools   fetcher.PoolSnapshotFetcher
	Holders fetcher.HolderCountFetcher
}

// Service orchestrates fetching, reconciliation, and alerting. All
// dependencies are injected; the service owns no timing logic beyond the
// rollover predicate.
type Service struct {
	engine   *engine.Engine
	gateways Gateways
	lister   storage.PoolLister
	locker   storage.AdvisoryLocker
	notifier alerting.Notifier
	logger   zerolog.Logger

	threshold     decimal.Decimal
	genesisSupply decimal.Decimal
	rolloverHour  int
	alertsOn      bool
	symbol        string
	avatarURL     string
	lockKey       int64
}

// New constructs the monitoring service.
func New(cfg *config.Config, eng *engine.Engine, gateways Gateways, lister storage.PoolLister, locker storage.AdvisoryLocker, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	threshold := decimal.Zero
	if cfg.Alerting.Enabled && cfg.Alerting.VolatilityPct > 0 {
		threshold = decimal.NewFromFloat(cfg.Alerting.VolatilityPct)
	}

	genesis, err := decimal.NewFromString(cfg.Token.GenesisSupply)
	if err != nil {
		logger.Error().Err(err).Str("genesis_supply", cfg.Token.GenesisSupply).Msg("invalid genesis supply, burn metrics disabled")
		genesis = decimal.Zero
	}

	return &Service{
		engine:        eng,
		gateways:      gateways,
		lister:        lister,
		locker:        locker,
		notifier:      notifier,
		logger:        logger.With().Str("component", "service").Logger(),
		threshold:     threshold,
		genesisSupply: genesis,
		rolloverHour:  cfg.Alerting.RolloverHour,
		alertsOn:      cfg.Alerting.Enabled,
		symbol:        cfg.Token.Symbol,
		avatarURL:     cfg.Token.AvatarURL,
		lockKey:       cfg.Scheduler.AdvisoryLockKey,
	}
}

// ProcessHourly runs the full hourly pass: price sample, price card,
// volatility check, pool reconciliation, and the day-rollover summary.
func (s *Service) ProcessHourly(ctx context.Context, bucket time.Time) error {
	return s.runPass(ctx, "hourly", bucket, s.executeHourly)
}

// ProcessPoolScan runs the reconcile-only pass used by the half-hour
// cadence and the startup tick.
func (s *Service) ProcessPoolScan(ctx context.Context, bucket time.Time) error {
	return s.runPass(ctx, "pool_scan", bucket, s.executePoolScan)
}

func (s *Service) runPass(ctx context.Context, job string, bucket time.Time, execute func(context.Context, time.Time) error) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		metrics.PassTotal.WithLabelValues(job, "error").Inc()
		return err
	}
	if !proceed {
		s.logger.Debug().Str("job", job).Time("bucket", bucket).Msg("skip pass because advisory lock held elsewhere")
		metrics.PassTotal.WithLabelValues(job, "skipped").Inc()
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	start := time.Now()
	err = execute(ctx, bucket)
	metrics.PassDuration.WithLabelValues(job).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PassTotal.WithLabelValues(job, "error").Inc()
		return err
	}
	metrics.PassTotal.WithLabelValues(job, "ok").Inc()
	return nil
}

func (s *Service) executeHourly(ctx context.Context, bucket time.Time) error {
	price, err := s.gateways.Price.FetchPrice(ctx)
	if err != nil {
		metrics.FetchTotal.WithLabelValues("price", "error").Inc()
		return fmt.Errorf("fetch price: %w", err)
	}
	metrics.FetchTotal.WithLabelValues("price", "ok").Inc()

	rawRate, err := s.engine.SampleAndCompareRate(ctx, storage.BucketHourlyPrice, price)
	if err != nil {
		return fmt.Errorf("sample hourly rate: %w", err)
	}

	rate := engine.RoundHourlyRate(rawRate)
	direction := engine.ClassifyDirection(rate)

	s.logger.Info().Time("bucket", bucket).
		Str("price_usd", price.String()).
		Str("rate_pct", rate.String()).
		Str("direction", string(direction)).
		Msg("hourly sample recorded")

	s.send(ctx, "price_card", alerting.PriceCard(price, rate, direction, s.avatarURL))

	if !s.threshold.IsZero() && rawRate.Abs().GreaterThanOrEqual(s.threshold) {
		event := engine.ChangeEvent{Kind: engine.EventPriceVolatility, RatePercent: rate, Direction: direction}
		s.dispatch(ctx, []engine.ChangeEvent{event})
	}

	s.reconcile(ctx)

	if engine.IsRolloverTrigger(bucket.UTC().Hour(), s.rolloverHour) {
		s.rollover(ctx, price)
	}

	return nil
}

func (s *Service) executePoolScan(ctx context.Context, _ time.Time) error {
	return s.reconcile(ctx)
}

// reconcile fetches the pool snapshot and diffs it against the store. A
// gateway failure leaves the store untouched.
func (s *Service) reconcile(ctx context.Context) error {
	snapshot, err := s.gateways.Pools.FetchPoolSnapshot(ctx)
	if err != nil {
		metrics.FetchTotal.WithLabelValues("pools", "error").Inc()
		s.logger.Error().Err(err).Msg("pool snapshot unavailable, skipping reconciliation")
		return fmt.Errorf("fetch pool snapshot: %w", err)
	}
	metrics.FetchTotal.WithLabelValues("pools", "ok").Inc()

	events, err := s.engine.ReconcilePools(ctx, snapshot)
	if err != nil {
		return fmt.Errorf("reconcile pools: %w", err)
	}

	s.dispatch(ctx, events)
	s.observePoolCount(ctx)
	return nil
}

// rollover assembles and posts the daily summary. Any unavailable source
// aborts the summary silently; the next day's boundary tries again.
func (s *Service) rollover(ctx context.Context, price decimal.Decimal) {
	supply, err := s.gateways.Supply.FetchSupply(ctx)
	if err != nil {
		metrics.FetchTotal.WithLabelValues("supply", "error").Inc()
		s.logger.Error().Err(err).Msg("supply unavailable, skipping daily summary")
		return
	}
	metrics.FetchTotal.WithLabelValues("supply", "ok").Inc()

	dayRate, err := s.engine.SampleAndCompareRate(ctx, storage.BucketBirdeyePrice, price)
	if err != nil {
		s.logger.Error().Err(err).Msg("day-scale rate unavailable, skipping daily summary")
		return
	}

	holders, err := s.gateways.Holders.FetchHolderCount(ctx)
	if err != nil {
		metrics.FetchTotal.WithLabelValues("holders", "error").Inc()
		s.logger.Error().Err(err).Msg("holder count unavailable, skipping daily summary")
		return
	}
	metrics.FetchTotal.WithLabelValues("holders", "ok").Inc()

	if err := s.engine.RecordSupply(ctx, storage.BucketBirdeyePrice, supply); err != nil {
		s.logger.Error().Err(err).Msg("failed to record supply sample")
	}

	summary := engine.DaySummary{
		PriceUsd:       price,
		Supply:         supply,
		DayRatePercent: dayRate.Round(1),
		BurnPercent:    engine.SupplyBurnPercent(supply, s.genesisSupply),
		MarketCapUsd:   engine.MarketCap(price, supply),
		HolderCount:    holders,
	}
	event := engine.ChangeEvent{Kind: engine.EventDayRollover, Rollover: &summary}
	s.dispatch(ctx, []engine.ChangeEvent{event})
}

// dispatch turns engine events into channel messages.
func (s *Service) dispatch(ctx context.Context, events []engine.ChangeEvent) {
	for _, event := range events {
		switch event.Kind {
		case engine.EventNewPool:
			metrics.NewPoolsTotal.Inc()
			s.send(ctx, "new_pool", alerting.NewPoolMessage(*event.Pool))
		case engine.EventPriceVolatility:
			s.send(ctx, "volatility", alerting.VolatilityMessage(event.RatePercent, s.threshold, event.Direction))
		case engine.EventDayRollover:
			s.send(ctx, "rollover", alerting.DailySummaryMessage(s.symbol, *event.Rollover, s.avatarURL))
		}
	}
}

// send delivers one message. Failures are logged and counted, never
// propagated: the channel is never told about internal problems.
func (s *Service) send(ctx context.Context, kind string, message alerting.Message) {
	if !s.alertsOn || s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, message); err != nil {
		metrics.AlertsFailedTotal.WithLabelValues(kind).Inc()
		s.logger.Error().Err(err).Str("kind", kind).Msg("failed to dispatch alert")
		return
	}
	metrics.AlertsSentTotal.WithLabelValues(kind).Inc()
}

func (s *Service) observePoolCount(ctx context.Context) {
	if s.lister == nil {
		return
	}
	count, err := s.lister.CountPools(ctx)
	if err != nil {
		s.logger.Debug().Err(err).Msg("failed to count pools")
		return
	}
	metrics.PoolsTracked.Set(float64(count))
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
