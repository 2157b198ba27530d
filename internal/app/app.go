package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"poolwatch/internal/alerting"
	"poolwatch/internal/config"
	"poolwatch/internal/engine"
	"poolwatch/internal/fetcher"
	"poolwatch/internal/ops"
	"poolwatch/internal/scheduler"
	"poolwatch/internal/service"
	"poolwatch/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newGateways() service.Gateways {
	price := fetcher.NewBirdeye(fetcher.BirdeyeOptions{
		BaseURL:      a.Config.Birdeye.BaseURL,
		APIKey:       a.Config.Birdeye.APIKey,
		Chain:        a.Config.Birdeye.Chain,
		TokenAddress: a.Config.Token.Address,
		Timeout:      a.Config.Birdeye.RequestTimeout,
	}, a.Logger)

	supply := fetcher.NewSupply(fetcher.SupplyOptions{
		RPCURL:       a.Config.Ethereum.RPCURL,
		TokenAddress: a.Config.Token.Address,
		Decimals:     a.Config.Token.Decimals,
		Timeout:      a.Config.Ethereum.RequestTimeout,
	}, a.Logger)

	pools := fetcher.NewDexScreener(fetcher.DexScreenerOptions{
		BaseURL:      a.Config.Markets.BaseURL,
		TokenAddress: a.Config.Token.Address,
		Timeout:      a.Config.Markets.RequestTimeout,
		UserAgent:    a.Config.Markets.UserAgent,
	}, a.Logger)

	holders := fetcher.NewHolders(fetcher.HoldersOptions{
		BaseURL:      a.Config.Holders.BaseURL,
		APIKey:       a.Config.Holders.APIKey,
		TokenAddress: a.Config.Token.Address,
		PageSize:     a.Config.Holders.PageSize,
		MaxPages:     a.Config.Holders.MaxPages,
		Timeout:      a.Config.Holders.RequestTimeout,
	}, a.Logger)

	return service.Gateways{Price: price, Supply: supply, Pools: pools, Holders: holders}
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Discord.Enabled {
		cfg := a.Config.Alerting.Discord
		timeout := cfg.RequestTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		return alerting.NewDiscordNotifier(cfg.BotToken, cfg.ChannelID, cfg.APIBase, timeout, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}

	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newService(store *storage.Store) *service.Service {
	eng := engine.New(store, a.Logger)

	var lister storage.PoolLister
	var locker storage.AdvisoryLocker
	if store != nil {
		lister = store
		locker = store
	}

	return service.New(a.Config, eng, a.newGateways(), lister, locker, a.newNotifier(), a.Logger)
}

// Run executes the long-running monitoring service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn is required for the monitoring service")
	}
	defer closeStore()

	svc := a.newService(store)

	sched := scheduler.New(scheduler.Options{
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	sched.Add(scheduler.Job{
		Name:       "hourly",
		Interval:   time.Hour,
		Offset:     a.Config.Scheduler.HourlyOffset,
		RunAtStart: a.Config.Scheduler.RunAtStart,
		Tick:       svc.ProcessHourly,
	})
	sched.Add(scheduler.Job{
		Name:     "pool_scan",
		Interval: time.Hour,
		Offset:   a.Config.Scheduler.PoolScanOffset,
		Tick:     svc.ProcessPoolScan,
	})

	if a.Config.Ops.Enabled {
		server := ops.NewServer(a.Config.Ops.ListenAddr, store, a.Logger)
		go func() {
			if err := server.Run(ctx); err != nil {
				a.Logger.Error().Err(err).Msg("ops server terminated")
			}
		}()
	}

	a.Logger.Info().Msg("starting monitoring service")
	err = sched.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("monitoring service stopped")
	return nil
}

// Once runs a single hourly pass and exits. Useful for cron-style
// deployments and smoke checks.
func (a *App) Once(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn is required for a monitoring pass")
	}
	defer closeStore()

	svc := a.newService(store)
	bucket := time.Now().UTC().Truncate(time.Hour)
	return svc.ProcessHourly(ctx, bucket)
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}
