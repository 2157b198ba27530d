package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked on every aligned interval.
type TickFunc func(ctx context.Context, bucket time.Time) error

// Job is one (cadence, operation) pair. Offset shifts the aligned fire
// time within the interval, e.g. interval 1h offset 30m fires at minute 30.
type Job struct {
	Name       string
	Interval   time.Duration
	Offset     time.Duration
	RunAtStart bool
	Tick       TickFunc
}

// Options tune scheduler behaviour.
type Options struct {
	StartupDelay time.Duration
}

// Scheduler drives wall-clock-aligned execution of the registered jobs.
// Jobs run in independent goroutines; ticks within one job never overlap,
// overlap across jobs is the store layer's concern.
type Scheduler struct {
	opts   Options
	jobs   []Job
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Add registers a job. Must be called before Run.
func (s *Scheduler) Add(job Job) {
	if job.Interval <= 0 {
		panic("scheduler job interval must be positive")
	}
	s.jobs = append(s.jobs, job)
}

// Run blocks, driving all registered jobs until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	var wg sync.WaitGroup
	for _, job := range s.jobs {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			s.runJob(ctx, job)
		}(job)
	}
	wg.Wait()
	return ctx.Err()
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	logger := s.logger.With().Str("job", job.Name).Logger()

	if job.RunAtStart {
		bucket := time.Now().UTC()
		logger.Info().Time("bucket", bucket).Msg("executing startup tick")
		if err := job.Tick(ctx, bucket); err != nil {
			logger.Error().Err(err).Time("bucket", bucket).Msg("tick execution failed")
		}
	}

	next := nextTick(time.Now().UTC(), job.Interval, job.Offset)
	for {
		delay := time.Until(next)
		if delay < 0 {
			next = nextTick(time.Now().UTC(), job.Interval, job.Offset)
			delay = time.Until(next)
		}

		timer := time.NewTimer(delay)
		logger.Debug().Time("next_bucket", next).Msg("waiting for next bucket")

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			timer.Stop()
		}

		logger.Info().Time("bucket", next).Msg("executing scheduled tick")
		if err := job.Tick(ctx, next); err != nil {
			logger.Error().Err(err).Time("bucket", next).Msg("tick execution failed")
		}

		next = next.Add(job.Interval)
	}
}

// nextTick returns the first aligned fire time strictly after now.
func nextTick(now time.Time, interval, offset time.Duration) time.Time {
	next := now.Truncate(interval).Add(offset)
	for !next.After(now) {
		next = next.Add(interval)
	}
	return next
}
