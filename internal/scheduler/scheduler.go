// Package scheduler keeps selected listing queries warm in the cache: it
// optionally preloads them at startup and refreshes stale ones on a cron
// schedule.
package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dmitrymomot/estate/internal/listing"
)

var (
	// ErrInvalidPlan is returned for an unreadable plan, a bad schedule or an invalid query.
	ErrInvalidPlan = errors.New("scheduler: invalid warm-up plan")

	// ErrAlreadyStarted is returned by Start on a running scheduler.
	ErrAlreadyStarted = errors.New("scheduler: already started")
)

// Warmer is the part of listing.Service the scheduler drives.
type Warmer interface {
	Warm(ctx context.Context, f listing.Filter) error
	RefreshIfStale(ctx context.Context, f listing.Filter, maxAge time.Duration) (bool, error)
}

var _ Warmer = (*listing.Service)(nil)

// Result summarizes one pass over the plan.
type Result struct {
	Refreshed int
	Skipped   int
	Failed    int
}

// Scheduler runs a Plan against a Warmer.
type Scheduler struct {
	plan   Plan
	warmer Warmer
	logger *slog.Logger
	cron   *cron.Cron

	mu      sync.Mutex
	started bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// New validates plan and prepares the cron job. Nothing runs until Start.
func New(plan Plan, w Warmer, opts ...Option) (*Scheduler, error) {
	plan = plan.withDefaults()
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	s := &Scheduler{
		plan:   plan,
		warmer: w,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	cl := cronLogger{log: s.logger}
	sched, err := parseSchedule(plan.Schedule)
	if err != nil {
		return nil, errors.Join(ErrInvalidPlan, err)
	}

	s.cron = cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)), cron.WithLogger(cl))
	s.cron.Schedule(sched, cron.FuncJob(func() {
		s.RunOnce(context.Background())
	}))

	return s, nil
}

// Start preloads the plan if requested and starts the cron loop.
// Preload failures are logged; the stale fallback covers them later.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}

	if s.plan.Preload {
		s.Preload(ctx)
	}

	s.cron.Start()
	s.started = true

	s.logger.InfoContext(ctx, "warm-up scheduler started",
		slog.String("schedule", s.plan.Schedule),
		slog.Int("queries", len(s.plan.Queries)),
	)
	return nil
}

// Stop stops the cron loop and waits for a running pass to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.started = false

	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartFunc adapts Start to a startup hook.
func (s *Scheduler) StartFunc() func(context.Context) error {
	return s.Start
}

// Shutdown adapts Stop to a shutdown hook.
func (s *Scheduler) Shutdown() func(context.Context) error {
	return s.Stop
}

// Preload loads every query into the cache.
func (s *Scheduler) Preload(ctx context.Context) Result {
	var res Result
	for _, q := range s.plan.Queries {
		if err := s.warmer.Warm(ctx, q.Filter); err != nil {
			res.Failed++
			s.logger.WarnContext(ctx, "preload failed",
				slog.String("query", q.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		res.Refreshed++
	}

	s.logger.InfoContext(ctx, "cache preloaded",
		slog.Int("loaded", res.Refreshed),
		slog.Int("failed", res.Failed),
	)
	return res
}

// RunOnce refreshes every stale query once.
func (s *Scheduler) RunOnce(ctx context.Context) Result {
	var res Result
	for _, q := range s.plan.Queries {
		refreshed, err := s.warmer.RefreshIfStale(ctx, q.Filter, s.plan.MaxAge)
		switch {
		case err != nil:
			res.Failed++
			s.logger.WarnContext(ctx, "warm-up refresh failed",
				slog.String("query", q.Name),
				slog.String("error", err.Error()),
			)
		case refreshed:
			res.Refreshed++
		default:
			res.Skipped++
		}
	}

	s.logger.DebugContext(ctx, "warm-up pass finished",
		slog.Int("refreshed", res.Refreshed),
		slog.Int("skipped", res.Skipped),
		slog.Int("failed", res.Failed),
	)
	return res
}

// cronLogger routes cron's logging through slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append([]any{slog.String("error", err.Error())}, keysAndValues...)...)
}
