// Package maintenance runs periodic housekeeping jobs on cron schedules:
// expiring cards that are past their validity and purging dead refresh
// tokens. Jobs run outside any request and never overlap with themselves.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/cards-api/internal/config"
	"github.com/phrazzld/cards-api/internal/platform/logger"
	"github.com/robfig/cron/v3"
)

// Job is a unit of housekeeping work.
type Job interface {
	// Name identifies the job in logs.
	Name() string
	// Run performs one pass. now is the scheduler's clock at trigger time.
	Run(ctx context.Context, now time.Time) error
}

// Scheduler triggers registered jobs on their cron schedules.
type Scheduler struct {
	cron     *cron.Cron
	ctx      context.Context
	cancel   context.CancelFunc
	timeFunc func() time.Time
	timeout  time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	started bool
}

// DefaultJobTimeout bounds a single job run.
const DefaultJobTimeout = 5 * time.Minute

// NewScheduler creates a Scheduler evaluating schedules in UTC.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "maintenance"))

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger})),
		),
		ctx:      ctx,
		cancel:   cancel,
		timeFunc: time.Now,
		timeout:  DefaultJobTimeout,
		logger:   logger,
	}
}

// Register schedules job with a five-field cron spec or a descriptor such as
// "@hourly".
func (s *Scheduler) Register(spec string, job Job) error {
	if job == nil {
		return errors.New("maintenance: job cannot be nil")
	}
	if _, err := s.cron.AddFunc(spec, func() { s.RunNow(job) }); err != nil {
		return fmt.Errorf("maintenance: invalid schedule %q for %s: %w", spec, job.Name(), err)
	}
	s.logger.Info("job scheduled", slog.String("job", job.Name()), slog.String("schedule", spec))
	return nil
}

// RunNow runs job once, synchronously, the way the cron trigger would.
func (s *Scheduler) RunNow(job Job) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	log := s.logger.With(slog.String("job", job.Name()))
	ctx = logger.WithLogger(ctx, log)

	started := time.Now()
	if err := job.Run(ctx, s.timeFunc().UTC()); err != nil {
		log.Error("job failed", slog.String("error", err.Error()))
		return
	}
	log.Debug("job finished", slog.Duration("took", time.Since(started)))
}

// Start begins triggering jobs in the background.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
}

// Stop prevents further triggers, cancels running jobs and waits for them to
// return or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Setup builds a scheduler with the expiry sweep and token purge registered
// according to cfg. It returns nil when maintenance is disabled.
func Setup(cfg config.MaintenanceConfig, cards CardExpirer, tokens TokenPurger, logger *slog.Logger) (*Scheduler, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	s := NewScheduler(logger)
	if err := s.Register(cfg.ExpirySweepCron, NewExpirySweep(cards)); err != nil {
		return nil, err
	}
	if err := s.Register(cfg.TokenPurgeCron, NewTokenPurge(tokens)); err != nil {
		return nil, err
	}
	return s, nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
