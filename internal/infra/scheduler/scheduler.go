package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"messmate/internal/infra/metrics"
	red "messmate/internal/infra/redis"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one unit of scheduled work.
type Job interface {
	Run(ctx context.Context) error
}

// JobFunc adapts a function to Job.
type JobFunc func(ctx context.Context) error

func (f JobFunc) Run(ctx context.Context) error { return f(ctx) }

type Options struct {
	Location *time.Location
	// Locker, when set, makes every run take a cluster-wide lock so only one
	// replica works a given job at a time.
	Locker  red.Locker
	LockTTL time.Duration
}

// Scheduler runs Jobs on cron specs. Overlapping runs of the same job are
// skipped, and a run never outlives LockTTL.
type Scheduler struct {
	cron   *cron.Cron
	locker red.Locker
	ttl    time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	log    *zerolog.Logger
}

func New(opts Options, logger *zerolog.Logger) *Scheduler {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 90 * time.Second
	}
	l := logger.With().Str("component", "Scheduler").Logger()
	cl := cronLogger{log: &l}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(opts.Location),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		locker: opts.Locker,
		ttl:    opts.LockTTL,
		ctx:    ctx,
		cancel: cancel,
		log:    &l,
	}
}

// Add registers job under name on the standard 5-field cron spec (or a
// descriptor such as "@every 2m").
func (s *Scheduler) Add(name, spec string, job Job) error {
	if _, err := s.cron.AddFunc(spec, func() { s.RunNow(name, job) }); err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	s.log.Info().Str("job", name).Str("spec", spec).Msg("job scheduled")
	return nil
}

// RunNow executes one run of job synchronously with locking, timeout,
// logging and metrics applied.
func (s *Scheduler) RunNow(name string, job Job) {
	ctx, cancel := context.WithTimeout(s.ctx, s.ttl)
	defer cancel()
	start := time.Now()
	l := s.log.With().Str("job", name).Logger()

	if s.locker != nil {
		key := red.JobLockKey(name)
		token, err := s.locker.TryLock(ctx, key, s.ttl)
		if errors.Is(err, red.ErrLockHeld) {
			l.Debug().Msg("job running elsewhere; skipped")
			metrics.ObserveJobRun(name, "skipped", time.Since(start))
			return
		}
		if err != nil {
			l.Warn().Err(err).Msg("job lock unavailable; skipped")
			metrics.ObserveJobRun(name, "skipped", time.Since(start))
			return
		}
		defer func() {
			// release with a fresh context: ctx may already be done
			uctx, ucancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer ucancel()
			if err := s.locker.Unlock(uctx, key, token); err != nil {
				l.Warn().Err(err).Msg("job unlock failed")
			}
		}()
	}

	err := job.Run(ctx)
	d := time.Since(start)
	if err != nil {
		l.Error().Err(err).Dur("duration", d).Msg("job failed")
		metrics.ObserveJobRun(name, "error", d)
		return
	}
	l.Debug().Dur("duration", d).Msg("job finished")
	metrics.ObserveJobRun(name, "ok", d)
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info().Msg("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

type cronLogger struct{ log *zerolog.Logger }

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.log.Debug().Fields(kv).Msg("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.log.Error().Err(err).Fields(kv).Msg("cron: " + msg)
}
