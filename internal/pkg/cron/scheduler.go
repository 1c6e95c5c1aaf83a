package cron

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job is a named task run on a fixed interval.
type Job struct {
	Name     string
	Interval time.Duration
	// RunOnStart runs the job as soon as the scheduler starts instead of
	// waiting for the first tick.
	RunOnStart bool
	Fn         func(ctx context.Context) error
}

// Scheduler runs interval jobs until its parent context is cancelled or Stop is called.
type Scheduler struct {
	jobs    []Job
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	logger  *slog.Logger
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{logger: logger.With(slog.String("component", "cron"))}
}

// AddJob registers a job. Jobs added after Start are ignored.
func (s *Scheduler) AddJob(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		s.logger.Warn("cron job registered after start, ignoring", slog.String("name", job.Name))
		return
	}
	s.jobs = append(s.jobs, job)
	s.logger.Info("cron job registered", slog.String("name", job.Name), slog.Duration("interval", job.Interval))
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.runJob(ctx, job)
	}

	s.logger.Info("cron scheduler started", slog.Int("job_count", len(s.jobs)))
}

// Stop cancels every job and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.logger.Info("cron scheduler stopped")
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	if job.RunOnStart {
		s.execute(ctx, job)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.execute(ctx, job)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, job Job) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("cron job panicked", slog.String("name", job.Name), slog.Any("panic", r))
		}
	}()

	if err := job.Fn(ctx); err != nil {
		s.logger.Error("cron job failed",
			slog.String("name", job.Name),
			slog.Any("error", err),
			slog.Duration("duration", time.Since(start)),
		)
		return
	}
	s.logger.Debug("cron job completed", slog.String("name", job.Name), slog.Duration("duration", time.Since(start)))
}

// RunOnce runs every registered job once, in registration order.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.mu.Lock()
	jobs := append([]Job(nil), s.jobs...)
	s.mu.Unlock()

	for _, job := range jobs {
		s.execute(ctx, job)
	}
}
