package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/garage-backend/pkg/logger"
	"github.com/angelmondragon/garage-backend/pkg/metrics"
)

const (
	defaultInterval   = time.Hour
	defaultJobTimeout = 5 * time.Minute
)

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.JobMetrics
	Interval time.Duration
	// JobTimeout caps each job's context. Zero means five minutes.
	JobTimeout time.Duration
}

// Service runs every registered job once per interval, on whichever worker holds the lock.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	lock       Lock
	metrics    *metrics.JobMetrics
	interval   time.Duration
	jobTimeout time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Lock == nil {
		return nil, errors.New("lock required")
	}
	s := &Service{
		logg:       params.Logger,
		registry:   params.Registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   params.Interval,
		jobTimeout: params.JobTimeout,
	}
	if s.registry == nil {
		s.registry = NewRegistry()
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	if s.jobTimeout <= 0 {
		s.jobTimeout = defaultJobTimeout
	}
	return s, nil
}

// Run executes a cycle immediately and then on every tick until ctx is canceled. A failed
// cycle is logged and does not stop the loop.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if err := s.RunOnce(ctx); err != nil {
			s.logg.Error(ctx, "cron.cycle.failed", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce runs all jobs in registration order. One job failing does not skip the rest;
// every failure is returned.
func (s *Service) RunOnce(ctx context.Context) error {
	held, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !held {
		s.logg.Info(ctx, "cron.cycle.skipped")
		return nil
	}
	defer func() {
		// The cycle ctx may already be canceled; the lease still has to go.
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "cron.lock.release_failed", err)
		}
	}()

	var failures error
	for _, job := range s.registry.Jobs() {
		if ctx.Err() != nil {
			return multierr.Append(failures, ctx.Err())
		}
		if err := s.runJob(ctx, job); err != nil {
			failures = multierr.Append(failures, fmt.Errorf("%s: %w", job.Name(), err))
		}
	}
	return failures
}

func (s *Service) runJob(ctx context.Context, job Job) (err error) {
	ctx = s.logg.WithField(ctx, "job", job.Name())
	jobCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		elapsed := time.Since(start)
		s.metrics.ObserveRun(job.Name(), elapsed, err)

		logCtx := s.logg.WithField(ctx, "duration_ms", elapsed.Milliseconds())
		if err != nil {
			s.logg.Error(logCtx, "cron.job.failed", err)
			return
		}
		s.logg.Info(logCtx, "cron.job.completed")
	}()

	return job.Run(jobCtx)
}
