package cron

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/garage-backend/pkg/logger"
)

type fakeLock struct {
	held     bool
	released int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.released++
	return nil
}

type countingJob struct {
	name string
	err  error
	runs int
}

func (c *countingJob) Name() string { return c.name }

func (c *countingJob) Run(context.Context) error {
	c.runs++
	return c.err
}

func TestRunOnceRunsEveryJobAndJoinsFailures(t *testing.T) {
	ok := &countingJob{name: "ok"}
	failing := &countingJob{name: "failing", err: errors.New("boom")}
	lock := &fakeLock{}
	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: NewRegistry(failing, ok), Lock: lock})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	err = svc.RunOnce(context.Background())
	if err == nil || !strings.Contains(err.Error(), "failing: boom") {
		t.Fatalf("expected failing job error, got %v", err)
	}
	if ok.runs != 1 || failing.runs != 1 {
		t.Fatalf("expected both jobs to run once, got ok=%d failing=%d", ok.runs, failing.runs)
	}
	if lock.released != 1 || lock.held {
		t.Fatalf("expected lock released after the cycle")
	}
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &countingJob{name: "ok"}
	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: NewRegistry(job), Lock: &fakeLock{held: true}})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("expected no runs while another worker holds the lock")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	job := &hookJob{name: "sweep", run: func(context.Context) error {
		cancel()
		return nil
	}}
	lock := &fakeLock{}
	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: NewRegistry(job), Lock: lock})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := svc.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if job.runs != 1 {
		t.Fatalf("expected the first cycle to run immediately, got %d", job.runs)
	}
	if lock.held {
		t.Fatal("lease must be released even when the cycle ctx is canceled")
	}
}

func TestRunOnceRecoversPanickingJob(t *testing.T) {
	after := &countingJob{name: "after"}
	boom := &hookJob{name: "boom", run: func(context.Context) error { panic("nil map") }}
	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: NewRegistry(boom, after), Lock: &fakeLock{}})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	err = svc.RunOnce(context.Background())
	if err == nil || !strings.Contains(err.Error(), "boom: panic: nil map") {
		t.Fatalf("expected recovered panic, got %v", err)
	}
	if after.runs != 1 {
		t.Fatal("jobs after a panic should still run")
	}
}

func TestRunOnceAppliesJobTimeout(t *testing.T) {
	slow := &hookJob{name: "slow", run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	svc, err := NewService(ServiceParams{
		Logger:     logger.Nop(),
		Registry:   NewRegistry(slow),
		Lock:       &fakeLock{},
		JobTimeout: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := svc.RunOnce(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

type hookJob struct {
	name string
	run  func(context.Context) error
	runs int
}

func (h *hookJob) Name() string { return h.name }

func (h *hookJob) Run(ctx context.Context) error {
	h.runs++
	return h.run(ctx)
}

func TestNewServiceRequiresLock(t *testing.T) {
	if _, err := NewService(ServiceParams{Logger: logger.Nop()}); err == nil {
		t.Fatalf("expected missing lock to fail")
	}
}
