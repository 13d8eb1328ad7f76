package cron

import (
	"context"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	registry := NewRegistry(jobA, nil)
	registry.Register(jobB)

	jobs := registry.Jobs()
	if len(jobs) != 2 || jobs[0] != jobA || jobs[1] != jobB {
		t.Fatalf("unexpected jobs %v", jobs)
	}
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}

func TestRegistryFind(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "low-stock-sweep"})
	if _, ok := registry.Find("low-stock-sweep"); !ok {
		t.Fatalf("expected job to be found")
	}
	if _, ok := registry.Find("missing"); ok {
		t.Fatalf("expected unknown job to be absent")
	}
}
