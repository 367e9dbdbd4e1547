package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/julienlmr/gameshelf-backend/pkg/logger"
)

type fakeLock struct {
	allow    bool
	acquired int
	released int
}

func (f *fakeLock) Acquire(_ context.Context) (bool, error) {
	f.acquired++
	return f.allow, nil
}

func (f *fakeLock) Release(_ context.Context) error {
	f.released++
	return nil
}

type recordingJob struct {
	name string
	runs int
	err  error
}

func (j *recordingJob) Name() string { return j.name }

func (j *recordingJob) Run(_ context.Context) error {
	j.runs++
	return j.err
}

func newCronService(t *testing.T, lock Lock, jobs ...Job) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Registry: NewRegistry(jobs...),
		Lock:     lock,
		Interval: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestRunOnceExecutesAllJobs(t *testing.T) {
	lock := &fakeLock{allow: true}
	first := &recordingJob{name: "first"}
	second := &recordingJob{name: "second", err: errors.New("boom")}
	third := &recordingJob{name: "third"}
	svc := newCronService(t, lock, first, second, third)

	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if first.runs != 1 || second.runs != 1 || third.runs != 1 {
		t.Fatalf("expected every job to run once, got %d/%d/%d", first.runs, second.runs, third.runs)
	}
	if lock.released != 1 {
		t.Fatalf("expected lock released once, got %d", lock.released)
	}
}

func TestRunOnceSkipsWhenLockHeldElsewhere(t *testing.T) {
	lock := &fakeLock{allow: false}
	job := &recordingJob{name: "job"}
	svc := newCronService(t, lock, job)

	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("expected job skipped, got %d runs", job.runs)
	}
	if lock.released != 0 {
		t.Fatalf("expected no release without acquire, got %d", lock.released)
	}
}

func TestRegistryIgnoresNilJobs(t *testing.T) {
	registry := NewRegistry(nil, &recordingJob{name: "only"})
	registry.Register(nil)

	if len(registry.Jobs()) != 1 {
		t.Fatalf("expected one job, got %d", len(registry.Jobs()))
	}
}
