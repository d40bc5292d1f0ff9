package daemon_test

import (
	"context"
	"path/filepath"
	"testing"

	"tonearm/internal/config"
	"tonearm/internal/daemon"
)

func lockTestConfig(t *testing.T, shared string) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Paths.WorkDir = filepath.Join(t.TempDir(), "work")
	cfg.Paths.OutputDir = filepath.Join(t.TempDir(), "out")
	cfg.Paths.LogDir = shared
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Workflow.DownloadConcurrency = 1
	cfg.Workflow.JobRetentionHours = 1
	cfg.Workflow.SweepIntervalMinutes = 60
	cfg.Preview.TTLMinutes = 5
	cfg.Preview.MaxListings = 4
	return cfg
}

func TestDaemonLockExcludesSecondInstance(t *testing.T) {
	lockDir := t.TempDir()
	ctx := context.Background()

	first, err := daemon.New(lockTestConfig(t, lockDir), nil, daemon.WithExecutor(&fakeExecutor{}))
	if err != nil {
		t.Fatalf("New first: %v", err)
	}
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start first: %v", err)
	}
	defer first.Close()

	second, err := daemon.New(lockTestConfig(t, lockDir), nil, daemon.WithExecutor(&fakeExecutor{}))
	if err != nil {
		t.Fatalf("New second: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Close()
		t.Fatal("second instance must not acquire the lock")
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("Start after release: %v", err)
	}
	second.Close()
}

func TestDaemonStatusReportsActiveJobs(t *testing.T) {
	d, _ := newTestDaemon(t, &fakeExecutor{})

	status := d.Status(context.Background())
	if status.ActiveJobs != 0 {
		t.Fatalf("activeJobs = %d", status.ActiveJobs)
	}
	if len(status.Dependencies) != 3 {
		t.Fatalf("dependencies = %d", len(status.Dependencies))
	}
	if status.Running {
		t.Fatal("daemon not started, must not report running")
	}
}
