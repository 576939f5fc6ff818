package daemon_test

import (
	"context"
	"testing"

	"podkeep/internal/daemon"
	"podkeep/internal/download"
	"podkeep/internal/logging"
	"podkeep/internal/testsupport"
)

func TestDaemonEnforcesSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	mgr := download.NewManager(cfg, st, logging.NewNop())

	first, err := daemon.New(cfg, st, logging.NewNop(), mgr, nil, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer first.Stop()

	secondMgr := download.NewManager(cfg, st, logging.NewNop())
	second, err := daemon.New(cfg, st, logging.NewNop(), secondMgr, nil, nil)
	if err != nil {
		t.Fatalf("daemon.New second: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second daemon should fail to acquire the lock")
	}
}

func TestDaemonStatusAndRestart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	mgr := download.NewManager(cfg, st, logging.NewNop())

	d, err := daemon.New(cfg, st, logging.NewNop(), mgr, nil, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	if d.Status().Running {
		t.Fatal("fresh daemon should not report running")
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	status := d.Status()
	if !status.Running || status.DatabasePath == "" || status.PID == 0 {
		t.Fatalf("unexpected status: %+v", status)
	}
	if d.APIAddr() == "" {
		t.Fatal("expected bound api address")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("stopped daemon should not report running")
	}

	// The lock is released on stop, so a restart succeeds.
	restartMgr := download.NewManager(cfg, st, logging.NewNop())
	restart, err := daemon.New(cfg, st, logging.NewNop(), restartMgr, nil, nil)
	if err != nil {
		t.Fatalf("daemon.New restart: %v", err)
	}
	if err := restart.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	restart.Stop()
}
