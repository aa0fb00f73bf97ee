package fileindex

import (
	"context"
	"testing"
	"time"
)

func TestFlushDaemonTouchResetsActivity(t *testing.T) {
	r, err := NewRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	defer r.Dispose()

	d := NewFlushDaemon(r)
	first := d.lastActivity.Load()

	time.Sleep(time.Millisecond)
	d.Touch()
	second := d.lastActivity.Load()

	if second <= first {
		t.Fatalf("expected Touch to advance lastActivity, first=%d second=%d", first, second)
	}
}

func TestFlushDaemonStartStopLifecycle(t *testing.T) {
	r, err := NewRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	defer r.Dispose()

	d := NewFlushDaemon(r)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d.Start(ctx)
	d.Stop()
}
