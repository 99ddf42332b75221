package redisstore

import (
	"context"
	"testing"
	"time"

	"pulsewatch/internals/modules/monitor"

	"github.com/google/uuid"
)

func TestMonitorCacheAddDoesNotOverwrite(t *testing.T) {
	c := openTestClient(t)
	cache := c.MonitorCache(time.Minute)
	ctx := context.Background()

	m := monitor.Monitor{ID: uuid.New(), Name: "api", URL: "https://example.com", IntervalSec: 30, Enabled: false}
	t.Cleanup(func() { _ = cache.DelMonitor(ctx, m.ID) })

	if err := cache.SetMonitor(ctx, m); err != nil {
		t.Fatalf("set: %v", err)
	}

	stale := m
	stale.Enabled = true
	if err := cache.AddMonitor(ctx, stale); err != nil {
		t.Fatalf("add: %v", err)
	}

	got, ok := cache.GetMonitor(ctx, m.ID)
	if !ok {
		t.Fatal("expected a cached monitor")
	}
	if got.Enabled {
		t.Fatal("add replaced the row written by set")
	}

	if err := cache.DelMonitor(ctx, m.ID); err != nil {
		t.Fatalf("del: %v", err)
	}
	if err := cache.AddMonitor(ctx, stale); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got, ok := cache.GetMonitor(ctx, m.ID); !ok || !got.Enabled {
		t.Fatalf("add must fill a missing entry, got %+v %v", got, ok)
	}
}
