package redisstore

import (
	"context"
	"os"
	"testing"
	"time"

	"pulsewatch/config"
	"pulsewatch/internals/modules/alert"
	"pulsewatch/internals/modules/status"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func openTestClient(t *testing.T) *Client {
	t.Helper()

	url := os.Getenv("PULSEWATCH_TEST_REDIS_URL")
	if url == "" {
		t.Skip("PULSEWATCH_TEST_REDIS_URL not set")
	}

	c, err := New(&config.RedisConfig{URL: url})
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// unreachableClient points at a port nothing listens on.
func unreachableClient(t *testing.T) *Client {
	t.Helper()

	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return &Client{rdb: rdb}
}

func TestAlertStateLoadReportsTransportErrors(t *testing.T) {
	store := unreachableClient(t).AlertStateStore(time.Hour)

	st, err := store.Load(context.Background(), uuid.New())
	if err == nil {
		t.Fatalf("expected an error while redis is unreachable, got state %+v", st)
	}
	if st.LastStatus != "" || st.IncidentID != nil {
		t.Fatalf("state must be empty on error, got %+v", st)
	}
}

func TestAlertStateClaimReportsTransportErrors(t *testing.T) {
	store := unreachableClient(t).AlertStateStore(time.Hour)

	ok, err := store.Claim(context.Background(), uuid.New(), "k")
	if err == nil || ok {
		t.Fatalf("expected failed claim, got ok=%v err=%v", ok, err)
	}
}

func TestAlertStateRoundTrip(t *testing.T) {
	c := openTestClient(t)
	store := c.AlertStateStore(time.Minute)
	ctx := context.Background()
	monitorID := uuid.New()
	t.Cleanup(func() { _ = store.Clear(ctx, monitorID) })

	st, err := store.Load(ctx, monitorID)
	if err != nil {
		t.Fatalf("load missing: %v", err)
	}
	if st.LastStatus != "" || st.IncidentID != nil || st.IncidentStartedAt != nil {
		t.Fatalf("missing state must be empty, got %+v", st)
	}

	incidentID := uuid.New()
	started := time.Date(2026, 3, 1, 12, 0, 0, 123456000, time.UTC)
	if err := store.Save(ctx, monitorID, alert.State{
		LastStatus:        status.StatusDown,
		IncidentID:        &incidentID,
		IncidentStartedAt: &started,
	}); err != nil {
		t.Fatalf("save down: %v", err)
	}

	st, err = store.Load(ctx, monitorID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if st.LastStatus != status.StatusDown {
		t.Fatalf("last status = %q, want down", st.LastStatus)
	}
	if st.IncidentID == nil || *st.IncidentID != incidentID {
		t.Fatalf("incident id = %v, want %s", st.IncidentID, incidentID)
	}
	if st.IncidentStartedAt == nil || !st.IncidentStartedAt.Equal(started) {
		t.Fatalf("incident start = %v, want %s", st.IncidentStartedAt, started)
	}

	// recovery drops the incident fields
	if err := store.Save(ctx, monitorID, alert.State{LastStatus: status.StatusUp}); err != nil {
		t.Fatalf("save up: %v", err)
	}
	st, err = store.Load(ctx, monitorID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if st.LastStatus != status.StatusUp || st.IncidentID != nil || st.IncidentStartedAt != nil {
		t.Fatalf("unexpected state after recovery: %+v", st)
	}
}

func TestAlertStateClaims(t *testing.T) {
	c := openTestClient(t)
	store := c.AlertStateStore(time.Minute)
	ctx := context.Background()
	monitorID := uuid.New()
	t.Cleanup(func() { _ = store.Clear(ctx, monitorID) })

	key := alert.DedupKey(monitorID, alert.KindDown, uuid.New(), uuid.New())

	ok, err := store.Claimed(ctx, monitorID, key)
	if err != nil || ok {
		t.Fatalf("unclaimed key: ok=%v err=%v", ok, err)
	}

	ok, err = store.Claim(ctx, monitorID, key)
	if err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}
	ok, err = store.Claim(ctx, monitorID, key)
	if err != nil || ok {
		t.Fatalf("second claim must lose: ok=%v err=%v", ok, err)
	}
	ok, err = store.Claimed(ctx, monitorID, key)
	if err != nil || !ok {
		t.Fatalf("claimed after claim: ok=%v err=%v", ok, err)
	}

	if err := store.Clear(ctx, monitorID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	ok, err = store.Claimed(ctx, monitorID, key)
	if err != nil || ok {
		t.Fatalf("claims must be gone after clear: ok=%v err=%v", ok, err)
	}
}
