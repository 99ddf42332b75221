package history

import (
	"context"
	"os"
	"testing"
	"time"

	"pulsewatch/pkg/apperror"
	"pulsewatch/pkg/db"
	"pulsewatch/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

func openTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("PULSEWATCH_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("PULSEWATCH_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func TestPostgresStoreAppendAndQuery(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	s := NewPostgresStore(pool, logger.Nop())
	id := uuid.New()
	t.Cleanup(func() { _ = s.Delete(ctx, id) })

	_ = s.Append(ctx, upAt(id, t0, 12))
	_ = s.Append(ctx, downAt(id, t0.Add(time.Minute)))
	if err := s.Append(ctx, upAt(id, t0.Add(2*time.Minute), 15)); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := s.Append(ctx, upAt(id, t0.Add(time.Minute), 15)); !apperror.IsKind(err, apperror.InvalidResult) {
		t.Fatalf("expected invalid result for older timestamp, got %v", err)
	}

	got, err := s.Query(ctx, id, t0, t0.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	if got[1].Outcome != OutcomeDown || got[1].HTTPStatus == nil || *got[1].HTTPStatus != 500 {
		t.Fatalf("unexpected second result: %+v", got[1])
	}

	latest, _ := s.Latest(ctx, id, 1)
	if len(latest) != 1 || *latest[0].ResponseTimeMs != 15 {
		t.Fatalf("unexpected latest: %+v", latest)
	}

	n, err := s.Evict(ctx, id, t0.Add(time.Minute))
	if err != nil || n != 1 {
		t.Fatalf("expected 1 evicted, got %d (%v)", n, err)
	}
}
