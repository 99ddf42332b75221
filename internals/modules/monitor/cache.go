package monitor

import (
	"context"

	"github.com/google/uuid"
)

// Cache holds monitor rows looked up by the result pipeline. Misses and
// cache errors fall through to the repository. Writes use SetMonitor, read
// misses use AddMonitor so a row read before a write never replaces it.
type Cache interface {
	GetMonitor(ctx context.Context, id uuid.UUID) (Monitor, bool)
	SetMonitor(ctx context.Context, m Monitor) error
	AddMonitor(ctx context.Context, m Monitor) error
	DelMonitor(ctx context.Context, id uuid.UUID) error
}

// NopCache is used when no redis is configured.
type NopCache struct{}

func (NopCache) GetMonitor(context.Context, uuid.UUID) (Monitor, bool) { return Monitor{}, false }
func (NopCache) SetMonitor(context.Context, Monitor) error             { return nil }
func (NopCache) AddMonitor(context.Context, Monitor) error             { return nil }
func (NopCache) DelMonitor(context.Context, uuid.UUID) error           { return nil }
