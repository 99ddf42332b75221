package status

import (
	"context"
	"time"

	"pulsewatch/internals/modules/history"

	"github.com/google/uuid"
)

// Snapshot is the derived status plus the incident currently open, if any.
type Snapshot struct {
	DerivedStatus
	OpenIncident *Incident
}

// Aggregator computes derived views from the history store on demand. It
// keeps no state of its own.
type Aggregator struct {
	store         history.Store
	downThreshold int
	window        time.Duration
}

func NewAggregator(store history.Store, downThreshold int, window time.Duration) *Aggregator {
	if downThreshold < 1 {
		downThreshold = 1
	}
	return &Aggregator{
		store:         store,
		downThreshold: downThreshold,
		window:        window,
	}
}

func (a *Aggregator) DownThreshold() int {
	return a.downThreshold
}

func (a *Aggregator) Snapshot(ctx context.Context, monitorID uuid.UUID, now time.Time) (Snapshot, error) {
	latest, err := a.store.Latest(ctx, monitorID, a.downThreshold)
	if err != nil {
		return Snapshot{}, err
	}

	inWindow, err := a.store.Query(ctx, monitorID, now.Add(-a.window), now)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		DerivedStatus: DerivedStatus{
			CurrentStatus:         CurrentStatus(latest, a.downThreshold),
			UptimePercent:         UptimePercent(inWindow),
			AverageResponseTimeMs: AverageResponseTime(inWindow),
		},
	}
	if n := len(latest); n > 0 {
		last := latest[n-1].Timestamp
		snap.LastCheckedAt = &last
	}

	if snap.CurrentStatus == StatusDown || snap.CurrentStatus == StatusDegraded {
		if incidents := DeriveIncidents(monitorID, inWindow); len(incidents) > 0 {
			if last := incidents[len(incidents)-1]; last.Ongoing() {
				snap.OpenIncident = &last
			}
		}
	}
	return snap, nil
}

func (a *Aggregator) Status(ctx context.Context, monitorID uuid.UUID, now time.Time) (DerivedStatus, error) {
	snap, err := a.Snapshot(ctx, monitorID, now)
	if err != nil {
		return DerivedStatus{}, err
	}
	return snap.DerivedStatus, nil
}

// Incidents derives incidents from the results in [from, to]. A run already
// open at from is reported as starting at its first result inside the range.
func (a *Aggregator) Incidents(ctx context.Context, monitorID uuid.UUID, from, to time.Time) ([]Incident, error) {
	results, err := a.store.Query(ctx, monitorID, from, to)
	if err != nil {
		return nil, err
	}
	return DeriveIncidents(monitorID, results), nil
}

func (a *Aggregator) Uptime(ctx context.Context, monitorID uuid.UUID, from, to time.Time) (*float64, error) {
	results, err := a.store.Query(ctx, monitorID, from, to)
	if err != nil {
		return nil, err
	}
	return UptimePercent(results), nil
}
