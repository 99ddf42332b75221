package status

import (
	"time"

	"github.com/google/uuid"
)

// Status is the debounced health of a monitor.
type Status string

const (
	StatusUnknown  Status = "unknown"
	StatusUp       Status = "up"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// DerivedStatus is a view recomputed from history, never stored.
type DerivedStatus struct {
	CurrentStatus         Status     `json:"current_status"`
	UptimePercent         *float64   `json:"uptime_percent"`
	AverageResponseTimeMs *float64   `json:"average_response_time_ms"`
	LastCheckedAt         *time.Time `json:"last_checked_at"`
}

// Incident is a contiguous run of non-up results. ResolvedAt is nil while
// the run is still open.
type Incident struct {
	ID         uuid.UUID  `json:"id"`
	MonitorID  uuid.UUID  `json:"monitor_id"`
	StartedAt  time.Time  `json:"started_at"`
	ResolvedAt *time.Time `json:"resolved_at"`
}

func (i Incident) Ongoing() bool {
	return i.ResolvedAt == nil
}

// IncidentID names an incident by its monitor and first failing timestamp,
// so the same history always yields the same id.
func IncidentID(monitorID uuid.UUID, startedAt time.Time) uuid.UUID {
	return uuid.NewSHA1(monitorID, []byte(startedAt.UTC().Format(time.RFC3339Nano)))
}
