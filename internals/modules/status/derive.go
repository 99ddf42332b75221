package status

import (
	"math"

	"pulsewatch/internals/modules/history"

	"github.com/google/uuid"
)

// CurrentStatus debounces the most recent results. latest must be in
// ascending order. The monitor is down once the trailing run of non-up
// results reaches n, degraded while the run is shorter.
func CurrentStatus(latest []history.CheckResult, n int) Status {
	if len(latest) == 0 {
		return StatusUnknown
	}
	if latest[len(latest)-1].Outcome.IsUp() {
		return StatusUp
	}
	if n < 1 {
		n = 1
	}

	run := 0
	for i := len(latest) - 1; i >= 0 && !latest[i].Outcome.IsUp(); i-- {
		run++
	}
	if run >= n {
		return StatusDown
	}
	return StatusDegraded
}

// UptimePercent is the share of up results, 0-100 rounded to two decimals.
// It is nil when there are no results.
func UptimePercent(results []history.CheckResult) *float64 {
	if len(results) == 0 {
		return nil
	}
	up := 0
	for _, r := range results {
		if r.Outcome.IsUp() {
			up++
		}
	}
	pct := round2(float64(up) * 100 / float64(len(results)))
	return &pct
}

// AverageResponseTime averages the latency of up results, nil without any.
func AverageResponseTime(results []history.CheckResult) *float64 {
	var (
		sum   int64
		count int
	)
	for _, r := range results {
		if r.Outcome.IsUp() && r.ResponseTimeMs != nil {
			sum += *r.ResponseTimeMs
			count++
		}
	}
	if count == 0 {
		return nil
	}
	avg := round2(float64(sum) / float64(count))
	return &avg
}

// DeriveIncidents scans results in ascending order. An incident opens on the
// first non-up result after an up (or at the start of the slice) and closes
// on the next up result.
func DeriveIncidents(monitorID uuid.UUID, results []history.CheckResult) []Incident {
	incidents := make([]Incident, 0)
	var open *Incident

	for _, r := range results {
		switch {
		case !r.Outcome.IsUp() && open == nil:
			open = &Incident{
				ID:        IncidentID(monitorID, r.Timestamp),
				MonitorID: monitorID,
				StartedAt: r.Timestamp,
			}
		case r.Outcome.IsUp() && open != nil:
			resolved := r.Timestamp
			open.ResolvedAt = &resolved
			incidents = append(incidents, *open)
			open = nil
		}
	}
	if open != nil {
		incidents = append(incidents, *open)
	}
	return incidents
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
