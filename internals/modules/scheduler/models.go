package scheduler

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobPayload is one probe request handed to the executor. ScheduledAt is
// strictly increasing per monitor and becomes the result timestamp.
type JobPayload struct {
	MonitorID   uuid.UUID
	URL         string
	ScheduledAt time.Time
}

// entry is the schedule state of one monitor.
type entry struct {
	mu            sync.Mutex
	lastScheduled time.Time
	lastIssued    time.Time
	inflight      bool
}

// nextTimestamp truncates to the precision history is stored with and keeps
// the sequence strictly increasing even if the wall clock steps back.
func (e *entry) nextTimestamp(now time.Time) time.Time {
	ts := now.UTC().Truncate(time.Microsecond)
	if !ts.After(e.lastIssued) {
		ts = e.lastIssued.Add(time.Microsecond)
	}
	return ts
}
