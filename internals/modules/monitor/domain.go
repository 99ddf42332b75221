package monitor

import (
	"time"

	"github.com/google/uuid"
)

type Monitor struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Name        string     `json:"name"`
	URL         string     `json:"url"`
	IntervalSec int32      `json:"interval_sec"`
	Enabled     bool       `json:"enabled"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

func (m Monitor) Interval() time.Duration {
	return time.Duration(m.IntervalSec) * time.Second
}

func (m Monitor) Deleted() bool {
	return m.DeletedAt != nil
}

// Schedulable reports whether the monitor should be probed at now.
func (m Monitor) Schedulable(now time.Time) bool {
	return m.Enabled && !m.Deleted() && !m.CreatedAt.After(now) && m.IntervalSec > 0
}

type CreateMonitorCmd struct {
	UserID      uuid.UUID
	Name        string
	URL         string
	IntervalSec int32
	Enabled     bool
}

// UpdateMonitorCmd carries a partial update, nil fields are left unchanged.
type UpdateMonitorCmd struct {
	Name        *string
	IntervalSec *int32
	Enabled     *bool
}

func (c UpdateMonitorCmd) Empty() bool {
	return c.Name == nil && c.IntervalSec == nil && c.Enabled == nil
}
