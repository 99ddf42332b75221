package alert

import (
	"fmt"
	"strings"
	"time"

	"pulsewatch/internals/modules/channel"
	"pulsewatch/internals/modules/status"

	"github.com/google/uuid"
)

// Kind is the type of notification sent for a transition.
type Kind string

const (
	KindDown     Kind = "down"
	KindDegraded Kind = "degraded"
	KindRecovery Kind = "recovery"
)

// Transition is a change of derived status. From equals To when nothing
// changed.
type Transition struct {
	From status.Status `json:"from"`
	To   status.Status `json:"to"`
}

func (t Transition) Changed() bool {
	return t.From != t.To
}

// MonitorRef is what the dispatcher needs to know about a monitor.
type MonitorRef struct {
	ID   uuid.UUID
	Name string
	URL  string
}

// State is the per-monitor alert state.
type State struct {
	LastStatus        status.Status `json:"last_status"`
	IncidentID        *uuid.UUID    `json:"incident_id,omitempty"`
	IncidentStartedAt *time.Time    `json:"incident_started_at,omitempty"`
}

func (s State) last() status.Status {
	if s.LastStatus == "" {
		return status.StatusUnknown
	}
	return s.LastStatus
}

type Message struct {
	Kind        Kind      `json:"kind"`
	MonitorID   uuid.UUID `json:"monitor_id"`
	MonitorName string    `json:"monitor_name"`
	URL         string    `json:"url"`
	IncidentID  uuid.UUID `json:"incident_id"`
	StartedAt   time.Time `json:"started_at"`
	At          time.Time `json:"at"`
	HTTPStatus  *int      `json:"http_status,omitempty"`
	Reason      string    `json:"reason,omitempty"`
}

func (m Message) Subject() string {
	switch m.Kind {
	case KindDown:
		return fmt.Sprintf("[DOWN] %s is not responding", m.MonitorName)
	case KindDegraded:
		return fmt.Sprintf("[DEGRADED] %s failed a check", m.MonitorName)
	case KindRecovery:
		return fmt.Sprintf("[RECOVERED] %s is back up", m.MonitorName)
	default:
		return m.MonitorName
	}
}

func (m Message) Text() string {
	var b strings.Builder
	b.WriteString(m.Subject())
	b.WriteString("\n")
	fmt.Fprintf(&b, "URL: %s\n", m.URL)
	fmt.Fprintf(&b, "Incident started: %s\n", m.StartedAt.UTC().Format(time.RFC3339))
	if m.Kind == KindRecovery {
		fmt.Fprintf(&b, "Recovered: %s (down for %s)\n", m.At.UTC().Format(time.RFC3339), m.At.Sub(m.StartedAt).Round(time.Second))
	}
	if m.HTTPStatus != nil && m.Kind != KindRecovery {
		fmt.Fprintf(&b, "HTTP status: %d\n", *m.HTTPStatus)
	}
	if m.Reason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", m.Reason)
	}
	return strings.TrimSpace(b.String())
}

// Delivery is one message bound for one channel.
type Delivery struct {
	Key     string
	Channel channel.Channel
	Message Message
}

// DedupKey identifies one alert of one kind for one incident on one channel.
func DedupKey(monitorID uuid.UUID, kind Kind, incidentID, channelID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:%s:%s", monitorID, kind, incidentID, channelID)
}
