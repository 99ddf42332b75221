package monitor

import (
	"time"

	"pulsewatch/internals/modules/history"
	"pulsewatch/internals/modules/status"
)

type CreateMonitorRequest struct {
	Name                 string `json:"name" validate:"required,notblank,max=255"`
	URL                  string `json:"url" validate:"required,http_url"`
	CheckIntervalSeconds int32  `json:"check_interval_seconds" validate:"required,gte=1,lte=86400"`
	Enabled              *bool  `json:"enabled"`
}

type UpdateMonitorRequest struct {
	Name                 *string `json:"name" validate:"omitempty,notblank,max=255"`
	CheckIntervalSeconds *int32  `json:"check_interval_seconds" validate:"omitempty,gte=1,lte=86400"`
	Enabled              *bool   `json:"enabled"`
}

type MonitorResponse struct {
	ID                   string                `json:"id"`
	Name                 string                `json:"name"`
	URL                  string                `json:"url"`
	CheckIntervalSeconds int32                 `json:"check_interval_seconds"`
	Enabled              bool                  `json:"enabled"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
	Status               *status.DerivedStatus `json:"status,omitempty"`
}

type ListMonitorsResponse struct {
	Limit    int32             `json:"limit"`
	Offset   int32             `json:"offset"`
	Monitors []MonitorResponse `json:"monitors"`
}

type HistoryResponse struct {
	MonitorID string                `json:"monitor_id"`
	From      time.Time             `json:"from"`
	To        time.Time             `json:"to"`
	Results   []history.CheckResult `json:"results"`
}

type IncidentsResponse struct {
	MonitorID string            `json:"monitor_id"`
	From      time.Time         `json:"from"`
	To        time.Time         `json:"to"`
	Incidents []status.Incident `json:"incidents"`
}

func toResponse(m Monitor, st *status.DerivedStatus) MonitorResponse {
	return MonitorResponse{
		ID:                   m.ID.String(),
		Name:                 m.Name,
		URL:                  m.URL,
		CheckIntervalSeconds: m.IntervalSec,
		Enabled:              m.Enabled,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
		Status:               st,
	}
}
