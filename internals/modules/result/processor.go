package result

import (
	"context"
	"sync"
	"time"

	"pulsewatch/config"
	"pulsewatch/internals/modules/alert"
	"pulsewatch/internals/modules/history"
	"pulsewatch/internals/modules/monitor"
	"pulsewatch/internals/modules/status"
	"pulsewatch/pkg/apperror"
	"pulsewatch/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type MonitorLookup interface {
	Lookup(ctx context.Context, monitorID uuid.UUID) (monitor.Monitor, error)
}

type StatusSource interface {
	Snapshot(ctx context.Context, monitorID uuid.UUID, now time.Time) (status.Snapshot, error)
}

type AlertObserver interface {
	Observe(ctx context.Context, ref alert.MonitorRef, latest history.CheckResult, snap status.Snapshot) (alert.Transition, []alert.Delivery, error)
}

// SlotReleaser frees the scheduler's in-flight slot for a monitor.
type SlotReleaser interface {
	Done(monitorID uuid.UUID)
}

type EventPublisher interface {
	Publish(subject string, payload any) error
}

// TransitionEvent is published whenever a monitor's derived status changes.
type TransitionEvent struct {
	MonitorID uuid.UUID            `json:"monitor_id"`
	Name      string               `json:"name"`
	URL       string               `json:"url"`
	From      status.Status        `json:"from"`
	To        status.Status        `json:"to"`
	At        time.Time            `json:"at"`
	Status    status.DerivedStatus `json:"status"`
	Incident  *status.Incident     `json:"incident,omitempty"`
}

type Processor struct {
	resultChan <-chan history.CheckResult
	store      history.Store
	monitors   MonitorLookup
	statuses   StatusSource
	alerts     AlertObserver
	slots      SlotReleaser
	events     EventPublisher
	subject    string

	workerCount int
	workerWG    sync.WaitGroup

	logger *zerolog.Logger
}

func NewProcessor(
	cfg *config.ResultConfig,
	resultChan <-chan history.CheckResult,
	store history.Store,
	monitors MonitorLookup,
	statuses StatusSource,
	alerts AlertObserver,
	slots SlotReleaser,
	events EventPublisher,
	subject string,
	logger *zerolog.Logger,
) *Processor {
	return &Processor{
		resultChan:  resultChan,
		store:       store,
		monitors:    monitors,
		statuses:    statuses,
		alerts:      alerts,
		slots:       slots,
		events:      events,
		subject:     subject,
		workerCount: max(cfg.WorkerCount, 1),
		logger:      logger,
	}
}

// Start runs the workers until the result channel is closed and drained.
func (p *Processor) Start(ctx context.Context) {
	for range p.workerCount {
		p.workerWG.Add(1)
		go func() {
			defer p.workerWG.Done()
			for r := range p.resultChan {
				p.Handle(ctx, r)
			}
		}()
	}
}

// Wait blocks until every result has been handled.
func (p *Processor) Wait() {
	p.workerWG.Wait()
}

// Handle records one result and evaluates alerts for it. The scheduler
// slot is released on every path.
func (p *Processor) Handle(ctx context.Context, r history.CheckResult) {
	defer p.slots.Done(r.MonitorID)

	log := p.logger.With().Str("monitor_id", r.MonitorID.String()).Logger()

	m, err := p.monitors.Lookup(ctx, r.MonitorID)
	lookupOK := err == nil
	if err != nil {
		if apperror.IsKind(err, apperror.NotFound) {
			// purged while the probe was running
			log.Debug().Msg("dropping result for unknown monitor")
			return
		}
		log.Error().Err(err).Msg("monitor lookup failed, recording without alerts")
	}

	if err := p.store.Append(ctx, r); err != nil {
		if apperror.IsKind(err, apperror.InvalidResult) {
			metrics.IncResultRejected()
			log.Warn().Err(err).Time("checked_at", r.Timestamp).Msg("check result rejected")
			return
		}
		log.Error().Err(err).Msg("failed to append check result")
		return
	}

	if !lookupOK || !m.Enabled || m.Deleted() {
		return
	}

	snap, err := p.statuses.Snapshot(ctx, r.MonitorID, r.Timestamp)
	if err != nil {
		log.Error().Err(err).Msg("failed to derive status")
		return
	}

	ref := alert.MonitorRef{ID: m.ID, Name: m.Name, URL: m.URL}
	tr, deliveries, err := p.alerts.Observe(ctx, ref, r, snap)
	if err != nil {
		log.Error().Err(err).Msg("alert evaluation failed")
	}
	if !tr.Changed() {
		return
	}

	metrics.IncTransition(string(tr.To))
	log.Info().
		Str("from", string(tr.From)).
		Str("to", string(tr.To)).
		Int("deliveries", len(deliveries)).
		Msg("status changed")

	evt := TransitionEvent{
		MonitorID: m.ID,
		Name:      m.Name,
		URL:       m.URL,
		From:      tr.From,
		To:        tr.To,
		At:        r.Timestamp,
		Status:    snap.DerivedStatus,
		Incident:  snap.OpenIncident,
	}
	if err := p.events.Publish(p.subject, evt); err != nil {
		log.Warn().Err(err).Msg("failed to publish status event")
	}
}
