package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pulsewatch/internals/modules/monitor"
	"pulsewatch/pkg/apperror"
	"pulsewatch/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrBusy = &apperror.Error{
		Kind:    apperror.Conflict,
		Message: "a check for this monitor is already running",
	}
	ErrQueueFull = &apperror.Error{
		Kind:    apperror.Conflict,
		Message: "check queue is full, try again shortly",
	}
)

// MonitorSource lists the monitors the scheduler should consider each tick.
type MonitorSource interface {
	ListSchedulable(ctx context.Context) ([]monitor.Monitor, error)
}

type Scheduler struct {
	source  MonitorSource
	jobChan chan JobPayload
	tick    time.Duration
	now     func() time.Time
	logger  *zerolog.Logger

	entries sync.Map // uuid.UUID -> *entry

	// sends hold the read side, Stop takes the write side to close jobChan
	chanMu sync.RWMutex
	closed bool
}

func NewScheduler(
	source MonitorSource,
	jobChan chan JobPayload,
	tick time.Duration,
	logger *zerolog.Logger,
) *Scheduler {

	return &Scheduler{
		source:  source,
		jobChan: jobChan,
		tick:    tick,
		now:     time.Now,
		logger:  logger,
	}
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.logger.Info().Dur("tick", s.tick).Msg("scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx, s.now())
		}
	}
}

// Tick dispatches one job for every due monitor and returns how many were
// dispatched. A monitor whose previous check is still in flight is skipped.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) int {
	monitors, err := s.source.ListSchedulable(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduler: list monitors failed")
		return 0
	}

	listed := make(map[uuid.UUID]struct{}, len(monitors))
	dispatched := 0

	for _, m := range monitors {
		listed[m.ID] = struct{}{}
		if s.scheduleOne(m, now) {
			dispatched++
		}
	}

	// drop state of monitors that are gone, once their last check has landed
	s.entries.Range(func(key, value any) bool {
		if _, ok := listed[key.(uuid.UUID)]; ok {
			return true
		}
		e := value.(*entry)
		e.mu.Lock()
		if !e.inflight {
			s.entries.Delete(key)
		}
		e.mu.Unlock()
		return true
	})

	return dispatched
}

func (s *Scheduler) scheduleOne(m monitor.Monitor, now time.Time) (dispatched bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("monitor_id", m.ID.String()).
				Str("panic", fmt.Sprint(r)).
				Msg("scheduler: monitor skipped after panic")
			dispatched = false
		}
	}()

	if !m.Schedulable(now) {
		return false
	}

	e := s.entry(m.ID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.lastScheduled.IsZero() && now.Sub(e.lastScheduled) < m.Interval() {
		return false
	}
	if e.inflight {
		metrics.IncCheckSkipped(metrics.SkipBusy)
		s.logger.Debug().Str("monitor_id", m.ID.String()).Msg("previous check still running, skipping")
		return false
	}

	job := JobPayload{MonitorID: m.ID, URL: m.URL, ScheduledAt: e.nextTimestamp(now)}
	if !s.enqueue(job) {
		metrics.IncCheckSkipped(metrics.SkipQueueFull)
		s.logger.Warn().Str("monitor_id", m.ID.String()).Msg("job queue full, retrying next tick")
		return false
	}

	e.inflight = true
	e.lastScheduled = now
	e.lastIssued = job.ScheduledAt
	return true
}

// TriggerNow dispatches an immediate check outside the regular cadence.
func (s *Scheduler) TriggerNow(monitorID uuid.UUID, url string, now time.Time) error {
	const op string = "scheduler.trigger_now"

	e := s.entry(monitorID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.inflight {
		metrics.IncCheckSkipped(metrics.SkipBusy)
		return ErrBusy.WithOp(op)
	}

	job := JobPayload{MonitorID: monitorID, URL: url, ScheduledAt: e.nextTimestamp(now)}
	if !s.enqueue(job) {
		metrics.IncCheckSkipped(metrics.SkipQueueFull)
		return ErrQueueFull.WithOp(op)
	}

	e.inflight = true
	e.lastScheduled = now
	e.lastIssued = job.ScheduledAt
	return nil
}

// Done releases the in-flight slot of a monitor.
func (s *Scheduler) Done(monitorID uuid.UUID) {
	v, ok := s.entries.Load(monitorID)
	if !ok {
		return
	}
	e := v.(*entry)
	e.mu.Lock()
	e.inflight = false
	e.mu.Unlock()
}

// Forget resets the cadence of a monitor, so a re-enabled monitor is checked
// on the next tick. A check already in flight keeps its slot until Done.
func (s *Scheduler) Forget(monitorID uuid.UUID) {
	v, ok := s.entries.Load(monitorID)
	if !ok {
		return
	}
	e := v.(*entry)
	e.mu.Lock()
	e.lastScheduled = time.Time{}
	if !e.inflight {
		s.entries.Delete(monitorID)
	}
	e.mu.Unlock()
}

// InFlight reports whether a check for the monitor is running.
func (s *Scheduler) InFlight(monitorID uuid.UUID) bool {
	v, ok := s.entries.Load(monitorID)
	if !ok {
		return false
	}
	e := v.(*entry)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inflight
}

// Stop closes the job channel. Further ticks and triggers dispatch nothing.
func (s *Scheduler) Stop() {
	s.chanMu.Lock()
	defer s.chanMu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.jobChan)
	}
}

func (s *Scheduler) entry(monitorID uuid.UUID) *entry {
	if v, ok := s.entries.Load(monitorID); ok {
		return v.(*entry)
	}
	v, _ := s.entries.LoadOrStore(monitorID, &entry{})
	return v.(*entry)
}

func (s *Scheduler) enqueue(job JobPayload) bool {
	s.chanMu.RLock()
	defer s.chanMu.RUnlock()

	if s.closed {
		return false
	}

	select {
	case s.jobChan <- job:
		return true
	default:
		return false
	}
}
