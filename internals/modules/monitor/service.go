package monitor

import (
	"context"
	"time"

	"pulsewatch/internals/modules/channel"
	"pulsewatch/internals/modules/history"
	"pulsewatch/internals/modules/status"
	"pulsewatch/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Repository interface {
	Create(ctx context.Context, cmd CreateMonitorCmd) (Monitor, error)
	GetByID(ctx context.Context, monitorID uuid.UUID) (Monitor, error)
	Get(ctx context.Context, userID, monitorID uuid.UUID) (Monitor, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]Monitor, error)
	ListSchedulable(ctx context.Context) ([]Monitor, error)
	Update(ctx context.Context, userID, monitorID uuid.UUID, cmd UpdateMonitorCmd) (Monitor, error)
	SoftDelete(ctx context.Context, userID, monitorID uuid.UUID) error
	HardDelete(ctx context.Context, userID, monitorID uuid.UUID) error
}

// CheckTrigger is the part of the scheduler the API drives.
type CheckTrigger interface {
	TriggerNow(monitorID uuid.UUID, url string, now time.Time) error
	Forget(monitorID uuid.UUID)
}

type StatusReader interface {
	Status(ctx context.Context, monitorID uuid.UUID, now time.Time) (status.DerivedStatus, error)
	Incidents(ctx context.Context, monitorID uuid.UUID, from, to time.Time) ([]status.Incident, error)
}

// AlertForgetter drops alert state for a purged monitor.
type AlertForgetter interface {
	Forget(ctx context.Context, monitorID uuid.UUID) error
}

// SubscriptionStore links monitors to notification channels.
type SubscriptionStore interface {
	Get(ctx context.Context, userID, channelID uuid.UUID) (channel.Channel, error)
	Subscribe(ctx context.Context, monitorID, channelID uuid.UUID) error
	Unsubscribe(ctx context.Context, monitorID, channelID uuid.UUID) error
	SubscribedChannels(ctx context.Context, monitorID uuid.UUID) ([]channel.Channel, error)
}

type Service struct {
	repo       Repository
	cache      Cache
	subs       SubscriptionStore
	checks     CheckTrigger
	history    history.Store
	statuses   StatusReader
	alerts     AlertForgetter
	hardDelete bool
	now        func() time.Time
	logger     *zerolog.Logger
}

func NewService(
	repo Repository,
	cache Cache,
	subs SubscriptionStore,
	checks CheckTrigger,
	store history.Store,
	statuses StatusReader,
	alerts AlertForgetter,
	hardDelete bool,
	logger *zerolog.Logger,
) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	return &Service{
		repo:       repo,
		cache:      cache,
		subs:       subs,
		checks:     checks,
		history:    store,
		statuses:   statuses,
		alerts:     alerts,
		hardDelete: hardDelete,
		now:        time.Now,
		logger:     logger,
	}
}

// View is a monitor with its derived status.
type View struct {
	Monitor Monitor
	Status  status.DerivedStatus
}

// CheckAllResult counts what a bulk check did.
type CheckAllResult struct {
	Queued  int `json:"queued"`
	Skipped int `json:"skipped"`
}

func (s *Service) Create(ctx context.Context, cmd CreateMonitorCmd) (Monitor, error) {
	m, err := s.repo.Create(ctx, cmd)
	if err != nil {
		return Monitor{}, err
	}
	// picked up by the scheduler on its next tick
	_ = s.cache.SetMonitor(ctx, m)
	return m, nil
}

func (s *Service) Get(ctx context.Context, userID, monitorID uuid.UUID) (View, error) {
	m, err := s.repo.Get(ctx, userID, monitorID)
	if err != nil {
		return View{}, err
	}
	st, err := s.statuses.Status(ctx, m.ID, s.now())
	if err != nil {
		return View{}, apperror.New(apperror.Internal, "service.monitor.get", err)
	}
	return View{Monitor: m, Status: st}, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]View, error) {
	const op string = "service.monitor.list"

	monitors, err := s.repo.List(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]View, 0, len(monitors))
	for _, m := range monitors {
		st, err := s.statuses.Status(ctx, m.ID, now)
		if err != nil {
			return nil, apperror.New(apperror.Internal, op, err)
		}
		views = append(views, View{Monitor: m, Status: st})
	}
	return views, nil
}

// Update changes name, interval or the enabled flag. Disabling drops the
// schedule state, a check already in flight still completes and is recorded.
func (s *Service) Update(ctx context.Context, userID, monitorID uuid.UUID, cmd UpdateMonitorCmd) (Monitor, error) {
	const op string = "service.monitor.update"

	if cmd.Empty() {
		return Monitor{}, apperror.Invalid(op, "at least one of name, check_interval_seconds or enabled is required")
	}

	m, err := s.repo.Update(ctx, userID, monitorID, cmd)
	if err != nil {
		return Monitor{}, err
	}
	s.refreshCache(ctx, m)

	if !m.Enabled {
		s.checks.Forget(monitorID)
	}
	return m, nil
}

func (s *Service) Delete(ctx context.Context, userID, monitorID uuid.UUID) error {
	const op string = "service.monitor.delete"

	if !s.hardDelete {
		if err := s.repo.SoftDelete(ctx, userID, monitorID); err != nil {
			return err
		}
		s.checks.Forget(monitorID)

		m, err := s.repo.GetByID(ctx, monitorID)
		if err != nil {
			_ = s.cache.DelMonitor(ctx, monitorID)
			return nil
		}
		s.refreshCache(ctx, m)
		return nil
	}

	if err := s.repo.HardDelete(ctx, userID, monitorID); err != nil {
		return err
	}
	s.checks.Forget(monitorID)
	_ = s.cache.DelMonitor(ctx, monitorID)

	if err := s.history.Delete(ctx, monitorID); err != nil {
		return apperror.New(apperror.Internal, op, err).WithMessage("monitor deleted, history purge failed")
	}
	if err := s.alerts.Forget(ctx, monitorID); err != nil {
		s.logger.Warn().Err(err).Str("monitor_id", monitorID.String()).Msg("failed to clear alert state")
	}
	return nil
}

// refreshCache overwrites the cached row after a write. Dropping the key
// alone would let a concurrent Lookup miss put the old row back.
func (s *Service) refreshCache(ctx context.Context, m Monitor) {
	if err := s.cache.SetMonitor(ctx, m); err != nil {
		s.logger.Warn().Err(err).Str("monitor_id", m.ID.String()).Msg("failed to refresh cached monitor")
		_ = s.cache.DelMonitor(ctx, m.ID)
	}
}

// Lookup returns a monitor for the result pipeline, soft deleted rows included.
func (s *Service) Lookup(ctx context.Context, monitorID uuid.UUID) (Monitor, error) {
	if m, ok := s.cache.GetMonitor(ctx, monitorID); ok {
		return m, nil
	}

	m, err := s.repo.GetByID(ctx, monitorID)
	if err != nil {
		return Monitor{}, err
	}
	_ = s.cache.AddMonitor(ctx, m)
	return m, nil
}

func (s *Service) ListSchedulable(ctx context.Context) ([]Monitor, error) {
	return s.repo.ListSchedulable(ctx)
}

func (s *Service) History(ctx context.Context, userID, monitorID uuid.UUID, from, to time.Time) ([]history.CheckResult, error) {
	const op string = "service.monitor.history"

	if _, err := s.repo.Get(ctx, userID, monitorID); err != nil {
		return nil, err
	}
	results, err := s.history.Query(ctx, monitorID, from, to)
	if err != nil {
		return nil, apperror.New(apperror.Internal, op, err)
	}
	return results, nil
}

func (s *Service) Incidents(ctx context.Context, userID, monitorID uuid.UUID, from, to time.Time) ([]status.Incident, error) {
	const op string = "service.monitor.incidents"

	if _, err := s.repo.Get(ctx, userID, monitorID); err != nil {
		return nil, err
	}
	incidents, err := s.statuses.Incidents(ctx, monitorID, from, to)
	if err != nil {
		return nil, apperror.New(apperror.Internal, op, err)
	}
	return incidents, nil
}

// CheckNow queues an immediate probe outside the regular interval.
func (s *Service) CheckNow(ctx context.Context, userID, monitorID uuid.UUID) error {
	m, err := s.repo.Get(ctx, userID, monitorID)
	if err != nil {
		return err
	}
	return s.checks.TriggerNow(m.ID, m.URL, s.now())
}

// CheckAll queues a probe for every enabled monitor of the user. Monitors
// with a check already running are skipped.
func (s *Service) CheckAll(ctx context.Context, userID uuid.UUID) (CheckAllResult, error) {
	var res CheckAllResult
	now := s.now()

	for offset := int32(0); ; offset += checkAllPage {
		monitors, err := s.repo.List(ctx, userID, checkAllPage, offset)
		if err != nil {
			return res, err
		}
		for _, m := range monitors {
			if !m.Enabled {
				continue
			}
			if err := s.checks.TriggerNow(m.ID, m.URL, now); err != nil {
				res.Skipped++
				continue
			}
			res.Queued++
		}
		if len(monitors) < checkAllPage {
			return res, nil
		}
	}
}

const checkAllPage = 200

func (s *Service) Channels(ctx context.Context, userID, monitorID uuid.UUID) ([]channel.Channel, error) {
	if _, err := s.repo.Get(ctx, userID, monitorID); err != nil {
		return nil, err
	}
	return s.subs.SubscribedChannels(ctx, monitorID)
}

func (s *Service) Subscribe(ctx context.Context, userID, monitorID, channelID uuid.UUID) error {
	if _, err := s.repo.Get(ctx, userID, monitorID); err != nil {
		return err
	}
	if _, err := s.subs.Get(ctx, userID, channelID); err != nil {
		return err
	}
	return s.subs.Subscribe(ctx, monitorID, channelID)
}

func (s *Service) Unsubscribe(ctx context.Context, userID, monitorID, channelID uuid.UUID) error {
	if _, err := s.repo.Get(ctx, userID, monitorID); err != nil {
		return err
	}
	return s.subs.Unsubscribe(ctx, monitorID, channelID)
}
