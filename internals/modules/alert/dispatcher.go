package alert

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pulsewatch/config"
	"pulsewatch/internals/modules/channel"
	"pulsewatch/internals/modules/history"
	"pulsewatch/internals/modules/status"
	"pulsewatch/pkg/apperror"
	"pulsewatch/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ChannelSource lists the channels subscribed to a monitor.
type ChannelSource interface {
	SubscribedChannels(ctx context.Context, monitorID uuid.UUID) ([]channel.Channel, error)
}

// Notifier delivers one message to one channel.
type Notifier interface {
	Notify(ctx context.Context, ch channel.Channel, msg Message) error
}

// DeliveryRecorder persists the final outcome of a delivery.
type DeliveryRecorder interface {
	Record(ctx context.Context, rec DeliveryRecord) error
}

type DeliveryRecord struct {
	MonitorID  uuid.UUID
	ChannelID  uuid.UUID
	IncidentID uuid.UUID
	Kind       Kind
	Status     string
	Attempts   int
	LastError  string
}

const (
	DeliverySent   = "sent"
	DeliveryFailed = "failed"
)

// Dispatcher turns status transitions into at most one notification per
// transition kind, incident and channel, and delivers them on its own
// worker pool.
type Dispatcher struct {
	state    StateStore
	channels ChannelSource
	notifier Notifier
	recorder DeliveryRecorder

	alertOnDegraded bool
	maxAttempts     int
	baseBackoff     time.Duration
	maxBackoff      time.Duration
	sendTimeout     time.Duration
	workerCount     int

	locks sync.Map // uuid.UUID -> *sync.Mutex

	deliveries chan Delivery
	workerWG   sync.WaitGroup
	sleep      func(ctx context.Context, d time.Duration) error

	logger *zerolog.Logger
}

// Option configures the dispatcher.
type Option func(*Dispatcher)

// WithRecorder persists final delivery outcomes.
func WithRecorder(recorder DeliveryRecorder) Option {
	return func(d *Dispatcher) {
		if recorder != nil {
			d.recorder = recorder
		}
	}
}

// WithSleep overrides how the dispatcher waits between attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(d *Dispatcher) {
		if sleep != nil {
			d.sleep = sleep
		}
	}
}

func NewDispatcher(
	cfg *config.AlertConfig,
	state StateStore,
	channels ChannelSource,
	notifier Notifier,
	logger *zerolog.Logger,
	opts ...Option,
) *Dispatcher {

	d := &Dispatcher{
		state:           state,
		channels:        channels,
		notifier:        notifier,
		recorder:        nopRecorder{},
		alertOnDegraded: cfg.AlertOnDegraded,
		maxAttempts:     max(cfg.MaxAttempts, 1),
		baseBackoff:     cfg.BaseBackoff,
		maxBackoff:      cfg.MaxBackoff,
		sendTimeout:     cfg.SendTimeout,
		workerCount:     max(cfg.WorkerCount, 1),
		deliveries:      make(chan Delivery, max(cfg.Buffer, 1)),
		sleep:           sleepCtx,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Observe compares the freshly derived status with the stored one and
// enqueues the notifications the transition calls for. Repeated
// observations in the same state enqueue nothing.
func (d *Dispatcher) Observe(
	ctx context.Context,
	ref MonitorRef,
	latest history.CheckResult,
	snap status.Snapshot,
) (Transition, []Delivery, error) {
	const op string = "alert.dispatcher.observe"

	mu := d.lock(ref.ID)
	mu.Lock()
	defer mu.Unlock()

	st, err := d.state.Load(ctx, ref.ID)
	if err != nil {
		return Transition{}, nil, apperror.New(apperror.Dependency, op, err)
	}

	tr := Transition{From: st.last(), To: snap.CurrentStatus}
	failing := tr.To == status.StatusDown || tr.To == status.StatusDegraded

	if failing && st.IncidentID == nil {
		inc := snap.OpenIncident
		if inc == nil {
			inc = &status.Incident{
				ID:        status.IncidentID(ref.ID, latest.Timestamp),
				MonitorID: ref.ID,
				StartedAt: latest.Timestamp,
			}
		}
		id, startedAt := inc.ID, inc.StartedAt
		st.IncidentID = &id
		st.IncidentStartedAt = &startedAt
	}

	var deliveries []Delivery
	if tr.Changed() {
		deliveries, err = d.plan(ctx, ref, latest, st, tr)
		if err != nil {
			return tr, nil, apperror.New(apperror.Dependency, op, err)
		}
	}

	if tr.To == status.StatusUp {
		st.IncidentID = nil
		st.IncidentStartedAt = nil
	}
	st.LastStatus = tr.To

	// claimed deliveries go out even if the state cannot be saved, the
	// claims keep the next observation from sending them twice
	saveErr := d.state.Save(ctx, ref.ID, st)

	for _, del := range deliveries {
		select {
		case d.deliveries <- del:
		case <-ctx.Done():
			return tr, deliveries, ctx.Err()
		}
	}

	if saveErr != nil {
		return tr, deliveries, apperror.New(apperror.Dependency, op, saveErr)
	}
	return tr, deliveries, nil
}

// plan claims dedup keys for the transition and returns what to send.
func (d *Dispatcher) plan(
	ctx context.Context,
	ref MonitorRef,
	latest history.CheckResult,
	st State,
	tr Transition,
) ([]Delivery, error) {

	var kind Kind
	switch {
	case tr.To == status.StatusDown:
		kind = KindDown
	case tr.To == status.StatusDegraded && tr.From != status.StatusDown && d.alertOnDegraded:
		kind = KindDegraded
	case tr.To == status.StatusUp && (tr.From == status.StatusDown || tr.From == status.StatusDegraded):
		kind = KindRecovery
	default:
		return nil, nil
	}

	if st.IncidentID == nil {
		// recovery of an incident this dispatcher never saw open
		return nil, nil
	}
	incidentID := *st.IncidentID

	channels, err := d.channels.SubscribedChannels(ctx, ref.ID)
	if err != nil {
		return nil, err
	}

	msg := Message{
		Kind:        kind,
		MonitorID:   ref.ID,
		MonitorName: ref.Name,
		URL:         ref.URL,
		IncidentID:  incidentID,
		StartedAt:   *st.IncidentStartedAt,
		At:          latest.Timestamp,
		HTTPStatus:  latest.HTTPStatus,
		Reason:      latest.Reason,
	}

	var out []Delivery
	for _, ch := range channels {
		if !ch.Enabled {
			continue
		}

		if kind == KindRecovery {
			told, err := d.wasAlerted(ctx, ref.ID, incidentID, ch.ID)
			if err != nil {
				return nil, err
			}
			if !told {
				continue
			}
		}

		key := DedupKey(ref.ID, kind, incidentID, ch.ID)
		first, err := d.state.Claim(ctx, ref.ID, key)
		if err != nil {
			return nil, err
		}
		if !first {
			continue
		}
		out = append(out, Delivery{Key: key, Channel: ch, Message: msg})
	}
	return out, nil
}

// wasAlerted reports whether a down or degraded alert went to the channel
// for the incident.
func (d *Dispatcher) wasAlerted(ctx context.Context, monitorID, incidentID, channelID uuid.UUID) (bool, error) {
	for _, kind := range []Kind{KindDown, KindDegraded} {
		ok, err := d.state.Claimed(ctx, monitorID, DedupKey(monitorID, kind, incidentID, channelID))
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// Forget drops all alert state of a monitor. The monitor's mutex stays in
// the lock map, a writer queued on it must keep excluding later ones.
func (d *Dispatcher) Forget(ctx context.Context, monitorID uuid.UUID) error {
	mu := d.lock(monitorID)
	mu.Lock()
	defer mu.Unlock()

	return d.state.Clear(ctx, monitorID)
}

func (d *Dispatcher) lock(monitorID uuid.UUID) *sync.Mutex {
	v, _ := d.locks.LoadOrStore(monitorID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Start launches the delivery workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.workerWG.Add(d.workerCount)
	for range d.workerCount {
		go d.handleDeliveries(ctx)
	}
	d.logger.Info().Int("workers", d.workerCount).Msg("alert dispatcher started")
}

// Shutdown stops accepting deliveries and waits for queued ones to finish.
// Observe must not be called afterwards.
func (d *Dispatcher) Shutdown() {
	close(d.deliveries)
	d.workerWG.Wait()
	d.logger.Info().Msg("alert dispatcher drained")
}

func (d *Dispatcher) handleDeliveries(ctx context.Context) {
	defer d.workerWG.Done()

	for del := range d.deliveries {
		_ = d.Deliver(ctx, del)
	}
}

// Deliver sends one delivery with bounded exponential backoff. The returned
// error is of kind DeliveryFailed once all attempts are exhausted.
func (d *Dispatcher) Deliver(ctx context.Context, del Delivery) error {
	const op string = "alert.dispatcher.deliver"

	log := d.logger.With().
		Str("monitor_id", del.Message.MonitorID.String()).
		Str("channel_id", del.Channel.ID.String()).
		Str("channel_type", string(del.Channel.Type)).
		Str("kind", string(del.Message.Kind)).
		Logger()

	var lastErr error
	attempts := 0
	for attempts < d.maxAttempts {
		if attempts > 0 {
			if err := d.sleep(ctx, d.backoff(attempts)); err != nil {
				lastErr = errors.Join(lastErr, err)
				break
			}
		}
		attempts++

		lastErr = d.send(ctx, del)
		if lastErr == nil {
			metrics.IncAlert(string(del.Channel.Type), metrics.ResultSent)
			d.record(ctx, del, DeliverySent, attempts, "")
			log.Info().Int("attempts", attempts).Msg("alert delivered")
			return nil
		}
		log.Warn().Err(lastErr).Int("attempt", attempts).Msg("alert delivery attempt failed")
	}

	metrics.IncAlert(string(del.Channel.Type), metrics.ResultFailed)
	d.record(ctx, del, DeliveryFailed, attempts, lastErr.Error())
	log.Error().Err(lastErr).Int("attempts", attempts).Msg("alert delivery failed")

	return &apperror.Error{
		Kind:    apperror.DeliveryFailed,
		Op:      op,
		Err:     lastErr,
		Message: fmt.Sprintf("delivery to %s channel failed after %d attempts", del.Channel.Type, attempts),
	}
}

func (d *Dispatcher) send(ctx context.Context, del Delivery) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notifier panicked: %v", r)
		}
	}()

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	return d.notifier.Notify(sendCtx, del.Channel, del.Message)
}

// backoff returns base * 2^(attempt-1), capped at maxBackoff.
func (d *Dispatcher) backoff(attempt int) time.Duration {
	wait := d.baseBackoff << (attempt - 1)
	if wait <= 0 || wait > d.maxBackoff {
		return d.maxBackoff
	}
	return wait
}

func (d *Dispatcher) record(ctx context.Context, del Delivery, result string, attempts int, lastErr string) {
	rec := DeliveryRecord{
		MonitorID:  del.Message.MonitorID,
		ChannelID:  del.Channel.ID,
		IncidentID: del.Message.IncidentID,
		Kind:       del.Message.Kind,
		Status:     result,
		Attempts:   attempts,
		LastError:  lastErr,
	}
	// records outlive cancellation of the pipeline context
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.sendTimeout)
	defer cancel()

	if err := d.recorder.Record(recCtx, rec); err != nil {
		d.logger.Error().Err(err).Str("monitor_id", rec.MonitorID.String()).Msg("record delivery failed")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, DeliveryRecord) error { return nil }
