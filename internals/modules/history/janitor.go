package history

import (
	"context"
	"time"

	"pulsewatch/pkg/metrics"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Janitor evicts results older than the retention window on a cron schedule.
type Janitor struct {
	store     Store
	retention time.Duration
	spec      string
	cron      *cron.Cron
	now       func() time.Time
	logger    *zerolog.Logger
}

func NewJanitor(store Store, retention time.Duration, spec string, logger *zerolog.Logger) *Janitor {
	return &Janitor{
		store:     store,
		retention: retention,
		spec:      spec,
		cron:      cron.New(),
		now:       time.Now,
		logger:    logger,
	}
}

// Start registers the sweep and starts the cron runner.
func (j *Janitor) Start(ctx context.Context) error {
	if _, err := j.cron.AddFunc(j.spec, func() {
		j.Sweep(ctx)
	}); err != nil {
		return err
	}
	j.cron.Start()
	j.logger.Info().Str("schedule", j.spec).Dur("retention", j.retention).Msg("retention janitor started")
	return nil
}

// Stop waits for a running sweep to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// Sweep evicts expired results for every monitor with history. A failure on
// one monitor is logged and does not stop the others.
func (j *Janitor) Sweep(ctx context.Context) int {
	cutoff := j.now().Add(-j.retention)

	ids, err := j.store.MonitorIDs(ctx)
	if err != nil {
		j.logger.Error().Err(err).Msg("retention sweep: list monitors failed")
		return 0
	}

	total := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		n, err := j.store.Evict(ctx, id, cutoff)
		if err != nil {
			j.logger.Error().Err(err).Str("monitor_id", id.String()).Msg("retention sweep: evict failed")
			continue
		}
		total += n
	}

	metrics.AddEvicted(total)
	if total > 0 {
		j.logger.Info().Int("evicted", total).Time("cutoff", cutoff).Msg("retention sweep finished")
	}
	return total
}
