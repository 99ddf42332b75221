package alert

import (
	"context"

	"pulsewatch/pkg/utils"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Repository persists delivery outcomes to alert_deliveries.
type Repository struct {
	pool   *pgxpool.Pool
	logger *zerolog.Logger
}

func NewRepository(pool *pgxpool.Pool, logger *zerolog.Logger) *Repository {
	return &Repository{
		pool:   pool,
		logger: logger,
	}
}

func (r *Repository) Record(ctx context.Context, rec DeliveryRecord) error {
	const op string = "repo.alert.record"

	_, err := r.pool.Exec(ctx, `
		INSERT INTO alert_deliveries (monitor_id, channel_id, incident_id, transition, status, attempts, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		utils.ToPgUUID(rec.MonitorID),
		utils.ToPgUUID(rec.ChannelID),
		utils.ToPgUUID(rec.IncidentID),
		string(rec.Kind),
		rec.Status,
		rec.Attempts,
		rec.LastError,
	)
	if err != nil {
		return utils.WrapRepoError(op, err, false, r.logger)
	}
	return nil
}
