package monitor

import (
	"context"
	"time"

	"pulsewatch/pkg/apperror"
	"pulsewatch/pkg/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type PgRepository struct {
	pool   *pgxpool.Pool
	logger *zerolog.Logger
}

func NewRepository(pool *pgxpool.Pool, logger *zerolog.Logger) *PgRepository {
	return &PgRepository{
		pool:   pool,
		logger: logger,
	}
}

const monitorColumns = `id, user_id, name, url, interval_sec, enabled, created_at, updated_at, deleted_at`

func (r *PgRepository) Create(ctx context.Context, cmd CreateMonitorCmd) (Monitor, error) {
	const op string = "repo.monitor.create"

	row := r.pool.QueryRow(ctx, `
		INSERT INTO monitors (id, user_id, name, url, interval_sec, enabled)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+monitorColumns,
		utils.ToPgUUID(uuid.New()),
		utils.ToPgUUID(cmd.UserID),
		cmd.Name,
		cmd.URL,
		cmd.IntervalSec,
		cmd.Enabled,
	)

	m, err := scanMonitor(row)
	if err != nil {
		return Monitor{}, utils.WrapRepoError(op, err, false, r.logger)
	}
	return m, nil
}

// GetByID returns the monitor even when it is soft deleted.
func (r *PgRepository) GetByID(ctx context.Context, monitorID uuid.UUID) (Monitor, error) {
	const op string = "repo.monitor.get_by_id"

	row := r.pool.QueryRow(ctx,
		`SELECT `+monitorColumns+` FROM monitors WHERE id = $1`,
		utils.ToPgUUID(monitorID),
	)
	m, err := scanMonitor(row)
	if err != nil {
		return Monitor{}, utils.WrapRepoError(op, err, true, r.logger)
	}
	return m, nil
}

// Get returns a live monitor owned by userID.
func (r *PgRepository) Get(ctx context.Context, userID, monitorID uuid.UUID) (Monitor, error) {
	const op string = "repo.monitor.get"

	row := r.pool.QueryRow(ctx, `
		SELECT `+monitorColumns+`
		FROM monitors
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`,
		utils.ToPgUUID(monitorID),
		utils.ToPgUUID(userID),
	)
	m, err := scanMonitor(row)
	if err != nil {
		return Monitor{}, utils.WrapRepoError(op, err, true, r.logger)
	}
	return m, nil
}

func (r *PgRepository) List(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]Monitor, error) {
	const op string = "repo.monitor.list"

	rows, err := r.pool.Query(ctx, `
		SELECT `+monitorColumns+`
		FROM monitors
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3`,
		utils.ToPgUUID(userID), limit, offset,
	)
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}

	monitors, err := collectMonitors(rows)
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}
	return monitors, nil
}

func (r *PgRepository) ListSchedulable(ctx context.Context) ([]Monitor, error) {
	const op string = "repo.monitor.list_schedulable"

	rows, err := r.pool.Query(ctx, `
		SELECT `+monitorColumns+`
		FROM monitors
		WHERE enabled AND deleted_at IS NULL`)
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}

	monitors, err := collectMonitors(rows)
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}
	return monitors, nil
}

// Update applies the non-nil fields of cmd in one statement.
func (r *PgRepository) Update(ctx context.Context, userID, monitorID uuid.UUID, cmd UpdateMonitorCmd) (Monitor, error) {
	const op string = "repo.monitor.update"

	var (
		name     pgtype.Text
		interval pgtype.Int4
		enabled  pgtype.Bool
	)
	if cmd.Name != nil {
		name = pgtype.Text{String: *cmd.Name, Valid: true}
	}
	if cmd.IntervalSec != nil {
		interval = pgtype.Int4{Int32: *cmd.IntervalSec, Valid: true}
	}
	if cmd.Enabled != nil {
		enabled = pgtype.Bool{Bool: *cmd.Enabled, Valid: true}
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE monitors SET
			name         = COALESCE($3, name),
			interval_sec = COALESCE($4, interval_sec),
			enabled      = COALESCE($5, enabled),
			updated_at   = now()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
		RETURNING `+monitorColumns,
		utils.ToPgUUID(monitorID),
		utils.ToPgUUID(userID),
		name, interval, enabled,
	)
	m, err := scanMonitor(row)
	if err != nil {
		return Monitor{}, utils.WrapRepoError(op, err, true, r.logger)
	}
	return m, nil
}

func (r *PgRepository) SoftDelete(ctx context.Context, userID, monitorID uuid.UUID) error {
	const op string = "repo.monitor.soft_delete"

	tag, err := r.pool.Exec(ctx, `
		UPDATE monitors SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`,
		utils.ToPgUUID(monitorID), utils.ToPgUUID(userID),
	)
	if err != nil {
		return utils.WrapRepoError(op, err, false, r.logger)
	}
	if tag.RowsAffected() == 0 {
		return notFound(op)
	}
	return nil
}

func (r *PgRepository) HardDelete(ctx context.Context, userID, monitorID uuid.UUID) error {
	const op string = "repo.monitor.hard_delete"

	tag, err := r.pool.Exec(ctx,
		`DELETE FROM monitors WHERE id = $1 AND user_id = $2`,
		utils.ToPgUUID(monitorID), utils.ToPgUUID(userID),
	)
	if err != nil {
		return utils.WrapRepoError(op, err, false, r.logger)
	}
	if tag.RowsAffected() == 0 {
		return notFound(op)
	}
	return nil
}

func notFound(op string) error {
	return &apperror.Error{
		Kind:    apperror.NotFound,
		Op:      op,
		Message: "monitor not found",
	}
}

func scanMonitor(row pgx.Row) (Monitor, error) {
	var (
		id, userID pgtype.UUID
		m          Monitor
		deletedAt  pgtype.Timestamptz
		createdAt  time.Time
		updatedAt  time.Time
	)
	err := row.Scan(&id, &userID, &m.Name, &m.URL, &m.IntervalSec, &m.Enabled, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return Monitor{}, err
	}
	m.ID = utils.FromPgUUID(id)
	m.UserID = utils.FromPgUUID(userID)
	m.CreatedAt = createdAt
	m.UpdatedAt = updatedAt
	m.DeletedAt = utils.FromPgTimestamptzPtr(deletedAt)
	return m, nil
}

func collectMonitors(rows pgx.Rows) ([]Monitor, error) {
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Monitor, error) {
		return scanMonitor(row)
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Monitor{}
	}
	return out, nil
}
