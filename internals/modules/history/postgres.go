package history

import (
	"context"
	"time"

	"pulsewatch/pkg/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// PostgresStore persists history in the check_results table. Same-monitor
// appends are serialized with a transaction scoped advisory lock on the
// monitor id, so writers for different monitors never wait on each other.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zerolog.Logger
}

func NewPostgresStore(pool *pgxpool.Pool, logger *zerolog.Logger) *PostgresStore {
	return &PostgresStore{
		pool:   pool,
		logger: logger,
	}
}

const (
	lockMonitorSQL = `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`

	insertResultSQL = `
		INSERT INTO check_results (monitor_id, checked_at, outcome, response_time_ms, http_status, reason)
		SELECT $1, $2, $3, $4, $5, $6
		WHERE NOT EXISTS (
			SELECT 1 FROM check_results WHERE monitor_id = $1 AND checked_at >= $2
		)`

	selectColumns = `monitor_id, checked_at, outcome, response_time_ms, http_status, reason`
)

func (s *PostgresStore) Append(ctx context.Context, r CheckResult) error {
	const op string = "history.postgres.append"

	if err := validate(op, r); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return utils.WrapRepoError(op, err, false, s.logger)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, lockMonitorSQL, r.MonitorID.String()); err != nil {
		return utils.WrapRepoError(op, err, false, s.logger)
	}

	tag, err := tx.Exec(ctx, insertResultSQL,
		utils.ToPgUUID(r.MonitorID),
		r.Timestamp.UTC(),
		string(r.Outcome),
		utils.ToPgInt8Ptr(r.ResponseTimeMs),
		utils.ToPgInt4Ptr(r.HTTPStatus),
		r.Reason,
	)
	if err != nil {
		return utils.WrapRepoError(op, err, false, s.logger)
	}
	if tag.RowsAffected() == 0 {
		return invalidResult(op, "timestamp %s not after last stored result",
			r.Timestamp.Format(time.RFC3339Nano))
	}

	if err := tx.Commit(ctx); err != nil {
		return utils.WrapRepoError(op, err, false, s.logger)
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, monitorID uuid.UUID, from, to time.Time) ([]CheckResult, error) {
	const op string = "history.postgres.query"

	rows, err := s.pool.Query(ctx, `
		SELECT `+selectColumns+`
		FROM check_results
		WHERE monitor_id = $1 AND checked_at >= $2 AND checked_at <= $3
		ORDER BY checked_at ASC`,
		utils.ToPgUUID(monitorID), from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, s.logger)
	}

	out, err := collectResults(rows)
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, s.logger)
	}
	return out, nil
}

func (s *PostgresStore) Latest(ctx context.Context, monitorID uuid.UUID, limit int) ([]CheckResult, error) {
	const op string = "history.postgres.latest"

	if limit <= 0 {
		return []CheckResult{}, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+selectColumns+` FROM (
			SELECT `+selectColumns+`
			FROM check_results
			WHERE monitor_id = $1
			ORDER BY checked_at DESC
			LIMIT $2
		) latest
		ORDER BY checked_at ASC`,
		utils.ToPgUUID(monitorID), limit,
	)
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, s.logger)
	}

	out, err := collectResults(rows)
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, s.logger)
	}
	return out, nil
}

func (s *PostgresStore) Evict(ctx context.Context, monitorID uuid.UUID, olderThan time.Time) (int, error) {
	const op string = "history.postgres.evict"

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM check_results WHERE monitor_id = $1 AND checked_at < $2`,
		utils.ToPgUUID(monitorID), olderThan.UTC(),
	)
	if err != nil {
		return 0, utils.WrapRepoError(op, err, false, s.logger)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) Delete(ctx context.Context, monitorID uuid.UUID) error {
	const op string = "history.postgres.delete"

	if _, err := s.pool.Exec(ctx, `DELETE FROM check_results WHERE monitor_id = $1`, utils.ToPgUUID(monitorID)); err != nil {
		return utils.WrapRepoError(op, err, false, s.logger)
	}
	return nil
}

func (s *PostgresStore) MonitorIDs(ctx context.Context) ([]uuid.UUID, error) {
	const op string = "history.postgres.monitor_ids"

	rows, err := s.pool.Query(ctx, `SELECT DISTINCT monitor_id FROM check_results`)
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, s.logger)
	}

	ids, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (uuid.UUID, error) {
		var id pgtype.UUID
		if err := row.Scan(&id); err != nil {
			return uuid.Nil, err
		}
		return utils.FromPgUUID(id), nil
	})
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, s.logger)
	}
	return ids, nil
}

func collectResults(rows pgx.Rows) ([]CheckResult, error) {
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (CheckResult, error) {
		var (
			monitorID    pgtype.UUID
			checkedAt    time.Time
			outcome      string
			responseTime pgtype.Int8
			httpStatus   pgtype.Int4
			reason       string
		)
		if err := row.Scan(&monitorID, &checkedAt, &outcome, &responseTime, &httpStatus, &reason); err != nil {
			return CheckResult{}, err
		}
		return CheckResult{
			MonitorID:      utils.FromPgUUID(monitorID),
			Timestamp:      checkedAt,
			Outcome:        Outcome(outcome),
			ResponseTimeMs: utils.FromPgInt8Ptr(responseTime),
			HTTPStatus:     utils.FromPgInt4Ptr(httpStatus),
			Reason:         reason,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []CheckResult{}
	}
	return out, nil
}
