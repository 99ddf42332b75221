package channel

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

const channelColumns = `id, user_id, type, destination, enabled, created_at, updated_at`

func (r *PgRepository) Create(ctx context.Context, cmd CreateChannelCmd) (Channel, error) {
	const op string = "repo.channel.create"

	ch, err := scanChannel(r.pool.QueryRow(ctx, `
		INSERT INTO notification_channels (id, user_id, type, destination, enabled)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+channelColumns,
		utils.ToPgUUID(uuid.New()),
		utils.ToPgUUID(cmd.UserID),
		string(cmd.Type),
		cmd.Destination,
		cmd.Enabled,
	))
	if err != nil {
		return Channel{}, utils.WrapRepoError(op, err, false, r.logger)
	}
	return ch, nil
}

func (r *PgRepository) Get(ctx context.Context, userID, channelID uuid.UUID) (Channel, error) {
	const op string = "repo.channel.get"

	ch, err := scanChannel(r.pool.QueryRow(ctx,
		`SELECT `+channelColumns+` FROM notification_channels WHERE id = $1 AND user_id = $2`,
		utils.ToPgUUID(channelID), utils.ToPgUUID(userID),
	))
	if err != nil {
		return Channel{}, utils.WrapRepoError(op, err, true, r.logger)
	}
	return ch, nil
}

func (r *PgRepository) List(ctx context.Context, userID uuid.UUID) ([]Channel, error) {
	const op string = "repo.channel.list"

	rows, err := r.pool.Query(ctx, `
		SELECT `+channelColumns+`
		FROM notification_channels
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC`,
		utils.ToPgUUID(userID),
	)
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}

	channels, err := collectChannels(rows)
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}
	return channels, nil
}

func (r *PgRepository) Update(ctx context.Context, userID, channelID uuid.UUID, cmd UpdateChannelCmd) (Channel, error) {
	const op string = "repo.channel.update"

	var (
		destination pgtype.Text
		enabled     pgtype.Bool
	)
	if cmd.Destination != nil {
		destination = pgtype.Text{String: *cmd.Destination, Valid: true}
	}
	if cmd.Enabled != nil {
		enabled = pgtype.Bool{Bool: *cmd.Enabled, Valid: true}
	}

	ch, err := scanChannel(r.pool.QueryRow(ctx, `
		UPDATE notification_channels SET
			destination = COALESCE($3, destination),
			enabled     = COALESCE($4, enabled),
			updated_at  = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+channelColumns,
		utils.ToPgUUID(channelID), utils.ToPgUUID(userID),
		destination, enabled,
	))
	if err != nil {
		return Channel{}, utils.WrapRepoError(op, err, true, r.logger)
	}
	return ch, nil
}

func (r *PgRepository) Delete(ctx context.Context, userID, channelID uuid.UUID) error {
	const op string = "repo.channel.delete"

	tag, err := r.pool.Exec(ctx,
		`DELETE FROM notification_channels WHERE id = $1 AND user_id = $2`,
		utils.ToPgUUID(channelID), utils.ToPgUUID(userID),
	)
	if err != nil {
		return utils.WrapRepoError(op, err, false, r.logger)
	}
	if tag.RowsAffected() == 0 {
		return notFound(op, "channel not found")
	}
	return nil
}

// Subscribe is idempotent.
func (r *PgRepository) Subscribe(ctx context.Context, monitorID, channelID uuid.UUID) error {
	const op string = "repo.channel.subscribe"

	_, err := r.pool.Exec(ctx, `
		INSERT INTO alert_subscriptions (monitor_id, channel_id)
		VALUES ($1, $2)
		ON CONFLICT (monitor_id, channel_id) DO NOTHING`,
		utils.ToPgUUID(monitorID), utils.ToPgUUID(channelID),
	)
	if err != nil {
		return utils.WrapRepoError(op, err, false, r.logger)
	}
	return nil
}

func (r *PgRepository) Unsubscribe(ctx context.Context, monitorID, channelID uuid.UUID) error {
	const op string = "repo.channel.unsubscribe"

	tag, err := r.pool.Exec(ctx,
		`DELETE FROM alert_subscriptions WHERE monitor_id = $1 AND channel_id = $2`,
		utils.ToPgUUID(monitorID), utils.ToPgUUID(channelID),
	)
	if err != nil {
		return utils.WrapRepoError(op, err, false, r.logger)
	}
	if tag.RowsAffected() == 0 {
		return notFound(op, "subscription not found")
	}
	return nil
}

// SubscribedChannels returns every channel linked to the monitor, disabled
// ones included.
func (r *PgRepository) SubscribedChannels(ctx context.Context, monitorID uuid.UUID) ([]Channel, error) {
	const op string = "repo.channel.subscribed_channels"

	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.user_id, c.type, c.destination, c.enabled, c.created_at, c.updated_at
		FROM alert_subscriptions s
		JOIN notification_channels c ON c.id = s.channel_id
		WHERE s.monitor_id = $1
		ORDER BY s.created_at ASC`,
		utils.ToPgUUID(monitorID),
	)
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}

	channels, err := collectChannels(rows)
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}
	return channels, nil
}

func notFound(op, msg string) error {
	return &apperror.Error{
		Kind:    apperror.NotFound,
		Op:      op,
		Message: msg,
	}
}

func scanChannel(row pgx.Row) (Channel, error) {
	var (
		id, userID pgtype.UUID
		typ        string
		ch         Channel
		createdAt  time.Time
		updatedAt  time.Time
	)
	if err := row.Scan(&id, &userID, &typ, &ch.Destination, &ch.Enabled, &createdAt, &updatedAt); err != nil {
		return Channel{}, err
	}
	ch.ID = utils.FromPgUUID(id)
	ch.UserID = utils.FromPgUUID(userID)
	ch.Type = Type(typ)
	ch.CreatedAt = createdAt
	ch.UpdatedAt = updatedAt
	return ch, nil
}

func collectChannels(rows pgx.Rows) ([]Channel, error) {
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Channel, error) {
		return scanChannel(row)
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Channel{}
	}
	return out, nil
}
