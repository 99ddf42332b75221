package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS monitors (
	id           UUID PRIMARY KEY,
	user_id      UUID NOT NULL REFERENCES users(id),
	name         TEXT NOT NULL,
	url          TEXT NOT NULL,
	interval_sec INTEGER NOT NULL CHECK (interval_sec > 0),
	enabled      BOOLEAN NOT NULL DEFAULT TRUE,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at   TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_monitors_user ON monitors(user_id) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_monitors_enabled ON monitors(enabled) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS check_results (
	monitor_id       UUID NOT NULL,
	checked_at       TIMESTAMPTZ NOT NULL,
	outcome          TEXT NOT NULL CHECK (outcome IN ('up', 'down', 'timeout', 'error')),
	response_time_ms BIGINT,
	http_status      INTEGER,
	reason           TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (monitor_id, checked_at)
);

CREATE TABLE IF NOT EXISTS notification_channels (
	id          UUID PRIMARY KEY,
	user_id     UUID NOT NULL REFERENCES users(id),
	type        TEXT NOT NULL CHECK (type IN ('email', 'sms', 'call', 'slack')),
	destination TEXT NOT NULL,
	enabled     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_channels_user ON notification_channels(user_id);

CREATE TABLE IF NOT EXISTS alert_subscriptions (
	monitor_id UUID NOT NULL REFERENCES monitors(id) ON DELETE CASCADE,
	channel_id UUID NOT NULL REFERENCES notification_channels(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (monitor_id, channel_id)
);

CREATE TABLE IF NOT EXISTS alert_deliveries (
	id           BIGSERIAL PRIMARY KEY,
	monitor_id   UUID NOT NULL,
	channel_id   UUID NOT NULL,
	incident_id  UUID NOT NULL,
	transition   TEXT NOT NULL,
	status       TEXT NOT NULL,
	attempts     INTEGER NOT NULL,
	last_error   TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_alert_deliveries_monitor ON alert_deliveries(monitor_id, created_at DESC);
`

// Migrate creates the schema. It is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
