package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS directory_entries (
    chat_id             BIGINT PRIMARY KEY,
    username            TEXT NOT NULL DEFAULT '',
    first_name          TEXT NOT NULL DEFAULT '',
    last_name           TEXT NOT NULL DEFAULT '',
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    last_interaction_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    is_active           BOOLEAN NOT NULL DEFAULT TRUE
);

-- username must be unique when present; empty usernames do not collide
CREATE UNIQUE INDEX IF NOT EXISTS directory_entries_username_uq
    ON directory_entries (username) WHERE username <> '';

CREATE TABLE IF NOT EXISTS interactions (
    id          BIGSERIAL PRIMARY KEY,
    chat_id     BIGINT NOT NULL REFERENCES directory_entries(chat_id) ON DELETE CASCADE,
    kind        TEXT NOT NULL CHECK (kind IN ('command','callback','message')),
    payload     TEXT NOT NULL DEFAULT '',
    occurred_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS interactions_chat_occurred_idx
    ON interactions (chat_id, occurred_at DESC);
CREATE INDEX IF NOT EXISTS interactions_occurred_idx
    ON interactions (occurred_at);

CREATE TABLE IF NOT EXISTS broadcast_jobs (
    id               TEXT PRIMARY KEY,
    title            TEXT NOT NULL,
    body             TEXT NOT NULL,
    created_by       TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    claimed_at       TIMESTAMPTZ,
    sent_at          TIMESTAMPTZ,
    total_recipients INT NOT NULL DEFAULT 0,
    successful_sends INT NOT NULL DEFAULT 0,
    failed_sends     INT NOT NULL DEFAULT 0,
    status           TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','in_flight','sent'))
);

CREATE INDEX IF NOT EXISTS broadcast_jobs_status_idx ON broadcast_jobs (status, claimed_at);

CREATE TABLE IF NOT EXISTS accounts (
    id            UUID PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    first_name    TEXT NOT NULL DEFAULT '',
    last_name     TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    chat_id       BIGINT REFERENCES directory_entries(chat_id) ON DELETE SET NULL,
    last_login_at TIMESTAMPTZ
);
`

// Migrate applies the schema. All statements are idempotent so this is safe
// to run on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
