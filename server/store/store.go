// Package store owns the Postgres connection pool and schema migration for
// the tournament's durable telemetry document sink.
package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the telemetry document-sink tables if they do not already
// exist. Turns and matches carry their payload as JSONB; models is the
// per-model aggregate, incremented on every match finalize.
const Schema = `
CREATE TABLE IF NOT EXISTS turns (
	match_id     TEXT NOT NULL,
	turn_number  INTEGER NOT NULL,
	hand_number  INTEGER NOT NULL,
	seat_id      TEXT NOT NULL,
	doc          JSONB NOT NULL,
	ingested_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (match_id, turn_number, hand_number, seat_id)
);

CREATE TABLE IF NOT EXISTS matches (
	match_id     TEXT PRIMARY KEY,
	doc          JSONB NOT NULL,
	ingested_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS models (
	model_id         TEXT PRIMARY KEY,
	total_matches    BIGINT NOT NULL DEFAULT 0,
	wins             BIGINT NOT NULL DEFAULT 0,
	losses           BIGINT NOT NULL DEFAULT 0,
	draws            BIGINT NOT NULL DEFAULT 0,
	total_violations BIGINT NOT NULL DEFAULT 0,
	last_played      TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS model_game_stats (
	model_id   TEXT NOT NULL,
	event_type TEXT NOT NULL,
	matches    BIGINT NOT NULL DEFAULT 0,
	wins       BIGINT NOT NULL DEFAULT 0,
	losses     BIGINT NOT NULL DEFAULT 0,
	draws      BIGINT NOT NULL DEFAULT 0,
	PRIMARY KEY (model_id, event_type)
);

CREATE TABLE IF NOT EXISTS tournaments (
	tournament_name TEXT PRIMARY KEY,
	doc             JSONB NOT NULL,
	ingested_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// DB wraps a pgx connection pool.
type DB struct{ *pgxpool.Pool }

// Open connects to dsn without blocking on a ping; callers that need to
// confirm connectivity up front should call Ping afterward.
func Open(ctx context.Context, dsn string) (*DB, error) {
	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &DB{p}, nil
}

func (db *DB) Close(context.Context)          { db.Pool.Close() }
func (db *DB) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

// Migrate applies Schema, idempotently creating the telemetry tables.
func Migrate(ctx context.Context, db *DB) error {
	_, err := db.Exec(ctx, Schema)
	return err
}
