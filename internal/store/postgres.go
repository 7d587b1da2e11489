package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"noteguard/internal/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS webhook_events (
	id          TEXT PRIMARY KEY,
	event_type  TEXT NOT NULL,
	object      TEXT NOT NULL,
	api_version TEXT NOT NULL DEFAULT '',
	payload     BYTEA NOT NULL,
	received_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_webhook_events_received_at
	ON webhook_events (received_at DESC);
`

// PostgresStore is a PostgreSQL-backed EventStore for production
// deployments.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to PostgreSQL and ensures the event table
// exists.
func NewPostgresStore(cfg models.DatabaseConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("DSN is required for PostgreSQL storage")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(context.Background(), postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (ps *PostgresStore) RecordEvent(ctx context.Context, event *models.WebhookEvent) error {
	tag, err := ps.pool.Exec(ctx,
		`INSERT INTO webhook_events (id, event_type, object, api_version, payload, received_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO NOTHING`,
		event.ID, event.Type, event.Object, event.APIVersion, event.Payload, event.ReceivedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrDuplicateEvent
	}
	return nil
}

func (ps *PostgresStore) GetEvent(ctx context.Context, id string) (*models.WebhookEvent, error) {
	row := ps.pool.QueryRow(ctx,
		`SELECT id, event_type, object, api_version, payload, received_at
		 FROM webhook_events WHERE id = $1`, id)

	var event models.WebhookEvent
	err := row.Scan(&event.ID, &event.Type, &event.Object, &event.APIVersion,
		&event.Payload, &event.ReceivedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &event, nil
}

func (ps *PostgresStore) ListEvents(ctx context.Context, limit int) ([]*models.WebhookEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := ps.pool.Query(ctx,
		`SELECT id, event_type, object, api_version, payload, received_at
		 FROM webhook_events ORDER BY received_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*models.WebhookEvent
	for rows.Next() {
		var event models.WebhookEvent
		if err := rows.Scan(&event.ID, &event.Type, &event.Object, &event.APIVersion,
			&event.Payload, &event.ReceivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}

func (ps *PostgresStore) Close() error {
	ps.pool.Close()
	return nil
}
