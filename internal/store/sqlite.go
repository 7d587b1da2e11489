package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"noteguard/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS webhook_events (
	id          TEXT PRIMARY KEY,
	event_type  TEXT NOT NULL,
	object      TEXT NOT NULL,
	api_version TEXT NOT NULL DEFAULT '',
	payload     BLOB NOT NULL,
	received_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_webhook_events_received_at
	ON webhook_events (received_at DESC);
`

// SQLiteStore is a SQLite-backed EventStore for single-node deployments.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed initializes) a SQLite event store at
// the given DSN.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DSN is required for SQLite storage")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (ss *SQLiteStore) RecordEvent(ctx context.Context, event *models.WebhookEvent) error {
	res, err := ss.db.ExecContext(ctx,
		`INSERT INTO webhook_events (id, event_type, object, api_version, payload, received_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO NOTHING`,
		event.ID, event.Type, event.Object, event.APIVersion, event.Payload, event.ReceivedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check insert result: %w", err)
	}
	if affected == 0 {
		return ErrDuplicateEvent
	}
	return nil
}

func (ss *SQLiteStore) GetEvent(ctx context.Context, id string) (*models.WebhookEvent, error) {
	row := ss.db.QueryRowContext(ctx,
		`SELECT id, event_type, object, api_version, payload, received_at
		 FROM webhook_events WHERE id = ?`, id)

	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

func (ss *SQLiteStore) ListEvents(ctx context.Context, limit int) ([]*models.WebhookEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := ss.db.QueryContext(ctx,
		`SELECT id, event_type, object, api_version, payload, received_at
		 FROM webhook_events ORDER BY received_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*models.WebhookEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (ss *SQLiteStore) Close() error {
	return ss.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	var receivedAt time.Time
	if err := s.Scan(&event.ID, &event.Type, &event.Object, &event.APIVersion,
		&event.Payload, &receivedAt); err != nil {
		return nil, err
	}
	event.ReceivedAt = receivedAt
	return &event, nil
}
