// Package observability records domain-level business events to SQLite.
// Event logging is strictly non-blocking for callers: a failing event store
// must never fail a clone mutation.
package observability

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/hazyhaar/miroir/idgen"
)

// Schema contains the DDL for the business event log.
const Schema = `
CREATE TABLE IF NOT EXISTS business_event_logs (
    event_id     TEXT PRIMARY KEY,
    event_type   TEXT NOT NULL,
    service_name TEXT NOT NULL,
    entity_type  TEXT NOT NULL,
    entity_id    TEXT NOT NULL,
    user_id      TEXT NOT NULL DEFAULT '',
    details      TEXT NOT NULL DEFAULT '',
    success      INTEGER NOT NULL DEFAULT 1,
    created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_entity ON business_event_logs(entity_type, entity_id);
CREATE INDEX IF NOT EXISTS idx_events_created ON business_event_logs(created_at);
`

// BusinessEvent represents a domain-level event to record.
type BusinessEvent struct {
	EventType   string
	ServiceName string
	EntityType  string
	EntityID    string
	UserID      string
	Details     string // optional JSON
	Success     bool
}

// EventLogger writes business events.
type EventLogger struct {
	db    *sql.DB
	newID idgen.Generator
}

// NewEventLogger creates a logger backed by the given database and applies
// the event schema.
func NewEventLogger(db *sql.DB) (*EventLogger, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}
	return &EventLogger{
		db:    db,
		newID: idgen.Prefixed("evt_", idgen.Default),
	}, nil
}

// LogEvent records a business event. Non-blocking: errors are logged via
// slog but do not propagate.
func (l *EventLogger) LogEvent(ctx context.Context, event BusinessEvent) {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO business_event_logs (
			event_id, event_type, service_name, entity_type, entity_id,
			user_id, details, success, created_at
		) VALUES (?,?,?,?,?,?,?,?,?)`,
		l.newID(), event.EventType, event.ServiceName, event.EntityType, event.EntityID,
		event.UserID, event.Details, event.Success, time.Now().UnixMilli())
	if err != nil {
		slog.Error("observability event log failed", "error", err, "event_type", event.EventType)
	}
}

// Cleanup deletes events older than the given retention period.
func Cleanup(ctx context.Context, db *sql.DB, retention time.Duration) error {
	cutoff := time.Now().Add(-retention).UnixMilli()
	_, err := db.ExecContext(ctx, `DELETE FROM business_event_logs WHERE created_at < ?`, cutoff)
	return err
}
