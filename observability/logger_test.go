package observability

import (
	"context"
	"testing"
	"time"

	"github.com/hazyhaar/miroir/dbopen"
	_ "modernc.org/sqlite"
)

func TestLogEventAndCleanup(t *testing.T) {
	db := dbopen.OpenMemory(t)
	logger, err := NewEventLogger(db)
	if err != nil {
		t.Fatalf("NewEventLogger: %v", err)
	}
	ctx := context.Background()

	logger.LogEvent(ctx, BusinessEvent{
		EventType:   "clone_created",
		ServiceName: "miroir",
		EntityType:  "clone",
		EntityID:    "c1",
		UserID:      "alice",
		Details:     `{"url":"https://example.test"}`,
		Success:     true,
	})

	var count int
	var eventType, userID string
	err = db.QueryRow(`SELECT COUNT(*) FROM business_event_logs`).Scan(&count)
	if err != nil || count != 1 {
		t.Fatalf("count = %d, err = %v", count, err)
	}
	if err := db.QueryRow(
		`SELECT event_type, user_id FROM business_event_logs`).Scan(&eventType, &userID); err != nil {
		t.Fatal(err)
	}
	if eventType != "clone_created" || userID != "alice" {
		t.Errorf("stored (%q, %q)", eventType, userID)
	}

	// Events older than the retention window are purged, recent ones kept.
	if _, err := db.Exec(
		`UPDATE business_event_logs SET created_at = ?`,
		time.Now().Add(-48*time.Hour).UnixMilli()); err != nil {
		t.Fatal(err)
	}
	logger.LogEvent(ctx, BusinessEvent{
		EventType: "clone_deleted", ServiceName: "miroir",
		EntityType: "clone", EntityID: "c1", Success: true,
	})
	if err := Cleanup(ctx, db, 24*time.Hour); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM business_event_logs`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("after cleanup count = %d, want 1", count)
	}
	if err := db.QueryRow(`SELECT event_type FROM business_event_logs`).Scan(&eventType); err != nil {
		t.Fatal(err)
	}
	if eventType != "clone_deleted" {
		t.Errorf("survivor = %q", eventType)
	}
}

func TestLogEventFailureDoesNotPropagate(t *testing.T) {
	db := dbopen.OpenMemory(t)
	logger, err := NewEventLogger(db)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`DROP TABLE business_event_logs`); err != nil {
		t.Fatal(err)
	}
	// Must not panic or return anything; the failure is only logged.
	logger.LogEvent(context.Background(), BusinessEvent{
		EventType: "clone_created", ServiceName: "miroir",
		EntityType: "clone", EntityID: "c1",
	})
}
