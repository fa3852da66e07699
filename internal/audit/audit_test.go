package audit

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jkhalligan/gala-ticket-platform/pkg/db/models"
	"github.com/jkhalligan/gala-ticket-platform/pkg/enums"
	pkgerrors "github.com/jkhalligan/gala-ticket-platform/pkg/errors"
	"github.com/jkhalligan/gala-ticket-platform/pkg/pagination"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	ddl := `
CREATE TABLE IF NOT EXISTS activity_logs (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  event_id TEXT,
  actor_user_id TEXT NOT NULL,
  action TEXT NOT NULL,
  entity_type TEXT NOT NULL,
  entity_id TEXT NOT NULL,
  metadata TEXT,
  created_at DATETIME
);`
	if err := conn.Exec(ddl).Error; err != nil {
		t.Fatalf("failed to create activity_logs: %v", err)
	}
	return conn
}

func TestRecord_WritesRow(t *testing.T) {
	db := newTestDB(t)
	recorder := NewRecorder(nil)
	org := uuid.New()
	entity := uuid.New()

	err := recorder.Record(context.Background(), db, Entry{
		OrganizationID: org,
		ActorUserID:    uuid.New(),
		Action:         enums.AuditGuestAdded,
		EntityType:     "guest_assignment",
		EntityID:       entity,
		Metadata:       map[string]string{"ref_code": "G0001"},
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	var row models.ActivityLog
	if err := db.First(&row).Error; err != nil {
		t.Fatalf("fetching row failed: %v", err)
	}
	if row.Action != enums.AuditGuestAdded {
		t.Fatalf("expected action %s, got %s", enums.AuditGuestAdded, row.Action)
	}
	if row.EntityID != entity {
		t.Fatalf("entity id mismatch")
	}
	if len(row.Metadata) == 0 {
		t.Fatal("expected metadata to be persisted")
	}
}

func TestRecord_RejectsInvalidEntry(t *testing.T) {
	db := newTestDB(t)
	recorder := NewRecorder(nil)

	err := recorder.Record(context.Background(), db, Entry{
		OrganizationID: uuid.New(),
		ActorUserID:    uuid.New(),
		Action:         enums.AuditAction("NOT_A_THING"),
		EntityType:     "order",
		EntityID:       uuid.New(),
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	err = recorder.Record(context.Background(), nil, Entry{})
	if err == nil {
		t.Fatal("expected error for nil transaction")
	}
}

func TestList_FiltersAndPaginates(t *testing.T) {
	db := newTestDB(t)
	recorder := NewRecorder(nil)
	org := uuid.New()
	eventID := uuid.New()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := recorder.Record(ctx, db, Entry{
			OrganizationID: org,
			EventID:        &eventID,
			ActorUserID:    uuid.New(),
			Action:         enums.AuditOrderCreated,
			EntityType:     "order",
			EntityID:       uuid.New(),
		}); err != nil {
			t.Fatalf("seeding failed: %v", err)
		}
	}

	rows, next, err := recorder.List(ctx, db, ListFilter{OrganizationID: org, EventID: &eventID}, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if next == nil {
		t.Fatal("expected a next cursor")
	}

	// An unrelated organization sees nothing.
	rows, _, err = recorder.List(ctx, db, ListFilter{OrganizationID: uuid.New()}, pagination.Params{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}
