package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jkhalligan/gala-ticket-platform/pkg/db/models"
	"github.com/jkhalligan/gala-ticket-platform/pkg/enums"
	pkgerrors "github.com/jkhalligan/gala-ticket-platform/pkg/errors"
	"github.com/jkhalligan/gala-ticket-platform/pkg/logger"
	"github.com/jkhalligan/gala-ticket-platform/pkg/pagination"
)

// Entry captures one auditable mutation.
type Entry struct {
	OrganizationID uuid.UUID
	EventID        *uuid.UUID
	ActorUserID    uuid.UUID
	Action         enums.AuditAction
	EntityType     string
	EntityID       uuid.UUID
	Metadata       any
}

// Recorder appends audit rows inside the caller's transaction so a rolled
// back mutation never leaves a log entry behind.
type Recorder struct {
	logg *logger.Logger
}

func NewRecorder(logg *logger.Logger) *Recorder {
	return &Recorder{logg: logg}
}

// Record writes one append-only row. Metadata is marshaled to JSON; a nil
// metadata value writes NULL.
func (r *Recorder) Record(ctx context.Context, tx *gorm.DB, entry Entry) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required for audit record")
	}
	if entry.OrganizationID == uuid.Nil || entry.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "audit entry requires organization and actor")
	}
	if !entry.Action.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid audit action %q", entry.Action))
	}
	if entry.EntityType == "" || entry.EntityID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "audit entry requires an entity reference")
	}

	var metadata json.RawMessage
	if entry.Metadata != nil {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshaling audit metadata")
		}
		metadata = raw
	}

	row := models.ActivityLog{
		ID:             uuid.New(),
		OrganizationID: entry.OrganizationID,
		EventID:        entry.EventID,
		ActorUserID:    entry.ActorUserID,
		Action:         entry.Action,
		EntityType:     entry.EntityType,
		EntityID:       entry.EntityID,
		Metadata:       metadata,
	}
	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "writing audit record")
	}

	if r.logg != nil {
		r.logg.Info(ctx, fmt.Sprintf("audit: %s %s %s", entry.Action, entry.EntityType, entry.EntityID))
	}
	return nil
}

// ListFilter narrows audit queries. Zero values mean no filtering.
type ListFilter struct {
	OrganizationID uuid.UUID
	EventID        *uuid.UUID
	EntityType     string
	EntityID       *uuid.UUID
}

// List returns audit rows newest-first using the shared cursor pagination.
func (r *Recorder) List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Params) ([]models.ActivityLog, *pagination.Cursor, error) {
	if db == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeInternal, "db handle required")
	}
	if filter.OrganizationID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id required")
	}

	query := db.WithContext(ctx).Model(&models.ActivityLog{}).
		Where("organization_id = ?", filter.OrganizationID)
	if filter.EventID != nil {
		query = query.Where("event_id = ?", *filter.EventID)
	}
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != nil {
		query = query.Where("entity_id = ?", *filter.EntityID)
	}
	if page.Cursor != "" {
		cursor, err := pagination.ParseCursor(page.Cursor)
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	limit := pagination.NormalizeLimit(page.Limit)
	var rows []models.ActivityLog
	if err := query.Order("created_at DESC, id DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing audit records")
	}

	var next *pagination.Cursor
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return rows, next, nil
}
