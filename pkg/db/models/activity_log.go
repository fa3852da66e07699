package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jkhalligan/gala-ticket-platform/pkg/enums"
)

// ActivityLog is the append-only audit trail. Rows are never updated or
// deleted.
type ActivityLog struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID         `gorm:"column:organization_id;type:uuid;not null"`
	EventID        *uuid.UUID        `gorm:"column:event_id;type:uuid"`
	ActorUserID    uuid.UUID         `gorm:"column:actor_user_id;type:uuid;not null"`
	Action         enums.AuditAction `gorm:"column:action;type:audit_action;not null"`
	EntityType     string            `gorm:"column:entity_type;not null"`
	EntityID       uuid.UUID         `gorm:"column:entity_id;type:uuid;not null"`
	Metadata       json.RawMessage   `gorm:"column:metadata;type:jsonb"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
}
