package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/jkhalligan/gala-ticket-platform/pkg/enums"
)

// Table is a block of seats at an event. The primary owner is an implicit
// OWNER grant and does not need a TableUserRole row.
type Table struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID         uuid.UUID         `gorm:"column:event_id;type:uuid;not null;uniqueIndex:idx_tables_event_code"`
	OwnerUserID     uuid.UUID         `gorm:"column:owner_user_id;type:uuid;not null"`
	Type            enums.TableType   `gorm:"column:type;type:table_type;not null"`
	Status          enums.TableStatus `gorm:"column:status;type:table_status;not null;default:'ACTIVE'"`
	Capacity        int               `gorm:"column:capacity;not null"`
	Name            *string           `gorm:"column:name"`
	SeatPriceCents  *int64            `gorm:"column:seat_price_cents"`
	TotalPriceCents *int64            `gorm:"column:total_price_cents"`
	Code            string            `gorm:"column:code;not null;uniqueIndex:idx_tables_event_code"`
	DisplayNumber   *string           `gorm:"column:display_number"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
