package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/jkhalligan/gala-ticket-platform/pkg/enums"
)

// TableUserRole grants one explicit role per (table, user). Re-granting
// replaces the existing row rather than adding a second one.
type TableUserRole struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TableID         uuid.UUID       `gorm:"column:table_id;type:uuid;not null;uniqueIndex:idx_table_user_roles_table_user"`
	UserID          uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_table_user_roles_table_user"`
	Role            enums.TableRole `gorm:"column:role;type:table_role;not null"`
	GrantedByUserID *uuid.UUID      `gorm:"column:granted_by_user_id;type:uuid"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
