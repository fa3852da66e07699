package models

import (
	"time"

	"github.com/google/uuid"
)

// RefSequence backs reference-code generation. One row per (organization,
// scope); NextValue only moves through the atomic upsert in the refcodes
// repository, so codes are never reused even across rolled-back attempts.
type RefSequence struct {
	OrganizationID uuid.UUID `gorm:"column:organization_id;type:uuid;primaryKey"`
	Scope          string    `gorm:"column:scope;primaryKey"`
	NextValue      int64     `gorm:"column:next_value;not null;default:1"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
