package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents the canonical identity entity. Authentication happens
// upstream; the platform only reads this record for authorization.
type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string     `gorm:"type:text;not null;uniqueIndex"`
	FirstName string     `gorm:"column:first_name;not null"`
	LastName  string     `gorm:"column:last_name;not null"`
	Phone     *string    `gorm:"column:phone"`
	IsAdmin   bool       `gorm:"column:is_admin;not null;default:false"`
	IsActive  bool       `gorm:"column:is_active;not null;default:true"`
	LastSeen  *time.Time `gorm:"column:last_seen"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
