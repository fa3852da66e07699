package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a purchasable ticket type for an event. Commitment products carry
// a zero base price and exist so a captain can claim a table before any money
// moves.
type Product struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID        uuid.UUID `gorm:"column:event_id;type:uuid;not null"`
	Name           string    `gorm:"column:name;not null"`
	Tier           string    `gorm:"column:tier;not null"`
	BasePriceCents int64     `gorm:"column:base_price_cents;not null"`
	Commitment     bool      `gorm:"column:commitment;not null;default:false"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
