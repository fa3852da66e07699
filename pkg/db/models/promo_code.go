package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/jkhalligan/gala-ticket-platform/pkg/enums"
)

// PromoCode is an event-scoped discount. CurrentUses only ever moves through
// the guarded compare-and-increment in the promos repository.
type PromoCode struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID       uuid.UUID          `gorm:"column:event_id;type:uuid;not null;uniqueIndex:idx_promo_codes_event_code"`
	Code          string             `gorm:"column:code;not null;uniqueIndex:idx_promo_codes_event_code"`
	DiscountType  enums.DiscountType `gorm:"column:discount_type;type:discount_type;not null"`
	DiscountValue int64              `gorm:"column:discount_value;not null"`
	ValidFrom     *time.Time         `gorm:"column:valid_from"`
	ValidUntil    *time.Time         `gorm:"column:valid_until"`
	MaxUses       int                `gorm:"column:max_uses;not null"`
	CurrentUses   int                `gorm:"column:current_uses;not null;default:0"`
	Active        bool               `gorm:"column:active;not null;default:true"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
