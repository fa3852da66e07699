package models

import (
	"time"

	"github.com/google/uuid"
)

// GuestAssignment names an occupant for one seat of a completed order. The
// tier is snapshotted from the product at creation time and never re-derived.
type GuestAssignment struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID           uuid.UUID  `gorm:"column:event_id;type:uuid;not null"`
	TableID           *uuid.UUID `gorm:"column:table_id;type:uuid;uniqueIndex:idx_guest_assignments_table_user"`
	OrderID           uuid.UUID  `gorm:"column:order_id;type:uuid;not null"`
	UserID            uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_guest_assignments_table_user"`
	DisplayName       *string    `gorm:"column:display_name"`
	Dietary           *string    `gorm:"column:dietary"`
	TierSnapshot      string     `gorm:"column:tier_snapshot;not null"`
	BidderNumber      *int       `gorm:"column:bidder_number"`
	AuctionRegistered bool       `gorm:"column:auction_registered;not null;default:false"`
	CheckedInAt       *time.Time `gorm:"column:checked_in_at"`
	RefCode           string     `gorm:"column:ref_code;not null;uniqueIndex:idx_guest_assignments_ref_code"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
