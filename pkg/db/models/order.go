package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/jkhalligan/gala-ticket-platform/pkg/enums"
)

// Order is a purchase of one or more seats. Rows are never deleted; the only
// mutation path after creation is a status transition.
type Order struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID          uuid.UUID         `gorm:"column:event_id;type:uuid;not null"`
	ProductID        uuid.UUID         `gorm:"column:product_id;type:uuid;not null"`
	TableID          *uuid.UUID        `gorm:"column:table_id;type:uuid"`
	UserID           uuid.UUID         `gorm:"column:user_id;type:uuid;not null"`
	Quantity         int               `gorm:"column:quantity;not null"`
	AmountCents      int64             `gorm:"column:amount_cents;not null"`
	DiscountCents    int64             `gorm:"column:discount_cents;not null;default:0"`
	Status           enums.OrderStatus `gorm:"column:status;type:order_status;not null"`
	PromoCodeID      *uuid.UUID        `gorm:"column:promo_code_id;type:uuid"`
	ChargeRef        *string           `gorm:"column:charge_ref"`
	InvitedEmail     *string           `gorm:"column:invited_email"`
	InviteToken      *string           `gorm:"column:invite_token;uniqueIndex:idx_orders_invite_token"`
	InviteExpiresAt  *time.Time        `gorm:"column:invite_expires_at"`
	RefundedByUserID *uuid.UUID        `gorm:"column:refunded_by_user_id;type:uuid"`
	RefundedAt       *time.Time        `gorm:"column:refunded_at"`
	CompletedAt      *time.Time        `gorm:"column:completed_at"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
