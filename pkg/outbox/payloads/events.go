package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/jkhalligan/gala-ticket-platform/pkg/enums"
)

// OrderCreatedEvent signals a new checkout, paid or zero-amount.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	EventID     uuid.UUID         `json:"event_id"`
	TableID     *uuid.UUID        `json:"table_id,omitempty"`
	BuyerUserID uuid.UUID         `json:"buyer_user_id"`
	Quantity    int               `json:"quantity"`
	AmountCents int64             `json:"amount_cents"`
	Status      enums.OrderStatus `json:"status"`
}

// OrderCompletedEvent is emitted when an order reaches COMPLETED.
type OrderCompletedEvent struct {
	OrderID      uuid.UUID  `json:"order_id"`
	EventID      uuid.UUID  `json:"event_id"`
	TableID      *uuid.UUID `json:"table_id,omitempty"`
	BuyerUserID  uuid.UUID  `json:"buyer_user_id"`
	Quantity     int        `json:"quantity"`
	AmountCents  int64      `json:"amount_cents"`
	ChargeRef    *string    `json:"charge_ref,omitempty"`
	CompletedAt  time.Time  `json:"completed_at"`
	AssignmentID *uuid.UUID `json:"assignment_id,omitempty"`
}

// OrderCancelledEvent covers admin cancellation of an awaiting invitation.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	EventID     uuid.UUID `json:"event_id"`
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      string    `json:"reason,omitempty"`
}

// OrderExpiredEvent is emitted when a payment link lapses on access.
type OrderExpiredEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	EventID   uuid.UUID `json:"event_id"`
	ExpiredAt time.Time `json:"expired_at"`
}

// OrderRefundedEvent records the admin-only refund transition. Seats are not
// released implicitly; assignment removal is a separate event.
type OrderRefundedEvent struct {
	OrderID          uuid.UUID `json:"order_id"`
	EventID          uuid.UUID `json:"event_id"`
	AmountCents      int64     `json:"amount_cents"`
	RefundedByUserID uuid.UUID `json:"refunded_by_user_id"`
	RefundedAt       time.Time `json:"refunded_at"`
}

// GuestAssignedEvent is emitted for each new guest assignment.
type GuestAssignedEvent struct {
	AssignmentID uuid.UUID  `json:"assignment_id"`
	EventID      uuid.UUID  `json:"event_id"`
	TableID      *uuid.UUID `json:"table_id,omitempty"`
	OrderID      uuid.UUID  `json:"order_id"`
	GuestUserID  uuid.UUID  `json:"guest_user_id"`
	RefCode      string     `json:"ref_code"`
	Tier         string     `json:"tier"`
}

// GuestRemovedEvent is emitted on explicit seat removal.
type GuestRemovedEvent struct {
	AssignmentID uuid.UUID  `json:"assignment_id"`
	EventID      uuid.UUID  `json:"event_id"`
	TableID      *uuid.UUID `json:"table_id,omitempty"`
	OrderID      uuid.UUID  `json:"order_id"`
	GuestUserID  uuid.UUID  `json:"guest_user_id"`
	RemovedAt    time.Time  `json:"removed_at"`
}

// GuestReassignedEvent covers the admin cross-table move.
type GuestReassignedEvent struct {
	AssignmentID uuid.UUID  `json:"assignment_id"`
	EventID      uuid.UUID  `json:"event_id"`
	FromTableID  *uuid.UUID `json:"from_table_id,omitempty"`
	ToTableID    uuid.UUID  `json:"to_table_id"`
}

// TicketTransferredEvent repoints a seat to a new occupant. The order and
// reference code are preserved.
type TicketTransferredEvent struct {
	AssignmentID  uuid.UUID `json:"assignment_id"`
	EventID       uuid.UUID `json:"event_id"`
	FromUserID    uuid.UUID `json:"from_user_id"`
	ToUserID      uuid.UUID `json:"to_user_id"`
	RefCode       string    `json:"ref_code"`
	TransferredAt time.Time `json:"transferred_at"`
}

// GuestCheckedInEvent marks a guest's arrival at the event.
type GuestCheckedInEvent struct {
	AssignmentID uuid.UUID `json:"assignment_id"`
	EventID      uuid.UUID `json:"event_id"`
	CheckedInAt  time.Time `json:"checked_in_at"`
}

// TableCreatedEvent announces a new table with its reference code.
type TableCreatedEvent struct {
	TableID     uuid.UUID       `json:"table_id"`
	EventID     uuid.UUID       `json:"event_id"`
	OwnerUserID uuid.UUID       `json:"owner_user_id"`
	Type        enums.TableType `json:"type"`
	Capacity    int             `json:"capacity"`
	Code        string          `json:"code"`
}

// TableUpdatedEvent carries the mutated table snapshot fields.
type TableUpdatedEvent struct {
	TableID uuid.UUID         `json:"table_id"`
	EventID uuid.UUID         `json:"event_id"`
	Status  enums.TableStatus `json:"status"`
}

// PromoRedeemedEvent is emitted when a redemption increments current_uses.
type PromoRedeemedEvent struct {
	PromoCodeID   uuid.UUID `json:"promo_code_id"`
	EventID       uuid.UUID `json:"event_id"`
	OrderID       uuid.UUID `json:"order_id"`
	Code          string    `json:"code"`
	DiscountCents int64     `json:"discount_cents"`
}

// InvitationIssuedEvent notifies downstream mailers about a payment link.
type InvitationIssuedEvent struct {
	OrderID      uuid.UUID `json:"order_id"`
	EventID      uuid.UUID `json:"event_id"`
	InvitedEmail string    `json:"invited_email"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ExportRequestedEvent triggers the spreadsheet snapshot push.
type ExportRequestedEvent struct {
	EventID     uuid.UUID `json:"event_id"`
	RequestedBy uuid.UUID `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
}
