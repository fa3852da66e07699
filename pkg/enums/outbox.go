package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder           OutboxAggregateType = "order"
	AggregateTable           OutboxAggregateType = "table"
	AggregateGuestAssignment OutboxAggregateType = "guest_assignment"
	AggregatePromoCode       OutboxAggregateType = "promo_code"
	AggregateEvent           OutboxAggregateType = "event"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateTable,
	AggregateGuestAssignment,
	AggregatePromoCode,
	AggregateEvent,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated     OutboxEventType = "order_created"
	EventOrderCompleted   OutboxEventType = "order_completed"
	EventOrderCancelled   OutboxEventType = "order_cancelled"
	EventOrderExpired     OutboxEventType = "order_expired"
	EventOrderRefunded    OutboxEventType = "order_refunded"
	EventGuestAssigned    OutboxEventType = "guest_assigned"
	EventGuestRemoved     OutboxEventType = "guest_removed"
	EventGuestReassigned  OutboxEventType = "guest_reassigned"
	EventTicketTransfer   OutboxEventType = "ticket_transferred"
	EventGuestCheckedIn   OutboxEventType = "guest_checked_in"
	EventTableCreated     OutboxEventType = "table_created"
	EventTableUpdated     OutboxEventType = "table_updated"
	EventPromoRedeemed    OutboxEventType = "promo_redeemed"
	EventExportRequested  OutboxEventType = "export_requested"
	EventInvitationIssued OutboxEventType = "invitation_issued"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderCompleted,
	EventOrderCancelled,
	EventOrderExpired,
	EventOrderRefunded,
	EventGuestAssigned,
	EventGuestRemoved,
	EventGuestReassigned,
	EventTicketTransfer,
	EventGuestCheckedIn,
	EventTableCreated,
	EventTableUpdated,
	EventPromoRedeemed,
	EventExportRequested,
	EventInvitationIssued,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
