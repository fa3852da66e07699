package enums

import "fmt"

// AuditAction identifies the kind of state change recorded in the activity log.
type AuditAction string

const (
	AuditOrderCreated      AuditAction = "ORDER_CREATED"
	AuditOrderCompleted    AuditAction = "ORDER_COMPLETED"
	AuditOrderCancelled    AuditAction = "ORDER_CANCELLED"
	AuditOrderExpired      AuditAction = "ORDER_EXPIRED"
	AuditOrderRefunded     AuditAction = "ORDER_REFUNDED"
	AuditGuestAdded        AuditAction = "GUEST_ADDED"
	AuditGuestUpdated      AuditAction = "GUEST_UPDATED"
	AuditGuestRemoved      AuditAction = "GUEST_REMOVED"
	AuditGuestReassigned   AuditAction = "GUEST_REASSIGNED"
	AuditTicketTransferred AuditAction = "TICKET_TRANSFERRED"
	AuditGuestCheckedIn    AuditAction = "GUEST_CHECKED_IN"
	AuditTableCreated      AuditAction = "TABLE_CREATED"
	AuditTableUpdated      AuditAction = "TABLE_UPDATED"
	AuditTableDeleted      AuditAction = "TABLE_DELETED"
	AuditRoleGranted       AuditAction = "ROLE_GRANTED"
	AuditRoleRevoked       AuditAction = "ROLE_REVOKED"
	AuditPromoRedeemed     AuditAction = "PROMO_REDEEMED"
	AuditPromoCreated      AuditAction = "PROMO_CREATED"
	AuditPromoDeactivated  AuditAction = "PROMO_DEACTIVATED"
	AuditInvitationIssued  AuditAction = "INVITATION_ISSUED"
	AuditExportGenerated   AuditAction = "EXPORT_GENERATED"
	AuditEventUpdated      AuditAction = "EVENT_UPDATED"
	AuditEventDeleted      AuditAction = "EVENT_DELETED"
)

var validAuditActions = []AuditAction{
	AuditOrderCreated,
	AuditOrderCompleted,
	AuditOrderCancelled,
	AuditOrderExpired,
	AuditOrderRefunded,
	AuditGuestAdded,
	AuditGuestUpdated,
	AuditGuestRemoved,
	AuditGuestReassigned,
	AuditTicketTransferred,
	AuditGuestCheckedIn,
	AuditTableCreated,
	AuditTableUpdated,
	AuditTableDeleted,
	AuditRoleGranted,
	AuditRoleRevoked,
	AuditPromoRedeemed,
	AuditPromoCreated,
	AuditPromoDeactivated,
	AuditInvitationIssued,
	AuditExportGenerated,
	AuditEventUpdated,
	AuditEventDeleted,
}

func (a AuditAction) String() string { return string(a) }

// IsValid reports whether the value is a known audit action.
func (a AuditAction) IsValid() bool {
	for _, candidate := range validAuditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditAction converts raw input into AuditAction.
func ParseAuditAction(value string) (AuditAction, error) {
	for _, candidate := range validAuditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit action %q", value)
}
