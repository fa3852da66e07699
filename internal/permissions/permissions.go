package permissions

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jkhalligan/gala-ticket-platform/pkg/db/models"
	"github.com/jkhalligan/gala-ticket-platform/pkg/enums"
	pkgerrors "github.com/jkhalligan/gala-ticket-platform/pkg/errors"
)

// Capability is one permissible action on a table or its guests.
type Capability string

const (
	CapabilityView        Capability = "view"
	CapabilityEdit        Capability = "edit"
	CapabilityAddGuest    Capability = "add_guest"
	CapabilityRemoveGuest Capability = "remove_guest"
	CapabilityEditGuest   Capability = "edit_guest"
	CapabilityManageRoles Capability = "manage_roles"
	CapabilityDelete      Capability = "delete"
)

// Actor is the resolved caller identity. The engine never authenticates;
// it only authorizes against this record.
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// GuestField names one editable field on a guest assignment.
type GuestField string

const (
	FieldDisplayName  GuestField = "display_name"
	FieldDietary      GuestField = "dietary"
	FieldBidderNumber GuestField = "bidder_number"
	FieldAuctionFlag  GuestField = "auction_registered"
)

// selfEditableFields is the carve-out a guest may change on their own
// assignment without holding any table role.
var selfEditableFields = map[GuestField]bool{
	FieldDisplayName: true,
	FieldDietary:     true,
	FieldAuctionFlag: true,
}

// capabilityMatrix is the single source of truth for non-admin role
// capabilities. The captain row only applies on CAPTAIN_PAYG tables.
var capabilityMatrix = map[enums.TableRole]map[Capability]bool{
	enums.TableRoleOwner: {
		CapabilityView: true, CapabilityEdit: true, CapabilityAddGuest: true,
		CapabilityRemoveGuest: true, CapabilityEditGuest: true,
		CapabilityManageRoles: true, CapabilityDelete: true,
	},
	enums.TableRoleCoOwner: {
		CapabilityView: true, CapabilityEdit: true, CapabilityAddGuest: true,
		CapabilityRemoveGuest: true, CapabilityEditGuest: true,
	},
	enums.TableRoleManager: {
		CapabilityView: true, CapabilityEdit: true, CapabilityAddGuest: true,
		CapabilityRemoveGuest: true, CapabilityEditGuest: true,
	},
	enums.TableRoleStaff: {
		CapabilityView: true, CapabilityEditGuest: true,
	},
	enums.TableRoleCaptain: {
		CapabilityView: true, CapabilityEdit: true, CapabilityAddGuest: true,
		CapabilityRemoveGuest: true, CapabilityEditGuest: true,
	},
}

// DeniedDetails names the capability a request was refused.
type DeniedDetails struct {
	Capability Capability `json:"capability"`
}

// Engine resolves an actor's capability set for a table. Stateless; role
// grants are loaded by the caller and passed in.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// EffectiveRole resolves the actor's role on the table: an explicit grant
// wins, otherwise the table's primary owner gets an implicit OWNER. The
// second return is false when the actor holds no role at all.
func (e *Engine) EffectiveRole(actor Actor, table *models.Table, grants []models.TableUserRole) (enums.TableRole, bool) {
	if table == nil {
		return "", false
	}
	for _, grant := range grants {
		if grant.TableID == table.ID && grant.UserID == actor.UserID {
			return grant.Role, true
		}
	}
	if table.OwnerUserID == actor.UserID {
		return enums.TableRoleOwner, true
	}
	return "", false
}

// Allows reports whether the actor may perform the capability on the table.
// Admins always may.
func (e *Engine) Allows(actor Actor, table *models.Table, grants []models.TableUserRole, capability Capability) bool {
	if actor.IsAdmin {
		return true
	}
	role, ok := e.EffectiveRole(actor, table, grants)
	if !ok {
		return false
	}
	// A captain grant is only meaningful on pay-as-you-go tables; elsewhere
	// it degrades to view.
	if role == enums.TableRoleCaptain && table.Type != enums.TableTypeCaptainPAYG {
		return capability == CapabilityView
	}
	return capabilityMatrix[role][capability]
}

// Require returns a typed permission error unless Allows.
func (e *Engine) Require(actor Actor, table *models.Table, grants []models.TableUserRole, capability Capability) error {
	if e.Allows(actor, table, grants, capability) {
		return nil
	}
	return denied(capability)
}

// RequireGuestEdit gates an edit of the named fields on an assignment. An
// actor editing their own assignment may touch only the self-editable
// subset; any field outside it falls through to the table-role check.
func (e *Engine) RequireGuestEdit(actor Actor, table *models.Table, grants []models.TableUserRole, assignment *models.GuestAssignment, fields []GuestField) error {
	if assignment == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "assignment required")
	}
	if len(fields) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "no fields to edit")
	}
	if !actor.IsAdmin && actor.UserID == assignment.UserID && allSelfEditable(fields) {
		return nil
	}
	return e.Require(actor, table, grants, CapabilityEditGuest)
}

// RequireGuestRemoval gates removing an assignment. Beyond the remove_guest
// capability, a captain may not remove a self-paid guest: when the backing
// order belongs to the guest being removed, only that guest, an owner, or
// an admin may do it.
func (e *Engine) RequireGuestRemoval(actor Actor, table *models.Table, grants []models.TableUserRole, assignment *models.GuestAssignment, order *models.Order) error {
	if assignment == nil || order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "assignment and order required")
	}
	if actor.IsAdmin {
		return nil
	}
	if actor.UserID == assignment.UserID {
		// Guests may always remove themselves.
		return nil
	}
	if err := e.Require(actor, table, grants, CapabilityRemoveGuest); err != nil {
		return err
	}
	role, _ := e.EffectiveRole(actor, table, grants)
	if role == enums.TableRoleCaptain && order.UserID == assignment.UserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "captains cannot remove self-paid guests").
			WithDetails(DeniedDetails{Capability: CapabilityRemoveGuest})
	}
	return nil
}

func allSelfEditable(fields []GuestField) bool {
	for _, field := range fields {
		if !selfEditableFields[field] {
			return false
		}
	}
	return true
}

func denied(capability Capability) error {
	return pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("missing %s permission", capability)).
		WithDetails(DeniedDetails{Capability: capability})
}
