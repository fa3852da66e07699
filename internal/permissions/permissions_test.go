package permissions

import (
	"testing"

	"github.com/google/uuid"

	"github.com/jkhalligan/gala-ticket-platform/pkg/db/models"
	"github.com/jkhalligan/gala-ticket-platform/pkg/enums"
	pkgerrors "github.com/jkhalligan/gala-ticket-platform/pkg/errors"
)

func testTable(ownerID uuid.UUID, tableType enums.TableType) *models.Table {
	return &models.Table{
		ID:          uuid.New(),
		EventID:     uuid.New(),
		OwnerUserID: ownerID,
		Type:        tableType,
		Status:      enums.TableStatusActive,
		Capacity:    10,
		Code:        "25-T001",
	}
}

func grant(table *models.Table, userID uuid.UUID, role enums.TableRole) models.TableUserRole {
	return models.TableUserRole{
		ID:      uuid.New(),
		TableID: table.ID,
		UserID:  userID,
		Role:    role,
	}
}

func TestEffectiveRole(t *testing.T) {
	engine := NewEngine()
	owner := uuid.New()
	manager := uuid.New()
	stranger := uuid.New()
	table := testTable(owner, enums.TableTypePrepaid)
	grants := []models.TableUserRole{grant(table, manager, enums.TableRoleManager)}

	role, ok := engine.EffectiveRole(Actor{UserID: manager}, table, grants)
	if !ok || role != enums.TableRoleManager {
		t.Fatalf("expected MANAGER, got %s ok=%v", role, ok)
	}

	// Primary owner gets an implicit OWNER with no grant row.
	role, ok = engine.EffectiveRole(Actor{UserID: owner}, table, grants)
	if !ok || role != enums.TableRoleOwner {
		t.Fatalf("expected implicit OWNER, got %s ok=%v", role, ok)
	}

	// An explicit grant wins over the implicit owner path.
	demoted := append(grants, grant(table, owner, enums.TableRoleStaff))
	role, ok = engine.EffectiveRole(Actor{UserID: owner}, table, demoted)
	if !ok || role != enums.TableRoleStaff {
		t.Fatalf("expected explicit STAFF to win, got %s", role)
	}

	if _, ok = engine.EffectiveRole(Actor{UserID: stranger}, table, grants); ok {
		t.Fatal("expected no role for stranger")
	}
}

func TestCapabilityMatrix(t *testing.T) {
	engine := NewEngine()
	owner := uuid.New()
	table := testTable(owner, enums.TableTypeCaptainPAYG)

	cases := []struct {
		role    enums.TableRole
		allowed []Capability
		refused []Capability
	}{
		{
			role:    enums.TableRoleOwner,
			allowed: []Capability{CapabilityView, CapabilityEdit, CapabilityAddGuest, CapabilityRemoveGuest, CapabilityEditGuest, CapabilityManageRoles, CapabilityDelete},
		},
		{
			role:    enums.TableRoleCoOwner,
			allowed: []Capability{CapabilityView, CapabilityEdit, CapabilityAddGuest, CapabilityRemoveGuest, CapabilityEditGuest},
			refused: []Capability{CapabilityManageRoles, CapabilityDelete},
		},
		{
			role:    enums.TableRoleManager,
			allowed: []Capability{CapabilityView, CapabilityEdit, CapabilityAddGuest, CapabilityRemoveGuest, CapabilityEditGuest},
			refused: []Capability{CapabilityManageRoles},
		},
		{
			role:    enums.TableRoleStaff,
			allowed: []Capability{CapabilityView, CapabilityEditGuest},
			refused: []Capability{CapabilityEdit, CapabilityAddGuest, CapabilityRemoveGuest, CapabilityManageRoles},
		},
		{
			role:    enums.TableRoleCaptain,
			allowed: []Capability{CapabilityView, CapabilityEdit, CapabilityAddGuest, CapabilityRemoveGuest, CapabilityEditGuest},
			refused: []Capability{CapabilityManageRoles},
		},
	}

	for _, tc := range cases {
		t.Run(string(tc.role), func(t *testing.T) {
			userID := uuid.New()
			actor := Actor{UserID: userID}
			grants := []models.TableUserRole{grant(table, userID, tc.role)}
			for _, capability := range tc.allowed {
				if !engine.Allows(actor, table, grants, capability) {
					t.Fatalf("expected %s to allow %s", tc.role, capability)
				}
			}
			for _, capability := range tc.refused {
				if engine.Allows(actor, table, grants, capability) {
					t.Fatalf("expected %s to refuse %s", tc.role, capability)
				}
			}
		})
	}
}

func TestAdminBypassesMatrix(t *testing.T) {
	engine := NewEngine()
	table := testTable(uuid.New(), enums.TableTypePrepaid)
	admin := Actor{UserID: uuid.New(), IsAdmin: true}

	for _, capability := range []Capability{CapabilityView, CapabilityEdit, CapabilityManageRoles, CapabilityDelete} {
		if !engine.Allows(admin, table, nil, capability) {
			t.Fatalf("expected admin to hold %s", capability)
		}
	}
}

func TestCaptainDegradesOnPrepaidTable(t *testing.T) {
	engine := NewEngine()
	table := testTable(uuid.New(), enums.TableTypePrepaid)
	captain := uuid.New()
	grants := []models.TableUserRole{grant(table, captain, enums.TableRoleCaptain)}
	actor := Actor{UserID: captain}

	if !engine.Allows(actor, table, grants, CapabilityView) {
		t.Fatal("expected captain to keep view on prepaid table")
	}
	if engine.Allows(actor, table, grants, CapabilityAddGuest) {
		t.Fatal("expected captain grant to degrade to view-only on prepaid table")
	}
}

func TestRequireGuestEdit_SelfCarveOut(t *testing.T) {
	engine := NewEngine()
	table := testTable(uuid.New(), enums.TableTypePrepaid)
	guest := uuid.New()
	assignment := &models.GuestAssignment{
		ID:      uuid.New(),
		EventID: table.EventID,
		TableID: &table.ID,
		OrderID: uuid.New(),
		UserID:  guest,
	}
	actor := Actor{UserID: guest}

	// Self-editable subset passes with no table role.
	err := engine.RequireGuestEdit(actor, table, nil, assignment, []GuestField{FieldDisplayName, FieldDietary, FieldAuctionFlag})
	if err != nil {
		t.Fatalf("expected self-edit to pass, got %v", err)
	}

	// A field outside the subset falls through to the role check and fails.
	err = engine.RequireGuestEdit(actor, table, nil, assignment, []GuestField{FieldDisplayName, FieldBidderNumber})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}

	// Someone else's assignment never hits the self rule.
	err = engine.RequireGuestEdit(Actor{UserID: uuid.New()}, table, nil, assignment, []GuestField{FieldDisplayName})
	if pkgerrors.As(err) == nil {
		t.Fatalf("expected forbidden for stranger, got %v", err)
	}
}

func TestRequireGuestRemoval_CaptainRestriction(t *testing.T) {
	engine := NewEngine()
	table := testTable(uuid.New(), enums.TableTypeCaptainPAYG)
	captain := uuid.New()
	grants := []models.TableUserRole{grant(table, captain, enums.TableRoleCaptain)}
	actor := Actor{UserID: captain}

	guest := uuid.New()
	assignment := &models.GuestAssignment{ID: uuid.New(), TableID: &table.ID, OrderID: uuid.New(), UserID: guest}

	// Guest paid for by someone else: captain may remove.
	hostOrder := &models.Order{ID: assignment.OrderID, UserID: uuid.New(), Status: enums.OrderStatusCompleted}
	if err := engine.RequireGuestRemoval(actor, table, grants, assignment, hostOrder); err != nil {
		t.Fatalf("expected removal to pass, got %v", err)
	}

	// Self-paid guest: captain is refused.
	selfPaid := &models.Order{ID: assignment.OrderID, UserID: guest, Status: enums.OrderStatusCompleted}
	err := engine.RequireGuestRemoval(actor, table, grants, assignment, selfPaid)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}

	// The guest themselves may.
	if err := engine.RequireGuestRemoval(Actor{UserID: guest}, table, grants, assignment, selfPaid); err != nil {
		t.Fatalf("expected self removal to pass, got %v", err)
	}

	// An owner may.
	if err := engine.RequireGuestRemoval(Actor{UserID: table.OwnerUserID}, table, grants, assignment, selfPaid); err != nil {
		t.Fatalf("expected owner removal to pass, got %v", err)
	}

	// An admin may.
	if err := engine.RequireGuestRemoval(Actor{UserID: uuid.New(), IsAdmin: true}, table, grants, assignment, selfPaid); err != nil {
		t.Fatalf("expected admin removal to pass, got %v", err)
	}
}
