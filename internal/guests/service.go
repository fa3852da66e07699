package guests

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jkhalligan/gala-ticket-platform/internal/allocation"
	"github.com/jkhalligan/gala-ticket-platform/internal/audit"
	"github.com/jkhalligan/gala-ticket-platform/internal/permissions"
	"github.com/jkhalligan/gala-ticket-platform/pkg/db/models"
	"github.com/jkhalligan/gala-ticket-platform/pkg/enums"
	pkgerrors "github.com/jkhalligan/gala-ticket-platform/pkg/errors"
	"github.com/jkhalligan/gala-ticket-platform/pkg/logger"
	"github.com/jkhalligan/gala-ticket-platform/pkg/outbox"
	"github.com/jkhalligan/gala-ticket-platform/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type auditRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry audit.Entry) error
}

type codeGenerator interface {
	NextGuestCode(ctx context.Context, tx *gorm.DB, organizationID uuid.UUID) (string, error)
}

// Service owns the guest-assignment lifecycle: naming a seat occupant,
// editing them, removing them, and moving seats between tables or people.
type Service interface {
	Add(ctx context.Context, input AddInput, actor permissions.Actor) (*models.GuestAssignment, error)
	Get(ctx context.Context, assignmentID uuid.UUID, actor permissions.Actor) (*models.GuestAssignment, error)
	ListByTable(ctx context.Context, tableID uuid.UUID, actor permissions.Actor) ([]models.GuestAssignment, error)
	Update(ctx context.Context, assignmentID uuid.UUID, input UpdateInput, actor permissions.Actor) (*models.GuestAssignment, error)
	Remove(ctx context.Context, assignmentID uuid.UUID, actor permissions.Actor) error
	Reassign(ctx context.Context, assignmentID, newTableID uuid.UUID, actor permissions.Actor) (*models.GuestAssignment, error)
	Transfer(ctx context.Context, assignmentID, newUserID uuid.UUID, actor permissions.Actor) (*models.GuestAssignment, error)
	CheckIn(ctx context.Context, assignmentID uuid.UUID, actor permissions.Actor) (*models.GuestAssignment, error)
	CheckInByRefCode(ctx context.Context, refCode string, actor permissions.Actor) (*models.GuestAssignment, error)
}

// AddInput names a guest for one placeholder seat of a completed order.
type AddInput struct {
	OrderID     uuid.UUID
	TableID     *uuid.UUID
	GuestUserID uuid.UUID
	DisplayName *string
	Dietary     *string
}

// UpdateInput is the closed set of editable assignment fields. Nil pointers
// leave a field untouched.
type UpdateInput struct {
	DisplayName       *string
	Dietary           *string
	BidderNumber      *int
	AuctionRegistered *bool
}

type service struct {
	db     *gorm.DB
	repo   Repository
	tx     txRunner
	perms  *permissions.Engine
	alloc  *allocation.Allocator
	codes  codeGenerator
	audit  auditRecorder
	outbox outboxPublisher
	logg   *logger.Logger
}

func NewService(db *gorm.DB, repo Repository, tx txRunner, perms *permissions.Engine, alloc *allocation.Allocator, codes codeGenerator, auditRec auditRecorder, outboxSvc outboxPublisher, logg *logger.Logger) (Service, error) {
	if db == nil || repo == nil || tx == nil || perms == nil || alloc == nil || codes == nil || auditRec == nil || outboxSvc == nil {
		return nil, errors.New("guests service requires all dependencies")
	}
	return &service{
		db:     db,
		repo:   repo,
		tx:     tx,
		perms:  perms,
		alloc:  alloc,
		codes:  codes,
		audit:  auditRec,
		outbox: outboxSvc,
		logg:   logg,
	}, nil
}

func (s *service) Add(ctx context.Context, input AddInput, actor permissions.Actor) (*models.GuestAssignment, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.GuestUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest user id required")
	}

	order, err := s.findOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not completed")
	}

	tableID := input.TableID
	if tableID == nil {
		tableID = order.TableID
	}

	// The buyer may name guests on their own order; everyone else needs the
	// add_guest capability on the table.
	if actor.UserID != order.UserID {
		if tableID == nil {
			if !actor.IsAdmin {
				return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer may add guests to an unseated order")
			}
		} else {
			table, grants, err := s.loadTable(ctx, *tableID)
			if err != nil {
				return nil, err
			}
			if err := s.perms.Require(actor, table, grants, permissions.CapabilityAddGuest); err != nil {
				return nil, err
			}
		}
	}

	product, err := s.repo.FindProduct(ctx, order.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
	}
	event, err := s.repo.FindEvent(ctx, order.EventID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading event")
	}

	var assignment *models.GuestAssignment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		// Placeholder count is re-derived inside the transaction so two
		// concurrent adds cannot both claim the last unnamed seat.
		placeholders, err := s.alloc.PlaceholderSeats(ctx, tx, order)
		if err != nil {
			return err
		}
		if placeholders < 1 {
			return pkgerrors.New(pkgerrors.CodeCapacityExceeded, "no placeholder seats left on order")
		}
		if tableID != nil {
			taken, err := repo.ExistsAtTable(ctx, *tableID, input.GuestUserID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking existing assignment")
			}
			if taken {
				return pkgerrors.New(pkgerrors.CodeDuplicateAssignment, "guest already assigned at this table")
			}
		}
		refCode, err := s.codes.NextGuestCode(ctx, tx, event.OrganizationID)
		if err != nil {
			return err
		}
		assignment = &models.GuestAssignment{
			ID:           uuid.New(),
			EventID:      order.EventID,
			TableID:      tableID,
			OrderID:      order.ID,
			UserID:       input.GuestUserID,
			DisplayName:  input.DisplayName,
			Dietary:      input.Dietary,
			TierSnapshot: product.Tier,
			RefCode:      refCode,
		}
		if _, err := repo.Create(ctx, assignment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating assignment")
		}
		if err := s.audit.Record(ctx, tx, audit.Entry{
			OrganizationID: event.OrganizationID,
			EventID:        &event.ID,
			ActorUserID:    actor.UserID,
			Action:         enums.AuditGuestAdded,
			EntityType:     "guest_assignment",
			EntityID:       assignment.ID,
			Metadata:       map[string]any{"order_id": order.ID, "guest_user_id": input.GuestUserID, "ref_code": refCode},
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventGuestAssigned,
			AggregateType: enums.AggregateGuestAssignment,
			AggregateID:   assignment.ID,
			Actor:         actorRef(actor),
			Data: payloads.GuestAssignedEvent{
				AssignmentID: assignment.ID,
				EventID:      assignment.EventID,
				TableID:      assignment.TableID,
				OrderID:      assignment.OrderID,
				GuestUserID:  assignment.UserID,
				RefCode:      assignment.RefCode,
				Tier:         assignment.TierSnapshot,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

func (s *service) Get(ctx context.Context, assignmentID uuid.UUID, actor permissions.Actor) (*models.GuestAssignment, error) {
	assignment, err := s.findAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if actor.UserID == assignment.UserID || actor.IsAdmin {
		return assignment, nil
	}
	if assignment.TableID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "missing view permission")
	}
	table, grants, err := s.loadTable(ctx, *assignment.TableID)
	if err != nil {
		return nil, err
	}
	if err := s.perms.Require(actor, table, grants, permissions.CapabilityView); err != nil {
		return nil, err
	}
	return assignment, nil
}

func (s *service) ListByTable(ctx context.Context, tableID uuid.UUID, actor permissions.Actor) ([]models.GuestAssignment, error) {
	table, grants, err := s.loadTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if err := s.perms.Require(actor, table, grants, permissions.CapabilityView); err != nil {
		return nil, err
	}
	assignments, err := s.repo.ListByTable(ctx, tableID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing assignments")
	}
	return assignments, nil
}

func (s *service) Update(ctx context.Context, assignmentID uuid.UUID, input UpdateInput, actor permissions.Actor) (*models.GuestAssignment, error) {
	assignment, err := s.findAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	var fields []permissions.GuestField
	if input.DisplayName != nil {
		updates["display_name"] = *input.DisplayName
		fields = append(fields, permissions.FieldDisplayName)
	}
	if input.Dietary != nil {
		updates["dietary"] = *input.Dietary
		fields = append(fields, permissions.FieldDietary)
	}
	if input.BidderNumber != nil {
		updates["bidder_number"] = *input.BidderNumber
		fields = append(fields, permissions.FieldBidderNumber)
	}
	if input.AuctionRegistered != nil {
		updates["auction_registered"] = *input.AuctionRegistered
		fields = append(fields, permissions.FieldAuctionFlag)
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	table, grants, err := s.tableForAssignment(ctx, assignment)
	if err != nil {
		return nil, err
	}
	if err := s.perms.RequireGuestEdit(actor, table, grants, assignment, fields); err != nil {
		return nil, err
	}

	event, err := s.repo.FindEvent(ctx, assignment.EventID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading event")
	}

	var updated *models.GuestAssignment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Update(ctx, assignmentID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating assignment")
		}
		fresh, err := repo.FindByID(ctx, assignmentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reloading assignment")
		}
		updated = fresh
		return s.audit.Record(ctx, tx, audit.Entry{
			OrganizationID: event.OrganizationID,
			EventID:        &event.ID,
			ActorUserID:    actor.UserID,
			Action:         enums.AuditGuestUpdated,
			EntityType:     "guest_assignment",
			EntityID:       assignmentID,
			Metadata:       updates,
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Remove(ctx context.Context, assignmentID uuid.UUID, actor permissions.Actor) error {
	assignment, err := s.findAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	order, err := s.findOrder(ctx, assignment.OrderID)
	if err != nil {
		return err
	}
	table, grants, err := s.tableForAssignment(ctx, assignment)
	if err != nil {
		return err
	}
	if err := s.perms.RequireGuestRemoval(actor, table, grants, assignment, order); err != nil {
		return err
	}
	// Removing a self-paid guest silently loses a paid seat: the order keeps
	// its amount but the buyer no longer sits anywhere. Require a refund (or
	// an admin) first. Other-paid removals just reopen a placeholder on a
	// still-intact order, so money is never lost.
	if !actor.IsAdmin &&
		order.Status == enums.OrderStatusCompleted &&
		order.AmountCents > 0 &&
		order.UserID == assignment.UserID {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "paid seat must be refunded before removal")
	}

	event, err := s.repo.FindEvent(ctx, assignment.EventID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading event")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Delete(ctx, assignmentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "removing assignment")
		}
		if err := s.audit.Record(ctx, tx, audit.Entry{
			OrganizationID: event.OrganizationID,
			EventID:        &event.ID,
			ActorUserID:    actor.UserID,
			Action:         enums.AuditGuestRemoved,
			EntityType:     "guest_assignment",
			EntityID:       assignmentID,
			Metadata:       map[string]any{"order_id": assignment.OrderID, "guest_user_id": assignment.UserID},
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventGuestRemoved,
			AggregateType: enums.AggregateGuestAssignment,
			AggregateID:   assignmentID,
			Actor:         actorRef(actor),
			Data: payloads.GuestRemovedEvent{
				AssignmentID: assignmentID,
				EventID:      assignment.EventID,
				TableID:      assignment.TableID,
				OrderID:      assignment.OrderID,
				GuestUserID:  assignment.UserID,
				RemovedAt:    time.Now().UTC(),
			},
		})
	})
}

func (s *service) Reassign(ctx context.Context, assignmentID, newTableID uuid.UUID, actor permissions.Actor) (*models.GuestAssignment, error) {
	if newTableID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target table id required")
	}
	// Cross-table moves bypass the per-table role model entirely, so they
	// stay admin-only.
	if !actor.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cross-table reassignment is admin-only")
	}
	assignment, err := s.findAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.TableID != nil && *assignment.TableID == newTableID {
		return assignment, nil
	}
	target, err := s.repo.FindTable(ctx, newTableID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "target table not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading target table")
	}
	if target.Status != enums.TableStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "target table is not active")
	}

	event, err := s.repo.FindEvent(ctx, assignment.EventID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading event")
	}

	fromTableID := assignment.TableID
	var updated *models.GuestAssignment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		// Physical seating is bounded by chair count, independent of which
		// order paid for the seat.
		seated, err := repo.CountAtTable(ctx, newTableID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "counting target occupants")
		}
		if int(seated) >= target.Capacity {
			return pkgerrors.New(pkgerrors.CodeCapacityExceeded, "target table is full").
				WithDetails(allocation.CapacityDetails{TableID: newTableID, Requested: 1, Available: target.Capacity - int(seated)})
		}
		taken, err := repo.ExistsAtTable(ctx, newTableID, assignment.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking target assignment")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeDuplicateAssignment, "guest already assigned at target table")
		}
		if err := repo.Update(ctx, assignmentID, map[string]any{"table_id": newTableID}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "moving assignment")
		}
		fresh, err := repo.FindByID(ctx, assignmentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reloading assignment")
		}
		updated = fresh
		if err := s.audit.Record(ctx, tx, audit.Entry{
			OrganizationID: event.OrganizationID,
			EventID:        &event.ID,
			ActorUserID:    actor.UserID,
			Action:         enums.AuditGuestReassigned,
			EntityType:     "guest_assignment",
			EntityID:       assignmentID,
			Metadata:       map[string]any{"from_table_id": fromTableID, "to_table_id": newTableID},
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventGuestReassigned,
			AggregateType: enums.AggregateGuestAssignment,
			AggregateID:   assignmentID,
			Actor:         actorRef(actor),
			Data: payloads.GuestReassignedEvent{
				AssignmentID: assignmentID,
				EventID:      assignment.EventID,
				FromTableID:  fromTableID,
				ToTableID:    newTableID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Transfer(ctx context.Context, assignmentID, newUserID uuid.UUID, actor permissions.Actor) (*models.GuestAssignment, error) {
	if newUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "new occupant user id required")
	}
	assignment, err := s.findAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.UserID == newUserID {
		return assignment, nil
	}
	// The current occupant may hand their seat to someone else; anyone else
	// needs edit_guest on the table.
	if actor.UserID != assignment.UserID && !actor.IsAdmin {
		table, grants, err := s.tableForAssignment(ctx, assignment)
		if err != nil {
			return nil, err
		}
		if err := s.perms.Require(actor, table, grants, permissions.CapabilityEditGuest); err != nil {
			return nil, err
		}
	}

	event, err := s.repo.FindEvent(ctx, assignment.EventID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading event")
	}

	fromUserID := assignment.UserID
	var updated *models.GuestAssignment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if assignment.TableID != nil {
			taken, err := repo.ExistsAtTable(ctx, *assignment.TableID, newUserID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking target occupant")
			}
			if taken {
				return pkgerrors.New(pkgerrors.CodeDuplicateAssignment, "new occupant already assigned at this table")
			}
		}
		// The order and reference code stay put; only the occupant changes.
		// A transferred seat also sheds its check-in state.
		if err := repo.Update(ctx, assignmentID, map[string]any{"user_id": newUserID, "checked_in_at": nil}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transferring assignment")
		}
		fresh, err := repo.FindByID(ctx, assignmentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reloading assignment")
		}
		updated = fresh
		if err := s.audit.Record(ctx, tx, audit.Entry{
			OrganizationID: event.OrganizationID,
			EventID:        &event.ID,
			ActorUserID:    actor.UserID,
			Action:         enums.AuditTicketTransferred,
			EntityType:     "guest_assignment",
			EntityID:       assignmentID,
			Metadata:       map[string]any{"from_user_id": fromUserID, "to_user_id": newUserID, "ref_code": assignment.RefCode},
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTicketTransfer,
			AggregateType: enums.AggregateGuestAssignment,
			AggregateID:   assignmentID,
			Actor:         actorRef(actor),
			Data: payloads.TicketTransferredEvent{
				AssignmentID:  assignmentID,
				EventID:       assignment.EventID,
				FromUserID:    fromUserID,
				ToUserID:      newUserID,
				RefCode:       assignment.RefCode,
				TransferredAt: time.Now().UTC(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) CheckIn(ctx context.Context, assignmentID uuid.UUID, actor permissions.Actor) (*models.GuestAssignment, error) {
	assignment, err := s.findAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	return s.checkIn(ctx, assignment, actor)
}

func (s *service) CheckInByRefCode(ctx context.Context, refCode string, actor permissions.Actor) (*models.GuestAssignment, error) {
	if refCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ref code required")
	}
	assignment, err := s.repo.FindByRefCode(ctx, refCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading assignment")
	}
	return s.checkIn(ctx, assignment, actor)
}

func (s *service) checkIn(ctx context.Context, assignment *models.GuestAssignment, actor permissions.Actor) (*models.GuestAssignment, error) {
	if assignment.CheckedInAt != nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "guest already checked in")
	}
	// Door staff hold edit_guest via the STAFF role.
	if actor.UserID != assignment.UserID && !actor.IsAdmin {
		table, grants, err := s.tableForAssignment(ctx, assignment)
		if err != nil {
			return nil, err
		}
		if err := s.perms.Require(actor, table, grants, permissions.CapabilityEditGuest); err != nil {
			return nil, err
		}
	}

	event, err := s.repo.FindEvent(ctx, assignment.EventID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading event")
	}

	now := time.Now().UTC()
	var updated *models.GuestAssignment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Update(ctx, assignment.ID, map[string]any{"checked_in_at": now}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording check-in")
		}
		fresh, err := repo.FindByID(ctx, assignment.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reloading assignment")
		}
		updated = fresh
		if err := s.audit.Record(ctx, tx, audit.Entry{
			OrganizationID: event.OrganizationID,
			EventID:        &event.ID,
			ActorUserID:    actor.UserID,
			Action:         enums.AuditGuestCheckedIn,
			EntityType:     "guest_assignment",
			EntityID:       assignment.ID,
			Metadata:       map[string]any{"ref_code": assignment.RefCode},
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventGuestCheckedIn,
			AggregateType: enums.AggregateGuestAssignment,
			AggregateID:   assignment.ID,
			Actor:         actorRef(actor),
			Data: payloads.GuestCheckedInEvent{
				AssignmentID: assignment.ID,
				EventID:      assignment.EventID,
				CheckedInAt:  now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) findAssignment(ctx context.Context, id uuid.UUID) (*models.GuestAssignment, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assignment id required")
	}
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading assignment")
	}
	return assignment, nil
}

func (s *service) findOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrder(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	return order, nil
}

func (s *service) loadTable(ctx context.Context, tableID uuid.UUID) (*models.Table, []models.TableUserRole, error) {
	table, err := s.repo.FindTable(ctx, tableID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "table not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading table")
	}
	grants, err := s.repo.ListTableRoles(ctx, tableID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading role grants")
	}
	return table, grants, nil
}

// tableForAssignment tolerates unseated assignments: the permission engine
// treats a nil table as "no role", leaving self and admin paths intact.
func (s *service) tableForAssignment(ctx context.Context, assignment *models.GuestAssignment) (*models.Table, []models.TableUserRole, error) {
	if assignment.TableID == nil {
		return nil, nil, nil
	}
	return s.loadTable(ctx, *assignment.TableID)
}

func actorRef(actor permissions.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: actor.UserID, IsAdmin: actor.IsAdmin}
}
