package tables

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
	NextTableCode(ctx context.Context, tx *gorm.DB, organizationID uuid.UUID, at time.Time) (string, error)
}

// Service owns table lifecycle and role management.
type Service interface {
	Create(ctx context.Context, input CreateInput, actor permissions.Actor) (*models.Table, error)
	Get(ctx context.Context, tableID uuid.UUID, actor permissions.Actor) (*TableView, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Table, error)
	Update(ctx context.Context, tableID uuid.UUID, input UpdateInput, actor permissions.Actor) (*models.Table, error)
	Delete(ctx context.Context, tableID uuid.UUID, actor permissions.Actor) error
	GrantRole(ctx context.Context, input GrantRoleInput, actor permissions.Actor) error
	RevokeRole(ctx context.Context, tableID, userID uuid.UUID, actor permissions.Actor) error
	ListRoles(ctx context.Context, tableID uuid.UUID, actor permissions.Actor) ([]models.TableUserRole, error)
}

// CreateInput carries the fields for a new table.
type CreateInput struct {
	EventID         uuid.UUID
	OwnerUserID     uuid.UUID
	Type            enums.TableType
	Capacity        int
	Name            *string
	SeatPriceCents  *int64
	TotalPriceCents *int64
}

// UpdateInput is a closed set of mutable table fields. Nil pointers leave a
// field untouched.
type UpdateInput struct {
	Name            *string
	SeatPriceCents  *int64
	TotalPriceCents *int64
	Status          *enums.TableStatus
	Capacity        *int
	DisplayNumber   *string
}

// GrantRoleInput grants or replaces a role on a table.
type GrantRoleInput struct {
	TableID uuid.UUID
	UserID  uuid.UUID
	Role    enums.TableRole
}

// TableView is a table plus its live seat counts.
type TableView struct {
	Table          models.Table `json:"table"`
	AvailableSeats int          `json:"available_seats"`
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
		return nil, errors.New("tables service requires all dependencies")
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

func (s *service) Create(ctx context.Context, input CreateInput, actor permissions.Actor) (*models.Table, error) {
	if input.EventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid table type")
	}
	if input.Capacity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "capacity must be positive")
	}

	owner := input.OwnerUserID
	if owner == uuid.Nil {
		owner = actor.UserID
	}
	// Only admins may create tables owned by someone else.
	if owner != actor.UserID && !actor.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot create a table for another owner")
	}

	event, err := s.repo.FindEvent(ctx, input.EventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading event")
	}

	var table *models.Table
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		code, err := s.codes.NextTableCode(ctx, tx, event.OrganizationID, time.Now().UTC())
		if err != nil {
			return err
		}
		table = &models.Table{
			ID:              uuid.New(),
			EventID:         input.EventID,
			OwnerUserID:     owner,
			Type:            input.Type,
			Status:          enums.TableStatusActive,
			Capacity:        input.Capacity,
			Name:            input.Name,
			SeatPriceCents:  input.SeatPriceCents,
			TotalPriceCents: input.TotalPriceCents,
			Code:            code,
		}
		if _, err := s.repo.WithTx(tx).Create(ctx, table); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating table")
		}
		if err := s.audit.Record(ctx, tx, audit.Entry{
			OrganizationID: event.OrganizationID,
			EventID:        &event.ID,
			ActorUserID:    actor.UserID,
			Action:         enums.AuditTableCreated,
			EntityType:     "table",
			EntityID:       table.ID,
			Metadata:       map[string]any{"code": code, "capacity": table.Capacity},
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTableCreated,
			AggregateType: enums.AggregateTable,
			AggregateID:   table.ID,
			Actor:         actorRef(actor),
			Data: payloads.TableCreatedEvent{
				TableID:     table.ID,
				EventID:     table.EventID,
				OwnerUserID: table.OwnerUserID,
				Type:        table.Type,
				Capacity:    table.Capacity,
				Code:        table.Code,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return table, nil
}

func (s *service) Get(ctx context.Context, tableID uuid.UUID, actor permissions.Actor) (*TableView, error) {
	table, grants, err := s.loadTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if err := s.perms.Require(actor, table, grants, permissions.CapabilityView); err != nil {
		return nil, err
	}
	available, err := s.alloc.AvailableSeats(ctx, s.db, tableID)
	if err != nil {
		return nil, err
	}
	return &TableView{Table: *table, AvailableSeats: available}, nil
}

func (s *service) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Table, error) {
	if eventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}
	tables, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing tables")
	}
	return tables, nil
}

func (s *service) Update(ctx context.Context, tableID uuid.UUID, input UpdateInput, actor permissions.Actor) (*models.Table, error) {
	table, grants, err := s.loadTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if err := s.perms.Require(actor, table, grants, permissions.CapabilityEdit); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.SeatPriceCents != nil {
		updates["seat_price_cents"] = *input.SeatPriceCents
	}
	if input.TotalPriceCents != nil {
		updates["total_price_cents"] = *input.TotalPriceCents
	}
	if input.DisplayNumber != nil {
		updates["display_number"] = *input.DisplayNumber
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid table status")
		}
		updates["status"] = *input.Status
	}
	if len(updates) == 0 && input.Capacity == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	event, err := s.repo.FindEvent(ctx, table.EventID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading event")
	}

	var updated *models.Table
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if input.Capacity != nil {
			if *input.Capacity < 1 {
				return pkgerrors.New(pkgerrors.CodeValidation, "capacity must be positive")
			}
			// A capacity decrease must not strand seats already sold.
			available, err := s.alloc.AvailableSeats(ctx, tx, tableID)
			if err != nil {
				return err
			}
			consumed := table.Capacity - available
			if *input.Capacity < consumed {
				return pkgerrors.New(pkgerrors.CodeCapacityExceeded, "capacity below seats already sold").
					WithDetails(allocation.CapacityDetails{TableID: tableID, Requested: *input.Capacity, Available: consumed})
			}
			updates["capacity"] = *input.Capacity
		}
		if err := repo.Update(ctx, tableID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating table")
		}
		fresh, err := repo.FindByID(ctx, tableID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reloading table")
		}
		updated = fresh
		if err := s.audit.Record(ctx, tx, audit.Entry{
			OrganizationID: event.OrganizationID,
			EventID:        &event.ID,
			ActorUserID:    actor.UserID,
			Action:         enums.AuditTableUpdated,
			EntityType:     "table",
			EntityID:       tableID,
			Metadata:       updates,
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTableUpdated,
			AggregateType: enums.AggregateTable,
			AggregateID:   tableID,
			Actor:         actorRef(actor),
			Data: payloads.TableUpdatedEvent{
				TableID: tableID,
				EventID: table.EventID,
				Status:  fresh.Status,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, tableID uuid.UUID, actor permissions.Actor) error {
	table, grants, err := s.loadTable(ctx, tableID)
	if err != nil {
		return err
	}
	if err := s.perms.Require(actor, table, grants, permissions.CapabilityDelete); err != nil {
		return err
	}

	event, err := s.repo.FindEvent(ctx, table.EventID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading event")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		// Role grants go with the table. Orders are never touched: the
		// schema detaches them (table_id set null) so the purchase trail
		// outlives the seating chart.
		if err := repo.DeleteRolesForTable(ctx, tableID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "removing role grants")
		}
		if err := repo.Delete(ctx, tableID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting table")
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			OrganizationID: event.OrganizationID,
			EventID:        &event.ID,
			ActorUserID:    actor.UserID,
			Action:         enums.AuditTableDeleted,
			EntityType:     "table",
			EntityID:       tableID,
		})
	})
}

func (s *service) GrantRole(ctx context.Context, input GrantRoleInput, actor permissions.Actor) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	table, grants, err := s.loadTable(ctx, input.TableID)
	if err != nil {
		return err
	}
	if err := s.perms.Require(actor, table, grants, permissions.CapabilityManageRoles); err != nil {
		return err
	}

	event, err := s.repo.FindEvent(ctx, table.EventID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading event")
	}

	grantedBy := actor.UserID
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		grant := &models.TableUserRole{
			ID:              uuid.New(),
			TableID:         input.TableID,
			UserID:          input.UserID,
			Role:            input.Role,
			GrantedByUserID: &grantedBy,
		}
		if err := s.repo.WithTx(tx).UpsertRole(ctx, grant); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "granting role")
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			OrganizationID: event.OrganizationID,
			EventID:        &event.ID,
			ActorUserID:    actor.UserID,
			Action:         enums.AuditRoleGranted,
			EntityType:     "table_user_role",
			EntityID:       input.TableID,
			Metadata:       map[string]any{"user_id": input.UserID, "role": input.Role},
		})
	})
}

func (s *service) RevokeRole(ctx context.Context, tableID, userID uuid.UUID, actor permissions.Actor) error {
	table, grants, err := s.loadTable(ctx, tableID)
	if err != nil {
		return err
	}
	if err := s.perms.Require(actor, table, grants, permissions.CapabilityManageRoles); err != nil {
		return err
	}

	event, err := s.repo.FindEvent(ctx, table.EventID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading event")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).DeleteRole(ctx, tableID, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "role grant not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoking role")
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			OrganizationID: event.OrganizationID,
			EventID:        &event.ID,
			ActorUserID:    actor.UserID,
			Action:         enums.AuditRoleRevoked,
			EntityType:     "table_user_role",
			EntityID:       tableID,
			Metadata:       map[string]any{"user_id": userID},
		})
	})
}

func (s *service) ListRoles(ctx context.Context, tableID uuid.UUID, actor permissions.Actor) ([]models.TableUserRole, error) {
	table, grants, err := s.loadTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if err := s.perms.Require(actor, table, grants, permissions.CapabilityView); err != nil {
		return nil, err
	}
	return grants, nil
}

func (s *service) loadTable(ctx context.Context, tableID uuid.UUID) (*models.Table, []models.TableUserRole, error) {
	if tableID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "table id required")
	}
	table, err := s.repo.FindByID(ctx, tableID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "table not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading table")
	}
	grants, err := s.repo.ListRoles(ctx, tableID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading role grants")
	}
	return table, grants, nil
}

func actorRef(actor permissions.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: actor.UserID, IsAdmin: actor.IsAdmin}
}
