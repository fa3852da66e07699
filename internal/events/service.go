package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jkhalligan/gala-ticket-platform/internal/audit"
	"github.com/jkhalligan/gala-ticket-platform/internal/permissions"
	"github.com/jkhalligan/gala-ticket-platform/pkg/db/models"
	"github.com/jkhalligan/gala-ticket-platform/pkg/enums"
	pkgerrors "github.com/jkhalligan/gala-ticket-platform/pkg/errors"
	"github.com/jkhalligan/gala-ticket-platform/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type auditRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry audit.Entry) error
}

// Service owns event setup and the product catalog. Event mutation is
// admin-only; everything else in the system hangs off these rows.
type Service interface {
	Create(ctx context.Context, input CreateInput, actor permissions.Actor) (*models.Event, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Event, error)
	ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]models.Event, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput, actor permissions.Actor) (*models.Event, error)
	// Delete refuses while any order references the event.
	Delete(ctx context.Context, id uuid.UUID, actor permissions.Actor) error
	CreateProduct(ctx context.Context, input ProductInput, actor permissions.Actor) (*models.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, eventID uuid.UUID) ([]models.Product, error)
}

// CreateInput carries the fields for a new event.
type CreateInput struct {
	OrganizationID uuid.UUID
	Name           string
	StartsAt       time.Time
	Venue          *string
}

// UpdateInput is the closed set of administrative fields that stay mutable
// after guests exist.
type UpdateInput struct {
	Name     *string
	StartsAt *time.Time
	Venue    *string
}

// ProductInput carries the fields for a new seat product.
type ProductInput struct {
	EventID        uuid.UUID
	Name           string
	Tier           string
	BasePriceCents int64
	Commitment     bool
}

type service struct {
	repo  Repository
	tx    txRunner
	audit auditRecorder
	logg  *logger.Logger
}

func NewService(repo Repository, tx txRunner, auditRec auditRecorder, logg *logger.Logger) (Service, error) {
	if repo == nil || tx == nil || auditRec == nil {
		return nil, errors.New("events service requires all dependencies")
	}
	return &service{repo: repo, tx: tx, audit: auditRec, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput, actor permissions.Actor) (*models.Event, error) {
	if !actor.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "event creation is admin-only")
	}
	if input.OrganizationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event name required")
	}
	if input.StartsAt.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event start required")
	}

	event := &models.Event{
		ID:             uuid.New(),
		OrganizationID: input.OrganizationID,
		Name:           name,
		StartsAt:       input.StartsAt,
		Venue:          input.Venue,
	}
	created, err := s.repo.Create(ctx, event)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating event")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return s.find(ctx, id)
}

func (s *service) ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]models.Event, error) {
	if organizationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id required")
	}
	events, err := s.repo.ListByOrganization(ctx, organizationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing events")
	}
	return events, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput, actor permissions.Actor) (*models.Event, error) {
	if !actor.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "event update is admin-only")
	}
	event, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "event name cannot be empty")
		}
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.StartsAt != nil {
		updates["starts_at"] = *input.StartsAt
	}
	if input.Venue != nil {
		updates["venue"] = *input.Venue
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Update(ctx, id, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating event")
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			OrganizationID: event.OrganizationID,
			EventID:        &event.ID,
			ActorUserID:    actor.UserID,
			Action:         enums.AuditEventUpdated,
			EntityType:     "event",
			EntityID:       id,
			Metadata:       updates,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.find(ctx, id)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID, actor permissions.Actor) error {
	if !actor.IsAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "event deletion is admin-only")
	}
	event, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		count, err := repo.CountOrders(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "counting event orders")
		}
		if count > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "event has orders and cannot be deleted")
		}
		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting event")
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			OrganizationID: event.OrganizationID,
			ActorUserID:    actor.UserID,
			Action:         enums.AuditEventDeleted,
			EntityType:     "event",
			EntityID:       id,
		})
	})
}

func (s *service) CreateProduct(ctx context.Context, input ProductInput, actor permissions.Actor) (*models.Product, error) {
	if !actor.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product creation is admin-only")
	}
	if input.EventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}
	name := strings.TrimSpace(input.Name)
	tier := strings.TrimSpace(input.Tier)
	if name == "" || tier == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name and tier required")
	}
	if input.BasePriceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "base price must not be negative")
	}
	if _, err := s.find(ctx, input.EventID); err != nil {
		return nil, err
	}

	product := &models.Product{
		ID:             uuid.New(),
		EventID:        input.EventID,
		Name:           name,
		Tier:           tier,
		BasePriceCents: input.BasePriceCents,
		Commitment:     input.Commitment,
	}
	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating product")
	}
	return created, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
	}
	return product, nil
}

func (s *service) ListProducts(ctx context.Context, eventID uuid.UUID) ([]models.Product, error) {
	if eventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}
	products, err := s.repo.ListProducts(ctx, eventID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing products")
	}
	return products, nil
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading event")
	}
	return event, nil
}
