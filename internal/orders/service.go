package orders

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jkhalligan/gala-ticket-platform/internal/allocation"
	"github.com/jkhalligan/gala-ticket-platform/internal/audit"
	"github.com/jkhalligan/gala-ticket-platform/internal/permissions"
	"github.com/jkhalligan/gala-ticket-platform/internal/pricing"
	"github.com/jkhalligan/gala-ticket-platform/internal/promos"
	"github.com/jkhalligan/gala-ticket-platform/pkg/config"
	"github.com/jkhalligan/gala-ticket-platform/pkg/db/models"
	"github.com/jkhalligan/gala-ticket-platform/pkg/enums"
	pkgerrors "github.com/jkhalligan/gala-ticket-platform/pkg/errors"
	"github.com/jkhalligan/gala-ticket-platform/pkg/logger"
	"github.com/jkhalligan/gala-ticket-platform/pkg/outbox"
	"github.com/jkhalligan/gala-ticket-platform/pkg/outbox/payloads"
	"github.com/jkhalligan/gala-ticket-platform/pkg/square"
)

// webhookConsumer namespaces gateway confirmation IDs in the idempotency log.
const webhookConsumer = "payments-webhook"

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

type paymentGateway interface {
	CreateCharge(ctx context.Context, params square.ChargeCreateParams) (*square.ChargeResult, error)
	CreateRefund(ctx context.Context, params square.RefundCreateParams) (string, error)
}

type promoEngine interface {
	Validate(ctx context.Context, eventID uuid.UUID, code string, now time.Time) (*models.PromoCode, error)
	Redeem(ctx context.Context, tx *gorm.DB, id uuid.UUID, code string) error
	Release(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type confirmationLog interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	Delete(ctx context.Context, consumer, eventID string) error
}

// Service owns the order lifecycle: checkout, gateway confirmation,
// invitations, and refunds. Every transition runs through the guarded
// status compare-and-swap in the repository.
type Service interface {
	Checkout(ctx context.Context, input CheckoutInput, actor permissions.Actor) (*CheckoutResult, error)
	ConfirmGatewayEvent(ctx context.Context, input ConfirmationInput) error
	Invite(ctx context.Context, input InviteInput, actor permissions.Actor) (*models.Order, error)
	AccessInvitation(ctx context.Context, token string) (*models.Order, error)
	PayInvitation(ctx context.Context, token string, input PayInvitationInput) (*CheckoutResult, error)
	CancelInvitation(ctx context.Context, orderID uuid.UUID, actor permissions.Actor) error
	Refund(ctx context.Context, orderID uuid.UUID, actor permissions.Actor) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID, actor permissions.Actor) (*models.Order, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID, actor permissions.Actor) ([]models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, actor permissions.Actor) ([]models.Order, error)
}

// CheckoutInput is a purchase request. PaymentSourceID may be empty for
// zero-amount orders.
type CheckoutInput struct {
	EventID         uuid.UUID
	ProductID       uuid.UUID
	TableID         *uuid.UUID
	Quantity        int
	PromoCode       *string
	PaymentSourceID string
	BuyerEmail      string
}

// ConfirmationInput is an asynchronous gateway confirmation event.
type ConfirmationInput struct {
	GatewayEventID string
	ChargeRef      string
	Succeeded      bool
}

// InviteInput creates an order awaiting payment behind a payment link.
type InviteInput struct {
	EventID       uuid.UUID
	ProductID     uuid.UUID
	TableID       *uuid.UUID
	InviteeUserID uuid.UUID
	Quantity      int
	InvitedEmail  string
}

// PayInvitationInput redeems a payment link.
type PayInvitationInput struct {
	PaymentSourceID string
	BuyerEmail      string
}

// CheckoutResult is the order plus whatever the caller needs to finish
// paying. Assignment is set only on the zero-amount fast path.
type CheckoutResult struct {
	Order        *models.Order          `json:"order"`
	Quote        pricing.Quote          `json:"quote"`
	Assignment   *models.GuestAssignment `json:"assignment,omitempty"`
	ClientSecret string                 `json:"client_secret,omitempty"`
}

// orderTransitions is the full lifecycle graph. Anything absent is invalid.
var orderTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:         {enums.OrderStatusCompleted, enums.OrderStatusCancelled},
	enums.OrderStatusAwaitingPayment: {enums.OrderStatusPending, enums.OrderStatusCompleted, enums.OrderStatusCancelled, enums.OrderStatusExpired},
	enums.OrderStatusCompleted:       {enums.OrderStatusRefunded},
}

func ensureTransition(from, to enums.OrderStatus) error {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("invalid order transition %s -> %s", from, to))
}

type service struct {
	db      *gorm.DB
	repo    Repository
	tx      txRunner
	alloc   *allocation.Allocator
	promos  promoEngine
	codes   codeGenerator
	audit   auditRecorder
	outbox  outboxPublisher
	gateway paymentGateway
	idemp   confirmationLog
	cfg     config.OrdersConfig
	logg    *logger.Logger
}

func NewService(db *gorm.DB, repo Repository, tx txRunner, alloc *allocation.Allocator, promoSvc promoEngine, codes codeGenerator, auditRec auditRecorder, outboxSvc outboxPublisher, gateway paymentGateway, idemp confirmationLog, cfg config.OrdersConfig, logg *logger.Logger) (Service, error) {
	if db == nil || repo == nil || tx == nil || alloc == nil || promoSvc == nil || codes == nil || auditRec == nil || outboxSvc == nil || gateway == nil || idemp == nil {
		return nil, errors.New("orders service requires all dependencies")
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	if cfg.InviteTTL <= 0 {
		cfg.InviteTTL = 14 * 24 * time.Hour
	}
	return &service{
		db:      db,
		repo:    repo,
		tx:      tx,
		alloc:   alloc,
		promos:  promoSvc,
		codes:   codes,
		audit:   auditRec,
		outbox:  outboxSvc,
		gateway: gateway,
		idemp:   idemp,
		cfg:     cfg,
		logg:    logg,
	}, nil
}

func (s *service) Checkout(ctx context.Context, input CheckoutInput, actor permissions.Actor) (*CheckoutResult, error) {
	event, product, table, err := s.resolvePurchase(ctx, input.EventID, input.ProductID, input.TableID, input.Quantity)
	if err != nil {
		return nil, err
	}

	var promo *models.PromoCode
	if input.PromoCode != nil && *input.PromoCode != "" {
		promo, err = s.promos.Validate(ctx, input.EventID, *input.PromoCode, time.Now().UTC())
		if err != nil {
			return nil, err
		}
	}

	quote, err := pricing.ComputePrice(product.BasePriceCents, input.Quantity, tableOverride(table), promos.Discount(promo))
	if err != nil {
		return nil, err
	}
	if quote.TotalCents > 0 && input.PaymentSourceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment source required for a paid order")
	}

	result := &CheckoutResult{Quote: quote}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if input.TableID != nil {
			if _, err := s.alloc.ReserveSeats(ctx, tx, *input.TableID, input.Quantity); err != nil {
				return err
			}
		}
		if promo != nil {
			// The validated snapshot may be stale; the redemption itself is
			// the atomic usage-cap check.
			if err := s.promos.Redeem(ctx, tx, promo.ID, promo.Code); err != nil {
				return err
			}
		}

		order := &models.Order{
			ID:            uuid.New(),
			EventID:       input.EventID,
			ProductID:     input.ProductID,
			TableID:       input.TableID,
			UserID:        actor.UserID,
			Quantity:      input.Quantity,
			AmountCents:   quote.TotalCents,
			DiscountCents: quote.DiscountCents,
			Status:        enums.OrderStatusPending,
		}
		if promo != nil {
			order.PromoCodeID = &promo.ID
		}

		if quote.TotalCents == 0 {
			now := time.Now().UTC()
			order.Status = enums.OrderStatusCompleted
			order.CompletedAt = &now
		} else {
			charge, err := s.gateway.CreateCharge(ctx, square.ChargeCreateParams{
				AmountCents: quote.TotalCents,
				Currency:    s.cfg.Currency,
				SourceID:    input.PaymentSourceID,
				ReferenceID: order.ID.String(),
				BuyerEmail:  input.BuyerEmail,
				Note:        fmt.Sprintf("%s x%d", product.Name, input.Quantity),
			})
			if err != nil {
				return err
			}
			order.ChargeRef = &charge.ChargeRef
			result.ClientSecret = charge.ClientSecret
		}

		if _, err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating order")
		}
		result.Order = order

		if err := s.audit.Record(ctx, tx, audit.Entry{
			OrganizationID: event.OrganizationID,
			EventID:        &event.ID,
			ActorUserID:    actor.UserID,
			Action:         enums.AuditOrderCreated,
			EntityType:     "order",
			EntityID:       order.ID,
			Metadata:       map[string]any{"quantity": order.Quantity, "amount_cents": order.AmountCents, "status": order.Status},
		}); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				EventID:     order.EventID,
				TableID:     order.TableID,
				BuyerUserID: order.UserID,
				Quantity:    order.Quantity,
				AmountCents: order.AmountCents,
				Status:      order.Status,
			},
		}); err != nil {
			return err
		}
		if promo != nil {
			if err := s.recordRedemption(ctx, tx, event, order, promo, quote.DiscountCents, actor); err != nil {
				return err
			}
		}
		if order.Status == enums.OrderStatusCompleted {
			assignment, err := s.completeOrder(ctx, tx, event, order, product, actor)
			if err != nil {
				return err
			}
			result.Assignment = assignment
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ConfirmGatewayEvent(ctx context.Context, input ConfirmationInput) error {
	if input.GatewayEventID == "" || input.ChargeRef == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "gateway event id and charge ref required")
	}
	// Mark first: the mark is the only state that survives a failed
	// transition, which is what makes redelivery a safe no-op.
	seen, err := s.idemp.CheckAndMarkProcessed(ctx, webhookConsumer, input.GatewayEventID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking idempotency log")
	}
	if seen {
		s.log(ctx, "gateway event already processed", map[string]any{"gateway_event_id": input.GatewayEventID})
		return nil
	}

	err = s.applyConfirmation(ctx, input)
	if err != nil {
		// Infrastructure failures unmark so the gateway's redelivery can
		// retry. So does an unknown charge ref: the webhook can outrun the
		// checkout commit that writes it. Domain conflicts keep the mark
		// because re-running cannot succeed either.
		if appErr := pkgerrors.As(err); appErr != nil && (appErr.Code() == pkgerrors.CodeDependency || appErr.Code() == pkgerrors.CodeNotFound) {
			if delErr := s.idemp.Delete(ctx, webhookConsumer, input.GatewayEventID); delErr != nil {
				s.log(ctx, "failed to unmark gateway event", map[string]any{"gateway_event_id": input.GatewayEventID, "error": delErr.Error()})
			}
		}
		return err
	}
	return nil
}

func (s *service) applyConfirmation(ctx context.Context, input ConfirmationInput) error {
	order, err := s.repo.FindByChargeRef(ctx, input.ChargeRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no order for charge ref")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}

	if !input.Succeeded {
		return s.cancelAfterGatewayFailure(ctx, order)
	}

	if err := ensureTransition(order.Status, enums.OrderStatusCompleted); err != nil {
		return err
	}
	event, err := s.repo.FindEvent(ctx, order.EventID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading event")
	}
	product, err := s.repo.FindProduct(ctx, order.ProductID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
	}

	buyer := permissions.Actor{UserID: order.UserID}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := time.Now().UTC()
		if err := repo.UpdateStatus(ctx, order.ID, order.Status, enums.OrderStatusCompleted, map[string]any{"completed_at": now}); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "completing order")
		}
		order.Status = enums.OrderStatusCompleted
		order.CompletedAt = &now
		_, err := s.completeOrder(ctx, tx, event, order, product, buyer)
		return err
	})
}

func (s *service) cancelAfterGatewayFailure(ctx context.Context, order *models.Order) error {
	if err := ensureTransition(order.Status, enums.OrderStatusCancelled); err != nil {
		return err
	}
	event, err := s.repo.FindEvent(ctx, order.EventID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading event")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateStatus(ctx, order.ID, order.Status, enums.OrderStatusCancelled, nil); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancelling order")
		}
		if order.PromoCodeID != nil {
			if err := s.promos.Release(ctx, tx, *order.PromoCodeID); err != nil {
				return err
			}
		}
		if err := s.audit.Record(ctx, tx, audit.Entry{
			OrganizationID: event.OrganizationID,
			EventID:        &event.ID,
			ActorUserID:    order.UserID,
			Action:         enums.AuditOrderCancelled,
			EntityType:     "order",
			EntityID:       order.ID,
			Metadata:       map[string]any{"reason": "gateway_declined"},
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderCancelledEvent{
				OrderID:     order.ID,
				EventID:     order.EventID,
				CancelledAt: time.Now().UTC(),
				Reason:      "gateway_declined",
			},
		})
	})
}

func (s *service) Invite(ctx context.Context, input InviteInput, actor permissions.Actor) (*models.Order, error) {
	if !actor.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "invitations are admin-only")
	}
	if input.InvitedEmail == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invited email required")
	}
	if input.InviteeUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invitee user id required")
	}
	event, product, table, err := s.resolvePurchase(ctx, input.EventID, input.ProductID, input.TableID, input.Quantity)
	if err != nil {
		return nil, err
	}

	quote, err := pricing.ComputePrice(product.BasePriceCents, input.Quantity, tableOverride(table), nil)
	if err != nil {
		return nil, err
	}
	token, err := newInviteToken()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting invite token")
	}

	expiresAt := time.Now().UTC().Add(s.cfg.InviteTTL)
	order := &models.Order{
		ID:              uuid.New(),
		EventID:         input.EventID,
		ProductID:       input.ProductID,
		TableID:         input.TableID,
		UserID:          input.InviteeUserID,
		Quantity:        input.Quantity,
		AmountCents:     quote.TotalCents,
		DiscountCents:   quote.DiscountCents,
		Status:          enums.OrderStatusAwaitingPayment,
		InvitedEmail:    &input.InvitedEmail,
		InviteToken:     &token,
		InviteExpiresAt: &expiresAt,
	}

	// Seats are not reserved yet: AWAITING_PAYMENT does not consume
	// capacity, so an unanswered invitation never blocks a sale.
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating invitation order")
		}
		if err := s.audit.Record(ctx, tx, audit.Entry{
			OrganizationID: event.OrganizationID,
			EventID:        &event.ID,
			ActorUserID:    actor.UserID,
			Action:         enums.AuditInvitationIssued,
			EntityType:     "order",
			EntityID:       order.ID,
			Metadata:       map[string]any{"invited_email": input.InvitedEmail, "expires_at": expiresAt},
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInvitationIssued,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			Data: payloads.InvitationIssuedEvent{
				OrderID:      order.ID,
				EventID:      order.EventID,
				InvitedEmail: input.InvitedEmail,
				ExpiresAt:    expiresAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) AccessInvitation(ctx context.Context, token string) (*models.Order, error) {
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invite token required")
	}
	order, err := s.repo.FindByInviteToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invitation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading invitation")
	}
	if order.Status == enums.OrderStatusAwaitingPayment &&
		order.InviteExpiresAt != nil &&
		time.Now().UTC().After(*order.InviteExpiresAt) {
		if err := s.expireInvitation(ctx, order); err != nil {
			return nil, err
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "invitation expired")
	}
	return order, nil
}

// expireInvitation applies the lazy AWAITING_PAYMENT -> EXPIRED transition.
// There is no sweeper; access past expiry is the trigger.
func (s *service) expireInvitation(ctx context.Context, order *models.Order) error {
	event, err := s.repo.FindEvent(ctx, order.EventID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading event")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdateStatus(ctx, order.ID, enums.OrderStatusAwaitingPayment, enums.OrderStatusExpired, nil); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// A concurrent access already expired it.
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expiring invitation")
		}
		if err := s.audit.Record(ctx, tx, audit.Entry{
			OrganizationID: event.OrganizationID,
			EventID:        &event.ID,
			ActorUserID:    order.UserID,
			Action:         enums.AuditOrderExpired,
			EntityType:     "order",
			EntityID:       order.ID,
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderExpired,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderExpiredEvent{
				OrderID:   order.ID,
				EventID:   order.EventID,
				ExpiredAt: time.Now().UTC(),
			},
		})
	})
}

func (s *service) PayInvitation(ctx context.Context, token string, input PayInvitationInput) (*CheckoutResult, error) {
	order, err := s.AccessInvitation(ctx, token)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusAwaitingPayment {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "invitation is no longer payable")
	}
	if order.AmountCents > 0 && input.PaymentSourceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment source required")
	}
	event, err := s.repo.FindEvent(ctx, order.EventID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading event")
	}
	product, err := s.repo.FindProduct(ctx, order.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
	}

	buyer := permissions.Actor{UserID: order.UserID}
	result := &CheckoutResult{}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		// Capacity is claimed now, not at invitation time.
		if order.TableID != nil {
			if _, err := s.alloc.ReserveSeats(ctx, tx, *order.TableID, order.Quantity); err != nil {
				return err
			}
		}
		if order.AmountCents == 0 {
			now := time.Now().UTC()
			if err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusAwaitingPayment, enums.OrderStatusCompleted, map[string]any{"completed_at": now}); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeStateConflict, "invitation already redeemed")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "completing invitation")
			}
			order.Status = enums.OrderStatusCompleted
			order.CompletedAt = &now
			assignment, err := s.completeOrder(ctx, tx, event, order, product, buyer)
			if err != nil {
				return err
			}
			result.Assignment = assignment
			return nil
		}

		charge, err := s.gateway.CreateCharge(ctx, square.ChargeCreateParams{
			AmountCents: order.AmountCents,
			Currency:    s.cfg.Currency,
			SourceID:    input.PaymentSourceID,
			ReferenceID: order.ID.String(),
			BuyerEmail:  input.BuyerEmail,
			Note:        fmt.Sprintf("%s x%d (invitation)", product.Name, order.Quantity),
		})
		if err != nil {
			return err
		}
		if err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusAwaitingPayment, enums.OrderStatusPending, map[string]any{"charge_ref": charge.ChargeRef}); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "invitation already redeemed")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marking invitation pending")
		}
		order.Status = enums.OrderStatusPending
		order.ChargeRef = &charge.ChargeRef
		result.ClientSecret = charge.ClientSecret
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Order = order
	return result, nil
}

func (s *service) CancelInvitation(ctx context.Context, orderID uuid.UUID, actor permissions.Actor) error {
	if !actor.IsAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "invitation cancel is admin-only")
	}
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if err := ensureTransition(order.Status, enums.OrderStatusCancelled); err != nil {
		return err
	}
	if order.Status != enums.OrderStatusAwaitingPayment {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only awaiting-payment orders can be cancelled here")
	}
	event, err := s.repo.FindEvent(ctx, order.EventID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading event")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdateStatus(ctx, order.ID, enums.OrderStatusAwaitingPayment, enums.OrderStatusCancelled, nil); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancelling invitation")
		}
		if err := s.audit.Record(ctx, tx, audit.Entry{
			OrganizationID: event.OrganizationID,
			EventID:        &event.ID,
			ActorUserID:    actor.UserID,
			Action:         enums.AuditOrderCancelled,
			EntityType:     "order",
			EntityID:       order.ID,
			Metadata:       map[string]any{"reason": "invitation_cancelled"},
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			Data: payloads.OrderCancelledEvent{
				OrderID:     order.ID,
				EventID:     order.EventID,
				CancelledAt: time.Now().UTC(),
				Reason:      "invitation_cancelled",
			},
		})
	})
}

func (s *service) Refund(ctx context.Context, orderID uuid.UUID, actor permissions.Actor) (*models.Order, error) {
	if !actor.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "refunds are admin-only")
	}
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := ensureTransition(order.Status, enums.OrderStatusRefunded); err != nil {
		return nil, err
	}
	event, err := s.repo.FindEvent(ctx, order.EventID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading event")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if order.ChargeRef != nil && order.AmountCents > 0 {
			refundRef, err := s.gateway.CreateRefund(ctx, square.RefundCreateParams{
				ChargeRef:   *order.ChargeRef,
				AmountCents: order.AmountCents,
				Currency:    s.cfg.Currency,
				Reason:      "admin refund",
			})
			if err != nil {
				return err
			}
			s.log(ctx, "gateway refund issued", map[string]any{"order_id": order.ID, "refund_ref": refundRef})
		}
		now := time.Now().UTC()
		if err := s.repo.WithTx(tx).UpdateStatus(ctx, order.ID, enums.OrderStatusCompleted, enums.OrderStatusRefunded, map[string]any{
			"refunded_by_user_id": actor.UserID,
			"refunded_at":         now,
		}); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refunding order")
		}
		order.Status = enums.OrderStatusRefunded
		order.RefundedByUserID = &actor.UserID
		order.RefundedAt = &now
		if err := s.audit.Record(ctx, tx, audit.Entry{
			OrganizationID: event.OrganizationID,
			EventID:        &event.ID,
			ActorUserID:    actor.UserID,
			Action:         enums.AuditOrderRefunded,
			EntityType:     "order",
			EntityID:       order.ID,
			Metadata:       map[string]any{"amount_cents": order.AmountCents},
		}); err != nil {
			return err
		}
		// Assignments stay: seat removal after a refund is its own explicit
		// operation with its own audit trail.
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderRefunded,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			Data: payloads.OrderRefundedEvent{
				OrderID:          order.ID,
				EventID:          order.EventID,
				AmountCents:      order.AmountCents,
				RefundedByUserID: actor.UserID,
				RefundedAt:       now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, actor permissions.Actor) (*models.Order, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != actor.UserID && !actor.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not your order")
	}
	return order, nil
}

func (s *service) ListByEvent(ctx context.Context, eventID uuid.UUID, actor permissions.Actor) ([]models.Order, error) {
	if !actor.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "event order listing is admin-only")
	}
	orders, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing orders")
	}
	return orders, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, actor permissions.Actor) ([]models.Order, error) {
	if userID != actor.UserID && !actor.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not your orders")
	}
	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing orders")
	}
	return orders, nil
}

// completeOrder records the completion audit, emits the completion event, and
// names the buyer on one seat unless they already hold one at the table.
func (s *service) completeOrder(ctx context.Context, tx *gorm.DB, event *models.Event, order *models.Order, product *models.Product, actor permissions.Actor) (*models.GuestAssignment, error) {
	repo := s.repo.WithTx(tx)

	var assignment *models.GuestAssignment
	seated := false
	if order.TableID != nil {
		var err error
		seated, err = repo.HasAssignmentAtTable(ctx, *order.TableID, order.UserID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking buyer seat")
		}
	}
	if !seated {
		already, err := repo.HasAssignmentForOrderUser(ctx, order.ID, order.UserID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking buyer assignment")
		}
		seated = already
	}
	if !seated {
		refCode, err := s.codes.NextGuestCode(ctx, tx, event.OrganizationID)
		if err != nil {
			return nil, err
		}
		assignment = &models.GuestAssignment{
			ID:           uuid.New(),
			EventID:      order.EventID,
			TableID:      order.TableID,
			OrderID:      order.ID,
			UserID:       order.UserID,
			TierSnapshot: product.Tier,
			RefCode:      refCode,
		}
		if err := repo.CreateAssignment(ctx, assignment); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating buyer assignment")
		}
	}

	if err := s.audit.Record(ctx, tx, audit.Entry{
		OrganizationID: event.OrganizationID,
		EventID:        &event.ID,
		ActorUserID:    actor.UserID,
		Action:         enums.AuditOrderCompleted,
		EntityType:     "order",
		EntityID:       order.ID,
		Metadata:       map[string]any{"amount_cents": order.AmountCents},
	}); err != nil {
		return nil, err
	}
	completedAt := time.Now().UTC()
	if order.CompletedAt != nil {
		completedAt = *order.CompletedAt
	}
	var assignmentID *uuid.UUID
	if assignment != nil {
		assignmentID = &assignment.ID
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCompleted,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef(actor),
		Data: payloads.OrderCompletedEvent{
			OrderID:      order.ID,
			EventID:      order.EventID,
			TableID:      order.TableID,
			BuyerUserID:  order.UserID,
			Quantity:     order.Quantity,
			AmountCents:  order.AmountCents,
			ChargeRef:    order.ChargeRef,
			CompletedAt:  completedAt,
			AssignmentID: assignmentID,
		},
	}); err != nil {
		return nil, err
	}
	if assignment != nil {
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
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
		}); err != nil {
			return nil, err
		}
	}
	return assignment, nil
}

func (s *service) recordRedemption(ctx context.Context, tx *gorm.DB, event *models.Event, order *models.Order, promo *models.PromoCode, discountCents int64, actor permissions.Actor) error {
	if err := s.audit.Record(ctx, tx, audit.Entry{
		OrganizationID: event.OrganizationID,
		EventID:        &event.ID,
		ActorUserID:    actor.UserID,
		Action:         enums.AuditPromoRedeemed,
		EntityType:     "promo_code",
		EntityID:       promo.ID,
		Metadata:       map[string]any{"order_id": order.ID, "code": promo.Code, "discount_cents": discountCents},
	}); err != nil {
		return err
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPromoRedeemed,
		AggregateType: enums.AggregatePromoCode,
		AggregateID:   promo.ID,
		Actor:         actorRef(actor),
		Data: payloads.PromoRedeemedEvent{
			PromoCodeID:   promo.ID,
			EventID:       order.EventID,
			OrderID:       order.ID,
			Code:          promo.Code,
			DiscountCents: discountCents,
		},
	})
}

// resolvePurchase loads and cross-checks the event, product, and optional
// table behind a purchase or invitation.
func (s *service) resolvePurchase(ctx context.Context, eventID, productID uuid.UUID, tableID *uuid.UUID, quantity int) (*models.Event, *models.Product, *models.Table, error) {
	if eventID == uuid.Nil || productID == uuid.Nil {
		return nil, nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "event id and product id required")
	}
	if quantity < 1 {
		return nil, nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	event, err := s.repo.FindEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading event")
	}
	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
	}
	if product.EventID != eventID {
		return nil, nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "product does not belong to event")
	}
	var table *models.Table
	if tableID != nil {
		table, err = s.repo.FindTable(ctx, *tableID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "table not found")
			}
			return nil, nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading table")
		}
		if table.EventID != eventID {
			return nil, nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "table does not belong to event")
		}
	}
	return event, product, table, nil
}

func (s *service) findOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	return order, nil
}

func (s *service) log(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), msg)
}

func tableOverride(table *models.Table) *pricing.TableOverride {
	if table == nil {
		return nil
	}
	return &pricing.TableOverride{
		SeatPriceCents:  table.SeatPriceCents,
		TotalPriceCents: table.TotalPriceCents,
		Capacity:        table.Capacity,
	}
}

func newInviteToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func actorRef(actor permissions.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: actor.UserID, IsAdmin: actor.IsAdmin}
}
