package promos

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jkhalligan/gala-ticket-platform/internal/pricing"
	"github.com/jkhalligan/gala-ticket-platform/pkg/db/models"
	"github.com/jkhalligan/gala-ticket-platform/pkg/enums"
	pkgerrors "github.com/jkhalligan/gala-ticket-platform/pkg/errors"
	"github.com/jkhalligan/gala-ticket-platform/pkg/logger"
)

// Validation failure reasons. Callers branch on these, so the specific
// cause is preserved rather than collapsed into one generic failure.
const (
	ReasonNotFound    = "not_found"
	ReasonInactive    = "inactive"
	ReasonNotYetValid = "not_yet_valid"
	ReasonExpired     = "expired"
	ReasonExhausted   = "usage_limit_reached"
)

// PromoDetails is attached to promo errors so the caller can branch on the
// failure reason.
type PromoDetails struct {
	Reason string `json:"reason"`
	Code   string `json:"code"`
}

// Service validates and redeems promo codes.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.PromoCode, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.PromoCode, error)
	// Validate checks everything except the usage cap race; the cap is
	// re-checked atomically by Redeem.
	Validate(ctx context.Context, eventID uuid.UUID, code string, now time.Time) (*models.PromoCode, error)
	// Redeem consumes one use inside the caller's transaction. Fails with a
	// usage-limit error when the cap has been reached by a concurrent
	// redemption.
	Redeem(ctx context.Context, tx *gorm.DB, id uuid.UUID, code string) error
	Release(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// CreateInput carries the fields for a new promo code.
type CreateInput struct {
	EventID       uuid.UUID
	Code          string
	DiscountType  enums.DiscountType
	DiscountValue int64
	ValidFrom     *time.Time
	ValidUntil    *time.Time
	MaxUses       int
}

func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, errors.New("promos repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.PromoCode, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if input.EventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promo code required")
	}
	if !input.DiscountType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount type")
	}
	if input.DiscountValue < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount value must not be negative")
	}
	if input.DiscountType == enums.DiscountTypePercentage && input.DiscountValue > 100 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentage discount cannot exceed 100")
	}
	if input.MaxUses < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max uses must be at least 1")
	}
	if input.ValidFrom != nil && input.ValidUntil != nil && input.ValidUntil.Before(*input.ValidFrom) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validity window ends before it starts")
	}

	promo := &models.PromoCode{
		ID:            uuid.New(),
		EventID:       input.EventID,
		Code:          code,
		DiscountType:  input.DiscountType,
		DiscountValue: input.DiscountValue,
		ValidFrom:     input.ValidFrom,
		ValidUntil:    input.ValidUntil,
		MaxUses:       input.MaxUses,
		Active:        true,
	}
	created, err := s.repo.Create(ctx, promo)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating promo code")
	}
	return created, nil
}

func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "promo id required")
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "promo code not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivating promo code")
	}
	return nil
}

func (s *service) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.PromoCode, error) {
	if eventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}
	promos, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing promo codes")
	}
	return promos, nil
}

func (s *service) Validate(ctx context.Context, eventID uuid.UUID, code string, now time.Time) (*models.PromoCode, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if eventID == uuid.Nil || normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id and promo code required")
	}

	promo, err := s.repo.FindByCode(ctx, eventID, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, promoError(ReasonNotFound, normalized, "promo code not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "looking up promo code")
	}

	switch {
	case !promo.Active:
		return nil, promoError(ReasonInactive, normalized, "promo code is inactive")
	case promo.ValidFrom != nil && now.Before(*promo.ValidFrom):
		return nil, promoError(ReasonNotYetValid, normalized, "promo code is not yet valid")
	case promo.ValidUntil != nil && now.After(*promo.ValidUntil):
		return nil, promoError(ReasonExpired, normalized, "promo code has expired")
	case promo.CurrentUses >= promo.MaxUses:
		return nil, promoError(ReasonExhausted, normalized, "promo code usage limit reached")
	}
	return promo, nil
}

func (s *service) Redeem(ctx context.Context, tx *gorm.DB, id uuid.UUID, code string) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "promo id required")
	}
	redeemed, err := s.repo.WithTx(tx).Redeem(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redeeming promo code")
	}
	if !redeemed {
		return promoError(ReasonExhausted, code, "promo code usage limit reached")
	}
	if s.logg != nil {
		s.logg.Info(ctx, "promo code redeemed")
	}
	return nil
}

func (s *service) Release(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "promo id required")
	}
	if err := s.repo.WithTx(tx).Release(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "releasing promo code use")
	}
	return nil
}

// Discount converts a validated promo into the pricing engine's input.
func Discount(promo *models.PromoCode) *pricing.Discount {
	if promo == nil {
		return nil
	}
	return &pricing.Discount{
		PromoID: promo.ID,
		Type:    promo.DiscountType,
		Value:   promo.DiscountValue,
	}
}

func promoError(reason, code, message string) error {
	return pkgerrors.New(pkgerrors.CodePromoCode, message).
		WithDetails(PromoDetails{Reason: reason, Code: code})
}
