package promos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jkhalligan/gala-ticket-platform/pkg/db/models"
)

// Repository owns promo code persistence. Usage counters only move through
// the guarded statements below.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, promo *models.PromoCode) (*models.PromoCode, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PromoCode, error)
	FindByCode(ctx context.Context, eventID uuid.UUID, code string) (*models.PromoCode, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.PromoCode, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	// Redeem increments current_uses only while it is below max_uses.
	// Returns false when the cap has been reached.
	Redeem(ctx context.Context, id uuid.UUID) (bool, error)
	// Release returns one use, e.g. when the enclosing checkout fails after
	// redemption was recorded in an earlier transaction.
	Release(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, promo *models.PromoCode) (*models.PromoCode, error) {
	if err := r.db.WithContext(ctx).Create(promo).Error; err != nil {
		return nil, err
	}
	return promo, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PromoCode, error) {
	var promo models.PromoCode
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&promo).Error; err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *repository) FindByCode(ctx context.Context, eventID uuid.UUID, code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND code = ?", eventID, code).
		First(&promo).Error
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.PromoCode, error) {
	var promos []models.PromoCode
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at ASC").
		Find(&promos).Error
	if err != nil {
		return nil, err
	}
	return promos, nil
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	result := r.db.WithContext(ctx).Model(&models.PromoCode{}).
		Where("id = ?", id).
		Update("active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) Redeem(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE promo_codes
		 SET current_uses = current_uses + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND current_uses < max_uses`,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) Release(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE promo_codes
		 SET current_uses = current_uses - 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND current_uses > 0`,
		id,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("promo code has no uses to release")
	}
	return nil
}
