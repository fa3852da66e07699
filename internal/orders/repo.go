package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jkhalligan/gala-ticket-platform/pkg/db/models"
	"github.com/jkhalligan/gala-ticket-platform/pkg/enums"
)

// Repository owns order persistence. Status changes go through UpdateStatus,
// which compare-and-swaps on the current status so a stale caller loses.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByChargeRef(ctx context.Context, chargeRef string) (*models.Order, error)
	FindByInviteToken(ctx context.Context, token string) (*models.Order, error)
	// UpdateStatus transitions from -> to plus any extra column writes in one
	// guarded UPDATE. Returns gorm.ErrRecordNotFound when the order is no
	// longer in the from status.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, extra map[string]any) error
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	FindEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error)
	FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	FindTable(ctx context.Context, tableID uuid.UUID) (*models.Table, error)
	CreateAssignment(ctx context.Context, assignment *models.GuestAssignment) error
	HasAssignmentForOrderUser(ctx context.Context, orderID, userID uuid.UUID) (bool, error)
	HasAssignmentAtTable(ctx context.Context, tableID, userID uuid.UUID) (bool, error)
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

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByChargeRef(ctx context.Context, chargeRef string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("charge_ref = ?", chargeRef).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByInviteToken(ctx context.Context, token string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("invite_token = ?", token).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, extra map[string]any) error {
	updates := map[string]any{"status": to}
	for column, value := range extra {
		updates[column] = value
	}
	result := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) FindEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).Where("id = ?", eventID).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", productID).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindTable(ctx context.Context, tableID uuid.UUID) (*models.Table, error) {
	var table models.Table
	if err := r.db.WithContext(ctx).Where("id = ?", tableID).First(&table).Error; err != nil {
		return nil, err
	}
	return &table, nil
}

func (r *repository) CreateAssignment(ctx context.Context, assignment *models.GuestAssignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *repository) HasAssignmentForOrderUser(ctx context.Context, orderID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.GuestAssignment{}).
		Where("order_id = ? AND user_id = ?", orderID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) HasAssignmentAtTable(ctx context.Context, tableID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.GuestAssignment{}).
		Where("table_id = ? AND user_id = ?", tableID, userID).
		Count(&count).Error
	return count > 0, err
}
