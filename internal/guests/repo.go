package guests

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jkhalligan/gala-ticket-platform/pkg/db/models"
)

// Repository owns guest-assignment persistence plus the reads the service
// needs from neighboring aggregates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, assignment *models.GuestAssignment) (*models.GuestAssignment, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.GuestAssignment, error)
	FindByRefCode(ctx context.Context, refCode string) (*models.GuestAssignment, error)
	ListByTable(ctx context.Context, tableID uuid.UUID) ([]models.GuestAssignment, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.GuestAssignment, error)
	CountByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
	ExistsAtTable(ctx context.Context, tableID, userID uuid.UUID) (bool, error)
	CountAtTable(ctx context.Context, tableID uuid.UUID) (int64, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindTable(ctx context.Context, tableID uuid.UUID) (*models.Table, error)
	ListTableRoles(ctx context.Context, tableID uuid.UUID) ([]models.TableUserRole, error)
	FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	FindEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error)
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

func (r *repository) Create(ctx context.Context, assignment *models.GuestAssignment) (*models.GuestAssignment, error) {
	if err := r.db.WithContext(ctx).Create(assignment).Error; err != nil {
		return nil, err
	}
	return assignment, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.GuestAssignment, error) {
	var assignment models.GuestAssignment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&assignment).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) FindByRefCode(ctx context.Context, refCode string) (*models.GuestAssignment, error) {
	var assignment models.GuestAssignment
	if err := r.db.WithContext(ctx).Where("ref_code = ?", refCode).First(&assignment).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) ListByTable(ctx context.Context, tableID uuid.UUID) ([]models.GuestAssignment, error) {
	var assignments []models.GuestAssignment
	err := r.db.WithContext(ctx).
		Where("table_id = ?", tableID).
		Order("created_at ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.GuestAssignment, error) {
	var assignments []models.GuestAssignment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *repository) CountByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.GuestAssignment{}).
		Where("order_id = ?", orderID).
		Count(&count).Error
	return count, err
}

func (r *repository) ExistsAtTable(ctx context.Context, tableID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.GuestAssignment{}).
		Where("table_id = ? AND user_id = ?", tableID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) CountAtTable(ctx context.Context, tableID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.GuestAssignment{}).
		Where("table_id = ?", tableID).
		Count(&count).Error
	return count, err
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	result := r.db.WithContext(ctx).Model(&models.GuestAssignment{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.GuestAssignment{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindTable(ctx context.Context, tableID uuid.UUID) (*models.Table, error) {
	var table models.Table
	if err := r.db.WithContext(ctx).Where("id = ?", tableID).First(&table).Error; err != nil {
		return nil, err
	}
	return &table, nil
}

func (r *repository) ListTableRoles(ctx context.Context, tableID uuid.UUID) ([]models.TableUserRole, error) {
	var grants []models.TableUserRole
	err := r.db.WithContext(ctx).
		Where("table_id = ?", tableID).
		Find(&grants).Error
	if err != nil {
		return nil, err
	}
	return grants, nil
}

func (r *repository) FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", productID).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).Where("id = ?", eventID).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}
