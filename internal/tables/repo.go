package tables

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jkhalligan/gala-ticket-platform/pkg/db/models"
)

// Repository owns table and role-grant persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, table *models.Table) (*models.Table, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Table, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Table, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	// UpsertRole replaces any existing grant for the (table, user) pair.
	UpsertRole(ctx context.Context, grant *models.TableUserRole) error
	DeleteRole(ctx context.Context, tableID, userID uuid.UUID) error
	ListRoles(ctx context.Context, tableID uuid.UUID) ([]models.TableUserRole, error)
	DeleteRolesForTable(ctx context.Context, tableID uuid.UUID) error
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

func (r *repository) Create(ctx context.Context, table *models.Table) (*models.Table, error) {
	if err := r.db.WithContext(ctx).Create(table).Error; err != nil {
		return nil, err
	}
	return table, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Table, error) {
	var table models.Table
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&table).Error; err != nil {
		return nil, err
	}
	return &table, nil
}

func (r *repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Table, error) {
	var tables []models.Table
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at ASC").
		Find(&tables).Error
	if err != nil {
		return nil, err
	}
	return tables, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	result := r.db.WithContext(ctx).Model(&models.Table{}).
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
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Table{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) UpsertRole(ctx context.Context, grant *models.TableUserRole) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "table_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "granted_by_user_id", "updated_at"}),
	}).Create(grant).Error
}

func (r *repository) DeleteRole(ctx context.Context, tableID, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("table_id = ? AND user_id = ?", tableID, userID).
		Delete(&models.TableUserRole{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListRoles(ctx context.Context, tableID uuid.UUID) ([]models.TableUserRole, error) {
	var grants []models.TableUserRole
	err := r.db.WithContext(ctx).
		Where("table_id = ?", tableID).
		Find(&grants).Error
	if err != nil {
		return nil, err
	}
	return grants, nil
}

func (r *repository) DeleteRolesForTable(ctx context.Context, tableID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("table_id = ?", tableID).
		Delete(&models.TableUserRole{}).Error
}

func (r *repository) FindEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).Where("id = ?", eventID).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}
