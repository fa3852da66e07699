package allocation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jkhalligan/gala-ticket-platform/pkg/db/models"
	"github.com/jkhalligan/gala-ticket-platform/pkg/enums"
	pkgerrors "github.com/jkhalligan/gala-ticket-platform/pkg/errors"
)

// Allocator computes seat counts for tables and orders. Seats are consumed
// by orders whose status counts against capacity (PENDING, COMPLETED);
// terminal statuses release them arithmetically.
type Allocator struct{}

func NewAllocator() *Allocator {
	return &Allocator{}
}

// CapacityDetails is attached to capacity errors so callers can show the
// remaining count.
type CapacityDetails struct {
	TableID   uuid.UUID `json:"table_id"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// AvailableSeats reports capacity minus seats held by capacity-consuming
// orders. Read-only; for a reservation use ReserveSeats, which locks the
// table row.
func (a *Allocator) AvailableSeats(ctx context.Context, db *gorm.DB, tableID uuid.UUID) (int, error) {
	if tableID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "table id required")
	}
	var table models.Table
	if err := db.WithContext(ctx).Where("id = ?", tableID).First(&table).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "table not found")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading table")
	}
	consumed, err := consumedSeats(ctx, db, tableID)
	if err != nil {
		return 0, err
	}
	return table.Capacity - consumed, nil
}

// PlaceholderSeats reports paid-but-unnamed seats on an order.
func (a *Allocator) PlaceholderSeats(ctx context.Context, db *gorm.DB, order *models.Order) (int, error) {
	if order == nil || order.ID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	var assigned int64
	err := db.WithContext(ctx).Model(&models.GuestAssignment{}).
		Where("order_id = ?", order.ID).
		Count(&assigned).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "counting assignments")
	}
	return order.Quantity - int(assigned), nil
}

// ReserveSeats verifies that quantity seats fit within the table's remaining
// capacity, under a lock on the table row so a concurrent reservation cannot
// oversell. The caller inserts the consuming order in the same transaction.
// Returns the locked table.
func (a *Allocator) ReserveSeats(ctx context.Context, tx *gorm.DB, tableID uuid.UUID, quantity int) (*models.Table, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required for seat reservation")
	}
	if tableID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "table id required")
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	query := tx.WithContext(ctx)
	// sqlite has no FOR UPDATE; its single-writer lock serializes the
	// transaction anyway.
	if tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var table models.Table
	if err := query.Where("id = ?", tableID).First(&table).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "table not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "locking table")
	}
	if table.Status != enums.TableStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("table is %s", table.Status))
	}

	consumed, err := consumedSeats(ctx, tx, tableID)
	if err != nil {
		return nil, err
	}
	available := table.Capacity - consumed
	if quantity > available {
		return nil, pkgerrors.New(pkgerrors.CodeCapacityExceeded, "not enough seats available").
			WithDetails(CapacityDetails{TableID: tableID, Requested: quantity, Available: available})
	}
	return &table, nil
}

func consumedSeats(ctx context.Context, db *gorm.DB, tableID uuid.UUID) (int, error) {
	var consumed int64
	err := db.WithContext(ctx).Model(&models.Order{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("table_id = ? AND status IN ?", tableID, capacityConsumingStatuses()).
		Scan(&consumed).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summing reserved seats")
	}
	return int(consumed), nil
}

func capacityConsumingStatuses() []enums.OrderStatus {
	statuses := make([]enums.OrderStatus, 0, 2)
	for _, status := range enums.OrderStatuses() {
		if status.ConsumesCapacity() {
			statuses = append(statuses, status)
		}
	}
	return statuses
}
