package refcodes

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/jkhalligan/gala-ticket-platform/pkg/errors"
)

const (
	guestScope       = "guest"
	tableScopePrefix = "table"
)

// Generator mints reference codes from per-organization atomic sequences.
// Values are allocated inside the caller's transaction but are never reused
// even when that transaction rolls back, so gaps in issued codes are normal.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// NextGuestCode allocates the next guest code for the organization, e.g.
// "G0001".
func (g *Generator) NextGuestCode(ctx context.Context, tx *gorm.DB, organizationID uuid.UUID) (string, error) {
	n, err := g.nextValue(ctx, tx, organizationID, guestScope)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("G%04d", n), nil
}

// NextTableCode allocates the next table code for the organization and year,
// e.g. "25-T001". The sequence restarts per two-digit year.
func (g *Generator) NextTableCode(ctx context.Context, tx *gorm.DB, organizationID uuid.UUID, at time.Time) (string, error) {
	year := at.Year() % 100
	scope := fmt.Sprintf("%s:%02d", tableScopePrefix, year)
	n, err := g.nextValue(ctx, tx, organizationID, scope)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d-T%03d", year, n), nil
}

func (g *Generator) nextValue(ctx context.Context, tx *gorm.DB, organizationID uuid.UUID, scope string) (int64, error) {
	if tx == nil {
		return 0, pkgerrors.New(pkgerrors.CodeInternal, "transaction required for code generation")
	}
	if organizationID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "organization id required")
	}

	// Single-statement upsert so two concurrent allocations can never read
	// the same value.
	var allocated int64
	err := tx.WithContext(ctx).Raw(`
		INSERT INTO ref_sequences (organization_id, scope, next_value, updated_at)
		VALUES (?, ?, 2, CURRENT_TIMESTAMP)
		ON CONFLICT (organization_id, scope)
		DO UPDATE SET next_value = ref_sequences.next_value + 1, updated_at = CURRENT_TIMESTAMP
		RETURNING next_value - 1`,
		organizationID, scope,
	).Scan(&allocated).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocating reference code")
	}
	return allocated, nil
}
