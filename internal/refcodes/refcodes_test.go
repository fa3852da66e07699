package refcodes

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jkhalligan/gala-ticket-platform/pkg/db/models"
	pkgerrors "github.com/jkhalligan/gala-ticket-platform/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.RefSequence{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestNextGuestCode_MonotonicPerOrganization(t *testing.T) {
	db := newTestDB(t)
	gen := NewGenerator()
	ctx := context.Background()
	org := uuid.New()

	first, err := gen.NextGuestCode(ctx, db, org)
	if err != nil {
		t.Fatalf("first allocation failed: %v", err)
	}
	if first != "G0001" {
		t.Fatalf("expected G0001, got %q", first)
	}

	second, err := gen.NextGuestCode(ctx, db, org)
	if err != nil {
		t.Fatalf("second allocation failed: %v", err)
	}
	if second != "G0002" {
		t.Fatalf("expected G0002, got %q", second)
	}

	// A different organization starts its own sequence.
	other, err := gen.NextGuestCode(ctx, db, uuid.New())
	if err != nil {
		t.Fatalf("other org allocation failed: %v", err)
	}
	if other != "G0001" {
		t.Fatalf("expected G0001 for fresh org, got %q", other)
	}
}

func TestNextTableCode_FormatAndYearScope(t *testing.T) {
	db := newTestDB(t)
	gen := NewGenerator()
	ctx := context.Background()
	org := uuid.New()

	in2025 := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	code, err := gen.NextTableCode(ctx, db, org, in2025)
	if err != nil {
		t.Fatalf("allocation failed: %v", err)
	}
	if code != "25-T001" {
		t.Fatalf("expected 25-T001, got %q", code)
	}

	code, err = gen.NextTableCode(ctx, db, org, in2025)
	if err != nil {
		t.Fatalf("allocation failed: %v", err)
	}
	if code != "25-T002" {
		t.Fatalf("expected 25-T002, got %q", code)
	}

	// The sequence restarts for a new year.
	in2026 := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	code, err = gen.NextTableCode(ctx, db, org, in2026)
	if err != nil {
		t.Fatalf("allocation failed: %v", err)
	}
	if code != "26-T001" {
		t.Fatalf("expected 26-T001, got %q", code)
	}
}

func TestNextGuestCode_ValidatesInput(t *testing.T) {
	db := newTestDB(t)
	gen := NewGenerator()

	if _, err := gen.NextGuestCode(context.Background(), db, uuid.Nil); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := gen.NextGuestCode(context.Background(), nil, uuid.New()); err == nil {
		t.Fatal("expected error with nil transaction")
	}
}
