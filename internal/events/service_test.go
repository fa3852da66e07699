package events

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jkhalligan/gala-ticket-platform/internal/audit"
	"github.com/jkhalligan/gala-ticket-platform/internal/permissions"
	"github.com/jkhalligan/gala-ticket-platform/pkg/db/models"
	"github.com/jkhalligan/gala-ticket-platform/pkg/enums"
	pkgerrors "github.com/jkhalligan/gala-ticket-platform/pkg/errors"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}

func setupEventsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	ddl := []string{`
CREATE TABLE IF NOT EXISTS events (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  name TEXT NOT NULL,
  starts_at DATETIME NOT NULL,
  venue TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  name TEXT NOT NULL,
  tier TEXT NOT NULL,
  base_price_cents INTEGER NOT NULL,
  commitment INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  table_id TEXT,
  user_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  amount_cents INTEGER NOT NULL,
  discount_cents INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL,
  promo_code_id TEXT,
  charge_ref TEXT,
  invited_email TEXT,
  invite_token TEXT,
  invite_expires_at DATETIME,
  refunded_by_user_id TEXT,
  refunded_at DATETIME,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS activity_logs (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  event_id TEXT,
  actor_user_id TEXT NOT NULL,
  action TEXT NOT NULL,
  entity_type TEXT NOT NULL,
  entity_id TEXT NOT NULL,
  metadata TEXT,
  created_at DATETIME
);`}
	for _, stmt := range ddl {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("failed to create schema: %v", err)
		}
	}
	return db
}

func newEventsService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), testTxRunner{db: db}, audit.NewRecorder(nil), nil)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc
}

func TestCreate_AdminOnly(t *testing.T) {
	db := setupEventsTestDB(t)
	svc := newEventsService(t, db)
	ctx := context.Background()
	admin := permissions.Actor{UserID: uuid.New(), IsAdmin: true}

	_, err := svc.Create(ctx, CreateInput{
		OrganizationID: uuid.New(),
		Name:           "Winter Gala",
		StartsAt:       time.Now().Add(60 * 24 * time.Hour),
	}, permissions.Actor{UserID: uuid.New()})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for non-admin, got %v", err)
	}

	event, err := svc.Create(ctx, CreateInput{
		OrganizationID: uuid.New(),
		Name:           "  Winter Gala  ",
		StartsAt:       time.Now().Add(60 * 24 * time.Hour),
	}, admin)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if event.Name != "Winter Gala" {
		t.Fatalf("expected trimmed name, got %q", event.Name)
	}
}

func TestDelete_BlockedWhileOrdersExist(t *testing.T) {
	db := setupEventsTestDB(t)
	svc := newEventsService(t, db)
	ctx := context.Background()
	admin := permissions.Actor{UserID: uuid.New(), IsAdmin: true}

	event, err := svc.Create(ctx, CreateInput{
		OrganizationID: uuid.New(),
		Name:           "Doomed Gala",
		StartsAt:       time.Now().Add(24 * time.Hour),
	}, admin)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	order := models.Order{
		ID:        uuid.New(),
		EventID:   event.ID,
		ProductID: uuid.New(),
		UserID:    uuid.New(),
		Quantity:  1,
		Status:    enums.OrderStatusCancelled,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("seeding order failed: %v", err)
	}

	// Even a terminal order keeps the event undeletable.
	err = svc.Delete(ctx, event.ID, admin)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	if err := db.Exec("DELETE FROM orders").Error; err != nil {
		t.Fatalf("clearing orders failed: %v", err)
	}
	if err := svc.Delete(ctx, event.ID, admin); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := svc.Get(ctx, event.ID); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestProducts_CreateAndList(t *testing.T) {
	db := setupEventsTestDB(t)
	svc := newEventsService(t, db)
	ctx := context.Background()
	admin := permissions.Actor{UserID: uuid.New(), IsAdmin: true}

	event, err := svc.Create(ctx, CreateInput{
		OrganizationID: uuid.New(),
		Name:           "Auction Night",
		StartsAt:       time.Now().Add(24 * time.Hour),
	}, admin)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := svc.CreateProduct(ctx, ProductInput{EventID: event.ID, Name: "Standard Seat", Tier: "standard", BasePriceCents: 15000}, admin); err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	commitment, err := svc.CreateProduct(ctx, ProductInput{EventID: event.ID, Name: "Captain Commitment", Tier: "captain", BasePriceCents: 0, Commitment: true}, admin)
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	if !commitment.Commitment || commitment.BasePriceCents != 0 {
		t.Fatalf("unexpected commitment product: %+v", commitment)
	}

	products, err := svc.ListProducts(ctx, event.ID)
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}

	// A missing event is refused.
	if _, err := svc.CreateProduct(ctx, ProductInput{EventID: uuid.New(), Name: "X", Tier: "x", BasePriceCents: 1}, admin); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	// Negative price is refused.
	if _, err := svc.CreateProduct(ctx, ProductInput{EventID: event.ID, Name: "X", Tier: "x", BasePriceCents: -5}, admin); pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
