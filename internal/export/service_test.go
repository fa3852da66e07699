package export

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jkhalligan/gala-ticket-platform/internal/allocation"
	"github.com/jkhalligan/gala-ticket-platform/internal/audit"
	"github.com/jkhalligan/gala-ticket-platform/internal/permissions"
	"github.com/jkhalligan/gala-ticket-platform/pkg/config"
	"github.com/jkhalligan/gala-ticket-platform/pkg/db/models"
	"github.com/jkhalligan/gala-ticket-platform/pkg/enums"
	pkgerrors "github.com/jkhalligan/gala-ticket-platform/pkg/errors"
	"github.com/jkhalligan/gala-ticket-platform/pkg/outbox"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}

// fakeSheet records pushed rows and serves canned rows for imports.
type fakeSheet struct {
	written map[string][][]interface{}
	canned  map[string][][]interface{}
}

func newFakeSheet() *fakeSheet {
	return &fakeSheet{
		written: map[string][][]interface{}{},
		canned:  map[string][][]interface{}{},
	}
}

func (f *fakeSheet) ReplaceRows(ctx context.Context, readRange string, rows [][]interface{}) error {
	f.written[readRange] = rows
	return nil
}

func (f *fakeSheet) FetchRows(ctx context.Context, readRange string) ([][]interface{}, error) {
	return f.canned[readRange], nil
}

func setupExportTestDB(t *testing.T) *gorm.DB {
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
CREATE TABLE IF NOT EXISTS tables (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  owner_user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'ACTIVE',
  capacity INTEGER NOT NULL,
  name TEXT,
  seat_price_cents INTEGER,
  total_price_cents INTEGER,
  code TEXT NOT NULL,
  display_number TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (event_id, code)
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
CREATE TABLE IF NOT EXISTS guest_assignments (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  table_id TEXT,
  order_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  display_name TEXT,
  dietary TEXT,
  tier_snapshot TEXT NOT NULL,
  bidder_number INTEGER,
  auction_registered INTEGER NOT NULL DEFAULT 0,
  checked_in_at DATETIME,
  ref_code TEXT NOT NULL UNIQUE,
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
);`, `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  published_at DATETIME,
  last_error TEXT,
  created_at DATETIME
);`}
	for _, stmt := range ddl {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("failed to create schema: %v", err)
		}
	}
	return db
}

func newExportService(t *testing.T, db *gorm.DB, sheet *fakeSheet) Service {
	t.Helper()
	svc, err := NewService(
		db,
		testTxRunner{db: db},
		sheet,
		allocation.NewAllocator(),
		audit.NewRecorder(nil),
		outbox.NewService(outbox.NewRepository(db), nil),
		config.SheetsConfig{GuestRange: "Guests!A2", TableRange: "Tables!A2"},
		nil,
	)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc
}

func seedSnapshot(t *testing.T, db *gorm.DB) (*models.Event, *models.Table, *models.GuestAssignment) {
	t.Helper()
	event := &models.Event{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		Name:           "Charity Gala",
		StartsAt:       time.Now().Add(7 * 24 * time.Hour),
	}
	if err := db.Create(event).Error; err != nil {
		t.Fatalf("seeding event failed: %v", err)
	}
	table := &models.Table{
		ID:          uuid.New(),
		EventID:     event.ID,
		OwnerUserID: uuid.New(),
		Type:        enums.TableTypePrepaid,
		Status:      enums.TableStatusActive,
		Capacity:    10,
		Code:        "25-T001",
	}
	if err := db.Create(table).Error; err != nil {
		t.Fatalf("seeding table failed: %v", err)
	}
	order := &models.Order{
		ID:          uuid.New(),
		EventID:     event.ID,
		ProductID:   uuid.New(),
		TableID:     &table.ID,
		UserID:      uuid.New(),
		Quantity:    4,
		AmountCents: 60000,
		Status:      enums.OrderStatusCompleted,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("seeding order failed: %v", err)
	}
	guest := &models.GuestAssignment{
		ID:           uuid.New(),
		EventID:      event.ID,
		TableID:      &table.ID,
		OrderID:      order.ID,
		UserID:       order.UserID,
		TierSnapshot: "GOLD",
		RefCode:      "G0001",
	}
	if err := db.Create(guest).Error; err != nil {
		t.Fatalf("seeding assignment failed: %v", err)
	}
	return event, table, guest
}

func TestExport_PushesSnapshotRows(t *testing.T) {
	db := setupExportTestDB(t)
	sheet := newFakeSheet()
	svc := newExportService(t, db, sheet)
	ctx := context.Background()
	event, _, _ := seedSnapshot(t, db)

	_, err := svc.Export(ctx, event.ID, permissions.Actor{UserID: uuid.New()})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for non-admin, got %v", err)
	}

	summary, err := svc.Export(ctx, event.ID, permissions.Actor{UserID: uuid.New(), IsAdmin: true})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if summary.TableRows != 1 || summary.GuestRows != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	tableRows := sheet.written["Tables!A2"]
	if len(tableRows) != 1 {
		t.Fatalf("expected one table row, got %d", len(tableRows))
	}
	// code, display number, name, type, status, capacity, sold, available
	if tableRows[0][0] != "25-T001" || tableRows[0][5] != 10 || tableRows[0][6] != 4 || tableRows[0][7] != 6 {
		t.Fatalf("unexpected table row: %v", tableRows[0])
	}

	guestRows := sheet.written["Guests!A2"]
	if len(guestRows) != 1 {
		t.Fatalf("expected one guest row, got %d", len(guestRows))
	}
	if guestRows[0][0] != "G0001" || guestRows[0][2] != "25-T001" || guestRows[0][3] != "GOLD" {
		t.Fatalf("unexpected guest row: %v", guestRows[0])
	}

	var outboxCount int64
	db.Table("outbox_events").Count(&outboxCount)
	if outboxCount != 1 {
		t.Fatalf("expected export event queued, got %d", outboxCount)
	}
}

func TestImportOverrides_OnlyWhitelistedFields(t *testing.T) {
	db := setupExportTestDB(t)
	sheet := newFakeSheet()
	svc := newExportService(t, db, sheet)
	ctx := context.Background()
	event, table, guest := seedSnapshot(t, db)
	admin := permissions.Actor{UserID: uuid.New(), IsAdmin: true}

	sheet.canned["Tables!A2"] = [][]interface{}{
		{"25-T001", "12", "Hacked Name", "CAPTAIN_PAYG", "ARCHIVED", "99", "0", "99"},
		{"25-T999", "7"},
	}
	sheet.canned["Guests!A2"] = [][]interface{}{
		{"G0001", "Hacked Guest", "25-T001", "PLATINUM", "nuts", "1", "true", ""},
		{"G9999", "", "", "", "", "", "true", ""},
		{"G0001", "", "", "", "", "", "not-a-bool", ""},
	}

	summary, err := svc.ImportOverrides(ctx, event.ID, admin)
	if err != nil {
		t.Fatalf("ImportOverrides failed: %v", err)
	}
	if summary.TablesUpdated != 1 || summary.GuestsUpdated != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.RowsSkipped != 3 {
		t.Fatalf("expected 3 skipped rows, got %d", summary.RowsSkipped)
	}

	var freshTable models.Table
	if err := db.Where("id = ?", table.ID).First(&freshTable).Error; err != nil {
		t.Fatalf("reloading table failed: %v", err)
	}
	if freshTable.DisplayNumber == nil || *freshTable.DisplayNumber != "12" {
		t.Fatal("expected display number override applied")
	}
	// Everything outside the whitelist is untouched.
	if freshTable.Capacity != 10 || freshTable.Status != enums.TableStatusActive || freshTable.Type != enums.TableTypePrepaid {
		t.Fatalf("expected system-of-record fields untouched, got %+v", freshTable)
	}

	var freshGuest models.GuestAssignment
	if err := db.Where("id = ?", guest.ID).First(&freshGuest).Error; err != nil {
		t.Fatalf("reloading guest failed: %v", err)
	}
	if !freshGuest.AuctionRegistered {
		t.Fatal("expected auction flag override applied")
	}
	if freshGuest.DisplayName != nil || freshGuest.TierSnapshot != "GOLD" {
		t.Fatalf("expected guest fields untouched, got %+v", freshGuest)
	}
}
