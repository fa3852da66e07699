package export

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jkhalligan/gala-ticket-platform/internal/allocation"
	"github.com/jkhalligan/gala-ticket-platform/internal/audit"
	"github.com/jkhalligan/gala-ticket-platform/internal/permissions"
	"github.com/jkhalligan/gala-ticket-platform/pkg/config"
	"github.com/jkhalligan/gala-ticket-platform/pkg/db/models"
	"github.com/jkhalligan/gala-ticket-platform/pkg/enums"
	pkgerrors "github.com/jkhalligan/gala-ticket-platform/pkg/errors"
	"github.com/jkhalligan/gala-ticket-platform/pkg/logger"
	"github.com/jkhalligan/gala-ticket-platform/pkg/outbox"
	"github.com/jkhalligan/gala-ticket-platform/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type auditRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry audit.Entry) error
}

type sheetWriter interface {
	ReplaceRows(ctx context.Context, readRange string, rows [][]interface{}) error
	FetchRows(ctx context.Context, readRange string) ([][]interface{}, error)
}

// Service pushes snapshots of table and guest state to a spreadsheet and
// pulls back the two override columns the sheet is allowed to own: the
// display table number and the auction-registration flag. Everything else in
// the sheet is regenerated on the next export.
type Service interface {
	Export(ctx context.Context, eventID uuid.UUID, actor permissions.Actor) (*Summary, error)
	ImportOverrides(ctx context.Context, eventID uuid.UUID, actor permissions.Actor) (*OverrideSummary, error)
}

// Summary reports what a snapshot push wrote.
type Summary struct {
	EventID    uuid.UUID `json:"event_id"`
	TableRows  int       `json:"table_rows"`
	GuestRows  int       `json:"guest_rows"`
	ExportedAt time.Time `json:"exported_at"`
}

// OverrideSummary reports what an override pull applied.
type OverrideSummary struct {
	EventID       uuid.UUID `json:"event_id"`
	TablesUpdated int       `json:"tables_updated"`
	GuestsUpdated int       `json:"guests_updated"`
	RowsSkipped   int       `json:"rows_skipped"`
}

type service struct {
	db     *gorm.DB
	tx     txRunner
	sheet  sheetWriter
	alloc  *allocation.Allocator
	audit  auditRecorder
	outbox outboxPublisher
	cfg    config.SheetsConfig
	logg   *logger.Logger
}

func NewService(db *gorm.DB, tx txRunner, sheet sheetWriter, alloc *allocation.Allocator, auditRec auditRecorder, outboxSvc outboxPublisher, cfg config.SheetsConfig, logg *logger.Logger) (Service, error) {
	if db == nil || tx == nil || sheet == nil || alloc == nil || auditRec == nil || outboxSvc == nil {
		return nil, errors.New("export service requires all dependencies")
	}
	return &service{
		db:     db,
		tx:     tx,
		sheet:  sheet,
		alloc:  alloc,
		audit:  auditRec,
		outbox: outboxSvc,
		cfg:    cfg,
		logg:   logg,
	}, nil
}

func (s *service) Export(ctx context.Context, eventID uuid.UUID, actor permissions.Actor) (*Summary, error) {
	if !actor.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "exports are admin-only")
	}
	event, err := s.findEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	tables, err := s.listTables(ctx, eventID)
	if err != nil {
		return nil, err
	}
	tableRows := make([][]interface{}, 0, len(tables))
	codesByID := make(map[uuid.UUID]string, len(tables))
	for i := range tables {
		table := &tables[i]
		codesByID[table.ID] = table.Code
		available, err := s.alloc.AvailableSeats(ctx, s.db, table.ID)
		if err != nil {
			return nil, err
		}
		tableRows = append(tableRows, []interface{}{
			table.Code,
			deref(table.DisplayNumber),
			deref(table.Name),
			string(table.Type),
			string(table.Status),
			table.Capacity,
			table.Capacity - available,
			available,
		})
	}

	var assignments []models.GuestAssignment
	err = s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("ref_code ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing assignments")
	}
	guestRows := make([][]interface{}, 0, len(assignments))
	for i := range assignments {
		guest := &assignments[i]
		tableCode := ""
		if guest.TableID != nil {
			tableCode = codesByID[*guest.TableID]
		}
		checkedIn := ""
		if guest.CheckedInAt != nil {
			checkedIn = guest.CheckedInAt.UTC().Format(time.RFC3339)
		}
		guestRows = append(guestRows, []interface{}{
			guest.RefCode,
			deref(guest.DisplayName),
			tableCode,
			guest.TierSnapshot,
			deref(guest.Dietary),
			bidderCell(guest.BidderNumber),
			strconv.FormatBool(guest.AuctionRegistered),
			checkedIn,
		})
	}

	if err := s.sheet.ReplaceRows(ctx, s.cfg.TableRange, tableRows); err != nil {
		return nil, err
	}
	if err := s.sheet.ReplaceRows(ctx, s.cfg.GuestRange, guestRows); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.audit.Record(ctx, tx, audit.Entry{
			OrganizationID: event.OrganizationID,
			EventID:        &event.ID,
			ActorUserID:    actor.UserID,
			Action:         enums.AuditExportGenerated,
			EntityType:     "event",
			EntityID:       event.ID,
			Metadata:       map[string]any{"table_rows": len(tableRows), "guest_rows": len(guestRows)},
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventExportRequested,
			AggregateType: enums.AggregateEvent,
			AggregateID:   event.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, IsAdmin: actor.IsAdmin},
			Data: payloads.ExportRequestedEvent{
				EventID:     event.ID,
				RequestedBy: actor.UserID,
				RequestedAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return &Summary{EventID: eventID, TableRows: len(tableRows), GuestRows: len(guestRows), ExportedAt: now}, nil
}

func (s *service) ImportOverrides(ctx context.Context, eventID uuid.UUID, actor permissions.Actor) (*OverrideSummary, error) {
	if !actor.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "override import is admin-only")
	}
	event, err := s.findEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	tableRows, err := s.sheet.FetchRows(ctx, s.cfg.TableRange)
	if err != nil {
		return nil, err
	}
	guestRows, err := s.sheet.FetchRows(ctx, s.cfg.GuestRange)
	if err != nil {
		return nil, err
	}

	summary := &OverrideSummary{EventID: eventID}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		// Column 0 is the key, column 1 the display number. All other
		// columns are system-of-record and ignored on the way back in.
		for _, row := range tableRows {
			code, ok := cell(row, 0)
			if !ok {
				summary.RowsSkipped++
				continue
			}
			displayNumber, _ := cell(row, 1)
			result := tx.WithContext(ctx).Model(&models.Table{}).
				Where("event_id = ? AND code = ?", event.ID, code).
				Update("display_number", displayNumber)
			if result.Error != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "applying table override")
			}
			if result.RowsAffected == 0 {
				summary.RowsSkipped++
				continue
			}
			summary.TablesUpdated++
		}
		// Guest rows key on ref code; column 6 is the auction flag.
		for _, row := range guestRows {
			refCode, ok := cell(row, 0)
			if !ok {
				summary.RowsSkipped++
				continue
			}
			flagRaw, ok := cell(row, 6)
			if !ok {
				summary.RowsSkipped++
				continue
			}
			flag, err := strconv.ParseBool(strings.ToLower(flagRaw))
			if err != nil {
				summary.RowsSkipped++
				continue
			}
			result := tx.WithContext(ctx).Model(&models.GuestAssignment{}).
				Where("event_id = ? AND ref_code = ?", event.ID, refCode).
				Update("auction_registered", flag)
			if result.Error != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "applying guest override")
			}
			if result.RowsAffected == 0 {
				summary.RowsSkipped++
				continue
			}
			summary.GuestsUpdated++
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			OrganizationID: event.OrganizationID,
			EventID:        &event.ID,
			ActorUserID:    actor.UserID,
			Action:         enums.AuditExportGenerated,
			EntityType:     "event",
			EntityID:       event.ID,
			Metadata: map[string]any{
				"direction":      "import",
				"tables_updated": summary.TablesUpdated,
				"guests_updated": summary.GuestsUpdated,
				"rows_skipped":   summary.RowsSkipped,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *service) listTables(ctx context.Context, eventID uuid.UUID) ([]models.Table, error) {
	var tables []models.Table
	err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("code ASC").
		Find(&tables).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing tables")
	}
	return tables, nil
}

func (s *service) findEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	if eventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}
	var event models.Event
	if err := s.db.WithContext(ctx).Where("id = ?", eventID).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading event")
	}
	return &event, nil
}

func cell(row []interface{}, index int) (string, bool) {
	if index >= len(row) {
		return "", false
	}
	value := strings.TrimSpace(fmt.Sprint(row[index]))
	return value, value != ""
}

func bidderCell(value *int) string {
	if value == nil {
		return ""
	}
	return strconv.Itoa(*value)
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
