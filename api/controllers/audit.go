package controllers

import (
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/jkhalligan/gala-ticket-platform/api/responses"
	"github.com/jkhalligan/gala-ticket-platform/api/validators"
	"github.com/jkhalligan/gala-ticket-platform/internal/audit"
	"github.com/jkhalligan/gala-ticket-platform/pkg/db/models"
	"github.com/jkhalligan/gala-ticket-platform/pkg/logger"
	"github.com/jkhalligan/gala-ticket-platform/pkg/pagination"
)

type auditListResponse struct {
	Entries    []models.ActivityLog `json:"entries"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

// AuditList pages through an event's activity log, newest first.
func AuditList(rec *audit.Recorder, db *gorm.DB, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, err := validators.ParseURLUUID(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		identity, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		rows, next, err := rec.List(r.Context(), db, audit.ListFilter{
			OrganizationID: identity.OrganizationID,
			EventID:        &eventID,
			EntityType:     strings.TrimSpace(r.URL.Query().Get("entity_type")),
		}, pagination.Params{Limit: limit, Cursor: cursor})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := auditListResponse{Entries: rows}
		if next != nil {
			out.NextCursor = pagination.EncodeCursor(*next)
		}
		responses.WriteSuccess(w, out)
	}
}
