package controllers

import (
	"net/http"

	"github.com/jkhalligan/gala-ticket-platform/api/responses"
	"github.com/jkhalligan/gala-ticket-platform/api/validators"
	"github.com/jkhalligan/gala-ticket-platform/internal/export"
	"github.com/jkhalligan/gala-ticket-platform/pkg/logger"
)

// ExportRun pushes the current event snapshot to the configured sheet.
func ExportRun(svc export.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, err := validators.ParseURLUUID(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.Export(r.Context(), eventID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// ExportImport reads whitelisted override columns back from the sheet.
func ExportImport(svc export.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, err := validators.ParseURLUUID(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.ImportOverrides(r.Context(), eventID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
