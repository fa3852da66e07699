package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/jkhalligan/gala-ticket-platform/api/responses"
	"github.com/jkhalligan/gala-ticket-platform/api/validators"
	"github.com/jkhalligan/gala-ticket-platform/internal/tables"
	"github.com/jkhalligan/gala-ticket-platform/pkg/enums"
	pkgerrors "github.com/jkhalligan/gala-ticket-platform/pkg/errors"
	"github.com/jkhalligan/gala-ticket-platform/pkg/logger"
)

type tableCreateRequest struct {
	EventID         uuid.UUID `json:"event_id" validate:"required"`
	OwnerUserID     uuid.UUID `json:"owner_user_id" validate:"required"`
	Type            string    `json:"type" validate:"required,oneof=PREPAID CAPTAIN_PAYG"`
	Capacity        int       `json:"capacity" validate:"required,min=1"`
	Name            *string   `json:"name,omitempty" validate:"omitempty,max=200"`
	SeatPriceCents  *int64    `json:"seat_price_cents,omitempty" validate:"omitempty,min=0"`
	TotalPriceCents *int64    `json:"total_price_cents,omitempty" validate:"omitempty,min=0"`
}

type tableUpdateRequest struct {
	Name            *string `json:"name,omitempty" validate:"omitempty,max=200"`
	SeatPriceCents  *int64  `json:"seat_price_cents,omitempty" validate:"omitempty,min=0"`
	TotalPriceCents *int64  `json:"total_price_cents,omitempty" validate:"omitempty,min=0"`
	Status          *string `json:"status,omitempty" validate:"omitempty,oneof=ACTIVE CLOSED ARCHIVED"`
	Capacity        *int    `json:"capacity,omitempty" validate:"omitempty,min=1"`
	DisplayNumber   *string `json:"display_number,omitempty" validate:"omitempty,max=20"`
}

type roleGrantRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	Role   string    `json:"role" validate:"required,oneof=CO_OWNER CAPTAIN MANAGER"`
}

func TableCreate(svc tables.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tables service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload tableCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		table, err := svc.Create(r.Context(), tables.CreateInput{
			EventID:         payload.EventID,
			OwnerUserID:     payload.OwnerUserID,
			Type:            enums.TableType(payload.Type),
			Capacity:        payload.Capacity,
			Name:            payload.Name,
			SeatPriceCents:  payload.SeatPriceCents,
			TotalPriceCents: payload.TotalPriceCents,
		}, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, table)
	}
}

func TableGet(svc tables.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tableID, err := validators.ParseURLUUID(r, "tableId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Get(r.Context(), tableID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func TableList(svc tables.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, err := validators.ParseURLUUID(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListByEvent(r.Context(), eventID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func TableUpdate(svc tables.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tableID, err := validators.ParseURLUUID(r, "tableId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload tableUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := tables.UpdateInput{
			Name:            payload.Name,
			SeatPriceCents:  payload.SeatPriceCents,
			TotalPriceCents: payload.TotalPriceCents,
			Capacity:        payload.Capacity,
			DisplayNumber:   payload.DisplayNumber,
		}
		if payload.Status != nil {
			status := enums.TableStatus(*payload.Status)
			input.Status = &status
		}

		table, err := svc.Update(r.Context(), tableID, input, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, table)
	}
}

func TableDelete(svc tables.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tableID, err := validators.ParseURLUUID(r, "tableId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), tableID, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

func RoleGrant(svc tables.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tableID, err := validators.ParseURLUUID(r, "tableId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload roleGrantRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.GrantRole(r.Context(), tables.GrantRoleInput{
			TableID: tableID,
			UserID:  payload.UserID,
			Role:    enums.TableRole(payload.Role),
		}, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, nil)
	}
}

func RoleRevoke(svc tables.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tableID, err := validators.ParseURLUUID(r, "tableId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := validators.ParseURLUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.RevokeRole(r.Context(), tableID, userID, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

func RoleList(svc tables.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tableID, err := validators.ParseURLUUID(r, "tableId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		roles, err := svc.ListRoles(r.Context(), tableID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, roles)
	}
}
