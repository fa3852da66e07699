package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jkhalligan/gala-ticket-platform/api/responses"
	"github.com/jkhalligan/gala-ticket-platform/api/validators"
	"github.com/jkhalligan/gala-ticket-platform/internal/guests"
	pkgerrors "github.com/jkhalligan/gala-ticket-platform/pkg/errors"
	"github.com/jkhalligan/gala-ticket-platform/pkg/logger"
)

type guestAddRequest struct {
	OrderID     uuid.UUID  `json:"order_id" validate:"required"`
	TableID     *uuid.UUID `json:"table_id,omitempty"`
	GuestUserID uuid.UUID  `json:"guest_user_id" validate:"required"`
	DisplayName *string    `json:"display_name,omitempty" validate:"omitempty,max=200"`
	Dietary     *string    `json:"dietary,omitempty" validate:"omitempty,max=500"`
}

type guestUpdateRequest struct {
	DisplayName       *string `json:"display_name,omitempty" validate:"omitempty,max=200"`
	Dietary           *string `json:"dietary,omitempty" validate:"omitempty,max=500"`
	BidderNumber      *int    `json:"bidder_number,omitempty" validate:"omitempty,min=1"`
	AuctionRegistered *bool   `json:"auction_registered,omitempty"`
}

type guestMoveRequest struct {
	TableID uuid.UUID `json:"table_id" validate:"required"`
}

type guestTransferRequest struct {
	NewUserID uuid.UUID `json:"new_user_id" validate:"required"`
}

type guestCheckInRequest struct {
	RefCode string `json:"ref_code" validate:"required,max=20"`
}

func GuestAdd(svc guests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "guests service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload guestAddRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignment, err := svc.Add(r.Context(), guests.AddInput{
			OrderID:     payload.OrderID,
			TableID:     payload.TableID,
			GuestUserID: payload.GuestUserID,
			DisplayName: payload.DisplayName,
			Dietary:     payload.Dietary,
		}, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, assignment)
	}
}

func GuestGet(svc guests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assignmentID, err := validators.ParseURLUUID(r, "assignmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		assignment, err := svc.Get(r.Context(), assignmentID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assignment)
	}
}

func GuestListByTable(svc guests.Service, logg *logger.Logger) http.HandlerFunc {
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
		list, err := svc.ListByTable(r.Context(), tableID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func GuestUpdate(svc guests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assignmentID, err := validators.ParseURLUUID(r, "assignmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload guestUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignment, err := svc.Update(r.Context(), assignmentID, guests.UpdateInput{
			DisplayName:       payload.DisplayName,
			Dietary:           payload.Dietary,
			BidderNumber:      payload.BidderNumber,
			AuctionRegistered: payload.AuctionRegistered,
		}, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assignment)
	}
}

func GuestRemove(svc guests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assignmentID, err := validators.ParseURLUUID(r, "assignmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Remove(r.Context(), assignmentID, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

// GuestReassign moves a seated guest to another table. Admin only; the
// service enforces it.
func GuestReassign(svc guests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assignmentID, err := validators.ParseURLUUID(r, "assignmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload guestMoveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignment, err := svc.Reassign(r.Context(), assignmentID, payload.TableID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assignment)
	}
}

func GuestTransfer(svc guests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assignmentID, err := validators.ParseURLUUID(r, "assignmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload guestTransferRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignment, err := svc.Transfer(r.Context(), assignmentID, payload.NewUserID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assignment)
	}
}

func GuestCheckIn(svc guests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assignmentID, err := validators.ParseURLUUID(r, "assignmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		assignment, err := svc.CheckIn(r.Context(), assignmentID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assignment)
	}
}

// GuestCheckInByRefCode is the door scanner path: staff look a ticket up by
// its printed reference code.
func GuestCheckInByRefCode(svc guests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload guestCheckInRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignment, err := svc.CheckInByRefCode(r.Context(), strings.ToUpper(strings.TrimSpace(payload.RefCode)), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assignment)
	}
}
