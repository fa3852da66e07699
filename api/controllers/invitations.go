package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jkhalligan/gala-ticket-platform/api/responses"
	"github.com/jkhalligan/gala-ticket-platform/api/validators"
	"github.com/jkhalligan/gala-ticket-platform/internal/orders"
	pkgerrors "github.com/jkhalligan/gala-ticket-platform/pkg/errors"
	"github.com/jkhalligan/gala-ticket-platform/pkg/logger"
	"github.com/jkhalligan/gala-ticket-platform/pkg/metrics"
)

type invitationCreateRequest struct {
	EventID       uuid.UUID  `json:"event_id" validate:"required"`
	ProductID     uuid.UUID  `json:"product_id" validate:"required"`
	TableID       *uuid.UUID `json:"table_id,omitempty"`
	InviteeUserID uuid.UUID  `json:"invitee_user_id" validate:"required"`
	Quantity      int        `json:"quantity" validate:"required,min=1"`
	InvitedEmail  string     `json:"invited_email" validate:"required,email"`
}

type invitationPayRequest struct {
	PaymentSourceID string `json:"payment_source_id,omitempty" validate:"omitempty,max=200"`
	BuyerEmail      string `json:"buyer_email,omitempty" validate:"omitempty,email"`
}

// InvitationCreate issues a payment link for an invitee. Admin only; the
// service enforces it.
func InvitationCreate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload invitationCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Invite(r.Context(), orders.InviteInput{
			EventID:       payload.EventID,
			ProductID:     payload.ProductID,
			TableID:       payload.TableID,
			InviteeUserID: payload.InviteeUserID,
			Quantity:      payload.Quantity,
			InvitedEmail:  payload.InvitedEmail,
		}, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// InvitationAccess resolves a payment link token. Unauthenticated; the token
// is the credential.
func InvitationAccess(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(chi.URLParam(r, "token"))
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invitation token required"))
			return
		}
		order, err := svc.AccessInvitation(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// InvitationPay redeems a payment link.
func InvitationPay(svc orders.Service, m *metrics.CheckoutMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(chi.URLParam(r, "token"))
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invitation token required"))
			return
		}

		var payload invitationPayRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		start := time.Now()
		result, err := svc.PayInvitation(r.Context(), token, orders.PayInvitationInput{
			PaymentSourceID: payload.PaymentSourceID,
			BuyerEmail:      payload.BuyerEmail,
		})
		m.ObserveDuration("invitation", time.Since(start))
		if err != nil {
			m.IncFailure("invitation", string(pkgerrors.As(err).Code()))
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		m.IncSuccess("invitation")
		responses.WriteSuccess(w, result)
	}
}

func InvitationCancel(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.CancelInvitation(r.Context(), orderID, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}
