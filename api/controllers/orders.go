package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jkhalligan/gala-ticket-platform/api/responses"
	"github.com/jkhalligan/gala-ticket-platform/api/validators"
	"github.com/jkhalligan/gala-ticket-platform/internal/orders"
	pkgerrors "github.com/jkhalligan/gala-ticket-platform/pkg/errors"
	"github.com/jkhalligan/gala-ticket-platform/pkg/logger"
	"github.com/jkhalligan/gala-ticket-platform/pkg/metrics"
)

type checkoutRequest struct {
	EventID         uuid.UUID  `json:"event_id" validate:"required"`
	ProductID       uuid.UUID  `json:"product_id" validate:"required"`
	TableID         *uuid.UUID `json:"table_id,omitempty"`
	Quantity        int        `json:"quantity" validate:"required,min=1"`
	PromoCode       *string    `json:"promo_code,omitempty" validate:"omitempty,max=50"`
	PaymentSourceID string     `json:"payment_source_id,omitempty" validate:"omitempty,max=200"`
	BuyerEmail      string     `json:"buyer_email,omitempty" validate:"omitempty,email"`
}

// Checkout creates an order for the authenticated buyer, charging the
// gateway unless the quote comes to zero.
func Checkout(svc orders.Service, m *metrics.CheckoutMetrics, logg *logger.Logger) http.HandlerFunc {
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

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		start := time.Now()
		result, err := svc.Checkout(r.Context(), orders.CheckoutInput{
			EventID:         payload.EventID,
			ProductID:       payload.ProductID,
			TableID:         payload.TableID,
			Quantity:        payload.Quantity,
			PromoCode:       payload.PromoCode,
			PaymentSourceID: payload.PaymentSourceID,
			BuyerEmail:      payload.BuyerEmail,
		}, actor)
		m.ObserveDuration("checkout", time.Since(start))
		if err != nil {
			m.IncFailure("checkout", string(pkgerrors.As(err).Code()))
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		m.IncSuccess("checkout")
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func OrderGet(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
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
		order, err := svc.Get(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrderListMine lists the caller's own orders.
func OrderListMine(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListByUser(r.Context(), actor.UserID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func OrderListByEvent(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
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
		list, err := svc.ListByEvent(r.Context(), eventID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// OrderRefund refunds a completed order in full. Assignments stay seated.
func OrderRefund(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
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
		order, err := svc.Refund(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
