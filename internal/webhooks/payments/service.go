package paymentswebhook

import (
	"context"
	"strings"

	"github.com/jkhalligan/gala-ticket-platform/internal/orders"
	pkgerrors "github.com/jkhalligan/gala-ticket-platform/pkg/errors"
	"github.com/jkhalligan/gala-ticket-platform/pkg/logger"
	"github.com/jkhalligan/gala-ticket-platform/pkg/metrics"
)

// Consumer is the idempotency scope shared with the order lifecycle; both
// sides key processed marks on the gateway event id under this name.
const Consumer = "payments-webhook"

type orderConfirmer interface {
	ConfirmGatewayEvent(ctx context.Context, input orders.ConfirmationInput) error
}

// duplicateProbe peeks at the processed log without marking anything. The
// authoritative check-and-mark stays inside the order lifecycle; this only
// feeds the duplicate counter.
type duplicateProbe interface {
	Seen(ctx context.Context, consumer, eventID string) (bool, error)
}

// Service translates raw gateway payment events into order confirmations.
type Service struct {
	orders  orderConfirmer
	probe   duplicateProbe
	metrics *metrics.WebhookMetrics
	logg    *logger.Logger
}

func NewService(confirmer orderConfirmer, probe duplicateProbe, m *metrics.WebhookMetrics, logg *logger.Logger) (*Service, error) {
	if confirmer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order confirmer required")
	}
	return &Service{
		orders:  confirmer,
		probe:   probe,
		metrics: m,
		logg:    logg,
	}, nil
}

// GatewayEvent mirrors the envelope Square posts to webhook subscriptions.
type GatewayEvent struct {
	EventID string           `json:"event_id"`
	Type    string           `json:"type"`
	Data    GatewayEventData `json:"data"`
}

type GatewayEventData struct {
	Type   string             `json:"type"`
	ID     string             `json:"id"`
	Object GatewayEventObject `json:"object"`
}

type GatewayEventObject struct {
	Payment *GatewayPayment `json:"payment"`
}

type GatewayPayment struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// HandleEvent maps a gateway payment event onto the order lifecycle. Events
// that are not payments, or whose status is not terminal, are acknowledged
// without side effects so the gateway stops redelivering them.
func (s *Service) HandleEvent(ctx context.Context, event *GatewayEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "gateway event required")
	}
	s.metrics.IncReceived(event.Type)

	switch strings.ToLower(event.Type) {
	case "payment.created", "payment.updated":
	default:
		s.log(ctx, "ignoring gateway event", map[string]any{"event_type": event.Type})
		return nil
	}

	payment := event.Data.Object.Payment
	if payment == nil || payment.ID == "" {
		s.metrics.IncFailed(event.Type)
		return pkgerrors.New(pkgerrors.CodeValidation, "payment payload missing")
	}

	var succeeded bool
	switch strings.ToUpper(payment.Status) {
	case "COMPLETED":
		succeeded = true
	case "FAILED", "CANCELED":
		succeeded = false
	default:
		// APPROVED and PENDING precede a terminal status; wait for it.
		s.log(ctx, "gateway payment not terminal yet", map[string]any{
			"charge_ref": payment.ID,
			"status":     payment.Status,
		})
		return nil
	}

	eventID := strings.TrimSpace(event.EventID)
	if eventID == "" {
		eventID = event.Data.ID
	}

	if s.probe != nil {
		if seen, err := s.probe.Seen(ctx, Consumer, eventID); err == nil && seen {
			s.metrics.IncDuplicate()
		}
	}

	err := s.orders.ConfirmGatewayEvent(ctx, orders.ConfirmationInput{
		GatewayEventID: eventID,
		ChargeRef:      payment.ID,
		Succeeded:      succeeded,
	})
	if err != nil {
		s.metrics.IncFailed(event.Type)
		return err
	}
	s.log(ctx, "gateway event applied", map[string]any{
		"gateway_event_id": eventID,
		"charge_ref":       payment.ID,
		"succeeded":        succeeded,
	})
	return nil
}

func (s *Service) log(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), msg)
}
