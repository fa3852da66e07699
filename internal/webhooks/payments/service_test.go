package paymentswebhook

import (
	"context"
	"sync"
	"testing"

	"github.com/jkhalligan/gala-ticket-platform/internal/orders"
	pkgerrors "github.com/jkhalligan/gala-ticket-platform/pkg/errors"
)

type fakeConfirmer struct {
	mu     sync.Mutex
	inputs []orders.ConfirmationInput
	err    error
}

func (f *fakeConfirmer) ConfirmGatewayEvent(ctx context.Context, input orders.ConfirmationInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, input)
	return f.err
}

type fakeProbe struct {
	seen bool
}

func (f *fakeProbe) Seen(ctx context.Context, consumer, eventID string) (bool, error) {
	return f.seen, nil
}

func paymentEvent(eventID, eventType, chargeRef, status string) *GatewayEvent {
	return &GatewayEvent{
		EventID: eventID,
		Type:    eventType,
		Data: GatewayEventData{
			Type: "payment",
			ID:   chargeRef,
			Object: GatewayEventObject{
				Payment: &GatewayPayment{ID: chargeRef, Status: status},
			},
		},
	}
}

func TestHandleEvent_CompletedPayment(t *testing.T) {
	confirmer := &fakeConfirmer{}
	svc, err := NewService(confirmer, &fakeProbe{}, nil, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	err = svc.HandleEvent(context.Background(), paymentEvent("evt_1", "payment.updated", "chg_001", "COMPLETED"))
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(confirmer.inputs) != 1 {
		t.Fatalf("expected one confirmation, got %d", len(confirmer.inputs))
	}
	got := confirmer.inputs[0]
	if got.GatewayEventID != "evt_1" || got.ChargeRef != "chg_001" || !got.Succeeded {
		t.Fatalf("unexpected confirmation input: %+v", got)
	}
}

func TestHandleEvent_FailedPayment(t *testing.T) {
	confirmer := &fakeConfirmer{}
	svc, _ := NewService(confirmer, nil, nil, nil)

	err := svc.HandleEvent(context.Background(), paymentEvent("evt_2", "payment.updated", "chg_002", "FAILED"))
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(confirmer.inputs) != 1 || confirmer.inputs[0].Succeeded {
		t.Fatalf("expected one failed confirmation, got %+v", confirmer.inputs)
	}
}

func TestHandleEvent_NonTerminalStatusIgnored(t *testing.T) {
	confirmer := &fakeConfirmer{}
	svc, _ := NewService(confirmer, nil, nil, nil)

	for _, status := range []string{"APPROVED", "PENDING"} {
		if err := svc.HandleEvent(context.Background(), paymentEvent("evt_3", "payment.updated", "chg_003", status)); err != nil {
			t.Fatalf("HandleEvent(%s): %v", status, err)
		}
	}
	if len(confirmer.inputs) != 0 {
		t.Fatalf("expected no confirmations for non-terminal statuses, got %d", len(confirmer.inputs))
	}
}

func TestHandleEvent_UnrelatedEventTypeIgnored(t *testing.T) {
	confirmer := &fakeConfirmer{}
	svc, _ := NewService(confirmer, nil, nil, nil)

	event := &GatewayEvent{EventID: "evt_4", Type: "refund.updated"}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(confirmer.inputs) != 0 {
		t.Fatal("expected unrelated event types to be acknowledged without side effects")
	}
}

func TestHandleEvent_MissingPaymentPayload(t *testing.T) {
	confirmer := &fakeConfirmer{}
	svc, _ := NewService(confirmer, nil, nil, nil)

	event := &GatewayEvent{EventID: "evt_5", Type: "payment.updated"}
	err := svc.HandleEvent(context.Background(), event)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHandleEvent_FallsBackToDataID(t *testing.T) {
	confirmer := &fakeConfirmer{}
	svc, _ := NewService(confirmer, nil, nil, nil)

	event := paymentEvent("", "payment.updated", "chg_006", "COMPLETED")
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if confirmer.inputs[0].GatewayEventID != "chg_006" {
		t.Fatalf("expected data id fallback, got %q", confirmer.inputs[0].GatewayEventID)
	}
}

func TestHandleEvent_PropagatesConfirmationError(t *testing.T) {
	confirmer := &fakeConfirmer{err: pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot transition")}
	svc, _ := NewService(confirmer, nil, nil, nil)

	err := svc.HandleEvent(context.Background(), paymentEvent("evt_7", "payment.updated", "chg_007", "COMPLETED"))
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict to propagate, got %v", err)
	}
}
