package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	paymentswebhook "github.com/jkhalligan/gala-ticket-platform/internal/webhooks/payments"
	"github.com/jkhalligan/gala-ticket-platform/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestSquareWebhook_VerifiesAndDispatches(t *testing.T) {
	payload := buildPaymentEvent(t, "payment.updated", "COMPLETED")
	header := buildSquareSignature(payload, "secret")
	service := &fakePaymentsWebhookService{}
	handler := SquareWebhook(service, &fakeSigningClient{secret: "secret"}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/square", bytes.NewReader(payload))
	req.Header.Set("Square-Signature", header)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, 1, service.calls)
	require.NotNil(t, service.last)
	require.NotNil(t, service.last.Data.Object.Payment)
	require.Equal(t, "COMPLETED", service.last.Data.Object.Payment.Status)
}

func TestSquareWebhook_InvalidSignature(t *testing.T) {
	payload := buildPaymentEvent(t, "payment.created", "COMPLETED")
	service := &fakePaymentsWebhookService{}
	handler := SquareWebhook(service, &fakeSigningClient{secret: "secret"}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/square", bytes.NewReader(payload))
	req.Header.Set("Square-Signature", "invalid")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Zero(t, service.calls)
}

func TestSquareWebhook_MissingSignature(t *testing.T) {
	payload := buildPaymentEvent(t, "payment.created", "COMPLETED")
	service := &fakePaymentsWebhookService{}
	handler := SquareWebhook(service, &fakeSigningClient{secret: "secret"}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/square", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, service.calls)
}

func buildPaymentEvent(t *testing.T, eventType, status string) []byte {
	event := &paymentswebhook.GatewayEvent{
		EventID: "evt_" + uuid.NewString(),
		Type:    eventType,
		Data: paymentswebhook.GatewayEventData{
			Type: "payment",
			ID:   "pay_" + uuid.NewString(),
			Object: paymentswebhook.GatewayEventObject{
				Payment: &paymentswebhook.GatewayPayment{
					ID:     "pay_" + uuid.NewString(),
					Status: status,
				},
			},
		},
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return payload
}

func buildSquareSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

type fakePaymentsWebhookService struct {
	calls int
	last  *paymentswebhook.GatewayEvent
}

func (f *fakePaymentsWebhookService) HandleEvent(ctx context.Context, event *paymentswebhook.GatewayEvent) error {
	f.calls++
	f.last = event
	return nil
}

type fakeSigningClient struct {
	secret string
}

func (c *fakeSigningClient) SigningSecret() string {
	return c.secret
}
