package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hubfood/ifood-erp-sync/internal/events"
	"github.com/hubfood/ifood-erp-sync/pkg/logger"
)

type fakeIntake struct {
	processed []events.Envelope
	err       error
}

func (f *fakeIntake) Process(_ context.Context, env events.Envelope) error {
	if f.err != nil {
		return f.err
	}
	f.processed = append(f.processed, env)
	return nil
}

type fakeSecrets struct {
	byMerchant map[string]string
	fallback   string
}

func (f *fakeSecrets) WebhookSecret(_ context.Context, merchantID string) (string, error) {
	if secret, ok := f.byMerchant[merchantID]; ok {
		return secret, nil
	}
	return f.fallback, nil
}

func sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(t *testing.T, intake *fakeIntake, secrets *fakeSecrets, payload []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	handler := IFoodWebhook(intake, secrets, logger.New(logger.Options{ServiceName: "test"}))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/ifood", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set("X-Ifood-Signature", signature)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestWebhookAcceptsSignedEvent(t *testing.T) {
	payload := []byte(`{"id":"ev-1","code":"PLC","merchantId":"m1","orderId":"o1"}`)
	intake := &fakeIntake{}
	secrets := &fakeSecrets{fallback: "shared-secret"}

	rec := postWebhook(t, intake, secrets, payload, sign(payload, "shared-secret"))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, intake.processed, 1)
	require.Equal(t, "ev-1", intake.processed[0].EventID)
	require.Equal(t, events.SourceWebhook, intake.processed[0].Source)
}

func TestWebhookRejectsTamperedSignature(t *testing.T) {
	payload := []byte(`{"id":"ev-1","code":"PLC","merchantId":"m1","orderId":"o1"}`)
	intake := &fakeIntake{}
	secrets := &fakeSecrets{fallback: "shared-secret"}

	rec := postWebhook(t, intake, secrets, payload, sign([]byte("other body"), "shared-secret"))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, intake.processed)
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	payload := []byte(`{"id":"ev-1","code":"PLC","merchantId":"m1","orderId":"o1"}`)
	intake := &fakeIntake{}
	secrets := &fakeSecrets{fallback: "shared-secret"}

	rec := postWebhook(t, intake, secrets, payload, "")

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, intake.processed)
}

func TestWebhookUsesMerchantSecretOverFallback(t *testing.T) {
	payload := []byte(`{"id":"ev-1","code":"CFM","merchantId":"m1","orderId":"o1"}`)
	intake := &fakeIntake{}
	secrets := &fakeSecrets{
		byMerchant: map[string]string{"m1": "merchant-secret"},
		fallback:   "shared-secret",
	}

	rejected := postWebhook(t, intake, secrets, payload, sign(payload, "shared-secret"))
	require.Equal(t, http.StatusUnauthorized, rejected.Code)

	accepted := postWebhook(t, intake, secrets, payload, sign(payload, "merchant-secret"))
	require.Equal(t, http.StatusAccepted, accepted.Code)
	require.Len(t, intake.processed, 1)
}

func TestWebhookChecksSignatureBeforeParsing(t *testing.T) {
	// enough body to pick a secret, nowhere near a valid event
	payload := []byte(`{"merchantId":"m1"}`)
	intake := &fakeIntake{}
	secrets := &fakeSecrets{fallback: "shared-secret"}

	rec := postWebhook(t, intake, secrets, payload, sign([]byte("tampered"), "shared-secret"))

	// a bad signature wins over the malformed event: 401, never 400
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, intake.processed)
}

func TestWebhookRejectsUnparseablePayload(t *testing.T) {
	payload := []byte(`{"code":"PLC"}`)
	intake := &fakeIntake{}
	secrets := &fakeSecrets{fallback: "shared-secret"}

	rec := postWebhook(t, intake, secrets, payload, sign(payload, "shared-secret"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, intake.processed)
}
