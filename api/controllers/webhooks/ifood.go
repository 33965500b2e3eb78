package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/hubfood/ifood-erp-sync/api/responses"
	"github.com/hubfood/ifood-erp-sync/internal/events"
	pkgerrors "github.com/hubfood/ifood-erp-sync/pkg/errors"
	"github.com/hubfood/ifood-erp-sync/pkg/logger"
)

const (
	signatureHeader = "X-Ifood-Signature"
	maxBodyBytes    = 1 << 20
)

type eventIntake interface {
	Process(ctx context.Context, env events.Envelope) error
}

type secretSource interface {
	WebhookSecret(ctx context.Context, merchantID string) (string, error)
}

// IFoodWebhook receives marketplace order events. The signature is checked
// against the exact raw body before the event is parsed or processed; only
// the merchant id is peeked beforehand to pick the right secret.
func IFoodWebhook(intake eventIntake, secrets secretSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if intake == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "event intake unavailable"))
			return
		}
		if secrets == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "secret source unavailable"))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get(signatureHeader)
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature missing"))
			return
		}

		secret, err := secrets.WebhookSecret(ctx, peekMerchantID(payload))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve webhook secret"))
			return
		}

		if !validateSignature(payload, secret, sigHeader) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		env, err := events.NormalizeWebhook(payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := intake.Process(ctx, *env); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}

// peekMerchantID pulls just the merchant id out of the raw body so the
// per-merchant secret can be resolved; nothing else is trusted until the
// signature over the exact bytes checks out. A body that does not even yield
// a merchant id falls through to the platform secret.
func peekMerchantID(payload []byte) string {
	var peek struct {
		MerchantID string `json:"merchantId"`
		Merchant   struct {
			ID string `json:"id"`
		} `json:"merchant"`
	}
	if err := json.Unmarshal(payload, &peek); err != nil {
		return ""
	}
	if peek.MerchantID != "" {
		return peek.MerchantID
	}
	return peek.Merchant.ID
}

func validateSignature(payload []byte, secret, header string) bool {
	if header == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}
