package events

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	pkgerrors "github.com/hubfood/ifood-erp-sync/pkg/errors"
	"github.com/hubfood/ifood-erp-sync/pkg/ifood"
)

// Source labels where an event entered the pipeline.
const (
	SourceWebhook = "webhook"
	SourcePolling = "polling"
)

// Envelope is the normalized form of an order event, whichever door it came
// through.
type Envelope struct {
	MerchantID string
	EventID    string
	Code       string
	FullCode   string
	OrderID    string
	CreatedAt  time.Time
	Source     string
	Raw        []byte
}

// PayloadHash fingerprints the raw body for audit and replay comparison.
func (e Envelope) PayloadHash() string {
	sum := sha256.Sum256(e.Raw)
	return hex.EncodeToString(sum[:])
}

// webhookPayload tolerates the field-name drift seen across marketplace
// webhook versions.
type webhookPayload struct {
	ID         string `json:"id"`
	EventID    string `json:"eventId"`
	Code       string `json:"code"`
	Type       string `json:"type"`
	FullCode   string `json:"fullCode"`
	MerchantID string `json:"merchantId"`
	Merchant   struct {
		ID string `json:"id"`
	} `json:"merchant"`
	OrderID    string    `json:"orderId"`
	ResourceID string    `json:"resourceId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NormalizeWebhook parses a webhook body into an envelope, reconciling the
// alternate field names.
func NormalizeWebhook(raw []byte) (*Envelope, error) {
	var payload webhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parsing webhook payload")
	}

	env := &Envelope{
		MerchantID: firstNonEmpty(payload.MerchantID, payload.Merchant.ID),
		EventID:    firstNonEmpty(payload.ID, payload.EventID),
		Code:       strings.ToUpper(firstNonEmpty(payload.Code, payload.Type)),
		FullCode:   payload.FullCode,
		OrderID:    firstNonEmpty(payload.OrderID, payload.ResourceID),
		CreatedAt:  payload.CreatedAt,
		Source:     SourceWebhook,
		Raw:        raw,
	}

	if env.MerchantID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook payload missing merchant id")
	}
	if env.EventID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook payload missing event id")
	}
	return env, nil
}

// FromPolled converts a polled event into an envelope.
func FromPolled(ev ifood.Event) Envelope {
	return Envelope{
		MerchantID: ev.MerchantID,
		EventID:    ev.ID,
		Code:       strings.ToUpper(ev.Code),
		FullCode:   ev.FullCode,
		OrderID:    ev.OrderID,
		CreatedAt:  ev.CreatedAt,
		Source:     SourcePolling,
		Raw:        ev.Raw,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
