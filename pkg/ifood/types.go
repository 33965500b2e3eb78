package ifood

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// TokenProvider supplies marketplace bearer tokens. An empty merchantID asks
// for the application-level token used by the polling endpoint.
type TokenProvider interface {
	Token(ctx context.Context, merchantID string) (string, error)
}

// Event is one entry from the polling endpoint or the webhook. The payload
// shape varies across event groups, so the raw body rides along.
type Event struct {
	ID         string          `json:"id"`
	Code       string          `json:"code"`
	FullCode   string          `json:"fullCode"`
	MerchantID string          `json:"merchantId"`
	OrderID    string          `json:"orderId"`
	CreatedAt  time.Time       `json:"createdAt"`
	Raw        json.RawMessage `json:"-"`
}

// PollOptions narrows which events the polling endpoint returns.
type PollOptions struct {
	Types     []string
	Groups    []string
	Merchants []string
}

// OrderDetail is the full order payload fetched after an event arrives.
type OrderDetail struct {
	ID          string            `json:"id"`
	DisplayID   string            `json:"displayId"`
	MerchantID  string            `json:"-"`
	CreatedAt   time.Time         `json:"createdAt"`
	OrderStatus string            `json:"orderStatus"`
	Customer    OrderCustomer     `json:"customer"`
	Delivery    *OrderDelivery    `json:"delivery"`
	Items       []OrderDetailItem `json:"items"`
	Total       OrderTotal        `json:"total"`
}

type OrderCustomer struct {
	Name           string     `json:"name"`
	DocumentNumber string     `json:"documentNumber"`
	Phone          OrderPhone `json:"phone"`
}

type OrderPhone struct {
	Number string `json:"number"`
}

type OrderDelivery struct {
	DeliveryAddress OrderAddress `json:"deliveryAddress"`
}

type OrderAddress struct {
	FormattedAddress string `json:"formattedAddress"`
	City             string `json:"city"`
}

type OrderDetailItem struct {
	ID           string          `json:"id"`
	UniqueID     string          `json:"uniqueId"`
	ExternalCode string          `json:"externalCode"`
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
}

// ItemKey returns the stable per-line identifier. Older payloads lack
// uniqueId, some drop id as well; the external code is the last resort so a
// line never ends up keyless.
func (i OrderDetailItem) ItemKey() string {
	if i.UniqueID != "" {
		return i.UniqueID
	}
	if i.ID != "" {
		return i.ID
	}
	return i.ExternalCode
}

type OrderTotal struct {
	SubTotal    decimal.Decimal `json:"subTotal"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	OrderAmount decimal.Decimal `json:"orderAmount"`
}

// StockItem is one published availability figure.
type StockItem struct {
	ExternalCode string `json:"externalCode"`
	Amount       int    `json:"amount"`
}

// ProductStatusChange flips one catalog item between AVAILABLE/UNAVAILABLE.
type ProductStatusChange struct {
	ExternalCode string `json:"externalCode"`
	Status       string `json:"status"`
}

type batchAccepted struct {
	BatchID string `json:"batchId"`
}

// BatchResult reports the per-item outcome of a status batch.
type BatchResult struct {
	BatchID string            `json:"batchId"`
	Status  string            `json:"status"`
	Items   []BatchItemResult `json:"items"`
}

type BatchItemResult struct {
	ExternalCode string `json:"externalCode"`
	Status       string `json:"status"`
	Reason       string `json:"reason"`
}

const (
	// batch terminal states
	BatchStatusCompleted  = "COMPLETED"
	BatchStatusProcessing = "PROCESSING"

	// per-item outcomes
	BatchItemSuccess = "SUCCESS"
)

type ackEntry struct {
	ID string `json:"id"`
}
