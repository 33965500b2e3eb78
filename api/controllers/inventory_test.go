package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hubfood/ifood-erp-sync/internal/inventory"
	"github.com/hubfood/ifood-erp-sync/pkg/enums"
	"github.com/hubfood/ifood-erp-sync/pkg/logger"
)

type fakeInventory struct {
	adjusts []inventory.AdjustParams
}

func (f *fakeInventory) Reserve(_ context.Context, _ inventory.ReserveParams) (inventory.Result, error) {
	return inventory.Result{}, nil
}

func (f *fakeInventory) Cancel(_ context.Context, _ inventory.ReservationKey) (inventory.Result, error) {
	return inventory.Result{}, nil
}

func (f *fakeInventory) Consume(_ context.Context, _ inventory.ReservationKey) (inventory.Result, error) {
	return inventory.Result{}, nil
}

func (f *fakeInventory) AdjustOnHand(_ context.Context, params inventory.AdjustParams) error {
	f.adjusts = append(f.adjusts, params)
	return nil
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestAdjustStockDefaultsReason(t *testing.T) {
	svc := &fakeInventory{}
	handler := AdjustStock(svc, logger.New(logger.Options{ServiceName: "test"}))

	rec := postJSON(t, handler, `{"merchant_id":"m1","external_code":"SKU-1","delta":-2}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.adjusts, 1)
	require.Equal(t, enums.MovementAdjustment, svc.adjusts[0].Reason)
	require.Equal(t, -2, svc.adjusts[0].Delta)
}

func TestAdjustStockRejectsMissingFields(t *testing.T) {
	svc := &fakeInventory{}
	handler := AdjustStock(svc, logger.New(logger.Options{ServiceName: "test"}))

	rec := postJSON(t, handler, `{"merchant_id":"m1"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, svc.adjusts)
}

func TestAdjustStockRejectsUnknownReason(t *testing.T) {
	svc := &fakeInventory{}
	handler := AdjustStock(svc, logger.New(logger.Options{ServiceName: "test"}))

	rec := postJSON(t, handler, `{"merchant_id":"m1","external_code":"SKU-1","delta":1,"reason":"RESTOCK"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, svc.adjusts)
}
