package controllers

import (
	"net/http"

	"github.com/hubfood/ifood-erp-sync/api/responses"
	"github.com/hubfood/ifood-erp-sync/api/validators"
	"github.com/hubfood/ifood-erp-sync/internal/inventory"
	"github.com/hubfood/ifood-erp-sync/pkg/enums"
	pkgerrors "github.com/hubfood/ifood-erp-sync/pkg/errors"
	"github.com/hubfood/ifood-erp-sync/pkg/logger"
)

type adjustStockRequest struct {
	MerchantID   string `json:"merchant_id" validate:"required"`
	ExternalCode string `json:"external_code" validate:"required"`
	Delta        int    `json:"delta" validate:"required"`
	Reason       string `json:"reason" validate:"omitempty,oneof=SALE CANCEL ADJUSTMENT"`
}

// AdjustStock shifts physical stock outside the order flow, for manual
// corrections and back-office counts.
func AdjustStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		var req adjustStockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		reason := enums.MovementReason(req.Reason)
		if req.Reason == "" {
			reason = enums.MovementAdjustment
		}

		err := svc.AdjustOnHand(ctx, inventory.AdjustParams{
			MerchantID:   req.MerchantID,
			ExternalCode: req.ExternalCode,
			Delta:        req.Delta,
			Reason:       reason,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "adjusted"})
	}
}

type productStatusItem struct {
	ExternalCode string `json:"external_code" validate:"required"`
	Status       string `json:"status" validate:"required,oneof=AVAILABLE UNAVAILABLE"`
}

type productStatusRequest struct {
	MerchantID string              `json:"merchant_id" validate:"required"`
	Items      []productStatusItem `json:"items" validate:"required,min=1,dive"`
}

// ProductStatus flips catalog availability through the marketplace batch
// endpoint and mirrors confirmed outcomes locally.
func ProductStatus(reconciler *inventory.StatusReconciler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if reconciler == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "status reconciler unavailable"))
			return
		}

		var req productStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		changes := make([]inventory.StatusChange, 0, len(req.Items))
		for _, item := range req.Items {
			changes = append(changes, inventory.StatusChange{
				ExternalCode: item.ExternalCode,
				Status:       enums.AvailabilityStatus(item.Status),
			})
		}

		if err := reconciler.Apply(ctx, req.MerchantID, changes); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "applied"})
	}
}
