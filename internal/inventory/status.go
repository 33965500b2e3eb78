package inventory

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/hubfood/ifood-erp-sync/pkg/enums"
	"github.com/hubfood/ifood-erp-sync/pkg/ifood"
	"github.com/hubfood/ifood-erp-sync/pkg/logger"
)

type catalogClient interface {
	PatchProductStatus(ctx context.Context, merchantID string, changes []ifood.ProductStatusChange) (string, error)
	WaitBatch(ctx context.Context, merchantID, batchID string) (*ifood.BatchResult, error)
}

// StatusChange asks for one catalog item to be flipped.
type StatusChange struct {
	ExternalCode string
	Status       enums.AvailabilityStatus
}

// StatusReconciler pushes availability flips through the marketplace batch
// endpoint and mirrors only the confirmed outcomes locally.
type StatusReconciler struct {
	runner  txRunner
	factory RepoFactory
	catalog catalogClient
	logger  *logger.Logger
}

func NewStatusReconciler(runner txRunner, factory RepoFactory, catalog catalogClient, logg *logger.Logger) (*StatusReconciler, error) {
	if runner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if factory == nil {
		return nil, fmt.Errorf("repository factory required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &StatusReconciler{runner: runner, factory: factory, catalog: catalog, logger: logg}, nil
}

// Apply submits the changes as one batch, waits for the marketplace verdict
// and flips the local flag only for items the batch reports as succeeded.
func (s *StatusReconciler) Apply(ctx context.Context, merchantID string, changes []StatusChange) error {
	if len(changes) == 0 {
		return nil
	}

	requested := make(map[string]enums.AvailabilityStatus, len(changes))
	payload := make([]ifood.ProductStatusChange, 0, len(changes))
	for _, change := range changes {
		if !change.Status.Valid() {
			return fmt.Errorf("invalid availability status %q", change.Status)
		}
		requested[change.ExternalCode] = change.Status
		payload = append(payload, ifood.ProductStatusChange{
			ExternalCode: change.ExternalCode,
			Status:       change.Status.String(),
		})
	}

	ctx = s.logger.WithMerchantID(ctx, merchantID)

	batchID, err := s.catalog.PatchProductStatus(ctx, merchantID, payload)
	if err != nil {
		return fmt.Errorf("submitting status batch: %w", err)
	}
	if batchID == "" {
		return nil
	}

	ctx = s.logger.WithField(ctx, "batch_id", batchID)

	result, err := s.catalog.WaitBatch(ctx, merchantID, batchID)
	if err != nil {
		return fmt.Errorf("waiting for status batch: %w", err)
	}

	return s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.factory(tx)

		for _, item := range result.Items {
			status, wanted := requested[item.ExternalCode]
			if !wanted {
				continue
			}
			if item.Status != ifood.BatchItemSuccess {
				s.logger.Warn(s.logger.WithFields(ctx, map[string]any{
					"external_code": item.ExternalCode,
					"reason":        item.Reason,
				}), "status flip rejected by marketplace")
				continue
			}

			product, err := repo.FindProductForUpdate(merchantID, item.ExternalCode)
			if err != nil {
				return fmt.Errorf("loading product: %w", err)
			}
			if product == nil {
				continue
			}
			product.Availability = status
			if err := repo.SaveProduct(product); err != nil {
				return fmt.Errorf("saving product: %w", err)
			}
		}
		return nil
	})
}
