package inventory

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/hubfood/ifood-erp-sync/pkg/config"
	"github.com/hubfood/ifood-erp-sync/pkg/db/models"
	"github.com/hubfood/ifood-erp-sync/pkg/enums"
	"github.com/hubfood/ifood-erp-sync/pkg/erp"
	"github.com/hubfood/ifood-erp-sync/pkg/ifood"
	"github.com/hubfood/ifood-erp-sync/pkg/logger"
)

type inventoryRepository interface {
	FindProductForUpdate(merchantID, externalCode string) (*models.Product, error)
	SaveProduct(product *models.Product) error
	FindReservation(merchantID string, channel enums.Channel, orderID, itemKey string) (*models.InventoryReservation, error)
	CreateReservation(res *models.InventoryReservation) error
	SaveReservation(res *models.InventoryReservation) error
	SumActiveReserved(merchantID, externalCode string) (int, error)
	FindErpMapping(merchantID string) (*models.MerchantErpMapping, error)
	FindErpStockForUpdate(locationID, externalCode string) (*models.ErpStock, error)
	SaveErpStock(stock *models.ErpStock) error
	CreateErpStock(stock *models.ErpStock) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RepoFactory builds a tx-scoped repository; tests substitute fakes.
type RepoFactory func(tx *gorm.DB) inventoryRepository

// DefaultRepoFactory is the production factory.
func DefaultRepoFactory(tx *gorm.DB) inventoryRepository {
	return NewRepository(tx)
}

type stockPublisher interface {
	PublishStock(ctx context.Context, merchantID string, items []ifood.StockItem) error
}

type movementRecorder interface {
	Enabled() bool
	PostMovement(ctx context.Context, params erp.MovementParams) error
}

// ReservationKey addresses one ledger row.
type ReservationKey struct {
	MerchantID string
	Channel    enums.Channel
	OrderID    string
	ItemKey    string
}

// ReserveParams opens or refreshes a reservation.
type ReserveParams struct {
	ReservationKey
	ExternalCode string
	Qty          int
}

// AdjustParams shifts physical stock outside the reservation flow.
type AdjustParams struct {
	MerchantID   string
	ExternalCode string
	Delta        int
	Reason       enums.MovementReason
}

// Result reports whether an operation touched the ledger and for how many
// units. Callers use Skipped to tell a real mutation from an absorbed replay
// or an uncataloged product.
type Result struct {
	Skipped bool
	Qty     int
}

type statusApplier interface {
	Apply(ctx context.Context, merchantID string, changes []StatusChange) error
}

// Service is the reservation ledger engine.
type Service interface {
	Reserve(ctx context.Context, params ReserveParams) (Result, error)
	Cancel(ctx context.Context, key ReservationKey) (Result, error)
	Consume(ctx context.Context, key ReservationKey) (Result, error)
	AdjustOnHand(ctx context.Context, params AdjustParams) error
}

type service struct {
	runner    txRunner
	factory   RepoFactory
	publisher stockPublisher
	movements movementRecorder
	status    statusApplier
	features  config.FeatureFlagsConfig
	logger    *logger.Logger
}

// NewService wires the reservation engine. status may be nil; the flag then
// only moves through the explicit reconciliation endpoint.
func NewService(runner txRunner, factory RepoFactory, publisher stockPublisher, movements movementRecorder, status statusApplier, features config.FeatureFlagsConfig, logg *logger.Logger) (Service, error) {
	if runner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if factory == nil {
		return nil, fmt.Errorf("repository factory required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("stock publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		runner:    runner,
		factory:   factory,
		publisher: publisher,
		movements: movements,
		status:    status,
		features:  features,
		logger:    logg,
	}, nil
}

// Reserve records an ACTIVE hold for the order line and republishes
// availability. Replaying the same key with the same quantity is a no-op;
// a changed quantity updates the hold in place.
func (s *service) Reserve(ctx context.Context, params ReserveParams) (Result, error) {
	if params.Qty <= 0 {
		return Result{}, fmt.Errorf("reservation qty must be positive, got %d", params.Qty)
	}

	ctx = s.itemCtx(ctx, params.MerchantID, params.ExternalCode, params.OrderID)

	var result Result
	var flip *StatusChange
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.factory(tx)

		product, err := repo.FindProductForUpdate(params.MerchantID, params.ExternalCode)
		if err != nil {
			return fmt.Errorf("loading product: %w", err)
		}
		if product == nil {
			s.logger.Warn(ctx, "reserve skipped, product not in local catalog")
			result = Result{Skipped: true}
			return nil
		}

		existing, err := repo.FindReservation(params.MerchantID, params.Channel, params.OrderID, params.ItemKey)
		if err != nil {
			return fmt.Errorf("loading reservation: %w", err)
		}

		switch {
		case existing == nil:
			err = repo.CreateReservation(&models.InventoryReservation{
				MerchantID:   params.MerchantID,
				Channel:      params.Channel,
				OrderID:      params.OrderID,
				ItemKey:      params.ItemKey,
				ExternalCode: params.ExternalCode,
				Qty:          params.Qty,
				State:        enums.ReservationActive,
			})
			if err != nil {
				return fmt.Errorf("creating reservation: %w", err)
			}

		case existing.State != enums.ReservationActive:
			// terminal rows never reopen, a late replay changes nothing
			s.logger.Info(ctx, "reserve skipped, reservation already settled")
			result = Result{Skipped: true}
			return nil

		case existing.Qty == params.Qty:
			s.logger.Info(ctx, "reserve replay, hold unchanged")

		default:
			existing.Qty = params.Qty
			if err := repo.SaveReservation(existing); err != nil {
				return fmt.Errorf("updating reservation: %w", err)
			}
		}

		result = Result{Qty: params.Qty}
		flip, err = s.republish(ctx, repo, product)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	s.syncStatus(ctx, params.MerchantID, flip)
	return result, nil
}

// Cancel releases an ACTIVE hold. Cancelling a missing or settled
// reservation is a no-op so cancel-before-confirm orderings stay safe.
func (s *service) Cancel(ctx context.Context, key ReservationKey) (Result, error) {
	ctx = s.itemCtx(ctx, key.MerchantID, "", key.OrderID)

	var result Result
	var flip *StatusChange
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.factory(tx)

		res, err := repo.FindReservation(key.MerchantID, key.Channel, key.OrderID, key.ItemKey)
		if err != nil {
			return fmt.Errorf("loading reservation: %w", err)
		}
		if res == nil || res.State != enums.ReservationActive {
			s.logger.Info(ctx, "cancel skipped, no active hold")
			result = Result{Skipped: true}
			return nil
		}

		res.State = enums.ReservationCancelled
		if err := repo.SaveReservation(res); err != nil {
			return fmt.Errorf("cancelling reservation: %w", err)
		}
		result = Result{Qty: res.Qty}

		product, err := repo.FindProductForUpdate(key.MerchantID, res.ExternalCode)
		if err != nil {
			return fmt.Errorf("loading product: %w", err)
		}
		if product == nil {
			return nil
		}
		flip, err = s.republish(ctx, repo, product)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	s.syncStatus(ctx, key.MerchantID, flip)
	return result, nil
}

// Consume settles an ACTIVE hold into a physical decrement: the hold leaves
// the ledger and on-hand drops by the same quantity, so published
// availability does not move.
func (s *service) Consume(ctx context.Context, key ReservationKey) (Result, error) {
	ctx = s.itemCtx(ctx, key.MerchantID, "", key.OrderID)

	var result Result
	var movement *erp.MovementParams
	var flip *StatusChange
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.factory(tx)

		res, err := repo.FindReservation(key.MerchantID, key.Channel, key.OrderID, key.ItemKey)
		if err != nil {
			return fmt.Errorf("loading reservation: %w", err)
		}
		if res == nil || res.State != enums.ReservationActive {
			s.logger.Info(ctx, "consume skipped, no active hold")
			result = Result{Skipped: true}
			return nil
		}

		res.State = enums.ReservationConsumed
		if err := repo.SaveReservation(res); err != nil {
			return fmt.Errorf("consuming reservation: %w", err)
		}
		result = Result{Qty: res.Qty}

		if s.features.ERPControlsStock {
			params, err := s.decrementErpStock(ctx, repo, key.MerchantID, res.ExternalCode, res.Qty)
			if err != nil {
				return err
			}
			movement = params
			return nil
		}

		product, err := repo.FindProductForUpdate(key.MerchantID, res.ExternalCode)
		if err != nil {
			return fmt.Errorf("loading product: %w", err)
		}
		if product == nil {
			return nil
		}
		product.OnHand = clampZero(product.OnHand - res.Qty)
		if err := repo.SaveProduct(product); err != nil {
			return fmt.Errorf("saving product: %w", err)
		}
		flip, err = s.republish(ctx, repo, product)
		return err
	})
	if err != nil {
		return Result{}, err
	}

	// the movement is bookkeeping on the ERP side, the sale document is the
	// source of truth, so failures here never fail the consume
	if movement != nil && s.movements != nil && s.movements.Enabled() {
		if err := s.movements.PostMovement(ctx, *movement); err != nil {
			s.logger.Warn(s.logger.WithField(ctx, "movement_error", err.Error()), "erp stock movement not recorded")
		}
	}
	s.syncStatus(ctx, key.MerchantID, flip)
	return result, nil
}

// AdjustOnHand applies a signed delta from a non-marketplace channel and
// republishes availability.
func (s *service) AdjustOnHand(ctx context.Context, params AdjustParams) error {
	ctx = s.itemCtx(ctx, params.MerchantID, params.ExternalCode, "")

	var flip *StatusChange
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.factory(tx)

		if s.features.ERPControlsStock {
			_, err := s.applyErpStockDelta(ctx, repo, params.MerchantID, params.ExternalCode, params.Delta)
			return err
		}

		product, err := repo.FindProductForUpdate(params.MerchantID, params.ExternalCode)
		if err != nil {
			return fmt.Errorf("loading product: %w", err)
		}
		if product == nil {
			s.logger.Warn(ctx, "adjust skipped, product not in local catalog")
			return nil
		}

		product.OnHand = clampZero(product.OnHand + params.Delta)
		if err := repo.SaveProduct(product); err != nil {
			return fmt.Errorf("saving product: %w", err)
		}
		flip, err = s.republish(ctx, repo, product)
		return err
	})
	if err != nil {
		return err
	}
	s.syncStatus(ctx, params.MerchantID, flip)
	return nil
}

// republish pushes max(0, on_hand - active holds) to the marketplace inside
// the ledger transaction; a failed publish rolls the mutation back. When the
// new figure crosses zero in either direction it returns the availability
// flip the caller should reconcile after commit.
func (s *service) republish(ctx context.Context, repo inventoryRepository, product *models.Product) (*StatusChange, error) {
	if s.features.ERPControlsStock {
		return nil, nil
	}

	reserved, err := repo.SumActiveReserved(product.MerchantID, product.ExternalCode)
	if err != nil {
		return nil, fmt.Errorf("summing active holds: %w", err)
	}
	available := clampZero(product.OnHand - reserved)

	err = s.publisher.PublishStock(ctx, product.MerchantID, []ifood.StockItem{
		{ExternalCode: product.ExternalCode, Amount: available},
	})
	if err != nil {
		return nil, fmt.Errorf("publishing stock: %w", err)
	}

	desired := enums.AvailabilityAvailable
	if available == 0 {
		desired = enums.AvailabilityUnavailable
	}
	if product.Availability != desired {
		return &StatusChange{ExternalCode: product.ExternalCode, Status: desired}, nil
	}
	return nil, nil
}

// syncStatus mirrors the availability flag after the stock figures are
// committed. The quantity is the source of truth, so a failed flip is logged
// and absorbed.
func (s *service) syncStatus(ctx context.Context, merchantID string, flip *StatusChange) {
	if flip == nil || s.status == nil {
		return
	}
	if err := s.status.Apply(ctx, merchantID, []StatusChange{*flip}); err != nil {
		s.logger.Warn(s.logger.WithField(ctx, "status_error", err.Error()), "availability flag not reconciled")
	}
}

func (s *service) decrementErpStock(ctx context.Context, repo inventoryRepository, merchantID, externalCode string, qty int) (*erp.MovementParams, error) {
	locationID, err := s.applyErpStockDelta(ctx, repo, merchantID, externalCode, -qty)
	if err != nil || locationID == "" {
		return nil, err
	}
	return &erp.MovementParams{
		LocationID:   locationID,
		ExternalCode: externalCode,
		Quantity:     qty,
		Kind:         erp.MovementOut,
		Note:         "marketplace order concluded",
	}, nil
}

func (s *service) applyErpStockDelta(ctx context.Context, repo inventoryRepository, merchantID, externalCode string, delta int) (string, error) {
	mapping, err := repo.FindErpMapping(merchantID)
	if err != nil {
		return "", fmt.Errorf("resolving erp mapping: %w", err)
	}
	if mapping == nil {
		s.logger.Warn(ctx, "erp stock untouched, merchant has no location mapping")
		return "", nil
	}

	stock, err := repo.FindErpStockForUpdate(mapping.ErpLocationID, externalCode)
	if err != nil {
		return "", fmt.Errorf("loading erp stock: %w", err)
	}
	if stock == nil {
		stock = &models.ErpStock{
			ErpLocationID: mapping.ErpLocationID,
			ExternalCode:  externalCode,
			OnHand:        clampZero(delta),
		}
		if err := repo.CreateErpStock(stock); err != nil {
			return "", fmt.Errorf("creating erp stock: %w", err)
		}
		return mapping.ErpLocationID, nil
	}

	stock.OnHand = clampZero(stock.OnHand + delta)
	if err := repo.SaveErpStock(stock); err != nil {
		return "", fmt.Errorf("saving erp stock: %w", err)
	}
	return mapping.ErpLocationID, nil
}

func (s *service) itemCtx(ctx context.Context, merchantID, externalCode, orderID string) context.Context {
	fields := map[string]any{"merchant_id": merchantID}
	if externalCode != "" {
		fields["external_code"] = externalCode
	}
	if orderID != "" {
		fields["order_id"] = orderID
	}
	return s.logger.WithFields(ctx, fields)
}

func clampZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
