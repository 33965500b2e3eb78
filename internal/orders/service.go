package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/hubfood/ifood-erp-sync/internal/events"
	"github.com/hubfood/ifood-erp-sync/internal/inventory"
	"github.com/hubfood/ifood-erp-sync/pkg/db/models"
	"github.com/hubfood/ifood-erp-sync/pkg/enums"
	"github.com/hubfood/ifood-erp-sync/pkg/ifood"
	"github.com/hubfood/ifood-erp-sync/pkg/logger"
)

type orderRepository interface {
	FindOrder(ctx context.Context, merchantID, orderID string) (*models.Order, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	SaveOrder(ctx context.Context, order *models.Order) error
	FindItems(ctx context.Context, orderRef uuid.UUID) ([]models.OrderItem, error)
	SaveItem(ctx context.Context, item *models.OrderItem) error
}

type detailFetcher interface {
	OrderDetails(ctx context.Context, merchantID, orderID string) (*ifood.OrderDetail, error)
}

type reservationEngine interface {
	Reserve(ctx context.Context, params inventory.ReserveParams) (inventory.Result, error)
	Cancel(ctx context.Context, key inventory.ReservationKey) (inventory.Result, error)
	Consume(ctx context.Context, key inventory.ReservationKey) (inventory.Result, error)
}

type saleMirror interface {
	CreateSale(ctx context.Context, order *models.Order, items []models.OrderItem) error
	CancelSale(ctx context.Context, merchantID, orderID string) error
	FinalizeSale(ctx context.Context, merchantID, orderID string) error
}

// Service drives the order lifecycle off normalized events.
type Service interface {
	events.Processor
}

type service struct {
	repo    orderRepository
	fetcher detailFetcher
	engine  reservationEngine
	sales   saleMirror
	logger  *logger.Logger
}

// NewService wires the order state machine.
func NewService(repo orderRepository, fetcher detailFetcher, engine reservationEngine, sales saleMirror, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("detail fetcher required")
	}
	if engine == nil {
		return nil, fmt.Errorf("reservation engine required")
	}
	if sales == nil {
		return nil, fmt.Errorf("sale mirror required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, fetcher: fetcher, engine: engine, sales: sales, logger: logg}, nil
}

// HandleOrderEvent applies one lifecycle event. Item work is isolated per
// line: one line failing does not abandon its siblings, the combined error
// surfaces so the event can be retried.
func (s *service) HandleOrderEvent(ctx context.Context, env events.Envelope) error {
	code := enums.EventCode(env.Code)
	ctx = s.logger.WithFields(ctx, map[string]any{
		"merchant_id": env.MerchantID,
		"order_id":    env.OrderID,
		"code":        env.Code,
	})

	order, items, err := s.ensureSnapshot(ctx, env)
	if err != nil {
		return err
	}

	s.stampEvent(order, code, env.CreatedAt)
	if err := s.repo.SaveOrder(ctx, order); err != nil {
		return fmt.Errorf("saving order snapshot: %w", err)
	}

	switch code {
	case enums.EventPlaced, enums.EventPreparing, enums.EventDispatch:
		// status-only transitions, stock does not move
		return nil

	case enums.EventConfirmed:
		return s.onConfirmed(ctx, order, items, env)

	case enums.EventCancelled:
		return s.onCancelled(ctx, order, items, env)

	case enums.EventConcluded:
		return s.onConcluded(ctx, order, items, env)

	default:
		s.logger.Warn(ctx, "event code reached state machine unhandled")
		return nil
	}
}

func (s *service) onConfirmed(ctx context.Context, order *models.Order, items []models.OrderItem, env events.Envelope) error {
	var errs error
	for i := range items {
		item := &items[i]
		if item.State == enums.OrderItemCancelled || item.State == enums.OrderItemConcluded {
			s.logger.Info(s.itemCtx(ctx, item), "confirm skipped, line already settled")
			continue
		}

		res, err := s.engine.Reserve(ctx, inventory.ReserveParams{
			ReservationKey: s.reservationKey(order, item),
			ExternalCode:   item.ExternalCode,
			Qty:            item.Qty,
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("reserving line %s: %w", item.ItemKey, err))
			continue
		}
		if res.Skipped {
			// no hold was placed, the line counters must not claim one
			s.logger.Info(s.itemCtx(ctx, item), "reserve skipped by engine, line untouched")
			continue
		}

		item.ReservedQty = item.Qty
		item.State = enums.OrderItemReserved
		s.stampItem(item, env)
		if err := s.repo.SaveItem(ctx, item); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("saving line %s: %w", item.ItemKey, err))
		}
	}

	if err := s.sales.CreateSale(ctx, order, items); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("mirroring sale: %w", err))
	}
	return errs
}

func (s *service) onCancelled(ctx context.Context, order *models.Order, items []models.OrderItem, env events.Envelope) error {
	var errs error
	for i := range items {
		item := &items[i]
		if item.State == enums.OrderItemConcluded {
			s.logger.Info(s.itemCtx(ctx, item), "cancel skipped, line already concluded")
			continue
		}

		res, err := s.engine.Cancel(ctx, s.reservationKey(order, item))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("releasing line %s: %w", item.ItemKey, err))
			continue
		}
		if res.Skipped {
			// cancel before any hold existed, nothing to count
			s.logger.Info(s.itemCtx(ctx, item), "cancel skipped by engine, line untouched")
			continue
		}

		item.CancelledQty = item.Qty
		item.ReservedQty = 0
		item.State = enums.OrderItemCancelled
		s.stampItem(item, env)
		if err := s.repo.SaveItem(ctx, item); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("saving line %s: %w", item.ItemKey, err))
		}
	}

	if err := s.sales.CancelSale(ctx, order.MerchantID, order.OrderID); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("cancelling mirrored sale: %w", err))
	}
	return errs
}

func (s *service) onConcluded(ctx context.Context, order *models.Order, items []models.OrderItem, env events.Envelope) error {
	var errs error
	for i := range items {
		item := &items[i]
		if item.State == enums.OrderItemCancelled {
			s.logger.Info(s.itemCtx(ctx, item), "conclude skipped, line already cancelled")
			continue
		}

		res, err := s.engine.Consume(ctx, s.reservationKey(order, item))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("settling line %s: %w", item.ItemKey, err))
			continue
		}
		if res.Skipped {
			s.logger.Info(s.itemCtx(ctx, item), "consume skipped by engine, line untouched")
			continue
		}

		item.ConcludedQty = item.Qty
		item.ReservedQty = 0
		item.State = enums.OrderItemConcluded
		s.stampItem(item, env)
		if err := s.repo.SaveItem(ctx, item); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("saving line %s: %w", item.ItemKey, err))
		}
	}

	if err := s.sales.FinalizeSale(ctx, order.MerchantID, order.OrderID); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("finalizing mirrored sale: %w", err))
	}
	return errs
}

// ensureSnapshot pulls the detail payload for every event and refreshes the
// stored header from it. Item rows are created on first sight only; their
// states and quantity buckets belong to the state machine, not the detail.
func (s *service) ensureSnapshot(ctx context.Context, env events.Envelope) (*models.Order, []models.OrderItem, error) {
	detail, err := s.fetcher.OrderDetails(ctx, env.MerchantID, env.OrderID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching order detail: %w", err)
	}

	order, err := s.repo.FindOrder(ctx, env.MerchantID, env.OrderID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading order snapshot: %w", err)
	}
	if order == nil {
		order = snapshotFromDetail(env.MerchantID, detail)
		if err := s.repo.CreateOrder(ctx, order); err != nil {
			return nil, nil, fmt.Errorf("creating order snapshot: %w", err)
		}
	} else {
		applyDetail(order, detail)
	}

	items, err := s.repo.FindItems(ctx, order.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading order lines: %w", err)
	}
	return order, items, nil
}

func snapshotFromDetail(merchantID string, detail *ifood.OrderDetail) *models.Order {
	order := &models.Order{
		MerchantID: merchantID,
		OrderID:    detail.ID,
		Status:     enums.OrderStatusPlaced,
	}
	applyDetail(order, detail)

	for _, line := range detail.Items {
		order.Items = append(order.Items, models.OrderItem{
			ItemKey:      line.ItemKey(),
			ExternalCode: line.ExternalCode,
			Name:         line.Name,
			Qty:          line.Quantity,
			UnitPrice:    line.UnitPrice,
			TotalPrice:   line.TotalPrice,
			State:        enums.OrderItemNew,
		})
	}
	return order
}

// applyDetail copies the header fields the marketplace may amend between
// events. Status stays with the event stamp.
func applyDetail(order *models.Order, detail *ifood.OrderDetail) {
	order.SubtotalAmount = detail.Total.SubTotal
	order.DeliveryFee = detail.Total.DeliveryFee
	order.TotalAmount = detail.Total.OrderAmount

	if detail.DisplayID != "" {
		short := detail.DisplayID
		order.ShortCode = &short
	}
	if !detail.CreatedAt.IsZero() {
		placedAt := detail.CreatedAt
		order.PlacedAt = &placedAt
	}
	if detail.Customer.Name != "" {
		name := detail.Customer.Name
		order.CustomerName = &name
	}
	if detail.Customer.DocumentNumber != "" {
		doc := detail.Customer.DocumentNumber
		order.CustomerDocument = &doc
	}
	if detail.Customer.Phone.Number != "" {
		phone := detail.Customer.Phone.Number
		order.CustomerPhone = &phone
	}
	if detail.Delivery != nil {
		if detail.Delivery.DeliveryAddress.FormattedAddress != "" {
			addr := detail.Delivery.DeliveryAddress.FormattedAddress
			order.DeliveryAddress = &addr
		}
		if detail.Delivery.DeliveryAddress.City != "" {
			city := detail.Delivery.DeliveryAddress.City
			order.DeliveryCity = &city
		}
	}
}

func (s *service) reservationKey(order *models.Order, item *models.OrderItem) inventory.ReservationKey {
	return inventory.ReservationKey{
		MerchantID: order.MerchantID,
		Channel:    enums.ChannelIFood,
		OrderID:    order.OrderID,
		ItemKey:    item.ItemKey,
	}
}

func (s *service) stampEvent(order *models.Order, code enums.EventCode, at time.Time) {
	order.Status = code.OrderStatus()
	codeStr := code.String()
	order.LastEventCode = &codeStr
	if at.IsZero() {
		at = time.Now().UTC()
	}
	order.LastEventAt = &at
}

func (s *service) stampItem(item *models.OrderItem, env events.Envelope) {
	code := env.Code
	item.LastEventCode = &code
	at := env.CreatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	item.LastEventAt = &at
}

func (s *service) itemCtx(ctx context.Context, item *models.OrderItem) context.Context {
	return s.logger.WithField(ctx, "item_key", item.ItemKey)
}
