package erpsales

import (
	"context"
	"fmt"

	"github.com/hubfood/ifood-erp-sync/pkg/config"
	"github.com/hubfood/ifood-erp-sync/pkg/db/models"
	"github.com/hubfood/ifood-erp-sync/pkg/enums"
	"github.com/hubfood/ifood-erp-sync/pkg/erp"
	pkgerrors "github.com/hubfood/ifood-erp-sync/pkg/errors"
	"github.com/hubfood/ifood-erp-sync/pkg/logger"
)

type saleLinkRepository interface {
	FindLink(ctx context.Context, merchantID, orderID string) (*models.ErpSaleLink, error)
	CreateLink(ctx context.Context, link *models.ErpSaleLink) error
	SaveLink(ctx context.Context, link *models.ErpSaleLink) error
	FindMapping(ctx context.Context, merchantID string) (*models.MerchantErpMapping, error)
}

type erpGateway interface {
	Enabled() bool
	CreateSale(ctx context.Context, params erp.SaleCreateParams) (*erp.Sale, error)
	UpdateSaleSituation(ctx context.Context, saleID string, situationID int) error
	FindCustomer(ctx context.Context, document, name, phone string) (*erp.Customer, error)
	CreateCustomer(ctx context.Context, params erp.CustomerCreateParams) (*erp.Customer, error)
}

// Service mirrors marketplace order transitions into the back office.
type Service interface {
	CreateSale(ctx context.Context, order *models.Order, items []models.OrderItem) error
	CancelSale(ctx context.Context, merchantID, orderID string) error
	FinalizeSale(ctx context.Context, merchantID, orderID string) error
}

type service struct {
	repo    saleLinkRepository
	gateway erpGateway
	cfg     config.ERPConfig
	logger  *logger.Logger
}

// NewService wires the back-office sale mirror.
func NewService(repo saleLinkRepository, gateway erpGateway, cfg config.ERPConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sale link repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("erp gateway required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, gateway: gateway, cfg: cfg, logger: logg}, nil
}

// IdempotencyKeyFor is the key the back office dedupes sale creation on.
func IdempotencyKeyFor(merchantID, orderID string) string {
	return fmt.Sprintf("IFOOD:%s:%s", merchantID, orderID)
}

// CreateSale opens the back-office sale for a confirmed order. A replay that
// finds a fully-resolved link is a no-op; a link without a sale id retries
// the create under the same idempotency key.
func (s *service) CreateSale(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	ctx = s.orderCtx(ctx, order.MerchantID, order.OrderID)

	if !s.gateway.Enabled() {
		s.logger.Info(ctx, "erp sale skipped, integration disabled")
		return nil
	}

	link, err := s.repo.FindLink(ctx, order.MerchantID, order.OrderID)
	if err != nil {
		return fmt.Errorf("loading sale link: %w", err)
	}
	if link != nil && link.ErpSaleID != nil {
		s.logger.Info(ctx, "erp sale already linked")
		return nil
	}
	if link != nil {
		// a bare link from an earlier 409, retry the create so cancel and
		// finalize get a sale id to work with
		s.logger.Info(ctx, "erp sale link missing sale id, re-resolving")
	}

	mapping, err := s.repo.FindMapping(ctx, order.MerchantID)
	if err != nil {
		return fmt.Errorf("resolving erp mapping: %w", err)
	}
	if mapping == nil {
		s.logger.Warn(ctx, "erp sale skipped, merchant has no location mapping")
		return nil
	}

	customer, err := s.resolveCustomer(ctx, order)
	if err != nil {
		return err
	}

	saleItems := make([]erp.SaleItem, 0, len(items))
	for _, item := range items {
		saleItems = append(saleItems, erp.SaleItem{
			ExternalCode: item.ExternalCode,
			Description:  item.Name,
			Quantity:     item.Qty,
			UnitPrice:    item.UnitPrice,
		})
	}

	newLink := link
	if newLink == nil {
		newLink = &models.ErpSaleLink{
			MerchantID:     order.MerchantID,
			OrderID:        order.OrderID,
			IdempotencyKey: IdempotencyKeyFor(order.MerchantID, order.OrderID),
			Status:         enums.SaleLinkCreated,
		}
	}
	newLink.ErpLocationID = &mapping.ErpLocationID
	if customer != nil {
		newLink.ErpCustomerID = &customer.ID
	}

	params := erp.SaleCreateParams{
		IdempotencyKey: newLink.IdempotencyKey,
		LocationID:     mapping.ErpLocationID,
		Kind:           s.cfg.SaleKind,
		SituationID:    s.cfg.SituationIDConfirmed,
		Reference:      order.OrderID,
		DeliveryFee:    order.DeliveryFee,
		Items:          saleItems,
	}
	if customer != nil {
		params.CustomerID = customer.ID
	}

	sale, err := s.gateway.CreateSale(ctx, params)
	switch {
	case err == nil:
		newLink.ErpSaleID = &sale.ID
		if sale.Code != "" {
			code := sale.Code
			newLink.ErpSaleCode = &code
		}

	case pkgerrors.HasCode(err, pkgerrors.CodeConflict):
		// the back office already holds this key, keep the link so later
		// transitions have something to hang off
		s.logger.Info(ctx, "erp sale deduped by idempotency key")

	default:
		return fmt.Errorf("creating erp sale: %w", err)
	}

	if link == nil {
		if err := s.repo.CreateLink(ctx, newLink); err != nil {
			return fmt.Errorf("recording sale link: %w", err)
		}
	} else {
		if err := s.repo.SaveLink(ctx, newLink); err != nil {
			return fmt.Errorf("updating sale link: %w", err)
		}
	}
	s.logger.Info(ctx, "erp sale linked")
	return nil
}

// CancelSale moves the linked sale into the cancelled situation.
func (s *service) CancelSale(ctx context.Context, merchantID, orderID string) error {
	return s.transition(ctx, merchantID, orderID, s.cfg.SituationIDCancelled, enums.SaleLinkCancelled)
}

// FinalizeSale moves the linked sale into the concluded situation.
func (s *service) FinalizeSale(ctx context.Context, merchantID, orderID string) error {
	return s.transition(ctx, merchantID, orderID, s.cfg.SituationIDConcluded, enums.SaleLinkFinalized)
}

func (s *service) transition(ctx context.Context, merchantID, orderID string, situationID int, target enums.SaleLinkStatus) error {
	ctx = s.orderCtx(ctx, merchantID, orderID)

	if !s.gateway.Enabled() {
		s.logger.Info(ctx, "erp transition skipped, integration disabled")
		return nil
	}

	link, err := s.repo.FindLink(ctx, merchantID, orderID)
	if err != nil {
		return fmt.Errorf("loading sale link: %w", err)
	}
	if link == nil {
		s.logger.Warn(ctx, "erp transition skipped, order has no linked sale")
		return nil
	}
	if link.Status == target {
		return nil
	}
	if link.ErpSaleID == nil {
		// link exists from a 409 dedup, we never learned the sale id
		s.logger.Warn(ctx, "erp transition skipped, sale id unknown")
		return nil
	}

	if err := s.gateway.UpdateSaleSituation(ctx, *link.ErpSaleID, situationID); err != nil {
		return fmt.Errorf("updating erp sale situation: %w", err)
	}

	link.Status = target
	if err := s.repo.SaveLink(ctx, link); err != nil {
		return fmt.Errorf("saving sale link: %w", err)
	}
	return nil
}

// resolveCustomer finds or registers the buyer. Orders can arrive without
// any customer data; the sale is then created unassigned.
func (s *service) resolveCustomer(ctx context.Context, order *models.Order) (*erp.Customer, error) {
	name := deref(order.CustomerName)
	document := deref(order.CustomerDocument)
	phone := deref(order.CustomerPhone)

	if name == "" && document == "" {
		return nil, nil
	}

	customer, err := s.gateway.FindCustomer(ctx, document, name, phone)
	if err != nil {
		return nil, fmt.Errorf("looking up erp customer: %w", err)
	}
	if customer != nil {
		return customer, nil
	}

	created, err := s.gateway.CreateCustomer(ctx, erp.CustomerCreateParams{
		Name:     name,
		Document: document,
		Phone:    phone,
	})
	if err != nil {
		return nil, fmt.Errorf("creating erp customer: %w", err)
	}
	return created, nil
}

func (s *service) orderCtx(ctx context.Context, merchantID, orderID string) context.Context {
	return s.logger.WithFields(ctx, map[string]any{
		"merchant_id": merchantID,
		"order_id":    orderID,
	})
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
