package erpsales

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hubfood/ifood-erp-sync/pkg/config"
	"github.com/hubfood/ifood-erp-sync/pkg/db/models"
	"github.com/hubfood/ifood-erp-sync/pkg/enums"
	"github.com/hubfood/ifood-erp-sync/pkg/erp"
	pkgerrors "github.com/hubfood/ifood-erp-sync/pkg/errors"
	"github.com/hubfood/ifood-erp-sync/pkg/logger"
)

type fakeLinkRepo struct {
	links    map[string]*models.ErpSaleLink
	mappings map[string]*models.MerchantErpMapping
}

func newFakeLinkRepo() *fakeLinkRepo {
	return &fakeLinkRepo{
		links:    map[string]*models.ErpSaleLink{},
		mappings: map[string]*models.MerchantErpMapping{},
	}
}

func linkKey(merchantID, orderID string) string { return merchantID + "|" + orderID }

func (f *fakeLinkRepo) FindLink(_ context.Context, merchantID, orderID string) (*models.ErpSaleLink, error) {
	return f.links[linkKey(merchantID, orderID)], nil
}

func (f *fakeLinkRepo) CreateLink(_ context.Context, link *models.ErpSaleLink) error {
	f.links[linkKey(link.MerchantID, link.OrderID)] = link
	return nil
}

func (f *fakeLinkRepo) SaveLink(_ context.Context, link *models.ErpSaleLink) error {
	f.links[linkKey(link.MerchantID, link.OrderID)] = link
	return nil
}

func (f *fakeLinkRepo) FindMapping(_ context.Context, merchantID string) (*models.MerchantErpMapping, error) {
	return f.mappings[merchantID], nil
}

type fakeGateway struct {
	enabled bool

	sales       []erp.SaleCreateParams
	saleErr     error
	transitions map[string]int
	customers   map[string]*erp.Customer
	created     []erp.CustomerCreateParams
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		enabled:     true,
		transitions: map[string]int{},
		customers:   map[string]*erp.Customer{},
	}
}

func (f *fakeGateway) Enabled() bool { return f.enabled }

func (f *fakeGateway) CreateSale(_ context.Context, params erp.SaleCreateParams) (*erp.Sale, error) {
	if f.saleErr != nil {
		return nil, f.saleErr
	}
	f.sales = append(f.sales, params)
	return &erp.Sale{ID: "sale-1", Code: "V-1001", SituationID: params.SituationID}, nil
}

func (f *fakeGateway) UpdateSaleSituation(_ context.Context, saleID string, situationID int) error {
	f.transitions[saleID] = situationID
	return nil
}

func (f *fakeGateway) FindCustomer(_ context.Context, document, name, _ string) (*erp.Customer, error) {
	if c, ok := f.customers[document]; ok {
		return c, nil
	}
	if c, ok := f.customers[name]; ok {
		return c, nil
	}
	return nil, nil
}

func (f *fakeGateway) CreateCustomer(_ context.Context, params erp.CustomerCreateParams) (*erp.Customer, error) {
	f.created = append(f.created, params)
	return &erp.Customer{ID: "cust-1", Name: params.Name}, nil
}

func erpTestConfig() config.ERPConfig {
	return config.ERPConfig{
		BaseURL:              "https://erp.example.com",
		SaleKind:             "produto",
		SituationIDConfirmed: 3150,
		SituationIDCancelled: 9998,
		SituationIDConcluded: 9999,
	}
}

func fixture(t *testing.T) (*fakeLinkRepo, *fakeGateway, Service) {
	t.Helper()
	repo := newFakeLinkRepo()
	repo.mappings["m1"] = &models.MerchantErpMapping{MerchantID: "m1", ErpLocationID: "loc-1"}
	gateway := newFakeGateway()
	svc, err := NewService(repo, gateway, erpTestConfig(), logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)
	return repo, gateway, svc
}

func orderFixture() (*models.Order, []models.OrderItem) {
	name := "Maria Souza"
	document := "12345678901"
	order := &models.Order{
		MerchantID:       "m1",
		OrderID:          "o1",
		Status:           enums.OrderStatusConfirmed,
		CustomerName:     &name,
		CustomerDocument: &document,
		DeliveryFee:      decimal.NewFromInt(8),
	}
	items := []models.OrderItem{
		{ExternalCode: "SKU-1", Name: "Marmita P", Qty: 2, UnitPrice: decimal.NewFromInt(25)},
	}
	return order, items
}

func TestCreateSaleLinksOrder(t *testing.T) {
	repo, gateway, svc := fixture(t)
	order, items := orderFixture()

	require.NoError(t, svc.CreateSale(context.Background(), order, items))

	link := repo.links[linkKey("m1", "o1")]
	require.NotNil(t, link)
	require.Equal(t, "IFOOD:m1:o1", link.IdempotencyKey)
	require.Equal(t, enums.SaleLinkCreated, link.Status)
	require.NotNil(t, link.ErpSaleID)
	require.Equal(t, "sale-1", *link.ErpSaleID)

	require.Len(t, gateway.sales, 1)
	require.Equal(t, 3150, gateway.sales[0].SituationID)
	require.Equal(t, "cust-1", gateway.sales[0].CustomerID)
	// customer was unknown and had to be registered
	require.Len(t, gateway.created, 1)
}

func TestCreateSaleReplayIsNoOp(t *testing.T) {
	repo, gateway, svc := fixture(t)
	order, items := orderFixture()

	require.NoError(t, svc.CreateSale(context.Background(), order, items))
	require.NoError(t, svc.CreateSale(context.Background(), order, items))

	require.Len(t, gateway.sales, 1)
	require.Len(t, repo.links, 1)
}

func TestCreateSaleConflictKeepsLink(t *testing.T) {
	repo, gateway, svc := fixture(t)
	gateway.saleErr = pkgerrors.New(pkgerrors.CodeConflict, "idempotency key reused")
	order, items := orderFixture()

	require.NoError(t, svc.CreateSale(context.Background(), order, items))

	link := repo.links[linkKey("m1", "o1")]
	require.NotNil(t, link)
	require.Nil(t, link.ErpSaleID)
}

func TestCreateSaleReplayResolvesBareLink(t *testing.T) {
	repo, gateway, svc := fixture(t)
	gateway.saleErr = pkgerrors.New(pkgerrors.CodeConflict, "idempotency key reused")
	order, items := orderFixture()

	// first pass conflicts, the link stays without a sale id
	require.NoError(t, svc.CreateSale(context.Background(), order, items))
	require.Nil(t, repo.links[linkKey("m1", "o1")].ErpSaleID)

	// the backend answers on replay, the link picks up the sale id
	gateway.saleErr = nil
	require.NoError(t, svc.CreateSale(context.Background(), order, items))

	link := repo.links[linkKey("m1", "o1")]
	require.NotNil(t, link.ErpSaleID)
	require.Equal(t, "sale-1", *link.ErpSaleID)
	require.Len(t, repo.links, 1)

	// with the id resolved, later transitions reach the backend
	require.NoError(t, svc.CancelSale(context.Background(), "m1", "o1"))
	require.Equal(t, 9998, gateway.transitions["sale-1"])
}

func TestCreateSaleFailurePropagates(t *testing.T) {
	repo, gateway, svc := fixture(t)
	gateway.saleErr = errors.New("erp exploded")
	order, items := orderFixture()

	require.Error(t, svc.CreateSale(context.Background(), order, items))
	require.Empty(t, repo.links)
}

func TestCreateSaleWithoutMappingSkips(t *testing.T) {
	repo, gateway, svc := fixture(t)
	delete(repo.mappings, "m1")
	order, items := orderFixture()

	require.NoError(t, svc.CreateSale(context.Background(), order, items))
	require.Empty(t, gateway.sales)
	require.Empty(t, repo.links)
}

func TestCreateSaleDisabledIntegrationSkips(t *testing.T) {
	repo, gateway, svc := fixture(t)
	gateway.enabled = false
	order, items := orderFixture()

	require.NoError(t, svc.CreateSale(context.Background(), order, items))
	require.Empty(t, repo.links)
}

func TestCreateSaleReusesExistingCustomer(t *testing.T) {
	_, gateway, svc := fixture(t)
	gateway.customers["12345678901"] = &erp.Customer{ID: "cust-9", Name: "Maria Souza"}
	order, items := orderFixture()

	require.NoError(t, svc.CreateSale(context.Background(), order, items))
	require.Empty(t, gateway.created)
	require.Equal(t, "cust-9", gateway.sales[0].CustomerID)
}

func TestCancelSaleTransitions(t *testing.T) {
	repo, gateway, svc := fixture(t)
	order, items := orderFixture()
	require.NoError(t, svc.CreateSale(context.Background(), order, items))

	require.NoError(t, svc.CancelSale(context.Background(), "m1", "o1"))

	require.Equal(t, 9998, gateway.transitions["sale-1"])
	require.Equal(t, enums.SaleLinkCancelled, repo.links[linkKey("m1", "o1")].Status)

	// replaying the cancel does not hit the backend again
	gateway.transitions = map[string]int{}
	require.NoError(t, svc.CancelSale(context.Background(), "m1", "o1"))
	require.Empty(t, gateway.transitions)
}

func TestFinalizeSaleTransitions(t *testing.T) {
	repo, gateway, svc := fixture(t)
	order, items := orderFixture()
	require.NoError(t, svc.CreateSale(context.Background(), order, items))

	require.NoError(t, svc.FinalizeSale(context.Background(), "m1", "o1"))

	require.Equal(t, 9999, gateway.transitions["sale-1"])
	require.Equal(t, enums.SaleLinkFinalized, repo.links[linkKey("m1", "o1")].Status)
}

func TestTransitionWithoutLinkIsNoOp(t *testing.T) {
	_, gateway, svc := fixture(t)

	require.NoError(t, svc.CancelSale(context.Background(), "m1", "missing"))
	require.Empty(t, gateway.transitions)
}
