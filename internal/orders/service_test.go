package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hubfood/ifood-erp-sync/internal/events"
	"github.com/hubfood/ifood-erp-sync/internal/inventory"
	"github.com/hubfood/ifood-erp-sync/pkg/db/models"
	"github.com/hubfood/ifood-erp-sync/pkg/enums"
	"github.com/hubfood/ifood-erp-sync/pkg/ifood"
	"github.com/hubfood/ifood-erp-sync/pkg/logger"
)

type fakeOrderRepo struct {
	orders map[string]*models.Order
	items  map[uuid.UUID][]models.OrderItem
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders: map[string]*models.Order{},
		items:  map[uuid.UUID][]models.OrderItem{},
	}
}

func orderKey(merchantID, orderID string) string { return merchantID + "|" + orderID }

func (f *fakeOrderRepo) FindOrder(_ context.Context, merchantID, orderID string) (*models.Order, error) {
	return f.orders[orderKey(merchantID, orderID)], nil
}

func (f *fakeOrderRepo) CreateOrder(_ context.Context, order *models.Order) error {
	order.ID = uuid.New()
	for i := range order.Items {
		order.Items[i].ID = uuid.New()
		order.Items[i].OrderRef = order.ID
	}
	f.orders[orderKey(order.MerchantID, order.OrderID)] = order
	f.items[order.ID] = order.Items
	return nil
}

func (f *fakeOrderRepo) SaveOrder(_ context.Context, order *models.Order) error {
	f.orders[orderKey(order.MerchantID, order.OrderID)] = order
	return nil
}

func (f *fakeOrderRepo) FindItems(_ context.Context, orderRef uuid.UUID) ([]models.OrderItem, error) {
	out := make([]models.OrderItem, len(f.items[orderRef]))
	copy(out, f.items[orderRef])
	return out, nil
}

func (f *fakeOrderRepo) SaveItem(_ context.Context, item *models.OrderItem) error {
	stored := f.items[item.OrderRef]
	for i := range stored {
		if stored[i].ItemKey == item.ItemKey {
			stored[i] = *item
			return nil
		}
	}
	f.items[item.OrderRef] = append(stored, *item)
	return nil
}

type fakeFetcher struct {
	detail *ifood.OrderDetail
	err    error
	calls  int
}

func (f *fakeFetcher) OrderDetails(_ context.Context, _, _ string) (*ifood.OrderDetail, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.detail, nil
}

type engineCall struct {
	op      string
	itemKey string
	qty     int
}

// fakeReservations mirrors the engine contract: holds live in a map and
// operations without a matching hold report Skipped instead of mutating.
type fakeReservations struct {
	calls     []engineCall
	failKey   string
	skipCodes map[string]bool
	active    map[string]int
}

func (f *fakeReservations) holds() map[string]int {
	if f.active == nil {
		f.active = map[string]int{}
	}
	return f.active
}

func (f *fakeReservations) Reserve(_ context.Context, params inventory.ReserveParams) (inventory.Result, error) {
	if params.ItemKey == f.failKey {
		return inventory.Result{}, errors.New("reserve failed")
	}
	f.calls = append(f.calls, engineCall{op: "reserve", itemKey: params.ItemKey, qty: params.Qty})
	if f.skipCodes[params.ExternalCode] {
		return inventory.Result{Skipped: true}, nil
	}
	f.holds()[params.ItemKey] = params.Qty
	return inventory.Result{Qty: params.Qty}, nil
}

func (f *fakeReservations) Cancel(_ context.Context, key inventory.ReservationKey) (inventory.Result, error) {
	if key.ItemKey == f.failKey {
		return inventory.Result{}, errors.New("cancel failed")
	}
	f.calls = append(f.calls, engineCall{op: "cancel", itemKey: key.ItemKey})
	qty, held := f.holds()[key.ItemKey]
	if !held {
		return inventory.Result{Skipped: true}, nil
	}
	delete(f.active, key.ItemKey)
	return inventory.Result{Qty: qty}, nil
}

func (f *fakeReservations) Consume(_ context.Context, key inventory.ReservationKey) (inventory.Result, error) {
	if key.ItemKey == f.failKey {
		return inventory.Result{}, errors.New("consume failed")
	}
	f.calls = append(f.calls, engineCall{op: "consume", itemKey: key.ItemKey})
	qty, held := f.holds()[key.ItemKey]
	if !held {
		return inventory.Result{Skipped: true}, nil
	}
	delete(f.active, key.ItemKey)
	return inventory.Result{Qty: qty}, nil
}

type fakeSales struct {
	created   int
	cancelled int
	finalized int
}

func (f *fakeSales) CreateSale(_ context.Context, _ *models.Order, _ []models.OrderItem) error {
	f.created++
	return nil
}

func (f *fakeSales) CancelSale(_ context.Context, _, _ string) error {
	f.cancelled++
	return nil
}

func (f *fakeSales) FinalizeSale(_ context.Context, _, _ string) error {
	f.finalized++
	return nil
}

type machineFixture struct {
	repo    *fakeOrderRepo
	fetcher *fakeFetcher
	engine  *fakeReservations
	sales   *fakeSales
	svc     Service
}

func newMachine(t *testing.T) *machineFixture {
	t.Helper()
	repo := newFakeOrderRepo()
	fetcher := &fakeFetcher{detail: detailFixture()}
	engine := &fakeReservations{}
	sales := &fakeSales{}
	svc, err := NewService(repo, fetcher, engine, sales, logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)
	return &machineFixture{repo: repo, fetcher: fetcher, engine: engine, sales: sales, svc: svc}
}

func detailFixture() *ifood.OrderDetail {
	return &ifood.OrderDetail{
		ID:        "o1",
		DisplayID: "1234",
		CreatedAt: time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC),
		Customer: ifood.OrderCustomer{
			Name:           "Maria Souza",
			DocumentNumber: "12345678901",
		},
		Items: []ifood.OrderDetailItem{
			{UniqueID: "line-1", ExternalCode: "SKU-1", Name: "Marmita P", Quantity: 3, UnitPrice: decimal.NewFromInt(25)},
			{UniqueID: "line-2", ExternalCode: "SKU-2", Name: "Refrigerante", Quantity: 1, UnitPrice: decimal.NewFromInt(8)},
		},
		Total: ifood.OrderTotal{
			SubTotal:    decimal.NewFromInt(83),
			DeliveryFee: decimal.NewFromInt(8),
			OrderAmount: decimal.NewFromInt(91),
		},
	}
}

func envelope(code string) events.Envelope {
	return events.Envelope{
		MerchantID: "m1",
		EventID:    "ev-" + code,
		Code:       code,
		OrderID:    "o1",
		CreatedAt:  time.Date(2026, 8, 10, 12, 5, 0, 0, time.UTC),
	}
}

func TestPlacedSnapshotsWithoutReserving(t *testing.T) {
	f := newMachine(t)

	require.NoError(t, f.svc.HandleOrderEvent(context.Background(), envelope("PLC")))

	order := f.repo.orders[orderKey("m1", "o1")]
	require.NotNil(t, order)
	require.Equal(t, enums.OrderStatusPlaced, order.Status)
	require.Len(t, f.repo.items[order.ID], 2)
	require.Empty(t, f.engine.calls)
	require.Zero(t, f.sales.created)
}

func TestConfirmedReservesEveryLineAndMirrorsSale(t *testing.T) {
	f := newMachine(t)

	require.NoError(t, f.svc.HandleOrderEvent(context.Background(), envelope("CFM")))

	require.Len(t, f.engine.calls, 2)
	require.Equal(t, engineCall{op: "reserve", itemKey: "line-1", qty: 3}, f.engine.calls[0])
	require.Equal(t, engineCall{op: "reserve", itemKey: "line-2", qty: 1}, f.engine.calls[1])
	require.Equal(t, 1, f.sales.created)

	order := f.repo.orders[orderKey("m1", "o1")]
	require.Equal(t, enums.OrderStatusConfirmed, order.Status)
	for _, item := range f.repo.items[order.ID] {
		require.Equal(t, enums.OrderItemReserved, item.State)
		require.Equal(t, item.Qty, item.ReservedQty)
	}
}

func TestConfirmedLineFailureDoesNotAbandonSiblings(t *testing.T) {
	f := newMachine(t)
	f.engine.failKey = "line-1"

	err := f.svc.HandleOrderEvent(context.Background(), envelope("CFM"))
	require.Error(t, err)

	// sibling still reserved
	require.Len(t, f.engine.calls, 1)
	require.Equal(t, "line-2", f.engine.calls[0].itemKey)

	order := f.repo.orders[orderKey("m1", "o1")]
	states := map[string]enums.OrderItemState{}
	for _, item := range f.repo.items[order.ID] {
		states[item.ItemKey] = item.State
	}
	require.Equal(t, enums.OrderItemNew, states["line-1"])
	require.Equal(t, enums.OrderItemReserved, states["line-2"])
}

func TestCancelledReleasesAndCancelsSale(t *testing.T) {
	f := newMachine(t)
	ctx := context.Background()

	require.NoError(t, f.svc.HandleOrderEvent(ctx, envelope("CFM")))
	f.engine.calls = nil

	require.NoError(t, f.svc.HandleOrderEvent(ctx, envelope("CAN")))

	require.Len(t, f.engine.calls, 2)
	for _, call := range f.engine.calls {
		require.Equal(t, "cancel", call.op)
	}
	require.Equal(t, 1, f.sales.cancelled)

	order := f.repo.orders[orderKey("m1", "o1")]
	require.Equal(t, enums.OrderStatusCancelled, order.Status)
	for _, item := range f.repo.items[order.ID] {
		require.Equal(t, enums.OrderItemCancelled, item.State)
		require.Zero(t, item.ReservedQty)
		require.Equal(t, item.Qty, item.CancelledQty)
	}
}

func TestConcludedSettlesAndFinalizesSale(t *testing.T) {
	f := newMachine(t)
	ctx := context.Background()

	require.NoError(t, f.svc.HandleOrderEvent(ctx, envelope("CFM")))
	f.engine.calls = nil

	require.NoError(t, f.svc.HandleOrderEvent(ctx, envelope("CON")))

	require.Len(t, f.engine.calls, 2)
	for _, call := range f.engine.calls {
		require.Equal(t, "consume", call.op)
	}
	require.Equal(t, 1, f.sales.finalized)

	order := f.repo.orders[orderKey("m1", "o1")]
	require.Equal(t, enums.OrderStatusConcluded, order.Status)
	for _, item := range f.repo.items[order.ID] {
		require.Equal(t, enums.OrderItemConcluded, item.State)
		require.Equal(t, item.Qty, item.ConcludedQty)
	}
}

func TestStatusOnlyCodesDoNotTouchStock(t *testing.T) {
	f := newMachine(t)
	ctx := context.Background()

	require.NoError(t, f.svc.HandleOrderEvent(ctx, envelope("PLC")))
	require.NoError(t, f.svc.HandleOrderEvent(ctx, envelope("PRS")))
	require.NoError(t, f.svc.HandleOrderEvent(ctx, envelope("DSP")))

	require.Empty(t, f.engine.calls)
	require.Equal(t, enums.OrderStatusDispatched, f.repo.orders[orderKey("m1", "o1")].Status)
	// every event refreshes the snapshot from the marketplace
	require.Equal(t, 3, f.fetcher.calls)
}

func TestEveryEventRefreshesSnapshotHeader(t *testing.T) {
	f := newMachine(t)
	ctx := context.Background()

	require.NoError(t, f.svc.HandleOrderEvent(ctx, envelope("PLC")))

	// the marketplace amended the order between events
	f.fetcher.detail.Total.OrderAmount = decimal.NewFromInt(120)
	f.fetcher.detail.Customer.Phone.Number = "11987654321"

	require.NoError(t, f.svc.HandleOrderEvent(ctx, envelope("PRS")))

	order := f.repo.orders[orderKey("m1", "o1")]
	require.True(t, decimal.NewFromInt(120).Equal(order.TotalAmount))
	require.NotNil(t, order.CustomerPhone)
	require.Equal(t, "11987654321", *order.CustomerPhone)
	// item rows survive the refresh untouched
	require.Len(t, f.repo.items[order.ID], 2)
}

func TestDetailFetchFailurePropagates(t *testing.T) {
	f := newMachine(t)
	f.fetcher.err = errors.New("order not visible yet")

	err := f.svc.HandleOrderEvent(context.Background(), envelope("CFM"))
	require.Error(t, err)
	require.Empty(t, f.repo.orders)
}

func TestCancelWithoutPriorConfirmLeavesCountersAlone(t *testing.T) {
	f := newMachine(t)

	// CAN arrives first, the engine has no holds to release
	require.NoError(t, f.svc.HandleOrderEvent(context.Background(), envelope("CAN")))

	order := f.repo.orders[orderKey("m1", "o1")]
	require.Equal(t, enums.OrderStatusCancelled, order.Status)
	for _, item := range f.repo.items[order.ID] {
		require.Zero(t, item.CancelledQty)
		require.Zero(t, item.ReservedQty)
		require.Equal(t, enums.OrderItemNew, item.State)
	}
}

func TestConcludeWithoutPriorConfirmLeavesCountersAlone(t *testing.T) {
	f := newMachine(t)

	require.NoError(t, f.svc.HandleOrderEvent(context.Background(), envelope("CON")))

	order := f.repo.orders[orderKey("m1", "o1")]
	require.Equal(t, enums.OrderStatusConcluded, order.Status)
	for _, item := range f.repo.items[order.ID] {
		require.Zero(t, item.ConcludedQty)
		require.Equal(t, enums.OrderItemNew, item.State)
	}
}

func TestSkippedReserveLeavesLineUnreserved(t *testing.T) {
	f := newMachine(t)
	f.engine.skipCodes = map[string]bool{"SKU-1": true}

	require.NoError(t, f.svc.HandleOrderEvent(context.Background(), envelope("CFM")))

	order := f.repo.orders[orderKey("m1", "o1")]
	states := map[string]models.OrderItem{}
	for _, item := range f.repo.items[order.ID] {
		states[item.ItemKey] = item
	}
	// the uncataloged line keeps its counters, the sibling reserves normally
	require.Zero(t, states["line-1"].ReservedQty)
	require.Equal(t, enums.OrderItemNew, states["line-1"].State)
	require.Equal(t, 1, states["line-2"].ReservedQty)
	require.Equal(t, enums.OrderItemReserved, states["line-2"].State)
}

func TestConcludeSkipsCancelledLines(t *testing.T) {
	f := newMachine(t)
	ctx := context.Background()

	require.NoError(t, f.svc.HandleOrderEvent(ctx, envelope("CFM")))

	// operator voided one line before conclusion
	order := f.repo.orders[orderKey("m1", "o1")]
	items := f.repo.items[order.ID]
	for i := range items {
		if items[i].ItemKey == "line-1" {
			items[i].State = enums.OrderItemCancelled
		}
	}
	f.repo.items[order.ID] = items
	f.engine.calls = nil

	require.NoError(t, f.svc.HandleOrderEvent(ctx, envelope("CON")))

	require.Len(t, f.engine.calls, 1)
	require.Equal(t, engineCall{op: "consume", itemKey: "line-2"}, f.engine.calls[0])
}
