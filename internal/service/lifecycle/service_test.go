package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/retail/internal/domain"
	"github.com/vladislavdragonenkov/retail/internal/service/inventory"
	"github.com/vladislavdragonenkov/retail/internal/service/loyalty"
	"github.com/vladislavdragonenkov/retail/internal/service/tier"
	"github.com/vladislavdragonenkov/retail/internal/storage/memory"
)

const testShopID = "shop-1"

type fixture struct {
	store   *memory.Store
	svc     *Service
	loyalty *loyalty.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	require.NoError(t, store.Stock().CreateStockItem(domain.StockItem{
		ID:             "item-book",
		Name:           "Dune",
		Category:       domain.StockCategoryBook,
		BuyPriceMinor:  400,
		SellPriceMinor: 1000,
		Quantity:       10,
	}))
	require.NoError(t, store.Shops().Create(domain.Shop{ID: testShopID, Name: "High Street"}))
	_, err := store.Stock().Transfer(domain.TransferRequest{
		ShopID:      testShopID,
		StockItemID: "item-book",
		Qty:         5,
	})
	require.NoError(t, err)

	engine := tier.New(tier.Rules{
		SilverMinProfitMinor:   500,
		GoldMinProfitMinor:     2000,
		PlatinumMinProfitMinor: 5000,
		Discounts:              map[domain.Tier]int{domain.TierSilver: 5, domain.TierGold: 10, domain.TierPlatinum: 15},
	})
	loyaltyStore := loyalty.NewStore(store.Loyalty(), store.Orders(), engine, nil)
	ledger := inventory.NewLedger(store.Stock(), nil)

	svc := NewService(store.Orders(), ledger, loyaltyStore, nil, nil, nil)
	return &fixture{store: store, svc: svc, loyalty: loyaltyStore}
}

// seedOrder сохраняет заказ вместе со списанием отгружаемой части, как это
// делает чекаут.
func (f *fixture) seedOrder(t *testing.T, order domain.Order) domain.Order {
	t.Helper()

	ledger := inventory.NewLedger(f.store.Stock(), nil)
	planned := make([]inventory.PlannedLine, 0, len(order.Items))
	for _, item := range order.Items {
		planned = append(planned, inventory.PlannedLine{
			Pricing:        inventory.LinePricing{StockItemID: item.StockItemID, Version: -1},
			Qty:            item.Qty,
			QtyBackordered: item.QtyBackordered,
		})
	}
	adjustments := ledger.DecrementAdjustments(order.Channel, order.ShopID, planned)
	for i := range adjustments {
		adjustments[i].ExpectedVersion = -1
	}
	require.NoError(t, f.store.Orders().CreateWithAdjustments(order, adjustments))
	return order
}

func shopOrder(status domain.OrderStatus) domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID:         "ord-1",
		CustomerID: "cust-1",
		Channel:    domain.ChannelShop,
		ShopID:     testShopID,
		Items: []domain.OrderItem{{
			ID:             "line-1",
			OrderID:        "ord-1",
			StockItemID:    "item-book",
			Qty:            4,
			QtyBackordered: 1,
			UnitPriceMinor: 1000,
			UnitCostMinor:  400,
			CreatedAt:      now,
		}},
		SubtotalMinor:    4000,
		GrandTotalMinor:  4000,
		TotalCostMinor:   1600,
		TotalProfitMinor: 2400,
		Status:           status,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (f *fixture) shopQty(t *testing.T, itemID string) int64 {
	t.Helper()
	rows, err := f.store.Stock().GetShopStock(testShopID, []string{itemID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	return rows[0].QtyOnHand
}

func TestUpdateStatusInvalid(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpdateStatus("ord-1", "shipped")
	require.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestUpdateStatusUnknownOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpdateStatus("no-such-order", string(domain.OrderStatusFulfilled))
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestUpdateStatusNoOp(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, shopOrder(domain.OrderStatusPending))

	res, err := f.svc.UpdateStatus("ord-1", string(domain.OrderStatusPending))
	require.NoError(t, err)
	require.True(t, res.AlreadyInState)
	require.False(t, res.StockReturned)

	// Версия заказа не менялась.
	got, err := f.store.Orders().Get("ord-1")
	require.NoError(t, err)
	require.EqualValues(t, 0, got.Version)
}

func TestCancelReturnsShopStock(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, shopOrder(domain.OrderStatusPending))
	// Списана отгружаемая часть: 4 - 1 backorder = 3.
	require.EqualValues(t, 2, f.shopQty(t, "item-book"))

	res, err := f.svc.UpdateStatus("ord-1", string(domain.OrderStatusCancelled))
	require.NoError(t, err)
	require.True(t, res.StockReturned)
	require.Equal(t, domain.OrderStatusCancelled, res.Order.Status)

	// Возвращается ровно отгружавшаяся часть, backorder остатков не трогал.
	require.EqualValues(t, 5, f.shopQty(t, "item-book"))

	got, err := f.store.Orders().Get("ord-1")
	require.NoError(t, err)
	require.True(t, got.StockReturned)
	require.EqualValues(t, 1, got.Version)
}

func TestCancelTwiceIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, shopOrder(domain.OrderStatusPending))

	_, err := f.svc.UpdateStatus("ord-1", string(domain.OrderStatusCancelled))
	require.NoError(t, err)
	require.EqualValues(t, 5, f.shopQty(t, "item-book"))

	res, err := f.svc.UpdateStatus("ord-1", string(domain.OrderStatusCancelled))
	require.NoError(t, err)
	require.True(t, res.AlreadyInState)
	require.False(t, res.StockReturned)

	// Повторная отмена остатки не задваивает.
	require.EqualValues(t, 5, f.shopQty(t, "item-book"))
}

func TestCancelledIsTerminal(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, shopOrder(domain.OrderStatusPending))

	_, err := f.svc.UpdateStatus("ord-1", string(domain.OrderStatusCancelled))
	require.NoError(t, err)

	for _, target := range []domain.OrderStatus{domain.OrderStatusPending, domain.OrderStatusFulfilled} {
		_, err := f.svc.UpdateStatus("ord-1", string(target))
		require.ErrorIs(t, err, domain.ErrTransitionNotAllowed, "cancelled -> %s", target)
	}
}

func TestFulfilledReopensToPending(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, shopOrder(domain.OrderStatusFulfilled))

	// Операторский откат: закрытый заказ возвращается в работу,
	// остатки при этом не трогаются.
	res, err := f.svc.UpdateStatus("ord-1", string(domain.OrderStatusPending))
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusPending, res.Order.Status)
	require.False(t, res.StockReturned)
	require.EqualValues(t, 2, f.shopQty(t, "item-book"))

	got, err := f.store.Orders().Get("ord-1")
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusPending, got.Status)
	require.False(t, got.StockReturned)
}

func TestFulfillRecomputesLoyalty(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, shopOrder(domain.OrderStatusPending))

	// Дрейфанувший профиль: пересчёт должен выставить его от источника.
	_, err := f.loyalty.ApplyAfterSale("cust-1", 9999)
	require.NoError(t, err)

	res, err := f.svc.UpdateStatus("ord-1", string(domain.OrderStatusFulfilled))
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusFulfilled, res.Order.Status)

	profile, err := f.store.Loyalty().GetByCustomer("cust-1")
	require.NoError(t, err)
	require.EqualValues(t, 2400, profile.LifetimeProfitMinor, "lifetime equals sum of fulfilled orders")
	require.Equal(t, domain.TierGold, profile.Tier)
}

func TestFulfillGuestSkipsLoyalty(t *testing.T) {
	f := newFixture(t)
	order := shopOrder(domain.OrderStatusPending)
	order.CustomerID = domain.GuestCustomerID
	f.seedOrder(t, order)

	_, err := f.svc.UpdateStatus("ord-1", string(domain.OrderStatusFulfilled))
	require.NoError(t, err)

	_, err = f.store.Loyalty().GetByCustomer(domain.GuestCustomerID)
	require.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestCancelWebOrderReturnsCentralStock(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()
	order := domain.Order{
		ID:         "ord-web",
		CustomerID: "cust-2",
		Channel:    domain.ChannelWeb,
		Items: []domain.OrderItem{{
			ID:             "line-1",
			OrderID:        "ord-web",
			StockItemID:    "item-book",
			Qty:            3,
			UnitPriceMinor: 1000,
			UnitCostMinor:  400,
			CreatedAt:      now,
		}},
		SubtotalMinor:    3000,
		GrandTotalMinor:  3000,
		TotalCostMinor:   1200,
		TotalProfitMinor: 1800,
		Status:           domain.OrderStatusFulfilled,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	f.seedOrder(t, order)

	item, err := f.store.Stock().GetStockItem("item-book")
	require.NoError(t, err)
	require.EqualValues(t, 2, item.Quantity, "5 after transfer minus 3 sold")

	res, err := f.svc.UpdateStatus("ord-web", string(domain.OrderStatusCancelled))
	require.NoError(t, err)
	require.True(t, res.StockReturned)

	item, err = f.store.Stock().GetStockItem("item-book")
	require.NoError(t, err)
	require.EqualValues(t, 5, item.Quantity)
}
