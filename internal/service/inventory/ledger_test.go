package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/retail/internal/domain"
	"github.com/vladislavdragonenkov/retail/internal/storage/memory"
)

const ledgerShopID = "shop-1"

// newLedger поднимает ledger поверх in-memory склада: два товара в каталоге,
// первый частично передан в магазин.
func newLedger(t *testing.T) (*Ledger, *memory.Store) {
	t.Helper()

	store := memory.NewStore()
	stock := store.Stock()

	require.NoError(t, stock.CreateStockItem(domain.StockItem{
		ID:             "item-book",
		Name:           "Dune",
		Category:       domain.StockCategoryBook,
		BuyPriceMinor:  400,
		SellPriceMinor: 1000,
		Quantity:       10,
	}))
	require.NoError(t, stock.CreateStockItem(domain.StockItem{
		ID:             "item-toy",
		Name:           "Rubik Cube",
		Category:       domain.StockCategoryToy,
		BuyPriceMinor:  200,
		SellPriceMinor: 500,
		Quantity:       3,
	}))
	require.NoError(t, store.Shops().Create(domain.Shop{ID: ledgerShopID, Name: "High Street"}))

	ledger := NewLedger(stock, nil)
	_, err := ledger.Transfer(domain.TransferRequest{
		ShopID:            ledgerShopID,
		StockItemID:       "item-book",
		Qty:               4,
		LowStockThreshold: 2,
	})
	require.NoError(t, err)

	return ledger, store
}

func TestResolvePricingWebUsesCatalogue(t *testing.T) {
	ledger, _ := newLedger(t)

	pricing, err := ledger.ResolvePricing(domain.ChannelWeb, "", []domain.BasketLine{
		{StockItemID: "item-book", Qty: 2},
		{StockItemID: "item-toy", Qty: 1},
	})
	require.NoError(t, err)
	require.Len(t, pricing, 2)

	assert.Equal(t, int64(1000), pricing[0].SellPriceMinor)
	assert.Equal(t, int64(400), pricing[0].BuyPriceMinor)
	// Transfer уже списал 4 с центрального пула.
	assert.Equal(t, int64(6), pricing[0].Available)
	assert.False(t, pricing[0].HasShopRow)
	assert.Equal(t, int64(500), pricing[1].SellPriceMinor)
	assert.Equal(t, int64(3), pricing[1].Available)
}

func TestResolvePricingShopUsesInheritedPrices(t *testing.T) {
	ledger, store := newLedger(t)

	rows, err := store.Stock().GetShopStock(ledgerShopID, []string{"item-book"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	_, err = ledger.SetShopPrices(rows[0].ID, 450, 1200)
	require.NoError(t, err)

	pricing, err := ledger.ResolvePricing(domain.ChannelShop, ledgerShopID, []domain.BasketLine{
		{StockItemID: "item-book", Qty: 1},
	})
	require.NoError(t, err)
	require.Len(t, pricing, 1)

	assert.Equal(t, int64(1200), pricing[0].SellPriceMinor)
	assert.Equal(t, int64(450), pricing[0].BuyPriceMinor)
	assert.Equal(t, int64(4), pricing[0].Available)
	assert.True(t, pricing[0].HasShopRow)
}

func TestResolvePricingShopFallsBackToCatalogue(t *testing.T) {
	ledger, _ := newLedger(t)

	// item-toy в магазин не передавался: цены каталожные, доступность нулевая.
	pricing, err := ledger.ResolvePricing(domain.ChannelShop, ledgerShopID, []domain.BasketLine{
		{StockItemID: "item-toy", Qty: 1},
	})
	require.NoError(t, err)
	require.Len(t, pricing, 1)

	assert.Equal(t, int64(500), pricing[0].SellPriceMinor)
	assert.Zero(t, pricing[0].Available)
	assert.False(t, pricing[0].HasShopRow)
}

func TestResolvePricingUnknownItem(t *testing.T) {
	ledger, _ := newLedger(t)

	_, err := ledger.ResolvePricing(domain.ChannelWeb, "", []domain.BasketLine{
		{StockItemID: "item-ghost", Qty: 1},
	})
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestPlanLineShopBackorder(t *testing.T) {
	ledger, _ := newLedger(t)

	pricing := LinePricing{StockItemID: "item-book", Available: 4}
	planned := ledger.PlanLine(domain.ChannelShop, pricing, 7)
	assert.Equal(t, int64(7), planned.Qty)
	assert.Equal(t, int64(3), planned.QtyBackordered)
	assert.Equal(t, int64(4), planned.QtyFulfilled())

	planned = ledger.PlanLine(domain.ChannelShop, pricing, 4)
	assert.Zero(t, planned.QtyBackordered)
}

func TestPlanLineWebNeverBackorders(t *testing.T) {
	ledger, _ := newLedger(t)

	pricing := LinePricing{StockItemID: "item-book", Available: 2}
	planned := ledger.PlanLine(domain.ChannelWeb, pricing, 9)
	assert.Equal(t, int64(9), planned.Qty)
	assert.Zero(t, planned.QtyBackordered)
}

func TestDecrementAdjustments(t *testing.T) {
	ledger, _ := newLedger(t)

	planned := []PlannedLine{
		{Pricing: LinePricing{StockItemID: "item-book", Available: 4, Version: 1}, Qty: 7, QtyBackordered: 3},
		{Pricing: LinePricing{StockItemID: "item-toy", Available: 0, Version: -1}, Qty: 2, QtyBackordered: 2},
	}

	shop := ledger.DecrementAdjustments(domain.ChannelShop, ledgerShopID, planned)
	// Полностью backorder-ная позиция ничего не списывает.
	require.Len(t, shop, 1)
	assert.Equal(t, domain.ChannelShop, shop[0].Channel)
	assert.Equal(t, ledgerShopID, shop[0].ShopID)
	assert.Equal(t, int64(-4), shop[0].Delta)
	assert.Equal(t, int64(1), shop[0].ExpectedVersion)

	web := ledger.DecrementAdjustments(domain.ChannelWeb, "", planned)
	require.Len(t, web, 2)
	assert.Equal(t, int64(-7), web[0].Delta)
	assert.Equal(t, int64(-2), web[1].Delta)
}

func TestReturnAdjustments(t *testing.T) {
	ledger, _ := newLedger(t)

	shopOrder := domain.Order{
		Channel: domain.ChannelShop,
		ShopID:  ledgerShopID,
		Items: []domain.OrderItem{
			{StockItemID: "item-book", Qty: 7, QtyBackordered: 3},
			{StockItemID: "item-toy", Qty: 2, QtyBackordered: 2},
		},
	}
	returns := ledger.ReturnAdjustments(shopOrder)
	require.Len(t, returns, 1)
	assert.Equal(t, int64(4), returns[0].Delta)
	assert.Equal(t, int64(-1), returns[0].ExpectedVersion)

	webOrder := domain.Order{
		Channel: domain.ChannelWeb,
		Items:   []domain.OrderItem{{StockItemID: "item-book", Qty: 7}},
	}
	returns = ledger.ReturnAdjustments(webOrder)
	require.Len(t, returns, 1)
	assert.Equal(t, int64(7), returns[0].Delta)
}

func TestTransferInsufficientStock(t *testing.T) {
	ledger, _ := newLedger(t)

	_, err := ledger.Transfer(domain.TransferRequest{
		ShopID:      ledgerShopID,
		StockItemID: "item-toy",
		Qty:         5,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestTransferValidation(t *testing.T) {
	ledger, _ := newLedger(t)

	_, err := ledger.Transfer(domain.TransferRequest{StockItemID: "item-book", Qty: 1})
	assert.ErrorIs(t, err, domain.ErrShopRequired)

	_, err = ledger.Transfer(domain.TransferRequest{ShopID: ledgerShopID, StockItemID: "item-book", Qty: 0})
	assert.ErrorIs(t, err, domain.ErrItemQtyInvalid)
}

func TestSetShopPricesRejectsNegative(t *testing.T) {
	ledger, _ := newLedger(t)

	_, err := ledger.SetShopPrices("row-1", -1, 100)
	assert.ErrorIs(t, err, domain.ErrItemPriceInvalid)
}

func TestLowStock(t *testing.T) {
	ledger, store := newLedger(t)

	low, err := ledger.LowStock(ledgerShopID)
	require.NoError(t, err)
	assert.Empty(t, low)

	// Списываем до порога включительно.
	require.NoError(t, store.Orders().CreateWithAdjustments(domain.Order{
		ID:         "ord-low",
		CustomerID: domain.GuestCustomerID,
		Channel:    domain.ChannelShop,
		ShopID:     ledgerShopID,
		Status:     domain.OrderStatusFulfilled,
		Items:      []domain.OrderItem{{ID: "oi-1", StockItemID: "item-book", Qty: 2}},
	}, []domain.StockAdjustment{{
		Channel:         domain.ChannelShop,
		ShopID:          ledgerShopID,
		StockItemID:     "item-book",
		Delta:           -2,
		ExpectedVersion: -1,
	}}))

	low, err = ledger.LowStock(ledgerShopID)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "item-book", low[0].StockItemID)
	assert.Equal(t, int64(2), low[0].QtyOnHand)
}
