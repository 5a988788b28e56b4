package integration

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/retail/internal/domain"
	"github.com/vladislavdragonenkov/retail/internal/service/checkout"
	"github.com/vladislavdragonenkov/retail/internal/service/inventory"
	"github.com/vladislavdragonenkov/retail/internal/service/lifecycle"
	"github.com/vladislavdragonenkov/retail/internal/service/loyalty"
	"github.com/vladislavdragonenkov/retail/internal/service/tier"
	"github.com/vladislavdragonenkov/retail/internal/storage/memory"
)

// OrderLifecycleTestSuite тестирует полный жизненный цикл розничного заказа:
// корзина, чекаут, смена статуса, возврат остатков и лояльность.
type OrderLifecycleTestSuite struct {
	suite.Suite
	store     *memory.Store
	checkout  *checkout.Service
	lifecycle *lifecycle.Service
	loyalty   *loyalty.Store
	ledger    *inventory.Ledger
}

func (suite *OrderLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel) // Уменьшаем шум в тестах
	logger := baseLogger.WithField("component", "integration-test")

	suite.store = memory.NewStore()
	stock := suite.store.Stock()

	suite.Require().NoError(stock.CreateStockItem(domain.StockItem{
		ID:             "item-console",
		Name:           "Retro Console",
		Category:       domain.StockCategoryGame,
		BuyPriceMinor:  8000,
		SellPriceMinor: 20000,
		Quantity:       20,
	}))
	suite.Require().NoError(stock.CreateStockItem(domain.StockItem{
		ID:             "item-novel",
		Name:           "Hyperion",
		Category:       domain.StockCategoryBook,
		BuyPriceMinor:  500,
		SellPriceMinor: 1500,
		Quantity:       12,
	}))
	suite.Require().NoError(suite.store.Shops().Create(domain.Shop{ID: "shop-main", Name: "Main Street"}))

	rules := tier.Rules{
		SilverMinProfitMinor:   10000,
		GoldMinProfitMinor:     30000,
		PlatinumMinProfitMinor: 90000,
		Discounts: map[domain.Tier]int{
			domain.TierBronze:   0,
			domain.TierSilver:   5,
			domain.TierGold:     10,
			domain.TierPlatinum: 15,
		},
	}
	engine := tier.New(rules)
	suite.loyalty = loyalty.NewStore(suite.store.Loyalty(), suite.store.Orders(), engine, logger)
	suite.ledger = inventory.NewLedger(stock, logger)
	suite.checkout = checkout.NewService(
		suite.store.Orders(), suite.store.Baskets(), suite.store.Shops(),
		suite.ledger, suite.loyalty, nil, nil, logger,
	)
	suite.lifecycle = lifecycle.NewService(
		suite.store.Orders(), suite.ledger, suite.loyalty, nil, nil, logger,
	)

	_, err := suite.ledger.Transfer(domain.TransferRequest{
		ShopID:      "shop-main",
		StockItemID: "item-console",
		Qty:         3,
	})
	suite.Require().NoError(err)
}

func (suite *OrderLifecycleTestSuite) fillBasket(token string, lines ...domain.BasketLine) {
	suite.Require().NoError(suite.store.Baskets().Save(domain.Basket{Token: token, Lines: lines}))
}

func (suite *OrderLifecycleTestSuite) TestWebOrderLifecycle() {
	// 1. Корзина и чекаут.
	suite.fillBasket("sess-web",
		domain.BasketLine{StockItemID: "item-console", Qty: 1},
		domain.BasketLine{StockItemID: "item-novel", Qty: 2},
	)
	order, err := suite.checkout.Checkout(checkout.Request{
		SessionToken:    "sess-web",
		CustomerID:      "customer-123",
		Channel:         domain.ChannelWeb,
		ShippingName:    "Ivan Petrov",
		ShippingAddress: "10 Main Street",
	})
	suite.Require().NoError(err)
	suite.Equal(domain.OrderStatusFulfilled, order.Status)
	suite.Equal(int64(23000), order.GrandTotalMinor)
	suite.Equal(int64(14000), order.TotalProfitMinor)

	// 2. Web-чекаут списал центральный пул и очистил корзину.
	item, err := suite.store.Stock().GetStockItem("item-console")
	suite.Require().NoError(err)
	suite.Equal(int64(16), item.Quantity)
	basket, err := suite.store.Baskets().Get("sess-web")
	suite.Require().NoError(err)
	suite.Empty(basket.Lines)

	// 3. Исполненная продажа накопила профит и дала Silver.
	profile, err := suite.loyalty.GetOrCreate("customer-123")
	suite.Require().NoError(err)
	suite.Equal(int64(14000), profile.LifetimeProfitMinor)
	suite.Equal(domain.TierSilver, profile.Tier)

	// 4. Отмена возвращает полный объём на центральный склад.
	result, err := suite.lifecycle.UpdateStatus(order.ID, "cancelled")
	suite.Require().NoError(err)
	suite.True(result.StockReturned)
	item, err = suite.store.Stock().GetStockItem("item-console")
	suite.Require().NoError(err)
	suite.Equal(int64(17), item.Quantity)

	// 5. Из отменённого состояния выхода нет.
	_, err = suite.lifecycle.UpdateStatus(order.ID, "fulfilled")
	suite.ErrorIs(err, domain.ErrTransitionNotAllowed)
}

func (suite *OrderLifecycleTestSuite) TestShopBackorderLifecycle() {
	// В магазине 3 консоли, клиент берёт 5: 3 отгружаем, 2 в backorder.
	suite.fillBasket("sess-pos", domain.BasketLine{StockItemID: "item-console", Qty: 5})
	order, err := suite.checkout.Checkout(checkout.Request{
		SessionToken: "sess-pos",
		Channel:      domain.ChannelShop,
		ShopID:       "shop-main",
	})
	suite.Require().NoError(err)
	suite.Equal(domain.OrderStatusPending, order.Status)
	suite.Equal(domain.GuestCustomerID, order.CustomerID)
	suite.Require().Len(order.Items, 1)
	suite.Equal(int64(2), order.Items[0].QtyBackordered)

	rows, err := suite.store.Stock().GetShopStock("shop-main", []string{"item-console"})
	suite.Require().NoError(err)
	suite.Require().Len(rows, 1)
	suite.Zero(rows[0].QtyOnHand)

	// Отмена возвращает только отгружавшуюся часть.
	result, err := suite.lifecycle.UpdateStatus(order.ID, "cancelled")
	suite.Require().NoError(err)
	suite.True(result.StockReturned)
	rows, err = suite.store.Stock().GetShopStock("shop-main", []string{"item-console"})
	suite.Require().NoError(err)
	suite.Equal(int64(3), rows[0].QtyOnHand)

	// Повторная отмена ничего не возвращает во второй раз.
	result, err = suite.lifecycle.UpdateStatus(order.ID, "cancelled")
	suite.Require().NoError(err)
	suite.True(result.AlreadyInState)
	rows, err = suite.store.Stock().GetShopStock("shop-main", []string{"item-console"})
	suite.Require().NoError(err)
	suite.Equal(int64(3), rows[0].QtyOnHand)
}

func (suite *OrderLifecycleTestSuite) TestTierDiscountAppliesInShop() {
	// Разгоняем клиента до Gold web-продажами.
	for i := 0; i < 3; i++ {
		token := "sess-warmup"
		suite.fillBasket(token, domain.BasketLine{StockItemID: "item-console", Qty: 1})
		_, err := suite.checkout.Checkout(checkout.Request{
			SessionToken: token,
			CustomerID:   "customer-vip",
			Channel:      domain.ChannelWeb,
		})
		suite.Require().NoError(err)
	}
	profile, err := suite.loyalty.GetOrCreate("customer-vip")
	suite.Require().NoError(err)
	suite.Equal(domain.TierGold, profile.Tier)

	// POS-продажа того же клиента получает 10% скидку от подытога.
	suite.fillBasket("sess-vip", domain.BasketLine{StockItemID: "item-console", Qty: 1})
	order, err := suite.checkout.Checkout(checkout.Request{
		SessionToken: "sess-vip",
		CustomerID:   "customer-vip",
		Channel:      domain.ChannelShop,
		ShopID:       "shop-main",
	})
	suite.Require().NoError(err)
	suite.Equal(int64(20000), order.SubtotalMinor)
	suite.Equal(int64(2000), order.DiscountMinor)
	suite.Equal(int64(18000), order.GrandTotalMinor)
}

func (suite *OrderLifecycleTestSuite) TestFulfilBackorderedOrderDoesNotDoubleCountLoyalty() {
	suite.fillBasket("sess-pos", domain.BasketLine{StockItemID: "item-console", Qty: 5})
	order, err := suite.checkout.Checkout(checkout.Request{
		SessionToken: "sess-pos",
		CustomerID:   "customer-123",
		Channel:      domain.ChannelShop,
		ShopID:       "shop-main",
	})
	suite.Require().NoError(err)
	suite.Equal(domain.OrderStatusPending, order.Status)

	// Продажа состоялась на кассе, профит засчитан сразу.
	profile, err := suite.loyalty.GetOrCreate("customer-123")
	suite.Require().NoError(err)
	suite.Equal(order.TotalProfitMinor, profile.LifetimeProfitMinor)

	result, err := suite.lifecycle.UpdateStatus(order.ID, "fulfilled")
	suite.Require().NoError(err)
	suite.Equal(domain.OrderStatusFulfilled, result.Order.Status)

	// Пересчёт от исполненных заказов идемпотентен: профит не задваивается.
	profile, err = suite.loyalty.GetOrCreate("customer-123")
	suite.Require().NoError(err)
	suite.Equal(order.TotalProfitMinor, profile.LifetimeProfitMinor)
}

func (suite *OrderLifecycleTestSuite) TestGuestShopSaleSkipsLoyalty() {
	suite.fillBasket("sess-guest", domain.BasketLine{StockItemID: "item-console", Qty: 1})
	order, err := suite.checkout.Checkout(checkout.Request{
		SessionToken: "sess-guest",
		Channel:      domain.ChannelShop,
		ShopID:       "shop-main",
	})
	suite.Require().NoError(err)
	suite.Equal(domain.GuestCustomerID, order.CustomerID)
	suite.Zero(order.DiscountMinor)

	_, err = suite.store.Loyalty().GetByCustomer(domain.GuestCustomerID)
	suite.ErrorIs(err, domain.ErrProfileNotFound)
}

func TestOrderLifecycleTestSuite(t *testing.T) {
	suite.Run(t, new(OrderLifecycleTestSuite))
}
