package domain

import "time"

// OrderFilter ограничивает выборку заказов в административных списках.
type OrderFilter struct {
	Status     OrderStatus
	Channel    Channel
	ShopID     string
	CustomerID string
	From       time.Time
	To         time.Time
	Offset     int
	Limit      int
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// CreateWithAdjustments сохраняет заказ вместе с позициями и применяет
	// изменения остатков одной атомарной единицей работы. Несовпадение
	// ExpectedVersion любой строки остатка или уход shop-остатка в минус
	// откатывает всё и возвращает ErrStockChanged.
	CreateWithAdjustments(order Order, adjustments []StockAdjustment) error
	// Get возвращает заказ с позициями или ErrOrderNotFound.
	Get(id string) (Order, error)
	// ListByCustomer возвращает заказы клиента, новые первыми.
	ListByCustomer(customerID string, limit int) ([]Order, error)
	// List возвращает заказы по фильтру и общее число совпадений.
	List(filter OrderFilter) ([]Order, int, error)
	// SaveStatusWithReturns меняет статус/флаги заказа (optimistic locking
	// по Version) и в той же атомарной единице применяет возвраты остатков.
	SaveStatusWithReturns(order Order, returns []StockAdjustment) error
	// SumFulfilledProfit суммирует профит исполненных заказов клиента.
	SumFulfilledProfit(customerID string) (int64, error)
}

// StockRepository описывает хранилище центрального склада и остатков магазинов.
type StockRepository interface {
	GetStockItem(id string) (StockItem, error)
	// GetStockItems возвращает товары по списку id; отсутствующие просто
	// не попадают в результат — решение об ошибке принимает вызывающий.
	GetStockItems(ids []string) ([]StockItem, error)
	ListStockItems(category StockCategory) ([]StockItem, error)
	CreateStockItem(item StockItem) error
	// SaveStockItem применяет обновление с optimistic locking по Version.
	SaveStockItem(item StockItem) error

	// GetShopStock возвращает строки остатков магазина для перечисленных
	// товаров; пары без строки опускаются.
	GetShopStock(shopID string, stockItemIDs []string) ([]ShopStock, error)
	ListShopStock(shopID string) ([]ShopStock, error)
	// Transfer атомарно перемещает товар с центрального склада в магазин:
	// недостаток центрального остатка — ErrInsufficientStock, конкурентная
	// правка товара — ErrVersionConflict.
	Transfer(req TransferRequest) (ShopStock, error)
	// SaveShopStockPrices обновляет унаследованные цены строки остатка.
	SaveShopStockPrices(shopStockID string, buyMinor, sellMinor int64) (ShopStock, error)
}

// LoyaltyRepository описывает хранилище профилей лояльности.
type LoyaltyRepository interface {
	// GetByCustomer возвращает профиль или ErrProfileNotFound.
	GetByCustomer(customerID string) (LoyaltyProfile, error)
	// Create сохраняет новый профиль; повторное создание для той же
	// идентичности возвращает ErrAlreadyExists.
	Create(profile LoyaltyProfile) error
	// Save применяет обновление с optimistic locking по Version.
	Save(profile LoyaltyProfile) error
}

// ShopRepository описывает хранилище магазинов.
type ShopRepository interface {
	Create(shop Shop) error
	Get(id string) (Shop, error)
	List() ([]Shop, error)
}

// BasketRepository хранит корзины посетителей по непрозрачному session-токену.
// Корзина — per-visitor состояние; репозиторий инжектится в чекаут вместо
// глобального session-состояния.
type BasketRepository interface {
	// Get возвращает корзину по токену; отсутствующая корзина — пустая
	// корзина с этим токеном, не ошибка.
	Get(token string) (Basket, error)
	Save(basket Basket) error
	// Clear удаляет корзину; вызывается только после успешного коммита заказа.
	Clear(token string) error
}
