package memory

import (
	"sync"
	"time"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

// Store — общее in-memory состояние всех репозиториев. Чекаут и отмена
// трогают заказ и остатки одной единицей работы, поэтому репозитории делят
// один мьютекс вместо независимых хранилищ.
type Store struct {
	mu sync.RWMutex

	orders     map[string]domain.Order
	stockItems map[string]domain.StockItem
	shopStock  map[string]domain.ShopStock
	// shopStockIdx ведёт уникальность пары (shop, stock item).
	shopStockIdx map[string]string
	profiles     map[string]domain.LoyaltyProfile
	shops        map[string]domain.Shop
	baskets      map[string]domain.Basket
}

// NewStore возвращает пустое in-memory хранилище для локальной разработки и тестов.
func NewStore() *Store {
	return &Store{
		orders:       make(map[string]domain.Order),
		stockItems:   make(map[string]domain.StockItem),
		shopStock:    make(map[string]domain.ShopStock),
		shopStockIdx: make(map[string]string),
		profiles:     make(map[string]domain.LoyaltyProfile),
		shops:        make(map[string]domain.Shop),
		baskets:      make(map[string]domain.Basket),
	}
}

// Orders возвращает репозиторий заказов поверх общего состояния.
func (s *Store) Orders() domain.OrderRepository { return &orderRepository{store: s} }

// Stock возвращает репозиторий склада поверх общего состояния.
func (s *Store) Stock() domain.StockRepository { return &stockRepository{store: s} }

// Loyalty возвращает репозиторий профилей лояльности.
func (s *Store) Loyalty() domain.LoyaltyRepository { return &loyaltyRepository{store: s} }

// Shops возвращает репозиторий магазинов.
func (s *Store) Shops() domain.ShopRepository { return &shopRepository{store: s} }

// Baskets возвращает репозиторий корзин.
func (s *Store) Baskets() domain.BasketRepository { return &basketRepository{store: s} }

func shopStockKey(shopID, stockItemID string) string {
	return shopID + "|" + stockItemID
}

// applyAdjustmentsLocked применяет изменения остатков на копиях строк и
// возвращает их для коммита. Любая ошибка оставляет хранилище нетронутым.
// Вызывается строго под write-lock.
func (s *Store) applyAdjustmentsLocked(adjustments []domain.StockAdjustment) (map[string]domain.StockItem, map[string]domain.ShopStock, error) {
	now := time.Now().UTC()
	items := make(map[string]domain.StockItem)
	shopRows := make(map[string]domain.ShopStock)

	for _, adj := range adjustments {
		if adj.Delta == 0 {
			continue
		}
		switch adj.Channel {
		case domain.ChannelWeb:
			item, ok := items[adj.StockItemID]
			if !ok {
				item, ok = s.stockItems[adj.StockItemID]
				if !ok {
					return nil, nil, domain.ErrItemNotFound
				}
			}
			if adj.ExpectedVersion >= 0 && item.Version != adj.ExpectedVersion {
				return nil, nil, domain.ErrStockChanged
			}
			// Центральный пул может уходить в минус при web-перепродаже.
			item.Quantity += adj.Delta
			item.Version++
			item.UpdatedAt = now
			items[adj.StockItemID] = item
		case domain.ChannelShop:
			key := shopStockKey(adj.ShopID, adj.StockItemID)
			id, ok := s.shopStockIdx[key]
			if !ok {
				return nil, nil, domain.ErrShopStockNotFound
			}
			row, ok := shopRows[id]
			if !ok {
				row = s.shopStock[id]
			}
			if adj.ExpectedVersion >= 0 && row.Version != adj.ExpectedVersion {
				return nil, nil, domain.ErrStockChanged
			}
			if row.QtyOnHand+adj.Delta < 0 {
				return nil, nil, domain.ErrStockChanged
			}
			row.QtyOnHand += adj.Delta
			row.Version++
			row.UpdatedAt = now
			shopRows[id] = row
		default:
			return nil, nil, domain.ErrChannelInvalid
		}
	}

	return items, shopRows, nil
}

// commitAdjustmentsLocked записывает подготовленные копии в хранилище.
func (s *Store) commitAdjustmentsLocked(items map[string]domain.StockItem, shopRows map[string]domain.ShopStock) {
	for id, item := range items {
		s.stockItems[id] = item
	}
	for id, row := range shopRows {
		s.shopStock[id] = row
	}
}
