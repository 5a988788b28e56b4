package memory

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

// stockRepository — in-memory реализация StockRepository поверх общего Store.
type stockRepository struct {
	store *Store
}

func (r *stockRepository) GetStockItem(id string) (domain.StockItem, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	item, ok := r.store.stockItems[id]
	if !ok {
		return domain.StockItem{}, domain.ErrItemNotFound
	}
	return item, nil
}

// GetStockItems возвращает найденные товары; отсутствующие id опускаются.
func (r *stockRepository) GetStockItems(ids []string) ([]domain.StockItem, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.StockItem, 0, len(ids))
	for _, id := range ids {
		if item, ok := r.store.stockItems[id]; ok {
			result = append(result, item)
		}
	}
	return result, nil
}

func (r *stockRepository) ListStockItems(category domain.StockCategory) ([]domain.StockItem, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.StockItem, 0, len(r.store.stockItems))
	for _, item := range r.store.stockItems {
		if category != "" && item.Category != category {
			continue
		}
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *stockRepository) CreateStockItem(item domain.StockItem) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.stockItems[item.ID]; exists {
		return domain.ErrAlreadyExists
	}
	r.store.stockItems[item.ID] = item
	return nil
}

// SaveStockItem перезаписывает товар с проверкой версии (optimistic locking).
func (r *stockRepository) SaveStockItem(item domain.StockItem) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.stockItems[item.ID]
	if !ok {
		return domain.ErrItemNotFound
	}
	if current.Version != item.Version {
		return domain.ErrVersionConflict
	}
	item.Version++
	item.UpdatedAt = time.Now().UTC()
	r.store.stockItems[item.ID] = item
	return nil
}

// GetShopStock возвращает строки остатков магазина; пары без строки опускаются.
func (r *stockRepository) GetShopStock(shopID string, stockItemIDs []string) ([]domain.ShopStock, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.ShopStock, 0, len(stockItemIDs))
	for _, itemID := range stockItemIDs {
		if id, ok := r.store.shopStockIdx[shopStockKey(shopID, itemID)]; ok {
			result = append(result, r.store.shopStock[id])
		}
	}
	return result, nil
}

func (r *stockRepository) ListShopStock(shopID string) ([]domain.ShopStock, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.ShopStock, 0)
	for _, row := range r.store.shopStock {
		if row.ShopID == shopID {
			result = append(result, row)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StockItemID < result[j].StockItemID })
	return result, nil
}

// Transfer атомарно перемещает товар с центрального склада в магазин.
func (r *stockRepository) Transfer(req domain.TransferRequest) (domain.ShopStock, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	item, ok := r.store.stockItems[req.StockItemID]
	if !ok {
		return domain.ShopStock{}, domain.ErrItemNotFound
	}
	if item.Quantity < req.Qty {
		return domain.ShopStock{}, domain.ErrInsufficientStock
	}
	if _, ok := r.store.shops[req.ShopID]; !ok {
		return domain.ShopStock{}, domain.ErrShopNotFound
	}

	now := time.Now().UTC()
	item.Quantity -= req.Qty
	item.Version++
	item.UpdatedAt = now
	r.store.stockItems[req.StockItemID] = item

	key := shopStockKey(req.ShopID, req.StockItemID)
	if id, ok := r.store.shopStockIdx[key]; ok {
		row := r.store.shopStock[id]
		row.QtyOnHand += req.Qty
		row.LowStockThreshold = req.LowStockThreshold
		row.Version++
		row.UpdatedAt = now
		r.store.shopStock[id] = row
		return row, nil
	}

	// Первая передача: заводим строку и снимаем цены с каталога.
	row := domain.ShopStock{
		ID:                      uuid.NewString(),
		ShopID:                  req.ShopID,
		StockItemID:             req.StockItemID,
		QtyOnHand:               req.Qty,
		LowStockThreshold:       req.LowStockThreshold,
		InheritedBuyPriceMinor:  item.BuyPriceMinor,
		InheritedSellPriceMinor: item.SellPriceMinor,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	r.store.shopStock[row.ID] = row
	r.store.shopStockIdx[key] = row.ID
	return row, nil
}

// SaveShopStockPrices обновляет унаследованные цены строки остатка.
func (r *stockRepository) SaveShopStockPrices(shopStockID string, buyMinor, sellMinor int64) (domain.ShopStock, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	row, ok := r.store.shopStock[shopStockID]
	if !ok {
		return domain.ShopStock{}, domain.ErrShopStockNotFound
	}
	row.InheritedBuyPriceMinor = buyMinor
	row.InheritedSellPriceMinor = sellMinor
	row.Version++
	row.UpdatedAt = time.Now().UTC()
	r.store.shopStock[shopStockID] = row
	return row, nil
}

var _ domain.StockRepository = (*stockRepository)(nil)
