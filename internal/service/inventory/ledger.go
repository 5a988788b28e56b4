package inventory

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

// LinePricing — авторитетная цена, себестоимость и доступность одной позиции
// корзины на момент чтения. Version — версия строки остатка, по которой
// коммит обнаружит конкурентное изменение.
type LinePricing struct {
	StockItemID    string
	Name           string
	SellPriceMinor int64
	BuyPriceMinor  int64
	Available      int64
	Version        int64
	// HasShopRow false означает, что магазин ещё не получал этот товар:
	// цены взяты из каталога, доступность нулевая.
	HasShopRow bool
}

// PlannedLine — решение по одной позиции: сколько отгружаем, сколько в backorder.
type PlannedLine struct {
	Pricing        LinePricing
	Qty            int64
	QtyBackordered int64
}

// QtyFulfilled возвращает отгружаемую часть запрошенного количества.
func (p PlannedLine) QtyFulfilled() int64 {
	return p.Qty - p.QtyBackordered
}

// Ledger владеет двумя пулами остатков — центральным складом и остатками
// магазинов — и готовит изменения количеств для атомарного коммита.
type Ledger struct {
	stock  domain.StockRepository
	logger *log.Entry
}

// NewLedger создаёт ledger поверх хранилища склада.
func NewLedger(stock domain.StockRepository, logger *log.Entry) *Ledger {
	if logger == nil {
		logger = log.New().WithField("component", "inventory")
	}
	return &Ledger{stock: stock, logger: logger}
}

// ResolvePricing разрешает цены, себестоимость и доступность для всех позиций
// одним батчем. Для web-канала источник — каталог (StockItem); для shop-канала —
// снимок цен ShopStock с откатом к каталожным ценам, если магазин товара не
// получал. Позиция, ссылающаяся на удалённый товар, роняет весь вызов.
func (l *Ledger) ResolvePricing(channel domain.Channel, shopID string, lines []domain.BasketLine) ([]LinePricing, error) {
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.StockItemID)
	}

	items, err := l.stock.GetStockItems(ids)
	if err != nil {
		return nil, fmt.Errorf("load stock items: %w", err)
	}
	byID := make(map[string]domain.StockItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	var shopRows map[string]domain.ShopStock
	if channel == domain.ChannelShop {
		rows, err := l.stock.GetShopStock(shopID, ids)
		if err != nil {
			return nil, fmt.Errorf("load shop stock: %w", err)
		}
		shopRows = make(map[string]domain.ShopStock, len(rows))
		for _, row := range rows {
			shopRows[row.StockItemID] = row
		}
	}

	result := make([]LinePricing, 0, len(lines))
	for _, line := range lines {
		item, ok := byID[line.StockItemID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrItemNotFound, line.StockItemID)
		}

		pricing := LinePricing{
			StockItemID:    item.ID,
			Name:           item.Name,
			SellPriceMinor: item.SellPriceMinor,
			BuyPriceMinor:  item.BuyPriceMinor,
			Available:      item.Quantity,
			Version:        item.Version,
		}
		if channel == domain.ChannelShop {
			if row, ok := shopRows[line.StockItemID]; ok {
				pricing.SellPriceMinor = row.InheritedSellPriceMinor
				pricing.BuyPriceMinor = row.InheritedBuyPriceMinor
				pricing.Available = row.QtyOnHand
				pricing.Version = row.Version
				pricing.HasShopRow = true
			} else {
				// Товар в магазин не передавался: продаём по каталожной
				// цене, вся позиция уходит в backorder.
				pricing.Available = 0
				pricing.Version = -1
				pricing.HasShopRow = false
			}
		}
		result = append(result, pricing)
	}

	return result, nil
}

// PlanLine решает судьбу одной позиции. Для shop-канала перепродажа
// фиксируется как backorder: backordered = max(0, requested - available).
// Web-канал понятия backorder не имеет — центральный пул уходит в минус.
func (l *Ledger) PlanLine(channel domain.Channel, pricing LinePricing, requestedQty int64) PlannedLine {
	planned := PlannedLine{Pricing: pricing, Qty: requestedQty}
	if channel == domain.ChannelShop && requestedQty > pricing.Available {
		planned.QtyBackordered = requestedQty - pricing.Available
	}
	return planned
}

// DecrementAdjustments переводит план в изменения остатков для атомарного
// коммита. Shop-строка уменьшается только на отгружаемую часть и никогда не
// уходит в минус; web списывает полный объём с центрального пула.
func (l *Ledger) DecrementAdjustments(channel domain.Channel, shopID string, planned []PlannedLine) []domain.StockAdjustment {
	adjustments := make([]domain.StockAdjustment, 0, len(planned))
	for _, line := range planned {
		switch channel {
		case domain.ChannelShop:
			fulfilled := line.QtyFulfilled()
			if fulfilled == 0 {
				// Нечего списывать: либо строки остатка нет, либо всё в backorder.
				continue
			}
			adjustments = append(adjustments, domain.StockAdjustment{
				Channel:         domain.ChannelShop,
				ShopID:          shopID,
				StockItemID:     line.Pricing.StockItemID,
				Delta:           -fulfilled,
				ExpectedVersion: line.Pricing.Version,
			})
		default:
			adjustments = append(adjustments, domain.StockAdjustment{
				Channel:         domain.ChannelWeb,
				StockItemID:     line.Pricing.StockItemID,
				Delta:           -line.Qty,
				ExpectedVersion: line.Pricing.Version,
			})
		}
	}
	return adjustments
}

// ReturnAdjustments строит обратные изменения для отмены заказа: магазину
// возвращается отгружавшаяся часть, центральному складу — полный объём.
// Версии не проверяются: возврат монотонно прибавляет.
func (l *Ledger) ReturnAdjustments(order domain.Order) []domain.StockAdjustment {
	adjustments := make([]domain.StockAdjustment, 0, len(order.Items))
	for _, item := range order.Items {
		switch order.Channel {
		case domain.ChannelShop:
			fulfilled := item.QtyFulfilled()
			if fulfilled == 0 {
				continue
			}
			adjustments = append(adjustments, domain.StockAdjustment{
				Channel:         domain.ChannelShop,
				ShopID:          order.ShopID,
				StockItemID:     item.StockItemID,
				Delta:           fulfilled,
				ExpectedVersion: -1,
			})
		default:
			adjustments = append(adjustments, domain.StockAdjustment{
				Channel:         domain.ChannelWeb,
				StockItemID:     item.StockItemID,
				Delta:           item.Qty,
				ExpectedVersion: -1,
			})
		}
	}
	return adjustments
}

// Transfer перемещает товар с центрального склада в магазин одной атомарной
// операцией хранилища.
func (l *Ledger) Transfer(req domain.TransferRequest) (domain.ShopStock, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return domain.ShopStock{}, errs[0]
	}

	row, err := l.stock.Transfer(req)
	if err != nil {
		return domain.ShopStock{}, err
	}

	l.logger.WithFields(log.Fields{
		"shop_id":       req.ShopID,
		"stock_item_id": req.StockItemID,
		"qty":           req.Qty,
	}).Info("stock transferred to shop")
	return row, nil
}

// SetShopPrices правит унаследованные цены строки остатка магазина.
func (l *Ledger) SetShopPrices(shopStockID string, buyMinor, sellMinor int64) (domain.ShopStock, error) {
	if buyMinor < 0 || sellMinor < 0 {
		return domain.ShopStock{}, domain.ErrItemPriceInvalid
	}
	return l.stock.SaveShopStockPrices(shopStockID, buyMinor, sellMinor)
}

// LowStock возвращает строки магазина с остатком не выше порога.
func (l *Ledger) LowStock(shopID string) ([]domain.ShopStock, error) {
	rows, err := l.stock.ListShopStock(shopID)
	if err != nil {
		return nil, err
	}
	low := make([]domain.ShopStock, 0)
	for _, row := range rows {
		if row.IsLowStock() {
			low = append(low, row)
		}
	}
	return low, nil
}
