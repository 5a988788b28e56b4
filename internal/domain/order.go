package domain

import "time"

// Channel описывает канал продажи: онлайн-витрина или POS-терминал магазина.
type Channel string

const (
	// ChannelWeb — заказ оформлен через онлайн-корзину.
	ChannelWeb Channel = "web"
	// ChannelShop — продажа пробита на POS-терминале физического магазина.
	ChannelShop Channel = "shop"
)

// Valid проверяет, что канал относится к поддерживаемым значениям.
func (c Channel) Valid() bool {
	return c == ChannelWeb || c == ChannelShop
}

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан; хотя бы одна позиция в backorder
	// либо заказ ещё не подтверждён администратором.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusFulfilled — заказ полностью исполнен.
	OrderStatusFulfilled OrderStatus = "fulfilled"
	// OrderStatusCancelled — заказ отменён; терминальный статус.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// ParseOrderStatus валидирует строковый статус из внешнего запроса.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusFulfilled, OrderStatusCancelled:
		return OrderStatus(s), nil
	default:
		return "", ErrInvalidStatus
	}
}

// GuestCustomerID — фиксированная идентичность для POS-продаж без привязанного
// клиента. Заказ всегда несёт непустой customer_id для учёта, но программа
// лояльности для гостя не обновляется.
const GuestCustomerID = "pos-guest"

// OrderItem представляет одну позицию заказа.
// Цена и себестоимость — снимки на момент оформления; они никогда не
// пересчитываются из каталога, иначе исторический профит поплывёт.
type OrderItem struct {
	ID          string
	OrderID     string
	StockItemID string
	// Qty — запрошенное количество.
	Qty int64
	// QtyBackordered — часть запрошенного количества, которой не хватило
	// в магазине на момент продажи (0 для web-канала).
	QtyBackordered int64
	// UnitPriceMinor — продажная цена за единицу в минимальных единицах.
	UnitPriceMinor int64
	// UnitCostMinor — закупочная цена за единицу в минимальных единицах.
	UnitCostMinor int64
	CreatedAt     time.Time
}

// QtyFulfilled возвращает фактически отгруженное количество.
func (i OrderItem) QtyFulfilled() int64 {
	return i.Qty - i.QtyBackordered
}

// LineTotalMinor — продажная стоимость строки.
func (i OrderItem) LineTotalMinor() int64 {
	return i.Qty * i.UnitPriceMinor
}

// LineCostMinor — себестоимость строки.
func (i OrderItem) LineCostMinor() int64 {
	return i.Qty * i.UnitCostMinor
}

// LineProfitMinor — профит строки.
func (i OrderItem) LineProfitMinor() int64 {
	return i.LineTotalMinor() - i.LineCostMinor()
}

// Order агрегирует состояние заказа и его позиции.
type Order struct {
	ID         string
	CustomerID string
	Channel    Channel
	// ShopID заполнен только для shop-канала.
	ShopID string
	// Доставка актуальна только для web-канала.
	ShippingName    string
	ShippingAddress string

	SubtotalMinor    int64
	DiscountMinor    int64
	GrandTotalMinor  int64
	TotalCostMinor   int64
	TotalProfitMinor int64

	Status OrderStatus
	// StockReturned предотвращает повторный возврат остатков
	// при повторной отмене заказа.
	StockReturned bool

	Items     []OrderItem
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasBackorder сообщает, есть ли хотя бы одна позиция с недопоставкой.
func (o *Order) HasBackorder() bool {
	for _, item := range o.Items {
		if item.QtyBackordered > 0 {
			return true
		}
	}
	return false
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerID == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if !o.Channel.Valid() {
		errs = append(errs, ErrChannelInvalid)
	}
	if o.Channel == ChannelShop && o.ShopID == "" {
		errs = append(errs, ErrShopRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}

	// Сверяем суммы заказа с построчными снимками.
	var subtotal, cost int64
	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.QtyBackordered < 0 || item.QtyBackordered > item.Qty {
			errs = append(errs, ErrBackorderInvalid)
		}
		if item.UnitPriceMinor < 0 || item.UnitCostMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		subtotal += item.LineTotalMinor()
		cost += item.LineCostMinor()
	}
	if subtotal != o.SubtotalMinor {
		errs = append(errs, ErrAmountMismatch)
	}
	if o.GrandTotalMinor != o.SubtotalMinor-o.DiscountMinor {
		errs = append(errs, ErrAmountMismatch)
	}
	if cost != o.TotalCostMinor {
		errs = append(errs, ErrAmountMismatch)
	}
	if o.TotalProfitMinor != o.GrandTotalMinor-o.TotalCostMinor {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}
