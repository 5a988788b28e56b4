package memory

import (
	"sort"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

// orderRepository — in-memory реализация OrderRepository поверх общего Store.
type orderRepository struct {
	store *Store
}

// CreateWithAdjustments сохраняет заказ и применяет изменения остатков
// всё-или-ничего под одним мьютексом.
func (r *orderRepository) CreateWithAdjustments(order domain.Order, adjustments []domain.StockAdjustment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.orders[order.ID]; exists {
		return domain.ErrAlreadyExists
	}

	items, shopRows, err := r.store.applyAdjustmentsLocked(adjustments)
	if err != nil {
		return err
	}

	r.store.commitAdjustmentsLocked(items, shopRows)
	// Сохраняем копию с собственным слайсом позиций, чтобы избежать
	// непредсказуемых мутаций извне.
	order.Items = append([]domain.OrderItem(nil), order.Items...)
	r.store.orders[order.ID] = order
	return nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepository) Get(id string) (domain.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	order, ok := r.store.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	order.Items = append([]domain.OrderItem(nil), order.Items...)
	return order, nil
}

// ListByCustomer возвращает заказы клиента, новые первыми.
func (r *orderRepository) ListByCustomer(customerID string, limit int) ([]domain.Order, error) {
	orders, _, err := r.List(domain.OrderFilter{CustomerID: customerID, Limit: limit})
	return orders, err
}

// List возвращает заказы по фильтру и общее число совпадений.
func (r *orderRepository) List(filter domain.OrderFilter) ([]domain.Order, int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.store.orders))
	for _, order := range r.store.orders {
		if !matchOrder(order, filter) {
			continue
		}
		order.Items = append([]domain.OrderItem(nil), order.Items...)
		result = append(result, order)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	total := len(result)
	if filter.Offset > 0 {
		if filter.Offset >= total {
			return []domain.Order{}, total, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}

	return result, total, nil
}

func matchOrder(order domain.Order, filter domain.OrderFilter) bool {
	if filter.Status != "" && order.Status != filter.Status {
		return false
	}
	if filter.Channel != "" && order.Channel != filter.Channel {
		return false
	}
	if filter.ShopID != "" && order.ShopID != filter.ShopID {
		return false
	}
	if filter.CustomerID != "" && order.CustomerID != filter.CustomerID {
		return false
	}
	if !filter.From.IsZero() && order.CreatedAt.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && !order.CreatedAt.Before(filter.To) {
		return false
	}
	return true
}

// SaveStatusWithReturns перезаписывает заказ с проверкой версии и применяет
// возвраты остатков той же единицей работы.
func (r *orderRepository) SaveStatusWithReturns(order domain.Order, returns []domain.StockAdjustment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if current.Version != order.Version {
		return domain.ErrVersionConflict
	}

	items, shopRows, err := r.store.applyAdjustmentsLocked(returns)
	if err != nil {
		return err
	}

	r.store.commitAdjustmentsLocked(items, shopRows)
	order.Version++
	order.Items = append([]domain.OrderItem(nil), order.Items...)
	r.store.orders[order.ID] = order
	return nil
}

// SumFulfilledProfit суммирует профит исполненных заказов клиента.
func (r *orderRepository) SumFulfilledProfit(customerID string) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var sum int64
	for _, order := range r.store.orders {
		if order.CustomerID == customerID && order.Status == domain.OrderStatusFulfilled {
			sum += order.TotalProfitMinor
		}
	}
	return sum, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
