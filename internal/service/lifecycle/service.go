package lifecycle

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail/internal/domain"
	"github.com/vladislavdragonenkov/retail/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/retail/internal/metrics"
	"github.com/vladislavdragonenkov/retail/internal/service/inventory"
	"github.com/vladislavdragonenkov/retail/internal/service/loyalty"
)

// Result — итог смены статуса заказа.
type Result struct {
	Order domain.Order
	// AlreadyInState выставлен, когда заказ уже был в целевом статусе и
	// операция свелась к no-op.
	AlreadyInState bool
	// StockReturned выставлен, когда именно этот переход вернул остатки.
	StockReturned bool
}

// Service управляет жизненным циклом заказа: pending, fulfilled, cancelled.
// Отменённый заказ терминален, переходы из него запрещены.
type Service struct {
	orders    domain.OrderRepository
	ledger    *inventory.Ledger
	loyalty   *loyalty.Store
	publisher domain.EventPublisher
	metrics   *metrics.CheckoutMetrics
	logger    *log.Entry
}

// NewService создаёт сервис жизненного цикла. publisher и metrics опциональны.
func NewService(
	orders domain.OrderRepository,
	ledger *inventory.Ledger,
	loyaltyStore *loyalty.Store,
	publisher domain.EventPublisher,
	checkoutMetrics *metrics.CheckoutMetrics,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "lifecycle")
	}
	return &Service{
		orders:    orders,
		ledger:    ledger,
		loyalty:   loyaltyStore,
		publisher: publisher,
		metrics:   checkoutMetrics,
		logger:    logger,
	}
}

// UpdateStatus переводит заказ в целевой статус. Возврат остатков при отмене
// коммитится одной операцией со сменой статуса. Повторная отмена и любая
// смена на текущий статус являются no-op, остатки при этом не трогаются.
// Переходы между pending и fulfilled разрешены в обе стороны: это ручной
// операторский путь (ошибочно закрытый заказ можно вернуть в работу),
// терминальным является только cancelled. Откат fulfilled -> pending остатки
// не трогает; профиль лояльности выравнивает RecomputeFromOrders при
// следующем переходе в fulfilled.
func (s *Service) UpdateStatus(orderID, target string) (Result, error) {
	status, err := domain.ParseOrderStatus(target)
	if err != nil {
		return Result{}, err
	}

	order, err := s.orders.Get(orderID)
	if err != nil {
		return Result{}, err
	}

	if order.Status == status {
		return Result{Order: order, AlreadyInState: true}, nil
	}
	if order.Status == domain.OrderStatusCancelled {
		return Result{}, fmt.Errorf("%w: %s -> %s", domain.ErrTransitionNotAllowed, order.Status, status)
	}

	from := order.Status
	var returns []domain.StockAdjustment
	result := Result{}

	if status == domain.OrderStatusCancelled && !order.StockReturned {
		// Возвращается только отгруженная часть позиций: backorder'ы
		// остатки не списывали.
		returns = s.ledger.ReturnAdjustments(order)
		order.StockReturned = true
		result.StockReturned = true
	}

	order.Status = status
	order.UpdatedAt = time.Now().UTC()

	if err := s.orders.SaveStatusWithReturns(order, returns); err != nil {
		return Result{}, err
	}
	order.Version++
	result.Order = order

	if s.metrics != nil {
		s.metrics.RecordStatusTransition(string(status))
		if result.StockReturned {
			s.metrics.RecordStockReturn()
		}
	}

	switch status {
	case domain.OrderStatusFulfilled:
		s.recomputeLoyalty(order)
		s.publishEvent(kafka.EventTypeOrderFulfilled, order, nil)
	case domain.OrderStatusCancelled:
		s.publishEvent(kafka.EventTypeOrderCancelled, order, map[string]any{
			"stock_returned": result.StockReturned,
		})
	}

	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"from":     from,
		"to":       status,
	}).Info("order status updated")

	return result, nil
}

// recomputeLoyalty пересчитывает лояльность клиента с нуля по fulfilled-заказам.
// Сбой пересчёта статус заказа не откатывает.
func (s *Service) recomputeLoyalty(order domain.Order) {
	if order.CustomerID == domain.GuestCustomerID {
		return
	}
	if _, err := s.loyalty.RecomputeFromOrders(order.CustomerID); err != nil {
		if s.metrics != nil {
			s.metrics.RecordLoyaltyError()
		}
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id":    order.ID,
			"customer_id": order.CustomerID,
		}).Error("loyalty recompute failed after fulfillment")
	}
}

func (s *Service) publishEvent(eventType kafka.EventType, order domain.Order, metadata map[string]any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishOrderEvent(string(eventType), order, metadata); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"event_type": eventType,
			"order_id":   order.ID,
		}).Warn("failed to publish order event")
	}
}
