package checkout

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail/internal/domain"
	"github.com/vladislavdragonenkov/retail/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/retail/internal/metrics"
	"github.com/vladislavdragonenkov/retail/internal/service/inventory"
	"github.com/vladislavdragonenkov/retail/internal/service/loyalty"
)

// Request — входные данные чекаута. Позиции берутся из корзины по
// session-токену; после успешного коммита корзина очищается.
type Request struct {
	SessionToken string
	CustomerID   string
	Channel      domain.Channel
	ShopID       string
	// Доставка актуальна только для web-канала.
	ShippingName    string
	ShippingAddress string
}

// Service превращает корзину в персистентный заказ: разрешает цены, решает
// backorder'ы, атомарно коммитит заказ вместе со списанием остатков и после
// коммита обновляет лояльность.
type Service struct {
	orders    domain.OrderRepository
	baskets   domain.BasketRepository
	shops     domain.ShopRepository
	ledger    *inventory.Ledger
	loyalty   *loyalty.Store
	publisher domain.EventPublisher
	metrics   *metrics.CheckoutMetrics
	logger    *log.Entry
}

// NewService создаёт оркестратор чекаута. publisher и metrics опциональны.
func NewService(
	orders domain.OrderRepository,
	baskets domain.BasketRepository,
	shops domain.ShopRepository,
	ledger *inventory.Ledger,
	loyaltyStore *loyalty.Store,
	publisher domain.EventPublisher,
	checkoutMetrics *metrics.CheckoutMetrics,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "checkout")
	}
	return &Service{
		orders:    orders,
		baskets:   baskets,
		shops:     shops,
		ledger:    ledger,
		loyalty:   loyaltyStore,
		publisher: publisher,
		metrics:   checkoutMetrics,
		logger:    logger,
	}
}

// Checkout выполняет полный цикл оформления заказа. Конфликт остатков
// возвращается как domain.ErrStockChanged: вызывающая сторона обязана заново
// показать корзину, автоматический повтор со старыми данными запрещён.
func (s *Service) Checkout(req Request) (domain.Order, error) {
	start := time.Now()
	if s.metrics != nil {
		s.metrics.RecordCheckoutStarted()
		defer func() { s.metrics.RecordCheckoutDuration(time.Since(start)) }()
	}

	customerID, err := s.validate(&req)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordCheckoutRejected()
		}
		return domain.Order{}, err
	}

	basket, err := s.baskets.Get(req.SessionToken)
	if err != nil {
		return domain.Order{}, fmt.Errorf("load basket: %w", err)
	}
	if len(basket.Lines) == 0 {
		if s.metrics != nil {
			s.metrics.RecordCheckoutRejected()
		}
		return domain.Order{}, domain.ErrBasketEmpty
	}

	// Один батч на все позиции: цены, себестоимость и доступность читаются
	// разом, а не по одной.
	pricing, err := s.ledger.ResolvePricing(req.Channel, req.ShopID, basket.Lines)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordCheckoutRejected()
		}
		return domain.Order{}, err
	}

	planned := make([]inventory.PlannedLine, 0, len(basket.Lines))
	for i, line := range basket.Lines {
		if line.Qty <= 0 {
			if s.metrics != nil {
				s.metrics.RecordCheckoutRejected()
			}
			return domain.Order{}, domain.ErrItemQtyInvalid
		}
		planned = append(planned, s.ledger.PlanLine(req.Channel, pricing[i], line.Qty))
	}

	discountPct, err := s.resolveDiscount(req.Channel, customerID)
	if err != nil {
		return domain.Order{}, err
	}

	order := s.buildOrder(req, customerID, planned, discountPct)
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, errs[0]
	}

	adjustments := s.ledger.DecrementAdjustments(req.Channel, req.ShopID, planned)
	if err := s.orders.CreateWithAdjustments(order, adjustments); err != nil {
		if domain.IsConflict(err) {
			if s.metrics != nil {
				s.metrics.RecordCheckoutConflict()
			}
			s.logger.WithError(err).WithField("order_id", order.ID).Warn("checkout aborted on stock conflict")
			return domain.Order{}, domain.ErrStockChanged
		}
		return domain.Order{}, fmt.Errorf("persist order: %w", err)
	}

	// Заказ закоммичен и является источником истины. Всё дальше — best-effort:
	// сбой лояльности, очистки корзины или публикации события заказ не откатывает.
	s.applyLoyalty(order)

	if err := s.baskets.Clear(req.SessionToken); err != nil {
		s.logger.WithError(err).WithField("token", req.SessionToken).Warn("failed to clear basket after checkout")
	}

	s.publishEvent(kafka.EventTypeOrderCreated, order, map[string]any{
		"grand_total_minor": order.GrandTotalMinor,
		"backordered":       order.HasBackorder(),
	})

	if s.metrics != nil {
		s.metrics.RecordCheckoutCompleted(string(order.Channel))
		backordered := 0
		for _, item := range order.Items {
			if item.QtyBackordered > 0 {
				backordered++
			}
		}
		s.metrics.RecordBackorderedLines(backordered)
	}

	s.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"customer_id": order.CustomerID,
		"channel":     order.Channel,
		"status":      order.Status,
	}).Info("checkout completed")

	return order, nil
}

// validate проверяет канал и идентичность, возвращая итоговый customer id.
func (s *Service) validate(req *Request) (string, error) {
	if !req.Channel.Valid() {
		return "", domain.ErrChannelInvalid
	}

	switch req.Channel {
	case domain.ChannelWeb:
		// Анонимный web-чекаут отклоняется до каких-либо чтений.
		if req.CustomerID == "" {
			return "", domain.ErrIdentityRequired
		}
		return req.CustomerID, nil
	default:
		if req.ShopID == "" {
			return "", domain.ErrShopRequired
		}
		if _, err := s.shops.Get(req.ShopID); err != nil {
			return "", err
		}
		// POS без привязанного клиента пробивается на гостевую идентичность,
		// чтобы заказ всегда нёс непустой customer_id.
		if req.CustomerID == "" {
			return domain.GuestCustomerID, nil
		}
		return req.CustomerID, nil
	}
}

// resolveDiscount возвращает процент скидки: только shop-канал и только для
// привязанного (не гостевого) клиента.
func (s *Service) resolveDiscount(channel domain.Channel, customerID string) (int, error) {
	if channel != domain.ChannelShop || customerID == domain.GuestCustomerID {
		return 0, nil
	}
	pct, err := s.loyalty.DiscountPercent(customerID)
	if err != nil {
		return 0, fmt.Errorf("resolve loyalty discount: %w", err)
	}
	return pct, nil
}

func (s *Service) buildOrder(req Request, customerID string, planned []inventory.PlannedLine, discountPct int) domain.Order {
	now := time.Now().UTC()
	orderID := uuid.NewString()

	items := make([]domain.OrderItem, 0, len(planned))
	var subtotal, cost int64
	for _, line := range planned {
		item := domain.OrderItem{
			ID:             uuid.NewString(),
			OrderID:        orderID,
			StockItemID:    line.Pricing.StockItemID,
			Qty:            line.Qty,
			QtyBackordered: line.QtyBackordered,
			UnitPriceMinor: line.Pricing.SellPriceMinor,
			UnitCostMinor:  line.Pricing.BuyPriceMinor,
			CreatedAt:      now,
		}
		items = append(items, item)
		subtotal += item.LineTotalMinor()
		cost += item.LineCostMinor()
	}

	discount := domain.PercentOfMinor(subtotal, discountPct)
	grandTotal := subtotal - discount

	order := domain.Order{
		ID:               orderID,
		CustomerID:       customerID,
		Channel:          req.Channel,
		ShopID:           req.ShopID,
		ShippingName:     req.ShippingName,
		ShippingAddress:  req.ShippingAddress,
		SubtotalMinor:    subtotal,
		DiscountMinor:    discount,
		GrandTotalMinor:  grandTotal,
		TotalCostMinor:   cost,
		TotalProfitMinor: grandTotal - cost,
		Status:           domain.OrderStatusFulfilled,
		Items:            items,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	// Хотя бы одна недопоставленная позиция оставляет заказ в pending.
	if order.HasBackorder() {
		order.Status = domain.OrderStatusPending
	}
	return order
}

// applyLoyalty применяет профит продажи к профилю клиента после коммита.
// Гостевая идентичность пропускается. Вызывается ровно один раз на чекаут.
func (s *Service) applyLoyalty(order domain.Order) {
	if order.CustomerID == domain.GuestCustomerID {
		return
	}

	result, err := s.loyalty.ApplyAfterSale(order.CustomerID, order.TotalProfitMinor)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordLoyaltyError()
		}
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id":    order.ID,
			"customer_id": order.CustomerID,
		}).Error("loyalty update failed after commit, order stands")
		return
	}
	if result.Promoted() {
		if s.metrics != nil {
			s.metrics.RecordTierPromotion()
		}
		s.publishEvent(kafka.EventTypeTierChanged, order, map[string]any{
			"from": string(result.PreviousTier),
			"to":   string(result.Profile.Tier),
		})
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
