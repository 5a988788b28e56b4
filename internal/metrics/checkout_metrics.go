package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics содержит метрики чекаута и жизненного цикла заказов.
type CheckoutMetrics struct {
	// Счётчики операций чекаута
	checkoutsStarted   prometheus.Counter
	checkoutsCompleted prometheus.Counter
	checkoutsRejected  prometheus.Counter
	checkoutsConflict  prometheus.Counter

	// Счётчики по каналам и backorder'ам
	ordersByChannel  *prometheus.CounterVec
	backorderedLines prometheus.Counter

	// Жизненный цикл
	statusTransitions *prometheus.CounterVec
	stockReturns      prometheus.Counter

	// Лояльность
	tierPromotions prometheus.Counter
	loyaltyErrors  prometheus.Counter

	// Гистограмма времени чекаута
	checkoutDuration prometheus.Histogram
}

// NewCheckoutMetrics создаёт метрики на дефолтном registerer.
func NewCheckoutMetrics() *CheckoutMetrics {
	return NewCheckoutMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewCheckoutMetricsWithRegisterer создаёт метрики на заданном registerer
// (для тестов и изолированных реестров).
func NewCheckoutMetricsWithRegisterer(registerer prometheus.Registerer) *CheckoutMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CheckoutMetrics{
		checkoutsStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "retail_checkouts_started_total",
			Help: "Total number of checkout attempts",
		}),
		checkoutsCompleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "retail_checkouts_completed_total",
			Help: "Total number of checkouts committed successfully",
		}),
		checkoutsRejected: registerCounter(registerer, prometheus.CounterOpts{
			Name: "retail_checkouts_rejected_total",
			Help: "Total number of checkouts rejected by validation",
		}),
		checkoutsConflict: registerCounter(registerer, prometheus.CounterOpts{
			Name: "retail_checkouts_conflict_total",
			Help: "Total number of checkouts aborted on concurrent stock change",
		}),
		ordersByChannel: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "retail_orders_total",
			Help: "Total number of orders created by sales channel",
		}, []string{"channel"}),
		backorderedLines: registerCounter(registerer, prometheus.CounterOpts{
			Name: "retail_backordered_lines_total",
			Help: "Total number of order lines with a positive backorder",
		}),
		statusTransitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "retail_order_status_transitions_total",
			Help: "Total number of order status transitions by target status",
		}, []string{"status"}),
		stockReturns: registerCounter(registerer, prometheus.CounterOpts{
			Name: "retail_stock_returns_total",
			Help: "Total number of cancellations that returned stock",
		}),
		tierPromotions: registerCounter(registerer, prometheus.CounterOpts{
			Name: "retail_tier_promotions_total",
			Help: "Total number of loyalty tier promotions",
		}),
		loyaltyErrors: registerCounter(registerer, prometheus.CounterOpts{
			Name: "retail_loyalty_update_errors_total",
			Help: "Total number of best-effort loyalty updates that failed after commit",
		}),
		checkoutDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "retail_checkout_duration_seconds",
			Help:    "Duration of checkout operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordCheckoutStarted увеличивает счётчик попыток чекаута.
func (m *CheckoutMetrics) RecordCheckoutStarted() { m.checkoutsStarted.Inc() }

// RecordCheckoutCompleted фиксирует успешный чекаут по каналу.
func (m *CheckoutMetrics) RecordCheckoutCompleted(channel string) {
	m.checkoutsCompleted.Inc()
	m.ordersByChannel.WithLabelValues(channel).Inc()
}

// RecordCheckoutRejected увеличивает счётчик отклонённых валидацией чекаутов.
func (m *CheckoutMetrics) RecordCheckoutRejected() { m.checkoutsRejected.Inc() }

// RecordCheckoutConflict увеличивает счётчик конфликтов остатков.
func (m *CheckoutMetrics) RecordCheckoutConflict() { m.checkoutsConflict.Inc() }

// RecordBackorderedLines добавляет число позиций с недопоставкой.
func (m *CheckoutMetrics) RecordBackorderedLines(n int) {
	if n > 0 {
		m.backorderedLines.Add(float64(n))
	}
}

// RecordStatusTransition фиксирует переход заказа в целевой статус.
func (m *CheckoutMetrics) RecordStatusTransition(status string) {
	m.statusTransitions.WithLabelValues(status).Inc()
}

// RecordStockReturn увеличивает счётчик возвратов остатков при отмене.
func (m *CheckoutMetrics) RecordStockReturn() { m.stockReturns.Inc() }

// RecordTierPromotion увеличивает счётчик повышений уровня.
func (m *CheckoutMetrics) RecordTierPromotion() { m.tierPromotions.Inc() }

// RecordLoyaltyError фиксирует сбой best-effort обновления лояльности.
func (m *CheckoutMetrics) RecordLoyaltyError() { m.loyaltyErrors.Inc() }

// RecordCheckoutDuration записывает время выполнения чекаута.
func (m *CheckoutMetrics) RecordCheckoutDuration(duration time.Duration) {
	m.checkoutDuration.Observe(duration.Seconds())
}
