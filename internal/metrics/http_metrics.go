package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics содержит метрики HTTP-запросов API.
type HTTPMetrics struct {
	// Гистограмма длительности по шаблону роута и статусу ответа
	requestDuration *prometheus.HistogramVec
}

// NewHTTPMetrics создаёт метрики на дефолтном registerer.
func NewHTTPMetrics() *HTTPMetrics {
	return NewHTTPMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewHTTPMetricsWithRegisterer создаёт метрики на заданном registerer
// (для тестов и изолированных реестров).
func NewHTTPMetricsWithRegisterer(registerer prometheus.Registerer) *HTTPMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &HTTPMetrics{
		requestDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "retail_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route pattern and response status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// ObserveRequest фиксирует длительность одного обработанного запроса.
// Нулевой статус означает, что обработчик не писал заголовков, трактуем как 200.
func (m *HTTPMetrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	if status == 0 {
		status = 200
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}
