package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/retail/internal/health"
	"github.com/vladislavdragonenkov/retail/internal/httpapi"
	"github.com/vladislavdragonenkov/retail/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/retail/internal/metrics"
	"github.com/vladislavdragonenkov/retail/internal/service/checkout"
	"github.com/vladislavdragonenkov/retail/internal/service/inventory"
	"github.com/vladislavdragonenkov/retail/internal/service/lifecycle"
	"github.com/vladislavdragonenkov/retail/internal/service/loyalty"
	"github.com/vladislavdragonenkov/retail/internal/service/tier"
	"github.com/vladislavdragonenkov/retail/internal/storage/memory"
	"github.com/vladislavdragonenkov/retail/internal/storage/postgres"
	"github.com/vladislavdragonenkov/retail/internal/version"
)

// repositories — набор доменных репозиториев независимо от бэкенда хранения.
type repositories struct {
	Orders  domain.OrderRepository
	Stock   domain.StockRepository
	Loyalty domain.LoyaltyRepository
	Shops   domain.ShopRepository
	Baskets domain.BasketRepository
}

// defaultCapability — ролевые правила по умолчанию. Чекаут открыт всем,
// операции персонала требуют соответствующей роли.
func defaultCapability() domain.Capability {
	return domain.RoleCapability(map[domain.Action][]string{
		domain.ActionUpdateStatus:  {"admin", "staff"},
		domain.ActionTransferStock: {"admin", "staff"},
		domain.ActionEditPrices:    {"admin", "proprietor"},
		domain.ActionViewOrders:    {"admin", "staff"},
	})
}

// Run собирает зависимости и обслуживает HTTP API до отмены контекста.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	repos, pgStore, err := buildRepositories(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if pgStore != nil {
		defer func() {
			if err := pgStore.Close(); err != nil {
				logger.WithError(err).Warn("failed to close postgres store")
			}
		}()
	}

	var producer *kafka.Producer
	var publisher domain.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = kafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		} else {
			publisher = producer
			logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer initialized")
		}
	}
	defer func() {
		if producer == nil {
			return
		}
		if err := producer.Close(); err != nil {
			logger.WithError(err).Warn("failed to close kafka producer")
		}
	}()

	engine := tier.New(cfg.TierRules)
	checkoutMetrics := metrics.NewCheckoutMetrics()
	loyaltyStore := loyalty.NewStore(repos.Loyalty, repos.Orders, engine, logger.WithField("layer", "loyalty"))
	ledger := inventory.NewLedger(repos.Stock, logger.WithField("layer", "inventory"))
	checkoutSvc := checkout.NewService(
		repos.Orders, repos.Baskets, repos.Shops, ledger, loyaltyStore,
		publisher, checkoutMetrics, logger.WithField("layer", "checkout"),
	)
	lifecycleSvc := lifecycle.NewService(
		repos.Orders, ledger, loyaltyStore,
		publisher, checkoutMetrics, logger.WithField("layer", "lifecycle"),
	)

	apiServer := httpapi.NewServer(httpapi.Deps{
		Checkout:    checkoutSvc,
		Lifecycle:   lifecycleSvc,
		Ledger:      ledger,
		Loyalty:     loyaltyStore,
		Stock:       repos.Stock,
		Shops:       repos.Shops,
		Baskets:     repos.Baskets,
		Orders:      repos.Orders,
		Caps:        defaultCapability(),
		HTTPMetrics: metrics.NewHTTPMetrics(),
		Logger:      logger.WithField("layer", "httpapi"),
	})

	healthHandler := healthcheck.NewHandler(version.Current().Version)
	if pgStore != nil {
		healthHandler.RegisterChecker("postgres", healthcheck.NewSimpleChecker("postgres", func() error {
			return pgStore.Ping(context.Background())
		}))
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: apiServer.Routes()}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(httpSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// buildRepositories выбирает бэкенд хранения: PostgreSQL при заданном DSN,
// иначе общее in-memory хранилище.
func buildRepositories(ctx context.Context, cfg Config, logger *log.Entry) (repositories, *postgres.Store, error) {
	if cfg.PostgresDSN == "" {
		logger.Info("postgres DSN is not set, using in-memory storage")
		store := memory.NewStore()
		return repositories{
			Orders:  store.Orders(),
			Stock:   store.Stock(),
			Loyalty: store.Loyalty(),
			Shops:   store.Shops(),
			Baskets: store.Baskets(),
		}, nil, nil
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return repositories{}, nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return repositories{}, nil, err
	}
	logger.Info("postgres storage initialized")

	return repositories{
		Orders:  postgres.NewOrderRepository(store),
		Stock:   postgres.NewStockRepository(store),
		Loyalty: postgres.NewLoyaltyRepository(store),
		Shops:   postgres.NewShopRepository(store),
		Baskets: postgres.NewBasketRepository(store),
	}, store, nil
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
