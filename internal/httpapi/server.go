package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail/internal/domain"
	"github.com/vladislavdragonenkov/retail/internal/metrics"
	"github.com/vladislavdragonenkov/retail/internal/service/checkout"
	"github.com/vladislavdragonenkov/retail/internal/service/inventory"
	"github.com/vladislavdragonenkov/retail/internal/service/lifecycle"
	"github.com/vladislavdragonenkov/retail/internal/service/loyalty"
)

const requestTimeout = 60 * time.Second

// Server — HTTP-поверхность розницы: корзина, чекаут, заказы, склад и
// лояльность. Вся бизнес-логика живёт в сервисах, хендлеры только переводят
// JSON в доменные вызовы и обратно.
type Server struct {
	checkout    *checkout.Service
	lifecycle   *lifecycle.Service
	ledger      *inventory.Ledger
	loyalty     *loyalty.Store
	stock       domain.StockRepository
	shops       domain.ShopRepository
	baskets     domain.BasketRepository
	orders      domain.OrderRepository
	caps        domain.Capability
	httpMetrics *metrics.HTTPMetrics
	logger      *log.Entry
}

// Deps — зависимости HTTP-сервера.
type Deps struct {
	Checkout  *checkout.Service
	Lifecycle *lifecycle.Service
	Ledger    *inventory.Ledger
	Loyalty   *loyalty.Store
	Stock     domain.StockRepository
	Shops     domain.ShopRepository
	Baskets   domain.BasketRepository
	Orders    domain.OrderRepository
	Caps      domain.Capability
	// HTTPMetrics опциональны; nil отключает снятие метрик запросов.
	HTTPMetrics *metrics.HTTPMetrics
	Logger      *log.Entry
}

// NewServer собирает сервер. Nil capability означает "всё разрешено".
func NewServer(deps Deps) *Server {
	if deps.Caps == nil {
		deps.Caps = domain.AllowAll()
	}
	if deps.Logger == nil {
		deps.Logger = log.New().WithField("component", "httpapi")
	}
	return &Server{
		checkout:    deps.Checkout,
		lifecycle:   deps.Lifecycle,
		ledger:      deps.Ledger,
		loyalty:     deps.Loyalty,
		stock:       deps.Stock,
		shops:       deps.Shops,
		baskets:     deps.Baskets,
		orders:      deps.Orders,
		caps:        deps.Caps,
		httpMetrics: deps.HTTPMetrics,
		logger:      deps.Logger,
	}
}

// Routes строит chi-роутер со всеми endpoint'ами API.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(requestMetrics(s.httpMetrics))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no route for " + req.URL.Path})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/basket", func(r chi.Router) {
			r.Get("/", s.handleGetBasket)
			r.Post("/items", s.handleAddBasketItem)
			r.Put("/items/{itemID}", s.handleSetBasketItemQty)
			r.Delete("/items/{itemID}", s.handleRemoveBasketItem)
		})

		r.Post("/checkout", s.handleCheckout)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", s.handleListOrders)
			r.Get("/{orderID}", s.handleGetOrder)
			r.Put("/{orderID}/status", s.handleUpdateOrderStatus)
		})

		r.Route("/me", func(r chi.Router) {
			r.Get("/orders", s.handleMyOrders)
			r.Get("/loyalty", s.handleMyLoyalty)
		})

		r.Route("/stock-items", func(r chi.Router) {
			r.Get("/", s.handleListStockItems)
			r.Post("/", s.handleCreateStockItem)
			r.Get("/{itemID}", s.handleGetStockItem)
		})

		r.Route("/shops", func(r chi.Router) {
			r.Get("/", s.handleListShops)
			r.Post("/", s.handleCreateShop)
			r.Get("/{shopID}/stock", s.handleListShopStock)
			r.Get("/{shopID}/stock/low", s.handleListLowStock)
		})

		r.Put("/shop-stock/{shopStockID}/prices", s.handleSetShopPrices)
		r.Post("/stock/transfers", s.handleTransferStock)
	})

	return r
}
