package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/retail/internal/domain"
	"github.com/vladislavdragonenkov/retail/internal/service/checkout"
)

type orderItemPayload struct {
	ID             string `json:"id"`
	StockItemID    string `json:"stock_item_id"`
	Qty            int64  `json:"qty"`
	QtyBackordered int64  `json:"qty_backordered"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
	UnitCostMinor  int64  `json:"unit_cost_minor"`
}

type orderPayload struct {
	ID               string             `json:"id"`
	CustomerID       string             `json:"customer_id"`
	Channel          string             `json:"channel"`
	ShopID           string             `json:"shop_id,omitempty"`
	ShippingName     string             `json:"shipping_name,omitempty"`
	ShippingAddress  string             `json:"shipping_address,omitempty"`
	SubtotalMinor    int64              `json:"subtotal_minor"`
	DiscountMinor    int64              `json:"discount_minor"`
	GrandTotalMinor  int64              `json:"grand_total_minor"`
	TotalProfitMinor int64              `json:"total_profit_minor"`
	Status           string             `json:"status"`
	StockReturned    bool               `json:"stock_returned"`
	Items            []orderItemPayload `json:"items"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

func toOrderPayload(o domain.Order) orderPayload {
	items := make([]orderItemPayload, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemPayload{
			ID:             item.ID,
			StockItemID:    item.StockItemID,
			Qty:            item.Qty,
			QtyBackordered: item.QtyBackordered,
			UnitPriceMinor: item.UnitPriceMinor,
			UnitCostMinor:  item.UnitCostMinor,
		})
	}
	return orderPayload{
		ID:               o.ID,
		CustomerID:       o.CustomerID,
		Channel:          string(o.Channel),
		ShopID:           o.ShopID,
		ShippingName:     o.ShippingName,
		ShippingAddress:  o.ShippingAddress,
		SubtotalMinor:    o.SubtotalMinor,
		DiscountMinor:    o.DiscountMinor,
		GrandTotalMinor:  o.GrandTotalMinor,
		TotalProfitMinor: o.TotalProfitMinor,
		Status:           string(o.Status),
		StockReturned:    o.StockReturned,
		Items:            items,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	token, err := sessionTokenFrom(r)
	if err != nil {
		writeDomainError(s.logger, w, err)
		return
	}

	var req struct {
		Channel         string `json:"channel"`
		ShopID          string `json:"shop_id"`
		CustomerID      string `json:"customer_id"`
		ShippingName    string `json:"shipping_name"`
		ShippingAddress string `json:"shipping_address"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	identity := identityFrom(r)
	if err := s.caps.Can(identity, domain.ActionCheckout); err != nil {
		writeDomainError(s.logger, w, err)
		return
	}

	// Web-канал доверяет только аутентифицированной идентичности; явный
	// customer_id в теле допустим для POS, где кассир оформляет продажу
	// на привязанного клиента.
	customerID := identity.CustomerID
	if domain.Channel(req.Channel) == domain.ChannelShop && req.CustomerID != "" {
		customerID = req.CustomerID
	}

	order, err := s.checkout.Checkout(checkout.Request{
		SessionToken:    token,
		CustomerID:      customerID,
		Channel:         domain.Channel(req.Channel),
		ShopID:          req.ShopID,
		ShippingName:    req.ShippingName,
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		writeDomainError(s.logger, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderPayload(order))
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	if err := s.caps.Can(identityFrom(r), domain.ActionViewOrders); err != nil {
		writeDomainError(s.logger, w, err)
		return
	}

	q := r.URL.Query()
	filter := domain.OrderFilter{
		Status:     domain.OrderStatus(q.Get("status")),
		Channel:    domain.Channel(q.Get("channel")),
		ShopID:     q.Get("shop_id"),
		CustomerID: q.Get("customer_id"),
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Offset = n
		}
	}

	orders, total, err := s.orders.List(filter)
	if err != nil {
		writeDomainError(s.logger, w, err)
		return
	}

	payload := struct {
		Orders []orderPayload `json:"orders"`
		Total  int            `json:"total"`
	}{Orders: make([]orderPayload, 0, len(orders)), Total: total}
	for _, o := range orders {
		payload.Orders = append(payload.Orders, toOrderPayload(o))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.orders.Get(chi.URLParam(r, "orderID"))
	if err != nil {
		writeDomainError(s.logger, w, err)
		return
	}

	// Чужой заказ виден только идентичности с правом просмотра заказов.
	identity := identityFrom(r)
	if order.CustomerID != identity.CustomerID {
		if err := s.caps.Can(identity, domain.ActionViewOrders); err != nil {
			writeDomainError(s.logger, w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, toOrderPayload(order))
}

func (s *Server) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	if err := s.caps.Can(identityFrom(r), domain.ActionUpdateStatus); err != nil {
		writeDomainError(s.logger, w, err)
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result, err := s.lifecycle.UpdateStatus(chi.URLParam(r, "orderID"), req.Status)
	if err != nil {
		writeDomainError(s.logger, w, err)
		return
	}

	payload := struct {
		Order          orderPayload `json:"order"`
		AlreadyInState bool         `json:"already_in_state"`
		StockReturned  bool         `json:"stock_returned"`
	}{
		Order:          toOrderPayload(result.Order),
		AlreadyInState: result.AlreadyInState,
		StockReturned:  result.StockReturned,
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleMyOrders(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)
	if identity.CustomerID == "" {
		writeDomainError(s.logger, w, domain.ErrIdentityRequired)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	orders, err := s.orders.ListByCustomer(identity.CustomerID, limit)
	if err != nil {
		writeDomainError(s.logger, w, err)
		return
	}

	payload := make([]orderPayload, 0, len(orders))
	for _, o := range orders {
		payload = append(payload, toOrderPayload(o))
	}
	writeJSON(w, http.StatusOK, payload)
}
