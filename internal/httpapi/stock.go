package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

type stockItemPayload struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	BuyPriceMinor  int64  `json:"buy_price_minor"`
	SellPriceMinor int64  `json:"sell_price_minor"`
	Quantity       int64  `json:"quantity"`
	Description    string `json:"description,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
	Version        int64  `json:"version"`
}

func toStockItemPayload(item domain.StockItem) stockItemPayload {
	return stockItemPayload{
		ID:             item.ID,
		Name:           item.Name,
		Category:       string(item.Category),
		BuyPriceMinor:  item.BuyPriceMinor,
		SellPriceMinor: item.SellPriceMinor,
		Quantity:       item.Quantity,
		Description:    item.Description,
		ImageURL:       item.ImageURL,
		Version:        item.Version,
	}
}

type shopStockPayload struct {
	ID                      string `json:"id"`
	ShopID                  string `json:"shop_id"`
	StockItemID             string `json:"stock_item_id"`
	QtyOnHand               int64  `json:"qty_on_hand"`
	LowStockThreshold       int64  `json:"low_stock_threshold"`
	InheritedBuyPriceMinor  int64  `json:"inherited_buy_price_minor"`
	InheritedSellPriceMinor int64  `json:"inherited_sell_price_minor"`
	LowStock                bool   `json:"low_stock"`
}

func toShopStockPayload(row domain.ShopStock) shopStockPayload {
	return shopStockPayload{
		ID:                      row.ID,
		ShopID:                  row.ShopID,
		StockItemID:             row.StockItemID,
		QtyOnHand:               row.QtyOnHand,
		LowStockThreshold:       row.LowStockThreshold,
		InheritedBuyPriceMinor:  row.InheritedBuyPriceMinor,
		InheritedSellPriceMinor: row.InheritedSellPriceMinor,
		LowStock:                row.IsLowStock(),
	}
}

func (s *Server) handleListStockItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.stock.ListStockItems(domain.StockCategory(r.URL.Query().Get("category")))
	if err != nil {
		writeDomainError(s.logger, w, err)
		return
	}

	payload := make([]stockItemPayload, 0, len(items))
	for _, item := range items {
		payload = append(payload, toStockItemPayload(item))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleGetStockItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.stock.GetStockItem(chi.URLParam(r, "itemID"))
	if err != nil {
		writeDomainError(s.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStockItemPayload(item))
}

func (s *Server) handleCreateStockItem(w http.ResponseWriter, r *http.Request) {
	if err := s.caps.Can(identityFrom(r), domain.ActionEditPrices); err != nil {
		writeDomainError(s.logger, w, err)
		return
	}

	var req struct {
		Name           string `json:"name"`
		Category       string `json:"category"`
		BuyPriceMinor  int64  `json:"buy_price_minor"`
		SellPriceMinor int64  `json:"sell_price_minor"`
		Quantity       int64  `json:"quantity"`
		Description    string `json:"description"`
		ImageURL       string `json:"image_url"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Name == "" || !domain.StockCategory(req.Category).Valid() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name and valid category are required"})
		return
	}
	if req.BuyPriceMinor < 0 || req.SellPriceMinor < 0 {
		writeDomainError(s.logger, w, domain.ErrItemPriceInvalid)
		return
	}

	now := time.Now().UTC()
	item := domain.StockItem{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Category:       domain.StockCategory(req.Category),
		BuyPriceMinor:  req.BuyPriceMinor,
		SellPriceMinor: req.SellPriceMinor,
		Quantity:       req.Quantity,
		Description:    req.Description,
		ImageURL:       req.ImageURL,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.stock.CreateStockItem(item); err != nil {
		writeDomainError(s.logger, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toStockItemPayload(item))
}

func (s *Server) handleListShopStock(w http.ResponseWriter, r *http.Request) {
	rows, err := s.stock.ListShopStock(chi.URLParam(r, "shopID"))
	if err != nil {
		writeDomainError(s.logger, w, err)
		return
	}

	payload := make([]shopStockPayload, 0, len(rows))
	for _, row := range rows {
		payload = append(payload, toShopStockPayload(row))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleListLowStock(w http.ResponseWriter, r *http.Request) {
	rows, err := s.ledger.LowStock(chi.URLParam(r, "shopID"))
	if err != nil {
		writeDomainError(s.logger, w, err)
		return
	}

	payload := make([]shopStockPayload, 0, len(rows))
	for _, row := range rows {
		payload = append(payload, toShopStockPayload(row))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleSetShopPrices(w http.ResponseWriter, r *http.Request) {
	if err := s.caps.Can(identityFrom(r), domain.ActionEditPrices); err != nil {
		writeDomainError(s.logger, w, err)
		return
	}

	var req struct {
		BuyPriceMinor  int64 `json:"buy_price_minor"`
		SellPriceMinor int64 `json:"sell_price_minor"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	row, err := s.ledger.SetShopPrices(chi.URLParam(r, "shopStockID"), req.BuyPriceMinor, req.SellPriceMinor)
	if err != nil {
		writeDomainError(s.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toShopStockPayload(row))
}

func (s *Server) handleTransferStock(w http.ResponseWriter, r *http.Request) {
	if err := s.caps.Can(identityFrom(r), domain.ActionTransferStock); err != nil {
		writeDomainError(s.logger, w, err)
		return
	}

	var req struct {
		ShopID            string `json:"shop_id"`
		StockItemID       string `json:"stock_item_id"`
		Qty               int64  `json:"qty"`
		LowStockThreshold int64  `json:"low_stock_threshold"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	row, err := s.ledger.Transfer(domain.TransferRequest{
		ShopID:            req.ShopID,
		StockItemID:       req.StockItemID,
		Qty:               req.Qty,
		LowStockThreshold: req.LowStockThreshold,
	})
	if err != nil {
		writeDomainError(s.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toShopStockPayload(row))
}
