package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

type basketLinePayload struct {
	StockItemID    string `json:"stock_item_id"`
	Name           string `json:"name"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
	Qty            int64  `json:"qty"`
}

type basketPayload struct {
	Token         string              `json:"token"`
	Lines         []basketLinePayload `json:"lines"`
	SubtotalMinor int64               `json:"subtotal_minor"`
}

func toBasketPayload(b domain.Basket) basketPayload {
	lines := make([]basketLinePayload, 0, len(b.Lines))
	for _, line := range b.Lines {
		lines = append(lines, basketLinePayload{
			StockItemID:    line.StockItemID,
			Name:           line.Name,
			UnitPriceMinor: line.UnitPriceMinor,
			Qty:            line.Qty,
		})
	}
	return basketPayload{Token: b.Token, Lines: lines, SubtotalMinor: b.SubtotalMinor()}
}

func (s *Server) handleGetBasket(w http.ResponseWriter, r *http.Request) {
	token, err := sessionTokenFrom(r)
	if err != nil {
		writeDomainError(s.logger, w, err)
		return
	}

	basket, err := s.baskets.Get(token)
	if err != nil {
		writeDomainError(s.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBasketPayload(basket))
}

func (s *Server) handleAddBasketItem(w http.ResponseWriter, r *http.Request) {
	token, err := sessionTokenFrom(r)
	if err != nil {
		writeDomainError(s.logger, w, err)
		return
	}

	var req struct {
		StockItemID string `json:"stock_item_id"`
		Qty         int64  `json:"qty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.StockItemID == "" {
		writeDomainError(s.logger, w, domain.ErrStockItemRequired)
		return
	}
	if req.Qty <= 0 {
		writeDomainError(s.logger, w, domain.ErrItemQtyInvalid)
		return
	}

	// Имя и цена кешируются для отображения; чекаут перечитает их заново.
	item, err := s.stock.GetStockItem(req.StockItemID)
	if err != nil {
		writeDomainError(s.logger, w, err)
		return
	}

	basket, err := s.baskets.Get(token)
	if err != nil {
		writeDomainError(s.logger, w, err)
		return
	}
	basket.Upsert(domain.BasketLine{
		StockItemID:    item.ID,
		Name:           item.Name,
		UnitPriceMinor: item.SellPriceMinor,
		Qty:            req.Qty,
	})
	basket.UpdatedAt = time.Now().UTC()

	if err := s.baskets.Save(basket); err != nil {
		writeDomainError(s.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBasketPayload(basket))
}

func (s *Server) handleSetBasketItemQty(w http.ResponseWriter, r *http.Request) {
	token, err := sessionTokenFrom(r)
	if err != nil {
		writeDomainError(s.logger, w, err)
		return
	}

	var req struct {
		Qty int64 `json:"qty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	basket, err := s.baskets.Get(token)
	if err != nil {
		writeDomainError(s.logger, w, err)
		return
	}
	basket.SetQty(chi.URLParam(r, "itemID"), req.Qty)
	basket.UpdatedAt = time.Now().UTC()

	if err := s.baskets.Save(basket); err != nil {
		writeDomainError(s.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBasketPayload(basket))
}

func (s *Server) handleRemoveBasketItem(w http.ResponseWriter, r *http.Request) {
	token, err := sessionTokenFrom(r)
	if err != nil {
		writeDomainError(s.logger, w, err)
		return
	}

	basket, err := s.baskets.Get(token)
	if err != nil {
		writeDomainError(s.logger, w, err)
		return
	}
	basket.Remove(chi.URLParam(r, "itemID"))
	basket.UpdatedAt = time.Now().UTC()

	if err := s.baskets.Save(basket); err != nil {
		writeDomainError(s.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBasketPayload(basket))
}
