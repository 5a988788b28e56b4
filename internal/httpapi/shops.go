package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

type shopPayload struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Address      string `json:"address,omitempty"`
	ProprietorID string `json:"proprietor_id,omitempty"`
}

func (s *Server) handleListShops(w http.ResponseWriter, r *http.Request) {
	shops, err := s.shops.List()
	if err != nil {
		writeDomainError(s.logger, w, err)
		return
	}

	payload := make([]shopPayload, 0, len(shops))
	for _, shop := range shops {
		payload = append(payload, shopPayload{
			ID:           shop.ID,
			Name:         shop.Name,
			Address:      shop.Address,
			ProprietorID: shop.ProprietorID,
		})
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleCreateShop(w http.ResponseWriter, r *http.Request) {
	if err := s.caps.Can(identityFrom(r), domain.ActionTransferStock); err != nil {
		writeDomainError(s.logger, w, err)
		return
	}

	var req struct {
		Name         string `json:"name"`
		Address      string `json:"address"`
		ProprietorID string `json:"proprietor_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "shop name is required"})
		return
	}

	shop := domain.Shop{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Address:      req.Address,
		ProprietorID: req.ProprietorID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.shops.Create(shop); err != nil {
		writeDomainError(s.logger, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, shopPayload{
		ID:           shop.ID,
		Name:         shop.Name,
		Address:      shop.Address,
		ProprietorID: shop.ProprietorID,
	})
}
