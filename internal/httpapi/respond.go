package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeDomainError переводит доменную ошибку в HTTP-статус. Конфликты
// отдаются 409, чтобы клиент перечитал состояние и повторил сам.
func writeDomainError(logger *log.Entry, w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err),
		errors.Is(err, errSessionTokenRequired),
		errors.Is(err, domain.ErrItemPriceInvalid),
		errors.Is(err, domain.ErrBackorderInvalid),
		errors.Is(err, domain.ErrAmountMismatch):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotPermitted):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrItemNotFound),
		errors.Is(err, domain.ErrShopNotFound),
		errors.Is(err, domain.ErrShopStockNotFound),
		errors.Is(err, domain.ErrProfileNotFound),
		errors.Is(err, domain.ErrBasketNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case domain.IsConflict(err),
		errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrTransitionNotAllowed),
		errors.Is(err, domain.ErrInsufficientStock):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		logger.WithError(err).Error("internal error")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
