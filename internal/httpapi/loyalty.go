package httpapi

import (
	"net/http"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

type loyaltyPayload struct {
	CustomerID          string  `json:"customer_id"`
	Tier                string  `json:"tier"`
	LifetimeProfitMinor int64   `json:"lifetime_profit_minor"`
	NextTargetMinor     int64   `json:"next_target_minor"`
	PercentToNext       float64 `json:"percent_to_next"`
	DiscountPercent     int     `json:"discount_percent"`
}

func (s *Server) handleMyLoyalty(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)
	if identity.CustomerID == "" {
		writeDomainError(s.logger, w, domain.ErrIdentityRequired)
		return
	}

	info, err := s.loyalty.Progress(identity.CustomerID)
	if err != nil {
		writeDomainError(s.logger, w, err)
		return
	}

	writeJSON(w, http.StatusOK, loyaltyPayload{
		CustomerID:          info.Profile.CustomerID,
		Tier:                string(info.Profile.Tier),
		LifetimeProfitMinor: info.Profile.LifetimeProfitMinor,
		NextTargetMinor:     info.NextTargetMinor,
		PercentToNext:       info.PercentToNext,
		DiscountPercent:     info.DiscountPercent,
	})
}
