package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

const (
	headerUserID       = "X-User-ID"
	headerUserRoles    = "X-User-Roles"
	headerSessionToken = "X-Session-Token"
)

var errSessionTokenRequired = errors.New("session token is required")

// identityFrom восстанавливает идентичность вызывающего из заголовков,
// проставленных внешним identity-провайдером перед сервисом. Пустая
// идентичность валидна: это анонимный посетитель.
func identityFrom(r *http.Request) domain.Identity {
	identity := domain.Identity{CustomerID: r.Header.Get(headerUserID)}
	if raw := r.Header.Get(headerUserRoles); raw != "" {
		for _, role := range strings.Split(raw, ",") {
			if role = strings.TrimSpace(role); role != "" {
				identity.Roles = append(identity.Roles, role)
			}
		}
	}
	return identity
}

// sessionTokenFrom достаёт session-токен корзины из заголовка.
func sessionTokenFrom(r *http.Request) (string, error) {
	token := r.Header.Get(headerSessionToken)
	if token == "" {
		return "", errSessionTokenRequired
	}
	return token, nil
}
