package domain

// Identity — аутентифицированная идентичность вызывающего, полученная от
// внешнего identity-провайдера. Ядро её только потребляет.
type Identity struct {
	CustomerID string
	Roles      []string
}

// HasRole проверяет наличие роли в наборе идентичности.
func (id Identity) HasRole(role string) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Action — операция ядра, требующая проверки прав.
type Action string

const (
	ActionCheckout      Action = "checkout"
	ActionUpdateStatus  Action = "update_order_status"
	ActionTransferStock Action = "transfer_stock"
	ActionEditPrices    Action = "edit_shop_prices"
	ActionViewOrders    Action = "view_orders"
)

// Capability — инжектируемая проверка прав. Ролевая модель остаётся снаружи
// доменной логики: ядро спрашивает "можно ли", не зная, откуда берутся роли.
type Capability interface {
	// Can возвращает nil либо ErrNotPermitted.
	Can(identity Identity, action Action) error
}

// CapabilityFunc адаптирует функцию под интерфейс Capability.
type CapabilityFunc func(identity Identity, action Action) error

func (f CapabilityFunc) Can(identity Identity, action Action) error {
	return f(identity, action)
}

// AllowAll — capability без ограничений (тесты, локальная разработка).
func AllowAll() Capability {
	return CapabilityFunc(func(Identity, Action) error { return nil })
}

// RoleCapability строит проверку прав по таблице action -> допустимые роли.
// Действия без записи в таблице разрешены любой идентичности.
func RoleCapability(rules map[Action][]string) Capability {
	return CapabilityFunc(func(identity Identity, action Action) error {
		roles, ok := rules[action]
		if !ok {
			return nil
		}
		for _, role := range roles {
			if identity.HasRole(role) {
				return nil
			}
		}
		return ErrNotPermitted
	})
}

// EventPublisher публикует доменные события наружу. Публикация best-effort:
// её сбой никогда не откатывает уже закоммиченный заказ.
type EventPublisher interface {
	PublishOrderEvent(eventType string, order Order, metadata map[string]any) error
}
