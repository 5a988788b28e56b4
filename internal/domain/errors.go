package domain

import "errors"

var (
	// Ошибка отсутствующего идентификатора клиента.
	ErrCustomerRequired = errors.New("customer_id is required")
	// Ошибка некорректного канала продажи.
	ErrChannelInvalid = errors.New("channel must be web or shop")
	// Ошибка отсутствующего магазина для shop-канала.
	ErrShopRequired = errors.New("shop_id is required for shop channel")
	// Ошибка отсутствующего идентификатора товара.
	ErrStockItemRequired = errors.New("stock_item_id is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка при некорректном количестве (<= 0).
	ErrItemQtyInvalid = errors.New("qty must be greater than zero")
	// Ошибка, если цена или себестоимость позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка некорректного количества в backorder.
	ErrBackorderInvalid = errors.New("backordered qty must be between zero and qty")
	// Ошибка несоответствия сумм заказа построчным снимкам.
	ErrAmountMismatch = errors.New("order totals do not match items")
	// Ошибка отрицательного порога низкого остатка.
	ErrThresholdInvalid = errors.New("low stock threshold must be non-negative")

	// ErrBasketEmpty — чекаут пустой корзины; пользовательская ошибка.
	ErrBasketEmpty = errors.New("basket is empty")
	// ErrIdentityRequired — web-чекаут без аутентифицированной идентичности.
	ErrIdentityRequired = errors.New("web checkout requires an authenticated identity")
	// ErrItemNotFound возвращается, когда позиция корзины ссылается на
	// удалённый товар; чекаут отклоняется целиком.
	ErrItemNotFound = errors.New("stock item no longer exists")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrShopNotFound возвращается, если магазин не найден.
	ErrShopNotFound = errors.New("shop not found")
	// ErrShopStockNotFound возвращается, если в магазине нет строки остатка.
	ErrShopStockNotFound = errors.New("shop stock not found")
	// ErrProfileNotFound возвращается, если профиль лояльности не найден.
	ErrProfileNotFound = errors.New("loyalty profile not found")
	// ErrBasketNotFound возвращается, если корзина по токену не найдена.
	ErrBasketNotFound = errors.New("basket not found")

	// ErrStockChanged сигнализирует о конкурентном изменении остатков:
	// прочитанные цены/доступность устарели. Ошибка retryable, но вызывающая
	// сторона обязана перечитать корзину, а не повторять со старыми данными.
	ErrStockChanged = errors.New("stock levels changed, review basket and retry")
	// ErrVersionConflict — конфликт optimistic locking при сохранении агрегата.
	ErrVersionConflict = errors.New("version conflict")
	// ErrInsufficientStock — на центральном складе не хватает товара для передачи.
	ErrInsufficientStock = errors.New("insufficient central stock")
	// ErrAlreadyExists — запись с таким ключом уже существует.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrInvalidStatus — целевой статус вне словаря.
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrTransitionNotAllowed — переход запрещён бизнес-правилом.
	ErrTransitionNotAllowed = errors.New("status transition not allowed")
	// ErrNotPermitted — у вызывающей идентичности нет нужной capability.
	ErrNotPermitted = errors.New("operation not permitted")
)

// IsConflict проверяет, является ли ошибка retryable-конфликтом.
func IsConflict(err error) bool {
	return errors.Is(err, ErrStockChanged) || errors.Is(err, ErrVersionConflict)
}

// IsValidation сообщает, что ошибка исправима на стороне пользователя:
// состояние не изменено, запрос можно поправить и повторить.
func IsValidation(err error) bool {
	switch {
	case errors.Is(err, ErrBasketEmpty),
		errors.Is(err, ErrIdentityRequired),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrCustomerRequired),
		errors.Is(err, ErrChannelInvalid),
		errors.Is(err, ErrShopRequired),
		errors.Is(err, ErrStockItemRequired),
		errors.Is(err, ErrItemQtyInvalid),
		errors.Is(err, ErrThresholdInvalid),
		errors.Is(err, ErrItemsRequired):
		return true
	default:
		return false
	}
}
