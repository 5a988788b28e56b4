package memory

import "github.com/vladislavdragonenkov/retail/internal/domain"

// basketRepository — in-memory реализация BasketRepository.
// Корзина — per-visitor состояние, переживать рестарт ей не нужно.
type basketRepository struct {
	store *Store
}

// Get возвращает корзину по токену; отсутствующая корзина — пустая, не ошибка.
func (r *basketRepository) Get(token string) (domain.Basket, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	basket, ok := r.store.baskets[token]
	if !ok {
		return domain.Basket{Token: token}, nil
	}
	basket.Lines = append([]domain.BasketLine(nil), basket.Lines...)
	return basket, nil
}

func (r *basketRepository) Save(basket domain.Basket) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	basket.Lines = append([]domain.BasketLine(nil), basket.Lines...)
	r.store.baskets[basket.Token] = basket
	return nil
}

func (r *basketRepository) Clear(token string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	delete(r.store.baskets, token)
	return nil
}

var _ domain.BasketRepository = (*basketRepository)(nil)
