package memory

import (
	"sort"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

type shopRepository struct {
	store *Store
}

func (r *shopRepository) Create(shop domain.Shop) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.shops[shop.ID]; exists {
		return domain.ErrAlreadyExists
	}
	r.store.shops[shop.ID] = shop
	return nil
}

func (r *shopRepository) Get(id string) (domain.Shop, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	shop, ok := r.store.shops[id]
	if !ok {
		return domain.Shop{}, domain.ErrShopNotFound
	}
	return shop, nil
}

func (r *shopRepository) List() ([]domain.Shop, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.Shop, 0, len(r.store.shops))
	for _, shop := range r.store.shops {
		result = append(result, shop)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

var _ domain.ShopRepository = (*shopRepository)(nil)
