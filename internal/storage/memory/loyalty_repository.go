package memory

import (
	"time"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

// loyaltyRepository — in-memory реализация LoyaltyRepository.
type loyaltyRepository struct {
	store *Store
}

func (r *loyaltyRepository) GetByCustomer(customerID string) (domain.LoyaltyProfile, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	profile, ok := r.store.profiles[customerID]
	if !ok {
		return domain.LoyaltyProfile{}, domain.ErrProfileNotFound
	}
	return profile, nil
}

// Create сохраняет профиль; вторая попытка для той же идентичности — ErrAlreadyExists,
// чтобы GetOrCreate оставался идемпотентным.
func (r *loyaltyRepository) Create(profile domain.LoyaltyProfile) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.profiles[profile.CustomerID]; exists {
		return domain.ErrAlreadyExists
	}
	r.store.profiles[profile.CustomerID] = profile
	return nil
}

// Save перезаписывает профиль с проверкой версии.
func (r *loyaltyRepository) Save(profile domain.LoyaltyProfile) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.profiles[profile.CustomerID]
	if !ok {
		return domain.ErrProfileNotFound
	}
	if current.Version != profile.Version {
		return domain.ErrVersionConflict
	}
	profile.Version++
	profile.UpdatedAt = time.Now().UTC()
	r.store.profiles[profile.CustomerID] = profile
	return nil
}

var _ domain.LoyaltyRepository = (*loyaltyRepository)(nil)
