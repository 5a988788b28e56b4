package loyalty

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail/internal/domain"
	"github.com/vladislavdragonenkov/retail/internal/service/tier"
)

// Store владеет профилями лояльности: один профиль на идентичность клиента,
// создаётся лениво, в нормальной работе не удаляется.
type Store struct {
	profiles domain.LoyaltyRepository
	orders   domain.OrderRepository
	tiers    *tier.Engine
	logger   *log.Entry
}

// NewStore создаёт рабочий экземпляр поверх репозиториев.
func NewStore(profiles domain.LoyaltyRepository, orders domain.OrderRepository, tiers *tier.Engine, logger *log.Entry) *Store {
	if logger == nil {
		logger = log.New().WithField("component", "loyalty")
	}
	return &Store{profiles: profiles, orders: orders, tiers: tiers, logger: logger}
}

// ApplyResult — итог применения профита продажи к профилю.
type ApplyResult struct {
	Profile      domain.LoyaltyProfile
	PreviousTier domain.Tier
}

// Promoted сообщает, поднялся ли уровень после продажи.
func (r ApplyResult) Promoted() bool {
	return r.Profile.Tier.Rank() > r.PreviousTier.Rank()
}

// ProgressInfo — профиль вместе с прогрессом к следующему уровню и скидкой POS.
type ProgressInfo struct {
	Profile         domain.LoyaltyProfile
	NextTargetMinor int64
	PercentToNext   float64
	DiscountPercent int
}

// GetOrCreate возвращает профиль клиента, создавая нулевой Bronze-профиль
// ровно один раз на идентичность. Пустая идентичность отклоняется: профиль,
// ключованный пустой строкой, молча завести нельзя.
func (s *Store) GetOrCreate(customerID string) (domain.LoyaltyProfile, error) {
	if customerID == "" {
		return domain.LoyaltyProfile{}, domain.ErrCustomerRequired
	}

	profile, err := s.profiles.GetByCustomer(customerID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, domain.ErrProfileNotFound) {
		return domain.LoyaltyProfile{}, fmt.Errorf("load loyalty profile: %w", err)
	}

	now := time.Now().UTC()
	profile = domain.LoyaltyProfile{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		Tier:       domain.TierBronze,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.profiles.Create(profile); err != nil {
		// Конкурентный GetOrCreate уже завёл профиль — читаем его.
		if errors.Is(err, domain.ErrAlreadyExists) {
			return s.profiles.GetByCustomer(customerID)
		}
		return domain.LoyaltyProfile{}, fmt.Errorf("create loyalty profile: %w", err)
	}
	return profile, nil
}

// ApplyAfterSale прибавляет профит продажи (возможно отрицательный) к
// накопленному и пересчитывает уровень. Вызывается ровно один раз на
// завершённую продажу; ключа идемпотентности нет, повторный вызов задвоит
// профит — за единственность отвечает вызывающий. Профиль сохраняется
// синхронно до возврата.
func (s *Store) ApplyAfterSale(customerID string, saleProfitMinor int64) (ApplyResult, error) {
	profile, err := s.GetOrCreate(customerID)
	if err != nil {
		return ApplyResult{}, err
	}

	previous := profile.Tier
	profile.LifetimeProfitMinor += saleProfitMinor
	profile.Tier = s.tiers.ComputeTier(profile.LifetimeProfitMinor)

	if err := s.profiles.Save(profile); err != nil {
		return ApplyResult{}, fmt.Errorf("save loyalty profile: %w", err)
	}
	profile.Version++

	result := ApplyResult{Profile: profile, PreviousTier: previous}
	if result.Promoted() {
		s.logger.WithFields(log.Fields{
			"customer_id": customerID,
			"from":        previous,
			"to":          profile.Tier,
		}).Info("loyalty tier promoted")
	}
	return result, nil
}

// RecomputeFromOrders выставляет накопленный профит равным сумме профита
// исполненных заказов клиента и пересчитывает уровень. Пересчёт от источника,
// а не инкремент: при повторных правках статуса инкрементальные апдейты
// задрейфовали бы.
func (s *Store) RecomputeFromOrders(customerID string) (domain.LoyaltyProfile, error) {
	profile, err := s.GetOrCreate(customerID)
	if err != nil {
		return domain.LoyaltyProfile{}, err
	}

	lifetime, err := s.orders.SumFulfilledProfit(customerID)
	if err != nil {
		return domain.LoyaltyProfile{}, fmt.Errorf("sum fulfilled profit: %w", err)
	}

	profile.LifetimeProfitMinor = lifetime
	profile.Tier = s.tiers.ComputeTier(lifetime)
	if err := s.profiles.Save(profile); err != nil {
		return domain.LoyaltyProfile{}, fmt.Errorf("save loyalty profile: %w", err)
	}
	profile.Version++
	return profile, nil
}

// Progress возвращает профиль с прогрессом к следующему уровню и текущей
// скидкой POS.
func (s *Store) Progress(customerID string) (ProgressInfo, error) {
	profile, err := s.GetOrCreate(customerID)
	if err != nil {
		return ProgressInfo{}, err
	}

	_, next, pct := s.tiers.Progress(profile.LifetimeProfitMinor, profile.Tier)
	return ProgressInfo{
		Profile:         profile,
		NextTargetMinor: next,
		PercentToNext:   pct,
		DiscountPercent: s.tiers.DiscountPercent(profile.Tier),
	}, nil
}

// DiscountPercent возвращает скидку POS для клиента; для неизвестного клиента
// профиль создаётся лениво, как и при первом просмотре.
func (s *Store) DiscountPercent(customerID string) (int, error) {
	profile, err := s.GetOrCreate(customerID)
	if err != nil {
		return 0, err
	}
	return s.tiers.DiscountPercent(profile.Tier), nil
}
