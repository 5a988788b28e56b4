package domain

import "time"

// Tier — уровень лояльности клиента, выводится из накопленного профита.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

var tierRank = map[Tier]int{
	TierBronze:   0,
	TierSilver:   1,
	TierGold:     2,
	TierPlatinum: 3,
}

// Rank возвращает порядковый номер уровня (bronze < silver < gold < platinum).
// Неизвестный уровень трактуется как bronze.
func (t Tier) Rank() int {
	return tierRank[t]
}

// Valid проверяет, что уровень относится к поддерживаемым значениям.
func (t Tier) Valid() bool {
	_, ok := tierRank[t]
	return ok
}

// LoyaltyProfile — профиль лояльности клиента, одна запись на идентичность.
// Создаётся лениво при первой продаже или первом просмотре и в нормальной
// работе не удаляется.
type LoyaltyProfile struct {
	ID         string
	CustomerID string
	// LifetimeProfitMinor — накопленный профит клиента в минимальных
	// денежных единицах. Может корректироваться отрицательной продажей
	// или полным пересчётом по исполненным заказам.
	LifetimeProfitMinor int64
	Tier                Tier
	Version             int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
