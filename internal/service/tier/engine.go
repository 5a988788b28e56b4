package tier

import "github.com/vladislavdragonenkov/retail/internal/domain"

// Rules — настраиваемые пороги уровней и скидки POS. Bronze — неявный пол
// на нуле, отдельного порога не имеет.
type Rules struct {
	SilverMinProfitMinor   int64
	GoldMinProfitMinor     int64
	PlatinumMinProfitMinor int64
	// Discounts — процент скидки POS по уровню; отсутствующий уровень = 0.
	Discounts map[domain.Tier]int
}

// DefaultRules возвращает пороги и скидки по умолчанию.
func DefaultRules() Rules {
	return Rules{
		SilverMinProfitMinor:   20000,
		GoldMinProfitMinor:     100000,
		PlatinumMinProfitMinor: 300000,
		Discounts: map[domain.Tier]int{
			domain.TierBronze:   0,
			domain.TierSilver:   5,
			domain.TierGold:     10,
			domain.TierPlatinum: 15,
		},
	}
}

// Engine — чистая функция отображения накопленного профита в уровень
// лояльности. Состояния не имеет, безопасна для конкурентного использования.
type Engine struct {
	rules Rules
}

// New создаёт движок с заданными правилами.
func New(rules Rules) *Engine {
	return &Engine{rules: rules}
}

// ComputeTier возвращает уровень для накопленного профита. Пороги проверяются
// от высшего к низшему, сравнение включающее: клиент выше платинового порога
// никогда не будет ошибочно классифицирован как Gold.
func (e *Engine) ComputeTier(lifetimeProfitMinor int64) domain.Tier {
	switch {
	case lifetimeProfitMinor >= e.rules.PlatinumMinProfitMinor:
		return domain.TierPlatinum
	case lifetimeProfitMinor >= e.rules.GoldMinProfitMinor:
		return domain.TierGold
	case lifetimeProfitMinor >= e.rules.SilverMinProfitMinor:
		return domain.TierSilver
	default:
		return domain.TierBronze
	}
}

// Progress возвращает текущий профит, денежную цель следующего уровня и долю
// её достижения, зажатую в [0, 1]. Для терминального Platinum цель равна
// платиновому порогу, а доля всегда 1.0. Неположительная цель также даёт 1.0,
// чтобы исключить деление на ноль.
func (e *Engine) Progress(lifetimeProfitMinor int64, current domain.Tier) (int64, int64, float64) {
	var next int64
	switch current {
	case domain.TierBronze:
		next = e.rules.SilverMinProfitMinor
	case domain.TierSilver:
		next = e.rules.GoldMinProfitMinor
	case domain.TierGold:
		next = e.rules.PlatinumMinProfitMinor
	default:
		next = e.rules.PlatinumMinProfitMinor
	}

	if current == domain.TierPlatinum {
		return lifetimeProfitMinor, next, 1.0
	}
	if next <= 0 {
		return lifetimeProfitMinor, 0, 1.0
	}

	pct := float64(lifetimeProfitMinor) / float64(next)
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}
	return lifetimeProfitMinor, next, pct
}

// DiscountPercent возвращает процент скидки POS для уровня; для уровня без
// записи в таблице — 0.
func (e *Engine) DiscountPercent(t domain.Tier) int {
	return e.rules.Discounts[t]
}
