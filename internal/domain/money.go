package domain

// PercentOfMinor возвращает pct процентов от суммы в минимальных единицах,
// округляя к ближайшему от нуля (round half away from zero). Политика
// округления менять нельзя: от неё зависят денежные итоги заказов.
func PercentOfMinor(amountMinor int64, pct int) int64 {
	product := amountMinor * int64(pct)
	if product >= 0 {
		return (product + 50) / 100
	}
	return (product - 50) / 100
}
