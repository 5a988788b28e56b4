package domain

import "time"

// BasketLine — одна позиция корзины: товар и запрошенное количество.
// Name и UnitPriceMinor — кеш для отображения; авторитетные цены
// разрешаются заново на чекауте.
type BasketLine struct {
	StockItemID    string
	Name           string
	UnitPriceMinor int64
	Qty            int64
}

// Basket — корзина посетителя, ключуется непрозрачным session-токеном.
// Состояние строго per-visitor: общих блокировок не требует, читается и
// очищается тем же запросом, который завершил чекаут.
type Basket struct {
	Token     string
	Lines     []BasketLine
	UpdatedAt time.Time
}

// SubtotalMinor — отображаемая сумма корзины по кешированным ценам.
func (b Basket) SubtotalMinor() int64 {
	var sum int64
	for _, line := range b.Lines {
		sum += line.Qty * line.UnitPriceMinor
	}
	return sum
}

// Upsert добавляет количество к существующей строке или создаёт новую.
func (b *Basket) Upsert(line BasketLine) {
	for i := range b.Lines {
		if b.Lines[i].StockItemID == line.StockItemID {
			b.Lines[i].Qty += line.Qty
			return
		}
	}
	b.Lines = append(b.Lines, line)
}

// SetQty выставляет количество строки; qty <= 0 удаляет строку.
func (b *Basket) SetQty(stockItemID string, qty int64) {
	for i := range b.Lines {
		if b.Lines[i].StockItemID != stockItemID {
			continue
		}
		if qty <= 0 {
			b.Lines = append(b.Lines[:i], b.Lines[i+1:]...)
		} else {
			b.Lines[i].Qty = qty
		}
		return
	}
}

// Remove удаляет строку товара из корзины.
func (b *Basket) Remove(stockItemID string) {
	b.SetQty(stockItemID, 0)
}
