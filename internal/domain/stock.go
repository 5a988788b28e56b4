package domain

import "time"

// StockCategory — тип товара в каталоге.
type StockCategory string

const (
	StockCategoryBook StockCategory = "book"
	StockCategoryToy  StockCategory = "toy"
	StockCategoryGame StockCategory = "game"
)

// Valid проверяет, что категория относится к поддерживаемым значениям.
func (c StockCategory) Valid() bool {
	switch c {
	case StockCategoryBook, StockCategoryToy, StockCategoryGame:
		return true
	default:
		return false
	}
}

// StockItem — запись центрального склада (main stock).
// Quantity центрального пула МОЖЕТ уходить в минус при web-перепродаже:
// backorder для web-канала не ведётся, это принятый бизнес-компромисс.
type StockItem struct {
	ID             string
	Name           string
	Category       StockCategory
	BuyPriceMinor  int64
	SellPriceMinor int64
	Quantity       int64
	Description    string
	ImageURL       string
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ShopStock — остаток товара в конкретном магазине.
// QtyOnHand никогда не опускается ниже нуля: перепродажа фиксируется
// как backorder на строке заказа, а не отрицательным остатком.
type ShopStock struct {
	ID          string
	ShopID      string
	StockItemID string
	QtyOnHand   int64
	// LowStockThreshold — порог, ниже которого остаток считается низким.
	LowStockThreshold int64
	// Снимок цен на момент передачи со склада; далее редактируется
	// магазином независимо от каталога.
	InheritedBuyPriceMinor  int64
	InheritedSellPriceMinor int64
	Version                 int64
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// IsLowStock сообщает, пора ли пополнять остаток.
func (s ShopStock) IsLowStock() bool {
	return s.QtyOnHand <= s.LowStockThreshold
}

// Shop — физический магазин, получающий сток с центрального склада.
type Shop struct {
	ID           string
	Name         string
	Address      string
	ProprietorID string
	CreatedAt    time.Time
}

// StockAdjustment описывает одно изменение остатка внутри атомарной операции.
// Delta отрицательна для списания и положительна для возврата.
type StockAdjustment struct {
	Channel     Channel
	ShopID      string
	StockItemID string
	Delta       int64
	// ExpectedVersion — версия строки на момент чтения цен; -1 отключает
	// проверку (возвраты при отмене не предваряются чтением).
	ExpectedVersion int64
}

// TransferRequest — заявка на перемещение товара с центрального склада в магазин.
type TransferRequest struct {
	ShopID            string
	StockItemID       string
	Qty               int64
	LowStockThreshold int64
}

// Validate проверяет поля заявки на перемещение.
func (t TransferRequest) Validate() []error {
	var errs []error
	if t.ShopID == "" {
		errs = append(errs, ErrShopRequired)
	}
	if t.StockItemID == "" {
		errs = append(errs, ErrStockItemRequired)
	}
	if t.Qty <= 0 {
		errs = append(errs, ErrItemQtyInvalid)
	}
	if t.LowStockThreshold < 0 {
		errs = append(errs, ErrThresholdInvalid)
	}
	return errs
}
