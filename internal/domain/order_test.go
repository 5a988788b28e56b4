package domain_test

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

// helper для создания согласованного заказа с одной позицией.
func makeOrder() domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID:               "order-1",
		CustomerID:       "customer-1",
		Channel:          domain.ChannelShop,
		ShopID:           "shop-1",
		Status:           domain.OrderStatusFulfilled,
		SubtotalMinor:    500,
		DiscountMinor:    0,
		GrandTotalMinor:  500,
		TotalCostMinor:   250,
		TotalProfitMinor: 250,
		Items: []domain.OrderItem{
			{
				ID:             "item-1",
				OrderID:        "order-1",
				StockItemID:    "stock-1",
				Qty:            5,
				UnitPriceMinor: 100,
				UnitCostMinor:  50,
				CreatedAt:      now,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOrderValidateInvariants_Ok(t *testing.T) {
	order := makeOrder()
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestOrderValidateInvariants_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(o *domain.Order)
	}{
		{
			name: "no customer",
			mut:  func(o *domain.Order) { o.CustomerID = "" },
		},
		{
			name: "bad channel",
			mut:  func(o *domain.Order) { o.Channel = "phone" },
		},
		{
			name: "shop channel without shop",
			mut:  func(o *domain.Order) { o.ShopID = "" },
		},
		{
			name: "no items",
			mut:  func(o *domain.Order) { o.Items = nil },
		},
		{
			name: "qty invalid",
			mut:  func(o *domain.Order) { o.Items[0].Qty = 0 },
		},
		{
			name: "backorder above qty",
			mut:  func(o *domain.Order) { o.Items[0].QtyBackordered = 6 },
		},
		{
			name: "negative price",
			mut:  func(o *domain.Order) { o.Items[0].UnitPriceMinor = -1 },
		},
		{
			name: "subtotal mismatch",
			mut:  func(o *domain.Order) { o.SubtotalMinor = 999 },
		},
		{
			name: "grand total not subtotal minus discount",
			mut:  func(o *domain.Order) { o.GrandTotalMinor = 400 },
		},
		{
			name: "profit not grand total minus cost",
			mut:  func(o *domain.Order) { o.TotalProfitMinor = 1 },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := makeOrder()
			tc.mut(&order)
			if len(order.ValidateInvariants()) == 0 {
				t.Fatalf("expected validation errors for case %s", tc.name)
			}
		})
	}
}

func TestOrderItemDerived(t *testing.T) {
	item := domain.OrderItem{Qty: 10, QtyBackordered: 4, UnitPriceMinor: 100, UnitCostMinor: 60}
	if got := item.QtyFulfilled(); got != 6 {
		t.Fatalf("fulfilled = %d, want 6", got)
	}
	if got := item.LineTotalMinor(); got != 1000 {
		t.Fatalf("line total = %d, want 1000", got)
	}
	if got := item.LineCostMinor(); got != 600 {
		t.Fatalf("line cost = %d, want 600", got)
	}
	if got := item.LineProfitMinor(); got != 400 {
		t.Fatalf("line profit = %d, want 400", got)
	}
}

func TestHasBackorder(t *testing.T) {
	order := makeOrder()
	if order.HasBackorder() {
		t.Fatal("fresh order should not report backorder")
	}
	order.Items[0].QtyBackordered = 1
	if !order.HasBackorder() {
		t.Fatal("expected backorder to be reported")
	}
}

func TestParseOrderStatus(t *testing.T) {
	for _, valid := range []string{"pending", "fulfilled", "cancelled"} {
		if _, err := domain.ParseOrderStatus(valid); err != nil {
			t.Fatalf("status %q should parse, got %v", valid, err)
		}
	}
	if _, err := domain.ParseOrderStatus("shipped"); err == nil {
		t.Fatal("unknown status must be rejected")
	}
}

func TestPercentOfMinor_RoundHalfAwayFromZero(t *testing.T) {
	cases := []struct {
		amount int64
		pct    int
		want   int64
	}{
		{amount: 1000, pct: 5, want: 50},
		{amount: 1050, pct: 5, want: 53},  // 52.5 -> 53
		{amount: 1030, pct: 5, want: 52},  // 51.5 -> 52
		{amount: 999, pct: 10, want: 100}, // 99.9 -> 100
		{amount: 1, pct: 5, want: 0},      // 0.05 -> 0
		{amount: 10, pct: 5, want: 1},     // 0.5 -> 1
		{amount: -1050, pct: 5, want: -53},
		{amount: 0, pct: 15, want: 0},
	}
	for _, tc := range cases {
		if got := domain.PercentOfMinor(tc.amount, tc.pct); got != tc.want {
			t.Fatalf("PercentOfMinor(%d, %d) = %d, want %d", tc.amount, tc.pct, got, tc.want)
		}
	}
}
