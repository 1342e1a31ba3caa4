package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one product/quantity pair within a sale. PriceAtSale is the
// unit price frozen when the sale was committed; later catalog changes never
// touch it.
type LineItem struct {
	ProductID   string
	Quantity    int
	PriceAtSale decimal.Decimal
}

// Sale is immutable after creation except for AmountPaid, which only the
// settlement path may grow.
type Sale struct {
	ID          string
	CustomerID  string
	SellerID    string
	Items       []LineItem
	TotalAmount decimal.Decimal
	AmountPaid  decimal.Decimal
	CreatedAt   time.Time
}

func (s *Sale) Settled() bool {
	return s.AmountPaid.GreaterThanOrEqual(s.TotalAmount)
}

// TotalOf sums quantity times frozen unit price over the given items.
func TotalOf(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.PriceAtSale.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}
