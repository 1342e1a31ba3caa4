package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSaleSettled(t *testing.T) {
	sale := Sale{
		TotalAmount: decimal.RequireFromString("20.00"),
		AmountPaid:  decimal.RequireFromString("19.99"),
	}
	if sale.Settled() {
		t.Error("expected unsettled below total")
	}

	sale.AmountPaid = decimal.RequireFromString("20.00")
	if !sale.Settled() {
		t.Error("expected settled at exact total")
	}

	sale.AmountPaid = decimal.RequireFromString("25.00")
	if !sale.Settled() {
		t.Error("expected settled above total")
	}
}

func TestTotalOf(t *testing.T) {
	items := []LineItem{
		{ProductID: "p-1", Quantity: 3, PriceAtSale: decimal.RequireFromString("5.00")},
		{ProductID: "p-2", Quantity: 2, PriceAtSale: decimal.RequireFromString("1.25")},
	}
	if total := TotalOf(items); !total.Equal(decimal.RequireFromString("17.50")) {
		t.Errorf("expected 17.50, got %s", total)
	}

	if total := TotalOf(nil); !total.Equal(decimal.Zero) {
		t.Errorf("expected zero total for no items, got %s", total)
	}
}

func TestWriteOffReasonValid(t *testing.T) {
	for _, r := range []WriteOffReason{ReasonExpired, ReasonDamaged, ReasonContaminated, ReasonSpoiled, ReasonOther} {
		if !r.Valid() {
			t.Errorf("expected %q to be valid", r)
		}
	}
	for _, r := range []WriteOffReason{"", "melted", "EXPIRED"} {
		if r.Valid() {
			t.Errorf("expected %q to be invalid", r)
		}
	}
}
