package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        string
	Name      string
	Price     decimal.Decimal
	Count     int
	Version   int // optimistic locking
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reservation is one pending stock decrement: remove Quantity units from the
// product, valid only while the product row still carries Version.
type Reservation struct {
	ProductID string
	Quantity  int
	Version   int
}
