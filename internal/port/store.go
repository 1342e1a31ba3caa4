package port

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/bitetrack/sales-engine/internal/core/domain"
)

// Store is the transactional persistence layer. Lookups return (nil, nil)
// when the record does not exist. Write methods commit all of their effects
// in a single transaction or none of them, and report domain.ErrConflict when
// an optimistic version check loses to a concurrent writer.
type Store interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	GetSeller(ctx context.Context, id string) (*domain.Seller, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)

	// CreateSale persists the sale, applies every reservation, and stamps the
	// customer's last transaction time, atomically.
	CreateSale(ctx context.Context, sale domain.Sale, reservations []domain.Reservation) error

	// ApplyPayment atomically increments the sale's amountPaid relative to its
	// current stored value and returns the updated sale.
	ApplyPayment(ctx context.Context, saleID string, amount decimal.Decimal) (*domain.Sale, error)

	// CreateWriteOff applies the reservation and persists the write-off record
	// atomically.
	CreateWriteOff(ctx context.Context, w domain.InventoryWriteOff, r domain.Reservation) error
}
