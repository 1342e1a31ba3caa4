package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bitetrack/sales-engine/internal/core/domain"
	"github.com/bitetrack/sales-engine/internal/port"
)

var ErrDuplicateRequest = errors.New("duplicate request")

// SaleService coordinates sale creation: it resolves the parties, freezes
// unit prices, reserves stock, and commits the sale as one atomic unit,
// retrying the whole sequence when the commit loses an optimistic race.
type SaleService struct {
	store  port.Store
	idem   port.IdempotencyStore // optional, nil disables replay protection
	logger *slog.Logger
	cfg    Config
}

func NewSaleService(store port.Store, idem port.IdempotencyStore, logger *slog.Logger, cfg Config) *SaleService {
	return &SaleService{
		store:  store,
		idem:   idem,
		logger: logger,
		cfg:    cfg.withDefaults(),
	}
}

type SaleItemInput struct {
	ProductID string
	Quantity  int
}

// CreateSaleInput carries no prices and no total; both are computed here and
// never trusted from the caller.
type CreateSaleInput struct {
	RequestID  string // optional idempotency key
	CustomerID string
	SellerID   string
	Items      []SaleItemInput
	AmountPaid decimal.Decimal
}

func (s *SaleService) CreateSale(ctx context.Context, in CreateSaleInput) (*domain.Sale, error) {
	if err := validateSaleInput(in); err != nil {
		return nil, err
	}

	if in.RequestID != "" && s.idem != nil {
		ok, err := s.idem.SetIdempotency(ctx, "sale:"+in.RequestID)
		if err != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return nil, ErrDuplicateRequest
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.CommitTimeout)
	defer cancel()

	var sale *domain.Sale
	err := retryOnConflict(ctx, s.cfg.MaxAttempts, s.cfg.RetryBackoff, func(ctx context.Context) error {
		var attemptErr error
		sale, attemptErr = s.attemptSale(ctx, in)
		return attemptErr
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "sale committed",
		"sale_id", sale.ID,
		"customer_id", sale.CustomerID,
		"total_amount", sale.TotalAmount,
		"settled", sale.Settled(),
	)
	return sale, nil
}

// attemptSale runs steps 1-6 of the sale sequence once. Everything it reads
// is revalidated by the store's version checks at commit, so a stale read
// surfaces as domain.ErrConflict and the caller retries from scratch.
func (s *SaleService) attemptSale(ctx context.Context, in CreateSaleInput) (*domain.Sale, error) {
	customer, err := s.store.GetCustomer(ctx, in.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("resolve customer: %w", err)
	}
	if customer == nil {
		return nil, fmt.Errorf("customer %s: %w", in.CustomerID, domain.ErrNotFound)
	}

	seller, err := s.store.GetSeller(ctx, in.SellerID)
	if err != nil {
		return nil, fmt.Errorf("resolve seller: %w", err)
	}
	if seller == nil {
		return nil, fmt.Errorf("seller %s: %w", in.SellerID, domain.ErrNotFound)
	}

	// Sum quantities per product before any stock check, so a product split
	// across several lines is checked and decremented exactly once.
	wanted := make(map[string]int, len(in.Items))
	distinct := make([]string, 0, len(in.Items))
	for _, it := range in.Items {
		if _, seen := wanted[it.ProductID]; !seen {
			distinct = append(distinct, it.ProductID)
		}
		wanted[it.ProductID] += it.Quantity
	}

	prices := make(map[string]decimal.Decimal, len(distinct))
	reservations := make([]domain.Reservation, 0, len(distinct))
	for _, id := range distinct {
		p, err := s.store.GetProduct(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolve product: %w", err)
		}
		if p == nil {
			return nil, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
		}
		if p.Count < wanted[id] {
			return nil, fmt.Errorf("product %s has %d of %d requested: %w",
				id, p.Count, wanted[id], domain.ErrInsufficientStock)
		}
		prices[id] = p.Price
		reservations = append(reservations, domain.Reservation{
			ProductID: id,
			Quantity:  wanted[id],
			Version:   p.Version,
		})
	}

	items := make([]domain.LineItem, len(in.Items))
	for i, it := range in.Items {
		items[i] = domain.LineItem{
			ProductID:   it.ProductID,
			Quantity:    it.Quantity,
			PriceAtSale: prices[it.ProductID],
		}
	}

	sale := domain.Sale{
		ID:          uuid.NewString(),
		CustomerID:  in.CustomerID,
		SellerID:    in.SellerID,
		Items:       items,
		TotalAmount: domain.TotalOf(items),
		AmountPaid:  in.AmountPaid,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.store.CreateSale(ctx, sale, reservations); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			s.logger.InfoContext(ctx, "sale commit lost a stock race, retrying",
				"customer_id", in.CustomerID)
		}
		return nil, err
	}
	return &sale, nil
}

func validateSaleInput(in CreateSaleInput) error {
	if in.CustomerID == "" || in.SellerID == "" {
		return fmt.Errorf("customerId and sellerId are required: %w", domain.ErrValidation)
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("at least one line item is required: %w", domain.ErrValidation)
	}
	for i, it := range in.Items {
		if it.ProductID == "" {
			return fmt.Errorf("item %d: productId is required: %w", i, domain.ErrValidation)
		}
		if it.Quantity < 1 {
			return fmt.Errorf("item %d: quantity must be at least 1: %w", i, domain.ErrValidation)
		}
	}
	if in.AmountPaid.IsNegative() {
		return fmt.Errorf("amountPaid must not be negative: %w", domain.ErrValidation)
	}
	return nil
}
