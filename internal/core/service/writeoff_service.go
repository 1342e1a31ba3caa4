package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bitetrack/sales-engine/internal/core/domain"
	"github.com/bitetrack/sales-engine/internal/port"
)

// WriteOffService removes stock outside of any sale (spoilage, damage, and
// the like). It contends on the same product rows as sale creation and
// follows the same conflict-retry discipline.
type WriteOffService struct {
	store  port.Store
	logger *slog.Logger
	cfg    Config
}

func NewWriteOffService(store port.Store, logger *slog.Logger, cfg Config) *WriteOffService {
	return &WriteOffService{
		store:  store,
		logger: logger,
		cfg:    cfg.withDefaults(),
	}
}

type WriteOffInput struct {
	ProductID string
	Quantity  int
	Reason    domain.WriteOffReason
	Cost      decimal.Decimal
}

func (s *WriteOffService) WriteOff(ctx context.Context, in WriteOffInput) (*domain.InventoryWriteOff, error) {
	if in.ProductID == "" {
		return nil, fmt.Errorf("productId is required: %w", domain.ErrValidation)
	}
	if in.Quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1: %w", domain.ErrValidation)
	}
	if !in.Reason.Valid() {
		return nil, fmt.Errorf("unknown write-off reason %q: %w", in.Reason, domain.ErrValidation)
	}
	if in.Cost.IsNegative() {
		return nil, fmt.Errorf("cost must not be negative: %w", domain.ErrValidation)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.CommitTimeout)
	defer cancel()

	var w *domain.InventoryWriteOff
	err := retryOnConflict(ctx, s.cfg.MaxAttempts, s.cfg.RetryBackoff, func(ctx context.Context) error {
		var attemptErr error
		w, attemptErr = s.attemptWriteOff(ctx, in)
		return attemptErr
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "stock written off",
		"write_off_id", w.ID,
		"product_id", w.ProductID,
		"quantity", w.Quantity,
		"reason", w.Reason,
	)
	return w, nil
}

func (s *WriteOffService) attemptWriteOff(ctx context.Context, in WriteOffInput) (*domain.InventoryWriteOff, error) {
	p, err := s.store.GetProduct(ctx, in.ProductID)
	if err != nil {
		return nil, fmt.Errorf("resolve product: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("product %s: %w", in.ProductID, domain.ErrNotFound)
	}
	if p.Count < in.Quantity {
		return nil, fmt.Errorf("product %s has %d of %d requested: %w",
			in.ProductID, p.Count, in.Quantity, domain.ErrInsufficientStock)
	}

	w := domain.InventoryWriteOff{
		ID:        uuid.NewString(),
		ProductID: in.ProductID,
		Quantity:  in.Quantity,
		Reason:    in.Reason,
		Cost:      in.Cost,
		CreatedAt: time.Now().UTC(),
	}
	reservation := domain.Reservation{
		ProductID: in.ProductID,
		Quantity:  in.Quantity,
		Version:   p.Version,
	}

	if err := s.store.CreateWriteOff(ctx, w, reservation); err != nil {
		return nil, err
	}
	return &w, nil
}
