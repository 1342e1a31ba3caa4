package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/bitetrack/sales-engine/internal/core/domain"
	"github.com/bitetrack/sales-engine/internal/port"
)

// SettlementService applies payments against an existing sale. Payments only
// ever grow amountPaid; the settled flag is derived from the stored state
// after each increment.
type SettlementService struct {
	store  port.Store
	logger *slog.Logger
	cfg    Config
}

func NewSettlementService(store port.Store, logger *slog.Logger, cfg Config) *SettlementService {
	return &SettlementService{
		store:  store,
		logger: logger,
		cfg:    cfg.withDefaults(),
	}
}

func (s *SettlementService) ApplyPayment(ctx context.Context, saleID string, amount decimal.Decimal) (*domain.Sale, error) {
	if saleID == "" {
		return nil, fmt.Errorf("sale id is required: %w", domain.ErrValidation)
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("payment amount must not be negative: %w", domain.ErrValidation)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.CommitTimeout)
	defer cancel()

	var sale *domain.Sale
	err := retryOnConflict(ctx, s.cfg.MaxAttempts, s.cfg.RetryBackoff, func(ctx context.Context) error {
		var attemptErr error
		sale, attemptErr = s.store.ApplyPayment(ctx, saleID, amount)
		return attemptErr
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "payment applied",
		"sale_id", sale.ID,
		"amount", amount,
		"amount_paid", sale.AmountPaid,
		"settled", sale.Settled(),
	)
	return sale, nil
}

func (s *SettlementService) GetSale(ctx context.Context, saleID string) (*domain.Sale, error) {
	sale, err := s.store.GetSale(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("resolve sale: %w", err)
	}
	if sale == nil {
		return nil, fmt.Errorf("sale %s: %w", saleID, domain.ErrNotFound)
	}
	return sale, nil
}
