package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/bitetrack/sales-engine/internal/core/domain"
)

// mockStore is an in-memory port.Store with the same optimistic semantics as
// the MySQL adapter: commits validate reservation versions, then decrement
// stock and bump versions, all-or-nothing under one lock.
type mockStore struct {
	mu        sync.Mutex
	products  map[string]*domain.Product
	customers map[string]*domain.Customer
	sellers   map[string]*domain.Seller
	sales     map[string]*domain.Sale
	writeOffs map[string]*domain.InventoryWriteOff

	// popped one per call before normal handling, nil entries meaning "behave
	// normally", so tests can inject transient failures
	createSaleErrs  []error
	writeOffErrs    []error
	createSaleCalls int
}

func newMockStore() *mockStore {
	return &mockStore{
		products:  make(map[string]*domain.Product),
		customers: make(map[string]*domain.Customer),
		sellers:   make(map[string]*domain.Seller),
		sales:     make(map[string]*domain.Sale),
		writeOffs: make(map[string]*domain.InventoryWriteOff),
	}
}

func (m *mockStore) addProduct(id, price string, stock int) {
	m.products[id] = &domain.Product{
		ID:    id,
		Name:  "product " + id,
		Price: decimal.RequireFromString(price),
		Count: stock,
	}
}

func (m *mockStore) addCustomer(id string) {
	m.customers[id] = &domain.Customer{ID: id, FirstName: "Test", LastName: "Customer"}
}

func (m *mockStore) addSeller(id string) {
	m.sellers[id] = &domain.Seller{ID: id, Name: "Test Seller"}
}

func (m *mockStore) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockStore) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *mockStore) GetSeller(ctx context.Context, id string) (*domain.Seller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sellers[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *mockStore) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sales[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	cp.Items = append([]domain.LineItem(nil), s.Items...)
	return &cp, nil
}

func checkReservation(p *domain.Product, ok bool, r domain.Reservation) error {
	if !ok {
		return fmt.Errorf("product %s: %w", r.ProductID, domain.ErrNotFound)
	}
	if p.Version != r.Version {
		return fmt.Errorf("product %s version moved: %w", r.ProductID, domain.ErrConflict)
	}
	if p.Count < r.Quantity {
		return fmt.Errorf("product %s has %d of %d requested: %w",
			r.ProductID, p.Count, r.Quantity, domain.ErrInsufficientStock)
	}
	return nil
}

func (m *mockStore) CreateSale(ctx context.Context, sale domain.Sale, reservations []domain.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createSaleCalls++

	if len(m.createSaleErrs) > 0 {
		err := m.createSaleErrs[0]
		m.createSaleErrs = m.createSaleErrs[1:]
		if err != nil {
			return err
		}
	}

	// Validate everything before mutating anything.
	for _, r := range reservations {
		p, ok := m.products[r.ProductID]
		if err := checkReservation(p, ok, r); err != nil {
			return err
		}
	}

	for _, r := range reservations {
		p := m.products[r.ProductID]
		p.Count -= r.Quantity
		p.Version++
	}

	cp := sale
	cp.Items = append([]domain.LineItem(nil), sale.Items...)
	m.sales[sale.ID] = &cp

	if c, ok := m.customers[sale.CustomerID]; ok {
		t := sale.CreatedAt
		c.LastTransaction = &t
	}
	return nil
}

func (m *mockStore) ApplyPayment(ctx context.Context, saleID string, amount decimal.Decimal) (*domain.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sales[saleID]
	if !ok {
		return nil, fmt.Errorf("sale %s: %w", saleID, domain.ErrNotFound)
	}
	s.AmountPaid = s.AmountPaid.Add(amount)

	cp := *s
	cp.Items = append([]domain.LineItem(nil), s.Items...)
	return &cp, nil
}

func (m *mockStore) CreateWriteOff(ctx context.Context, w domain.InventoryWriteOff, r domain.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.writeOffErrs) > 0 {
		err := m.writeOffErrs[0]
		m.writeOffErrs = m.writeOffErrs[1:]
		if err != nil {
			return err
		}
	}

	p, ok := m.products[r.ProductID]
	if err := checkReservation(p, ok, r); err != nil {
		return err
	}

	p.Count -= r.Quantity
	p.Version++
	cp := w
	m.writeOffs[w.ID] = &cp
	return nil
}

// Mock IdempotencyStore
type mockIdemStore struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMockIdemStore() *mockIdemStore {
	return &mockIdemStore{seen: make(map[string]bool)}
}

func (m *mockIdemStore) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
