// Package memory is the client-local storage adapter. State lives in process
// and is optionally mirrored to a JSON snapshot file on every commit.
package memory

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/MrJamesThe3rd/stockbook/internal/inventory"
)

// Store serializes units of work with a single-slot semaphore held from Begin
// until Commit or Rollback. Each unit of work edits a private copy of the
// state that replaces the committed state only on Commit.
type Store struct {
	txSem *semaphore.Weighted

	mu        sync.RWMutex
	committed *state

	path string
}

// New returns an empty store that keeps nothing on disk.
func New() *Store {
	return &Store{txSem: semaphore.NewWeighted(1), committed: newState()}
}

// Open loads the snapshot at path if it exists and mirrors every commit to it.
func Open(path string) (*Store, error) {
	s := &Store{txSem: semaphore.NewWeighted(1), committed: newState(), path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}

		return nil, &inventory.StoreUnavailableError{Err: fmt.Errorf("reading snapshot: %w", err)}
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &inventory.StoreUnavailableError{Err: fmt.Errorf("decoding snapshot: %w", err)}
	}

	s.committed = snap.toState()

	return s, nil
}

func (s *Store) Begin(ctx context.Context) (inventory.Tx, error) {
	// A caller whose ctx ends while waiting never starts its unit of work.
	if err := s.txSem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	s.mu.RLock()
	staged := s.committed.clone()
	s.mu.RUnlock()

	return &tx{store: s, st: staged}, nil
}

// Migrate has nothing to create in memory.
func (s *Store) Migrate(context.Context) error {
	return nil
}

func (s *Store) read() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.committed
}

func (s *Store) commit(st *state) error {
	if s.path != "" {
		if err := writeSnapshot(s.path, st); err != nil {
			return &inventory.StoreUnavailableError{Err: err}
		}
	}

	s.mu.Lock()
	s.committed = st
	s.mu.Unlock()

	return nil
}

func (s *Store) ListProducts(_ context.Context, filter inventory.ProductFilter) ([]*inventory.Product, error) {
	st := s.read()

	products := make([]*inventory.Product, 0, len(st.productOrder))
	for _, id := range st.productOrder {
		p := st.products[id]
		if !filter.Match(p) {
			continue
		}

		products = append(products, p.Clone())
	}

	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id uuid.UUID) (*inventory.Product, error) {
	p, ok := s.read().products[id]
	if !ok {
		return nil, inventory.NewNotFound("product", id.String())
	}

	return p.Clone(), nil
}

func (s *Store) ListInvoices(context.Context) ([]*inventory.Invoice, error) {
	st := s.read()

	invoices := make([]*inventory.Invoice, 0, len(st.invoices))
	for _, inv := range st.invoices {
		invoices = append(invoices, cloneInvoice(inv))
	}

	slices.SortFunc(invoices, func(a, b *inventory.Invoice) int {
		return cmp.Or(a.IssueDate.Compare(b.IssueDate), cmp.Compare(a.InvoiceNumber, b.InvoiceNumber))
	})

	return invoices, nil
}

func (s *Store) GetInvoice(_ context.Context, id uuid.UUID) (*inventory.Invoice, error) {
	return s.read().invoice(id)
}

func (s *Store) ListPurchaseOrders(context.Context) ([]*inventory.PurchaseOrder, error) {
	st := s.read()

	orders := make([]*inventory.PurchaseOrder, 0, len(st.purchaseOrders))
	for id := range st.purchaseOrders {
		po, _ := st.purchaseOrder(id)
		orders = append(orders, po)
	}

	slices.SortFunc(orders, func(a, b *inventory.PurchaseOrder) int {
		return cmp.Or(a.IssueDate.Compare(b.IssueDate), cmp.Compare(a.PONumber, b.PONumber))
	})

	return orders, nil
}

func (s *Store) GetPurchaseOrder(_ context.Context, id uuid.UUID) (*inventory.PurchaseOrder, error) {
	return s.read().purchaseOrder(id)
}

func (s *Store) ListCategories(context.Context) ([]*inventory.Category, error) {
	return sortedByName(s.read().categories, func(c *inventory.Category) string { return c.Name }), nil
}

func (s *Store) ListCustomers(context.Context) ([]*inventory.Customer, error) {
	return sortedByName(s.read().customers, func(c *inventory.Customer) string { return c.Name }), nil
}

func (s *Store) ListSuppliers(context.Context) ([]*inventory.Supplier, error) {
	return sortedByName(s.read().suppliers, func(c *inventory.Supplier) string { return c.Name }), nil
}

func sortedByName[T any](m map[uuid.UUID]*T, name func(*T) string) []*T {
	out := make([]*T, 0, len(m))
	for _, v := range m {
		c := *v
		out = append(out, &c)
	}

	slices.SortFunc(out, func(a, b *T) int { return cmp.Compare(name(a), name(b)) })

	return out
}

func writeSnapshot(path string, st *state) error {
	data, err := json.MarshalIndent(st.toSnapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}

	return nil
}
