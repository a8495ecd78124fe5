// Package postgres is the transactional relational storage adapter.
package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/stockbook/internal/database"
	"github.com/MrJamesThe3rd/stockbook/internal/inventory"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Begin(ctx context.Context) (inventory.Tx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &inventory.StoreUnavailableError{Err: err}
	}

	return &tx{tx: dbTx}, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &inventory.StoreUnavailableError{Err: err}
	}

	if err := database.Migrate(s.db); err != nil {
		return translate("migrating schema", err)
	}

	return nil
}

func (s *Store) ListProducts(ctx context.Context, filter inventory.ProductFilter) ([]*inventory.Product, error) {
	return listProducts(ctx, s.db, filter)
}

func (s *Store) GetProduct(ctx context.Context, id uuid.UUID) (*inventory.Product, error) {
	return getProduct(ctx, s.db, id)
}

func (s *Store) ListInvoices(ctx context.Context) ([]*inventory.Invoice, error) {
	return listInvoices(ctx, s.db)
}

func (s *Store) GetInvoice(ctx context.Context, id uuid.UUID) (*inventory.Invoice, error) {
	return getInvoice(ctx, s.db, id)
}

func (s *Store) ListPurchaseOrders(ctx context.Context) ([]*inventory.PurchaseOrder, error) {
	return listPurchaseOrders(ctx, s.db)
}

func (s *Store) GetPurchaseOrder(ctx context.Context, id uuid.UUID) (*inventory.PurchaseOrder, error) {
	return getPurchaseOrder(ctx, s.db, id)
}

func (s *Store) ListCategories(ctx context.Context) ([]*inventory.Category, error) {
	return listCategories(ctx, s.db)
}

func (s *Store) ListCustomers(ctx context.Context) ([]*inventory.Customer, error) {
	return listCustomers(ctx, s.db)
}

func (s *Store) ListSuppliers(ctx context.Context) ([]*inventory.Supplier, error) {
	return listSuppliers(ctx, s.db)
}
