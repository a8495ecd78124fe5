package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=repository.go -destination=repository_mock.go -package=inventory

// Repository is the storage port. Reads outside a unit of work see committed
// state only; every mutation goes through Begin.
type Repository interface {
	Begin(ctx context.Context) (Tx, error)

	ListProducts(ctx context.Context, filter ProductFilter) ([]*Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	ListInvoices(ctx context.Context) ([]*Invoice, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error)
	ListPurchaseOrders(ctx context.Context) ([]*PurchaseOrder, error)
	GetPurchaseOrder(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)
	ListCategories(ctx context.Context) ([]*Category, error)
	ListCustomers(ctx context.Context) ([]*Customer, error)
	ListSuppliers(ctx context.Context) ([]*Supplier, error)

	// Migrate creates the schema if needed. It must be idempotent.
	Migrate(ctx context.Context) error
}

// Tx is one atomic unit of work. Nothing written through it is observable
// until Commit; Rollback after Commit is a no-op.
type Tx interface {
	Commit() error
	Rollback() error

	// LockProducts loads the products and serializes concurrent writers on them
	// until the unit of work ends. Missing ids are absent from the map.
	LockProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Product, error)
	// FindIMEIs returns which of the given serials already exist, ignoring the
	// product with id exclude when it is not uuid.Nil.
	FindIMEIs(ctx context.Context, imeis []string, exclude uuid.UUID) ([]string, error)
	CreateProducts(ctx context.Context, products []*Product) error
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	CountProductsByCategory(ctx context.Context, category string) (int, error)
	RenameProductCategory(ctx context.Context, from, to string) error

	// NextInvoiceSequence allocates the next invoice sequence number. The first
	// allocation starts at the number of existing invoices plus one.
	NextInvoiceSequence(ctx context.Context) (int, error)
	CreateInvoice(ctx context.Context, inv *Invoice) error
	GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error)
	UpdateInvoiceCustomer(ctx context.Context, id, customerID uuid.UUID, customerName string) error
	CountInvoicesByCustomer(ctx context.Context, customerID uuid.UUID) (int, error)

	PurchaseOrderNumberExists(ctx context.Context, poNumber string) (bool, error)
	CreatePurchaseOrder(ctx context.Context, po *PurchaseOrder) error
	SetPurchaseOrderTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error
	GetPurchaseOrder(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)
	UpdatePurchaseOrderStatus(ctx context.Context, id uuid.UUID, status OrderStatus) error
	CountPurchaseOrdersBySupplier(ctx context.Context, supplierID uuid.UUID) (int, error)

	GetCategory(ctx context.Context, id uuid.UUID) (*Category, error)
	FindCategoryByName(ctx context.Context, name string) (*Category, error)
	CreateCategory(ctx context.Context, c *Category) error
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	GetCustomer(ctx context.Context, id uuid.UUID) (*Customer, error)
	CreateCustomer(ctx context.Context, c *Customer) error
	UpdateCustomer(ctx context.Context, c *Customer) error
	DeleteCustomer(ctx context.Context, id uuid.UUID) error

	GetSupplier(ctx context.Context, id uuid.UUID) (*Supplier, error)
	FindSupplierByName(ctx context.Context, name string) (*Supplier, error)
	CreateSupplier(ctx context.Context, s *Supplier) error
	UpdateSupplier(ctx context.Context, s *Supplier) error
	DeleteSupplier(ctx context.Context, id uuid.UUID) error

	CountReferenceData(ctx context.Context) (ReferenceCounts, error)
}

// ReferenceCounts is used by initialization to seed only empty tables.
type ReferenceCounts struct {
	Categories int
	Customers  int
	Suppliers  int
}

// ProductFilter narrows ListProducts. Zero value lists everything.
type ProductFilter struct {
	Status          *Status
	AvailableOnly   bool
	Category        string
	PurchaseOrderID *uuid.UUID
	TrackingType    *TrackingType
}

// Match applies the filter to a single product.
func (f ProductFilter) Match(p *Product) bool {
	if f.Status != nil && p.Status != *f.Status {
		return false
	}

	if f.AvailableOnly && !p.Sellable() {
		return false
	}

	if f.Category != "" && p.Category != f.Category {
		return false
	}

	if f.PurchaseOrderID != nil && (p.PurchaseOrderID == nil || *p.PurchaseOrderID != *f.PurchaseOrderID) {
		return false
	}

	if f.TrackingType != nil && p.TrackingType != *f.TrackingType {
		return false
	}

	return true
}
