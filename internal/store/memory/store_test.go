package memory_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/stockbook/internal/inventory"
	"github.com/MrJamesThe3rd/stockbook/internal/store/memory"
)

func cable(qty int) *inventory.Product {
	return &inventory.Product{
		ID:            uuid.New(),
		ProductName:   "USB Cable",
		Category:      "Accessories",
		PurchaseDate:  time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		PurchasePrice: decimal.RequireFromString("2.50"),
		SellingPrice:  decimal.RequireFromString("10.00"),
		Status:        inventory.StatusAvailable,
		TrackingType:  inventory.TrackingQuantity,
		Quantity:      qty,
		CreatedAt:     time.Now().UTC(),
	}
}

func phone(imei string) *inventory.Product {
	p := cable(1)
	p.ProductName = "Galaxy S24"
	p.TrackingType = inventory.TrackingIMEI
	p.IMEI = &imei

	return p
}

func TestStore_CommitIsVisible(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	p := cable(5)

	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateProducts(ctx, []*inventory.Product{p}))

	before, err := st.ListProducts(ctx, inventory.ProductFilter{})
	require.NoError(t, err)
	assert.Empty(t, before)

	require.NoError(t, tx.Commit())
	require.NoError(t, tx.Rollback())

	got, err := st.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Quantity)
}

func TestStore_RollbackDiscards(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateProducts(ctx, []*inventory.Product{cable(1)}))
	require.NoError(t, tx.CreateCategory(ctx, &inventory.Category{ID: uuid.New(), Name: "Accessories"}))
	require.NoError(t, tx.Rollback())

	products, err := st.ListProducts(ctx, inventory.ProductFilter{})
	require.NoError(t, err)
	assert.Empty(t, products)

	categories, err := st.ListCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, categories)
}

func TestStore_ReadsAreCopies(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	p := cable(3)

	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateProducts(ctx, []*inventory.Product{p}))
	require.NoError(t, tx.Commit())

	p.Quantity = 99

	got, err := st.GetProduct(ctx, p.ID)
	require.NoError(t, err)

	got.Quantity = 42

	again, err := st.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, again.Quantity)
}

func TestStore_UnitsOfWorkSerialize(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	first, err := st.Begin(ctx)
	require.NoError(t, err)

	started := make(chan struct{})
	acquired := make(chan struct{})

	go func() {
		close(started)

		second, err := st.Begin(ctx)
		if err == nil {
			_ = second.Rollback()
		}

		close(acquired)
	}()

	<-started

	select {
	case <-acquired:
		t.Fatal("second unit of work began while the first was open")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, first.Rollback())

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second unit of work never began")
	}
}

func TestTx_IMEIUniqueness(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	existing := phone("356938035643809")

	tx, err := st.Begin(ctx)
	require.NoError(t, err)

	defer tx.Rollback()

	require.NoError(t, tx.CreateProducts(ctx, []*inventory.Product{existing}))

	taken, err := tx.FindIMEIs(ctx, []string{"356938035643809", "free"}, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"356938035643809"}, taken)

	taken, err = tx.FindIMEIs(ctx, []string{"356938035643809"}, existing.ID)
	require.NoError(t, err)
	assert.Empty(t, taken)

	err = tx.CreateProducts(ctx, []*inventory.Product{phone("356938035643809")})
	assert.ErrorIs(t, err, inventory.ErrConflict)

	other := phone("other")
	require.NoError(t, tx.CreateProducts(ctx, []*inventory.Product{other}))

	other.IMEI = existing.IMEI
	assert.ErrorIs(t, tx.UpdateProduct(ctx, other), inventory.ErrConflict)
}

func TestTx_InvoiceSequence(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	tx, err := st.Begin(ctx)
	require.NoError(t, err)

	customer := &inventory.Customer{ID: uuid.New(), Name: "Walk-in Customer"}
	require.NoError(t, tx.CreateCustomer(ctx, customer))

	for i := range 2 {
		require.NoError(t, tx.CreateInvoice(ctx, &inventory.Invoice{
			ID:            uuid.New(),
			InvoiceNumber: inventory.FormatInvoiceNumber(2024, i+1),
			CustomerID:    customer.ID,
			CustomerName:  customer.Name,
			IssueDate:     time.Date(2024, 6, i+1, 0, 0, 0, 0, time.UTC),
		}))
	}

	seq, err := tx.NextInvoiceSequence(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, seq)

	seq, err = tx.NextInvoiceSequence(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, seq)

	err = tx.CreateInvoice(ctx, &inventory.Invoice{ID: uuid.New(), InvoiceNumber: "INV-2024-0001", CustomerID: customer.ID})
	assert.ErrorIs(t, err, inventory.ErrConflict)

	err = tx.CreateInvoice(ctx, &inventory.Invoice{ID: uuid.New(), InvoiceNumber: "INV-2024-0009", CustomerID: uuid.New()})
	assert.ErrorIs(t, err, inventory.ErrNotFound)

	require.NoError(t, tx.Commit())

	invoices, err := st.ListInvoices(ctx)
	require.NoError(t, err)
	require.Len(t, invoices, 2)
	assert.Equal(t, "INV-2024-0001", invoices[0].InvoiceNumber)
}

func TestTx_PurchaseOrderProducts(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	supplier := &inventory.Supplier{ID: uuid.New(), Name: "Default Supplier"}
	po := &inventory.PurchaseOrder{ID: uuid.New(), PONumber: "PO-1", SupplierID: supplier.ID, Status: inventory.OrderDraft}

	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateSupplier(ctx, supplier))
	require.NoError(t, tx.CreatePurchaseOrder(ctx, po))

	exists, err := tx.PurchaseOrderNumberExists(ctx, "PO-1")
	require.NoError(t, err)
	assert.True(t, exists)

	a, b := cable(4), phone("A1")
	a.PurchaseOrderID, b.PurchaseOrderID = &po.ID, &po.ID
	require.NoError(t, tx.CreateProducts(ctx, []*inventory.Product{a, cable(1), b}))
	require.NoError(t, tx.SetPurchaseOrderTotal(ctx, po.ID, decimal.RequireFromString("12.50")))
	require.NoError(t, tx.Commit())

	got, err := st.GetPurchaseOrder(ctx, po.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, got.ProductIDs)
	assert.True(t, decimal.RequireFromString("12.5").Equal(got.TotalCost))

	n, err := countBySupplier(ctx, st, supplier.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func countBySupplier(ctx context.Context, st *memory.Store, id uuid.UUID) (int, error) {
	tx, err := st.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	return tx.CountPurchaseOrdersBySupplier(ctx, id)
}

func TestTx_RegistryUniqueness(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	tx, err := st.Begin(ctx)
	require.NoError(t, err)

	defer tx.Rollback()

	phones := &inventory.Category{ID: uuid.New(), Name: "Smartphones"}
	require.NoError(t, tx.CreateCategory(ctx, phones))
	assert.ErrorIs(t, tx.CreateCategory(ctx, &inventory.Category{ID: uuid.New(), Name: "Smartphones"}), inventory.ErrConflict)

	tablets := &inventory.Category{ID: uuid.New(), Name: "Tablets"}
	require.NoError(t, tx.CreateCategory(ctx, tablets))

	tablets.Name = "Smartphones"
	assert.ErrorIs(t, tx.UpdateCategory(ctx, tablets), inventory.ErrConflict)

	require.NoError(t, tx.CreateSupplier(ctx, &inventory.Supplier{ID: uuid.New(), Name: "Acme"}))
	assert.ErrorIs(t, tx.CreateSupplier(ctx, &inventory.Supplier{ID: uuid.New(), Name: "Acme"}), inventory.ErrConflict)

	// Customer names may repeat.
	require.NoError(t, tx.CreateCustomer(ctx, &inventory.Customer{ID: uuid.New(), Name: "Ana"}))
	require.NoError(t, tx.CreateCustomer(ctx, &inventory.Customer{ID: uuid.New(), Name: "Ana"}))

	assert.ErrorIs(t, tx.DeleteCategory(ctx, uuid.New()), inventory.ErrNotFound)
	assert.ErrorIs(t, tx.DeleteCustomer(ctx, uuid.New()), inventory.ErrNotFound)

	counts, err := tx.CountReferenceData(ctx)
	require.NoError(t, err)
	assert.Equal(t, inventory.ReferenceCounts{Categories: 2, Customers: 2, Suppliers: 1}, counts)
}

func TestTx_RenameProductCategory(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	tx, err := st.Begin(ctx)
	require.NoError(t, err)

	defer tx.Rollback()

	require.NoError(t, tx.CreateProducts(ctx, []*inventory.Product{cable(1), cable(2)}))
	require.NoError(t, tx.RenameProductCategory(ctx, "Accessories", "Cables"))

	n, err := tx.CountProductsByCategory(ctx, "Cables")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = tx.CountProductsByCategory(ctx, "Accessories")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpen_SnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "stockbook.json")
	ctx := context.Background()

	st, err := memory.Open(path)
	require.NoError(t, err)

	p := phone("990000862471854")
	supplier := &inventory.Supplier{ID: uuid.New(), Name: "Acme", Email: "sales@acme.test"}

	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateSupplier(ctx, supplier))
	require.NoError(t, tx.CreateProducts(ctx, []*inventory.Product{p}))
	_, err = tx.NextInvoiceSequence(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	_, err = os.Stat(path)
	require.NoError(t, err)

	reopened, err := memory.Open(path)
	require.NoError(t, err)

	got, err := reopened.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, *p.IMEI, *got.IMEI)
	assert.True(t, p.SellingPrice.Equal(got.SellingPrice))

	suppliers, err := reopened.ListSuppliers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []*inventory.Supplier{supplier}, suppliers)

	tx, err = reopened.Begin(ctx)
	require.NoError(t, err)

	defer tx.Rollback()

	seq, err := tx.NextInvoiceSequence(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, seq)
}

func TestOpen_CorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stockbook.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := memory.Open(path)
	assert.ErrorIs(t, err, inventory.ErrStoreUnavailable)
}

func TestStore_BeginGivesUpWhenContextEnds(t *testing.T) {
	st := memory.New()

	held, err := st.Begin(context.Background())
	require.NoError(t, err)

	defer held.Rollback()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		tx, err := st.Begin(ctx)
		if err == nil {
			_ = tx.Rollback()
		}

		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("Begin kept waiting after its context ended")
	}

	require.NoError(t, held.Rollback())

	tx, err := st.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
}

func TestStore_BeginCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := memory.New().Begin(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
