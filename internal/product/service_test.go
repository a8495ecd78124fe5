package product_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/stockbook/internal/inventory"
	"github.com/MrJamesThe3rd/stockbook/internal/product"
	"github.com/MrJamesThe3rd/stockbook/internal/store/memory"
)

func setup(t *testing.T) (*memory.Store, *product.Service) {
	t.Helper()

	st := memory.New()
	ctx := context.Background()

	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateCategory(ctx, &inventory.Category{ID: uuid.New(), Name: "Phones"}))
	require.NoError(t, tx.CreateCategory(ctx, &inventory.Category{ID: uuid.New(), Name: "Accessories"}))
	require.NoError(t, tx.Commit())

	return st, product.NewService(st, inventory.NewLedger(inventory.AttributeOnSellout))
}

func phone(imei string) *inventory.Product {
	return &inventory.Product{
		ProductName:   "Galaxy S24",
		Category:      "Phones",
		PurchaseDate:  time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		PurchasePrice: decimal.RequireFromString("500"),
		SellingPrice:  decimal.RequireFromString("749.99"),
		TrackingType:  inventory.TrackingIMEI,
		IMEI:          &imei,
	}
}

func cable(qty int) *inventory.Product {
	return &inventory.Product{
		ProductName:   "USB Cable",
		Category:      "Accessories",
		PurchaseDate:  time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		PurchasePrice: decimal.RequireFromString("1"),
		SellingPrice:  decimal.RequireFromString("3"),
		TrackingType:  inventory.TrackingQuantity,
		Quantity:      qty,
	}
}

func TestService_Add(t *testing.T) {
	type testCase struct {
		name     string
		products func() []*inventory.Product
		target   error
		field    string
		wantLen  int
	}

	noCategory := cable(1)
	noCategory.Category = "Drones"

	imeiWithQty := phone("900")
	imeiWithQty.Quantity = 4

	cableWithIMEI := cable(2)
	cableWithIMEI.IMEI = new("123")

	tests := []testCase{
		{name: "Success", products: func() []*inventory.Product { return []*inventory.Product{phone("100"), cable(25)} }, wantLen: 2},
		{name: "Empty", products: func() []*inventory.Product { return nil }, target: inventory.ErrValidation, field: "products"},
		{name: "DuplicateWithinRequest", products: func() []*inventory.Product { return []*inventory.Product{phone("200"), phone("200")} }, target: inventory.ErrConflict},
		{name: "DuplicateInStore", products: func() []*inventory.Product { return []*inventory.Product{cable(1), phone("existing")} }, target: inventory.ErrConflict},
		{name: "UnknownCategory", products: func() []*inventory.Product { return []*inventory.Product{noCategory} }, target: inventory.ErrNotFound},
		{name: "IMEIQuantityNotOne", products: func() []*inventory.Product { return []*inventory.Product{imeiWithQty} }, target: inventory.ErrValidation, field: "[0].quantity"},
		{name: "QuantityWithIMEI", products: func() []*inventory.Product { return []*inventory.Product{cable(1), cableWithIMEI} }, target: inventory.ErrValidation, field: "[1].imei"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, svc := setup(t)
			ctx := context.Background()

			_, err := svc.Add(ctx, []*inventory.Product{phone("existing")})
			require.NoError(t, err)

			got, err := svc.Add(ctx, tt.products())

			if tt.target != nil {
				require.ErrorIs(t, err, tt.target)

				if tt.field != "" {
					var ve *inventory.ValidationError
					require.ErrorAs(t, err, &ve)
					assert.Equal(t, tt.field, ve.Field)
				}

				all, err := st.ListProducts(ctx, inventory.ProductFilter{})
				require.NoError(t, err)
				assert.Len(t, all, 1)

				return
			}

			require.NoError(t, err)
			require.Len(t, got, tt.wantLen)

			for _, p := range got {
				assert.NotEqual(t, uuid.Nil, p.ID)
				assert.Equal(t, inventory.StatusAvailable, p.Status)
				assert.NoError(t, inventory.CheckInvariant(p))
			}

			assert.Equal(t, 1, got[0].Quantity)
		})
	}
}

func TestService_Update(t *testing.T) {
	_, svc := setup(t)
	ctx := context.Background()

	added, err := svc.Add(ctx, []*inventory.Product{phone("A"), phone("B")})
	require.NoError(t, err)

	edit := added[0].Clone()
	edit.SellingPrice = decimal.RequireFromString("699.999")
	edit.Notes = "display unit"

	got, err := svc.Update(ctx, edit)
	require.NoError(t, err)
	assert.Equal(t, "700", got.SellingPrice.String())
	require.NotNil(t, got.UpdatedAt)

	stored, err := svc.Get(ctx, edit.ID)
	require.NoError(t, err)
	assert.Equal(t, "display unit", stored.Notes)

	clash := added[0].Clone()
	clash.IMEI = new("B")
	_, err = svc.Update(ctx, clash)
	assert.ErrorIs(t, err, inventory.ErrConflict)

	missing := added[0].Clone()
	missing.ID = uuid.New()
	_, err = svc.Update(ctx, missing)
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestService_Delete(t *testing.T) {
	st, svc := setup(t)
	ctx := context.Background()

	added, err := svc.Add(ctx, []*inventory.Product{cable(3)})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, added[0].ID))

	all, err := st.ListProducts(ctx, inventory.ProductFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)

	assert.ErrorIs(t, svc.Delete(ctx, added[0].ID), inventory.ErrNotFound)

	// A product sold on an invoice stays.
	added, err = svc.Add(ctx, []*inventory.Product{cable(3)})
	require.NoError(t, err)

	tx, err := st.Begin(ctx)
	require.NoError(t, err)

	locked, err := tx.LockProducts(ctx, []uuid.UUID{added[0].ID})
	require.NoError(t, err)

	p := locked[added[0].ID]
	p.InvoiceID = new(uuid.New())
	require.NoError(t, tx.UpdateProduct(ctx, p))
	require.NoError(t, tx.Commit())

	err = svc.Delete(ctx, p.ID)

	var ce *inventory.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Reason, "invoice")
}

func TestService_ArchiveSoldThenUnarchive(t *testing.T) {
	st, svc := setup(t)
	ctx := context.Background()

	added, err := svc.Add(ctx, []*inventory.Product{phone("356938035643809")})
	require.NoError(t, err)

	id := added[0].ID
	invoiceID := uuid.New()

	tx, err := st.Begin(ctx)
	require.NoError(t, err)

	locked, err := tx.LockProducts(ctx, []uuid.UUID{id})
	require.NoError(t, err)

	_, err = inventory.NewLedger(inventory.AttributeOnSellout).ApplySale(locked[id], 1, "Jane Doe", invoiceID)
	require.NoError(t, err)
	require.NoError(t, tx.UpdateProduct(ctx, locked[id]))
	require.NoError(t, tx.Commit())

	archived, err := svc.Archive(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusArchived, archived.Status)
	require.NotNil(t, archived.CustomerName)

	available, err := st.ListProducts(ctx, inventory.ProductFilter{AvailableOnly: true})
	require.NoError(t, err)
	assert.Empty(t, available)

	_, err = svc.Archive(ctx, id)
	assert.ErrorIs(t, err, inventory.ErrConflict)

	got, err := svc.Unarchive(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusAvailable, got.Status)
	assert.Nil(t, got.CustomerName)
	require.NotNil(t, got.InvoiceID)
	assert.Equal(t, invoiceID, *got.InvoiceID)

	_, err = svc.Unarchive(ctx, id)
	assert.ErrorIs(t, err, inventory.ErrConflict)

	_, err = svc.Archive(ctx, uuid.New())
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestService_List_Filters(t *testing.T) {
	_, svc := setup(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, []*inventory.Product{phone("1"), cable(0), cable(4)})
	require.NoError(t, err)

	available, err := svc.List(ctx, inventory.ProductFilter{AvailableOnly: true})
	require.NoError(t, err)
	assert.Len(t, available, 2)

	accessories, err := svc.List(ctx, inventory.ProductFilter{Category: "Accessories"})
	require.NoError(t, err)
	assert.Len(t, accessories, 2)

	imei := inventory.TrackingIMEI
	phones, err := svc.List(ctx, inventory.ProductFilter{TrackingType: &imei})
	require.NoError(t, err)
	require.Len(t, phones, 1)
	assert.Equal(t, "Galaxy S24", phones[0].ProductName)
}

func TestService_Update_LockFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := inventory.NewMockRepository(ctrl)
	tx := inventory.NewMockTx(ctrl)

	id := uuid.New()

	repo.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	tx.EXPECT().LockProducts(gomock.Any(), []uuid.UUID{id}).Return(nil, &inventory.StoreUnavailableError{SchemaMissing: true})
	tx.EXPECT().Rollback().Return(nil)

	svc := product.NewService(repo, inventory.NewLedger(inventory.AttributeOnSellout))
	_, err := svc.Update(context.Background(), &inventory.Product{ID: id})

	assert.True(t, inventory.IsSchemaMissing(err))
}

func TestService_LogsCommittedChanges(t *testing.T) {
	type testCase struct {
		name   string
		action func(ctx context.Context, svc *product.Service, p *inventory.Product) error
		want   string
	}

	tests := []testCase{
		{
			name: "Update",
			action: func(ctx context.Context, svc *product.Service, p *inventory.Product) error {
				p.Notes = "shelf B"
				_, err := svc.Update(ctx, p)
				return err
			},
			want: `msg="product updated"`,
		},
		{
			name: "Archive",
			action: func(ctx context.Context, svc *product.Service, p *inventory.Product) error {
				_, err := svc.Archive(ctx, p.ID)
				return err
			},
			want: "status=Archived",
		},
		{
			name: "Unarchive",
			action: func(ctx context.Context, svc *product.Service, p *inventory.Product) error {
				if _, err := svc.Archive(ctx, p.ID); err != nil {
					return err
				}

				_, err := svc.Unarchive(ctx, p.ID)
				return err
			},
			want: "status=Available",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, svc := setup(t)
			ctx := inventory.WithOperator(context.Background(), "clerk-7")

			added, err := svc.Add(ctx, []*inventory.Product{cable(4)})
			require.NoError(t, err)

			var buf bytes.Buffer

			prev := slog.Default()
			slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
			t.Cleanup(func() { slog.SetDefault(prev) })

			require.NoError(t, tt.action(ctx, svc, added[0].Clone()))

			assert.Contains(t, buf.String(), tt.want)
			assert.Contains(t, buf.String(), "operator=clerk-7")
			assert.Contains(t, buf.String(), "id="+added[0].ID.String())
		})
	}
}
