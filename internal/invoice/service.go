package invoice

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/stockbook/internal/events"
	"github.com/MrJamesThe3rd/stockbook/internal/inventory"
)

type Service struct {
	repo      inventory.Repository
	ledger    *inventory.Ledger
	publisher events.Publisher
	now       func() time.Time
}

func NewService(repo inventory.Repository, ledger *inventory.Ledger, publisher events.Publisher) *Service {
	return &Service{repo: repo, ledger: ledger, publisher: publisher, now: time.Now}
}

type ItemParams struct {
	ProductID    uuid.UUID       `json:"productId" validate:"required"`
	Quantity     int             `json:"quantity" validate:"gte=1,lte=2147483647"`
	SellingPrice decimal.Decimal `json:"sellingPrice" validate:"gte=0,lt=1000000000000"`
}

type CreateParams struct {
	CustomerID uuid.UUID    `json:"customerId" validate:"required"`
	Items      []ItemParams `json:"items" validate:"required,min=1,dive"`
}

// Create issues an invoice and takes the sold units out of stock in one unit
// of work. Unit prices come from the request, not from the products.
func (s *Service) Create(ctx context.Context, params CreateParams) (*inventory.Invoice, error) {
	if err := inventory.Validate(params); err != nil {
		return nil, err
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin invoice: %w", err)
	}
	defer tx.Rollback()

	customer, err := tx.GetCustomer(ctx, params.CustomerID)
	if err != nil {
		return nil, err
	}

	ids := productIDs(params.Items)

	products, err := tx.LockProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("locking products: %w", err)
	}

	var missing []string

	for _, id := range ids {
		if _, ok := products[id]; !ok {
			missing = append(missing, id.String())
		}
	}

	if len(missing) > 0 {
		return nil, inventory.NewNotFound("product", missing...)
	}

	inv := &inventory.Invoice{
		ID:           uuid.New(),
		CustomerID:   customer.ID,
		CustomerName: customer.Name,
		IssueDate:    s.now().UTC(),
		Items:        make([]inventory.InvoiceItem, 0, len(params.Items)),
	}

	// Lines for the same product draw from the same staged row, so repeated
	// ids are checked against the remaining stock.
	for _, item := range params.Items {
		p := products[item.ProductID]

		sold, err := s.ledger.ApplySale(p, item.Quantity, customer.Name, inv.ID)
		if err != nil {
			return nil, err
		}

		inv.Items = append(inv.Items, inventory.InvoiceItem{
			ProductID:    p.ID,
			ProductName:  p.ProductName,
			IMEI:         p.IMEI,
			Quantity:     sold,
			SellingPrice: inventory.NormalizeMoney(item.SellingPrice),
		})
	}

	inv.TotalAmount = inv.Total()
	if err := inventory.CheckTotal("totalAmount", inv.TotalAmount); err != nil {
		return nil, err
	}

	seq, err := tx.NextInvoiceSequence(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocating invoice number: %w", err)
	}

	inv.InvoiceNumber = inventory.FormatInvoiceNumber(inv.IssueDate.Year(), seq)

	if err := tx.CreateInvoice(ctx, inv); err != nil {
		return nil, fmt.Errorf("creating invoice: %w", err)
	}

	for _, id := range ids {
		if err := tx.UpdateProduct(ctx, products[id]); err != nil {
			return nil, fmt.Errorf("updating product %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit invoice: %w", err)
	}

	slog.Info("invoice created",
		"id", inv.ID,
		"number", inv.InvoiceNumber,
		"customer", inv.CustomerName,
		"total", inv.TotalAmount.StringFixed(2),
		"operator", inventory.OperatorFrom(ctx),
	)

	events.Notify(ctx, s.publisher, events.New(events.InvoiceCreated, inventory.OperatorFrom(ctx), inv))

	return inv, nil
}

func (s *Service) List(ctx context.Context) ([]*inventory.Invoice, error) {
	return s.repo.ListInvoices(ctx)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*inventory.Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

// UpdateCustomer rebinds an issued invoice to another customer. Items, totals
// and the sold products keep their recorded values.
func (s *Service) UpdateCustomer(ctx context.Context, id, customerID uuid.UUID) (*inventory.Invoice, error) {
	if customerID == uuid.Nil {
		return nil, &inventory.ValidationError{Field: "customerId", Reason: "is required"}
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin invoice update: %w", err)
	}
	defer tx.Rollback()

	inv, err := tx.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	customer, err := tx.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if err := tx.UpdateInvoiceCustomer(ctx, id, customer.ID, customer.Name); err != nil {
		return nil, fmt.Errorf("updating invoice customer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit invoice update: %w", err)
	}

	inv.CustomerID = customer.ID
	inv.CustomerName = customer.Name

	slog.Info("invoice customer updated", "id", inv.ID, "customer", customer.Name, "operator", inventory.OperatorFrom(ctx))

	return inv, nil
}

// productIDs returns the distinct product ids in a stable order so that row
// locks are always taken in the same sequence.
func productIDs(items []ItemParams) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	slices.SortFunc(ids, func(a, b uuid.UUID) int { return slices.Compare(a[:], b[:]) })

	return slices.Compact(ids)
}
