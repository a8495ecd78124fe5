package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
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

type CreateParams struct {
	SupplierID uuid.UUID                `json:"supplierId" validate:"required"`
	PONumber   string                   `json:"poNumber"`
	Status     inventory.OrderStatus    `json:"status" validate:"omitempty,oneof=Draft Ordered Completed"`
	Notes      string                   `json:"notes"`
	Batches    []inventory.RestockBatch `json:"batches" validate:"required,min=1,dive"`
}

// Result is the created order together with every product it generated.
type Result struct {
	PurchaseOrder *inventory.PurchaseOrder `json:"purchaseOrder"`
	Products      []*inventory.Product     `json:"products"`
}

func (p *CreateParams) normalize() error {
	p.PONumber = inventory.NormalizeName(p.PONumber)
	if p.PONumber == "" {
		return &inventory.ValidationError{Field: "poNumber", Reason: "is required"}
	}

	if p.Status == "" {
		p.Status = inventory.OrderDraft
	}

	if err := inventory.Validate(p); err != nil {
		return err
	}

	for i, b := range p.Batches {
		if err := b.Validate(); err != nil {
			return inBatch(err, i)
		}
	}

	return nil
}

// Create records a purchase order and expands its batches into products in
// one unit of work.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Result, error) {
	if err := params.normalize(); err != nil {
		return nil, err
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin purchase order: %w", err)
	}
	defer tx.Rollback()

	supplier, err := tx.GetSupplier(ctx, params.SupplierID)
	if err != nil {
		return nil, err
	}

	exists, err := tx.PurchaseOrderNumberExists(ctx, params.PONumber)
	if err != nil {
		return nil, fmt.Errorf("checking purchase order number: %w", err)
	}

	if exists {
		return nil, &inventory.ConflictError{Kind: "purchase order", Key: params.PONumber, Reason: "number already used"}
	}

	po := &inventory.PurchaseOrder{
		ID:           uuid.New(),
		PONumber:     params.PONumber,
		SupplierID:   supplier.ID,
		SupplierName: supplier.Name,
		IssueDate:    s.now().UTC(),
		Status:       params.Status,
		Notes:        params.Notes,
		TotalCost:    decimal.Zero,
		ProductIDs:   []uuid.UUID{},
	}

	if err := tx.CreatePurchaseOrder(ctx, po); err != nil {
		return nil, fmt.Errorf("creating purchase order: %w", err)
	}

	var products []*inventory.Product

	for i, batch := range params.Batches {
		created, err := s.ledger.ApplyRestock(ctx, tx, po.ID, batch)
		if err != nil {
			return nil, inBatch(err, i)
		}

		for _, p := range created {
			po.TotalCost = po.TotalCost.Add(p.PurchasePrice.Mul(decimal.NewFromInt(int64(p.Quantity))))
			po.ProductIDs = append(po.ProductIDs, p.ID)
		}

		products = append(products, created...)
	}

	po.TotalCost = inventory.NormalizeMoney(po.TotalCost)
	if err := inventory.CheckTotal("totalCost", po.TotalCost); err != nil {
		return nil, err
	}

	if err := tx.SetPurchaseOrderTotal(ctx, po.ID, po.TotalCost); err != nil {
		return nil, fmt.Errorf("setting purchase order total: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit purchase order: %w", err)
	}

	slog.Info("purchase order created",
		"id", po.ID,
		"number", po.PONumber,
		"supplier", po.SupplierName,
		"products", len(products),
		"total", po.TotalCost.StringFixed(2),
		"operator", inventory.OperatorFrom(ctx),
	)

	result := &Result{PurchaseOrder: po, Products: products}
	events.Notify(ctx, s.publisher, events.New(events.PurchaseOrderCreated, inventory.OperatorFrom(ctx), result))

	return result, nil
}

func (s *Service) List(ctx context.Context) ([]*inventory.PurchaseOrder, error) {
	return s.repo.ListPurchaseOrders(ctx)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*inventory.PurchaseOrder, error) {
	return s.repo.GetPurchaseOrder(ctx, id)
}

// UpdateStatus moves an order forward through Draft, Ordered and Completed.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status inventory.OrderStatus) (*inventory.PurchaseOrder, error) {
	if !status.Valid() {
		return nil, &inventory.ValidationError{Field: "status", Reason: "must be one of: Draft Ordered Completed"}
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin purchase order update: %w", err)
	}
	defer tx.Rollback()

	po, err := tx.GetPurchaseOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if !po.Status.CanTransitionTo(status) {
		return nil, &inventory.ConflictError{
			Kind:   "purchase order",
			Key:    po.PONumber,
			Reason: fmt.Sprintf("cannot move from %s back to %s", po.Status, status),
		}
	}

	if err := tx.UpdatePurchaseOrderStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("updating purchase order status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit purchase order update: %w", err)
	}

	po.Status = status

	slog.Info("purchase order status updated", "id", po.ID, "status", status, "operator", inventory.OperatorFrom(ctx))

	return po, nil
}

func inBatch(err error, i int) error {
	var ve *inventory.ValidationError
	if errors.As(err, &ve) {
		return &inventory.ValidationError{Field: fmt.Sprintf("batches[%d].%s", i, ve.Field), Reason: ve.Reason}
	}

	return err
}
