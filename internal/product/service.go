package product

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/stockbook/internal/inventory"
)

type Service struct {
	repo   inventory.Repository
	ledger *inventory.Ledger
}

func NewService(repo inventory.Repository, ledger *inventory.Ledger) *Service {
	return &Service{repo: repo, ledger: ledger}
}

func (s *Service) List(ctx context.Context, filter inventory.ProductFilter) ([]*inventory.Product, error) {
	return s.repo.ListProducts(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*inventory.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// Add registers operator-entered products. Either every row is stored or none.
func (s *Service) Add(ctx context.Context, products []*inventory.Product) ([]*inventory.Product, error) {
	if len(products) == 0 {
		return nil, &inventory.ValidationError{Field: "products", Reason: "needs at least 1 entries"}
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin add products: %w", err)
	}
	defer tx.Rollback()

	for _, p := range products {
		// Sale and ownership links are only set by invoices and purchase orders.
		p.InvoiceID = nil
		p.PurchaseOrderID = nil
		p.UpdatedAt = nil
	}

	if err := s.ledger.Register(ctx, tx, products); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add products: %w", err)
	}

	slog.Info("products added", "count", len(products), "operator", inventory.OperatorFrom(ctx))

	return products, nil
}

// Update replaces the editable fields of a product. Invoice and purchase
// order links keep their stored values.
func (s *Service) Update(ctx context.Context, p *inventory.Product) (*inventory.Product, error) {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin update product: %w", err)
	}
	defer tx.Rollback()

	existing, err := lockOne(ctx, tx, p.ID)
	if err != nil {
		return nil, err
	}

	updated := p.Clone()
	updated.InvoiceID = existing.InvoiceID
	updated.PurchaseOrderID = existing.PurchaseOrderID
	updated.CreatedAt = existing.CreatedAt

	if updated.Status == "" {
		updated.Status = existing.Status
	}

	if err := s.ledger.Revise(ctx, tx, updated); err != nil {
		return nil, err
	}

	if err := tx.UpdateProduct(ctx, updated); err != nil {
		return nil, fmt.Errorf("updating product: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update product: %w", err)
	}

	slog.Info("product updated", "id", updated.ID, "operator", inventory.OperatorFrom(ctx))

	return updated, nil
}

// Delete removes a product that no invoice or purchase order points at.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete product: %w", err)
	}
	defer tx.Rollback()

	p, err := lockOne(ctx, tx, id)
	if err != nil {
		return err
	}

	switch {
	case p.InvoiceID != nil:
		return &inventory.ConflictError{Kind: "product", Key: p.ProductName, Reason: "in use by invoice " + p.InvoiceID.String()}
	case p.PurchaseOrderID != nil:
		return &inventory.ConflictError{Kind: "product", Key: p.ProductName, Reason: "in use by purchase order " + p.PurchaseOrderID.String()}
	}

	if err := tx.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete product: %w", err)
	}

	slog.Info("product deleted", "id", id, "operator", inventory.OperatorFrom(ctx))

	return nil
}

func (s *Service) Archive(ctx context.Context, id uuid.UUID) (*inventory.Product, error) {
	return s.transition(ctx, id, s.ledger.Archive)
}

func (s *Service) Unarchive(ctx context.Context, id uuid.UUID) (*inventory.Product, error) {
	return s.transition(ctx, id, s.ledger.Unarchive)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, apply func(*inventory.Product) error) (*inventory.Product, error) {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin product status change: %w", err)
	}
	defer tx.Rollback()

	p, err := lockOne(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := apply(p); err != nil {
		return nil, err
	}

	if err := tx.UpdateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("updating product: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit product status change: %w", err)
	}

	slog.Info("product status changed", "id", id, "status", p.Status, "operator", inventory.OperatorFrom(ctx))

	return p, nil
}

func lockOne(ctx context.Context, tx inventory.Tx, id uuid.UUID) (*inventory.Product, error) {
	products, err := tx.LockProducts(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, fmt.Errorf("locking product: %w", err)
	}

	p, ok := products[id]
	if !ok {
		return nil, inventory.NewNotFound("product", id.String())
	}

	return p, nil
}
