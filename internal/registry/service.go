// Package registry manages the reference data that products, invoices and
// purchase orders point at. A record cannot be deleted while it is in use.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/stockbook/internal/inventory"
)

type Service struct {
	repo inventory.Repository
}

func NewService(repo inventory.Repository) *Service {
	return &Service{repo: repo}
}

type CategoryParams struct {
	Name string `json:"name" validate:"required"`
}

type CustomerParams struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone"`
}

type SupplierParams struct {
	ID    *uuid.UUID `json:"id,omitempty"`
	Name  string     `json:"name" validate:"required"`
	Email string     `json:"email" validate:"omitempty,email"`
	Phone string     `json:"phone"`
}

// unit runs fn inside one unit of work and commits when it succeeds.
func (s *Service) unit(ctx context.Context, op string, fn func(tx inventory.Tx) error) error {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin %s: %w", op, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", op, err)
	}

	return nil
}

func (s *Service) ListCategories(ctx context.Context) ([]*inventory.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, params CategoryParams) (*inventory.Category, error) {
	params.Name = inventory.NormalizeName(params.Name)
	if err := inventory.Validate(params); err != nil {
		return nil, err
	}

	c := &inventory.Category{ID: uuid.New(), Name: params.Name}

	err := s.unit(ctx, "create category", func(tx inventory.Tx) error {
		if err := categoryNameFree(ctx, tx, c); err != nil {
			return err
		}

		return tx.CreateCategory(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	return c, nil
}

// UpdateCategory renames a category and every product filed under it.
func (s *Service) UpdateCategory(ctx context.Context, id uuid.UUID, params CategoryParams) (*inventory.Category, error) {
	params.Name = inventory.NormalizeName(params.Name)
	if err := inventory.Validate(params); err != nil {
		return nil, err
	}

	var (
		c       *inventory.Category
		renamed string
	)

	err := s.unit(ctx, "update category", func(tx inventory.Tx) error {
		existing, err := tx.GetCategory(ctx, id)
		if err != nil {
			return err
		}

		c = &inventory.Category{ID: id, Name: params.Name}
		if existing.Name == c.Name {
			return nil
		}

		if err := categoryNameFree(ctx, tx, c); err != nil {
			return err
		}

		if err := tx.UpdateCategory(ctx, c); err != nil {
			return fmt.Errorf("updating category: %w", err)
		}

		if err := tx.RenameProductCategory(ctx, existing.Name, c.Name); err != nil {
			return fmt.Errorf("renaming product category: %w", err)
		}

		renamed = existing.Name

		return nil
	})
	if err != nil {
		return nil, err
	}

	if renamed != "" {
		slog.Info("category renamed", "from", renamed, "to", c.Name, "operator", inventory.OperatorFrom(ctx))
	}

	return c, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.unit(ctx, "delete category", func(tx inventory.Tx) error {
		c, err := tx.GetCategory(ctx, id)
		if err != nil {
			return err
		}

		n, err := tx.CountProductsByCategory(ctx, c.Name)
		if err != nil {
			return fmt.Errorf("counting products: %w", err)
		}

		if n > 0 {
			return inUse("category", c.Name, n, "product")
		}

		return tx.DeleteCategory(ctx, id)
	})
}

func (s *Service) ListCustomers(ctx context.Context) ([]*inventory.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

// CreateCustomer always inserts; customer names are not unique.
func (s *Service) CreateCustomer(ctx context.Context, params CustomerParams) (*inventory.Customer, error) {
	params.Name = inventory.NormalizeName(params.Name)
	if err := inventory.Validate(params); err != nil {
		return nil, err
	}

	c := &inventory.Customer{ID: uuid.New(), Name: params.Name, Phone: params.Phone}

	if err := s.unit(ctx, "create customer", func(tx inventory.Tx) error { return tx.CreateCustomer(ctx, c) }); err != nil {
		return nil, err
	}

	return c, nil
}

// UpdateCustomer edits the record only. Invoices keep the name they were
// issued with.
func (s *Service) UpdateCustomer(ctx context.Context, id uuid.UUID, params CustomerParams) (*inventory.Customer, error) {
	params.Name = inventory.NormalizeName(params.Name)
	if err := inventory.Validate(params); err != nil {
		return nil, err
	}

	c := &inventory.Customer{ID: id, Name: params.Name, Phone: params.Phone}

	err := s.unit(ctx, "update customer", func(tx inventory.Tx) error {
		if _, err := tx.GetCustomer(ctx, id); err != nil {
			return err
		}

		return tx.UpdateCustomer(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	return s.unit(ctx, "delete customer", func(tx inventory.Tx) error {
		c, err := tx.GetCustomer(ctx, id)
		if err != nil {
			return err
		}

		n, err := tx.CountInvoicesByCustomer(ctx, id)
		if err != nil {
			return fmt.Errorf("counting invoices: %w", err)
		}

		if n > 0 {
			return inUse("customer", c.Name, n, "invoice")
		}

		return tx.DeleteCustomer(ctx, id)
	})
}

func (s *Service) ListSuppliers(ctx context.Context) ([]*inventory.Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

// SaveSupplier updates the supplier with the given id, or else the one with
// the same name, or else inserts a new one.
func (s *Service) SaveSupplier(ctx context.Context, params SupplierParams) (*inventory.Supplier, error) {
	params.Name = inventory.NormalizeName(params.Name)
	if err := inventory.Validate(params); err != nil {
		return nil, err
	}

	sup := &inventory.Supplier{Name: params.Name, Email: params.Email, Phone: params.Phone}

	err := s.unit(ctx, "save supplier", func(tx inventory.Tx) error {
		if params.ID != nil {
			if _, err := tx.GetSupplier(ctx, *params.ID); err != nil {
				return err
			}

			sup.ID = *params.ID

			other, err := tx.FindSupplierByName(ctx, sup.Name)
			switch {
			case err == nil && other.ID != sup.ID:
				return &inventory.ConflictError{Kind: "supplier", Key: sup.Name, Reason: "already exists"}
			case err != nil && !errors.Is(err, inventory.ErrNotFound):
				return fmt.Errorf("finding supplier: %w", err)
			}

			return tx.UpdateSupplier(ctx, sup)
		}

		existing, err := tx.FindSupplierByName(ctx, sup.Name)
		switch {
		case err == nil:
			sup.ID = existing.ID
			return tx.UpdateSupplier(ctx, sup)
		case errors.Is(err, inventory.ErrNotFound):
			sup.ID = uuid.New()
			return tx.CreateSupplier(ctx, sup)
		default:
			return fmt.Errorf("finding supplier: %w", err)
		}
	})
	if err != nil {
		return nil, err
	}

	return sup, nil
}

func (s *Service) DeleteSupplier(ctx context.Context, id uuid.UUID) error {
	return s.unit(ctx, "delete supplier", func(tx inventory.Tx) error {
		sup, err := tx.GetSupplier(ctx, id)
		if err != nil {
			return err
		}

		n, err := tx.CountPurchaseOrdersBySupplier(ctx, id)
		if err != nil {
			return fmt.Errorf("counting purchase orders: %w", err)
		}

		if n > 0 {
			return inUse("supplier", sup.Name, n, "purchase order")
		}

		return tx.DeleteSupplier(ctx, id)
	})
}

func categoryNameFree(ctx context.Context, tx inventory.Tx, c *inventory.Category) error {
	other, err := tx.FindCategoryByName(ctx, c.Name)
	switch {
	case err == nil && other.ID != c.ID:
		return &inventory.ConflictError{Kind: "category", Key: c.Name, Reason: "already exists"}
	case err != nil && !errors.Is(err, inventory.ErrNotFound):
		return fmt.Errorf("finding category: %w", err)
	}

	return nil
}

func inUse(kind, name string, n int, by string) error {
	if n != 1 {
		by += "s"
	}

	return &inventory.ConflictError{Kind: kind, Key: name, Reason: fmt.Sprintf("in use by %d %s", n, by)}
}
