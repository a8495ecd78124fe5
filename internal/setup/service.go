// Package setup prepares a store for first use.
package setup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/stockbook/internal/inventory"
)

// Default reference data seeded into empty tables. The local store receives
// the same values.
var (
	DefaultCategories = []string{"Smartphones", "Tablets", "Accessories", "Other"}
	DefaultCustomer   = inventory.Customer{Name: "Walk-in Customer"}
	DefaultSupplier   = inventory.Supplier{Name: "Default Supplier"}
)

type Service struct {
	repo inventory.Repository
}

func NewService(repo inventory.Repository) *Service {
	return &Service{repo: repo}
}

// Result reports what a run of Initialize created.
type Result struct {
	Categories int `json:"categories"`
	Customers  int `json:"customers"`
	Suppliers  int `json:"suppliers"`
}

// Initialize creates the schema and seeds each reference table only when it is
// empty, so running it again changes nothing.
func (s *Service) Initialize(ctx context.Context) (*Result, error) {
	if err := s.repo.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrating store: %w", err)
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	counts, err := tx.CountReferenceData(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting reference data: %w", err)
	}

	res := &Result{}

	if counts.Categories == 0 {
		for _, name := range DefaultCategories {
			if err := tx.CreateCategory(ctx, &inventory.Category{ID: uuid.New(), Name: name}); err != nil {
				return nil, fmt.Errorf("seeding category %q: %w", name, err)
			}

			res.Categories++
		}
	}

	if counts.Customers == 0 {
		c := DefaultCustomer
		c.ID = uuid.New()

		if err := tx.CreateCustomer(ctx, &c); err != nil {
			return nil, fmt.Errorf("seeding customer: %w", err)
		}

		res.Customers++
	}

	if counts.Suppliers == 0 {
		sup := DefaultSupplier
		sup.ID = uuid.New()

		if err := tx.CreateSupplier(ctx, &sup); err != nil {
			return nil, fmt.Errorf("seeding supplier: %w", err)
		}

		res.Suppliers++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit seed: %w", err)
	}

	slog.Info("store initialized",
		"categories", res.Categories,
		"customers", res.Customers,
		"suppliers", res.Suppliers,
	)

	return res, nil
}
