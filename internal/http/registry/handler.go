package registry

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/stockbook/internal/http/render"
	"github.com/MrJamesThe3rd/stockbook/internal/registry"
)

// Handler serves the category, customer and supplier collections.
type Handler struct {
	svc *registry.Service
}

func NewHandler(svc *registry.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) CategoryRoutes(r chi.Router) {
	r.Get("/", list(h.svc.ListCategories))
	r.Post("/", create(h.svc.CreateCategory))
	r.Put("/{id}", update(h.svc.UpdateCategory))
	r.Delete("/{id}", remove(h.svc.DeleteCategory))
}

func (h *Handler) CustomerRoutes(r chi.Router) {
	r.Get("/", list(h.svc.ListCustomers))
	r.Post("/", create(h.svc.CreateCustomer))
	r.Put("/{id}", update(h.svc.UpdateCustomer))
	r.Delete("/{id}", remove(h.svc.DeleteCustomer))
}

func (h *Handler) SupplierRoutes(r chi.Router) {
	r.Get("/", list(h.svc.ListSuppliers))
	r.Post("/", create(h.svc.SaveSupplier))
	r.Put("/{id}", update(func(ctx context.Context, id uuid.UUID, params registry.SupplierParams) (any, error) {
		params.ID = &id
		return h.svc.SaveSupplier(ctx, params)
	}))
	r.Delete("/{id}", remove(h.svc.DeleteSupplier))
}

func list[T any](fn func(context.Context) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := fn(r.Context())
		if err != nil {
			render.Error(w, r, err)
			return
		}

		render.JSON(w, http.StatusOK, items)
	}
}

func create[P, T any](fn func(context.Context, P) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params P
		if err := render.Decode(r, &params); err != nil {
			render.Error(w, r, err)
			return
		}

		item, err := fn(r.Context(), params)
		if err != nil {
			render.Error(w, r, err)
			return
		}

		render.JSON(w, http.StatusCreated, item)
	}
}

func update[P, T any](fn func(context.Context, uuid.UUID, P) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := render.ID(r)
		if err != nil {
			render.Error(w, r, err)
			return
		}

		var params P
		if err := render.Decode(r, &params); err != nil {
			render.Error(w, r, err)
			return
		}

		item, err := fn(r.Context(), id, params)
		if err != nil {
			render.Error(w, r, err)
			return
		}

		render.JSON(w, http.StatusOK, item)
	}
}

func remove(fn func(context.Context, uuid.UUID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := render.ID(r)
		if err != nil {
			render.Error(w, r, err)
			return
		}

		if err := fn(r.Context(), id); err != nil {
			render.Error(w, r, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
