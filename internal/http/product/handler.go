package product

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/stockbook/internal/http/render"
	"github.com/MrJamesThe3rd/stockbook/internal/inventory"
	"github.com/MrJamesThe3rd/stockbook/internal/product"
)

type Handler struct {
	svc *product.Service
}

func NewHandler(svc *product.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.add)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/archive", h.archive)
	r.Post("/{id}/unarchive", h.unarchive)
}

type productRequest struct {
	ProductName   string                 `json:"productName"`
	Category      string                 `json:"category"`
	PurchaseDate  render.Date            `json:"purchaseDate"`
	PurchasePrice decimal.Decimal        `json:"purchasePrice"`
	SellingPrice  decimal.Decimal        `json:"sellingPrice"`
	Status        inventory.Status       `json:"status"`
	TrackingType  inventory.TrackingType `json:"trackingType"`
	IMEI          *string                `json:"imei"`
	Quantity      int                    `json:"quantity"`
	Notes         string                 `json:"notes"`
	CustomerName  *string                `json:"customerName"`
}

func (req productRequest) toProduct(id uuid.UUID) *inventory.Product {
	return &inventory.Product{
		ID:            id,
		ProductName:   req.ProductName,
		Category:      req.Category,
		PurchaseDate:  req.PurchaseDate.Time,
		PurchasePrice: req.PurchasePrice,
		SellingPrice:  req.SellingPrice,
		Status:        req.Status,
		TrackingType:  req.TrackingType,
		IMEI:          req.IMEI,
		Quantity:      req.Quantity,
		Notes:         req.Notes,
		CustomerName:  req.CustomerName,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := inventory.ProductFilter{Category: q.Get("category")}

	if s := q.Get("status"); s != "" {
		status := inventory.Status(s)
		if !status.Valid() {
			render.Error(w, r, &inventory.ValidationError{Field: "status", Reason: "must be one of: Available Sold Archived"})
			return
		}

		filter.Status = &status
	}

	if s := q.Get("trackingType"); s != "" {
		tracking := inventory.TrackingType(s)
		if !tracking.Valid() {
			render.Error(w, r, &inventory.ValidationError{Field: "trackingType", Reason: "must be one of: imei quantity"})
			return
		}

		filter.TrackingType = &tracking
	}

	if s := q.Get("available"); s != "" {
		available, err := strconv.ParseBool(s)
		if err != nil {
			render.Error(w, r, &inventory.ValidationError{Field: "available", Reason: "must be a boolean"})
			return
		}

		filter.AvailableOnly = available
	}

	if s := q.Get("purchaseOrderId"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			render.Error(w, r, &inventory.ValidationError{Field: "purchaseOrderId", Reason: "must be a uuid"})
			return
		}

		filter.PurchaseOrderID = &id
	}

	products, err := h.svc.List(r.Context(), filter)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, ToResponseList(products))
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	var req []productRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	products := make([]*inventory.Product, len(req))
	for i, p := range req {
		products[i] = p.toProduct(uuid.Nil)
	}

	created, err := h.svc.Add(r.Context(), products)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, ToResponseList(created))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, ToResponse(p))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	var req productRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	p, err := h.svc.Update(r.Context(), req.toProduct(id))
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, ToResponse(p))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		render.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) archive(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Archive)
}

func (h *Handler) unarchive(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Unarchive)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, apply func(context.Context, uuid.UUID) (*inventory.Product, error)) {
	id, err := render.ID(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	p, err := apply(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, ToResponse(p))
}
