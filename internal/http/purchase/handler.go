package purchase

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	productHandler "github.com/MrJamesThe3rd/stockbook/internal/http/product"
	"github.com/MrJamesThe3rd/stockbook/internal/http/render"
	"github.com/MrJamesThe3rd/stockbook/internal/inventory"
	"github.com/MrJamesThe3rd/stockbook/internal/purchase"
)

type Handler struct {
	svc *purchase.Service
}

func NewHandler(svc *purchase.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}/status", h.updateStatus)
}

type productInfoRequest struct {
	ProductName   string          `json:"productName"`
	Category      string          `json:"category"`
	PurchaseDate  render.Date     `json:"purchaseDate"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	SellingPrice  decimal.Decimal `json:"sellingPrice"`
	Notes         string          `json:"notes"`
}

type batchRequest struct {
	ProductInfo productInfoRequest        `json:"productInfo"`
	Details     inventory.TrackingDetails `json:"details"`
}

type createPurchaseOrderRequest struct {
	SupplierID uuid.UUID             `json:"supplierId"`
	PONumber   string                `json:"poNumber"`
	Status     inventory.OrderStatus `json:"status"`
	Notes      string                `json:"notes"`
	Batches    []batchRequest        `json:"batches"`
}

func (req createPurchaseOrderRequest) toParams() purchase.CreateParams {
	params := purchase.CreateParams{
		SupplierID: req.SupplierID,
		PONumber:   req.PONumber,
		Status:     req.Status,
		Notes:      req.Notes,
		Batches:    make([]inventory.RestockBatch, len(req.Batches)),
	}

	for i, b := range req.Batches {
		params.Batches[i] = inventory.RestockBatch{
			ProductInfo: inventory.NewProductInfo{
				ProductName:   b.ProductInfo.ProductName,
				Category:      b.ProductInfo.Category,
				PurchaseDate:  b.ProductInfo.PurchaseDate.Time,
				PurchasePrice: b.ProductInfo.PurchasePrice,
				SellingPrice:  b.ProductInfo.SellingPrice,
				Notes:         b.ProductInfo.Notes,
			},
			Details: b.Details,
		}
	}

	return params
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createPurchaseOrderRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	res, err := h.svc.Create(r.Context(), req.toParams())
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, createResponse{
		PurchaseOrder: toResponse(res.PurchaseOrder),
		Products:      productHandler.ToResponseList(res.Products),
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.List(r.Context())
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponseList(orders))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	po, err := h.svc.Get(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(po))
}

type updateStatusRequest struct {
	Status inventory.OrderStatus `json:"status"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	var req updateStatusRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	po, err := h.svc.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(po))
}
