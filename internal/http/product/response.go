package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/stockbook/internal/http/render"
	"github.com/MrJamesThe3rd/stockbook/internal/inventory"
)

type Response struct {
	ID              uuid.UUID              `json:"id"`
	ProductName     string                 `json:"productName"`
	Category        string                 `json:"category"`
	PurchaseDate    render.Date            `json:"purchaseDate"`
	PurchasePrice   decimal.Decimal        `json:"purchasePrice"`
	SellingPrice    decimal.Decimal        `json:"sellingPrice"`
	Status          inventory.Status       `json:"status"`
	TrackingType    inventory.TrackingType `json:"trackingType"`
	IMEI            *string                `json:"imei,omitempty"`
	Quantity        int                    `json:"quantity"`
	Notes           string                 `json:"notes,omitempty"`
	InvoiceID       *uuid.UUID             `json:"invoiceId,omitempty"`
	PurchaseOrderID *uuid.UUID             `json:"purchaseOrderId,omitempty"`
	CustomerName    *string                `json:"customerName,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       *time.Time             `json:"updatedAt,omitempty"`
}

// ToResponse is shared with the purchase order handler, which returns the
// generated products.
func ToResponse(p *inventory.Product) Response {
	return Response{
		ID:              p.ID,
		ProductName:     p.ProductName,
		Category:        p.Category,
		PurchaseDate:    render.Date{Time: p.PurchaseDate},
		PurchasePrice:   p.PurchasePrice,
		SellingPrice:    p.SellingPrice,
		Status:          p.Status,
		TrackingType:    p.TrackingType,
		IMEI:            p.IMEI,
		Quantity:        p.Quantity,
		Notes:           p.Notes,
		InvoiceID:       p.InvoiceID,
		PurchaseOrderID: p.PurchaseOrderID,
		CustomerName:    p.CustomerName,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func ToResponseList(products []*inventory.Product) []Response {
	resp := make([]Response, len(products))
	for i, p := range products {
		resp[i] = ToResponse(p)
	}

	return resp
}
