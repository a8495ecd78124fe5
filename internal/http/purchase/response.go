package purchase

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	productHandler "github.com/MrJamesThe3rd/stockbook/internal/http/product"
	"github.com/MrJamesThe3rd/stockbook/internal/inventory"
)

type purchaseOrderResponse struct {
	ID           uuid.UUID             `json:"id"`
	PONumber     string                `json:"poNumber"`
	SupplierID   uuid.UUID             `json:"supplierId"`
	SupplierName string                `json:"supplierName"`
	IssueDate    time.Time             `json:"issueDate"`
	Status       inventory.OrderStatus `json:"status"`
	Notes        string                `json:"notes,omitempty"`
	TotalCost    decimal.Decimal       `json:"totalCost"`
	ProductIDs   []uuid.UUID           `json:"productIds"`
}

type createResponse struct {
	PurchaseOrder purchaseOrderResponse     `json:"purchaseOrder"`
	Products      []productHandler.Response `json:"products"`
}

func toResponse(po *inventory.PurchaseOrder) purchaseOrderResponse {
	ids := po.ProductIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}

	return purchaseOrderResponse{
		ID:           po.ID,
		PONumber:     po.PONumber,
		SupplierID:   po.SupplierID,
		SupplierName: po.SupplierName,
		IssueDate:    po.IssueDate,
		Status:       po.Status,
		Notes:        po.Notes,
		TotalCost:    po.TotalCost,
		ProductIDs:   ids,
	}
}

func toResponseList(orders []*inventory.PurchaseOrder) []purchaseOrderResponse {
	resp := make([]purchaseOrderResponse, len(orders))
	for i, po := range orders {
		resp[i] = toResponse(po)
	}

	return resp
}
