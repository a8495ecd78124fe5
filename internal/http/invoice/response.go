package invoice

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/stockbook/internal/inventory"
)

type invoiceResponse struct {
	ID            uuid.UUID       `json:"id"`
	InvoiceNumber string          `json:"invoiceNumber"`
	CustomerID    uuid.UUID       `json:"customerId"`
	CustomerName  string          `json:"customerName"`
	IssueDate     time.Time       `json:"issueDate"`
	Items         []itemResponse  `json:"items"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
}

type itemResponse struct {
	ProductID    uuid.UUID       `json:"productId"`
	ProductName  string          `json:"productName"`
	IMEI         *string         `json:"imei,omitempty"`
	Quantity     int             `json:"quantity"`
	SellingPrice decimal.Decimal `json:"sellingPrice"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

func toResponse(inv *inventory.Invoice) invoiceResponse {
	resp := invoiceResponse{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		CustomerID:    inv.CustomerID,
		CustomerName:  inv.CustomerName,
		IssueDate:     inv.IssueDate,
		Items:         make([]itemResponse, len(inv.Items)),
		TotalAmount:   inv.TotalAmount,
	}

	for i, item := range inv.Items {
		resp.Items[i] = itemResponse{
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			IMEI:         item.IMEI,
			Quantity:     item.Quantity,
			SellingPrice: item.SellingPrice,
			Subtotal:     item.Subtotal(),
		}
	}

	return resp
}

func toResponseList(invoices []*inventory.Invoice) []invoiceResponse {
	resp := make([]invoiceResponse, len(invoices))
	for i, inv := range invoices {
		resp[i] = toResponse(inv)
	}

	return resp
}
