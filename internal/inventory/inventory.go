package inventory

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// Status represents the lifecycle state of a product row.
type Status string

const (
	StatusAvailable Status = "Available"
	StatusSold      Status = "Sold"
	StatusArchived  Status = "Archived"
)

func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusSold, StatusArchived:
		return true
	}

	return false
}

// TrackingType tells whether a product is serialized by IMEI or counted in bulk.
type TrackingType string

const (
	TrackingIMEI     TrackingType = "imei"
	TrackingQuantity TrackingType = "quantity"
)

func (t TrackingType) Valid() bool {
	return t == TrackingIMEI || t == TrackingQuantity
}

// OrderStatus represents the lifecycle state of a purchase order.
type OrderStatus string

const (
	OrderDraft     OrderStatus = "Draft"
	OrderOrdered   OrderStatus = "Ordered"
	OrderCompleted OrderStatus = "Completed"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderDraft, OrderOrdered, OrderCompleted:
		return true
	}

	return false
}

// rank orders statuses so transitions can only move forward.
func (s OrderStatus) rank() int {
	switch s {
	case OrderDraft:
		return 0
	case OrderOrdered:
		return 1
	case OrderCompleted:
		return 2
	}

	return -1
}

// CanTransitionTo reports whether a purchase order may move from s to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return next.Valid() && next.rank() >= s.rank()
}

// Product is one inventory line.
type Product struct {
	ID              uuid.UUID       `json:"id"`
	ProductName     string          `json:"productName"`
	Category        string          `json:"category"`
	PurchaseDate    time.Time       `json:"purchaseDate"`
	PurchasePrice   decimal.Decimal `json:"purchasePrice"`
	SellingPrice    decimal.Decimal `json:"sellingPrice"`
	Status          Status          `json:"status"`
	TrackingType    TrackingType    `json:"trackingType"`
	IMEI            *string         `json:"imei"`
	Quantity        int             `json:"quantity"`
	Notes           string          `json:"notes,omitempty"`
	InvoiceID       *uuid.UUID      `json:"invoiceId,omitempty"`
	PurchaseOrderID *uuid.UUID      `json:"purchaseOrderId,omitempty"`
	CustomerName    *string         `json:"customerName,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       *time.Time      `json:"updatedAt,omitempty"`
}

// Sellable reports whether the product can appear on a new invoice.
func (p *Product) Sellable() bool {
	return p.Status == StatusAvailable && p.Quantity > 0
}

// Referenced reports whether an invoice or purchase order points at the product.
func (p *Product) Referenced() bool {
	return p.InvoiceID != nil || p.PurchaseOrderID != nil
}

// Clone returns a deep copy so callers can stage changes without aliasing.
func (p *Product) Clone() *Product {
	c := *p
	c.IMEI = clonePtr(p.IMEI)
	c.InvoiceID = clonePtr(p.InvoiceID)
	c.PurchaseOrderID = clonePtr(p.PurchaseOrderID)
	c.CustomerName = clonePtr(p.CustomerName)
	c.UpdatedAt = clonePtr(p.UpdatedAt)

	return &c
}

type Customer struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Phone string    `json:"phone"`
}

type Supplier struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email,omitempty"`
	Phone string    `json:"phone,omitempty"`
}

type Category struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Invoice is an issued sale. Customer and product fields are snapshots taken
// at issue time and do not follow later edits of the source records.
type Invoice struct {
	ID            uuid.UUID       `json:"id"`
	InvoiceNumber string          `json:"invoiceNumber"`
	CustomerID    uuid.UUID       `json:"customerId"`
	CustomerName  string          `json:"customerName"`
	IssueDate     time.Time       `json:"issueDate"`
	Items         []InvoiceItem   `json:"items"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
}

type InvoiceItem struct {
	ProductID    uuid.UUID       `json:"productId"`
	ProductName  string          `json:"productName"`
	IMEI         *string         `json:"imei,omitempty"`
	Quantity     int             `json:"quantity"`
	SellingPrice decimal.Decimal `json:"sellingPrice"`
}

// Subtotal is the unit price times quantity.
func (i InvoiceItem) Subtotal() decimal.Decimal {
	return i.SellingPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Total sums the item subtotals.
func (inv *Invoice) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range inv.Items {
		total = total.Add(item.Subtotal())
	}

	return total
}

type PurchaseOrder struct {
	ID           uuid.UUID       `json:"id"`
	PONumber     string          `json:"poNumber"`
	SupplierID   uuid.UUID       `json:"supplierId"`
	SupplierName string          `json:"supplierName"`
	IssueDate    time.Time       `json:"issueDate"`
	Status       OrderStatus     `json:"status"`
	Notes        string          `json:"notes,omitempty"`
	TotalCost    decimal.Decimal `json:"totalCost"`
	ProductIDs   []uuid.UUID     `json:"productIds"`
}

// Storage limits shared by every adapter: quantities are 32-bit integers and
// money has at most 12 integer digits.
const MaxQuantity = math.MaxInt32

// MaxMoney is the exclusive upper bound of any amount, total included.
var MaxMoney = decimal.New(1, 12)

// checkMoney reports an amount outside [0, MaxMoney) as a validation error.
func checkMoney(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return &ValidationError{Field: field, Reason: "must be greater than or equal to 0"}
	}

	if d.GreaterThanOrEqual(MaxMoney) {
		return &ValidationError{Field: field, Reason: "must be less than " + MaxMoney.String()}
	}

	return nil
}

// CheckTotal rejects a computed total that cannot be stored.
func CheckTotal(field string, total decimal.Decimal) error {
	return checkMoney(field, total)
}

// FormatInvoiceNumber renders the human readable invoice number, e.g. INV-2025-0004.
func FormatInvoiceNumber(year, seq int) string {
	return fmt.Sprintf("INV-%d-%04d", year, seq)
}

// NormalizeName trims and NFC-normalizes a name or serial so that visually
// identical strings compare equal in uniqueness checks.
func NormalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// NormalizeMoney rounds an amount to currency precision.
func NormalizeMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}

	v := *p

	return &v
}
