package memory

import (
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/stockbook/internal/inventory"
)

type state struct {
	products       map[uuid.UUID]*inventory.Product
	productOrder   []uuid.UUID
	invoices       map[uuid.UUID]*inventory.Invoice
	purchaseOrders map[uuid.UUID]*inventory.PurchaseOrder
	categories     map[uuid.UUID]*inventory.Category
	customers      map[uuid.UUID]*inventory.Customer
	suppliers      map[uuid.UUID]*inventory.Supplier
	invoiceSeq     int
}

func newState() *state {
	return &state{
		products:       make(map[uuid.UUID]*inventory.Product),
		invoices:       make(map[uuid.UUID]*inventory.Invoice),
		purchaseOrders: make(map[uuid.UUID]*inventory.PurchaseOrder),
		categories:     make(map[uuid.UUID]*inventory.Category),
		customers:      make(map[uuid.UUID]*inventory.Customer),
		suppliers:      make(map[uuid.UUID]*inventory.Supplier),
	}
}

// clone copies the containers and every mutable record. Registry records are
// replaced wholesale on update, so copying the maps of pointers is enough there.
func (st *state) clone() *state {
	c := &state{
		products:       make(map[uuid.UUID]*inventory.Product, len(st.products)),
		productOrder:   slices.Clone(st.productOrder),
		invoices:       maps.Clone(st.invoices),
		purchaseOrders: maps.Clone(st.purchaseOrders),
		categories:     maps.Clone(st.categories),
		customers:      maps.Clone(st.customers),
		suppliers:      maps.Clone(st.suppliers),
		invoiceSeq:     st.invoiceSeq,
	}

	for id, p := range st.products {
		c.products[id] = p.Clone()
	}

	return c
}

func (st *state) invoice(id uuid.UUID) (*inventory.Invoice, error) {
	inv, ok := st.invoices[id]
	if !ok {
		return nil, inventory.NewNotFound("invoice", id.String())
	}

	return cloneInvoice(inv), nil
}

// purchaseOrder materializes the product ids from the products it owns.
func (st *state) purchaseOrder(id uuid.UUID) (*inventory.PurchaseOrder, error) {
	po, ok := st.purchaseOrders[id]
	if !ok {
		return nil, inventory.NewNotFound("purchase order", id.String())
	}

	c := *po
	c.ProductIDs = []uuid.UUID{}

	for _, pid := range st.productOrder {
		p := st.products[pid]
		if p.PurchaseOrderID != nil && *p.PurchaseOrderID == id {
			c.ProductIDs = append(c.ProductIDs, pid)
		}
	}

	return &c, nil
}

func cloneInvoice(inv *inventory.Invoice) *inventory.Invoice {
	c := *inv
	c.Items = slices.Clone(inv.Items)

	return &c
}

// snapshot is the on-disk shape: plain arrays of the entity records.
type snapshot struct {
	Products        []*inventory.Product       `json:"products"`
	Invoices        []*inventory.Invoice       `json:"invoices"`
	PurchaseOrders  []*inventory.PurchaseOrder `json:"purchaseOrders"`
	Categories      []*inventory.Category      `json:"categories"`
	Customers       []*inventory.Customer      `json:"customers"`
	Suppliers       []*inventory.Supplier      `json:"suppliers"`
	InvoiceSequence int                        `json:"invoiceSequence"`
}

func (st *state) toSnapshot() snapshot {
	snap := snapshot{
		Products:        make([]*inventory.Product, 0, len(st.productOrder)),
		Invoices:        slices.Collect(maps.Values(st.invoices)),
		PurchaseOrders:  make([]*inventory.PurchaseOrder, 0, len(st.purchaseOrders)),
		Categories:      slices.Collect(maps.Values(st.categories)),
		Customers:       slices.Collect(maps.Values(st.customers)),
		Suppliers:       slices.Collect(maps.Values(st.suppliers)),
		InvoiceSequence: st.invoiceSeq,
	}

	for _, id := range st.productOrder {
		snap.Products = append(snap.Products, st.products[id])
	}

	for id := range st.purchaseOrders {
		po, _ := st.purchaseOrder(id)
		snap.PurchaseOrders = append(snap.PurchaseOrders, po)
	}

	return snap
}

func (snap snapshot) toState() *state {
	st := newState()

	for _, p := range snap.Products {
		st.products[p.ID] = p
		st.productOrder = append(st.productOrder, p.ID)
	}

	for _, inv := range snap.Invoices {
		st.invoices[inv.ID] = inv
	}

	for _, po := range snap.PurchaseOrders {
		po.ProductIDs = nil
		st.purchaseOrders[po.ID] = po
	}

	for _, c := range snap.Categories {
		st.categories[c.ID] = c
	}

	for _, c := range snap.Customers {
		st.customers[c.ID] = c
	}

	for _, s := range snap.Suppliers {
		st.suppliers[s.ID] = s
	}

	st.invoiceSeq = snap.InvoiceSequence

	return st
}
