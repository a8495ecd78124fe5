package memory

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/stockbook/internal/inventory"
)

type tx struct {
	store *Store
	st    *state
	done  bool
}

func (t *tx) Commit() error {
	if t.done {
		return nil
	}

	t.done = true
	defer t.store.txSem.Release(1)

	return t.store.commit(t.st)
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}

	t.done = true
	t.store.txSem.Release(1)

	return nil
}

func (t *tx) LockProducts(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*inventory.Product, error) {
	out := make(map[uuid.UUID]*inventory.Product, len(ids))
	for _, id := range ids {
		if p, ok := t.st.products[id]; ok {
			out[id] = p.Clone()
		}
	}

	return out, nil
}

func (t *tx) FindIMEIs(_ context.Context, imeis []string, exclude uuid.UUID) ([]string, error) {
	var taken []string

	for _, imei := range imeis {
		if t.imeiOwner(imei, exclude) != uuid.Nil {
			taken = append(taken, imei)
		}
	}

	return taken, nil
}

func (t *tx) imeiOwner(imei string, exclude uuid.UUID) uuid.UUID {
	for id, p := range t.st.products {
		if id != exclude && p.IMEI != nil && *p.IMEI == imei {
			return id
		}
	}

	return uuid.Nil
}

func (t *tx) CreateProducts(_ context.Context, products []*inventory.Product) error {
	for _, p := range products {
		if _, exists := t.st.products[p.ID]; exists {
			return &inventory.ConflictError{Kind: "product", Key: p.ID.String(), Reason: "already exists"}
		}

		if p.IMEI != nil && t.imeiOwner(*p.IMEI, uuid.Nil) != uuid.Nil {
			return &inventory.ConflictError{Kind: "imei", Key: *p.IMEI, Reason: "already exists in inventory"}
		}

		t.st.products[p.ID] = p.Clone()
		t.st.productOrder = append(t.st.productOrder, p.ID)
	}

	return nil
}

func (t *tx) UpdateProduct(_ context.Context, p *inventory.Product) error {
	if _, ok := t.st.products[p.ID]; !ok {
		return inventory.NewNotFound("product", p.ID.String())
	}

	if p.IMEI != nil && t.imeiOwner(*p.IMEI, p.ID) != uuid.Nil {
		return &inventory.ConflictError{Kind: "imei", Key: *p.IMEI, Reason: "already exists in inventory"}
	}

	t.st.products[p.ID] = p.Clone()

	return nil
}

func (t *tx) DeleteProduct(_ context.Context, id uuid.UUID) error {
	if _, ok := t.st.products[id]; !ok {
		return inventory.NewNotFound("product", id.String())
	}

	delete(t.st.products, id)
	t.st.productOrder = slices.DeleteFunc(t.st.productOrder, func(pid uuid.UUID) bool { return pid == id })

	return nil
}

func (t *tx) CountProductsByCategory(_ context.Context, category string) (int, error) {
	n := 0

	for _, p := range t.st.products {
		if p.Category == category {
			n++
		}
	}

	return n, nil
}

func (t *tx) RenameProductCategory(_ context.Context, from, to string) error {
	for _, p := range t.st.products {
		if p.Category == from {
			p.Category = to
		}
	}

	return nil
}

func (t *tx) NextInvoiceSequence(context.Context) (int, error) {
	if t.st.invoiceSeq == 0 {
		t.st.invoiceSeq = len(t.st.invoices)
	}

	t.st.invoiceSeq++

	return t.st.invoiceSeq, nil
}

func (t *tx) CreateInvoice(_ context.Context, inv *inventory.Invoice) error {
	if _, ok := t.st.customers[inv.CustomerID]; !ok {
		return inventory.NewNotFound("customer", inv.CustomerID.String())
	}

	for _, existing := range t.st.invoices {
		if existing.InvoiceNumber == inv.InvoiceNumber {
			return &inventory.ConflictError{Kind: "invoice number", Key: inv.InvoiceNumber, Reason: "already issued"}
		}
	}

	t.st.invoices[inv.ID] = cloneInvoice(inv)

	return nil
}

func (t *tx) GetInvoice(_ context.Context, id uuid.UUID) (*inventory.Invoice, error) {
	return t.st.invoice(id)
}

func (t *tx) UpdateInvoiceCustomer(_ context.Context, id, customerID uuid.UUID, customerName string) error {
	inv, err := t.st.invoice(id)
	if err != nil {
		return err
	}

	inv.CustomerID = customerID
	inv.CustomerName = customerName
	t.st.invoices[id] = inv

	return nil
}

func (t *tx) CountInvoicesByCustomer(_ context.Context, customerID uuid.UUID) (int, error) {
	n := 0

	for _, inv := range t.st.invoices {
		if inv.CustomerID == customerID {
			n++
		}
	}

	return n, nil
}

func (t *tx) PurchaseOrderNumberExists(_ context.Context, poNumber string) (bool, error) {
	for _, po := range t.st.purchaseOrders {
		if po.PONumber == poNumber {
			return true, nil
		}
	}

	return false, nil
}

func (t *tx) CreatePurchaseOrder(ctx context.Context, po *inventory.PurchaseOrder) error {
	if _, ok := t.st.suppliers[po.SupplierID]; !ok {
		return inventory.NewNotFound("supplier", po.SupplierID.String())
	}

	exists, _ := t.PurchaseOrderNumberExists(ctx, po.PONumber)
	if exists {
		return &inventory.ConflictError{Kind: "purchase order", Key: po.PONumber, Reason: "number already used"}
	}

	c := *po
	c.ProductIDs = nil
	t.st.purchaseOrders[po.ID] = &c

	return nil
}

func (t *tx) SetPurchaseOrderTotal(_ context.Context, id uuid.UUID, total decimal.Decimal) error {
	return t.editPurchaseOrder(id, func(po *inventory.PurchaseOrder) { po.TotalCost = total })
}

func (t *tx) GetPurchaseOrder(_ context.Context, id uuid.UUID) (*inventory.PurchaseOrder, error) {
	return t.st.purchaseOrder(id)
}

func (t *tx) UpdatePurchaseOrderStatus(_ context.Context, id uuid.UUID, status inventory.OrderStatus) error {
	return t.editPurchaseOrder(id, func(po *inventory.PurchaseOrder) { po.Status = status })
}

func (t *tx) editPurchaseOrder(id uuid.UUID, edit func(*inventory.PurchaseOrder)) error {
	po, ok := t.st.purchaseOrders[id]
	if !ok {
		return inventory.NewNotFound("purchase order", id.String())
	}

	c := *po
	edit(&c)
	t.st.purchaseOrders[id] = &c

	return nil
}

func (t *tx) CountPurchaseOrdersBySupplier(_ context.Context, supplierID uuid.UUID) (int, error) {
	n := 0

	for _, po := range t.st.purchaseOrders {
		if po.SupplierID == supplierID {
			n++
		}
	}

	return n, nil
}

func (t *tx) GetCategory(_ context.Context, id uuid.UUID) (*inventory.Category, error) {
	c, ok := t.st.categories[id]
	if !ok {
		return nil, inventory.NewNotFound("category", id.String())
	}

	cp := *c

	return &cp, nil
}

func (t *tx) FindCategoryByName(_ context.Context, name string) (*inventory.Category, error) {
	for _, c := range t.st.categories {
		if c.Name == name {
			cp := *c
			return &cp, nil
		}
	}

	return nil, inventory.NewNotFound("category", name)
}

func (t *tx) CreateCategory(ctx context.Context, c *inventory.Category) error {
	if err := t.uniqueCategory(c); err != nil {
		return err
	}

	cp := *c
	t.st.categories[c.ID] = &cp

	return nil
}

func (t *tx) UpdateCategory(_ context.Context, c *inventory.Category) error {
	if _, ok := t.st.categories[c.ID]; !ok {
		return inventory.NewNotFound("category", c.ID.String())
	}

	if err := t.uniqueCategory(c); err != nil {
		return err
	}

	cp := *c
	t.st.categories[c.ID] = &cp

	return nil
}

func (t *tx) uniqueCategory(c *inventory.Category) error {
	for id, existing := range t.st.categories {
		if id != c.ID && existing.Name == c.Name {
			return &inventory.ConflictError{Kind: "category", Key: c.Name, Reason: "already exists"}
		}
	}

	return nil
}

func (t *tx) DeleteCategory(_ context.Context, id uuid.UUID) error {
	if _, ok := t.st.categories[id]; !ok {
		return inventory.NewNotFound("category", id.String())
	}

	delete(t.st.categories, id)

	return nil
}

func (t *tx) GetCustomer(_ context.Context, id uuid.UUID) (*inventory.Customer, error) {
	c, ok := t.st.customers[id]
	if !ok {
		return nil, inventory.NewNotFound("customer", id.String())
	}

	cp := *c

	return &cp, nil
}

func (t *tx) CreateCustomer(_ context.Context, c *inventory.Customer) error {
	cp := *c
	t.st.customers[c.ID] = &cp

	return nil
}

func (t *tx) UpdateCustomer(_ context.Context, c *inventory.Customer) error {
	if _, ok := t.st.customers[c.ID]; !ok {
		return inventory.NewNotFound("customer", c.ID.String())
	}

	cp := *c
	t.st.customers[c.ID] = &cp

	return nil
}

func (t *tx) DeleteCustomer(_ context.Context, id uuid.UUID) error {
	if _, ok := t.st.customers[id]; !ok {
		return inventory.NewNotFound("customer", id.String())
	}

	delete(t.st.customers, id)

	return nil
}

func (t *tx) GetSupplier(_ context.Context, id uuid.UUID) (*inventory.Supplier, error) {
	s, ok := t.st.suppliers[id]
	if !ok {
		return nil, inventory.NewNotFound("supplier", id.String())
	}

	cp := *s

	return &cp, nil
}

func (t *tx) FindSupplierByName(_ context.Context, name string) (*inventory.Supplier, error) {
	for _, s := range t.st.suppliers {
		if s.Name == name {
			cp := *s
			return &cp, nil
		}
	}

	return nil, inventory.NewNotFound("supplier", name)
}

func (t *tx) CreateSupplier(_ context.Context, s *inventory.Supplier) error {
	if err := t.uniqueSupplier(s); err != nil {
		return err
	}

	cp := *s
	t.st.suppliers[s.ID] = &cp

	return nil
}

func (t *tx) UpdateSupplier(_ context.Context, s *inventory.Supplier) error {
	if _, ok := t.st.suppliers[s.ID]; !ok {
		return inventory.NewNotFound("supplier", s.ID.String())
	}

	if err := t.uniqueSupplier(s); err != nil {
		return err
	}

	cp := *s
	t.st.suppliers[s.ID] = &cp

	return nil
}

func (t *tx) uniqueSupplier(s *inventory.Supplier) error {
	for id, existing := range t.st.suppliers {
		if id != s.ID && existing.Name == s.Name {
			return &inventory.ConflictError{Kind: "supplier", Key: s.Name, Reason: "already exists"}
		}
	}

	return nil
}

func (t *tx) DeleteSupplier(_ context.Context, id uuid.UUID) error {
	if _, ok := t.st.suppliers[id]; !ok {
		return inventory.NewNotFound("supplier", id.String())
	}

	delete(t.st.suppliers, id)

	return nil
}

func (t *tx) CountReferenceData(context.Context) (inventory.ReferenceCounts, error) {
	return inventory.ReferenceCounts{
		Categories: len(t.st.categories),
		Customers:  len(t.st.customers),
		Suppliers:  len(t.st.suppliers),
	}, nil
}
