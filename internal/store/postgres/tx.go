package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/stockbook/internal/inventory"
)

type tx struct {
	tx *sql.Tx
}

func (t *tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return translate("committing", err)
	}

	return nil
}

func (t *tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}

	return nil
}

// LockProducts takes row locks in id order so that concurrent sales touching
// overlapping products cannot deadlock.
func (t *tx) LockProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*inventory.Product, error) {
	out := make(map[uuid.UUID]*inventory.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = ANY($1::uuid[])
		ORDER BY id
		FOR UPDATE`, uuidStrings(ids))
	if err != nil {
		return nil, translate("locking products", err)
	}

	products, err := scanProducts(rows)
	if err != nil {
		return nil, err
	}

	for _, p := range products {
		out[p.ID] = p
	}

	return out, nil
}

func (t *tx) FindIMEIs(ctx context.Context, imeis []string, exclude uuid.UUID) ([]string, error) {
	if len(imeis) == 0 {
		return nil, nil
	}

	rows, err := t.tx.QueryContext(ctx, `
		SELECT imei FROM products
		WHERE imei = ANY($1::text[]) AND id <> $2`, imeis, exclude)
	if err != nil {
		return nil, translate("finding imeis", err)
	}
	defer rows.Close()

	var taken []string

	for rows.Next() {
		var imei string
		if err := rows.Scan(&imei); err != nil {
			return nil, fmt.Errorf("scanning imei: %w", err)
		}

		taken = append(taken, imei)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating imei rows: %w", err)
	}

	slices.Sort(taken)

	return taken, nil
}

func (t *tx) CreateProducts(ctx context.Context, products []*inventory.Product) error {
	query := `
		INSERT INTO products (
			id, product_name, category, purchase_date, purchase_price, selling_price, status,
			tracking_type, imei, quantity, notes, invoice_id, purchase_order_id, customer_name,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	for _, p := range products {
		_, err := t.tx.ExecContext(ctx, query,
			p.ID, p.ProductName, p.Category, p.PurchaseDate, p.PurchasePrice, p.SellingPrice, string(p.Status),
			string(p.TrackingType), p.IMEI, p.Quantity, p.Notes, p.InvoiceID, p.PurchaseOrderID, p.CustomerName,
			p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			return translate("creating product", err)
		}
	}

	return nil
}

func (t *tx) UpdateProduct(ctx context.Context, p *inventory.Product) error {
	query := `
		UPDATE products
		SET product_name = $1, category = $2, purchase_date = $3, purchase_price = $4, selling_price = $5,
			status = $6, tracking_type = $7, imei = $8, quantity = $9, notes = $10, invoice_id = $11,
			purchase_order_id = $12, customer_name = $13, updated_at = $14
		WHERE id = $15
	`

	res, err := t.tx.ExecContext(ctx, query,
		p.ProductName, p.Category, p.PurchaseDate, p.PurchasePrice, p.SellingPrice,
		string(p.Status), string(p.TrackingType), p.IMEI, p.Quantity, p.Notes, p.InvoiceID,
		p.PurchaseOrderID, p.CustomerName, p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return translate("updating product", err)
	}

	return expectRow(res, "product", p.ID)
}

func (t *tx) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return translate("deleting product", err)
	}

	return expectRow(res, "product", id)
}

func (t *tx) CountProductsByCategory(ctx context.Context, category string) (int, error) {
	return t.count(ctx, "counting products by category", `SELECT COUNT(*) FROM products WHERE category = $1`, category)
}

func (t *tx) RenameProductCategory(ctx context.Context, from, to string) error {
	if _, err := t.tx.ExecContext(ctx, `UPDATE products SET category = $1 WHERE category = $2`, to, from); err != nil {
		return translate("renaming product category", err)
	}

	return nil
}

// NextInvoiceSequence seeds the counter from the invoice count on first use
// and increments it afterwards. The row lock taken by the upsert serializes
// concurrent allocations until the unit of work ends.
func (t *tx) NextInvoiceSequence(ctx context.Context) (int, error) {
	query := `
		INSERT INTO sequences (name, value)
		VALUES ('invoice', (SELECT COUNT(*) FROM invoices) + 1)
		ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1
		RETURNING value
	`

	var seq int
	if err := t.tx.QueryRowContext(ctx, query).Scan(&seq); err != nil {
		return 0, translate("allocating invoice number", err)
	}

	return seq, nil
}

func (t *tx) CreateInvoice(ctx context.Context, inv *inventory.Invoice) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO invoices (id, invoice_number, customer_id, customer_name, issue_date, total_amount)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		inv.ID, inv.InvoiceNumber, inv.CustomerID, inv.CustomerName, inv.IssueDate, inv.TotalAmount,
	)
	if err != nil {
		return translate("creating invoice", err)
	}

	itemQuery := `
		INSERT INTO invoice_items (invoice_id, position, product_id, product_name, imei, quantity, selling_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for i, item := range inv.Items {
		_, err := t.tx.ExecContext(ctx, itemQuery,
			inv.ID, i, item.ProductID, item.ProductName, item.IMEI, item.Quantity, item.SellingPrice,
		)
		if err != nil {
			return translate("creating invoice item", err)
		}
	}

	return nil
}

func (t *tx) GetInvoice(ctx context.Context, id uuid.UUID) (*inventory.Invoice, error) {
	return getInvoice(ctx, t.tx, id)
}

func (t *tx) UpdateInvoiceCustomer(ctx context.Context, id, customerID uuid.UUID, customerName string) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE invoices SET customer_id = $1, customer_name = $2 WHERE id = $3`,
		customerID, customerName, id,
	)
	if err != nil {
		return translate("updating invoice customer", err)
	}

	return expectRow(res, "invoice", id)
}

func (t *tx) CountInvoicesByCustomer(ctx context.Context, customerID uuid.UUID) (int, error) {
	return t.count(ctx, "counting invoices by customer", `SELECT COUNT(*) FROM invoices WHERE customer_id = $1`, customerID)
}

func (t *tx) PurchaseOrderNumberExists(ctx context.Context, poNumber string) (bool, error) {
	n, err := t.count(ctx, "checking purchase order number", `SELECT COUNT(*) FROM purchase_orders WHERE po_number = $1`, poNumber)
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

func (t *tx) CreatePurchaseOrder(ctx context.Context, po *inventory.PurchaseOrder) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO purchase_orders (id, po_number, supplier_id, supplier_name, issue_date, status, notes, total_cost)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		po.ID, po.PONumber, po.SupplierID, po.SupplierName, po.IssueDate, string(po.Status), po.Notes, po.TotalCost,
	)
	if err != nil {
		return translate("creating purchase order", err)
	}

	return nil
}

func (t *tx) SetPurchaseOrderTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE purchase_orders SET total_cost = $1 WHERE id = $2`, total, id)
	if err != nil {
		return translate("setting purchase order total", err)
	}

	return expectRow(res, "purchase order", id)
}

func (t *tx) GetPurchaseOrder(ctx context.Context, id uuid.UUID) (*inventory.PurchaseOrder, error) {
	return getPurchaseOrder(ctx, t.tx, id)
}

func (t *tx) UpdatePurchaseOrderStatus(ctx context.Context, id uuid.UUID, status inventory.OrderStatus) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE purchase_orders SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return translate("updating purchase order status", err)
	}

	return expectRow(res, "purchase order", id)
}

func (t *tx) CountPurchaseOrdersBySupplier(ctx context.Context, supplierID uuid.UUID) (int, error) {
	return t.count(ctx, "counting purchase orders by supplier", `SELECT COUNT(*) FROM purchase_orders WHERE supplier_id = $1`, supplierID)
}

func (t *tx) GetCategory(ctx context.Context, id uuid.UUID) (*inventory.Category, error) {
	var c inventory.Category

	err := t.tx.QueryRowContext(ctx, `SELECT id, name FROM categories WHERE id = $1 FOR UPDATE`, id).Scan(&c.ID, &c.Name)
	if err != nil {
		return nil, rowError("getting category", "category", id.String(), err)
	}

	return &c, nil
}

func (t *tx) FindCategoryByName(ctx context.Context, name string) (*inventory.Category, error) {
	var c inventory.Category

	err := t.tx.QueryRowContext(ctx, `SELECT id, name FROM categories WHERE name = $1 FOR SHARE`, name).Scan(&c.ID, &c.Name)
	if err != nil {
		return nil, rowError("finding category", "category", name, err)
	}

	return &c, nil
}

func (t *tx) CreateCategory(ctx context.Context, c *inventory.Category) error {
	if _, err := t.tx.ExecContext(ctx, `INSERT INTO categories (id, name) VALUES ($1, $2)`, c.ID, c.Name); err != nil {
		return translate("creating category", err)
	}

	return nil
}

func (t *tx) UpdateCategory(ctx context.Context, c *inventory.Category) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE categories SET name = $1 WHERE id = $2`, c.Name, c.ID)
	if err != nil {
		return translate("updating category", err)
	}

	return expectRow(res, "category", c.ID)
}

func (t *tx) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return translate("deleting category", err)
	}

	return expectRow(res, "category", id)
}

func (t *tx) GetCustomer(ctx context.Context, id uuid.UUID) (*inventory.Customer, error) {
	var c inventory.Customer

	err := t.tx.QueryRowContext(ctx, `SELECT id, name, phone FROM customers WHERE id = $1 FOR SHARE`, id).Scan(&c.ID, &c.Name, &c.Phone)
	if err != nil {
		return nil, rowError("getting customer", "customer", id.String(), err)
	}

	return &c, nil
}

func (t *tx) CreateCustomer(ctx context.Context, c *inventory.Customer) error {
	if _, err := t.tx.ExecContext(ctx, `INSERT INTO customers (id, name, phone) VALUES ($1, $2, $3)`, c.ID, c.Name, c.Phone); err != nil {
		return translate("creating customer", err)
	}

	return nil
}

func (t *tx) UpdateCustomer(ctx context.Context, c *inventory.Customer) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE customers SET name = $1, phone = $2 WHERE id = $3`, c.Name, c.Phone, c.ID)
	if err != nil {
		return translate("updating customer", err)
	}

	return expectRow(res, "customer", c.ID)
}

func (t *tx) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return translate("deleting customer", err)
	}

	return expectRow(res, "customer", id)
}

func (t *tx) GetSupplier(ctx context.Context, id uuid.UUID) (*inventory.Supplier, error) {
	var s inventory.Supplier

	err := t.tx.QueryRowContext(ctx, `SELECT id, name, email, phone FROM suppliers WHERE id = $1 FOR SHARE`, id).
		Scan(&s.ID, &s.Name, &s.Email, &s.Phone)
	if err != nil {
		return nil, rowError("getting supplier", "supplier", id.String(), err)
	}

	return &s, nil
}

func (t *tx) FindSupplierByName(ctx context.Context, name string) (*inventory.Supplier, error) {
	var s inventory.Supplier

	err := t.tx.QueryRowContext(ctx, `SELECT id, name, email, phone FROM suppliers WHERE name = $1 FOR UPDATE`, name).
		Scan(&s.ID, &s.Name, &s.Email, &s.Phone)
	if err != nil {
		return nil, rowError("finding supplier", "supplier", name, err)
	}

	return &s, nil
}

func (t *tx) CreateSupplier(ctx context.Context, s *inventory.Supplier) error {
	_, err := t.tx.ExecContext(ctx, `INSERT INTO suppliers (id, name, email, phone) VALUES ($1, $2, $3, $4)`,
		s.ID, s.Name, s.Email, s.Phone)
	if err != nil {
		return translate("creating supplier", err)
	}

	return nil
}

func (t *tx) UpdateSupplier(ctx context.Context, s *inventory.Supplier) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE suppliers SET name = $1, email = $2, phone = $3 WHERE id = $4`,
		s.Name, s.Email, s.Phone, s.ID)
	if err != nil {
		return translate("updating supplier", err)
	}

	return expectRow(res, "supplier", s.ID)
}

func (t *tx) DeleteSupplier(ctx context.Context, id uuid.UUID) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if err != nil {
		return translate("deleting supplier", err)
	}

	return expectRow(res, "supplier", id)
}

func (t *tx) CountReferenceData(ctx context.Context) (inventory.ReferenceCounts, error) {
	var counts inventory.ReferenceCounts

	err := t.tx.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM categories),
			(SELECT COUNT(*) FROM customers),
			(SELECT COUNT(*) FROM suppliers)`,
	).Scan(&counts.Categories, &counts.Customers, &counts.Suppliers)
	if err != nil {
		return inventory.ReferenceCounts{}, translate("counting reference data", err)
	}

	return counts, nil
}

func (t *tx) count(ctx context.Context, op, query string, args ...any) (int, error) {
	var n int
	if err := t.tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, translate(op, err)
	}

	return n, nil
}

func expectRow(res sql.Result, kind string, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if n == 0 {
		return inventory.NewNotFound(kind, id.String())
	}

	return nil
}

func rowError(op, kind, key string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return inventory.NewNotFound(kind, key)
	}

	return translate(op, err)
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}

	slices.Sort(out)

	return out
}
