package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/stockbook/internal/inventory"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const productColumns = `
	id, product_name, category, purchase_date, purchase_price, selling_price, status,
	tracking_type, imei, quantity, notes, invoice_id, purchase_order_id, customer_name,
	created_at, updated_at
`

func scanProduct(s scanner) (*inventory.Product, error) {
	var p inventory.Product

	var status, tracking string

	if err := s.Scan(
		&p.ID, &p.ProductName, &p.Category, &p.PurchaseDate, &p.PurchasePrice, &p.SellingPrice, &status,
		&tracking, &p.IMEI, &p.Quantity, &p.Notes, &p.InvoiceID, &p.PurchaseOrderID, &p.CustomerName,
		&p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	p.Status = inventory.Status(status)
	p.TrackingType = inventory.TrackingType(tracking)

	return &p, nil
}

func scanProducts(rows *sql.Rows) ([]*inventory.Product, error) {
	defer rows.Close()

	products := []*inventory.Product{}

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}

		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating product rows: %w", err)
	}

	return products, nil
}

func listProducts(ctx context.Context, q querier, filter inventory.ProductFilter) ([]*inventory.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE TRUE`

	var args []any

	argIdx := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)

		args = append(args, string(*filter.Status))
		argIdx++
	}

	if filter.AvailableOnly {
		query += " AND status = 'Available' AND quantity > 0"
	}

	if filter.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", argIdx)

		args = append(args, filter.Category)
		argIdx++
	}

	if filter.PurchaseOrderID != nil {
		query += fmt.Sprintf(" AND purchase_order_id = $%d", argIdx)

		args = append(args, *filter.PurchaseOrderID)
		argIdx++
	}

	if filter.TrackingType != nil {
		query += fmt.Sprintf(" AND tracking_type = $%d", argIdx)

		args = append(args, string(*filter.TrackingType))
	}

	query += " ORDER BY seq ASC"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate("listing products", err)
	}

	return scanProducts(rows)
}

func getProduct(ctx context.Context, q querier, id uuid.UUID) (*inventory.Product, error) {
	p, err := scanProduct(q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, inventory.NewNotFound("product", id.String())
		}

		return nil, translate("getting product", err)
	}

	return p, nil
}

const invoiceColumns = `id, invoice_number, customer_id, customer_name, issue_date, total_amount`

func scanInvoice(s scanner) (*inventory.Invoice, error) {
	var inv inventory.Invoice

	if err := s.Scan(&inv.ID, &inv.InvoiceNumber, &inv.CustomerID, &inv.CustomerName, &inv.IssueDate, &inv.TotalAmount); err != nil {
		return nil, err
	}

	inv.Items = []inventory.InvoiceItem{}

	return &inv, nil
}

func getInvoice(ctx context.Context, q querier, id uuid.UUID) (*inventory.Invoice, error) {
	inv, err := scanInvoice(q.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, inventory.NewNotFound("invoice", id.String())
		}

		return nil, translate("getting invoice", err)
	}

	if err := loadInvoiceItems(ctx, q, map[uuid.UUID]*inventory.Invoice{inv.ID: inv}); err != nil {
		return nil, err
	}

	return inv, nil
}

func listInvoices(ctx context.Context, q querier) ([]*inventory.Invoice, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+invoiceColumns+` FROM invoices ORDER BY issue_date ASC, invoice_number ASC`)
	if err != nil {
		return nil, translate("listing invoices", err)
	}
	defer rows.Close()

	invoices := []*inventory.Invoice{}
	byID := make(map[uuid.UUID]*inventory.Invoice)

	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning invoice: %w", err)
		}

		invoices = append(invoices, inv)
		byID[inv.ID] = inv
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invoice rows: %w", err)
	}

	if len(invoices) == 0 {
		return invoices, nil
	}

	if err := loadInvoiceItems(ctx, q, byID); err != nil {
		return nil, err
	}

	return invoices, nil
}

// loadInvoiceItems attaches the items of every invoice in byID, in line order.
func loadInvoiceItems(ctx context.Context, q querier, byID map[uuid.UUID]*inventory.Invoice) error {
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id.String())
	}

	rows, err := q.QueryContext(ctx, `
		SELECT invoice_id, product_id, product_name, imei, quantity, selling_price
		FROM invoice_items
		WHERE invoice_id = ANY($1::uuid[])
		ORDER BY invoice_id, position ASC`, ids)
	if err != nil {
		return translate("loading invoice items", err)
	}
	defer rows.Close()

	for rows.Next() {
		var invoiceID uuid.UUID

		var item inventory.InvoiceItem

		if err := rows.Scan(&invoiceID, &item.ProductID, &item.ProductName, &item.IMEI, &item.Quantity, &item.SellingPrice); err != nil {
			return fmt.Errorf("scanning invoice item: %w", err)
		}

		if inv, ok := byID[invoiceID]; ok {
			inv.Items = append(inv.Items, item)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating invoice item rows: %w", err)
	}

	return nil
}

const purchaseOrderColumns = `id, po_number, supplier_id, supplier_name, issue_date, status, notes, total_cost`

func scanPurchaseOrder(s scanner) (*inventory.PurchaseOrder, error) {
	var po inventory.PurchaseOrder

	var status string

	if err := s.Scan(&po.ID, &po.PONumber, &po.SupplierID, &po.SupplierName, &po.IssueDate, &status, &po.Notes, &po.TotalCost); err != nil {
		return nil, err
	}

	po.Status = inventory.OrderStatus(status)
	po.ProductIDs = []uuid.UUID{}

	return &po, nil
}

func getPurchaseOrder(ctx context.Context, q querier, id uuid.UUID) (*inventory.PurchaseOrder, error) {
	po, err := scanPurchaseOrder(q.QueryRowContext(ctx, `SELECT `+purchaseOrderColumns+` FROM purchase_orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, inventory.NewNotFound("purchase order", id.String())
		}

		return nil, translate("getting purchase order", err)
	}

	if err := loadPurchaseOrderProducts(ctx, q, map[uuid.UUID]*inventory.PurchaseOrder{po.ID: po}); err != nil {
		return nil, err
	}

	return po, nil
}

func listPurchaseOrders(ctx context.Context, q querier) ([]*inventory.PurchaseOrder, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+purchaseOrderColumns+` FROM purchase_orders ORDER BY issue_date ASC, po_number ASC`)
	if err != nil {
		return nil, translate("listing purchase orders", err)
	}
	defer rows.Close()

	orders := []*inventory.PurchaseOrder{}
	byID := make(map[uuid.UUID]*inventory.PurchaseOrder)

	for rows.Next() {
		po, err := scanPurchaseOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning purchase order: %w", err)
		}

		orders = append(orders, po)
		byID[po.ID] = po
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating purchase order rows: %w", err)
	}

	if len(orders) == 0 {
		return orders, nil
	}

	if err := loadPurchaseOrderProducts(ctx, q, byID); err != nil {
		return nil, err
	}

	return orders, nil
}

func loadPurchaseOrderProducts(ctx context.Context, q querier, byID map[uuid.UUID]*inventory.PurchaseOrder) error {
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id.String())
	}

	rows, err := q.QueryContext(ctx, `
		SELECT purchase_order_id, id
		FROM products
		WHERE purchase_order_id = ANY($1::uuid[])
		ORDER BY seq ASC`, ids)
	if err != nil {
		return translate("loading purchase order products", err)
	}
	defer rows.Close()

	for rows.Next() {
		var poID, productID uuid.UUID
		if err := rows.Scan(&poID, &productID); err != nil {
			return fmt.Errorf("scanning purchase order product: %w", err)
		}

		if po, ok := byID[poID]; ok {
			po.ProductIDs = append(po.ProductIDs, productID)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating purchase order product rows: %w", err)
	}

	return nil
}

func listCategories(ctx context.Context, q querier) ([]*inventory.Category, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, translate("listing categories", err)
	}
	defer rows.Close()

	categories := []*inventory.Category{}

	for rows.Next() {
		var c inventory.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}

		categories = append(categories, &c)
	}

	return categories, rows.Err()
}

func listCustomers(ctx context.Context, q querier) ([]*inventory.Customer, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, name, phone FROM customers ORDER BY name ASC`)
	if err != nil {
		return nil, translate("listing customers", err)
	}
	defer rows.Close()

	customers := []*inventory.Customer{}

	for rows.Next() {
		var c inventory.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone); err != nil {
			return nil, fmt.Errorf("scanning customer: %w", err)
		}

		customers = append(customers, &c)
	}

	return customers, rows.Err()
}

func listSuppliers(ctx context.Context, q querier) ([]*inventory.Supplier, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, name, email, phone FROM suppliers ORDER BY name ASC`)
	if err != nil {
		return nil, translate("listing suppliers", err)
	}
	defer rows.Close()

	suppliers := []*inventory.Supplier{}

	for rows.Next() {
		var s inventory.Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.Phone); err != nil {
			return nil, fmt.Errorf("scanning supplier: %w", err)
		}

		suppliers = append(suppliers, &s)
	}

	return suppliers, rows.Err()
}
