package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrJamesThe3rd/stockbook/internal/inventory"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeUndefinedTable      = "42P01"
	codeNumericOutOfRange   = "22003"
)

// uniqueKinds maps unique constraints to the entity kind reported to callers.
var uniqueKinds = map[string]string{
	"products_imei_key":             "imei",
	"categories_name_key":           "category",
	"suppliers_name_key":            "supplier",
	"purchase_orders_po_number_key": "purchase order",
	"invoices_invoice_number_key":   "invoice number",
}

// translate turns driver failures into the inventory error taxonomy so that
// Postgres codes never leave this package. op describes the failed step.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			kind, ok := uniqueKinds[pgErr.ConstraintName]
			if !ok {
				kind = pgErr.TableName
			}

			return &inventory.ConflictError{Kind: kind, Reason: "already exists"}
		case codeForeignKeyViolation:
			return &inventory.ConflictError{Kind: pgErr.TableName, Reason: "still referenced"}
		case codeNumericOutOfRange:
			return &inventory.ValidationError{Field: pgErr.ColumnName, Reason: "value out of range"}
		case codeUndefinedTable:
			return &inventory.StoreUnavailableError{SchemaMissing: true, Err: fmt.Errorf("%s: %w", op, err)}
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if unreachable(err) {
		return &inventory.StoreUnavailableError{Err: fmt.Errorf("%s: %w", op, err)}
	}

	return fmt.Errorf("%s: %w", op, err)
}

func unreachable(err error) bool {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded)
}
