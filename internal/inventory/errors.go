package inventory

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrStoreUnavailable  = errors.New("store unavailable")
)

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}

	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError names the kind of entity and the ids that could not be resolved.
type NotFoundError struct {
	Kind string
	IDs  []string
}

func (e *NotFoundError) Error() string {
	switch len(e.IDs) {
	case 0:
		return e.Kind + " not found"
	case 1:
		return fmt.Sprintf("%s %s not found", e.Kind, e.IDs[0])
	default:
		return fmt.Sprintf("%ss not found: %s", e.Kind, strings.Join(e.IDs, ", "))
	}
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConflictError reports a uniqueness violation or a deletion blocked by a reference.
type ConflictError struct {
	Kind   string
	Key    string
	Reason string
}

func (e *ConflictError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}

	return fmt.Sprintf("%s %q: %s", e.Kind, e.Key, e.Reason)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// InsufficientStockError reports a sale that asks for more units than are available.
type InsufficientStockError struct {
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d (short by %d)",
		e.ProductName, e.Requested, e.Available, e.Shortfall())
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// Shortfall is how many units are missing to satisfy the request.
func (e *InsufficientStockError) Shortfall() int {
	return e.Requested - e.Available
}

// StoreUnavailableError wraps a backing store failure. SchemaMissing is set
// when the store is reachable but not initialized.
type StoreUnavailableError struct {
	SchemaMissing bool
	Err           error
}

func (e *StoreUnavailableError) Error() string {
	if e.SchemaMissing {
		return "store unavailable: table missing, initialize the store"
	}

	if e.Err == nil {
		return "store unavailable"
	}

	return "store unavailable: " + e.Err.Error()
}

func (e *StoreUnavailableError) Is(target error) bool { return target == ErrStoreUnavailable }

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// NewNotFound reports a missing entity of the given kind.
func NewNotFound(kind string, ids ...string) error {
	return &NotFoundError{Kind: kind, IDs: ids}
}

// IsSchemaMissing reports whether err asks the caller to initialize the store.
func IsSchemaMissing(err error) bool {
	var sue *StoreUnavailableError
	return errors.As(err, &sue) && sue.SchemaMissing
}
