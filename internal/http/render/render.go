// Package render writes JSON responses and maps inventory errors to HTTP
// statuses for every handler.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/stockbook/internal/inventory"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Decode reads a JSON body into v. Unknown fields are rejected.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return &inventory.ValidationError{Field: "body", Reason: err.Error()}
	}

	return nil
}

// ID parses the {id} URL parameter.
func ID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, &inventory.ValidationError{Field: "id", Reason: "must be a uuid"}
	}

	return id, nil
}

// Error writes err with the status its kind maps to.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)

	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}

	JSON(w, status, body)
}

func classify(err error) (int, ErrorResponse) {
	var (
		ve *inventory.ValidationError
		nf *inventory.NotFoundError
		ce *inventory.ConflictError
		se *inventory.InsufficientStockError
		su *inventory.StoreUnavailableError
	)

	switch {
	case errors.As(err, &ve):
		body := ErrorResponse{Error: "validation", Message: ve.Error()}
		if ve.Field != "" {
			body.Details = map[string]any{"field": ve.Field, "reason": ve.Reason}
		}

		return http.StatusBadRequest, body
	case errors.As(err, &nf):
		return http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: nf.Error(),
			Details: map[string]any{"kind": nf.Kind, "ids": nf.IDs},
		}
	case errors.As(err, &ce):
		return http.StatusConflict, ErrorResponse{
			Error:   "conflict",
			Message: ce.Error(),
			Details: map[string]any{"kind": ce.Kind, "key": ce.Key},
		}
	case errors.As(err, &se):
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "insufficient_stock",
			Message: se.Error(),
			Details: map[string]any{
				"productName": se.ProductName,
				"requested":   se.Requested,
				"available":   se.Available,
				"shortfall":   se.Shortfall(),
			},
		}
	case errors.As(err, &su):
		body := ErrorResponse{Error: "store_unavailable", Message: su.Error()}
		if su.SchemaMissing {
			body.Code = "schema_missing"
		}

		return http.StatusServiceUnavailable, body
	}

	return http.StatusInternalServerError, ErrorResponse{Error: "internal", Message: "internal error"}
}

// Date is a calendar date rendered as YYYY-MM-DD. Full RFC 3339 timestamps are
// accepted on input and truncated to their date.
type Date struct {
	time.Time
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(time.DateOnly))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}

	s = strings.TrimSpace(s)
	if s == "" {
		d.Time = time.Time{}
		return nil
	}

	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		ts, tsErr := time.Parse(time.RFC3339, s)
		if tsErr != nil {
			return fmt.Errorf("date %q must be YYYY-MM-DD", s)
		}

		t = time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	}

	d.Time = t

	return nil
}
