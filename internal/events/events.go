// Package events fans committed business operations out to external
// collaborators. Publishing happens after commit; a failed publish never
// undoes the operation.
package events

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	InvoiceCreated       = "invoice.created"
	PurchaseOrderCreated = "purchase_order.created"
)

type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Operator   string    `json:"operator"`
	Payload    any       `json:"payload"`
}

func New(eventType, operator string, payload any) Event {
	return Event{
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Operator:   operator,
		Payload:    payload,
	}
}

//go:generate mockgen -source=events.go -destination=publisher_mock.go -package=events
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error

	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Log writes every event to the structured log.
type Log struct{}

func (Log) Publish(_ context.Context, ev Event) error {
	slog.Info("event published", "type", ev.Type, "operator", ev.Operator)
	return nil
}

// Notify publishes ev and logs a failure instead of returning it.
func Notify(ctx context.Context, p Publisher, ev Event) {
	if p == nil {
		return
	}

	if err := p.Publish(ctx, ev); err != nil {
		slog.Warn("failed to publish event", "type", ev.Type, "error", err)
	}
}
