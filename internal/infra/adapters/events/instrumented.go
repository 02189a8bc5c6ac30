package events

import (
	"context"
	"strconv"

	"messmate/internal/domain/ports/adapter"
	"messmate/internal/infra/metrics"
)

var _ adapter.EventPublisher = (*Instrumented)(nil)

// Instrumented counts business outcomes from the event stream before handing
// each event to the wrapped publisher.
type Instrumented struct {
	inner adapter.EventPublisher
}

func NewInstrumented(inner adapter.EventPublisher) *Instrumented {
	return &Instrumented{inner: inner}
}

func (p *Instrumented) Publish(ctx context.Context, e adapter.Event) error {
	observe(e)
	return p.inner.Publish(ctx, e)
}

func (p *Instrumented) Close() error { return p.inner.Close() }

func observe(e adapter.Event) {
	switch e.Type {
	case adapter.EventPaymentResolved:
		status := e.Attributes["status"]
		metrics.IncPayment(status)
		if status == "success" {
			if amount, err := strconv.ParseInt(e.Attributes["amount"], 10, 64); err == nil {
				metrics.AddPaymentRevenue("INR", amount)
			}
		}
	case adapter.EventRequestProcessed:
		metrics.IncRequestProcessed(e.Attributes["status"])
	}
}
