package adapter

import (
	"context"
	"time"
)

const (
	EventPaymentResolved   = "payment.resolved"
	EventRequestProcessed  = "subscription_request.processed"
	EventMembershipUpdated = "membership.updated"
)

// Event is a domain notification for downstream consumers (mail, analytics).
type Event struct {
	Type       string            `json:"type"`
	Key        string            `json:"key"`
	OccurredAt time.Time         `json:"occurred_at"`
	Attributes map[string]string `json:"attributes"`
}

// EventPublisher delivers events. Publishing is best effort: callers log
// failures and never roll back business state because of them.
type EventPublisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}
