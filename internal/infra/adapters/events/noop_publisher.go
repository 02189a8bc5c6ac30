package events

import (
	"context"

	"github.com/rs/zerolog"

	"messmate/internal/domain/ports/adapter"
)

var _ adapter.EventPublisher = (*NoopPublisher)(nil)

// NoopPublisher logs events at debug level and drops them.
type NoopPublisher struct {
	log *zerolog.Logger
}

func NewNoopPublisher(logger *zerolog.Logger) *NoopPublisher {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &NoopPublisher{log: logger}
}

func (p *NoopPublisher) Publish(ctx context.Context, e adapter.Event) error {
	p.log.Debug().Str("type", e.Type).Str("key", e.Key).Msg("event dropped (no broker configured)")
	return nil
}

func (p *NoopPublisher) Close() error { return nil }
