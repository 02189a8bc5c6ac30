package sched

import (
	"context"
	"time"

	portuc "messmate/internal/domain/ports/usecase"
	"messmate/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// StatusRefresher rewrites the cached statuses of memberships whose expiry
// has passed since they were last written.
type StatusRefresher struct {
	refresher portuc.StatusRefresher
	today     func() time.Time
	log       *zerolog.Logger
}

func NewStatusRefresher(refresher portuc.StatusRefresher, today func() time.Time, logger *zerolog.Logger) *StatusRefresher {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "StatusRefresher").Logger()
	return &StatusRefresher{refresher: refresher, today: today, log: &l}
}

func (w *StatusRefresher) Run(ctx context.Context) error {
	n, err := w.refresher.RefreshStale(ctx, w.today())
	if n > 0 {
		metrics.AddStatusRefreshed(n)
		w.log.Info().Int("count", n).Msg("membership statuses refreshed")
	}
	return err
}
