package sched

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	portuc "messmate/internal/domain/ports/usecase"
	"messmate/internal/infra/logging"
	"messmate/internal/infra/metrics"
	"messmate/internal/infra/worker"

	"github.com/rs/zerolog"
)

// PaymentReconciler re-polls checkouts whose callback never arrived. Each
// stuck checkout is synced through the worker pool; checkouts older than
// expireAfter that the gateway still cannot confirm are given up on.
type PaymentReconciler struct {
	syncer      portuc.PaymentSyncer
	pool        *worker.Pool
	staleAfter  time.Duration
	expireAfter time.Duration
	batch       int
	now         func() time.Time
	log         *zerolog.Logger
}

func NewPaymentReconciler(syncer portuc.PaymentSyncer, pool *worker.Pool, staleAfter, expireAfter time.Duration, batch int, logger *zerolog.Logger) *PaymentReconciler {
	if staleAfter <= 0 {
		staleAfter = 5 * time.Minute
	}
	if expireAfter <= 0 {
		expireAfter = 24 * time.Hour
	}
	if batch <= 0 {
		batch = 100
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{
		syncer:      syncer,
		pool:        pool,
		staleAfter:  staleAfter,
		expireAfter: expireAfter,
		batch:       batch,
		now:         time.Now,
		log:         &l,
	}
}

// Run performs one sweep. It fails when the stuck list cannot be read or
// when any checkout could not be synced.
func (w *PaymentReconciler) Run(ctx context.Context) error {
	now := w.now()
	stuck, err := w.syncer.Stuck(ctx, now.Add(-w.staleAfter), w.batch)
	if err != nil {
		return fmt.Errorf("list stuck checkouts: %w", err)
	}
	if len(stuck) == 0 {
		return nil
	}

	var (
		wg                    sync.WaitGroup
		synced, dups, errored atomic.Int32
	)
	for _, p := range stuck {
		txn := p.MerchantTransactionID
		giveUp := now.Sub(p.CreatedAt) >= w.expireAfter
		wg.Add(1)
		// Sync runs on the sweep's ctx; a cancelled pool ctx means the pool is
		// closing and the task is skipped.
		err := w.pool.Submit(ctx, func(pctx context.Context) error {
			defer wg.Done()
			if err := pctx.Err(); err != nil {
				errored.Add(1)
				return err
			}
			dup, err := w.syncer.Sync(logging.WithTxnID(ctx, txn), txn, giveUp)
			if err != nil {
				errored.Add(1)
				w.log.Warn().Err(err).Str("txn_id", txn).Bool("give_up", giveUp).Msg("checkout sync failed")
				return err
			}
			if dup {
				dups.Add(1)
				metrics.IncDuplicateResolution("reconciler")
			}
			synced.Add(1)
			return nil
		})
		if err != nil {
			// never queued; the task's Done will not run
			wg.Done()
			errored.Add(1)
			w.log.Warn().Err(err).Str("txn_id", txn).Msg("checkout sync not scheduled")
		}
	}
	wg.Wait()

	w.log.Info().
		Int("stuck", len(stuck)).
		Int32("synced", synced.Load()).
		Int32("duplicates", dups.Load()).
		Int32("errors", errored.Load()).
		Msg("reconcile sweep finished")
	if n := errored.Load(); n > 0 {
		return fmt.Errorf("%d of %d checkouts not synced", n, len(stuck))
	}
	return nil
}
