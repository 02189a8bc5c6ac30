package usecase

import (
	"context"
	"time"

	"messmate/internal/domain/model"
)

// StatusRefresher is what the background status job needs from the membership use case.
type StatusRefresher interface {
	RefreshStale(ctx context.Context, today time.Time) (int, error)
}

// PaymentSyncer is what the reconcile job needs from the payment use case.
// Sync polls the gateway for one pending checkout and resolves it; with
// giveUp set, a checkout the gateway cannot confirm is marked failed. Sync
// reports whether the checkout had already been resolved elsewhere.
type PaymentSyncer interface {
	// Stuck lists checkouts still pending that were created before olderThan.
	Stuck(ctx context.Context, olderThan time.Time, limit int) ([]*model.PendingPayment, error)
	Sync(ctx context.Context, merchantTxnID string, giveUp bool) (bool, error)
}
