package repository

import (
	"context"
	"time"

	"messmate/internal/domain/model"
)

// -----------------------------
// Pending payments
// -----------------------------

type PendingPaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.PendingPayment) error
	Delete(ctx context.Context, tx Tx, id string) error
	// FindByMerchantTxnID locks the row when tx is live.
	FindByMerchantTxnID(ctx context.Context, tx Tx, merchantTxnID string) (*model.PendingPayment, error)
	// ResolveIfPending moves a pending row to status. It returns false when the
	// row was already resolved, so callers can treat a repeat as a no-op.
	ResolveIfPending(ctx context.Context, tx Tx, id string, status model.PendingStatus, gatewayTxnID *string, reason *string, at time.Time) (bool, error)
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.PendingPayment, error)
}

// -----------------------------
// Payment ledger
// -----------------------------

type PaymentRepository interface {
	// Append inserts an immutable entry. A second entry for the same pending
	// payment fails with domain.ErrAlreadyExists.
	Append(ctx context.Context, tx Tx, p *model.Payment) error
	ListBySubscription(ctx context.Context, tx Tx, subscriptionID string) ([]*model.Payment, error)
	SumByMessSince(ctx context.Context, tx Tx, messID string, since time.Time) (int64, error)
}
