package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"messmate/internal/domain"
	"messmate/internal/domain/model"
	"messmate/internal/domain/ports/repository"
)

var _ repository.PendingPaymentRepository = (*pendingPaymentRepo)(nil)

type pendingPaymentRepo struct{ pool *pgxpool.Pool }

func NewPendingPaymentRepo(pool *pgxpool.Pool) *pendingPaymentRepo {
	return &pendingPaymentRepo{pool: pool}
}

const pendingColumns = `id, merchant_txn_id, gateway_txn_id, user_id, mess_id, plan_id, amount, payment_type,
  status, failure_reason, created_at, updated_at, resolved_at`

func scanPending(row pgx.Row) (*model.PendingPayment, error) {
	p := &model.PendingPayment{}
	if err := row.Scan(&p.ID, &p.MerchantTransactionID, &p.GatewayTransactionID, &p.UserID, &p.MessID, &p.PlanID, &p.Amount, &p.PaymentType,
		&p.Status, &p.FailureReason, &p.CreatedAt, &p.UpdatedAt, &p.ResolvedAt); err != nil {
		return nil, scanErr(err, "pending payment")
	}
	return p, nil
}

func (r *pendingPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.PendingPayment) error {
	const q = `
INSERT INTO pending_payments (` + pendingColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (id) DO UPDATE SET
  gateway_txn_id=$3, status=$9, failure_reason=$10, updated_at=$12, resolved_at=$13;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.MerchantTransactionID, p.GatewayTransactionID, p.UserID, p.MessID, p.PlanID, p.Amount, p.PaymentType,
		p.Status, p.FailureReason, p.CreatedAt, p.UpdatedAt, p.ResolvedAt)
	return err
}

// Delete removes a checkout that never reached the gateway. Resolved rows are
// kept.
func (r *pendingPaymentRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	cmd, err := execSQL(ctx, r.pool, tx, `DELETE FROM pending_payments WHERE id=$1 AND status='pending'`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: pending payment %s", domain.ErrNotFound, id)
	}
	return nil
}

func (r *pendingPaymentRepo) FindByMerchantTxnID(ctx context.Context, tx repository.Tx, merchantTxnID string) (*model.PendingPayment, error) {
	q := lockClause(`SELECT `+pendingColumns+` FROM pending_payments WHERE merchant_txn_id=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, merchantTxnID)
	if err != nil {
		return nil, err
	}
	return scanPending(row)
}

// ResolveIfPending atomically moves the row out of 'pending'; a second
// resolution affects no rows and reports false.
func (r *pendingPaymentRepo) ResolveIfPending(
	ctx context.Context, tx repository.Tx, id string, status model.PendingStatus, gatewayTxnID *string, reason *string, at time.Time,
) (bool, error) {
	if status == model.PendingStatusPending {
		return false, domain.ErrInvalidArgument
	}
	const q = `
UPDATE pending_payments
   SET status = $2,
       gateway_txn_id = COALESCE($3, gateway_txn_id),
       failure_reason = $4,
       resolved_at = $5,
       updated_at = $5
 WHERE id = $1
   AND status = 'pending'`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(status), gatewayTxnID, reason, at)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *pendingPaymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PendingPayment, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + pendingColumns + ` FROM pending_payments WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.PendingPayment
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, mapErr(rows.Err())
}

// -----------------------------
// Ledger
// -----------------------------

var _ repository.PaymentRepository = (*ledgerRepo)(nil)

type ledgerRepo struct{ pool *pgxpool.Pool }

func NewLedgerRepo(pool *pgxpool.Pool) *ledgerRepo {
	return &ledgerRepo{pool: pool}
}

const ledgerColumns = `id, subscription_id, user_id, mess_id, amount, status, is_advance, source,
  pending_payment_id, gateway_txn_id, created_at`

// Append never updates; the unique pending_payment_id turns a double credit
// into domain.ErrAlreadyExists.
func (r *ledgerRepo) Append(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `INSERT INTO payments (` + ledgerColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11);`
	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.SubscriptionID, p.UserID, p.MessID, p.Amount, p.Status, p.IsAdvance, p.Source,
		p.PendingPaymentID, p.GatewayTransactionID, p.CreatedAt)
	return err
}

func (r *ledgerRepo) ListBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string) ([]*model.Payment, error) {
	const q = `SELECT ` + ledgerColumns + ` FROM payments WHERE subscription_id=$1 ORDER BY created_at DESC, id DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, subscriptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p := new(model.Payment)
		if err := rows.Scan(&p.ID, &p.SubscriptionID, &p.UserID, &p.MessID, &p.Amount, &p.Status, &p.IsAdvance, &p.Source,
			&p.PendingPaymentID, &p.GatewayTransactionID, &p.CreatedAt); err != nil {
			return nil, scanErr(err, "payment")
		}
		out = append(out, p)
	}
	return out, mapErr(rows.Err())
}

func (r *ledgerRepo) SumByMessSince(ctx context.Context, tx repository.Tx, messID string, since time.Time) (int64, error) {
	const q = `SELECT COALESCE(SUM(amount),0) FROM payments WHERE mess_id=$1 AND status='success' AND created_at >= $2;`
	row, err := pickRow(ctx, r.pool, tx, q, messID, since)
	if err != nil {
		return 0, err
	}

	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, scanErr(err, "revenue")
	}
	return sum, nil
}
