package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"messmate/internal/domain/model"
	"messmate/internal/domain/ports/repository"
)

var _ repository.SubscriptionRequestRepository = (*requestRepo)(nil)

type requestRepo struct{ pool *pgxpool.Pool }

func NewSubscriptionRequestRepo(pool *pgxpool.Pool) *requestRepo {
	return &requestRepo{pool: pool}
}

const requestColumns = `id, user_id, mess_id, plan_id, join_date, message, status, admin_notes,
  processed_by, processed_at, created_at, updated_at`

func scanRequest(row pgx.Row) (*model.SubscriptionRequest, error) {
	r := &model.SubscriptionRequest{}
	if err := row.Scan(&r.ID, &r.UserID, &r.MessID, &r.PlanID, &r.JoinDate, &r.Message, &r.Status, &r.AdminNotes,
		&r.ProcessedBy, &r.ProcessedAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, scanErr(err, "subscription request")
	}
	return r, nil
}

// Save upserts by id. A second pending request for the same pair violates
// uq_requests_one_pending and surfaces as domain.ErrAlreadyExists.
func (r *requestRepo) Save(ctx context.Context, tx repository.Tx, req *model.SubscriptionRequest) error {
	const q = `
INSERT INTO subscription_requests (` + requestColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
  status=$7, admin_notes=$8, processed_by=$9, processed_at=$10, updated_at=$12;`

	_, err := execSQL(ctx, r.pool, tx, q, req.ID, req.UserID, req.MessID, req.PlanID, req.JoinDate, req.Message, req.Status, req.AdminNotes,
		req.ProcessedBy, req.ProcessedAt, req.CreatedAt, req.UpdatedAt)
	return err
}

func (r *requestRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionRequest, error) {
	q := lockClause(`SELECT `+requestColumns+` FROM subscription_requests WHERE id=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanRequest(row)
}

func (r *requestRepo) FindPendingByUserAndMess(ctx context.Context, tx repository.Tx, userID, messID string) (*model.SubscriptionRequest, error) {
	const q = `SELECT ` + requestColumns + ` FROM subscription_requests WHERE user_id=$1 AND mess_id=$2 AND status='pending'`
	row, err := pickRow(ctx, r.pool, tx, q, userID, messID)
	if err != nil {
		return nil, err
	}
	return scanRequest(row)
}

// ListByMess returns newest first; an empty status lists every request.
func (r *requestRepo) ListByMess(ctx context.Context, tx repository.Tx, messID string, status model.RequestStatus) ([]*model.SubscriptionRequest, error) {
	const q = `SELECT ` + requestColumns + ` FROM subscription_requests
WHERE mess_id=$1 AND ($2 = '' OR status=$2) ORDER BY created_at DESC, id DESC`
	return r.list(ctx, tx, q, messID, string(status))
}

func (r *requestRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.SubscriptionRequest, error) {
	const q = `SELECT ` + requestColumns + ` FROM subscription_requests WHERE user_id=$1 ORDER BY created_at DESC, id DESC`
	return r.list(ctx, tx, q, userID)
}

func (r *requestRepo) CountPendingByMess(ctx context.Context, tx repository.Tx, messID string) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM subscription_requests WHERE mess_id=$1 AND status='pending'`, messID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, scanErr(err, "pending count")
	}
	return n, nil
}

func (r *requestRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.SubscriptionRequest, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.SubscriptionRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, mapErr(rows.Err())
}
