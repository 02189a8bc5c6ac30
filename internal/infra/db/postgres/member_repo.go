package postgres

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"messmate/internal/domain"
	"messmate/internal/domain/model"
	"messmate/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*memberRepo)(nil)

type memberRepo struct{ pool *pgxpool.Pool }

func NewMemberRepo(pool *pgxpool.Pool) *memberRepo {
	return &memberRepo{pool: pool}
}

const memberColumns = `id, user_id, mess_id, plan_id, joining_date, expiry_date, total_due, amount_paid,
  is_active, waived, payment_status, membership_status, created_at, updated_at`

func scanMember(row pgx.Row) (*model.SubscriptionMember, error) {
	m := &model.SubscriptionMember{}
	if err := row.Scan(&m.ID, &m.UserID, &m.MessID, &m.PlanID, &m.JoiningDate, &m.ExpiryDate, &m.TotalDue, &m.AmountPaid,
		&m.IsActive, &m.Waived, &m.PaymentStatus, &m.MembershipStatus, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, scanErr(err, "subscription member")
	}
	return m, nil
}

// Save upserts by id. The (user_id, mess_id) unique key surfaces a second
// record for the pair as domain.ErrAlreadyExists.
func (r *memberRepo) Save(ctx context.Context, tx repository.Tx, m *model.SubscriptionMember) error {
	const q = `
INSERT INTO subscription_members (` + memberColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (id) DO UPDATE SET
  plan_id=$4, joining_date=$5, expiry_date=$6, total_due=$7, amount_paid=$8,
  is_active=$9, waived=$10, payment_status=$11, membership_status=$12, updated_at=$14;`

	_, err := execSQL(ctx, r.pool, tx, q, m.ID, m.UserID, m.MessID, m.PlanID, m.JoiningDate, m.ExpiryDate, m.TotalDue, m.AmountPaid,
		m.IsActive, m.Waived, m.PaymentStatus, m.MembershipStatus, m.CreatedAt, m.UpdatedAt)
	return err
}

func (r *memberRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionMember, error) {
	q := lockClause(`SELECT `+memberColumns+` FROM subscription_members WHERE id=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanMember(row)
}

func (r *memberRepo) FindByUserAndMess(ctx context.Context, tx repository.Tx, userID, messID string) (*model.SubscriptionMember, error) {
	q := lockClause(`SELECT `+memberColumns+` FROM subscription_members WHERE user_id=$1 AND mess_id=$2`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, userID, messID)
	if err != nil {
		return nil, err
	}
	return scanMember(row)
}

// ListByMess filters on the cached statuses, widened by f.AsOf to rows that
// have since expired; callers re-derive each row.
func (r *memberRepo) ListByMess(ctx context.Context, tx repository.Tx, messID string, f repository.MemberFilter) ([]*model.SubscriptionMember, error) {
	var (
		sb   strings.Builder
		args = []interface{}{messID}
	)
	sb.WriteString(`SELECT ` + memberColumns + ` FROM subscription_members WHERE mess_id=$1`)
	expired := ""
	if !f.AsOf.IsZero() && (f.MembershipStatus != "" || f.PaymentStatus != "") {
		args = append(args, model.DateOf(f.AsOf))
		expired = " OR expiry_date < $" + strconv.Itoa(len(args))
	}
	if f.MembershipStatus != "" {
		args = append(args, f.MembershipStatus)
		sb.WriteString(" AND (membership_status=$" + strconv.Itoa(len(args)) + expired + ")")
	}
	if f.PaymentStatus != "" {
		args = append(args, f.PaymentStatus)
		sb.WriteString(" AND (payment_status=$" + strconv.Itoa(len(args)) + expired + ")")
	}
	sb.WriteString(" ORDER BY created_at ASC, id ASC")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		sb.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		sb.WriteString(" OFFSET $" + strconv.Itoa(len(args)))
	}
	return r.list(ctx, tx, sb.String(), args...)
}

func (r *memberRepo) ListStale(ctx context.Context, tx repository.Tx, today time.Time, limit int) ([]*model.SubscriptionMember, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + memberColumns + ` FROM subscription_members
WHERE expiry_date < $1 AND (payment_status <> 'due' OR membership_status <> 'inactive')
ORDER BY expiry_date ASC LIMIT $2`
	return r.list(ctx, tx, q, model.DateOf(today), limit)
}

// LockPair takes a transaction-scoped advisory lock keyed by the pair; it
// needs a live transaction to be meaningful.
func (r *memberRepo) LockPair(ctx context.Context, tx repository.Tx, userID, messID string) error {
	if _, ok := tx.(pgx.Tx); !ok {
		return domain.ErrInvalidExecContext
	}
	_, err := execSQL(ctx, r.pool, tx, `SELECT pg_advisory_xact_lock($1)`, hashToInt64("member:"+userID+":"+messID))
	return err
}

func (r *memberRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.SubscriptionMember, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.SubscriptionMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, mapErr(rows.Err())
}
