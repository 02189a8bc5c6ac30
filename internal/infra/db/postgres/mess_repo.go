package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"messmate/internal/domain/model"
	"messmate/internal/domain/ports/repository"
)

var _ repository.MessRepository = (*messRepo)(nil)

type messRepo struct{ pool *pgxpool.Pool }

func NewMessRepo(pool *pgxpool.Pool) *messRepo {
	return &messRepo{pool: pool}
}

const messColumns = `id, name, address, latitude, longitude, is_active, created_at`

func scanMess(row pgx.Row) (*model.Mess, error) {
	m := &model.Mess{}
	if err := row.Scan(&m.ID, &m.Name, &m.Address, &m.Latitude, &m.Longitude, &m.IsActive, &m.CreatedAt); err != nil {
		return nil, scanErr(err, "mess")
	}
	return m, nil
}

// Save upserts a mess; messes are provisioned by operators, not through the API.
func (r *messRepo) Save(ctx context.Context, tx repository.Tx, m *model.Mess) error {
	const q = `
INSERT INTO messes (` + messColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
  name=$2, address=$3, latitude=$4, longitude=$5, is_active=$6;`
	_, err := execSQL(ctx, r.pool, tx, q, m.ID, m.Name, m.Address, m.Latitude, m.Longitude, m.IsActive, m.CreatedAt)
	return err
}

// AddAdmin grants userID admin capability over messID; repeating it is a no-op.
func (r *messRepo) AddAdmin(ctx context.Context, tx repository.Tx, userID, messID string) error {
	const q = `INSERT INTO mess_admins (user_id, mess_id) VALUES ($1,$2) ON CONFLICT DO NOTHING;`
	_, err := execSQL(ctx, r.pool, tx, q, userID, messID)
	return err
}

func (r *messRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Mess, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+messColumns+` FROM messes WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	return scanMess(row)
}

func (r *messRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Mess, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+messColumns+` FROM messes WHERE is_active ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Mess
	for rows.Next() {
		m, err := scanMess(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, mapErr(rows.Err())
}

func (r *messRepo) IsAdmin(ctx context.Context, tx repository.Tx, userID, messID string) (bool, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT EXISTS (SELECT 1 FROM mess_admins WHERE user_id=$1 AND mess_id=$2)`, userID, messID)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, scanErr(err, "mess admin")
	}
	return ok, nil
}
