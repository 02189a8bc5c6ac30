package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"messmate/internal/domain/model"
	"messmate/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

const userColumns = `id, auth_subject, email, name, phone, role, registered_at, last_active_at`

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	if err := row.Scan(&u.ID, &u.AuthSubject, &u.Email, &u.Name, &u.Phone, &u.Role, &u.RegisteredAt, &u.LastActiveAt); err != nil {
		return nil, scanErr(err, "user")
	}
	return u, nil
}

func (r *userRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (` + userColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  email=$3, name=$4, phone=$5, role=$6, last_active_at=$8;`

	_, err := execSQL(ctx, r.pool, tx, q, u.ID, u.AuthSubject, u.Email, u.Name, u.Phone, u.Role, u.RegisteredAt, u.LastActiveAt)
	return err
}

func (r *userRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func (r *userRepo) FindByAuthSubject(ctx context.Context, tx repository.Tx, subject string) (*model.User, error) {
	q := lockClause(`SELECT `+userColumns+` FROM users WHERE auth_subject=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, subject)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}
