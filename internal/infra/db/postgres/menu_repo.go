package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"messmate/internal/domain/model"
	"messmate/internal/domain/ports/repository"
)

var _ repository.MenuRepository = (*menuRepo)(nil)

type menuRepo struct{ pool *pgxpool.Pool }

func NewMenuRepo(pool *pgxpool.Pool) *menuRepo {
	return &menuRepo{pool: pool}
}

func (r *menuRepo) Upsert(ctx context.Context, tx repository.Tx, e *model.MenuEntry) error {
	const q = `
INSERT INTO menu_entries (id, mess_id, menu_date, meal, items, published_by, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (mess_id, menu_date, meal) DO UPDATE SET
  items=EXCLUDED.items, published_by=EXCLUDED.published_by, updated_at=EXCLUDED.updated_at
RETURNING id;`
	row, err := pickRow(ctx, r.pool, tx, q, e.ID, e.MessID, e.Date, e.Meal, e.Items, e.PublishedBy, e.UpdatedAt)
	if err != nil {
		return err
	}
	if err := row.Scan(&e.ID); err != nil {
		return mapErr(err)
	}
	return nil
}

func (r *menuRepo) ListByMessAndRange(ctx context.Context, tx repository.Tx, messID string, from, to time.Time) ([]*model.MenuEntry, error) {
	const q = `SELECT id, mess_id, menu_date, meal, items, published_by, updated_at FROM menu_entries
WHERE mess_id=$1 AND menu_date BETWEEN $2 AND $3
ORDER BY menu_date ASC, CASE meal WHEN 'breakfast' THEN 0 WHEN 'lunch' THEN 1 ELSE 2 END`
	rows, err := queryRows(ctx, r.pool, tx, q, messID, model.DateOf(from), model.DateOf(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.MenuEntry
	for rows.Next() {
		e := new(model.MenuEntry)
		if err := rows.Scan(&e.ID, &e.MessID, &e.Date, &e.Meal, &e.Items, &e.PublishedBy, &e.UpdatedAt); err != nil {
			return nil, scanErr(err, "menu entry")
		}
		out = append(out, e)
	}
	return out, mapErr(rows.Err())
}
