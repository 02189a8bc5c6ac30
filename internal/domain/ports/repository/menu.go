package repository

import (
	"context"
	"time"

	"messmate/internal/domain/model"
)

type MenuRepository interface {
	// Upsert replaces the entry for (mess, date, meal).
	Upsert(ctx context.Context, tx Tx, e *model.MenuEntry) error
	ListByMessAndRange(ctx context.Context, tx Tx, messID string, from, to time.Time) ([]*model.MenuEntry, error)
}
