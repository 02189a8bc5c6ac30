package repository

import (
	"context"

	"messmate/internal/domain/model"
)

// -----------------------------
// Messes and their admins
// -----------------------------

type MessRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Mess, error)
	ListActive(ctx context.Context, tx Tx) ([]*model.Mess, error)
	// IsAdmin reports whether userID administers messID.
	IsAdmin(ctx context.Context, tx Tx, userID, messID string) (bool, error)
}
