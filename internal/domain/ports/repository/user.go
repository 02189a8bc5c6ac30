package repository

import (
	"context"

	"messmate/internal/domain/model"
)

// -----------------------------
// Users
// -----------------------------

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	FindByAuthSubject(ctx context.Context, tx Tx, subject string) (*model.User, error)
}
