package repository

import (
	"context"

	"messmate/internal/domain/model"
)

type SubscriptionRequestRepository interface {
	Save(ctx context.Context, tx Tx, r *model.SubscriptionRequest) error
	// FindByID locks the row when tx is live.
	FindByID(ctx context.Context, tx Tx, id string) (*model.SubscriptionRequest, error)
	FindPendingByUserAndMess(ctx context.Context, tx Tx, userID, messID string) (*model.SubscriptionRequest, error)
	ListByMess(ctx context.Context, tx Tx, messID string, status model.RequestStatus) ([]*model.SubscriptionRequest, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.SubscriptionRequest, error)
	CountPendingByMess(ctx context.Context, tx Tx, messID string) (int, error)
}
