package usecase

import (
	"context"

	"messmate/internal/domain/model"
	"messmate/internal/domain/ports/repository"
)

var _ MessUseCase = (*messUC)(nil)

// MessUseCase is the public mess directory.
type MessUseCase interface {
	List(ctx context.Context) ([]*model.Mess, error)
	Get(ctx context.Context, id string) (*model.Mess, error)
}

type messUC struct {
	messes repository.MessRepository
}

func NewMessUseCase(messes repository.MessRepository) MessUseCase {
	return &messUC{messes: messes}
}

func (uc *messUC) List(ctx context.Context) ([]*model.Mess, error) {
	return uc.messes.ListActive(ctx, repository.NoTX)
}

func (uc *messUC) Get(ctx context.Context, id string) (*model.Mess, error) {
	return uc.messes.FindByID(ctx, repository.NoTX, id)
}
