package usecase

import (
	"context"
	"errors"
	"strings"

	"messmate/internal/domain"
	"messmate/internal/domain/model"
	"messmate/internal/domain/ports/repository"
	"messmate/internal/infra/logging"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

// UserUseCase maps identity-provider subjects to local users.
type UserUseCase interface {
	// EnsureUser registers the subject on first sight and refreshes profile
	// fields and last activity afterwards.
	EnsureUser(ctx context.Context, subject, email, name string) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
}

type userUC struct {
	users repository.UserRepository
	tm    repository.TransactionManager
	log   *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, tm repository.TransactionManager, logger *zerolog.Logger) UserUseCase {
	if logger == nil {
		logger = nopLogger()
	}
	return &userUC{users: users, tm: tm, log: logger}
}

func (u *userUC) EnsureUser(ctx context.Context, subject, email, name string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.EnsureUser")()
	if strings.TrimSpace(subject) == "" {
		return nil, domain.ErrUnauthenticated
	}

	var user *model.User
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		usr, err := u.users.FindByAuthSubject(ctx, tx, subject)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if usr != nil {
			if e := strings.ToLower(strings.TrimSpace(email)); e != "" {
				usr.Email = e
			}
			if n := strings.TrimSpace(name); n != "" {
				usr.Name = n
			}
			usr.Touch()
			if err := u.users.Save(ctx, tx, usr); err != nil {
				u.log.Error().Err(err).Str("user_id", usr.ID).Msg("failed to update user")
				return err
			}
			user = usr
			return nil
		}

		nu, err := model.NewUser("", subject, email, name)
		if err != nil {
			return err
		}
		if err := u.users.Save(ctx, tx, nu); err != nil {
			return err
		}
		u.log.Info().Str("user_id", nu.ID).Msg("user registered")
		user = nu
		return nil
	})
	return user, err
}

func (u *userUC) Get(ctx context.Context, id string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.Get")()
	return u.users.FindByID(ctx, repository.NoTX, id)
}
