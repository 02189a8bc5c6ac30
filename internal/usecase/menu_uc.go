package usecase

import (
	"context"
	"time"

	"messmate/internal/domain"
	"messmate/internal/domain/model"
	"messmate/internal/domain/ports/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MaxMenuDays bounds a single menu read.
const MaxMenuDays = 14

// PublishInput is one meal of one day.
type PublishInput struct {
	Date  time.Time
	Meal  model.Meal
	Items []string
}

var _ MenuUseCase = (*menuUC)(nil)

type MenuUseCase interface {
	Publish(ctx context.Context, adminID, messID string, in []PublishInput) ([]*model.MenuEntry, error)
	// ForRange returns the menu of days consecutive days starting at from.
	ForRange(ctx context.Context, messID string, from time.Time, days int) ([]*model.MenuEntry, error)
}

type menuUC struct {
	menus  repository.MenuRepository
	messes repository.MessRepository
	guard  adminGuard
	cal    Calendar
	log    *zerolog.Logger
}

func NewMenuUseCase(menus repository.MenuRepository, messes repository.MessRepository, cal Calendar, logger *zerolog.Logger) MenuUseCase {
	if logger == nil {
		logger = nopLogger()
	}
	l := logger.With().Str("component", "MenuUC").Logger()
	return &menuUC{menus: menus, messes: messes, guard: adminGuard{messes: messes}, cal: cal, log: &l}
}

func (uc *menuUC) Publish(ctx context.Context, adminID, messID string, in []PublishInput) ([]*model.MenuEntry, error) {
	if err := uc.guard.require(ctx, adminID, messID); err != nil {
		return nil, err
	}
	if len(in) == 0 {
		return nil, domain.Validationf("nothing to publish")
	}
	entries := make([]*model.MenuEntry, 0, len(in))
	for _, it := range in {
		date := it.Date
		if date.IsZero() {
			date = uc.cal.Today()
		}
		e, err := model.NewMenuEntry(uuid.NewString(), messID, date, it.Meal, it.Items, adminID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	for _, e := range entries {
		if err := uc.menus.Upsert(ctx, repository.NoTX, e); err != nil {
			return nil, err
		}
	}
	uc.log.Info().Str("mess_id", messID).Str("admin_id", adminID).Int("entries", len(entries)).Msg("menu published")
	return entries, nil
}

func (uc *menuUC) ForRange(ctx context.Context, messID string, from time.Time, days int) ([]*model.MenuEntry, error) {
	if days <= 0 {
		days = 1
	}
	if days > MaxMenuDays {
		return nil, domain.Validationf("at most %d days per request", MaxMenuDays)
	}
	if from.IsZero() {
		from = uc.cal.Today()
	}
	if _, err := uc.messes.FindByID(ctx, repository.NoTX, messID); err != nil {
		return nil, err
	}
	start := model.DateOf(from)
	return uc.menus.ListByMessAndRange(ctx, repository.NoTX, messID, start, start.AddDate(0, 0, days-1))
}
