package usecase

import (
	"context"
	"fmt"
	"time"

	"messmate/internal/domain"
	"messmate/internal/domain/model"
	"messmate/internal/domain/ports/adapter"
	"messmate/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// Clock returns the current instant. Use cases derive "today" from it in the
// configured business timezone.
type Clock func() time.Time

// Calendar turns instants into business days.
type Calendar struct {
	Now Clock
	Loc *time.Location
}

func (c Calendar) now() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Loc
	if loc == nil {
		loc = time.UTC
	}
	return now().In(loc)
}

// Today is midnight of the current business day.
func (c Calendar) Today() time.Time {
	return model.DateOf(c.now())
}

// DayOf is the business day t falls on.
func (c Calendar) DayOf(t time.Time) time.Time {
	loc := c.Loc
	if loc == nil {
		loc = time.UTC
	}
	return model.DateOf(t.In(loc))
}

// adminGuard checks mess-scoped admin capability.
type adminGuard struct {
	messes repository.MessRepository
}

func (g adminGuard) require(ctx context.Context, userID, messID string) error {
	if userID == "" {
		return domain.ErrUnauthenticated
	}
	ok, err := g.messes.IsAdmin(ctx, repository.NoTX, userID, messID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: not an admin of mess %s", domain.ErrForbidden, messID)
	}
	return nil
}

// publish sends e and only logs on failure; business state is already committed.
func publish(ctx context.Context, pub adapter.EventPublisher, log *zerolog.Logger, e adapter.Event) {
	if pub == nil {
		return
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	if err := pub.Publish(ctx, e); err != nil && log != nil {
		log.Warn().Err(err).Str("event", e.Type).Str("key", e.Key).Msg("event publish failed")
	}
}

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
