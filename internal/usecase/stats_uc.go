package usecase

import (
	"context"
	"time"

	"messmate/internal/domain"
	"messmate/internal/domain/model"
	"messmate/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// Dashboard is the admin overview of one mess.
type Dashboard struct {
	MessID          string                         `json:"mess_id"`
	Period          string                         `json:"period"`
	Members         map[model.MembershipStatus]int `json:"members"`
	Payments        map[model.PaymentStatus]int    `json:"payments"`
	Revenue         int64                          `json:"revenue"`
	Outstanding     int64                          `json:"outstanding"`
	PendingRequests int                            `json:"pending_requests"`
}

type StatsUseCase interface {
	// Dashboard counts members by freshly derived status and sums revenue
	// since the start of period ("week", "month" or "year").
	Dashboard(ctx context.Context, adminID, messID, period string) (*Dashboard, error)
}

type statsUC struct {
	subs     repository.SubscriptionRepository
	payments repository.PaymentRepository
	requests repository.SubscriptionRequestRepository
	guard    adminGuard
	cal      Calendar

	log *zerolog.Logger
}

func NewStatsUseCase(
	subs repository.SubscriptionRepository,
	payments repository.PaymentRepository,
	requests repository.SubscriptionRequestRepository,
	messes repository.MessRepository,
	cal Calendar,
	logger *zerolog.Logger,
) StatsUseCase {
	if logger == nil {
		logger = nopLogger()
	}
	return &statsUC{subs: subs, payments: payments, requests: requests, guard: adminGuard{messes: messes}, cal: cal, log: logger}
}

// PeriodStart returns the first day of the period containing today.
func PeriodStart(period string, today time.Time) (time.Time, error) {
	switch period {
	case "", "month":
		return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location()), nil
	case "week":
		// weeks start on Monday
		offset := (int(today.Weekday()) + 6) % 7
		return model.DateOf(today).AddDate(0, 0, -offset), nil
	case "year":
		return time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, today.Location()), nil
	default:
		return time.Time{}, domain.Validationf("unknown period %q", period)
	}
}

func (s *statsUC) Dashboard(ctx context.Context, adminID, messID, period string) (*Dashboard, error) {
	if err := s.guard.require(ctx, adminID, messID); err != nil {
		return nil, err
	}
	today := s.cal.Today()
	since, err := PeriodStart(period, today)
	if err != nil {
		return nil, err
	}
	if period == "" {
		period = "month"
	}

	members, err := s.subs.ListByMess(ctx, repository.NoTX, messID, repository.MemberFilter{})
	if err != nil {
		return nil, err
	}
	d := &Dashboard{
		MessID:   messID,
		Period:   period,
		Members:  map[model.MembershipStatus]int{},
		Payments: map[model.PaymentStatus]int{},
	}
	for _, m := range members {
		m.Refresh(today)
		d.Members[m.MembershipStatus]++
		d.Payments[m.PaymentStatus]++
		if m.Live(today) && !m.Waived && m.Remaining() > 0 {
			d.Outstanding += m.Remaining()
		}
	}
	if d.Revenue, err = s.payments.SumByMessSince(ctx, repository.NoTX, messID, since); err != nil {
		return nil, err
	}
	if d.PendingRequests, err = s.requests.CountPendingByMess(ctx, repository.NoTX, messID); err != nil {
		return nil, err
	}
	return d, nil
}
