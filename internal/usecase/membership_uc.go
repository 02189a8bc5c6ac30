package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"messmate/internal/domain"
	"messmate/internal/domain/model"
	"messmate/internal/domain/ports/adapter"
	"messmate/internal/domain/ports/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// WriteMode selects how CreateOrUpdate treats an existing record of the pair.
type WriteMode string

const (
	// ModeSelfService refuses to touch a live record (DuplicateError).
	ModeSelfService WriteMode = "self_service"
	// ModePayment keeps a live term so a confirmed payment can be credited to it.
	ModePayment WriteMode = "payment"
	// ModeApproval opens a waived term; a live record is a conflict.
	ModeApproval WriteMode = "approval"
	// ModeAdminEnroll always opens a fresh term in place.
	ModeAdminEnroll WriteMode = "admin_enroll"
	// ModeAdminEdit edits an existing record in place, last writer wins.
	ModeAdminEdit WriteMode = "admin_edit"
)

// MembershipInput carries a membership write. Pointer fields are admin
// overrides; nil means "leave as is" (edit) or "use the catalog" (new term).
type MembershipInput struct {
	UserID   string
	MessID   string
	PlanID   model.PlanID
	JoinDate time.Time
	Mode     WriteMode

	TotalDue   *int64
	AmountPaid *int64
	ExpiryDate *time.Time
	IsActive   *bool
}

// PaymentEntry describes one money movement to append to the ledger.
type PaymentEntry struct {
	Amount           int64
	IsAdvance        bool
	Source           model.PaymentSource
	PendingPaymentID *string
	GatewayTxnID     *string
}

// EnrollInput is an admin adding a member, optionally with cash collected up front.
type EnrollInput struct {
	UserID     string
	PlanID     model.PlanID
	JoinDate   time.Time
	TotalDue   *int64
	CashAmount int64
}

// EditInput is an admin edit; nil fields are unchanged.
type EditInput struct {
	PlanID     *model.PlanID
	JoinDate   *time.Time
	ExpiryDate *time.Time
	TotalDue   *int64
	AmountPaid *int64
	IsActive   *bool
}

// MembershipUseCase is the subscription record store plus its admin and member views.
type MembershipUseCase interface {
	// CreateOrUpdate writes the record of (user, mess) according to in.Mode and
	// stores freshly derived statuses. It joins the caller's transaction.
	CreateOrUpdate(ctx context.Context, tx repository.Tx, in MembershipInput) (*model.SubscriptionMember, error)
	// RecordPayment appends a ledger entry and credits the member.
	RecordPayment(ctx context.Context, tx repository.Tx, m *model.SubscriptionMember, e PaymentEntry) (*model.Payment, error)

	Get(ctx context.Context, userID, messID string) (*model.SubscriptionMember, error)
	Payments(ctx context.Context, userID, messID string) ([]*model.Payment, error)

	ListByMess(ctx context.Context, adminID, messID string, f repository.MemberFilter) ([]*model.SubscriptionMember, error)
	Enroll(ctx context.Context, adminID, messID string, in EnrollInput) (*model.SubscriptionMember, error)
	Edit(ctx context.Context, adminID, messID, memberID string, in EditInput) (*model.SubscriptionMember, error)
	Deactivate(ctx context.Context, adminID, messID, memberID string) (*model.SubscriptionMember, error)

	RefreshStale(ctx context.Context, today time.Time) (int, error)
}

var _ MembershipUseCase = (*membershipUC)(nil)

type membershipUC struct {
	subs     repository.SubscriptionRepository
	payments repository.PaymentRepository
	tm       repository.TransactionManager
	guard    adminGuard
	events   adapter.EventPublisher
	cal      Calendar
	log      *zerolog.Logger
}

func NewMembershipUseCase(
	subs repository.SubscriptionRepository,
	payments repository.PaymentRepository,
	messes repository.MessRepository,
	tm repository.TransactionManager,
	events adapter.EventPublisher,
	cal Calendar,
	logger *zerolog.Logger,
) MembershipUseCase {
	if logger == nil {
		logger = nopLogger()
	}
	l := logger.With().Str("component", "MembershipUC").Logger()
	return &membershipUC{
		subs:     subs,
		payments: payments,
		tm:       tm,
		guard:    adminGuard{messes: messes},
		events:   events,
		cal:      cal,
		log:      &l,
	}
}

func (uc *membershipUC) CreateOrUpdate(ctx context.Context, tx repository.Tx, in MembershipInput) (*model.SubscriptionMember, error) {
	if in.UserID == "" || in.MessID == "" {
		return nil, domain.Validationf("user and mess are required")
	}
	if err := validateAmounts(in.TotalDue, in.AmountPaid); err != nil {
		return nil, err
	}
	if err := uc.subs.LockPair(ctx, tx, in.UserID, in.MessID); err != nil {
		return nil, err
	}
	existing, err := uc.subs.FindByUserAndMess(ctx, tx, in.UserID, in.MessID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	today := uc.cal.Today()
	join := in.JoinDate
	if join.IsZero() {
		join = today
	}

	var m *model.SubscriptionMember
	switch in.Mode {
	case ModeAdminEdit:
		if existing == nil {
			return nil, fmt.Errorf("%w: no membership for this user in this mess", domain.ErrNotFound)
		}
		m = existing
		if err := applyEdit(m, in); err != nil {
			return nil, err
		}

	case ModeSelfService, ModePayment, ModeApproval, ModeAdminEnroll:
		plan, err := model.LookupPlan(in.PlanID)
		if err != nil {
			return nil, err
		}
		switch {
		case existing == nil:
			m, err = model.NewSubscriptionMember(uuid.NewString(), in.UserID, in.MessID, plan, join, in.TotalDue)
			if err != nil {
				return nil, err
			}
		case existing.Live(today) && (in.Mode == ModeSelfService || in.Mode == ModeApproval):
			return nil, fmt.Errorf("%w: membership already active for this mess", domain.ErrAlreadyExists)
		case existing.Live(today) && in.Mode == ModePayment:
			// credit the running term
			m = existing
		default:
			m = existing
			m.StartTerm(plan, join, in.TotalDue)
		}
		if in.Mode == ModeApproval {
			m.Waived = true
		}

	default:
		return nil, fmt.Errorf("%w: unknown write mode %q", domain.ErrInvalidArgument, in.Mode)
	}

	m.UpdatedAt = time.Now()
	m.Refresh(today)
	if err := uc.subs.Save(ctx, tx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func validateAmounts(totalDue, amountPaid *int64) error {
	if totalDue != nil && *totalDue < 0 {
		return domain.Validationf("total due cannot be negative")
	}
	if amountPaid != nil && *amountPaid < 0 {
		return domain.Validationf("amount paid cannot be negative")
	}
	return nil
}

// applyEdit mutates m in place. Amounts are taken as given; overpayment is allowed.
func applyEdit(m *model.SubscriptionMember, in MembershipInput) error {
	termChanged := false
	if in.PlanID != "" && in.PlanID != m.PlanID {
		plan, err := model.LookupPlan(in.PlanID)
		if err != nil {
			return err
		}
		m.PlanID = plan.ID
		m.TotalDue = plan.Price
		termChanged = true
	}
	if !in.JoinDate.IsZero() {
		m.JoiningDate = model.DateOf(in.JoinDate)
		termChanged = true
	}
	if termChanged {
		plan, err := model.LookupPlan(m.PlanID)
		if err != nil {
			return err
		}
		exp := plan.Expiry(m.JoiningDate)
		m.ExpiryDate = &exp
	}
	if in.ExpiryDate != nil {
		exp := model.DateOf(*in.ExpiryDate)
		m.ExpiryDate = &exp
	}
	if in.TotalDue != nil {
		m.TotalDue = *in.TotalDue
	}
	if in.AmountPaid != nil {
		m.AmountPaid = *in.AmountPaid
	}
	if in.IsActive != nil {
		m.IsActive = *in.IsActive
	}
	if m.ExpiryDate != nil && m.ExpiryDate.Before(m.JoiningDate) {
		return domain.Validationf("expiry date is before joining date")
	}
	return nil
}

func (uc *membershipUC) RecordPayment(ctx context.Context, tx repository.Tx, m *model.SubscriptionMember, e PaymentEntry) (*model.Payment, error) {
	if m.IsZero() {
		return nil, fmt.Errorf("%w: membership", domain.ErrNotFound)
	}
	if e.Amount <= 0 {
		return nil, domain.Validationf("payment amount must be positive")
	}
	if e.Source == "" {
		e.Source = model.PaymentSourceGateway
	}
	p := &model.Payment{
		ID:                   uuid.NewString(),
		SubscriptionID:       m.ID,
		UserID:               m.UserID,
		MessID:               m.MessID,
		Amount:               e.Amount,
		Status:               model.PendingStatusSuccess,
		IsAdvance:            e.IsAdvance,
		Source:               e.Source,
		PendingPaymentID:     e.PendingPaymentID,
		GatewayTransactionID: e.GatewayTxnID,
		CreatedAt:            time.Now(),
	}
	if err := uc.payments.Append(ctx, tx, p); err != nil {
		return nil, err
	}
	m.ApplyPayment(e.Amount, uc.cal.Today())
	if err := uc.subs.Save(ctx, tx, m); err != nil {
		return nil, err
	}
	return p, nil
}

func (uc *membershipUC) Get(ctx context.Context, userID, messID string) (*model.SubscriptionMember, error) {
	m, err := uc.subs.FindByUserAndMess(ctx, repository.NoTX, userID, messID)
	if err != nil {
		return nil, err
	}
	m.Refresh(uc.cal.Today())
	return m, nil
}

func (uc *membershipUC) Payments(ctx context.Context, userID, messID string) ([]*model.Payment, error) {
	m, err := uc.subs.FindByUserAndMess(ctx, repository.NoTX, userID, messID)
	if err != nil {
		return nil, err
	}
	return uc.payments.ListBySubscription(ctx, repository.NoTX, m.ID)
}

// ListByMess re-derives every row before filtering on status. The store also
// returns rows expired since their cache was written, so a member whose term
// lapsed shows up under the status it has today.
func (uc *membershipUC) ListByMess(ctx context.Context, adminID, messID string, f repository.MemberFilter) ([]*model.SubscriptionMember, error) {
	if err := uc.guard.require(ctx, adminID, messID); err != nil {
		return nil, err
	}
	today := uc.cal.Today()
	f.AsOf = today
	rows, err := uc.subs.ListByMess(ctx, repository.NoTX, messID, f)
	if err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, m := range rows {
		m.Refresh(today)
		if f.MembershipStatus != "" && m.MembershipStatus != f.MembershipStatus {
			continue
		}
		if f.PaymentStatus != "" && m.PaymentStatus != f.PaymentStatus {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (uc *membershipUC) Enroll(ctx context.Context, adminID, messID string, in EnrollInput) (*model.SubscriptionMember, error) {
	if err := uc.guard.require(ctx, adminID, messID); err != nil {
		return nil, err
	}
	if in.CashAmount < 0 {
		return nil, domain.Validationf("cash amount cannot be negative")
	}
	var out *model.SubscriptionMember
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		m, err := uc.CreateOrUpdate(ctx, tx, MembershipInput{
			UserID:   in.UserID,
			MessID:   messID,
			PlanID:   in.PlanID,
			JoinDate: in.JoinDate,
			Mode:     ModeAdminEnroll,
			TotalDue: in.TotalDue,
		})
		if err != nil {
			return err
		}
		if in.CashAmount > 0 {
			if _, err := uc.RecordPayment(ctx, tx, m, PaymentEntry{
				Amount:    in.CashAmount,
				IsAdvance: in.CashAmount < m.TotalDue,
				Source:    model.PaymentSourceCash,
			}); err != nil {
				return err
			}
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("mess_id", messID).Str("member_id", out.ID).Str("admin_id", adminID).Msg("member enrolled")
	uc.announce(ctx, out, "enrolled")
	return out, nil
}

func (uc *membershipUC) Edit(ctx context.Context, adminID, messID, memberID string, in EditInput) (*model.SubscriptionMember, error) {
	if err := uc.guard.require(ctx, adminID, messID); err != nil {
		return nil, err
	}
	mi := MembershipInput{
		MessID:     messID,
		Mode:       ModeAdminEdit,
		TotalDue:   in.TotalDue,
		AmountPaid: in.AmountPaid,
		ExpiryDate: in.ExpiryDate,
		IsActive:   in.IsActive,
	}
	if in.PlanID != nil {
		mi.PlanID = *in.PlanID
	}
	if in.JoinDate != nil {
		mi.JoinDate = *in.JoinDate
	}
	out, err := uc.editByID(ctx, messID, memberID, mi)
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("mess_id", messID).Str("member_id", memberID).Str("admin_id", adminID).Msg("member edited")
	uc.announce(ctx, out, "edited")
	return out, nil
}

func (uc *membershipUC) Deactivate(ctx context.Context, adminID, messID, memberID string) (*model.SubscriptionMember, error) {
	if err := uc.guard.require(ctx, adminID, messID); err != nil {
		return nil, err
	}
	inactive := false
	out, err := uc.editByID(ctx, messID, memberID, MembershipInput{
		MessID:   messID,
		Mode:     ModeAdminEdit,
		IsActive: &inactive,
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("mess_id", messID).Str("member_id", memberID).Str("admin_id", adminID).Msg("member deactivated")
	uc.announce(ctx, out, "deactivated")
	return out, nil
}

func (uc *membershipUC) editByID(ctx context.Context, messID, memberID string, in MembershipInput) (*model.SubscriptionMember, error) {
	var out *model.SubscriptionMember
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		cur, err := uc.subs.FindByID(ctx, tx, memberID)
		if err != nil {
			return err
		}
		if cur.MessID != messID {
			return fmt.Errorf("%w: member %s", domain.ErrNotFound, memberID)
		}
		in.UserID = cur.UserID
		m, err := uc.CreateOrUpdate(ctx, tx, in)
		if err != nil {
			return err
		}
		out = m
		return nil
	})
	return out, err
}

// RefreshStale rewrites cached statuses that drifted because an expiry passed.
// Each row is re-read under the pair lock, so a payment committed after the
// listing is never overwritten by the listed snapshot.
func (uc *membershipUC) RefreshStale(ctx context.Context, today time.Time) (int, error) {
	rows, err := uc.subs.ListStale(ctx, repository.NoTX, today, 500)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, stale := range rows {
		var changed *model.SubscriptionMember
		err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			if err := uc.subs.LockPair(ctx, tx, stale.UserID, stale.MessID); err != nil {
				return err
			}
			m, err := uc.subs.FindByID(ctx, tx, stale.ID)
			if err != nil {
				return err
			}
			ps, ms := m.PaymentStatus, m.MembershipStatus
			m.Refresh(today)
			if ps == m.PaymentStatus && ms == m.MembershipStatus {
				return nil
			}
			m.UpdatedAt = time.Now()
			if err := uc.subs.Save(ctx, tx, m); err != nil {
				return err
			}
			changed = m
			return nil
		})
		if err != nil {
			uc.log.Error().Err(err).Str("member_id", stale.ID).Msg("refresh status failed")
			continue
		}
		if changed != nil {
			n++
			uc.announce(ctx, changed, "expired")
		}
	}
	return n, nil
}

func (uc *membershipUC) announce(ctx context.Context, m *model.SubscriptionMember, reason string) {
	publish(ctx, uc.events, uc.log, adapter.Event{
		Type: adapter.EventMembershipUpdated,
		Key:  m.ID,
		Attributes: map[string]string{
			"reason":            reason,
			"user_id":           m.UserID,
			"mess_id":           m.MessID,
			"payment_status":    string(m.PaymentStatus),
			"membership_status": string(m.MembershipStatus),
		},
	})
}
