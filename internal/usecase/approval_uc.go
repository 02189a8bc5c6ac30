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

// SubmitInput is a member asking for admin-granted access.
type SubmitInput struct {
	UserID   string
	MessID   string
	PlanID   model.PlanID
	JoinDate time.Time
	Message  string
}

// ProcessInput is an admin decision on one request.
type ProcessInput struct {
	RequestID string
	AdminID   string
	Action    model.RequestAction
	Notes     string
}

// ProcessResult carries the request after the decision and, on approval, the membership.
type ProcessResult struct {
	Request *model.SubscriptionRequest
	Member  *model.SubscriptionMember
}

type ApprovalUseCase interface {
	Submit(ctx context.Context, in SubmitInput) (*model.SubscriptionRequest, error)
	Process(ctx context.Context, in ProcessInput) (*ProcessResult, error)
	ListForMess(ctx context.Context, adminID, messID string, status model.RequestStatus) ([]*model.SubscriptionRequest, error)
	ListMine(ctx context.Context, userID string) ([]*model.SubscriptionRequest, error)
}

var _ ApprovalUseCase = (*approvalUC)(nil)

type approvalUC struct {
	requests   repository.SubscriptionRequestRepository
	subs       repository.SubscriptionRepository
	messes     repository.MessRepository
	membership MembershipUseCase
	guard      adminGuard
	tm         repository.TransactionManager
	events     adapter.EventPublisher
	cal        Calendar
	log        *zerolog.Logger
}

func NewApprovalUseCase(
	requests repository.SubscriptionRequestRepository,
	subs repository.SubscriptionRepository,
	messes repository.MessRepository,
	membership MembershipUseCase,
	tm repository.TransactionManager,
	events adapter.EventPublisher,
	cal Calendar,
	logger *zerolog.Logger,
) ApprovalUseCase {
	if logger == nil {
		logger = nopLogger()
	}
	l := logger.With().Str("component", "ApprovalUC").Logger()
	return &approvalUC{
		requests:   requests,
		subs:       subs,
		messes:     messes,
		membership: membership,
		guard:      adminGuard{messes: messes},
		tm:         tm,
		events:     events,
		cal:        cal,
		log:        &l,
	}
}

func (uc *approvalUC) Submit(ctx context.Context, in SubmitInput) (*model.SubscriptionRequest, error) {
	if in.UserID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if _, err := uc.messes.FindByID(ctx, repository.NoTX, in.MessID); err != nil {
		return nil, err
	}
	join := in.JoinDate
	if join.IsZero() {
		join = uc.cal.Today()
	}
	r, err := model.NewSubscriptionRequest(uuid.NewString(), in.UserID, in.MessID, in.PlanID, join, in.Message)
	if err != nil {
		return nil, err
	}

	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		// same lock the membership writers take, so a concurrent submit or payment cannot slip in
		if err := uc.subs.LockPair(ctx, tx, in.UserID, in.MessID); err != nil {
			return err
		}
		if open, err := uc.requests.FindPendingByUserAndMess(ctx, tx, in.UserID, in.MessID); err == nil && open != nil {
			return fmt.Errorf("%w: a request for this mess is already pending", domain.ErrAlreadyExists)
		} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		m, err := uc.subs.FindByUserAndMess(ctx, tx, in.UserID, in.MessID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if m != nil && m.Live(uc.cal.Today()) {
			return fmt.Errorf("%w: membership already active for this mess", domain.ErrAlreadyExists)
		}
		return uc.requests.Save(ctx, tx, r)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("request_id", r.ID).Str("user_id", r.UserID).Str("mess_id", r.MessID).Msg("subscription request submitted")
	return r, nil
}

func (uc *approvalUC) Process(ctx context.Context, in ProcessInput) (*ProcessResult, error) {
	if in.AdminID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if in.Action != model.ActionApprove && in.Action != model.ActionReject {
		return nil, domain.Validationf("action must be approve or reject")
	}

	res := &ProcessResult{}
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		r, err := uc.requests.FindByID(ctx, tx, in.RequestID)
		if err != nil {
			return err
		}
		if err := uc.guard.require(ctx, in.AdminID, r.MessID); err != nil {
			return err
		}

		now := time.Now()
		if in.Action == model.ActionReject {
			if err := r.Reject(in.AdminID, in.Notes, now); err != nil {
				return err
			}
		} else {
			if err := r.Approve(in.AdminID, in.Notes, now); err != nil {
				return err
			}
			m, err := uc.membership.CreateOrUpdate(ctx, tx, MembershipInput{
				UserID:   r.UserID,
				MessID:   r.MessID,
				PlanID:   r.PlanID,
				JoinDate: r.JoinDate,
				Mode:     ModeApproval,
			})
			if err != nil {
				return err
			}
			res.Member = m
		}
		if err := uc.requests.Save(ctx, tx, r); err != nil {
			return err
		}
		res.Request = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	r := res.Request
	uc.log.Info().
		Str("request_id", r.ID).
		Str("mess_id", r.MessID).
		Str("admin_id", in.AdminID).
		Str("status", string(r.Status)).
		Msg("subscription request processed")
	publish(ctx, uc.events, uc.log, adapter.Event{
		Type: adapter.EventRequestProcessed,
		Key:  r.ID,
		Attributes: map[string]string{
			"status":  string(r.Status),
			"user_id": r.UserID,
			"mess_id": r.MessID,
			"plan_id": string(r.PlanID),
			"notes":   r.AdminNotes,
		},
	})
	return res, nil
}

func (uc *approvalUC) ListForMess(ctx context.Context, adminID, messID string, status model.RequestStatus) ([]*model.SubscriptionRequest, error) {
	if err := uc.guard.require(ctx, adminID, messID); err != nil {
		return nil, err
	}
	return uc.requests.ListByMess(ctx, repository.NoTX, messID, status)
}

func (uc *approvalUC) ListMine(ctx context.Context, userID string) ([]*model.SubscriptionRequest, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	return uc.requests.ListByUser(ctx, repository.NoTX, userID)
}
