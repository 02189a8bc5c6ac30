package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"messmate/internal/domain"
	"messmate/internal/domain/model"
	"messmate/internal/domain/ports/adapter"
	"messmate/internal/domain/ports/repository"
	portuc "messmate/internal/domain/ports/usecase"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Failure codes recorded on pending payments that were not failed by the gateway itself.
const (
	ReasonAmountMismatch = "AMOUNT_MISMATCH"
	ReasonExpired        = "EXPIRED"
)

// PaymentOptions is the billing policy of the payment flow.
type PaymentOptions struct {
	MinAdvance  int64
	RedirectURL string
	CallbackURL string
}

// CheckoutInput is a member's request to pay for a mess subscription.
// Amount zero means "the plan price" for full payments.
type CheckoutInput struct {
	UserID      string
	MessID      string
	PlanID      model.PlanID
	PaymentType model.PaymentType
	Amount      int64
}

// Checkout is the result of Phase 1.
type Checkout struct {
	Pending    *model.PendingPayment
	PaymentURL string
}

// ResolveResult describes what Phase 2 did. AlreadyResolved is set when the
// checkout had been settled before and nothing was changed.
type ResolveResult struct {
	MerchantTransactionID string
	Status                model.PendingStatus
	AlreadyResolved       bool
	Amount                int64
	Member                *model.SubscriptionMember
	Payment               *model.Payment
}

// PaymentUseCase runs the two-phase checkout against the payment gateway.
type PaymentUseCase interface {
	Initiate(ctx context.Context, in CheckoutInput) (*Checkout, error)
	// Resolve applies a gateway verdict exactly once per checkout.
	Resolve(ctx context.Context, st adapter.TransactionState) (*ResolveResult, error)
	HandleCallback(ctx context.Context, header http.Header, body []byte) (*ResolveResult, error)
	// CheckStatus is the member-facing poll for one of their own checkouts.
	CheckStatus(ctx context.Context, userID, merchantTxnID string) (*ResolveResult, error)

	portuc.PaymentSyncer
}

var _ PaymentUseCase = (*paymentUC)(nil)

type paymentUC struct {
	pending    repository.PendingPaymentRepository
	subs       repository.SubscriptionRepository
	messes     repository.MessRepository
	membership MembershipUseCase
	gateway    adapter.PaymentGateway
	tm         repository.TransactionManager
	events     adapter.EventPublisher
	opts       PaymentOptions
	cal        Calendar
	log        *zerolog.Logger
}

func NewPaymentUseCase(
	pending repository.PendingPaymentRepository,
	subs repository.SubscriptionRepository,
	messes repository.MessRepository,
	membership MembershipUseCase,
	gateway adapter.PaymentGateway,
	tm repository.TransactionManager,
	events adapter.EventPublisher,
	opts PaymentOptions,
	cal Calendar,
	logger *zerolog.Logger,
) PaymentUseCase {
	if logger == nil {
		logger = nopLogger()
	}
	l := logger.With().Str("component", "PaymentUC").Str("gateway", gateway.Name()).Logger()
	return &paymentUC{
		pending:    pending,
		subs:       subs,
		messes:     messes,
		membership: membership,
		gateway:    gateway,
		tm:         tm,
		events:     events,
		opts:       opts,
		cal:        cal,
		log:        &l,
	}
}

// NewMerchantTransactionID returns "MT" followed by a ULID: unique, sortable
// and within the gateway's 35 character limit.
func NewMerchantTransactionID() string {
	return "MT" + ulid.Make().String()
}

func (uc *paymentUC) Initiate(ctx context.Context, in CheckoutInput) (*Checkout, error) {
	if in.UserID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if in.MessID == "" {
		return nil, domain.Validationf("mess is required")
	}
	mess, err := uc.messes.FindByID(ctx, repository.NoTX, in.MessID)
	if err != nil {
		return nil, err
	}
	if !mess.IsActive {
		return nil, domain.Validationf("mess %s is not accepting members", in.MessID)
	}
	if !in.PaymentType.Valid() {
		return nil, domain.Validationf("unknown payment type %q", in.PaymentType)
	}

	existing, err := uc.subs.FindByUserAndMess(ctx, repository.NoTX, in.UserID, in.MessID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	live := existing != nil && existing.Live(uc.cal.Today())

	planID, amount, err := uc.checkAmount(in, existing, live)
	if err != nil {
		return nil, err
	}

	p, err := model.NewPendingPayment(uuid.NewString(), NewMerchantTransactionID(), in.UserID, in.MessID, planID, amount, in.PaymentType)
	if err != nil {
		return nil, err
	}
	if err := uc.pending.Save(ctx, repository.NoTX, p); err != nil {
		return nil, err
	}

	sess, err := uc.gateway.Initiate(ctx, adapter.CheckoutRequest{
		MerchantTransactionID: p.MerchantTransactionID,
		MerchantUserID:        in.UserID,
		Amount:                amount,
		RedirectURL:           uc.opts.RedirectURL,
		CallbackURL:           uc.opts.CallbackURL,
	})
	if err != nil {
		// The gateway never saw a session we can resolve; drop the row. If that
		// fails too the reconciler will expire it.
		if derr := uc.pending.Delete(context.WithoutCancel(ctx), repository.NoTX, p.ID); derr != nil {
			uc.log.Error().Err(derr).Str("txn_id", p.MerchantTransactionID).Msg("could not discard pending payment after gateway failure")
		}
		uc.log.Warn().Err(err).Str("txn_id", p.MerchantTransactionID).Msg("checkout initiation failed")
		var gerr *domain.GatewayError
		if errors.As(err, &gerr) {
			return nil, err
		}
		return nil, &domain.GatewayError{Op: "initiate", Retryable: true, Err: err}
	}

	uc.log.Info().
		Str("txn_id", p.MerchantTransactionID).
		Str("user_id", in.UserID).
		Str("mess_id", in.MessID).
		Int64("amount", amount).
		Str("type", string(in.PaymentType)).
		Msg("checkout initiated")
	return &Checkout{Pending: p, PaymentURL: sess.PaymentURL}, nil
}

// checkAmount applies the billing rules and returns the plan and amount to charge.
func (uc *paymentUC) checkAmount(in CheckoutInput, existing *model.SubscriptionMember, live bool) (model.PlanID, int64, error) {
	switch in.PaymentType {
	case model.PaymentTypeRemaining:
		if !live {
			return "", 0, fmt.Errorf("%w: no running membership to pay the balance of", domain.ErrNotFound)
		}
		remaining := existing.Remaining()
		if remaining <= 0 {
			return "", 0, domain.Validationf("nothing left to pay")
		}
		amount := in.Amount
		if amount == 0 {
			amount = remaining
		}
		floor := min(uc.opts.MinAdvance, remaining)
		if amount < floor {
			return "", 0, domain.Validationf("payment must be at least %d", floor)
		}
		if amount > remaining {
			return "", 0, domain.Validationf("payment of %d exceeds the remaining %d", amount, remaining)
		}
		return existing.PlanID, amount, nil

	default:
		plan, err := model.LookupPlan(in.PlanID)
		if err != nil {
			return "", 0, err
		}
		if live {
			return "", 0, fmt.Errorf("%w: membership already active for this mess", domain.ErrAlreadyExists)
		}
		amount := in.Amount
		if in.PaymentType == model.PaymentTypeFull {
			if amount == 0 {
				amount = plan.Price
			}
			if amount != plan.Price {
				return "", 0, domain.Validationf("full payment must be %d", plan.Price)
			}
			return plan.ID, amount, nil
		}
		if amount < uc.opts.MinAdvance {
			return "", 0, domain.Validationf("advance must be at least %d", uc.opts.MinAdvance)
		}
		if amount > plan.Price {
			return "", 0, domain.Validationf("advance of %d exceeds the plan price %d", amount, plan.Price)
		}
		return plan.ID, amount, nil
	}
}

func (uc *paymentUC) Resolve(ctx context.Context, st adapter.TransactionState) (*ResolveResult, error) {
	if st.MerchantTransactionID == "" {
		return nil, domain.Validationf("merchant transaction id is required")
	}
	res := &ResolveResult{MerchantTransactionID: st.MerchantTransactionID, Status: model.PendingStatusPending}

	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := uc.pending.FindByMerchantTxnID(ctx, tx, st.MerchantTransactionID)
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: %s", domain.ErrUnknownTransaction, st.MerchantTransactionID)
		}
		if err != nil {
			return err
		}
		res.Amount = p.Amount
		if p.Resolved() {
			res.Status = p.Status
			res.AlreadyResolved = true
			return nil
		}

		outcome, reason := st.Outcome, st.Code
		if outcome == adapter.OutcomeSuccess && st.Amount != 0 && st.Amount != p.Amount {
			outcome, reason = adapter.OutcomeFailed, ReasonAmountMismatch
		}

		var gwTxn *string
		if st.GatewayTransactionID != "" {
			gwTxn = &st.GatewayTransactionID
		}
		now := time.Now()

		switch outcome {
		case adapter.OutcomePending:
			return nil

		case adapter.OutcomeSuccess:
			ok, err := uc.pending.ResolveIfPending(ctx, tx, p.ID, model.PendingStatusSuccess, gwTxn, nil, now)
			if err != nil {
				return err
			}
			if !ok {
				res.Status = model.PendingStatusSuccess
				res.AlreadyResolved = true
				return nil
			}
			m, err := uc.membership.CreateOrUpdate(ctx, tx, MembershipInput{
				UserID:   p.UserID,
				MessID:   p.MessID,
				PlanID:   p.PlanID,
				JoinDate: uc.cal.DayOf(p.CreatedAt),
				Mode:     ModePayment,
			})
			if err != nil {
				return err
			}
			pay, err := uc.membership.RecordPayment(ctx, tx, m, PaymentEntry{
				Amount:           p.Amount,
				IsAdvance:        p.PaymentType == model.PaymentTypeAdvance,
				Source:           model.PaymentSourceGateway,
				PendingPaymentID: &p.ID,
				GatewayTxnID:     gwTxn,
			})
			if err != nil {
				return err
			}
			res.Status = model.PendingStatusSuccess
			res.Member = m
			res.Payment = pay
			return nil

		default:
			if reason == "" {
				reason = "PAYMENT_ERROR"
			}
			ok, err := uc.pending.ResolveIfPending(ctx, tx, p.ID, model.PendingStatusFailed, gwTxn, &reason, now)
			if err != nil {
				return err
			}
			res.Status = model.PendingStatusFailed
			res.AlreadyResolved = !ok
			return nil
		}
	})
	if err != nil {
		return nil, err
	}

	if res.AlreadyResolved {
		uc.log.Debug().Str("txn_id", res.MerchantTransactionID).Str("status", string(res.Status)).Msg("duplicate resolution ignored")
		return res, nil
	}
	if res.Status == model.PendingStatusPending {
		return res, nil
	}

	uc.log.Info().
		Str("txn_id", res.MerchantTransactionID).
		Str("status", string(res.Status)).
		Str("code", st.Code).
		Int64("amount", res.Amount).
		Msg("payment resolved")
	attrs := map[string]string{
		"status": string(res.Status),
		"amount": strconv.FormatInt(res.Amount, 10),
		"code":   st.Code,
	}
	if res.Member != nil {
		attrs["user_id"] = res.Member.UserID
		attrs["mess_id"] = res.Member.MessID
		attrs["payment_status"] = string(res.Member.PaymentStatus)
		attrs["membership_status"] = string(res.Member.MembershipStatus)
	}
	publish(ctx, uc.events, uc.log, adapter.Event{
		Type:       adapter.EventPaymentResolved,
		Key:        res.MerchantTransactionID,
		Attributes: attrs,
	})
	return res, nil
}

func (uc *paymentUC) HandleCallback(ctx context.Context, header http.Header, body []byte) (*ResolveResult, error) {
	st, err := uc.gateway.ParseCallback(header, body)
	if err != nil {
		return nil, err
	}
	return uc.Resolve(ctx, st)
}

func (uc *paymentUC) CheckStatus(ctx context.Context, userID, merchantTxnID string) (*ResolveResult, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	p, err := uc.pending.FindByMerchantTxnID(ctx, repository.NoTX, merchantTxnID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownTransaction, merchantTxnID)
	}
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, fmt.Errorf("%w: transaction belongs to another user", domain.ErrForbidden)
	}

	var res *ResolveResult
	if p.Resolved() {
		res = &ResolveResult{MerchantTransactionID: p.MerchantTransactionID, Status: p.Status, AlreadyResolved: true, Amount: p.Amount}
	} else {
		st, err := uc.gateway.CheckStatus(ctx, merchantTxnID)
		if err != nil {
			return nil, err
		}
		st.MerchantTransactionID = merchantTxnID
		if res, err = uc.Resolve(ctx, st); err != nil {
			return nil, err
		}
	}

	if res.Status == model.PendingStatusSuccess && res.Member == nil {
		m, err := uc.subs.FindByUserAndMess(ctx, repository.NoTX, p.UserID, p.MessID)
		if err == nil {
			m.Refresh(uc.cal.Today())
			res.Member = m
		}
	}
	return res, nil
}

func (uc *paymentUC) Stuck(ctx context.Context, olderThan time.Time, limit int) ([]*model.PendingPayment, error) {
	return uc.pending.ListPendingOlderThan(ctx, repository.NoTX, olderThan, limit)
}

// Sync polls the gateway for one checkout. With giveUp, a checkout the gateway
// still reports as pending, or cannot report on at all, is marked failed.
// The boolean is true when a callback or poll had already settled it.
func (uc *paymentUC) Sync(ctx context.Context, merchantTxnID string, giveUp bool) (bool, error) {
	st, err := uc.gateway.CheckStatus(ctx, merchantTxnID)
	switch {
	case err != nil && !giveUp:
		return false, err
	case err != nil && domain.IsRetryable(err):
		// gateway outage; try again next round rather than fail a possibly paid checkout
		return false, err
	case err != nil:
		uc.log.Warn().Err(err).Str("txn_id", merchantTxnID).Msg("giving up on unconfirmable checkout")
		st = adapter.TransactionState{Outcome: adapter.OutcomeFailed, Code: ReasonExpired}
	case giveUp && st.Outcome == adapter.OutcomePending:
		st.Outcome, st.Code = adapter.OutcomeFailed, ReasonExpired
	}
	st.MerchantTransactionID = merchantTxnID
	res, err := uc.Resolve(ctx, st)
	if err != nil {
		return false, err
	}
	return res.AlreadyResolved, nil
}
