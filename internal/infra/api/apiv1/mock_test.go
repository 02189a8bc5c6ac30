//go:build !integration

package apiv1_test

import (
	"context"
	"net/http"
	"time"

	"messmate/internal/domain"
	"messmate/internal/domain/model"
	"messmate/internal/domain/ports/adapter"
	"messmate/internal/domain/ports/repository"
	"messmate/internal/usecase"
)

// Func-field fakes: a nil field answers with ErrNotFound (or an empty value).

type fakeUsers struct {
	EnsureUserFunc func(ctx context.Context, subject, email, name string) (*model.User, error)
}

func (f *fakeUsers) EnsureUser(ctx context.Context, subject, email, name string) (*model.User, error) {
	if f.EnsureUserFunc != nil {
		return f.EnsureUserFunc(ctx, subject, email, name)
	}
	return &model.User{ID: "user-" + subject, AuthSubject: subject, Email: email, Name: name}, nil
}

func (f *fakeUsers) Get(ctx context.Context, id string) (*model.User, error) {
	return nil, domain.ErrNotFound
}

type fakeMesses struct {
	ListFunc func(ctx context.Context) ([]*model.Mess, error)
	GetFunc  func(ctx context.Context, id string) (*model.Mess, error)
}

func (f *fakeMesses) List(ctx context.Context) ([]*model.Mess, error) {
	if f.ListFunc != nil {
		return f.ListFunc(ctx)
	}
	return nil, nil
}

func (f *fakeMesses) Get(ctx context.Context, id string) (*model.Mess, error) {
	if f.GetFunc != nil {
		return f.GetFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

type fakeMenus struct {
	PublishFunc  func(ctx context.Context, adminID, messID string, in []usecase.PublishInput) ([]*model.MenuEntry, error)
	ForRangeFunc func(ctx context.Context, messID string, from time.Time, days int) ([]*model.MenuEntry, error)
}

func (f *fakeMenus) Publish(ctx context.Context, adminID, messID string, in []usecase.PublishInput) ([]*model.MenuEntry, error) {
	if f.PublishFunc != nil {
		return f.PublishFunc(ctx, adminID, messID, in)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeMenus) ForRange(ctx context.Context, messID string, from time.Time, days int) ([]*model.MenuEntry, error) {
	if f.ForRangeFunc != nil {
		return f.ForRangeFunc(ctx, messID, from, days)
	}
	return nil, domain.ErrNotFound
}

type fakePayments struct {
	InitiateFunc       func(ctx context.Context, in usecase.CheckoutInput) (*usecase.Checkout, error)
	HandleCallbackFunc func(ctx context.Context, header http.Header, body []byte) (*usecase.ResolveResult, error)
	CheckStatusFunc    func(ctx context.Context, userID, txnID string) (*usecase.ResolveResult, error)
}

func (f *fakePayments) Initiate(ctx context.Context, in usecase.CheckoutInput) (*usecase.Checkout, error) {
	if f.InitiateFunc != nil {
		return f.InitiateFunc(ctx, in)
	}
	return nil, domain.ErrNotFound
}

func (f *fakePayments) Resolve(ctx context.Context, st adapter.TransactionState) (*usecase.ResolveResult, error) {
	return nil, domain.ErrUnknownTransaction
}

func (f *fakePayments) HandleCallback(ctx context.Context, header http.Header, body []byte) (*usecase.ResolveResult, error) {
	if f.HandleCallbackFunc != nil {
		return f.HandleCallbackFunc(ctx, header, body)
	}
	return nil, domain.ErrInvalidSignature
}

func (f *fakePayments) CheckStatus(ctx context.Context, userID, txnID string) (*usecase.ResolveResult, error) {
	if f.CheckStatusFunc != nil {
		return f.CheckStatusFunc(ctx, userID, txnID)
	}
	return nil, domain.ErrUnknownTransaction
}

func (f *fakePayments) Stuck(ctx context.Context, olderThan time.Time, limit int) ([]*model.PendingPayment, error) {
	return nil, nil
}

func (f *fakePayments) Sync(ctx context.Context, txnID string, giveUp bool) (bool, error) {
	return false, nil
}

type fakeMembership struct {
	GetFunc        func(ctx context.Context, userID, messID string) (*model.SubscriptionMember, error)
	PaymentsFunc   func(ctx context.Context, userID, messID string) ([]*model.Payment, error)
	ListByMessFunc func(ctx context.Context, adminID, messID string, f repository.MemberFilter) ([]*model.SubscriptionMember, error)
	EnrollFunc     func(ctx context.Context, adminID, messID string, in usecase.EnrollInput) (*model.SubscriptionMember, error)
	EditFunc       func(ctx context.Context, adminID, messID, memberID string, in usecase.EditInput) (*model.SubscriptionMember, error)
	DeactivateFunc func(ctx context.Context, adminID, messID, memberID string) (*model.SubscriptionMember, error)
}

func (f *fakeMembership) CreateOrUpdate(ctx context.Context, tx repository.Tx, in usecase.MembershipInput) (*model.SubscriptionMember, error) {
	return nil, domain.ErrInvalidExecContext
}

func (f *fakeMembership) RecordPayment(ctx context.Context, tx repository.Tx, m *model.SubscriptionMember, e usecase.PaymentEntry) (*model.Payment, error) {
	return nil, domain.ErrInvalidExecContext
}

func (f *fakeMembership) Get(ctx context.Context, userID, messID string) (*model.SubscriptionMember, error) {
	if f.GetFunc != nil {
		return f.GetFunc(ctx, userID, messID)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeMembership) Payments(ctx context.Context, userID, messID string) ([]*model.Payment, error) {
	if f.PaymentsFunc != nil {
		return f.PaymentsFunc(ctx, userID, messID)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeMembership) ListByMess(ctx context.Context, adminID, messID string, flt repository.MemberFilter) ([]*model.SubscriptionMember, error) {
	if f.ListByMessFunc != nil {
		return f.ListByMessFunc(ctx, adminID, messID, flt)
	}
	return nil, domain.ErrForbidden
}

func (f *fakeMembership) Enroll(ctx context.Context, adminID, messID string, in usecase.EnrollInput) (*model.SubscriptionMember, error) {
	if f.EnrollFunc != nil {
		return f.EnrollFunc(ctx, adminID, messID, in)
	}
	return nil, domain.ErrForbidden
}

func (f *fakeMembership) Edit(ctx context.Context, adminID, messID, memberID string, in usecase.EditInput) (*model.SubscriptionMember, error) {
	if f.EditFunc != nil {
		return f.EditFunc(ctx, adminID, messID, memberID, in)
	}
	return nil, domain.ErrForbidden
}

func (f *fakeMembership) Deactivate(ctx context.Context, adminID, messID, memberID string) (*model.SubscriptionMember, error) {
	if f.DeactivateFunc != nil {
		return f.DeactivateFunc(ctx, adminID, messID, memberID)
	}
	return nil, domain.ErrForbidden
}

func (f *fakeMembership) RefreshStale(ctx context.Context, today time.Time) (int, error) {
	return 0, nil
}

type fakeApprovals struct {
	SubmitFunc      func(ctx context.Context, in usecase.SubmitInput) (*model.SubscriptionRequest, error)
	ProcessFunc     func(ctx context.Context, in usecase.ProcessInput) (*usecase.ProcessResult, error)
	ListForMessFunc func(ctx context.Context, adminID, messID string, status model.RequestStatus) ([]*model.SubscriptionRequest, error)
	ListMineFunc    func(ctx context.Context, userID string) ([]*model.SubscriptionRequest, error)
}

func (f *fakeApprovals) Submit(ctx context.Context, in usecase.SubmitInput) (*model.SubscriptionRequest, error) {
	if f.SubmitFunc != nil {
		return f.SubmitFunc(ctx, in)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeApprovals) Process(ctx context.Context, in usecase.ProcessInput) (*usecase.ProcessResult, error) {
	if f.ProcessFunc != nil {
		return f.ProcessFunc(ctx, in)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeApprovals) ListForMess(ctx context.Context, adminID, messID string, status model.RequestStatus) ([]*model.SubscriptionRequest, error) {
	if f.ListForMessFunc != nil {
		return f.ListForMessFunc(ctx, adminID, messID, status)
	}
	return nil, domain.ErrForbidden
}

func (f *fakeApprovals) ListMine(ctx context.Context, userID string) ([]*model.SubscriptionRequest, error) {
	if f.ListMineFunc != nil {
		return f.ListMineFunc(ctx, userID)
	}
	return nil, nil
}

type fakeStats struct {
	DashboardFunc func(ctx context.Context, adminID, messID, period string) (*usecase.Dashboard, error)
}

func (f *fakeStats) Dashboard(ctx context.Context, adminID, messID, period string) (*usecase.Dashboard, error) {
	if f.DashboardFunc != nil {
		return f.DashboardFunc(ctx, adminID, messID, period)
	}
	return nil, domain.ErrForbidden
}

type fakeLimiter struct {
	hits  map[string]int
	err   error
	calls int
}

func (f *fakeLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	if f.hits == nil {
		f.hits = map[string]int{}
	}
	f.hits[key]++
	return f.hits[key] <= limit, nil
}
