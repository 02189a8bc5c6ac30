//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"messmate/internal/domain"
	"messmate/internal/domain/model"
	"messmate/internal/domain/ports/adapter"
	"messmate/internal/domain/ports/repository"
	"messmate/internal/usecase"
)

// =============================
// Transactions
// =============================

// txAware repos can snapshot their tables so MockTxManager can roll back.
type txAware interface {
	snapshot() (restore func())
}

type mockTx struct{}

// MockTxManager serializes transactions and restores every registered repo
// when fn fails, which is close enough to a real database for these tests.
type MockTxManager struct {
	mu    sync.Mutex
	repos []txAware

	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
	Calls      int
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager(repos ...txAware) *MockTxManager {
	return &MockTxManager{repos: repos}
}

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	restores := make([]func(), 0, len(m.repos))
	for _, r := range m.repos {
		restores = append(restores, r.snapshot())
	}
	if err := fn(ctx, &mockTx{}); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}

// =============================
// Repositories
// =============================

// ---- Mock UserRepository ----

type MockUserRepo struct {
	mu   sync.Mutex
	data map[string]model.User

	SaveFunc func(ctx context.Context, tx repository.Tx, u *model.User) error
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo { return &MockUserRepo{data: map[string]model.User{}} }

func (r *MockUserRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make(map[string]model.User, len(r.data))
	for k, v := range r.data {
		cp[k] = v
	}
	return func() { r.mu.Lock(); r.data = cp; r.mu.Unlock() }
}

func (r *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, u)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[u.ID] = *u
	return nil
}

func (r *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.data[id]; ok {
		return &u, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockUserRepo) FindByAuthSubject(ctx context.Context, tx repository.Tx, subject string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.data {
		if u.AuthSubject == subject {
			cp := u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ---- Mock MessRepository ----

type MockMessRepo struct {
	mu     sync.Mutex
	data   map[string]model.Mess
	admins map[string]bool // userID|messID

	IsAdminFunc func(ctx context.Context, tx repository.Tx, userID, messID string) (bool, error)
}

var _ repository.MessRepository = (*MockMessRepo)(nil)

func NewMockMessRepo() *MockMessRepo {
	return &MockMessRepo{data: map[string]model.Mess{}, admins: map[string]bool{}}
}

func (r *MockMessRepo) Add(m model.Mess, admins ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[m.ID] = m
	for _, a := range admins {
		r.admins[a+"|"+m.ID] = true
	}
}

func (r *MockMessRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Mess, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.data[id]; ok {
		return &m, nil
	}
	return nil, fmt.Errorf("%w: mess %s", domain.ErrNotFound, id)
}

func (r *MockMessRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Mess, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Mess
	for _, m := range r.data {
		if m.IsActive {
			cp := m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MockMessRepo) IsAdmin(ctx context.Context, tx repository.Tx, userID, messID string) (bool, error) {
	if r.IsAdminFunc != nil {
		return r.IsAdminFunc(ctx, tx, userID, messID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.admins[userID+"|"+messID], nil
}

// ---- Mock SubscriptionRepository ----

type MockSubscriptionRepo struct {
	mu   sync.Mutex
	data map[string]model.SubscriptionMember // by id

	SaveFunc func(ctx context.Context, tx repository.Tx, m *model.SubscriptionMember) error
	// AfterListStale runs once the stale listing is taken, before it is returned.
	AfterListStale func()
	Locks          int
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{data: map[string]model.SubscriptionMember{}}
}

func (r *MockSubscriptionRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make(map[string]model.SubscriptionMember, len(r.data))
	for k, v := range r.data {
		cp[k] = v
	}
	return func() { r.mu.Lock(); r.data = cp; r.mu.Unlock() }
}

func (r *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, m *model.SubscriptionMember) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, m)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, cur := range r.data {
		if id != m.ID && cur.UserID == m.UserID && cur.MessID == m.MessID {
			return domain.ErrAlreadyExists
		}
	}
	r.data[m.ID] = *m
	return nil
}

func (r *MockSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.data[id]; ok {
		return &m, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) FindByUserAndMess(ctx context.Context, tx repository.Tx, userID, messID string) (*model.SubscriptionMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.data {
		if m.UserID == userID && m.MessID == messID {
			cp := m
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) ListByMess(ctx context.Context, tx repository.Tx, messID string, f repository.MemberFilter) ([]*model.SubscriptionMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.SubscriptionMember
	for _, m := range r.data {
		if m.MessID != messID {
			continue
		}
		expired := !f.AsOf.IsZero() && m.ExpiryDate != nil && m.ExpiryDate.Before(model.DateOf(f.AsOf))
		if f.MembershipStatus != "" && m.MembershipStatus != f.MembershipStatus && !expired {
			continue
		}
		if f.PaymentStatus != "" && m.PaymentStatus != f.PaymentStatus && !expired {
			continue
		}
		cp := m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MockSubscriptionRepo) ListStale(ctx context.Context, tx repository.Tx, today time.Time, limit int) ([]*model.SubscriptionMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.SubscriptionMember
	for _, m := range r.data {
		if m.ExpiryDate != nil && m.ExpiryDate.Before(today) &&
			(m.PaymentStatus != model.PaymentStatusDue || m.MembershipStatus != model.MembershipInactive) {
			cp := m
			out = append(out, &cp)
		}
	}
	if r.AfterListStale != nil {
		r.mu.Unlock()
		r.AfterListStale()
		r.mu.Lock()
	}
	return out, nil
}

func (r *MockSubscriptionRepo) LockPair(ctx context.Context, tx repository.Tx, userID, messID string) error {
	if tx == nil {
		return domain.ErrInvalidExecContext
	}
	r.mu.Lock()
	r.Locks++
	r.mu.Unlock()
	return nil
}

// Put seeds a record directly.
func (r *MockSubscriptionRepo) Put(m model.SubscriptionMember) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[m.ID] = m
}

// ---- Mock PendingPaymentRepository ----

type MockPendingRepo struct {
	mu   sync.Mutex
	data map[string]model.PendingPayment // by id

	DeleteFunc func(ctx context.Context, tx repository.Tx, id string) error
}

var _ repository.PendingPaymentRepository = (*MockPendingRepo)(nil)

func NewMockPendingRepo() *MockPendingRepo {
	return &MockPendingRepo{data: map[string]model.PendingPayment{}}
}

func (r *MockPendingRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make(map[string]model.PendingPayment, len(r.data))
	for k, v := range r.data {
		cp[k] = v
	}
	return func() { r.mu.Lock(); r.data = cp; r.mu.Unlock() }
}

func (r *MockPendingRepo) Save(ctx context.Context, tx repository.Tx, p *model.PendingPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[p.ID] = *p
	return nil
}

func (r *MockPendingRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	if r.DeleteFunc != nil {
		return r.DeleteFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, id)
	return nil
}

func (r *MockPendingRepo) FindByMerchantTxnID(ctx context.Context, tx repository.Tx, merchantTxnID string) (*model.PendingPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.data {
		if p.MerchantTransactionID == merchantTxnID {
			cp := p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockPendingRepo) ResolveIfPending(ctx context.Context, tx repository.Tx, id string, status model.PendingStatus, gatewayTxnID *string, reason *string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok || p.Status != model.PendingStatusPending {
		return false, nil
	}
	p.Status = status
	p.GatewayTransactionID = gatewayTxnID
	p.FailureReason = reason
	p.ResolvedAt = &at
	p.UpdatedAt = at
	r.data[id] = p
	return true, nil
}

func (r *MockPendingRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PendingPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.PendingPayment
	for _, p := range r.data {
		if p.Status == model.PendingStatusPending && p.CreatedAt.Before(olderThan) {
			cp := p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockPendingRepo) All() []model.PendingPayment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.PendingPayment, 0, len(r.data))
	for _, p := range r.data {
		out = append(out, p)
	}
	return out
}

// ---- Mock PaymentRepository (ledger) ----

type MockPaymentRepo struct {
	mu      sync.Mutex
	entries []model.Payment
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo { return &MockPaymentRepo{} }

func (r *MockPaymentRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := append([]model.Payment(nil), r.entries...)
	return func() { r.mu.Lock(); r.entries = cp; r.mu.Unlock() }
}

func (r *MockPaymentRepo) Append(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.PendingPaymentID != nil {
		for _, e := range r.entries {
			if e.PendingPaymentID != nil && *e.PendingPaymentID == *p.PendingPaymentID {
				return domain.ErrAlreadyExists
			}
		}
	}
	r.entries = append(r.entries, *p)
	return nil
}

func (r *MockPaymentRepo) ListBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string) ([]*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Payment
	for _, e := range r.entries {
		if e.SubscriptionID == subscriptionID {
			cp := e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockPaymentRepo) SumByMessSince(ctx context.Context, tx repository.Tx, messID string, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, e := range r.entries {
		if e.MessID == messID && !e.CreatedAt.Before(since) {
			sum += e.Amount
		}
	}
	return sum, nil
}

func (r *MockPaymentRepo) All() []model.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Payment(nil), r.entries...)
}

// ---- Mock SubscriptionRequestRepository ----

type MockRequestRepo struct {
	mu   sync.Mutex
	data map[string]model.SubscriptionRequest
}

var _ repository.SubscriptionRequestRepository = (*MockRequestRepo)(nil)

func NewMockRequestRepo() *MockRequestRepo {
	return &MockRequestRepo{data: map[string]model.SubscriptionRequest{}}
}

func (r *MockRequestRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make(map[string]model.SubscriptionRequest, len(r.data))
	for k, v := range r.data {
		cp[k] = v
	}
	return func() { r.mu.Lock(); r.data = cp; r.mu.Unlock() }
}

func (r *MockRequestRepo) Save(ctx context.Context, tx repository.Tx, req *model.SubscriptionRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[req.ID] = *req
	return nil
}

func (r *MockRequestRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req, ok := r.data[id]; ok {
		return &req, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockRequestRepo) FindPendingByUserAndMess(ctx context.Context, tx repository.Tx, userID, messID string) (*model.SubscriptionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.data {
		if req.UserID == userID && req.MessID == messID && req.Status == model.RequestStatusPending {
			cp := req
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockRequestRepo) ListByMess(ctx context.Context, tx repository.Tx, messID string, status model.RequestStatus) ([]*model.SubscriptionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.SubscriptionRequest
	for _, req := range r.data {
		if req.MessID == messID && (status == "" || req.Status == status) {
			cp := req
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockRequestRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.SubscriptionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.SubscriptionRequest
	for _, req := range r.data {
		if req.UserID == userID {
			cp := req
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockRequestRepo) CountPendingByMess(ctx context.Context, tx repository.Tx, messID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, req := range r.data {
		if req.MessID == messID && req.Status == model.RequestStatusPending {
			n++
		}
	}
	return n, nil
}

// ---- Mock MenuRepository ----

type MockMenuRepo struct {
	mu   sync.Mutex
	data map[string]model.MenuEntry // mess|date|meal
}

var _ repository.MenuRepository = (*MockMenuRepo)(nil)

func NewMockMenuRepo() *MockMenuRepo { return &MockMenuRepo{data: map[string]model.MenuEntry{}} }

func (r *MockMenuRepo) Upsert(ctx context.Context, tx repository.Tx, e *model.MenuEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[e.MessID+"|"+e.Date.Format("2006-01-02")+"|"+string(e.Meal)] = *e
	return nil
}

func (r *MockMenuRepo) ListByMessAndRange(ctx context.Context, tx repository.Tx, messID string, from, to time.Time) ([]*model.MenuEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.MenuEntry
	for _, e := range r.data {
		if e.MessID == messID && !e.Date.Before(from) && !e.Date.After(to) {
			cp := e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// =============================
// Adapters
// =============================

// ---- Mock PaymentGateway ----

type MockGateway struct {
	mu        sync.Mutex
	Initiated []adapter.CheckoutRequest
	Polls     []string

	InitiateFunc      func(ctx context.Context, req adapter.CheckoutRequest) (adapter.CheckoutSession, error)
	CheckStatusFunc   func(ctx context.Context, merchantTxnID string) (adapter.TransactionState, error)
	ParseCallbackFunc func(header http.Header, body []byte) (adapter.TransactionState, error)
}

var _ adapter.PaymentGateway = (*MockGateway)(nil)

func (g *MockGateway) Name() string { return "mock" }

func (g *MockGateway) Initiate(ctx context.Context, req adapter.CheckoutRequest) (adapter.CheckoutSession, error) {
	g.mu.Lock()
	g.Initiated = append(g.Initiated, req)
	g.mu.Unlock()
	if g.InitiateFunc != nil {
		return g.InitiateFunc(ctx, req)
	}
	return adapter.CheckoutSession{PaymentURL: "https://pay.test/" + req.MerchantTransactionID}, nil
}

func (g *MockGateway) CheckStatus(ctx context.Context, merchantTxnID string) (adapter.TransactionState, error) {
	g.mu.Lock()
	g.Polls = append(g.Polls, merchantTxnID)
	g.mu.Unlock()
	if g.CheckStatusFunc != nil {
		return g.CheckStatusFunc(ctx, merchantTxnID)
	}
	return adapter.TransactionState{MerchantTransactionID: merchantTxnID, Code: "PAYMENT_PENDING", Outcome: adapter.OutcomePending}, nil
}

func (g *MockGateway) ParseCallback(header http.Header, body []byte) (adapter.TransactionState, error) {
	if g.ParseCallbackFunc != nil {
		return g.ParseCallbackFunc(header, body)
	}
	return adapter.TransactionState{}, domain.ErrInvalidSignature
}

// ---- Mock EventPublisher ----

type MockPublisher struct {
	mu     sync.Mutex
	Events []adapter.Event

	PublishFunc func(ctx context.Context, e adapter.Event) error
}

var _ adapter.EventPublisher = (*MockPublisher)(nil)

func (p *MockPublisher) Publish(ctx context.Context, e adapter.Event) error {
	if p.PublishFunc != nil {
		return p.PublishFunc(ctx, e)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, e)
	return nil
}

func (p *MockPublisher) Close() error { return nil }

func (p *MockPublisher) OfType(t string) []adapter.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []adapter.Event
	for _, e := range p.Events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// =============================
// Fixture
// =============================

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

const (
	testMess  = "mess-1"
	otherMess = "mess-2"
	testUser  = "user-1"
	testAdmin = "admin-1"
)

// fixture wires every use case over the in-memory repos.
type fixture struct {
	users    *MockUserRepo
	messes   *MockMessRepo
	subs     *MockSubscriptionRepo
	pending  *MockPendingRepo
	ledger   *MockPaymentRepo
	requests *MockRequestRepo
	menus    *MockMenuRepo
	tm       *MockTxManager
	gateway  *MockGateway
	events   *MockPublisher
	cal      usecase.Calendar

	membership usecase.MembershipUseCase
	payments   usecase.PaymentUseCase
	approvals  usecase.ApprovalUseCase
	menu       usecase.MenuUseCase
	stats      usecase.StatsUseCase
	userUC     usecase.UserUseCase
}

func newFixture() *fixture {
	f := &fixture{
		users:    NewMockUserRepo(),
		messes:   NewMockMessRepo(),
		subs:     NewMockSubscriptionRepo(),
		pending:  NewMockPendingRepo(),
		ledger:   NewMockPaymentRepo(),
		requests: NewMockRequestRepo(),
		menus:    NewMockMenuRepo(),
		gateway:  &MockGateway{},
		events:   &MockPublisher{},
		cal:      usecase.Calendar{Loc: time.UTC},
	}
	f.tm = NewMockTxManager(f.users, f.subs, f.pending, f.ledger, f.requests)
	f.messes.Add(model.Mess{ID: testMess, Name: "Annapurna", IsActive: true}, testAdmin)
	f.messes.Add(model.Mess{ID: otherMess, Name: "Bhojan", IsActive: true}, "admin-2")

	log := newTestLogger()
	f.membership = usecase.NewMembershipUseCase(f.subs, f.ledger, f.messes, f.tm, f.events, f.cal, log)
	f.payments = usecase.NewPaymentUseCase(f.pending, f.subs, f.messes, f.membership, f.gateway, f.tm, f.events,
		usecase.PaymentOptions{MinAdvance: 500, RedirectURL: "https://app.test/pay/done", CallbackURL: "https://api.test/api/v1/payments/callback"},
		f.cal, log)
	f.approvals = usecase.NewApprovalUseCase(f.requests, f.subs, f.messes, f.membership, f.tm, f.events, f.cal, log)
	f.menu = usecase.NewMenuUseCase(f.menus, f.messes, f.cal, log)
	f.stats = usecase.NewStatsUseCase(f.subs, f.ledger, f.requests, f.messes, f.cal, log)
	f.userUC = usecase.NewUserUseCase(f.users, f.tm, log)
	return f
}

func (f *fixture) today() time.Time { return f.cal.Today() }

// succeeded is a gateway verdict confirming txn for amount.
func succeeded(txn string, amount int64) adapter.TransactionState {
	return adapter.TransactionState{
		MerchantTransactionID: txn,
		GatewayTransactionID:  "T" + txn,
		Code:                  "PAYMENT_SUCCESS",
		Outcome:               adapter.OutcomeSuccess,
		Amount:                amount,
	}
}

func int64Ptr(v int64) *int64 { return &v }
func boolPtr(v bool) *bool    { return &v }
