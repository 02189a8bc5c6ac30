package model

import (
	"time"

	"messmate/internal/domain"
)

// SubscriptionMember is one user's membership in one mess. There is at most one
// record per (UserID, MessID); later terms reuse it.
type SubscriptionMember struct {
	ID          string
	UserID      string
	MessID      string
	PlanID      PlanID
	JoiningDate time.Time
	ExpiryDate  *time.Time
	TotalDue    int64
	AmountPaid  int64
	IsActive    bool
	Waived      bool

	// Cached derivations; call Refresh before trusting them.
	PaymentStatus    PaymentStatus
	MembershipStatus MembershipStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSubscriptionMember opens a first term for plan starting on joinDate.
// totalDue overrides the catalog price when non-nil.
func NewSubscriptionMember(id, userID, messID string, plan Plan, joinDate time.Time, totalDue *int64) (*SubscriptionMember, error) {
	if id == "" || userID == "" || messID == "" || plan.ID == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	m := &SubscriptionMember{
		ID:        id,
		UserID:    userID,
		MessID:    messID,
		CreatedAt: now,
	}
	m.StartTerm(plan, joinDate, totalDue)
	return m, nil
}

// StartTerm replaces plan, dates and amounts in place with a fresh term.
func (m *SubscriptionMember) StartTerm(plan Plan, joinDate time.Time, totalDue *int64) {
	join := DateOf(joinDate)
	exp := plan.Expiry(join)
	m.PlanID = plan.ID
	m.JoiningDate = join
	m.ExpiryDate = &exp
	m.TotalDue = plan.Price
	if totalDue != nil {
		m.TotalDue = *totalDue
	}
	m.AmountPaid = 0
	m.IsActive = true
	m.Waived = false
	m.UpdatedAt = time.Now()
}

// Remaining is the unpaid balance; negative on overpayment.
func (m *SubscriptionMember) Remaining() int64 { return m.TotalDue - m.AmountPaid }

// Live reports whether the record currently grants or is working towards access.
func (m *SubscriptionMember) Live(today time.Time) bool {
	return m.IsActive && !IsExpired(m.ExpiryDate, today)
}

// Refresh recomputes the cached statuses from the stored facts.
func (m *SubscriptionMember) Refresh(today time.Time) {
	m.PaymentStatus, m.MembershipStatus = ComputeStatus(StatusInput{
		AmountPaid: m.AmountPaid,
		TotalDue:   m.TotalDue,
		ExpiryDate: m.ExpiryDate,
		IsActive:   m.IsActive,
		Waived:     m.Waived,
	}, today)
}

// ApplyPayment credits amount towards the current term.
func (m *SubscriptionMember) ApplyPayment(amount int64, today time.Time) {
	m.AmountPaid += amount
	m.UpdatedAt = time.Now()
	m.Refresh(today)
}

func (m *SubscriptionMember) IsZero() bool { return m == nil || m.ID == "" }
