package model

import (
	"strings"
	"time"

	"messmate/internal/domain"
)

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

type RequestAction string

const (
	ActionApprove RequestAction = "approve"
	ActionReject  RequestAction = "reject"
)

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusPending: {RequestStatusApproved, RequestStatusRejected},
}

// CanTransition reports whether a request may move from one status to another.
func CanTransition(from, to RequestStatus) bool {
	for _, s := range requestTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SubscriptionRequest asks a mess admin for access at no cost.
type SubscriptionRequest struct {
	ID          string
	UserID      string
	MessID      string
	PlanID      PlanID
	JoinDate    time.Time
	Message     string
	Status      RequestStatus
	AdminNotes  string
	ProcessedBy *string
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewSubscriptionRequest(id, userID, messID string, planID PlanID, joinDate time.Time, message string) (*SubscriptionRequest, error) {
	if id == "" || userID == "" || messID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if _, err := LookupPlan(planID); err != nil {
		return nil, err
	}
	now := time.Now()
	return &SubscriptionRequest{
		ID:        id,
		UserID:    userID,
		MessID:    messID,
		PlanID:    planID,
		JoinDate:  DateOf(joinDate),
		Message:   strings.TrimSpace(message),
		Status:    RequestStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Approve moves a pending request to approved.
func (r *SubscriptionRequest) Approve(adminID, notes string, at time.Time) error {
	return r.process(RequestStatusApproved, adminID, notes, at)
}

// Reject moves a pending request to rejected; a reason is mandatory.
func (r *SubscriptionRequest) Reject(adminID, notes string, at time.Time) error {
	if strings.TrimSpace(notes) == "" {
		return domain.Validationf("a reason is required to reject a request")
	}
	return r.process(RequestStatusRejected, adminID, notes, at)
}

func (r *SubscriptionRequest) process(to RequestStatus, adminID, notes string, at time.Time) error {
	if !CanTransition(r.Status, to) {
		return domain.ErrAlreadyProcessed
	}
	r.Status = to
	r.AdminNotes = strings.TrimSpace(notes)
	r.ProcessedBy = &adminID
	r.ProcessedAt = &at
	r.UpdatedAt = at
	return nil
}
