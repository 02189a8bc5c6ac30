package repository

import (
	"context"
	"time"

	"messmate/internal/domain/model"
)

// MemberFilter narrows ListByMess. Zero values match everything.
type MemberFilter struct {
	MembershipStatus model.MembershipStatus
	PaymentStatus    model.PaymentStatus
	// AsOf, when set, also admits rows that expired before it whatever their
	// cached status, so status filters see members the refresher has not reached.
	AsOf          time.Time
	Offset, Limit int
}

// SubscriptionRepository is the port for membership records.
type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, m *model.SubscriptionMember) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.SubscriptionMember, error)
	// FindByUserAndMess returns the single record of the pair, locking it when tx is live.
	FindByUserAndMess(ctx context.Context, tx Tx, userID, messID string) (*model.SubscriptionMember, error)
	ListByMess(ctx context.Context, tx Tx, messID string, f MemberFilter) ([]*model.SubscriptionMember, error)
	// ListStale returns records whose cached status may no longer match the facts as of today:
	// those with an expiry before today still cached as not-due.
	ListStale(ctx context.Context, tx Tx, today time.Time, limit int) ([]*model.SubscriptionMember, error)
	// LockPair serializes writers of one (user, mess) pair until tx ends.
	LockPair(ctx context.Context, tx Tx, userID, messID string) error
}
