package model

import "time"

type PaymentStatus string

const (
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusDue     PaymentStatus = "due"
	// PaymentStatusWaived marks an admin-granted membership with nothing paid.
	PaymentStatusWaived PaymentStatus = "waived"
)

type MembershipStatus string

const (
	MembershipActive   MembershipStatus = "active"
	MembershipInactive MembershipStatus = "inactive"
	MembershipPending  MembershipStatus = "pending"
)

// StatusInput holds the facts both statuses are derived from.
type StatusInput struct {
	AmountPaid int64
	TotalDue   int64
	ExpiryDate *time.Time
	IsActive   bool
	Waived     bool
}

// DateOf truncates t to midnight of its calendar day, keeping its location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// IsExpired reports whether expiry is strictly before today's calendar day.
func IsExpired(expiry *time.Time, today time.Time) bool {
	if expiry == nil {
		return false
	}
	ey, em, ed := expiry.Date()
	ty, tm, td := today.Date()
	if ey != ty {
		return ey < ty
	}
	if em != tm {
		return em < tm
	}
	return ed < td
}

// ComputeStatus derives (payment status, membership status). It is pure: the
// result depends only on in and today.
func ComputeStatus(in StatusInput, today time.Time) (PaymentStatus, MembershipStatus) {
	remaining := in.TotalDue - in.AmountPaid
	expired := IsExpired(in.ExpiryDate, today)

	var ps PaymentStatus
	switch {
	case expired:
		ps = PaymentStatusDue
	case !in.IsActive && remaining > 0:
		ps = PaymentStatusDue
	case in.Waived:
		ps = PaymentStatusWaived
	case in.TotalDue <= 0:
		// explicit zero-due membership: nothing is owed
		ps = PaymentStatusSuccess
	case in.AmountPaid == 0:
		ps = PaymentStatusDue
	case remaining <= 0:
		ps = PaymentStatusSuccess
	default:
		ps = PaymentStatusPending
	}

	var ms MembershipStatus
	switch {
	case !in.IsActive || expired:
		ms = MembershipInactive
	case ps == PaymentStatusSuccess || ps == PaymentStatusWaived:
		ms = MembershipActive
	case ps == PaymentStatusPending:
		ms = MembershipPending
	default:
		ms = MembershipInactive
	}
	return ps, ms
}
