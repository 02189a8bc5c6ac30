package model

import (
	"time"

	"messmate/internal/domain"
)

type PendingStatus string

const (
	PendingStatusPending PendingStatus = "pending" // redirected to gateway; awaiting callback or poll
	PendingStatusSuccess PendingStatus = "success" // confirmed by gateway and applied
	PendingStatusFailed  PendingStatus = "failed"  // gateway reported failure, or gave up
)

// PaymentType says what a checkout pays for.
type PaymentType string

const (
	PaymentTypeFull      PaymentType = "full"      // whole plan price, new term
	PaymentTypeAdvance   PaymentType = "advance"   // partial payment, new term
	PaymentTypeRemaining PaymentType = "remaining" // balance of the current term
)

func (t PaymentType) Valid() bool {
	switch t {
	case PaymentTypeFull, PaymentTypeAdvance, PaymentTypeRemaining:
		return true
	}
	return false
}

// PendingPayment bridges a checkout session to its gateway outcome.
type PendingPayment struct {
	ID                    string
	MerchantTransactionID string
	GatewayTransactionID  *string
	UserID                string
	MessID                string
	PlanID                PlanID
	Amount                int64
	PaymentType           PaymentType
	Status                PendingStatus
	FailureReason         *string
	CreatedAt             time.Time
	UpdatedAt             time.Time
	ResolvedAt            *time.Time
}

func NewPendingPayment(id, merchantTxnID, userID, messID string, planID PlanID, amount int64, pt PaymentType) (*PendingPayment, error) {
	if id == "" || merchantTxnID == "" || userID == "" || messID == "" || amount <= 0 || !pt.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &PendingPayment{
		ID:                    id,
		MerchantTransactionID: merchantTxnID,
		UserID:                userID,
		MessID:                messID,
		PlanID:                planID,
		Amount:                amount,
		PaymentType:           pt,
		Status:                PendingStatusPending,
		CreatedAt:             now,
		UpdatedAt:             now,
	}, nil
}

func (p *PendingPayment) Resolved() bool { return p.Status != PendingStatusPending }

type PaymentSource string

const (
	PaymentSourceGateway PaymentSource = "gateway"
	PaymentSourceCash    PaymentSource = "cash"
)

// Payment is an append-only ledger entry for one money movement.
type Payment struct {
	ID                   string
	SubscriptionID       string
	UserID               string
	MessID               string
	Amount               int64
	Status               PendingStatus
	IsAdvance            bool
	Source               PaymentSource
	PendingPaymentID     *string
	GatewayTransactionID *string
	CreatedAt            time.Time
}
