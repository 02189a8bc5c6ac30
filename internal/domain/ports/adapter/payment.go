package adapter

import (
	"context"
	"net/http"
)

// CheckoutRequest is what the gateway needs to open a payment page.
// Amount is in whole rupees; adapters convert to the provider's unit.
type CheckoutRequest struct {
	MerchantTransactionID string
	MerchantUserID        string
	Amount                int64
	RedirectURL           string
	CallbackURL           string
}

// CheckoutSession is the provider's answer to a checkout request.
type CheckoutSession struct {
	PaymentURL string
}

// Outcome is the gateway's verdict on one transaction.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePending Outcome = "pending"
	OutcomeFailed  Outcome = "failed"
)

// TransactionState is a decoded, provider-agnostic transaction report, from
// either a status poll or a callback.
type TransactionState struct {
	MerchantTransactionID string
	GatewayTransactionID  string
	Code                  string
	Outcome               Outcome
	// Amount in whole rupees; zero when the provider omitted it.
	Amount int64
}

// PaymentGateway is the hex port for payment providers.
type PaymentGateway interface {
	Name() string
	// Initiate opens a payment session. Failures are *domain.GatewayError.
	Initiate(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	// CheckStatus polls the provider for merchantTxnID.
	CheckStatus(ctx context.Context, merchantTxnID string) (TransactionState, error)
	// ParseCallback verifies and decodes an asynchronous provider callback.
	ParseCallback(header http.Header, body []byte) (TransactionState, error)
}
