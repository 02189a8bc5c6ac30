package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"messmate/internal/domain"
	"messmate/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopPaymentGateway)(nil)

// NoopPaymentGateway is an in-memory gateway for dev mode: every checkout it
// opened reports success on the first status check.
type NoopPaymentGateway struct {
	mu      sync.Mutex
	baseURL string
	seq     int64
	intents map[string]int64 // merchant txn id -> amount (rupees)
}

func NewNoopPaymentGateway(baseURL string) *NoopPaymentGateway {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &NoopPaymentGateway{
		baseURL: baseURL,
		intents: make(map[string]int64),
	}
}

func (g *NoopPaymentGateway) Name() string { return "noop" }

func (g *NoopPaymentGateway) Initiate(ctx context.Context, req adapter.CheckoutRequest) (adapter.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents[req.MerchantTransactionID] = req.Amount
	return adapter.CheckoutSession{
		PaymentURL: fmt.Sprintf("%s/dev/pay?txn=%s", g.baseURL, url.QueryEscape(req.MerchantTransactionID)),
	}, nil
}

func (g *NoopPaymentGateway) CheckStatus(ctx context.Context, merchantTxnID string) (adapter.TransactionState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	amount, ok := g.intents[merchantTxnID]
	if !ok {
		return adapter.TransactionState{MerchantTransactionID: merchantTxnID, Code: "TRANSACTION_NOT_FOUND", Outcome: adapter.OutcomeFailed}, nil
	}
	g.seq++
	return adapter.TransactionState{
		MerchantTransactionID: merchantTxnID,
		GatewayTransactionID:  fmt.Sprintf("noop-%d", g.seq),
		Code:                  codeSuccess,
		Outcome:               adapter.OutcomeSuccess,
		Amount:                amount,
	}, nil
}

// ParseCallback accepts an unsigned {"merchantTransactionId", "code"} body.
func (g *NoopPaymentGateway) ParseCallback(header http.Header, body []byte) (adapter.TransactionState, error) {
	var in struct {
		MerchantTransactionID string `json:"merchantTransactionId"`
		Code                  string `json:"code"`
	}
	if err := json.Unmarshal(body, &in); err != nil || in.MerchantTransactionID == "" {
		return adapter.TransactionState{}, domain.Validationf("malformed callback body")
	}
	g.mu.Lock()
	amount := g.intents[in.MerchantTransactionID]
	g.mu.Unlock()
	return adapter.TransactionState{
		MerchantTransactionID: in.MerchantTransactionID,
		Code:                  in.Code,
		Outcome:               outcomeOf(in.Code),
		Amount:                amount,
	}, nil
}
