// File: internal/infra/adapters/payment/phonepe_gateway.go
package payment

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"messmate/internal/config"
	"messmate/internal/domain"
	"messmate/internal/domain/ports/adapter"
	"messmate/internal/infra/logging"
	"messmate/internal/infra/metrics"
)

var _ adapter.PaymentGateway = (*PhonePeGateway)(nil)

const (
	phonePePayPath    = "/pg/v1/pay"
	phonePeStatusPath = "/pg/v1/status"

	codeSuccess       = "PAYMENT_SUCCESS"
	codePending       = "PAYMENT_PENDING"
	codeInternalError = "INTERNAL_SERVER_ERROR"
)

// PhonePeGateway implements adapter.PaymentGateway against the PhonePe PG v1
// API: base64 JSON payloads signed with an X-VERIFY salted SHA-256 checksum.
type PhonePeGateway struct {
	merchantID string
	saltKey    string
	saltIndex  string
	baseURL    string
	maxRetries int
	backoff    time.Duration
	client     *http.Client
	log        *zerolog.Logger
}

func NewPhonePeGateway(cfg config.PhonePeConfig, logger *zerolog.Logger) (*PhonePeGateway, error) {
	if cfg.MerchantID == "" || cfg.SaltKey == "" {
		return nil, errors.New("phonepe: merchant id and salt key are required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("phonepe: invalid base url: %w", err)
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "PhonePeGateway").Logger()
	l.Info().Str("merchant", logging.Redact(cfg.MerchantID, false)).Str("base_url", cfg.BaseURL).Msg("phonepe gateway configured")
	return &PhonePeGateway{
		merchantID: cfg.MerchantID,
		saltKey:    cfg.SaltKey,
		saltIndex:  cfg.SaltIndex,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
		client:     &http.Client{Timeout: cfg.Timeout},
		log:        &l,
	}, nil
}

func (g *PhonePeGateway) Name() string { return "phonepe" }

// checksum builds the X-VERIFY header value for payload.
func (g *PhonePeGateway) checksum(payload string) string {
	sum := sha256.Sum256([]byte(payload + g.saltKey))
	return hex.EncodeToString(sum[:]) + "###" + g.saltIndex
}

type payRequest struct {
	MerchantID            string            `json:"merchantId"`
	MerchantTransactionID string            `json:"merchantTransactionId"`
	MerchantUserID        string            `json:"merchantUserId"`
	Amount                int64             `json:"amount"`
	RedirectURL           string            `json:"redirectUrl"`
	RedirectMode          string            `json:"redirectMode"`
	CallbackURL           string            `json:"callbackUrl"`
	PaymentInstrument     paymentInstrument `json:"paymentInstrument"`
}

type paymentInstrument struct {
	Type string `json:"type"`
}

type payResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		MerchantTransactionID string `json:"merchantTransactionId"`
		InstrumentResponse    struct {
			RedirectInfo struct {
				URL    string `json:"url"`
				Method string `json:"method"`
			} `json:"redirectInfo"`
		} `json:"instrumentResponse"`
	} `json:"data"`
}

// transactionReport is the shape shared by status responses and decoded callbacks.
type transactionReport struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		MerchantID            string `json:"merchantId"`
		MerchantTransactionID string `json:"merchantTransactionId"`
		TransactionID         string `json:"transactionId"`
		Amount                int64  `json:"amount"` // paise
		State                 string `json:"state"`
		ResponseCode          string `json:"responseCode"`
	} `json:"data"`
}

func (g *PhonePeGateway) Initiate(ctx context.Context, req adapter.CheckoutRequest) (adapter.CheckoutSession, error) {
	if req.MerchantTransactionID == "" || req.Amount <= 0 {
		return adapter.CheckoutSession{}, &domain.GatewayError{Op: "initiate", Err: domain.ErrInvalidArgument}
	}
	payload, err := json.Marshal(payRequest{
		MerchantID:            g.merchantID,
		MerchantTransactionID: req.MerchantTransactionID,
		MerchantUserID:        req.MerchantUserID,
		Amount:                req.Amount * 100,
		RedirectURL:           req.RedirectURL,
		RedirectMode:          "POST",
		CallbackURL:           req.CallbackURL,
		PaymentInstrument:     paymentInstrument{Type: "PAY_PAGE"},
	})
	if err != nil {
		return adapter.CheckoutSession{}, &domain.GatewayError{Op: "initiate", Err: err}
	}
	encoded := base64.StdEncoding.EncodeToString(payload)
	body, _ := json.Marshal(map[string]string{"request": encoded})

	status, raw, err := g.do(ctx, "initiate", http.MethodPost, phonePePayPath, body, map[string]string{
		"X-VERIFY": g.checksum(encoded + phonePePayPath),
	})
	if err != nil {
		return adapter.CheckoutSession{}, err
	}

	var out payResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return adapter.CheckoutSession{}, &domain.GatewayError{Op: "initiate", StatusCode: status, Retryable: true, Err: fmt.Errorf("decode response: %w", err)}
	}
	if status != http.StatusOK || !out.Success || out.Data.InstrumentResponse.RedirectInfo.URL == "" {
		return adapter.CheckoutSession{}, &domain.GatewayError{Op: "initiate", StatusCode: status, Code: out.Code, Retryable: out.Code == codeInternalError}
	}
	return adapter.CheckoutSession{PaymentURL: out.Data.InstrumentResponse.RedirectInfo.URL}, nil
}

func (g *PhonePeGateway) CheckStatus(ctx context.Context, merchantTxnID string) (adapter.TransactionState, error) {
	path := fmt.Sprintf("%s/%s/%s", phonePeStatusPath, g.merchantID, url.PathEscape(merchantTxnID))
	status, raw, err := g.do(ctx, "status", http.MethodGet, path, nil, map[string]string{
		"X-VERIFY":      g.checksum(path),
		"X-MERCHANT-ID": g.merchantID,
	})
	if err != nil {
		return adapter.TransactionState{}, err
	}

	var rep transactionReport
	if err := json.Unmarshal(raw, &rep); err != nil {
		return adapter.TransactionState{}, &domain.GatewayError{Op: "status", StatusCode: status, Retryable: true, Err: fmt.Errorf("decode response: %w", err)}
	}
	if rep.Code == "" {
		return adapter.TransactionState{}, &domain.GatewayError{Op: "status", StatusCode: status, Retryable: status >= 500}
	}
	st := toState(rep)
	if st.MerchantTransactionID == "" {
		st.MerchantTransactionID = merchantTxnID
	}
	return st, nil
}

// ParseCallback verifies X-VERIFY over the base64 response field before
// trusting any of its content.
func (g *PhonePeGateway) ParseCallback(header http.Header, body []byte) (adapter.TransactionState, error) {
	var envelope struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Response == "" {
		return adapter.TransactionState{}, domain.Validationf("malformed callback body")
	}
	got := header.Get("X-VERIFY")
	want := g.checksum(envelope.Response)
	if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		return adapter.TransactionState{}, domain.ErrInvalidSignature
	}
	decoded, err := base64.StdEncoding.DecodeString(envelope.Response)
	if err != nil {
		return adapter.TransactionState{}, domain.Validationf("callback payload is not base64")
	}
	var rep transactionReport
	if err := json.Unmarshal(decoded, &rep); err != nil {
		return adapter.TransactionState{}, domain.Validationf("callback payload is not json")
	}
	if rep.Data.MerchantTransactionID == "" {
		return adapter.TransactionState{}, domain.Validationf("callback without merchant transaction id")
	}
	return toState(rep), nil
}

func toState(rep transactionReport) adapter.TransactionState {
	return adapter.TransactionState{
		MerchantTransactionID: rep.Data.MerchantTransactionID,
		GatewayTransactionID:  rep.Data.TransactionID,
		Code:                  rep.Code,
		Outcome:               outcomeOf(rep.Code),
		Amount:                rep.Data.Amount / 100,
	}
}

// outcomeOf maps a PhonePe code onto the provider-agnostic outcome. Internal
// errors are not a verdict on the payment, so they stay pending.
func outcomeOf(code string) adapter.Outcome {
	switch {
	case strings.Contains(code, "SUCCESS"):
		return adapter.OutcomeSuccess
	case code == codePending, code == codeInternalError:
		return adapter.OutcomePending
	default:
		return adapter.OutcomeFailed
	}
}

func retryableStatus(code int) bool {
	return code == http.StatusBadGateway || code == http.StatusServiceUnavailable || code == http.StatusGatewayTimeout
}

// do sends one logical call, retrying transport failures and 502/503/504 with
// exponential backoff. Other statuses are returned to the caller as-is.
func (g *PhonePeGateway) do(ctx context.Context, op, method, path string, body []byte, headers map[string]string) (int, []byte, error) {
	start := time.Now()
	var (
		lastErr    error
		lastStatus int
	)
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			wait := g.backoff << (attempt - 1)
			select {
			case <-ctx.Done():
				metrics.ObserveGatewayCall(g.Name(), op, "canceled", time.Since(start))
				return 0, nil, &domain.GatewayError{Op: op, StatusCode: lastStatus, Retryable: true, Err: ctx.Err()}
			case <-time.After(wait):
			}
		}

		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, rd)
		if err != nil {
			return 0, nil, &domain.GatewayError{Op: op, Err: err}
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := g.client.Do(req)
		if err != nil {
			lastErr, lastStatus = err, 0
			g.log.Warn().Err(err).Str("op", op).Int("attempt", attempt+1).Msg("gateway transport error")
			if ctx.Err() != nil {
				break
			}
			continue
		}
		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if err != nil {
			lastErr, lastStatus = err, resp.StatusCode
			continue
		}
		if retryableStatus(resp.StatusCode) {
			lastErr, lastStatus = fmt.Errorf("http %d", resp.StatusCode), resp.StatusCode
			g.log.Warn().Str("op", op).Int("status", resp.StatusCode).Int("attempt", attempt+1).Msg("gateway unavailable")
			continue
		}

		outcome := "ok"
		if resp.StatusCode >= 400 {
			outcome = "rejected"
		}
		metrics.ObserveGatewayCall(g.Name(), op, outcome, time.Since(start))
		g.log.Debug().Str("op", op).Int("status", resp.StatusCode).Dur("took", time.Since(start)).Msg("gateway call")
		if resp.StatusCode >= 400 {
			var rej struct {
				Code string `json:"code"`
			}
			_ = json.Unmarshal(raw, &rej)
			return resp.StatusCode, raw, &domain.GatewayError{Op: op, StatusCode: resp.StatusCode, Code: rej.Code, Retryable: resp.StatusCode >= 500}
		}
		return resp.StatusCode, raw, nil
	}

	metrics.ObserveGatewayCall(g.Name(), op, "unavailable", time.Since(start))
	return lastStatus, nil, &domain.GatewayError{Op: op, StatusCode: lastStatus, Retryable: true, Err: lastErr}
}
