package apiv1

import (
	"io"
	"net/http"
	"time"

	"messmate/internal/domain"
	"messmate/internal/domain/model"
	"messmate/internal/infra/api"
	"messmate/internal/infra/logging"
	"messmate/internal/infra/metrics"
	red "messmate/internal/infra/redis"
	"messmate/internal/usecase"

	"github.com/go-chi/chi/v5"
)

// checkoutLimit throttles checkout attempts per user. A limiter outage lets
// the request through.
func (s *Server) checkoutLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Limiter == nil || s.checkoutPerMinute <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		user, err := UserFrom(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		ok, err := s.Limiter.Allow(r.Context(), red.UserActionKey(user.ID, "checkout"), s.checkoutPerMinute, time.Minute)
		if err != nil {
			logging.With(r.Context(), s.log).Warn().Err(err).Msg("rate limiter unavailable")
		} else if !ok {
			api.Fail(w, http.StatusTooManyRequests, "too many checkout attempts, try again in a minute")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	user, err := UserFrom(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	req, err := decode[checkoutRequest](w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ctx := logging.WithMessID(r.Context(), req.MessID)
	co, err := s.Payments.Initiate(ctx, usecase.CheckoutInput{
		UserID:      user.ID,
		MessID:      req.MessID,
		PlanID:      model.PlanID(req.PlanID),
		PaymentType: model.PaymentType(req.PaymentType),
		Amount:      req.Amount,
	})
	if err != nil {
		s.fail(w, r.WithContext(ctx), err)
		return
	}
	metrics.IncPayment("initiated")
	api.JSON(w, http.StatusOK, api.Fields{
		"paymentUrl":    co.PaymentURL,
		"transactionId": co.Pending.MerchantTransactionID,
		"amount":        co.Pending.Amount,
		"payment_type":  co.Pending.PaymentType,
		"status":        co.Pending.Status,
	})
}

func (s *Server) paymentStatus(w http.ResponseWriter, r *http.Request) {
	user, err := UserFrom(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	txn := chi.URLParam(r, "txnID")
	ctx := logging.WithTxnID(r.Context(), txn)
	res, err := s.Payments.CheckStatus(ctx, user.ID, txn)
	if err != nil {
		s.fail(w, r.WithContext(ctx), err)
		return
	}
	if res.AlreadyResolved {
		metrics.IncDuplicateResolution("poll")
	}
	out := api.Fields{"transaction": toTransaction(res)}
	if res.Member != nil {
		out["membership"] = toMember(res.Member)
	}
	api.JSON(w, http.StatusOK, out)
}

// paymentCallback receives the gateway's server-to-server notification. The
// body is authenticated by the gateway signature header.
func (s *Server) paymentCallback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.fail(w, r, domain.Validationf("unreadable callback body"))
		return
	}
	res, err := s.Payments.HandleCallback(r.Context(), r.Header, body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	l := logging.With(logging.WithTxnID(r.Context(), res.MerchantTransactionID), s.log)
	if res.AlreadyResolved {
		metrics.IncDuplicateResolution("callback")
		l.Info().Str("status", string(res.Status)).Msg("duplicate payment callback ignored")
	} else {
		l.Info().Str("status", string(res.Status)).Msg("payment callback applied")
	}
	api.JSON(w, http.StatusOK, api.Fields{"transaction": toTransaction(res)})
}
