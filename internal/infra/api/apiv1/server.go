package apiv1

import (
	"context"
	"net/http"
	"time"

	"messmate/internal/config"
	"messmate/internal/infra/api"
	"messmate/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Limiter caps how often a caller may repeat an action.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Deps are the use cases the v1 API serves. Limiter may be nil.
type Deps struct {
	Users      usecase.UserUseCase
	Messes     usecase.MessUseCase
	Menus      usecase.MenuUseCase
	Payments   usecase.PaymentUseCase
	Membership usecase.MembershipUseCase
	Approvals  usecase.ApprovalUseCase
	Stats      usecase.StatsUseCase
	Limiter    Limiter
}

type Server struct {
	Deps
	auth              *Authenticator
	loc               *time.Location
	checkoutPerMinute int
	log               *zerolog.Logger
}

func NewServer(deps Deps, authCfg config.AuthConfig, httpCfg config.HTTPConfig, loc *time.Location, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if loc == nil {
		loc = time.UTC
	}
	l := logger.With().Str("component", "apiv1").Logger()
	return &Server{
		Deps:              deps,
		auth:              NewAuthenticator(authCfg, deps.Users, &l),
		loc:               loc,
		checkoutPerMinute: httpCfg.CheckoutPerMinute,
		log:               &l,
	}
}

// RegisterAPIV1 mounts every v1 route on r, which is expected to be the
// /api/v1 sub-router.
func RegisterAPIV1(r chi.Router, s *Server) {
	r.Get("/plans", s.listPlans)
	r.Get("/messes", s.listMesses)
	r.Get("/messes/{messID}", s.getMess)
	r.Get("/messes/{messID}/menu", s.getMenu)

	// authenticated by the gateway signature, not a bearer token
	r.Post("/payments/callback", s.paymentCallback)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Middleware)

		r.With(s.checkoutLimit).Post("/payments/checkout", s.checkout)
		r.Get("/payments/status/{txnID}", s.paymentStatus)

		r.Get("/me/memberships/{messID}", s.myMembership)
		r.Get("/me/memberships/{messID}/payments", s.myPayments)
		r.Get("/me/subscription-requests", s.myRequests)
		r.Post("/subscription-requests", s.submitRequest)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/subscription-requests/{requestID}/process", s.processRequest)
			r.Route("/messes/{messID}", func(r chi.Router) {
				r.Get("/subscription-requests", s.listRequests)
				r.Get("/members", s.listMembers)
				r.Post("/members", s.enrollMember)
				r.Put("/members/{memberID}", s.editMember)
				r.Post("/members/{memberID}/deactivate", s.deactivateMember)
				r.Put("/menu", s.publishMenu)
				r.Get("/stats", s.stats)
			})
		})
	})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	api.Error(w, r, s.log, err)
}
