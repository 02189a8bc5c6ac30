package apiv1

import (
	"net/http"

	"messmate/internal/domain/model"
	"messmate/internal/infra/api"
	"messmate/internal/usecase"

	"github.com/go-chi/chi/v5"
)

func (s *Server) myMembership(w http.ResponseWriter, r *http.Request) {
	user, err := UserFrom(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := s.Membership.Get(r.Context(), user.ID, chi.URLParam(r, "messID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, api.Fields{"membership": toMember(m)})
}

func (s *Server) myPayments(w http.ResponseWriter, r *http.Request) {
	user, err := UserFrom(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ps, err := s.Membership.Payments(r.Context(), user.ID, chi.URLParam(r, "messID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, api.Fields{"payments": toPayments(ps)})
}

func (s *Server) myRequests(w http.ResponseWriter, r *http.Request) {
	user, err := UserFrom(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rs, err := s.Approvals.ListMine(r.Context(), user.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, api.Fields{"requests": toRequests(rs)})
}

func (s *Server) submitRequest(w http.ResponseWriter, r *http.Request) {
	user, err := UserFrom(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	req, err := decode[submitRequest](w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	join, err := parseDate(req.JoinDate, s.loc)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sr, err := s.Approvals.Submit(r.Context(), usecase.SubmitInput{
		UserID:   user.ID,
		MessID:   req.MessID,
		PlanID:   model.PlanID(req.PlanID),
		JoinDate: join,
		Message:  req.Message,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, api.Fields{"request": toRequest(sr)})
}
