package apiv1

import (
	"net/http"
	"time"

	"messmate/internal/domain"
	"messmate/internal/domain/model"
	"messmate/internal/domain/ports/repository"
	"messmate/internal/infra/api"
	"messmate/internal/usecase"

	"github.com/go-chi/chi/v5"
)

// Admin capability is checked by the use cases against mess_admins; these
// handlers only pass the caller's id along.

func (s *Server) listRequests(w http.ResponseWriter, r *http.Request) {
	admin, err := UserFrom(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	status := model.RequestStatus(r.URL.Query().Get("status"))
	switch status {
	case "", model.RequestStatusPending, model.RequestStatusApproved, model.RequestStatusRejected:
	default:
		s.fail(w, r, domain.Validationf("unknown request status %q", status))
		return
	}
	rs, err := s.Approvals.ListForMess(r.Context(), admin.ID, chi.URLParam(r, "messID"), status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, api.Fields{"requests": toRequests(rs)})
}

func (s *Server) processRequest(w http.ResponseWriter, r *http.Request) {
	admin, err := UserFrom(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	req, err := decode[processRequest](w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.Approvals.Process(r.Context(), usecase.ProcessInput{
		RequestID: chi.URLParam(r, "requestID"),
		AdminID:   admin.ID,
		Action:    model.RequestAction(req.Action),
		Notes:     req.Notes,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := api.Fields{"request": toRequest(res.Request)}
	if res.Member != nil {
		out["membership"] = toMember(res.Member)
	}
	api.JSON(w, http.StatusOK, out)
}

// listMembers accepts ?status= (membership status), ?payment_status=,
// ?offset= and ?limit=.
func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	admin, err := UserFrom(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	f := repository.MemberFilter{
		MembershipStatus: model.MembershipStatus(q.Get("status")),
		PaymentStatus:    model.PaymentStatus(q.Get("payment_status")),
	}
	if f.Offset, err = queryInt(r, "offset", 0); err != nil {
		s.fail(w, r, err)
		return
	}
	if f.Limit, err = queryInt(r, "limit", 100); err != nil {
		s.fail(w, r, err)
		return
	}
	ms, err := s.Membership.ListByMess(r.Context(), admin.ID, chi.URLParam(r, "messID"), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, api.Fields{"members": toMembers(ms)})
}

func (s *Server) enrollMember(w http.ResponseWriter, r *http.Request) {
	admin, err := UserFrom(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	req, err := decode[enrollRequest](w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	join, err := parseDate(req.JoinDate, s.loc)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := s.Membership.Enroll(r.Context(), admin.ID, chi.URLParam(r, "messID"), usecase.EnrollInput{
		UserID:     req.UserID,
		PlanID:     model.PlanID(req.PlanID),
		JoinDate:   join,
		TotalDue:   req.TotalDue,
		CashAmount: req.CashAmount,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, api.Fields{"membership": toMember(m)})
}

func (s *Server) editMember(w http.ResponseWriter, r *http.Request) {
	admin, err := UserFrom(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	req, err := decode[editRequest](w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	in := usecase.EditInput{TotalDue: req.TotalDue, AmountPaid: req.AmountPaid, IsActive: req.IsActive}
	if req.PlanID != nil {
		p := model.PlanID(*req.PlanID)
		in.PlanID = &p
	}
	if in.JoinDate, err = optionalDate(req.JoinDate, s.loc); err != nil {
		s.fail(w, r, err)
		return
	}
	if in.ExpiryDate, err = optionalDate(req.ExpiryDate, s.loc); err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := s.Membership.Edit(r.Context(), admin.ID, chi.URLParam(r, "messID"), chi.URLParam(r, "memberID"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, api.Fields{"membership": toMember(m)})
}

func (s *Server) deactivateMember(w http.ResponseWriter, r *http.Request) {
	admin, err := UserFrom(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := s.Membership.Deactivate(r.Context(), admin.ID, chi.URLParam(r, "messID"), chi.URLParam(r, "memberID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, api.Fields{"membership": toMember(m)})
}

func (s *Server) publishMenu(w http.ResponseWriter, r *http.Request) {
	admin, err := UserFrom(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	req, err := decode[publishMenuRequest](w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	in := make([]usecase.PublishInput, 0, len(req.Entries))
	for _, e := range req.Entries {
		d, err := parseDate(e.Date, s.loc)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		in = append(in, usecase.PublishInput{Date: d, Meal: model.Meal(e.Meal), Items: e.Items})
	}
	es, err := s.Menus.Publish(r.Context(), admin.ID, chi.URLParam(r, "messID"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, api.Fields{"menu": toMenu(es)})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	admin, err := UserFrom(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	d, err := s.Stats.Dashboard(r.Context(), admin.ID, chi.URLParam(r, "messID"), r.URL.Query().Get("period"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, api.Fields{"stats": d})
}

func optionalDate(s *string, loc *time.Location) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := parseDate(*s, loc)
	if err != nil || t.IsZero() {
		return nil, err
	}
	return &t, nil
}
