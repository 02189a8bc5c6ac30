package apiv1

import (
	"net/http"

	"messmate/internal/domain/model"
	"messmate/internal/infra/api"

	"github.com/go-chi/chi/v5"
)

func (s *Server) listPlans(w http.ResponseWriter, _ *http.Request) {
	api.JSON(w, http.StatusOK, api.Fields{"plans": toPlans(model.Plans())})
}

func (s *Server) listMesses(w http.ResponseWriter, r *http.Request) {
	ms, err := s.Messes.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]messDTO, 0, len(ms))
	for _, m := range ms {
		out = append(out, toMess(m))
	}
	api.JSON(w, http.StatusOK, api.Fields{"messes": out})
}

func (s *Server) getMess(w http.ResponseWriter, r *http.Request) {
	m, err := s.Messes.Get(r.Context(), chi.URLParam(r, "messID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, api.Fields{"mess": toMess(m)})
}

// getMenu serves ?date=YYYY-MM-DD (default today) and ?days=N (default 1).
func (s *Server) getMenu(w http.ResponseWriter, r *http.Request) {
	from, err := parseDate(r.URL.Query().Get("date"), s.loc)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	days, err := queryInt(r, "days", 1)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	es, err := s.Menus.ForRange(r.Context(), chi.URLParam(r, "messID"), from, days)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, api.Fields{"menu": toMenu(es)})
}
