package model

import (
	"sort"
	"time"

	"messmate/internal/domain"
)

type PlanID string

const (
	PlanFullMonth PlanID = "full_month"
	PlanHalfMonth PlanID = "half_month"
)

// Plan is a fixed-price subscription option. Prices are whole rupees.
type Plan struct {
	ID       PlanID `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	TermDays int    `json:"term_days"`
}

// Expiry returns the last day covered by a term that starts on joinDate.
func (p Plan) Expiry(joinDate time.Time) time.Time {
	return DateOf(joinDate).AddDate(0, 0, p.TermDays-1)
}

var catalog = map[PlanID]Plan{
	PlanFullMonth: {ID: PlanFullMonth, Name: "Full month", Price: 2600, TermDays: 30},
	PlanHalfMonth: {ID: PlanHalfMonth, Name: "Half month", Price: 1300, TermDays: 15},
}

// LookupPlan returns the catalog entry for id.
func LookupPlan(id PlanID) (Plan, error) {
	p, ok := catalog[id]
	if !ok {
		return Plan{}, domain.Validationf("unknown plan %q", id)
	}
	return p, nil
}

// Plans lists the catalog ordered by price, highest first.
func Plans() []Plan {
	out := make([]Plan, 0, len(catalog))
	for _, p := range catalog {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	return out
}
