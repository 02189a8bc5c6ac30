package model

import (
	"strings"
	"time"

	"messmate/internal/domain"
)

type Meal string

const (
	MealBreakfast Meal = "breakfast"
	MealLunch     Meal = "lunch"
	MealDinner    Meal = "dinner"
)

func (m Meal) Valid() bool {
	switch m {
	case MealBreakfast, MealLunch, MealDinner:
		return true
	}
	return false
}

// MenuEntry is the published menu of one meal on one day.
type MenuEntry struct {
	ID          string    `json:"id"`
	MessID      string    `json:"mess_id"`
	Date        time.Time `json:"date"`
	Meal        Meal      `json:"meal"`
	Items       []string  `json:"items"`
	PublishedBy string    `json:"published_by"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewMenuEntry(id, messID string, date time.Time, meal Meal, items []string, adminID string) (*MenuEntry, error) {
	if id == "" || messID == "" || adminID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if !meal.Valid() {
		return nil, domain.Validationf("unknown meal %q", meal)
	}
	clean := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			clean = append(clean, s)
		}
	}
	if len(clean) == 0 {
		return nil, domain.Validationf("menu needs at least one item")
	}
	return &MenuEntry{
		ID:          id,
		MessID:      messID,
		Date:        DateOf(date),
		Meal:        meal,
		Items:       clean,
		PublishedBy: adminID,
		UpdatedAt:   time.Now(),
	}, nil
}
