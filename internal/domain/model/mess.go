package model

import "time"

// Mess is a food-service kitchen members subscribe to.
type Mess struct {
	ID        string
	Name      string
	Address   string
	Latitude  float64
	Longitude float64
	IsActive  bool
	CreatedAt time.Time
}

// MessAdmin grants a user admin capability over a single mess.
type MessAdmin struct {
	UserID    string
	MessID    string
	CreatedAt time.Time
}
