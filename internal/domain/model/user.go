package model

import (
	"strings"
	"time"

	"messmate/internal/domain"

	"github.com/google/uuid"
)

type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// User is a person known to the identity provider. AuthSubject is the
// provider's stable subject claim.
type User struct {
	ID           string
	AuthSubject  string
	Email        string
	Name         string
	Phone        string
	Role         Role
	RegisteredAt time.Time
	LastActiveAt time.Time
}

func NewUser(id, authSubject, email, name string) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if strings.TrimSpace(authSubject) == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &User{
		ID:           id,
		AuthSubject:  authSubject,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Name:         strings.TrimSpace(name),
		Role:         RoleMember,
		RegisteredAt: now,
		LastActiveAt: now,
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }
func (u *User) Touch()       { u.LastActiveAt = time.Now() }
