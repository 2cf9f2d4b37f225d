package domain

import "time"

// Role is the coarse permission level of a user.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
	RoleGuest Role = "GUEST"
)

// User is anyone who can submit or handle tickets. Guests are created on
// anonymous submission and only ever authenticate through a magic link.
type User struct {
	ID            string
	Name          string
	Email         string
	PasswordHash  string
	Role          Role
	IsActive      bool
	MagicToken    *string
	MagicTokenExp *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsAdmin reports whether the user administers tickets.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// HasLiveMagicToken reports whether the user holds a token that is still usable at now.
func (u *User) HasLiveMagicToken(now time.Time) bool {
	if u == nil || u.MagicToken == nil || *u.MagicToken == "" || u.MagicTokenExp == nil {
		return false
	}
	return now.Before(*u.MagicTokenExp)
}
