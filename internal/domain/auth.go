package domain

// Actor identifies who performed a mutation, however they authenticated.
type Actor struct {
	UserID string
	Role   Role
	// ViaMagicLink is set when the identity came from a bearer magic token.
	ViaMagicLink bool
}

// ActorFromUser builds a session actor.
func ActorFromUser(u *User) Actor {
	return Actor{UserID: u.ID, Role: u.Role}
}

// IsAdmin reports whether the actor administers tickets.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
