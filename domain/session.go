package domain

import "time"

// Identity is the authenticated user as the identity provider knows it.
type Identity struct {
	ID    string
	Email string
}

// Session is owned by the session store; other components only read copies of it.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         Identity
}

// Expired reports whether the access token is no longer usable at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// ExpiresWithin reports whether the access token expires in less than margin.
func (s Session) ExpiresWithin(now time.Time, margin time.Duration) bool {
	return !s.ExpiresAt.IsZero() && s.ExpiresAt.Sub(now) < margin
}
