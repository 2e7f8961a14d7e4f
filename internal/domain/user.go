package domain

import "time"

// Session is the authenticated identity handle issued by the identity
// provider. Exactly one Session is active per running client, or none.
type Session struct {
	UID          string    // subject identifier
	DisplayName  string
	Email        string
	IDToken      string    // short-lived bearer credential for store access
	RefreshToken string    // long-lived credential used to renew IDToken
	ExpiresAt    time.Time // IDToken expiry
}

// Profile is the user-chosen display metadata stored alongside the
// subject identifier. Created lazily on first authenticated load if
// absent remotely; never deleted by the client.
type Profile struct {
	Name      string
	Email     string
	CreatedAt time.Time
}

// DefaultProfile derives a fallback profile from a session, used when
// no profile document exists yet.
func DefaultProfile(s *Session) *Profile {
	name := s.DisplayName
	if name == "" {
		name = "User"
	}
	return &Profile{Name: name, Email: s.Email}
}
