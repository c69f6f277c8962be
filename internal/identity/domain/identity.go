package domain

// Identity is the acting principal for one unit of work.
// A nil *Identity means no identity was presented.
type Identity struct {
	UserID    string
	SessionID string
	// Anonymous is set for callers that presented no credentials but still reach the core
	// (e.g. public endpoints); such identities are never authenticated.
	Anonymous bool
}

// IsAuthenticated reports whether id is present, not anonymous, and names a user.
func (id *Identity) IsAuthenticated() bool {
	return id != nil && !id.Anonymous && id.UserID != ""
}

// ID returns the user ID, or "" for nil or anonymous identities. Used for log fields.
func (id *Identity) ID() string {
	if !id.IsAuthenticated() {
		return ""
	}
	return id.UserID
}

// AnonymousIdentity returns an unauthenticated identity.
func AnonymousIdentity() *Identity {
	return &Identity{Anonymous: true}
}

// Authenticated returns an authenticated identity for userID.
func Authenticated(userID, sessionID string) *Identity {
	return &Identity{UserID: userID, SessionID: sessionID}
}
