package sessionclient

import "strings"

// User is the identity returned by the auth endpoints.
type User struct {
	ID     string `json:"id"`
	Login  string `json:"login"`
	Nom    string `json:"nom"`
	Prenom string `json:"prenom"`
}

// DisplayName joins the name parts, falling back to the login.
func (user User) DisplayName() string {
	display := strings.TrimSpace(user.Prenom + " " + user.Nom)
	if display == "" {
		return user.Login
	}
	return display
}

// Status is the state-machine position derived from a Snapshot.
type Status string

const (
	StatusAnonymous      Status = "anonymous"
	StatusAuthenticating Status = "authenticating"
	StatusAuthenticated  Status = "authenticated"
	StatusFailed         Status = "failed"
)

// Snapshot is an immutable view of the client's authentication state.
// Authenticated is true exactly when User is non-nil.
type Snapshot struct {
	AccessToken   string
	RefreshToken  string
	User          *User
	Authenticated bool
	Loading       bool
	Error         string
}

// Status reports the state-machine position of the snapshot.
func (snapshot Snapshot) Status() Status {
	switch {
	case snapshot.Loading:
		return StatusAuthenticating
	case snapshot.Authenticated:
		return StatusAuthenticated
	case snapshot.Error != "":
		return StatusFailed
	default:
		return StatusAnonymous
	}
}

// IsAnonymous reports whether the snapshot equals the canonical empty state.
func (snapshot Snapshot) IsAnonymous() bool {
	return snapshot.AccessToken == "" &&
		snapshot.RefreshToken == "" &&
		snapshot.User == nil &&
		!snapshot.Authenticated &&
		!snapshot.Loading &&
		snapshot.Error == ""
}

func (snapshot Snapshot) withUser(user User) Snapshot {
	copied := user
	snapshot.User = &copied
	snapshot.Authenticated = true
	return snapshot
}

// persistedSession is the subset written under the "auth" storage key.
type persistedSession struct {
	AccessToken   string `json:"accessToken,omitempty"`
	RefreshToken  string `json:"refreshToken,omitempty"`
	User          *User  `json:"user"`
	Authenticated bool   `json:"authenticated"`
}

func (snapshot Snapshot) persisted() persistedSession {
	return persistedSession{
		AccessToken:   snapshot.AccessToken,
		RefreshToken:  snapshot.RefreshToken,
		User:          snapshot.User,
		Authenticated: snapshot.Authenticated,
	}
}

func (session persistedSession) equal(other persistedSession) bool {
	if session.AccessToken != other.AccessToken ||
		session.RefreshToken != other.RefreshToken ||
		session.Authenticated != other.Authenticated {
		return false
	}
	if session.User == nil || other.User == nil {
		return session.User == other.User
	}
	return *session.User == *other.User
}

func (session persistedSession) snapshot() Snapshot {
	restored := Snapshot{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
	}
	if session.User != nil {
		restored = restored.withUser(*session.User)
	}
	return restored
}
