package sessionclient

const (
	// DefaultLoginPath is where unauthenticated navigation is sent.
	DefaultLoginPath = "/login"
	// DefaultHomePath is where authenticated users are sent away from guest-only pages.
	DefaultHomePath = "/"
)

// SnapshotReader exposes the current session snapshot.
type SnapshotReader interface {
	Snapshot() Snapshot
}

// Navigator moves the client to another destination.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

// Navigate calls navigatorFunc(path).
func (navigatorFunc NavigatorFunc) Navigate(path string) {
	navigatorFunc(path)
}

// Decision is the outcome of a guard check.
type Decision struct {
	Allowed  bool
	Redirect string
}

// Guard decides synchronously whether navigation may proceed.
type Guard func() Decision

// AuthGuard allows navigation only while the session is authenticated.
func AuthGuard(reader SnapshotReader, loginPath string) Guard {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	return func() Decision {
		if reader.Snapshot().Authenticated {
			return Decision{Allowed: true}
		}
		return Decision{Redirect: loginPath}
	}
}

// GuestGuard allows navigation only while the session is not authenticated.
func GuestGuard(reader SnapshotReader, homePath string) Guard {
	if homePath == "" {
		homePath = DefaultHomePath
	}
	return func() Decision {
		if !reader.Snapshot().Authenticated {
			return Decision{Allowed: true}
		}
		return Decision{Redirect: homePath}
	}
}

// Enforce runs the guard and, when navigation is denied, navigates to the redirect.
func (guard Guard) Enforce(navigator Navigator) bool {
	decision := guard()
	if decision.Allowed {
		return true
	}
	if navigator != nil {
		navigator.Navigate(decision.Redirect)
	}
	return false
}
