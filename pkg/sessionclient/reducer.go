package sessionclient

const (
	// MessageLoginFailed is shown for any failed Login, whatever the server said.
	MessageLoginFailed = "Erreur de connexion"
	// MessageRegisterFailed is shown for any failed Register.
	MessageRegisterFailed = "Erreur lors de l'inscription"
)

// Effect is a side effect requested by the reducer and executed by the store driver.
type Effect interface {
	effectName() string
}

// RemoteLogin calls the login endpoint.
type RemoteLogin struct {
	Identifier string
	Password   string
}

// RemoteRegister calls the registration endpoint.
type RemoteRegister struct {
	Request RegisterRequest
}

// Persist writes the resumable subset of the snapshot to durable storage.
type Persist struct {
	Snapshot Snapshot
}

func (RemoteLogin) effectName() string    { return "remote_login" }
func (RemoteRegister) effectName() string { return "remote_register" }
func (Persist) effectName() string        { return "persist" }

// Reduce applies command to snapshot. It performs no I/O; network calls and storage writes
// are returned as effects. A Persist effect is emitted whenever the persisted subset changes.
func Reduce(snapshot Snapshot, command Command) (Snapshot, []Effect) {
	next, effects := transition(snapshot, command)
	if !next.persisted().equal(snapshot.persisted()) {
		effects = append(effects, Persist{Snapshot: next})
	}
	return next, effects
}

func transition(snapshot Snapshot, command Command) (Snapshot, []Effect) {
	switch typed := command.(type) {
	case Login:
		next := snapshot
		next.Loading = true
		next.Error = ""
		return next, []Effect{RemoteLogin{Identifier: typed.Identifier, Password: typed.Password}}
	case Register:
		next := snapshot
		next.Loading = true
		next.Error = ""
		return next, []Effect{RemoteRegister{Request: RegisterRequest{
			Nom:      typed.Nom,
			Prenom:   typed.Prenom,
			Login:    typed.Login,
			Password: typed.Password,
		}}}
	case authSucceeded:
		next := snapshot.withUser(typed.response.User)
		next.AccessToken = typed.response.AccessToken
		next.RefreshToken = typed.response.RefreshToken
		next.Loading = false
		next.Error = ""
		return next, nil
	case authFailed:
		next := snapshot
		next.Loading = false
		next.Error = typed.message
		return next, nil
	case Logout:
		return Snapshot{}, nil
	case SetTokens:
		next := snapshot.withUser(typed.User)
		next.AccessToken = typed.AccessToken
		next.RefreshToken = typed.RefreshToken
		return next, nil
	case ClearError:
		next := snapshot
		next.Error = ""
		return next, nil
	default:
		return snapshot, nil
	}
}
