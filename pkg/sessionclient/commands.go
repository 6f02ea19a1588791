package sessionclient

// Command is the closed set of inputs accepted by the session store.
type Command interface {
	commandName() string
}

// Login authenticates against the login endpoint.
type Login struct {
	Identifier string
	Password   string
}

// Register creates an account and signs it in.
type Register struct {
	Nom      string
	Prenom   string
	Login    string
	Password string
}

// Logout resets the session to the empty state.
type Logout struct{}

// SetTokens injects a known session without a network round trip.
type SetTokens struct {
	AccessToken  string
	RefreshToken string
	User         User
}

// ClearError clears the error message only.
type ClearError struct{}

// authSucceeded and authFailed conclude an in-flight Login or Register.
type authSucceeded struct {
	response AuthResponse
}

type authFailed struct {
	message string
}

func (Login) commandName() string         { return "[Auth] Login" }
func (Register) commandName() string      { return "[Auth] Register" }
func (Logout) commandName() string        { return "[Auth] Logout" }
func (SetTokens) commandName() string     { return "[Auth] Set Tokens" }
func (ClearError) commandName() string    { return "[Auth] Clear Error" }
func (authSucceeded) commandName() string { return "[Auth] Succeeded" }
func (authFailed) commandName() string    { return "[Auth] Failed" }
