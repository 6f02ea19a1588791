package authkit

import (
	"context"
	"errors"
	"testing"
)

type rejectingValidator struct{}

func (rejectingValidator) ValidateLogin(identifier string, password string) []FieldError {
	return []FieldError{{Field: "login", Message: "bad"}}
}

func (rejectingValidator) ValidateRegistration(input RegistrationInput) []FieldError {
	return []FieldError{{Field: "nom", Message: "bad"}}
}

type brokenStore struct{}

func (brokenStore) FindByLogin(ctx context.Context, login string) (Credential, error) {
	return Credential{}, errors.New("connection refused")
}

func (brokenStore) Create(ctx context.Context, credential Credential) error {
	return errors.New("connection refused")
}

func newTestCredentialVerifier(t *testing.T, store CredentialStore, validator Validator) *CredentialVerifier {
	t.Helper()
	verifier, err := NewCredentialVerifier(store, validator, NewBcryptHasher(4))
	if err != nil {
		t.Fatalf("credential verifier: %v", err)
	}
	return verifier
}

func registerAlice(t *testing.T, verifier *CredentialVerifier) Credential {
	t.Helper()
	credential, err := verifier.Register(context.Background(), RegistrationInput{
		Login:    "alice1",
		Password: "pass1",
		Nom:      "Dupont",
		Prenom:   "Alice",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return credential
}

func TestCredentialVerifierRegisterAndLogin(t *testing.T) {
	t.Parallel()

	verifier := newTestCredentialVerifier(t, NewMemoryCredentialStore(), nil)
	registered := registerAlice(t, verifier)
	if registered.ID == "" || registered.PasswordHash == "" || registered.PasswordHash == "pass1" {
		t.Fatalf("unexpected credential %+v", registered)
	}

	loggedIn, err := verifier.Login(context.Background(), "alice1", "pass1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if loggedIn.User() != registered.User() {
		t.Fatalf("login returned %+v, registered %+v", loggedIn.User(), registered.User())
	}
}

func TestCredentialVerifierDoesNotRevealUnknownLogins(t *testing.T) {
	t.Parallel()

	verifier := newTestCredentialVerifier(t, NewMemoryCredentialStore(), nil)
	registerAlice(t, verifier)

	_, unknownErr := verifier.Login(context.Background(), "bob", "pass1")
	_, wrongErr := verifier.Login(context.Background(), "alice1", "wrong")

	for name, err := range map[string]error{"unknown": unknownErr, "wrong": wrongErr} {
		authError := AsError(err)
		if authError.Kind != KindInvalidCredentials {
			t.Fatalf("%s: expected invalid credentials, got %v", name, err)
		}
		if authError.Kind.HTTPStatus() != 401 {
			t.Fatalf("%s: expected 401, got %d", name, authError.Kind.HTTPStatus())
		}
	}
	if AsError(unknownErr).Message != AsError(wrongErr).Message {
		t.Fatalf("messages differ between unknown login and wrong password")
	}
}

func TestCredentialVerifierRegisterConflict(t *testing.T) {
	t.Parallel()

	verifier := newTestCredentialVerifier(t, NewMemoryCredentialStore(), nil)
	registerAlice(t, verifier)

	_, err := verifier.Register(context.Background(), RegistrationInput{Login: "alice1", Password: "other", Nom: "X", Prenom: "Y"})
	if !IsKind(err, KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if !errors.Is(err, ErrCredentialExists) {
		t.Fatalf("expected ErrCredentialExists cause, got %v", err)
	}
}

func TestCredentialVerifierValidationRunsBeforeStore(t *testing.T) {
	t.Parallel()

	verifier := newTestCredentialVerifier(t, brokenStore{}, rejectingValidator{})

	_, loginErr := verifier.Login(context.Background(), "x", "y")
	loginError := AsError(loginErr)
	if loginError.Kind != KindValidation || loginError.Message != "Email ou mot de passe incorrect" {
		t.Fatalf("expected validation error with the login message, got %+v", loginError)
	}
	_, registerErr := verifier.Register(context.Background(), RegistrationInput{Login: "x"})
	authError := AsError(registerErr)
	if authError.Kind != KindValidation || len(authError.Fields) != 1 || authError.Fields[0].Field != "nom" {
		t.Fatalf("expected field errors, got %+v", authError)
	}
}

func TestCredentialVerifierStoreFailureIsInternal(t *testing.T) {
	t.Parallel()

	verifier := newTestCredentialVerifier(t, brokenStore{}, nil)
	if _, err := verifier.Login(context.Background(), "alice1", "pass1"); !IsKind(err, KindInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if _, err := verifier.Register(context.Background(), RegistrationInput{Login: "alice1", Password: "pass1"}); !IsKind(err, KindInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestBcryptHasher(t *testing.T) {
	t.Parallel()

	hasher := NewBcryptHasher(4)
	hash, err := hasher.Hash("pass1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := hasher.Compare(hash, "pass1"); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if err := hasher.Compare(hash, "pass2"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
	if _, err := hasher.Hash(""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
	if NewBcryptHasher(99).cost != DefaultPasswordCost {
		t.Fatalf("expected out-of-range cost to fall back to default")
	}
}
