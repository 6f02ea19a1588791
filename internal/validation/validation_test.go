package validation

import (
	"testing"

	"github.com/tyemirov/pollutionauth/internal/authkit"
)

func validRegistration() authkit.RegistrationInput {
	return authkit.RegistrationInput{
		Nom:      "Dupont",
		Prenom:   "Élodie",
		Login:    "alice1",
		Password: "secret1",
	}
}

func TestValidateRegistrationAcceptsWellFormedInput(t *testing.T) {
	t.Parallel()

	if fieldErrors := New().ValidateRegistration(validRegistration()); len(fieldErrors) != 0 {
		t.Fatalf("expected no errors, got %#v", fieldErrors)
	}

	hyphenated := validRegistration()
	hyphenated.Nom = "Le Gall-D'Arc"
	if fieldErrors := New().ValidateRegistration(hyphenated); len(fieldErrors) != 0 {
		t.Fatalf("expected names with spaces, hyphens, and apostrophes to pass, got %#v", fieldErrors)
	}
}

func TestValidateRegistrationRejectsFields(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(input *authkit.RegistrationInput)
		field   string
		message string
	}{
		{
			name:    "login with punctuation",
			mutate:  func(input *authkit.RegistrationInput) { input.Login = "alice.1" },
			field:   "login",
			message: "Login doit contenir uniquement des lettres et chiffres (1-20 caractères)",
		},
		{
			name:    "login too long",
			mutate:  func(input *authkit.RegistrationInput) { input.Login = "abcdefghijklmnopqrstu" },
			field:   "login",
			message: "Login doit contenir uniquement des lettres et chiffres (1-20 caractères)",
		},
		{
			name:    "short password",
			mutate:  func(input *authkit.RegistrationInput) { input.Password = "abc" },
			field:   "pass",
			message: "Mot de passe doit contenir au moins 4 caractères",
		},
		{
			name:    "missing nom",
			mutate:  func(input *authkit.RegistrationInput) { input.Nom = "" },
			field:   "nom",
			message: "nom est requis",
		},
		{
			name:    "prenom with markup",
			mutate:  func(input *authkit.RegistrationInput) { input.Prenom = "Alice<script>" },
			field:   "prenom",
			message: "prenom contient des caractères invalides",
		},
	}

	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			input := validRegistration()
			testCase.mutate(&input)
			fieldErrors := New().ValidateRegistration(input)
			if len(fieldErrors) != 1 {
				t.Fatalf("expected exactly one error, got %#v", fieldErrors)
			}
			if fieldErrors[0].Field != testCase.field || fieldErrors[0].Message != testCase.message {
				t.Fatalf("unexpected error: %#v", fieldErrors[0])
			}
		})
	}
}

func TestValidateRegistrationSortsFields(t *testing.T) {
	t.Parallel()

	fieldErrors := New().ValidateRegistration(authkit.RegistrationInput{})
	expected := []string{"login", "nom", "pass", "prenom"}
	if len(fieldErrors) != len(expected) {
		t.Fatalf("expected %d errors, got %#v", len(expected), fieldErrors)
	}
	for index, field := range expected {
		if fieldErrors[index].Field != field {
			t.Fatalf("expected field %q at %d, got %q", field, index, fieldErrors[index].Field)
		}
	}
}

func TestValidateLogin(t *testing.T) {
	t.Parallel()

	if fieldErrors := New().ValidateLogin("alice1", "secret1"); len(fieldErrors) != 0 {
		t.Fatalf("expected no errors, got %#v", fieldErrors)
	}
	fieldErrors := New().ValidateLogin("", "")
	if len(fieldErrors) != 2 || fieldErrors[0].Field != "login" || fieldErrors[1].Field != "password" {
		t.Fatalf("unexpected errors: %#v", fieldErrors)
	}
	if fieldErrors[0].Message != "Login est requis" || fieldErrors[1].Message != "Mot de passe est requis" {
		t.Fatalf("unexpected messages: %#v", fieldErrors)
	}
}
