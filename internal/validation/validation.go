// Package validation holds the input-format rules applied before credentials reach the store.
package validation

import (
	"errors"
	"regexp"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/tyemirov/pollutionauth/internal/authkit"
)

var (
	alphanumericPattern = regexp.MustCompile(`^[A-Za-z0-9]{1,20}$`)
	namePattern         = regexp.MustCompile(`^[A-Za-z\x{00C0}-\x{00FF}0-9\s'-]{1,100}$`)
)

const minimumPasswordLength = 4

// RegexValidator implements authkit.Validator with the application's format rules.
type RegexValidator struct{}

// New returns the default validator.
func New() RegexValidator {
	return RegexValidator{}
}

type loginFields struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type registrationFields struct {
	Nom      string `json:"nom"`
	Prenom   string `json:"prenom"`
	Login    string `json:"login"`
	Password string `json:"pass"`
}

// ValidateLogin checks the identifier and password submitted to the login endpoint.
func (RegexValidator) ValidateLogin(identifier string, password string) []authkit.FieldError {
	fields := loginFields{Login: identifier, Password: password}
	return toFieldErrors(validation.ValidateStruct(&fields,
		validation.Field(&fields.Login, loginRules()...),
		validation.Field(&fields.Password, passwordRules()...),
	))
}

// ValidateRegistration checks every field of a registration request.
func (RegexValidator) ValidateRegistration(input authkit.RegistrationInput) []authkit.FieldError {
	fields := registrationFields{
		Nom:      input.Nom,
		Prenom:   input.Prenom,
		Login:    input.Login,
		Password: input.Password,
	}
	return toFieldErrors(validation.ValidateStruct(&fields,
		validation.Field(&fields.Nom, nameRules("nom")...),
		validation.Field(&fields.Prenom, nameRules("prenom")...),
		validation.Field(&fields.Login, loginRules()...),
		validation.Field(&fields.Password, passwordRules()...),
	))
}

func loginRules() []validation.Rule {
	return []validation.Rule{
		validation.Required.Error("Login est requis"),
		validation.Match(alphanumericPattern).Error("Login doit contenir uniquement des lettres et chiffres (1-20 caractères)"),
	}
}

func passwordRules() []validation.Rule {
	return []validation.Rule{
		validation.Required.Error("Mot de passe est requis"),
		validation.RuneLength(minimumPasswordLength, 0).Error("Mot de passe doit contenir au moins 4 caractères"),
		validation.Match(alphanumericPattern).Error("Mot de passe doit contenir uniquement des lettres et chiffres"),
	}
}

func nameRules(fieldName string) []validation.Rule {
	return []validation.Rule{
		validation.Required.Error(fieldName + " est requis"),
		validation.Match(namePattern).Error(fieldName + " contient des caractères invalides"),
	}
}

func toFieldErrors(err error) []authkit.FieldError {
	if err == nil {
		return nil
	}
	var fieldErrors validation.Errors
	if !errors.As(err, &fieldErrors) {
		return []authkit.FieldError{{Field: "", Message: err.Error()}}
	}
	names := make([]string, 0, len(fieldErrors))
	for name := range fieldErrors {
		names = append(names, name)
	}
	sort.Strings(names)
	result := make([]authkit.FieldError, 0, len(names))
	for _, name := range names {
		result = append(result, authkit.FieldError{Field: name, Message: fieldErrors[name].Error()})
	}
	return result
}
