package authkit

import (
	"errors"
	"net/http"
)

// ErrorKind classifies failures surfaced to HTTP clients.
type ErrorKind string

const (
	KindValidation         ErrorKind = "validation_error"
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	KindUnauthenticated    ErrorKind = "unauthenticated"
	KindForbidden          ErrorKind = "forbidden"
	KindConflict           ErrorKind = "conflict"
	KindInternal           ErrorKind = "internal_error"
)

const (
	messageValidation         = "Données invalides"
	messageInvalidCredentials = "Email ou mot de passe incorrect"
	messageUnauthenticated    = "Token manquant"
	messageForbidden          = "Token invalide ou expiré"
	messageConflict           = "Un utilisateur avec ce login existe déjà"
	messageInternal           = "Erreur interne"
)

// HTTPStatus maps the kind to its response status.
func (kind ErrorKind) HTTPStatus() int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindInvalidCredentials, KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// FieldError describes a single rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the typed failure returned by the credential verifier and the auth middleware.
// Message is fixed per kind; Cause is kept for logging and never rendered.
type Error struct {
	Kind    ErrorKind
	Message string
	Fields  []FieldError
	Cause   error
}

func (authError *Error) Error() string {
	if authError.Cause != nil {
		return string(authError.Kind) + ": " + authError.Cause.Error()
	}
	return string(authError.Kind)
}

func (authError *Error) Unwrap() error {
	return authError.Cause
}

func newError(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, Message: defaultMessage(kind), Cause: cause}
}

// ValidationFailure wraps field errors reported by the validator.
func ValidationFailure(fields []FieldError) *Error {
	return &Error{Kind: KindValidation, Message: messageValidation, Fields: fields}
}

// LoginValidationFailure is ValidationFailure with the login endpoint's message, which stays
// the same as the InvalidCredentials one.
func LoginValidationFailure(fields []FieldError) *Error {
	return &Error{Kind: KindValidation, Message: messageInvalidCredentials, Fields: fields}
}

// AsError maps any error onto the taxonomy; unknown errors become internal.
func AsError(err error) *Error {
	var authError *Error
	if errors.As(err, &authError) {
		return authError
	}
	return newError(KindInternal, err)
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var authError *Error
	return errors.As(err, &authError) && authError.Kind == kind
}

func defaultMessage(kind ErrorKind) string {
	switch kind {
	case KindValidation:
		return messageValidation
	case KindInvalidCredentials:
		return messageInvalidCredentials
	case KindUnauthenticated:
		return messageUnauthenticated
	case KindForbidden:
		return messageForbidden
	case KindConflict:
		return messageConflict
	default:
		return messageInternal
	}
}
