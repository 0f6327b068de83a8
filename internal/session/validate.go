package session

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/nhle/todoctl/internal/api"
)

// MinPasswordLength is the shortest password accepted on registration.
const MinPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidationError is a form problem found before anything is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// ValidateLogin checks the login form.
func ValidateLogin(email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return &ValidationError{Field: "email", Message: "Please enter your email and password."}
	}
	return nil
}

// ValidateRegistration checks the registration form. Rules are applied in
// order and the first violation is returned.
func ValidateRegistration(email, password, confirm string) error {
	switch {
	case strings.TrimSpace(email) == "" || password == "" || confirm == "":
		return &ValidationError{Field: "email", Message: "Please fill in all fields."}
	case len(password) < MinPasswordLength:
		return &ValidationError{Field: "password", Message: "Password must be at least 6 characters."}
	case password != confirm:
		return &ValidationError{Field: "confirm", Message: "Passwords do not match."}
	case !emailPattern.MatchString(strings.TrimSpace(email)):
		return &ValidationError{Field: "email", Message: "Please enter a valid email address."}
	}
	return nil
}

// Messages shown after login and registration.
const (
	MsgLoggedIn         = "Logged in."
	MsgRegistered       = "Account created."
	MsgWrongCredentials = "Incorrect email or password."
	MsgLoginFailed      = "Login failed."
	MsgEmailTaken       = "This email address is already registered."
	MsgInvalidInput     = "There is a problem with the information you entered."
	MsgRegisterFailed   = "Could not create the account."
)

// LoginErrorMessage turns a Login error into a message for the user.
func LoginErrorMessage(err error) string {
	var v *ValidationError
	switch {
	case errors.As(err, &v):
		return v.Message
	case api.IsUnauthorized(err):
		return MsgWrongCredentials
	case api.Detail(err) != "":
		return api.Detail(err)
	}
	return MsgLoginFailed
}

// RegisterErrorMessage turns a Register error into a message for the user.
func RegisterErrorMessage(err error) string {
	var v *ValidationError
	switch {
	case errors.As(err, &v):
		return v.Message
	case api.StatusCode(err) == http.StatusBadRequest:
		if strings.Contains(strings.ToLower(api.Detail(err)), "email") {
			return MsgEmailTaken
		}
		return MsgInvalidInput
	case api.Detail(err) != "":
		return api.Detail(err)
	}
	return MsgRegisterFailed
}
