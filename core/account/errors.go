package account

import (
	"github.com/pkg/errors"
)

// Codes of the authentication failures reported to clients.
const (
	CodeEmailInUse          = "auth/email-already-in-use"
	CodeInvalidEmail        = "auth/invalid-email"
	CodeWeakPassword        = "auth/weak-password"
	CodeUserNotFound        = "auth/user-not-found"
	CodeWrongPassword       = "auth/wrong-password"
	CodeTooManyRequests     = "auth/too-many-requests"
	CodeOperationNotAllowed = "auth/operation-not-allowed"
)

var friendlyMessages = map[string]string{
	CodeEmailInUse:          "Email already in use",
	CodeInvalidEmail:        "Invalid email address",
	CodeWeakPassword:        "Password is too weak",
	CodeUserNotFound:        "No user found with that email",
	CodeWrongPassword:       "Incorrect password",
	CodeTooManyRequests:     "Too many attempts. Try again later",
	CodeOperationNotAllowed: "Operation not allowed",
}

// AuthError is a sign-up or sign-in failure carrying a client-facing code.
type AuthError struct {
	Code string
	Err  error
}

func newAuthError(code string, err error) error {
	return &AuthError{Code: code, Err: err}
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return e.Code
	}
	return e.Code + ": " + e.Err.Error()
}

func (e *AuthError) Unwrap() error { return e.Err }

// FriendlyMessage turns an authentication failure into a message fit for end users.
// Unknown failures keep their raw text.
func FriendlyMessage(err error) string {
	if err == nil {
		return ""
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		if msg, ok := friendlyMessages[authErr.Code]; ok {
			return msg
		}
	}
	return "Authentication failed: " + err.Error()
}
