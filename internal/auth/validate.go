// Package auth validates credential forms and runs the sign-in and
// sign-up flows against the backend.
package auth

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinPasswordLength is the shortest password accepted at sign-up
const MinPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidationError is a form error shown next to the offending field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateEmail checks the trimmed address has a plausible shape
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		return &ValidationError{Field: "email", Message: "Please enter a valid email address."}
	}
	return nil
}

// ValidateLogin checks a sign-in form
func ValidateLogin(email, _ string) error {
	return ValidateEmail(email)
}

// ValidateSignup checks a sign-up form, reporting the first problem found
func ValidateSignup(email, password, confirm string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return &ValidationError{Field: "password", Message: "Password must be at least 6 characters long."}
	}
	if password != confirm {
		return &ValidationError{Field: "confirm", Message: "Passwords do not match."}
	}
	return nil
}
