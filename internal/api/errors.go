package api

import (
	"errors"
	"fmt"
)

// Failure kinds. Every *Error matches exactly one of these with errors.Is.
var (
	ErrRegistration = errors.New("registration failed")
	ErrAuth         = errors.New("authentication failed")
	ErrUpload       = errors.New("upload failed")
	ErrFetchScans   = errors.New("fetching scans failed")
	ErrDelete       = errors.New("delete failed")
	ErrBulkDelete   = errors.New("bulk delete failed")
	ErrLookup       = errors.New("recommendation lookup failed")
	ErrHistory      = errors.New("history request failed")
)

// Error is a failed backend call. Detail is the message meant for the user:
// the backend's own "detail" when it sent one, otherwise a generic message
// for the operation.
type Error struct {
	Kind   error
	Status int // 0 when no response was received
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Status == 0 {
		return fmt.Sprintf("%s: %v", e.Detail, e.Err)
	}
	return e.Detail
}

func (e *Error) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// IsNetwork reports whether err is a backend call that never got a response
func IsNetwork(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == 0
}

// Detail returns the user-facing message of a backend error, or err's text
func Detail(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return err.Error()
}
