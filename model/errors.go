package model

import "errors"

var (
	// ErrStoreUnavailable marks a failure reported by the remote store or
	// by the network in front of it.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrNotFound is returned by single-record lookups that match nothing.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks a form that failed its client-side checks.
	ErrValidation = errors.New("validation error")
)

// ValidationError carries the notification shown when a form is rejected.
type ValidationError struct {
	Title       string
	Description string
}

func (e *ValidationError) Error() string {
	return e.Title + ": " + e.Description
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func missingInformation() *ValidationError {
	return &ValidationError{
		Title:       "Missing information",
		Description: "Please fill in all required fields",
	}
}
