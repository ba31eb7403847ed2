package domain

import (
	"errors"
	"strings"
)

var (
	ErrEventNotFound     = errors.New("event not found")
	ErrValidation        = errors.New("validation failed")
	ErrForbidden         = errors.New("only the organizer can do this")
	ErrNotInvited        = errors.New("user is not invited to this event")
	ErrAlreadyInvited    = errors.New("user is already invited to this event")
	ErrRSVPFinal         = errors.New("rsvp already answered and cannot be changed")
	ErrInvalidRSVPStatus = errors.New("rsvp status must be accepted or declined")
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailTaken        = errors.New("email is already registered")
)

// ValidationError describes one rejected field
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors is returned by every validation path; errors.Is(err, ErrValidation) holds
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Field+": "+e.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}

// Details flattens the errors into field -> message, first message per field wins
func (v ValidationErrors) Details() map[string]string {
	out := make(map[string]string, len(v))
	for _, e := range v {
		if _, ok := out[e.Field]; !ok {
			out[e.Field] = e.Message
		}
	}
	return out
}

// NewValidationError returns a single-field validation failure
func NewValidationError(field, message string) error {
	return ValidationErrors{{Field: field, Message: message}}
}
