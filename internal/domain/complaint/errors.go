package complaint

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a complaint id is unknown
var ErrNotFound = errors.New("complaint not found")

// ValidationError indicates a malformed complaint record.
//
// Records failing validation are dropped at the store boundary and never
// reach filtering, statistics or clustering.
type ValidationError struct {
	ID      string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	prefix := "validation error"
	if e.ID != "" {
		prefix = fmt.Sprintf("validation error for %q", e.ID)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the wrapped error for error chain inspection
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new validation error with context
func NewValidationError(id, msg string, err error) *ValidationError {
	return &ValidationError{ID: id, Message: msg, Err: err}
}

// TransitionError indicates a status change the lifecycle does not allow
type TransitionError struct {
	ID   string
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition for %q: %s -> %s", e.ID, e.From, e.To)
}

// NewTransitionError creates a new transition error
func NewTransitionError(id string, from, to Status) *TransitionError {
	return &TransitionError{ID: id, From: from, To: to}
}

// AuthorizationError indicates the actor lacks the capability for an action
type AuthorizationError struct {
	ActorID string
	Message string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("actor %q not authorized: %s", e.ActorID, e.Message)
}

// NewAuthorizationError creates a new authorization error
func NewAuthorizationError(actorID, msg string) *AuthorizationError {
	return &AuthorizationError{ActorID: actorID, Message: msg}
}

// UpstreamUnavailable indicates the data source, classifier or geocoder
// could not be reached.
type UpstreamUnavailable struct {
	Service string
	Err     error
}

func (e *UpstreamUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("%s unavailable", e.Service)
}

// Unwrap returns the wrapped error for error chain inspection
func (e *UpstreamUnavailable) Unwrap() error {
	return e.Err
}

// NewUpstreamUnavailable creates a new upstream error for the named service
func NewUpstreamUnavailable(service string, err error) *UpstreamUnavailable {
	return &UpstreamUnavailable{Service: service, Err: err}
}

// Helper functions for error type checking

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsTransitionError checks if an error is an invalid transition
func IsTransitionError(err error) bool {
	var target *TransitionError
	return errors.As(err, &target)
}

// IsAuthorizationError checks if an error is an authorization failure
func IsAuthorizationError(err error) bool {
	var target *AuthorizationError
	return errors.As(err, &target)
}

// IsUpstreamUnavailable checks if an error is an upstream failure
func IsUpstreamUnavailable(err error) bool {
	var target *UpstreamUnavailable
	return errors.As(err, &target)
}
