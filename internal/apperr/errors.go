package apperr

import "fmt"

// ValidationError signals a missing or malformed required field. It is
// raised before any write is attempted.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func Validation(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError signals that a referenced id does not resolve to a record.
type NotFoundError struct {
	Entity string
	ID     interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

func NotFound(entity string, id interface{}) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// AuthenticationRequired signals that the current user identity is
// unavailable for an operation that must stamp a creator.
type AuthenticationRequired struct {
	Message string
}

func (e *AuthenticationRequired) Error() string { return e.Message }

func AuthRequired(message string) error {
	return &AuthenticationRequired{Message: message}
}

// DependencyFailure signals that a collaborator (catalog, storage, redis)
// was unreachable or returned an unexpected error.
type DependencyFailure struct {
	Dependency string
	Err        error
}

func (e *DependencyFailure) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Dependency, e.Err)
}

func (e *DependencyFailure) Unwrap() error { return e.Err }

func Dependency(dependency string, err error) error {
	return &DependencyFailure{Dependency: dependency, Err: err}
}
