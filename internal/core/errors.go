package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthorized       = errors.New("unauthorized access")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrLastAdminProtected = errors.New("cannot remove the last admin")
	ErrMalformedInput     = errors.New("malformed input: no header line")
	ErrStore              = errors.New("record store failure")

	ErrAccountNotFound  = errors.New("account not found")
	ErrStudentNotFound  = errors.New("student not found")
	ErrNoValidRows      = errors.New("no valid data found in file")
	ErrMalformedSession = errors.New("malformed session value")
)

// StoreError wraps a failure reported by the record store. It matches ErrStore
// with errors.Is and exposes the underlying error through Unwrap.
type StoreError struct {
	Op  string
	Err error
}

// NewStoreError wraps err, or returns nil when err is nil. Errors that are
// already classified (not-found sentinels, existing StoreErrors) pass through.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrStudentNotFound) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrStore) match any StoreError.
func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

// FieldError is used to indicate an error with a specific input field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError reports rejected input fields.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Error
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
