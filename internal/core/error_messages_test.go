package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "invalid credentials",
			err:         ErrInvalidCredentials,
			wantCode:    "AUTH001",
			wantMessage: "Username or password is incorrect",
		},
		{
			name:        "wrapped unauthorized",
			err:         fmt.Errorf("add account: %w", ErrUnauthorized),
			wantCode:    "AUTH002",
			wantMessage: "You do not have permission for this action",
		},
		{
			name:        "duplicate username",
			err:         ErrDuplicateUsername,
			wantCode:    "ACC001",
			wantMessage: "An account with this username already exists",
		},
		{
			name:        "last admin",
			err:         ErrLastAdminProtected,
			wantCode:    "ACC002",
			wantMessage: "The last administrator cannot be removed",
		},
		{
			name:        "malformed input from xlsx",
			err:         fmt.Errorf("%w: zip: not a valid zip file", ErrMalformedInput),
			wantCode:    "CSV001",
			wantMessage: "The file has no header line",
		},
		{
			name:        "file too large",
			err:         fmt.Errorf("%w: exceeds 10 bytes", ErrFileTooLarge),
			wantCode:    "CSV003",
			wantMessage: "The file exceeds the upload limit",
		},
		{
			name:        "too many imports",
			err:         ErrTooManyImports,
			wantCode:    "CSV004",
			wantMessage: "Too many imports in progress",
		},
		{
			name:        "store error",
			err:         NewStoreError("list students", errors.New("connection refused")),
			wantCode:    "DB001",
			wantMessage: "The record store could not complete the request",
		},
		{
			name:        "store error wrapping a deadline maps to the deadline",
			err:         NewStoreError("list students", context.DeadlineExceeded),
			wantCode:    "DB003",
			wantMessage: "Request timed out",
		},
		{
			name:        "not found is not a store failure",
			err:         NewStoreError("delete student", ErrStudentNotFound),
			wantCode:    "STU002",
			wantMessage: "The student record does not exist",
		},
		{
			name:        "validation error",
			err:         &ValidationError{Fields: []FieldError{{Field: "name", Error: "is required"}}},
			wantCode:    "STU001",
			wantMessage: "One or more fields are missing or invalid",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(ErrDuplicateUsername)

	expected := "An account with this username already exists (Code: ACC001). Choose a different username"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}

	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  fmt.Errorf("login: %w", ErrInvalidCredentials),
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := NewStoreError("insert account", errors.New("pgx: conn closed"))
		userErr := NewUserError(techErr)

		if userErr.Error() != "The record store could not complete the request" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}
		if !errors.Is(userErr, ErrStore) {
			t.Error("Unwrap() should expose the store error")
		}
	})
}
