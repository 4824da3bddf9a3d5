package core

// Error Codes Reference
//
// Each user-visible failure carries a code that users can quote to support.
// Codes are grouped by category:
//
//	AUTH001 - Invalid credentials: Username or password is incorrect
//	AUTH002 - Not permitted: You do not have permission for this action
//	AUTH003 - Session unreadable: The saved session could not be read
//
//	ACC001  - Duplicate username: An account with this username already exists
//	ACC002  - Last admin: The last administrator cannot be removed
//	ACC003  - Account not found: The account does not exist
//
//	CSV001  - Malformed file: The file has no header line
//	CSV002  - No valid rows: Every row in the file was missing a student name
//	CSV003  - File too large: The file exceeds the upload limit
//	CSV004  - Busy: Too many imports in progress
//
//	STU001  - Invalid student: One or more fields are missing or invalid
//	STU002  - Student not found: The student record does not exist
//
//	DB001   - Store failure: The record store could not complete the request
//	DB002   - Request cancelled: The request was cancelled
//	DB003   - Request timeout: The request timed out
//
//	ERR000  - Unknown error: An unexpected error occurred
//
// The first matching entry wins. Matching uses errors.Is, so wrapped errors
// map the same as the sentinel they wrap. *ValidationError is matched with
// errors.As and maps to STU001.

import (
	"context"
	"errors"
	"fmt"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorMapping struct {
	target error
	msg    UserMessage
}

// errorMappings is checked in order. Specific sentinels come before ErrStore
// because a StoreError may wrap a not-found sentinel.
var errorMappings = []errorMapping{
	{ErrInvalidCredentials, UserMessage{
		Message: "Username or password is incorrect",
		Action:  "Check your credentials and try again",
		Code:    "AUTH001",
	}},
	{ErrUnauthorized, UserMessage{
		Message: "You do not have permission for this action",
		Action:  "Log in with an administrator account",
		Code:    "AUTH002",
	}},
	{ErrMalformedSession, UserMessage{
		Message: "The saved session could not be read",
		Action:  "Please log in again",
		Code:    "AUTH003",
	}},
	{ErrDuplicateUsername, UserMessage{
		Message: "An account with this username already exists",
		Action:  "Choose a different username",
		Code:    "ACC001",
	}},
	{ErrLastAdminProtected, UserMessage{
		Message: "The last administrator cannot be removed",
		Action:  "Create another administrator first",
		Code:    "ACC002",
	}},
	{ErrAccountNotFound, UserMessage{
		Message: "The account does not exist",
		Action:  "Refresh the account list",
		Code:    "ACC003",
	}},
	{ErrMalformedInput, UserMessage{
		Message: "The file has no header line",
		Action:  "Upload a file whose first line holds the column titles",
		Code:    "CSV001",
	}},
	{ErrNoValidRows, UserMessage{
		Message: "No rows in the file had a student name",
		Action:  "Check that the first column holds student names",
		Code:    "CSV002",
	}},
	{ErrFileTooLarge, UserMessage{
		Message: "The file exceeds the upload limit",
		Action:  "Split the file into smaller chunks",
		Code:    "CSV003",
	}},
	{ErrTooManyImports, UserMessage{
		Message: "Too many imports in progress",
		Action:  "Please wait a moment and try again",
		Code:    "CSV004",
	}},
	{ErrStudentNotFound, UserMessage{
		Message: "The student record does not exist",
		Action:  "Refresh the student list",
		Code:    "STU002",
	}},
	{context.Canceled, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "DB002",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Request timed out",
		Action:  "Please try again later",
		Code:    "DB003",
	}},
	{ErrStore, UserMessage{
		Message: "The record store could not complete the request",
		Action:  "Please try again in a few moments",
		Code:    "DB001",
	}},
}

var validationMessage = UserMessage{
	Message: "One or more fields are missing or invalid",
	Action:  "Fill in every field and try again",
	Code:    "STU001",
}

// defaultMessage is returned when nothing matches (ERR000). Support staff
// should check the logs for the original error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message. A nil error maps to
// the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		return validationMessage
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error, kept for logging, with the message
// shown to users.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
