package web

// errors.go turns errors into responses. Every error is logged with its
// technical detail and returned to the client as a core.MapError message,
// rendered as JSON for API callers and as HTML for browser form posts.

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/disha/internal/auth"
	"github.com/JonMunkholm/disha/internal/core"
	"github.com/JonMunkholm/disha/internal/logging"
	"github.com/JonMunkholm/disha/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Action  string            `json:"action,omitempty"`
	Code    string            `json:"code"`
	Fields  []core.FieldError `json:"fields,omitempty"`
}

// statusFor maps a domain error to an HTTP status. authenticated decides
// between 401 and 403 for ErrUnauthorized.
func statusFor(err error, authenticated bool) int {
	var verr *core.ValidationError
	switch {
	case errors.Is(err, core.ErrUnauthorized):
		if authenticated {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrDuplicateUsername), errors.Is(err, core.ErrLastAdminProtected):
		return http.StatusConflict
	case errors.Is(err, core.ErrAccountNotFound), errors.Is(err, core.ErrStudentNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrMalformedInput), errors.Is(err, core.ErrNoValidRows), errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, core.ErrStore):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the mapped status and user message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	_, authenticated := auth.SessionFromContext(r.Context()).Current()
	status := statusFor(err, authenticated)
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Info("request rejected", attrs...)
	}

	if wantsJSON(r) {
		resp := ErrorResponse{
			Error:   userMsg.Message,
			Message: userMsg.Message,
			Action:  userMsg.Action,
			Code:    userMsg.Code,
		}
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			resp.Fields = verr.Fields
		}
		writeJSONStatus(w, status, resp)
		return
	}
	s.render(w, r, status, templates.ErrorPage(userMsg.Message, userMsg.Action, userMsg.Code))
}

// isFormPost reports whether r was submitted by an HTML form rather than
// an API client.
func isFormPost(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return false
	}
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(ct, "multipart/form-data")
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	if isFormPost(r) {
		return false
	}
	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// writeError writes a plain JSON error for failures raised outside a
// handler, such as rate limiting.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSONStatus(w, status, ErrorResponse{
		Error:   message,
		Message: message,
		Code:    "ERR000",
	})
}

// writeJSON encodes v as JSON with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}
