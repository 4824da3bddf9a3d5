package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/JonMunkholm/disha/internal/auth"
	"github.com/JonMunkholm/disha/internal/core"
	"github.com/JonMunkholm/disha/internal/logging"
	"github.com/JonMunkholm/disha/internal/web/templates"
)

// maxJSONBody bounds request bodies for the JSON endpoints.
const maxJSONBody = 1 << 20

// SessionResponse describes the current session.
type SessionResponse struct {
	Authenticated bool            `json:"authenticated"`
	Principal     *core.Principal `json:"principal,omitempty"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleGetSession returns the principal this request's cookie names, if any.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	resp := SessionResponse{}
	if p, ok := auth.SessionFromContext(r.Context()).Current(); ok {
		resp.Authenticated = true
		resp.Principal = &p
	}
	writeJSON(w, resp)
}

// handleLogin authenticates from a JSON body or the login form and hands
// the client a session cookie. Other clients are unaffected.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeBody(w, r, &in, func() {
		in.Username = r.PostFormValue("username")
		in.Password = r.PostFormValue("password")
	}); err != nil {
		s.respondError(w, r, err)
		return
	}

	p, err := s.guard.Authenticate(r.Context(), in.Username, in.Password)
	if err != nil {
		if isFormPost(r) && errors.Is(err, core.ErrInvalidCredentials) {
			s.render(w, r, http.StatusUnauthorized, templates.LoginPage(core.MapError(err).Message))
			return
		}
		s.respondError(w, r, err)
		return
	}

	token, err := s.guard.IssueToken(p)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.setSessionCookie(w, token)

	result := auth.LoginResult{Principal: p, Redirect: auth.HomeFor(p)}
	if isFormPost(r) {
		http.Redirect(w, r, result.Redirect, http.StatusSeeOther)
		return
	}
	writeJSON(w, result)
}

// handleLogout clears the session cookie. Logging out while anonymous succeeds.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if p, ok := auth.SessionFromContext(r.Context()).Current(); ok {
		logging.FromContext(r.Context()).Info("logout", "username", p.Username)
	}
	s.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// setSessionCookie stores token in an HttpOnly, SameSite=Strict cookie that
// expires with the token.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.cfg.Session.TTL / time.Second),
		HttpOnly: true,
		Secure:   s.cfg.Session.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.Session.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// decodeBody fills dst from a JSON body, or calls fromForm after parsing a
// form submission. A body that is neither is rejected as invalid input.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, fromForm func()) error {
	if isFormPost(r) {
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		if err := r.ParseForm(); err != nil {
			return fieldError("body", "could not be read as a form")
		}
		fromForm()
		return nil
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fieldError("body", "must be a valid JSON object")
	}
	return nil
}

func fieldError(field, msg string) error {
	return &core.ValidationError{Fields: []core.FieldError{{Field: field, Error: msg}}}
}
