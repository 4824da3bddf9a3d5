package web

import (
	"net/http"

	"github.com/JonMunkholm/disha/internal/auth"
	"github.com/JonMunkholm/disha/internal/core"
	"github.com/go-chi/chi/v5"
)

type accountRequest struct {
	Username string    `json:"username"`
	Password string    `json:"password"`
	Role     core.Role `json:"role"`
}

// handleListAccounts lists accounts, optionally filtered by ?role=.
func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	role := core.Role(r.URL.Query().Get("role"))
	if role != "" && !role.Valid() {
		s.respondError(w, r, fieldError("role", "must be admin or user"))
		return
	}

	accounts, err := s.guard.ListAccounts(r.Context(), role)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if accounts == nil {
		accounts = []core.AccountRecord{}
	}
	writeJSON(w, accounts)
}

// handleAddAccount creates an account from JSON or the admin form.
func (s *Server) handleAddAccount(w http.ResponseWriter, r *http.Request) {
	var in accountRequest
	if err := decodeBody(w, r, &in, func() {
		in.Username = r.PostFormValue("username")
		in.Password = r.PostFormValue("password")
		in.Role = core.Role(r.PostFormValue("role"))
	}); err != nil {
		s.respondError(w, r, err)
		return
	}

	acct, err := s.guard.AddAccount(r.Context(), in.Username, in.Password, in.Role)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if isFormPost(r) {
		redirectWithNotice(w, r, "/admin", "Created account "+acct.Username)
		return
	}
	writeJSONStatus(w, http.StatusCreated, acct)
}

// handleRemoveAccount deletes the account named by {id}. Removing your own
// account also ends your session.
func (s *Server) handleRemoveAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.guard.RemoveAccount(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	if p, ok := auth.SessionFromContext(r.Context()).Current(); ok && p.ID == id {
		s.clearSessionCookie(w)
	}
	w.WriteHeader(http.StatusNoContent)
}
