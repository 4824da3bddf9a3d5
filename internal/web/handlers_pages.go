package web

import (
	"bytes"
	"net/http"
	"net/url"

	"github.com/JonMunkholm/disha/internal/auth"
	"github.com/JonMunkholm/disha/internal/core"
	"github.com/JonMunkholm/disha/internal/logging"
	"github.com/JonMunkholm/disha/internal/web/templates"
	"github.com/a-h/templ"
)

// handleLoginPage shows the sign-in form, or sends an authenticated
// visitor to their home page.
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if p, ok := auth.SessionFromContext(r.Context()).Current(); ok {
		http.Redirect(w, r, auth.HomeFor(p), http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, templates.LoginPage(""))
}

// handleDashboard renders the filtered student table.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	criteria := criteriaFromQuery(r)

	students, err := s.service.ListStudents(ctx, criteria)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	options, err := s.service.FilterOptions(ctx)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	p, _ := auth.SessionFromContext(r.Context()).Current()
	s.render(w, r, http.StatusOK, templates.Dashboard(templates.DashboardData{
		Principal: p,
		Students:  students,
		Options:   options,
		Criteria:  criteria,
		Notice:    r.URL.Query().Get("notice"),
	}))
}

// handleAdminPage renders student entry, import and account management.
func (s *Server) handleAdminPage(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.guard.ListAccounts(r.Context(), "")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	p, _ := auth.SessionFromContext(r.Context()).Current()
	s.render(w, r, http.StatusOK, templates.AdminPage(templates.AdminData{
		Principal: p,
		Accounts:  accounts,
		Notice:    r.URL.Query().Get("notice"),
	}))
}

// render writes c with status. The component is rendered into a buffer
// first so a failure still produces a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	var buf bytes.Buffer
	if err := c.Render(r.Context(), &buf); err != nil {
		logging.FromContext(r.Context()).Error("render failed", "path", r.URL.Path, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// redirectWithNotice finishes a form post by sending the browser back to
// path with a message for the page to display.
func redirectWithNotice(w http.ResponseWriter, r *http.Request, path, notice string) {
	target := path
	if notice != "" {
		target += "?" + url.Values{"notice": {notice}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func criteriaFromQuery(r *http.Request) core.FilterCriteria {
	q := r.URL.Query()
	return core.FilterCriteria{
		District:    q.Get("district"),
		School:      q.Get("school"),
		SearchQuery: q.Get("search"),
	}
}
