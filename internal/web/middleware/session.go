package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/disha/internal/auth"
	"github.com/JonMunkholm/disha/internal/core"
	"github.com/JonMunkholm/disha/internal/logging"
)

// TokenResolver turns a presented session token into the principal it
// names. *auth.Guard satisfies it.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (core.Principal, error)
}

// Authenticate resolves the session cookie into an auth.Session scoped to
// the request context. A request without a valid cookie acts anonymously
// no matter who else is logged in. The username is also recorded so every
// log line written while serving the request names who made it.
func Authenticate(resolver TokenResolver, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sess := auth.Session{}

			if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
				p, err := resolver.ResolveToken(ctx, c.Value)
				switch {
				case err == nil:
					sess = auth.NewSession(p)
					ctx = logging.ContextWithActor(ctx, p.Username)
				case errors.Is(err, core.ErrMalformedSession):
					logging.FromContext(ctx).Debug("session cookie rejected", "error", err)
				default:
					logging.FromContext(ctx).Warn("session lookup failed", "error", err)
				}
			}

			next.ServeHTTP(w, r.WithContext(auth.WithSession(ctx, sess)))
		})
	}
}

// RequirePage gates an HTML page on the request's session. Anonymous
// visitors are redirected to loginPath. When adminOnly is set, non-admin
// principals are redirected to fallback.
func RequirePage(adminOnly bool, loginPath, fallback string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.SessionFromContext(r.Context()).Current()
			if !ok {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			if adminOnly && !p.IsAdmin() {
				logging.FromContext(r.Context()).Warn("admin page refused", "path", r.URL.Path, "role", p.Role)
				http.Redirect(w, r, fallback, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
