package auth

import (
	"context"

	"github.com/JonMunkholm/disha/internal/core"
)

// Session is the principal one request acts as. It satisfies
// core.Authorizer, so scoping it with WithSession makes every Service and
// Guard call made while serving the request authorize against it rather
// than the process session. The zero Session is anonymous.
type Session struct {
	principal core.Principal
	ok        bool
}

// NewSession returns a Session authenticated as p.
func NewSession(p core.Principal) Session {
	return Session{principal: p, ok: true}
}

func (s Session) Current() (core.Principal, bool) {
	return s.principal, s.ok
}

func (s Session) RequireSession() (core.Principal, error) {
	if !s.ok {
		return core.Principal{}, core.ErrUnauthorized
	}
	return s.principal, nil
}

func (s Session) RequireAdmin() (core.Principal, error) {
	if !s.ok || !s.principal.IsAdmin() {
		return core.Principal{}, core.ErrUnauthorized
	}
	return s.principal, nil
}

// WithSession scopes s to ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return core.WithAuthorizer(ctx, s)
}

// SessionFromContext returns the Session scoped to ctx. A context without
// one is anonymous.
func SessionFromContext(ctx context.Context) Session {
	if a, ok := core.AuthorizerFromContext(ctx); ok {
		if s, ok := a.(Session); ok {
			return s
		}
	}
	return Session{}
}
