// Package auth owns sessions: who is logged in, the durable slot the
// process session token lives in, and the role checks that gate account
// changes.
//
// A Guard is either anonymous or authenticated as exactly one principal.
// That process session serves single-actor callers such as the admin CLI.
// HTTP requests carry their own signed token instead, resolved per request
// into a Session and scoped to the request context.
//
// Sessions never survive a restart: NewGuard discards whatever the slot
// holds, and tokens issued before the Guard started are refused.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/JonMunkholm/disha/internal/core"
	"github.com/JonMunkholm/disha/internal/logging"
)

// ErrAdminExists is returned by Bootstrap when an admin account already exists.
var ErrAdminExists = errors.New("an admin account already exists")

// Redirect targets returned by a successful login.
const (
	AdminHome = "/admin"
	UserHome  = "/dashboard"
)

// Options configures a Guard.
type Options struct {
	// Secret signs session tokens. Empty means a random per-process secret.
	Secret []byte
	// BcryptCost is the cost used for new password hashes. Zero means
	// bcrypt.DefaultCost.
	BcryptCost int
	// TokenTTL bounds how long an issued token verifies. Zero means tokens
	// carry no expiry and live until restart.
	TokenTTL time.Duration
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Principal core.Principal `json:"principal"`
	Redirect  string         `json:"redirect"`
}

// Guard holds the current session and authorizes account mutations.
// It is safe for concurrent use.
type Guard struct {
	accounts core.AccountStore
	slot     Slot
	tokens   *TokenCodec
	cost     int
	started  time.Time

	mu      sync.RWMutex
	current *core.Principal

	// accountsMu serializes account mutations so a uniqueness or last
	// admin check still holds when the write lands.
	accountsMu sync.Mutex
}

var _ core.Authorizer = (*Guard)(nil)

// NewGuard creates an anonymous Guard. Any value left in slot by a previous
// process is logged and cleared.
func NewGuard(ctx context.Context, accounts core.AccountStore, slot Slot, opts Options) (*Guard, error) {
	tokens, err := NewTokenCodec(opts.Secret)
	if err != nil {
		return nil, err
	}
	tokens.ttl = opts.TokenTTL
	g := &Guard{
		accounts: accounts,
		slot:     slot,
		tokens:   tokens,
		cost:     opts.BcryptCost,
		started:  tokens.now().Truncate(time.Second),
	}
	if err := g.discardPersisted(ctx); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Guard) discardPersisted(ctx context.Context) error {
	logger := logging.FromContext(ctx)

	value, found, err := g.slot.Load(ctx)
	switch {
	case err != nil:
		logger.Warn("session slot unreadable, clearing", "error", err)
	case found:
		if p, derr := g.tokens.Decode(value); derr != nil {
			logger.Info("discarding malformed persisted session", "error", derr)
		} else {
			logger.Info("discarding persisted session", "username", p.Username)
		}
	}

	if err := g.slot.Clear(ctx); err != nil {
		return fmt.Errorf("clear session slot: %w", err)
	}
	return nil
}

// Authenticate checks username and password without touching any session.
func (g *Guard) Authenticate(ctx context.Context, username, password string) (core.Principal, error) {
	username = core.CleanString(username)

	acct, found, err := g.accounts.FindAccountByUsername(ctx, username)
	if err != nil {
		return core.Principal{}, err
	}

	var hash []byte
	if found {
		hash = acct.PasswordHash
	}
	if !CheckPassword(hash, password) {
		logging.FromContext(ctx).Info("login failed", "username", username)
		return core.Principal{}, core.ErrInvalidCredentials
	}

	p := acct.Principal()
	logging.FromContext(ctx).Info("login succeeded",
		"username", p.Username,
		"role", string(p.Role),
	)
	return p, nil
}

// Login authenticates username and password and makes the principal the
// process session. On failure the session is left exactly as it was.
func (g *Guard) Login(ctx context.Context, username, password string) (LoginResult, error) {
	principal, err := g.Authenticate(ctx, username, password)
	if err != nil {
		return LoginResult{}, err
	}
	token, err := g.tokens.Encode(principal)
	if err != nil {
		return LoginResult{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.slot.Store(ctx, token); err != nil {
		return LoginResult{}, fmt.Errorf("persist session: %w", err)
	}
	g.current = &principal

	return LoginResult{Principal: principal, Redirect: HomeFor(principal)}, nil
}

// IssueToken signs p into a token a client can present with later requests.
func (g *Guard) IssueToken(p core.Principal) (string, error) {
	return g.tokens.Encode(p)
}

// ResolveToken verifies a token presented by a client and returns the
// principal it names, reloaded from the store. Tokens issued before this
// Guard started, expired tokens and tokens for accounts that no longer
// exist fail with core.ErrMalformedSession.
func (g *Guard) ResolveToken(ctx context.Context, token string) (core.Principal, error) {
	claims, err := g.tokens.decodeClaims(token)
	if err != nil {
		return core.Principal{}, err
	}
	if claims.IssuedAt == nil || claims.IssuedAt.Time.Before(g.started) {
		return core.Principal{}, fmt.Errorf("%w: issued before startup", core.ErrMalformedSession)
	}

	acct, found, err := g.accounts.GetAccount(ctx, claims.Subject)
	if err != nil {
		return core.Principal{}, err
	}
	if !found {
		return core.Principal{}, fmt.Errorf("%w: account no longer exists", core.ErrMalformedSession)
	}
	return acct.Principal(), nil
}

// HomeFor returns the page p lands on after logging in.
func HomeFor(p core.Principal) string {
	if p.IsAdmin() {
		return AdminHome
	}
	return UserHome
}

// Logout ends the session and clears the slot. Calling it while anonymous
// is allowed. The in-memory session is cleared even if the slot fails.
func (g *Guard) Logout(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.current != nil {
		logging.FromContext(ctx).Info("logout", "username", g.current.Username)
	}
	g.current = nil

	if err := g.slot.Clear(ctx); err != nil {
		return fmt.Errorf("clear session slot: %w", err)
	}
	return nil
}

// Current returns the authenticated principal, if any.
func (g *Guard) Current() (core.Principal, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.current == nil {
		return core.Principal{}, false
	}
	return *g.current, true
}

func (g *Guard) IsAuthenticated() bool {
	_, ok := g.Current()
	return ok
}

func (g *Guard) IsAdmin() bool {
	p, ok := g.Current()
	return ok && p.IsAdmin()
}

// RequireSession returns the current principal or core.ErrUnauthorized.
func (g *Guard) RequireSession() (core.Principal, error) {
	p, ok := g.Current()
	if !ok {
		return core.Principal{}, core.ErrUnauthorized
	}
	return p, nil
}

// RequireAdmin returns the current principal if it is an admin, and
// core.ErrUnauthorized otherwise.
func (g *Guard) RequireAdmin() (core.Principal, error) {
	p, ok := g.Current()
	if !ok || !p.IsAdmin() {
		return core.Principal{}, core.ErrUnauthorized
	}
	return p, nil
}

// accountInput is validated before any account is created.
type accountInput struct {
	Username string    `json:"username" validate:"required,max=64"`
	Password string    `json:"password" validate:"required,min=6,max=72"`
	Role     core.Role `json:"role" validate:"required,oneof=admin user"`
}

// caller returns the authorizer scoped to ctx, falling back to the process
// session. scoped reports whether ctx carried one.
func (g *Guard) caller(ctx context.Context) (authz core.Authorizer, scoped bool) {
	if a, ok := core.AuthorizerFromContext(ctx); ok {
		return a, true
	}
	return g, false
}

// AddAccount creates an account. Only admins may call it; usernames must be
// unique.
func (g *Guard) AddAccount(ctx context.Context, username, password string, role core.Role) (core.AccountRecord, error) {
	authz, _ := g.caller(ctx)
	actor, err := authz.RequireAdmin()
	if err != nil {
		return core.AccountRecord{}, err
	}

	g.accountsMu.Lock()
	defer g.accountsMu.Unlock()

	acct, err := createAccount(ctx, g.accounts, username, password, role, g.cost)
	if err != nil {
		return core.AccountRecord{}, err
	}

	logging.FromContext(ctx).Info("account added",
		"username", acct.Username,
		"role", string(acct.Role),
		"by", actor.Username,
	)
	return acct, nil
}

func createAccount(ctx context.Context, accounts core.AccountStore, username, password string, role core.Role, cost int) (core.AccountRecord, error) {
	in := accountInput{Username: core.CleanString(username), Password: password, Role: role}
	if err := core.ValidateStruct(in); err != nil {
		return core.AccountRecord{}, err
	}

	_, found, err := accounts.FindAccountByUsername(ctx, in.Username)
	if err != nil {
		return core.AccountRecord{}, err
	}
	if found {
		return core.AccountRecord{}, core.ErrDuplicateUsername
	}

	hash, err := HashPassword(in.Password, cost)
	if err != nil {
		return core.AccountRecord{}, err
	}

	return accounts.InsertAccount(ctx, core.NewAccountRecord{
		Username:     in.Username,
		Role:         in.Role,
		PasswordHash: hash,
	})
}

// RemoveAccount deletes the account with id. Only admins may call it, and
// the last remaining admin cannot be removed. An admin removing their own
// account through the process session is logged out.
func (g *Guard) RemoveAccount(ctx context.Context, id string) error {
	authz, scoped := g.caller(ctx)
	actor, err := authz.RequireAdmin()
	if err != nil {
		return err
	}

	g.accountsMu.Lock()
	defer g.accountsMu.Unlock()

	target, found, err := g.accounts.GetAccount(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return core.ErrAccountNotFound
	}

	if target.Role == core.RoleAdmin {
		admins, err := g.accounts.CountAccountsByRole(ctx, core.RoleAdmin)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return core.ErrLastAdminProtected
		}
	}

	if err := g.accounts.DeleteAccount(ctx, id); err != nil {
		return err
	}

	logging.FromContext(ctx).Info("account removed",
		"username", target.Username,
		"role", string(target.Role),
		"by", actor.Username,
	)

	if target.ID == actor.ID && !scoped {
		return g.Logout(ctx)
	}
	return nil
}

// ListAccounts returns every account, or only those with role when it is
// non-empty. Only admins may call it.
func (g *Guard) ListAccounts(ctx context.Context, role core.Role) ([]core.AccountRecord, error) {
	authz, _ := g.caller(ctx)
	if _, err := authz.RequireAdmin(); err != nil {
		return nil, err
	}

	all, err := g.accounts.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	if role == "" {
		return all, nil
	}

	out := make([]core.AccountRecord, 0, len(all))
	for _, a := range all {
		if a.Role == role {
			out = append(out, a)
		}
	}
	return out, nil
}

// Bootstrap creates the first admin account. It refuses with ErrAdminExists
// once any admin exists, so it cannot be used to bypass the role check.
func Bootstrap(ctx context.Context, accounts core.AccountStore, username, password string) (core.AccountRecord, error) {
	admins, err := accounts.CountAccountsByRole(ctx, core.RoleAdmin)
	if err != nil {
		return core.AccountRecord{}, err
	}
	if admins > 0 {
		return core.AccountRecord{}, ErrAdminExists
	}

	acct, err := createAccount(ctx, accounts, username, password, core.RoleAdmin, 0)
	if err != nil {
		return core.AccountRecord{}, err
	}
	slog.Info("bootstrap admin created", "username", acct.Username)
	return acct, nil
}
