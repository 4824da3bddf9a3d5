package core

import "context"

// AccountStore is the persistence boundary for login accounts.
//
// Lookups return found=false with a nil error when nothing matches.
// Every other failure is reported as a *StoreError.
type AccountStore interface {
	FindAccountByUsername(ctx context.Context, username string) (AccountRecord, bool, error)
	GetAccount(ctx context.Context, id string) (AccountRecord, bool, error)
	InsertAccount(ctx context.Context, acct NewAccountRecord) (AccountRecord, error)
	// DeleteAccount returns ErrAccountNotFound if id does not exist and
	// ErrLastAdminProtected if it is the only admin. The check and the
	// delete are atomic.
	DeleteAccount(ctx context.Context, id string) error
	ListAccounts(ctx context.Context) ([]AccountRecord, error)
	CountAccountsByRole(ctx context.Context, role Role) (int, error)
}

// StudentStore is the persistence boundary for student records.
// The store assigns globally unique IDs on insert.
type StudentStore interface {
	ListStudents(ctx context.Context) ([]StudentRecord, error)
	InsertStudent(ctx context.Context, s NewStudent) (StudentRecord, error)
	// DeleteStudent returns ErrStudentNotFound if id does not exist.
	DeleteStudent(ctx context.Context, id string) error
}

// Store is the full record store facade.
type Store interface {
	AccountStore
	StudentStore
}

// Authorizer answers who is acting and whether they may mutate records.
// Both methods fail with ErrUnauthorized.
type Authorizer interface {
	RequireSession() (Principal, error)
	RequireAdmin() (Principal, error)
}

type authorizerKey struct{}

// WithAuthorizer scopes a to ctx. Operations called with the returned
// context authorize against a instead of their default authorizer, which
// is how an HTTP request acts as its own caller.
func WithAuthorizer(ctx context.Context, a Authorizer) context.Context {
	return context.WithValue(ctx, authorizerKey{}, a)
}

// AuthorizerFromContext returns the authorizer scoped to ctx, if any.
func AuthorizerFromContext(ctx context.Context) (Authorizer, bool) {
	a, ok := ctx.Value(authorizerKey{}).(Authorizer)
	return a, ok
}

// ResolveAuthorizer returns the authorizer scoped to ctx, or fallback.
func ResolveAuthorizer(ctx context.Context, fallback Authorizer) Authorizer {
	if a, ok := AuthorizerFromContext(ctx); ok {
		return a
	}
	return fallback
}
