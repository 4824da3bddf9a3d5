// Package database implements the record store: PostgreSQL through a pgx
// pool for deployments, and an in-memory store for tests and local runs.
package database

import (
	"context"
	"sync"
	"time"

	"github.com/JonMunkholm/disha/internal/core"
	"github.com/google/uuid"
)

// Memory is an in-process record store. Records are returned in insertion
// order.
type Memory struct {
	mu       sync.RWMutex
	accounts []core.AccountRecord
	students []core.StudentRecord
	now      func() time.Time
}

var _ core.Store = (*Memory)(nil)

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

func (m *Memory) FindAccountByUsername(ctx context.Context, username string) (core.AccountRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return core.AccountRecord{}, false, core.NewStoreError("find account", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts {
		if a.Username == username {
			return cloneAccount(a), true, nil
		}
	}
	return core.AccountRecord{}, false, nil
}

func (m *Memory) GetAccount(ctx context.Context, id string) (core.AccountRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return core.AccountRecord{}, false, core.NewStoreError("get account", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts {
		if a.ID == id {
			return cloneAccount(a), true, nil
		}
	}
	return core.AccountRecord{}, false, nil
}

func (m *Memory) InsertAccount(ctx context.Context, acct core.NewAccountRecord) (core.AccountRecord, error) {
	if err := ctx.Err(); err != nil {
		return core.AccountRecord{}, core.NewStoreError("insert account", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Username == acct.Username {
			return core.AccountRecord{}, core.ErrDuplicateUsername
		}
	}
	rec := core.AccountRecord{
		ID:           uuid.New().String(),
		Username:     acct.Username,
		Role:         acct.Role,
		PasswordHash: append([]byte(nil), acct.PasswordHash...),
		CreatedAt:    m.now(),
	}
	m.accounts = append(m.accounts, rec)
	return cloneAccount(rec), nil
}

func (m *Memory) DeleteAccount(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return core.NewStoreError("delete account", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.accounts {
		if a.ID != id {
			continue
		}
		if a.Role == core.RoleAdmin && m.countRole(core.RoleAdmin) <= 1 {
			return core.ErrLastAdminProtected
		}
		m.accounts = append(m.accounts[:i], m.accounts[i+1:]...)
		return nil
	}
	return core.ErrAccountNotFound
}

// countRole must be called with m.mu held.
func (m *Memory) countRole(role core.Role) int {
	n := 0
	for _, a := range m.accounts {
		if a.Role == role {
			n++
		}
	}
	return n
}

func (m *Memory) ListAccounts(ctx context.Context) ([]core.AccountRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.NewStoreError("list accounts", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.AccountRecord, len(m.accounts))
	for i, a := range m.accounts {
		out[i] = cloneAccount(a)
	}
	return out, nil
}

func (m *Memory) CountAccountsByRole(ctx context.Context, role core.Role) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, core.NewStoreError("count accounts", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.countRole(role), nil
}

func (m *Memory) ListStudents(ctx context.Context) ([]core.StudentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.NewStoreError("list students", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.StudentRecord, len(m.students))
	copy(out, m.students)
	return out, nil
}

func (m *Memory) InsertStudent(ctx context.Context, s core.NewStudent) (core.StudentRecord, error) {
	if err := ctx.Err(); err != nil {
		return core.StudentRecord{}, core.NewStoreError("insert student", err)
	}
	rec := core.StudentRecord{
		ID:          uuid.New().String(),
		Name:        s.Name,
		Class:       s.Class,
		PhoneNumber: s.PhoneNumber,
		SchoolName:  s.SchoolName,
		State:       s.State,
		District:    s.District,
		CreatedAt:   m.now(),
	}
	m.mu.Lock()
	m.students = append(m.students, rec)
	m.mu.Unlock()
	return rec, nil
}

func (m *Memory) DeleteStudent(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return core.NewStoreError("delete student", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.students {
		if s.ID == id {
			m.students = append(m.students[:i], m.students[i+1:]...)
			return nil
		}
	}
	return core.ErrStudentNotFound
}

func cloneAccount(a core.AccountRecord) core.AccountRecord {
	a.PasswordHash = append([]byte(nil), a.PasswordHash...)
	return a
}
