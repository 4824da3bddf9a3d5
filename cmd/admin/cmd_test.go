package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/disha/internal/auth"
	"github.com/JonMunkholm/disha/internal/core"
	"github.com/JonMunkholm/disha/internal/database"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

type cliEnv struct {
	cli   *commandLine
	store *database.Memory
	out   *bytes.Buffer
}

func setup(t *testing.T) *cliEnv {
	t.Helper()
	store := database.NewMemory()
	guard, err := auth.NewGuard(context.Background(), store, auth.NewMemorySlot(), auth.Options{BcryptCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("NewGuard() error = %v", err)
	}
	svc := core.NewService(store, guard, core.ServiceOptions{})
	out := &bytes.Buffer{}
	return &cliEnv{cli: newCommandLine(store, guard, svc, out), store: store, out: out}
}

// withPasswords makes successive prompts return pwds in order, then empty.
func withPasswords(t *testing.T, pwds ...string) {
	t.Helper()
	i := 0
	readPasswordFunc = func(int) ([]byte, error) {
		if i >= len(pwds) {
			return nil, nil
		}
		p := pwds[i]
		i++
		return []byte(p), nil
	}
	t.Cleanup(func() { readPasswordFunc = term.ReadPassword })
}

func (e *cliEnv) run(args ...string) error {
	return e.cli.run(append([]string{"admin"}, args...))
}

func TestRun_Usage(t *testing.T) {
	env := setup(t)
	withPasswords(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"lol"}},
		{"bootstrap without username", []string{"bootstrap"}},
		{"bootstrap without password", []string{"bootstrap", "-username", "root"}},
		{"adduser without login", []string{"adduser", "-username", "clerk"}},
		{"import without file", []string{"import", "-login", "root"}},
		{"export without login", []string{"export"}},
		{"unknown flag", []string{"export", "-nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := env.run(tt.args...); !errors.Is(err, errHelp) {
				t.Errorf("run(%v) error = %v, want errHelp", tt.args, err)
			}
		})
	}
}

func TestRun_Bootstrap(t *testing.T) {
	env := setup(t)

	withPasswords(t, "rootpass")
	if err := env.run("bootstrap", "-username", "root"); err != nil {
		t.Fatalf("bootstrap error = %v", err)
	}
	if !strings.Contains(env.out.String(), "created admin root") {
		t.Errorf("output = %q", env.out.String())
	}

	withPasswords(t, "otherpass")
	if err := env.run("bootstrap", "-username", "second"); !errors.Is(err, auth.ErrAdminExists) {
		t.Errorf("second bootstrap error = %v, want ErrAdminExists", err)
	}
}

func bootstrapped(t *testing.T) *cliEnv {
	t.Helper()
	env := setup(t)
	if _, err := auth.Bootstrap(context.Background(), env.store, "root", "rootpass"); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	return env
}

func TestRun_AddUser(t *testing.T) {
	env := bootstrapped(t)

	withPasswords(t, "wrong")
	if err := env.run("adduser", "-login", "root", "-username", "clerk"); !errors.Is(err, core.ErrInvalidCredentials) {
		t.Errorf("adduser with bad admin password error = %v, want ErrInvalidCredentials", err)
	}

	withPasswords(t, "rootpass", "clerkpass")
	if err := env.run("adduser", "-login", "root", "-username", "clerk"); err != nil {
		t.Fatalf("adduser error = %v", err)
	}
	acct, found, _ := env.store.FindAccountByUsername(context.Background(), "clerk")
	if !found || acct.Role != core.RoleUser {
		t.Errorf("clerk = %+v, found %v; want a user account", acct, found)
	}

	withPasswords(t, "rootpass", "ownerpass")
	var verr *core.ValidationError
	if err := env.run("adduser", "-login", "root", "-username", "boss", "-role", "owner"); !errors.As(err, &verr) {
		t.Errorf("adduser with unknown role error = %v, want ValidationError", err)
	}

	withPasswords(t, "clerkpass", "x")
	if err := env.run("adduser", "-login", "clerk", "-username", "sneaky", "-role", "admin"); !errors.Is(err, core.ErrUnauthorized) {
		t.Errorf("adduser as non-admin error = %v, want ErrUnauthorized", err)
	}
}

func TestRun_ImportExport(t *testing.T) {
	env := bootstrapped(t)
	dir := t.TempDir()

	src := filepath.Join(dir, "students.csv")
	data := "Name,Class,Phone,School,State,District\nAsha,5,555,North,KA,Mysuru\nRavi,6,556,South,KA,Mandya\n"
	if err := os.WriteFile(src, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	withPasswords(t, "rootpass")
	if err := env.run("import", "-login", "root", "-file", src); err != nil {
		t.Fatalf("import error = %v", err)
	}
	if !strings.Contains(env.out.String(), "imported 2 of 2 students from students.csv") {
		t.Errorf("import output = %q", env.out.String())
	}

	env.out.Reset()
	withPasswords(t, "rootpass")
	if err := env.run("export", "-login", "root", "-format", "csv-legacy", "-district", "Mandya"); err != nil {
		t.Fatalf("export error = %v", err)
	}
	if got := env.out.String(); !strings.Contains(got, "Ravi,6,556,South,KA,Mandya") || strings.Contains(got, "Asha") {
		t.Errorf("export output = %q, want only Ravi", got)
	}

	dst := filepath.Join(dir, "out.xlsx")
	withPasswords(t, "rootpass")
	if err := env.run("export", "-login", "root", "-out", dst); err != nil {
		t.Fatalf("xlsx export error = %v", err)
	}
	f, err := os.Open(dst)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	records, err := core.ParseXLSX(f)
	if err != nil || len(records) != 2 {
		t.Errorf("exported workbook = %d records, err %v; want 2", len(records), err)
	}

	withPasswords(t, "rootpass")
	if err := env.run("export", "-login", "root", "-format", "pdf"); err == nil {
		t.Error("export with unknown format returned no error")
	}
}

func TestRun_ImportErrors(t *testing.T) {
	env := bootstrapped(t)

	withPasswords(t, "rootpass")
	if err := env.run("import", "-login", "root", "-file", filepath.Join(t.TempDir(), "missing.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("import of missing file error = %v, want ErrNotExist", err)
	}

	empty := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(empty, []byte("Name\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	withPasswords(t, "rootpass")
	if err := env.run("import", "-login", "root", "-file", empty); !errors.Is(err, core.ErrNoValidRows) {
		t.Errorf("import of header-only file error = %v, want ErrNoValidRows", err)
	}
}
