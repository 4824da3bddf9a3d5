package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/disha/internal/auth"
	"github.com/JonMunkholm/disha/internal/config"
	"github.com/JonMunkholm/disha/internal/core"
	"github.com/JonMunkholm/disha/internal/database"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	srv   *Server
	store *database.Memory
	guard *auth.Guard

	// cookie is the session cookie the next request carries, updated from
	// Set-Cookie like a browser would.
	cookie *http.Cookie
}

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{RequestTimeout: 5 * time.Second},
		Import:   config.ImportConfig{MaxFileSize: 1 << 16},
		Security: config.SecurityConfig{EnableCSP: true},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	store := database.NewMemory()

	for _, a := range []struct {
		username, password string
		role               core.Role
	}{
		{"root", "rootpass", core.RoleAdmin},
		{"viewer", "viewpass", core.RoleUser},
	} {
		hash, err := auth.HashPassword(a.password, bcrypt.MinCost)
		if err != nil {
			t.Fatalf("HashPassword() error = %v", err)
		}
		if _, err := store.InsertAccount(ctx, core.NewAccountRecord{Username: a.username, Role: a.role, PasswordHash: hash}); err != nil {
			t.Fatalf("InsertAccount() error = %v", err)
		}
	}

	guard, err := auth.NewGuard(ctx, store, auth.NewMemorySlot(), auth.Options{BcryptCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("NewGuard() error = %v", err)
	}
	svc := core.NewService(store, guard, core.ServiceOptions{MaxFileSize: 1 << 16})

	srv, err := NewServer(svc, guard, testConfig())
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, store: store, guard: guard}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(req)
}

// send serves req with the current session cookie and keeps whatever
// session cookie the response sets.
func (e *testEnv) send(req *http.Request) *httptest.ResponseRecorder {
	if e.cookie != nil {
		req.AddCookie(e.cookie)
	}
	rec := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name != e.srv.cookieName {
			continue
		}
		if c.MaxAge < 0 || c.Value == "" {
			e.cookie = nil
		} else {
			e.cookie = c
		}
	}
	return rec
}

func (e *testEnv) form(t *testing.T, path string, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/html")
	return e.send(req)
}

func (e *testEnv) login(t *testing.T, username, password string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/session", credentials{Username: username, Password: password})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d, body %s", username, rec.Code, rec.Body.String())
	}
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestSession_LoginLogout(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/session", nil)
	if got := decodeJSON[SessionResponse](t, rec); got.Authenticated {
		t.Fatalf("anonymous session = %+v", got)
	}

	rec = env.do(t, http.MethodPost, "/api/session", credentials{Username: "root", Password: "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad password status = %d, want 401", rec.Code)
	}
	if got := decodeJSON[ErrorResponse](t, rec); got.Code != "AUTH001" {
		t.Errorf("bad password code = %q, want AUTH001", got.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/session", credentials{Username: "root", Password: "rootpass"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := decodeJSON[auth.LoginResult](t, rec); got.Redirect != auth.AdminHome || got.Principal.Username != "root" {
		t.Errorf("login result = %+v", got)
	}

	rec = env.do(t, http.MethodGet, "/api/session", nil)
	got := decodeJSON[SessionResponse](t, rec)
	if !got.Authenticated || got.Principal == nil || got.Principal.Role != core.RoleAdmin {
		t.Errorf("session after login = %+v", got)
	}

	if rec := env.do(t, http.MethodDelete, "/api/session", nil); rec.Code != http.StatusNoContent {
		t.Errorf("logout status = %d, want 204", rec.Code)
	}
	if env.cookie != nil {
		t.Error("logout did not clear the session cookie")
	}
	if got := decodeJSON[SessionResponse](t, env.do(t, http.MethodGet, "/api/session", nil)); got.Authenticated {
		t.Errorf("session after logout = %+v", got)
	}
	if env.guard.IsAuthenticated() {
		t.Error("HTTP login changed the process session")
	}
}

func TestSession_CookieScopesEachClient(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "root", "rootpass")

	c := env.cookie
	if c == nil {
		t.Fatal("login set no session cookie")
	}
	if !c.HttpOnly || c.SameSite != http.SameSiteStrictMode || c.Path != "/" {
		t.Errorf("session cookie = %+v, want HttpOnly SameSite=Strict Path=/", c)
	}

	// A second client that never logged in gets nothing from root's login.
	adminCookie := env.cookie
	env.cookie = nil
	stranger := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPost, "/api/accounts", accountRequest{Username: "mallory", Password: "mallory1", Role: core.RoleAdmin}},
		{http.MethodGet, "/api/accounts", nil},
		{http.MethodDelete, "/api/students/any", nil},
		{http.MethodGet, "/api/students", nil},
	}
	for _, req := range stranger {
		if rec := env.do(t, req.method, req.path, req.body); rec.Code != http.StatusUnauthorized {
			t.Errorf("cookieless %s %s = %d, want 401", req.method, req.path, rec.Code)
		}
	}
	if got := decodeJSON[SessionResponse](t, env.do(t, http.MethodGet, "/api/session", nil)); got.Authenticated {
		t.Errorf("cookieless session = %+v", got)
	}

	env.cookie = &http.Cookie{Name: env.srv.cookieName, Value: adminCookie.Value + "x"}
	if rec := env.do(t, http.MethodGet, "/api/accounts", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("tampered cookie status = %d, want 401", rec.Code)
	}
	if _, found, _ := env.store.FindAccountByUsername(context.Background(), "mallory"); found {
		t.Error("cookieless request created an account")
	}

	// Two clients logged in as different roles stay separate.
	env.cookie = nil
	env.login(t, "viewer", "viewpass")
	viewerCookie := env.cookie
	env.cookie = adminCookie
	if rec := env.do(t, http.MethodGet, "/api/accounts", nil); rec.Code != http.StatusOK {
		t.Errorf("admin after viewer login = %d, want 200", rec.Code)
	}
	env.cookie = viewerCookie
	if rec := env.do(t, http.MethodGet, "/api/accounts", nil); rec.Code != http.StatusForbidden {
		t.Errorf("viewer accounts = %d, want 403", rec.Code)
	}
}

func TestSession_RemovedAccountLosesAccess(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "viewer", "viewpass")
	viewerCookie := env.cookie

	env.cookie = nil
	env.login(t, "root", "rootpass")
	viewer, _, _ := env.store.FindAccountByUsername(context.Background(), "viewer")
	if rec := env.do(t, http.MethodDelete, "/api/accounts/"+viewer.ID, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("remove viewer = %d", rec.Code)
	}

	env.cookie = viewerCookie
	if rec := env.do(t, http.MethodGet, "/api/students", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("removed account status = %d, want 401", rec.Code)
	}
}

func TestSession_LoginForm(t *testing.T) {
	env := newTestEnv(t)

	rec := env.form(t, "/api/session", url.Values{"username": {"viewer"}, "password": {"nope"}})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("form login with bad password status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Username or password is incorrect") {
		t.Errorf("login page does not show the failure: %s", rec.Body.String())
	}

	rec = env.form(t, "/api/session", url.Values{"username": {"viewer"}, "password": {"viewpass"}})
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != auth.UserHome {
		t.Errorf("form login = %d to %q, want 303 to %s", rec.Code, rec.Header().Get("Location"), auth.UserHome)
	}
}

func TestStudents_Authorization(t *testing.T) {
	env := newTestEnv(t)
	student := core.NewStudent{Name: "Asha", Class: "5", PhoneNumber: "555", SchoolName: "North", State: "KA", District: "Mysuru"}

	tests := []struct {
		name   string
		login  string
		method string
		path   string
		body   any
		want   int
	}{
		{"anonymous list", "", http.MethodGet, "/api/students", nil, http.StatusUnauthorized},
		{"anonymous options", "", http.MethodGet, "/api/students/options", nil, http.StatusUnauthorized},
		{"anonymous export", "", http.MethodGet, "/api/students/export", nil, http.StatusUnauthorized},
		{"user list", "viewer", http.MethodGet, "/api/students", nil, http.StatusOK},
		{"user add", "viewer", http.MethodPost, "/api/students", student, http.StatusForbidden},
		{"user delete", "viewer", http.MethodDelete, "/api/students/some-id", nil, http.StatusForbidden},
		{"user accounts", "viewer", http.MethodGet, "/api/accounts", nil, http.StatusForbidden},
		{"admin add", "root", http.MethodPost, "/api/students", student, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.cookie = nil
			if tt.login != "" {
				env.login(t, tt.login, tt.login[:4]+"pass")
			}
			if rec := env.do(t, tt.method, tt.path, tt.body); rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestStudents_AddListRemove(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "root", "rootpass")

	for _, s := range []core.NewStudent{
		{Name: "Asha", Class: "5", PhoneNumber: "555", SchoolName: "North", State: "KA", District: "Mysuru"},
		{Name: "Ravi", Class: "6", PhoneNumber: "556", SchoolName: "South", State: "KA", District: "Mandya"},
	} {
		if rec := env.do(t, http.MethodPost, "/api/students", s); rec.Code != http.StatusCreated {
			t.Fatalf("add %s: status %d, body %s", s.Name, rec.Code, rec.Body.String())
		}
	}

	rec := env.do(t, http.MethodPost, "/api/students", core.NewStudent{Name: "Incomplete"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("incomplete student status = %d, want 400", rec.Code)
	}
	if got := decodeJSON[ErrorResponse](t, rec); got.Code != "STU001" || len(got.Fields) != 5 {
		t.Errorf("incomplete student error = %+v, want STU001 with 5 fields", got)
	}

	if rec := env.do(t, http.MethodPost, "/api/students", `{"name":`); rec.Code != http.StatusBadRequest {
		t.Errorf("broken JSON status = %d, want 400", rec.Code)
	}

	list := decodeJSON[StudentListResponse](t, env.do(t, http.MethodGet, "/api/students?district=Mandya", nil))
	if list.Count != 1 || list.Students[0].Name != "Ravi" {
		t.Fatalf("filtered list = %+v, want only Ravi", list)
	}

	opts := decodeJSON[core.FilterOptions](t, env.do(t, http.MethodGet, "/api/students/options", nil))
	if strings.Join(opts.Districts, ",") != "Mandya,Mysuru" {
		t.Errorf("districts = %v, want [Mandya Mysuru]", opts.Districts)
	}

	path := "/api/students/" + list.Students[0].ID
	if rec := env.do(t, http.MethodDelete, path, nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, path, nil); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func (e *testEnv) upload(t *testing.T, filename, format, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if format != "" {
		if err := mw.WriteField("format", format); err != nil {
			t.Fatal(err)
		}
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/students/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	return e.send(req)
}

func TestImportExport(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "root", "rootpass")

	csvFile := "Name,Class,Phone,School,State,District\n" +
		"Asha,5,555,North,KA,Mysuru\n" +
		",6,556,South,KA,Mandya\n" +
		"\"Rao, Ravi\",7,557,South,KA,Mandya\n"

	rec := env.upload(t, "students.csv", "", csvFile)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d, body %s", rec.Code, rec.Body.String())
	}
	result := decodeJSON[core.ImportResult](t, rec)
	if result.Inserted != 2 || result.TotalRows != 2 || result.FileName != "students.csv" {
		t.Errorf("import result = %+v, want 2 of 2 from students.csv", result)
	}

	rec = env.do(t, http.MethodGet, "/api/students/export?format=csv&district=Mandya", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("export Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment;") || !strings.Contains(cd, ".csv") {
		t.Errorf("export Content-Disposition = %q", cd)
	}
	if rec.Header().Get("X-Record-Count") != "1" || !strings.Contains(rec.Body.String(), `"Rao, Ravi"`) {
		t.Errorf("export = %s (count %s), want only the quoted Mandya row", rec.Body.String(), rec.Header().Get("X-Record-Count"))
	}

	rec = env.do(t, http.MethodGet, "/api/students/export?format=xlsx", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Header().Get("Content-Disposition"), ".xlsx") {
		t.Errorf("xlsx export = %d, %q", rec.Code, rec.Header().Get("Content-Disposition"))
	}

	if rec := env.do(t, http.MethodGet, "/api/students/export?format=pdf", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown export format status = %d, want 400", rec.Code)
	}
}

func TestImport_Rejections(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.upload(t, "a.csv", "", "Name\nAsha\n"); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous import status = %d, want 401", rec.Code)
	}

	env.login(t, "root", "rootpass")

	tests := []struct {
		name     string
		filename string
		format   string
		content  string
		want     int
		code     string
	}{
		{"empty file", "a.csv", "", "", http.StatusBadRequest, "CSV001"},
		{"header only", "a.csv", "", "Name,Class\n", http.StatusBadRequest, "CSV002"},
		{"unknown format", "a.csv", "pdf", "Name\nAsha\n", http.StatusBadRequest, "STU001"},
		{"too large", "a.csv", "", "Name\n" + strings.Repeat("x", 1<<16), http.StatusRequestEntityTooLarge, "CSV003"},
		{"not a workbook", "a.xlsx", "", "Name\nAsha\n", http.StatusBadRequest, "CSV001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.upload(t, tt.filename, tt.format, tt.content)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
			if got := decodeJSON[ErrorResponse](t, rec); got.Code != tt.code {
				t.Errorf("code = %q, want %q", got.Code, tt.code)
			}
		})
	}
}

func TestAccounts(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "root", "rootpass")

	rec := env.do(t, http.MethodPost, "/api/accounts", accountRequest{Username: "clerk", Password: "clerkpass", Role: core.RoleUser})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add account status = %d, body %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Errorf("account response leaks the password hash: %s", rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/accounts", accountRequest{Username: "clerk", Password: "clerkpass", Role: core.RoleUser})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate account status = %d, want 409", rec.Code)
	}

	users := decodeJSON[[]core.AccountRecord](t, env.do(t, http.MethodGet, "/api/accounts?role=user", nil))
	if len(users) != 2 {
		t.Errorf("user accounts = %d, want 2", len(users))
	}
	if rec := env.do(t, http.MethodGet, "/api/accounts?role=owner", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown role filter status = %d, want 400", rec.Code)
	}

	admins := decodeJSON[[]core.AccountRecord](t, env.do(t, http.MethodGet, "/api/accounts?role=admin", nil))
	if len(admins) != 1 {
		t.Fatalf("admin accounts = %d, want 1", len(admins))
	}
	if rec := env.do(t, http.MethodDelete, "/api/accounts/"+admins[0].ID, nil); rec.Code != http.StatusConflict {
		t.Errorf("removing last admin status = %d, want 409", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/accounts/missing", nil); rec.Code != http.StatusNotFound {
		t.Errorf("removing unknown account status = %d, want 404", rec.Code)
	}
}

func TestAccounts_FormPost(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "root", "rootpass")

	rec := env.form(t, "/api/accounts", url.Values{"username": {"clerk"}, "password": {"clerkpass"}, "role": {"user"}})
	if rec.Code != http.StatusSeeOther || !strings.HasPrefix(rec.Header().Get("Location"), "/admin?notice=") {
		t.Errorf("form add account = %d to %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = env.form(t, "/api/accounts", url.Values{"username": {"clerk"}, "password": {"clerkpass"}, "role": {"user"}})
	if rec.Code != http.StatusConflict || !strings.Contains(rec.Header().Get("Content-Type"), "text/html") {
		t.Errorf("duplicate form post = %d (%s), want an HTML 409", rec.Code, rec.Header().Get("Content-Type"))
	}
}

func TestPages(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `action="/api/session"`) {
		t.Errorf("login page = %d", rec.Code)
	}
	if rec.Header().Get("Content-Security-Policy") == "" || rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("security headers missing")
	}

	for _, path := range []string{"/dashboard", "/admin"} {
		if rec := env.do(t, http.MethodGet, path, nil); rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
			t.Errorf("anonymous %s = %d to %q, want redirect to /", path, rec.Code, rec.Header().Get("Location"))
		}
	}

	env.login(t, "viewer", "viewpass")
	if rec := env.do(t, http.MethodGet, "/admin", nil); rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != auth.UserHome {
		t.Errorf("user /admin = %d to %q", rec.Code, rec.Header().Get("Location"))
	}
	if rec := env.do(t, http.MethodGet, "/", nil); rec.Header().Get("Location") != auth.UserHome {
		t.Errorf("logged-in / redirects to %q", rec.Header().Get("Location"))
	}

	env.cookie = nil
	env.login(t, "root", "rootpass")
	if _, err := env.store.InsertStudent(context.Background(), core.NewStudent{Name: "<b>Asha</b>", District: "Mysuru"}); err != nil {
		t.Fatal(err)
	}

	rec = env.do(t, http.MethodGet, "/dashboard?notice=hello", nil)
	body := rec.Body.String()
	if rec.Code != http.StatusOK || !strings.Contains(body, "&lt;b&gt;Asha&lt;/b&gt;") || strings.Contains(body, "<b>Asha</b>") {
		t.Errorf("dashboard = %d, student name not escaped:\n%s", rec.Code, body)
	}
	if !strings.Contains(body, "hello") {
		t.Error("dashboard does not show the notice")
	}

	rec = env.do(t, http.MethodGet, "/admin", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "viewer") {
		t.Errorf("admin page = %d, want account list", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err           error
		authenticated bool
		want          int
	}{
		{core.ErrUnauthorized, false, http.StatusUnauthorized},
		{core.ErrUnauthorized, true, http.StatusForbidden},
		{core.ErrInvalidCredentials, false, http.StatusUnauthorized},
		{core.ErrDuplicateUsername, true, http.StatusConflict},
		{core.ErrLastAdminProtected, true, http.StatusConflict},
		{core.ErrMalformedInput, true, http.StatusBadRequest},
		{core.ErrNoValidRows, true, http.StatusBadRequest},
		{&core.ValidationError{}, true, http.StatusBadRequest},
		{fmt.Errorf("%w: too big", core.ErrFileTooLarge), true, http.StatusRequestEntityTooLarge},
		{core.ErrStudentNotFound, true, http.StatusNotFound},
		{core.NewStoreError("delete account", core.ErrAccountNotFound), true, http.StatusNotFound},
		{core.ErrTooManyImports, true, http.StatusTooManyRequests},
		{core.NewStoreError("list students", errors.New("connection refused")), true, http.StatusBadGateway},
		{context.DeadlineExceeded, true, http.StatusGatewayTimeout},
		{errors.New("boom"), true, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err, tt.authenticated); got != tt.want {
			t.Errorf("statusFor(%v, %v) = %d, want %d", tt.err, tt.authenticated, got, tt.want)
		}
	}
}
