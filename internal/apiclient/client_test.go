package apiclient

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/me/gestion/internal/apitest"
	"github.com/me/gestion/internal/session"
	"github.com/me/gestion/pkg/model"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newSession returns an in-memory session store, optionally seeded.
func newSession(t *testing.T, token string) *session.Store {
	t.Helper()
	s := session.New(session.NewMemoryBackend("http://test"), quietLogger())
	if token != "" {
		if err := s.Set(context.Background(), token); err != nil {
			t.Fatalf("seed token: %v", err)
		}
	}
	return s
}

// capture records the last request seen by a handler.
type capture struct {
	mu     sync.Mutex
	header http.Header
	method string
	path   string
}

func (c *capture) wrap(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		c.header = r.Header.Clone()
		c.method = r.Method
		c.path = r.URL.Path
		c.mu.Unlock()
		h(w, r)
	}
}

func (c *capture) get() (http.Header, string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.header, c.method, c.path
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

func TestClient_ResultContract(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantOK    bool
		wantError string
		wantField string
	}{
		{"200 valid", 200, `{"message":"hi"}`, true, "", "hi"},
		{"200 invalid", 200, `not json`, true, "", ""},
		{"200 empty", 200, ``, true, "", ""},
		{"401 with error", 401, `{"error":"Invalid token"}`, false, "Invalid token", ""},
		{"401 invalid body", 401, `<html>`, false, "Unauthorized", ""},
		{"500 with error", 500, `{"error":"db down"}`, false, "db down", ""},
		{"500 invalid body", 500, `oops`, false, "Internal Server Error", ""},
		{"404 non-string error", 404, `{"error":{"code":1}}`, false, "Not Found", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(respond(tt.status, tt.body))
			defer ts.Close()

			c := NewClient(ts.URL, nil, quietLogger())
			res := c.Get(context.Background(), "/x")

			if res.OK != tt.wantOK {
				t.Fatalf("OK = %v, want %v (error %q)", res.OK, tt.wantOK, res.Error)
			}
			if res.Status != tt.status {
				t.Errorf("Status = %d, want %d", res.Status, tt.status)
			}
			if res.Error != tt.wantError {
				t.Errorf("Error = %q, want %q", res.Error, tt.wantError)
			}
			if got := res.String("message"); got != tt.wantField {
				t.Errorf("message = %q, want %q", got, tt.wantField)
			}
			if tt.wantOK && res.Kind != model.KindNone {
				t.Errorf("Kind = %q on success", res.Kind)
			}
			if !tt.wantOK && res.Kind != model.KindHTTP {
				t.Errorf("Kind = %q, want %q", res.Kind, model.KindHTTP)
			}
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	ts := httptest.NewServer(respond(200, `{}`))
	url := ts.URL
	ts.Close()

	c := NewClient(url, nil, quietLogger())
	res := c.Get(context.Background(), "/personnel/all")
	if res.OK {
		t.Fatal("expected failure against closed server")
	}
	if res.Kind != model.KindTransport {
		t.Errorf("Kind = %q, want transport", res.Kind)
	}
	if res.Status != 0 {
		t.Errorf("Status = %d, want 0", res.Status)
	}
	if res.Error == "" {
		t.Error("expected a transport error message")
	}
}

func TestClient_NonObjectBody(t *testing.T) {
	ts := httptest.NewServer(respond(200, `[{"id":1},{"id":2}]`))
	defer ts.Close()

	res := NewClient(ts.URL, nil, quietLogger()).Get(context.Background(), "/section/all")
	if !res.OK {
		t.Fatalf("unexpected failure: %s", res.Error)
	}
	if got := len(res.Records("data")); got != 2 {
		t.Errorf("len(data) = %d, want 2", got)
	}
}

func TestClient_AuthorizationHeader(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"with token", "T1", "Bearer T1"},
		{"without token", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen capture
			ts := httptest.NewServer(seen.wrap(respond(200, `{}`)))
			defer ts.Close()

			c := NewClient(ts.URL, newSession(t, tt.token), quietLogger())
			c.Get(context.Background(), "/personnel/all")

			header, _, _ := seen.get()
			if got := header.Get("Authorization"); got != tt.want {
				t.Errorf("Authorization = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClient_Headers(t *testing.T) {
	var seen capture
	ts := httptest.NewServer(seen.wrap(respond(200, `{}`)))
	defer ts.Close()
	c := NewClient(ts.URL+"/", nil, quietLogger())
	ctx := context.Background()

	res := c.Get(ctx, "section/all")
	header, _, path := seen.get()
	if path != "/section/all" {
		t.Errorf("path = %q, want /section/all", path)
	}
	if ct := header.Get("Content-Type"); ct != "" {
		t.Errorf("GET sent Content-Type %q", ct)
	}
	if rid := header.Get("X-Request-ID"); rid == "" || rid != res.RequestID {
		t.Errorf("X-Request-ID = %q, result RequestID = %q", rid, res.RequestID)
	}
	if !strings.HasPrefix(res.RequestID, "req_") {
		t.Errorf("RequestID = %q, want req_ prefix", res.RequestID)
	}

	c.Patch(ctx, "/personnel/3", map[string]any{"nom": "Diallo"})
	header, method, _ := seen.get()
	if method != http.MethodPatch {
		t.Errorf("method = %q, want PATCH", method)
	}
	if ct := header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("PATCH Content-Type = %q, want application/json", ct)
	}
}

func TestClient_ContextCanceled(t *testing.T) {
	ts := httptest.NewServer(respond(200, `{}`))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewClient(ts.URL, nil, quietLogger()).Get(ctx, "/protected")
	if res.OK || res.Kind != model.KindTransport {
		t.Errorf("got OK=%v Kind=%q, want transport failure", res.OK, res.Kind)
	}
}

func TestClient_MarshalFailure(t *testing.T) {
	var seen capture
	ts := httptest.NewServer(seen.wrap(respond(200, `{}`)))
	defer ts.Close()

	res := NewClient(ts.URL, nil, quietLogger()).Post(context.Background(), "/x", map[string]any{"bad": make(chan int)})
	if res.OK || res.Kind != model.KindClient {
		t.Errorf("got OK=%v Kind=%q, want client failure", res.OK, res.Kind)
	}
	if _, method, _ := seen.get(); method != "" {
		t.Error("request was sent despite marshal failure")
	}
}

func TestLogin_StoresToken(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("Awa", "Ndiaye", "awa@example.com", "secret", "admin")
	sess := newSession(t, "")
	c := NewClient(srv.URL, sess, quietLogger())
	ctx := context.Background()

	res := c.Login(ctx, "awa@example.com", "secret")
	if !res.OK {
		t.Fatalf("Login: %s", res.Error)
	}
	tok, ok := sess.Get(ctx)
	if !ok || tok != res.String("token") {
		t.Errorf("stored token = %q, %v; want %q", tok, ok, res.String("token"))
	}

	// The stored token now authenticates protected requests.
	if probe := c.Probe(ctx); !probe.OK {
		t.Errorf("Probe after login: %s", probe.Error)
	}
}

func TestLogin_Failures(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("Awa", "Ndiaye", "awa@example.com", "secret", "admin")
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		status   int
		message  string
	}{
		{"unknown user", "nobody@example.com", "x", 404, "User not found"},
		{"wrong password", "awa@example.com", "nope", 401, "Invalid password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := newSession(t, "")
			res := NewClient(srv.URL, sess, quietLogger()).Login(ctx, tt.email, tt.password)
			if res.OK {
				t.Fatal("expected failure")
			}
			if res.Status != tt.status || res.Error != tt.message {
				t.Errorf("got %d %q, want %d %q", res.Status, res.Error, tt.status, tt.message)
			}
			if _, ok := sess.Get(ctx); ok {
				t.Error("token stored after failed login")
			}
		})
	}
}

func TestLogin_NoTokenReceived(t *testing.T) {
	ts := httptest.NewServer(respond(200, `{"message":"ok"}`))
	defer ts.Close()
	sess := newSession(t, "")

	res := NewClient(ts.URL, sess, quietLogger()).Login(context.Background(), "a@b.c", "x")
	if res.OK {
		t.Fatal("expected failure without token")
	}
	if res.Error != "no token received" {
		t.Errorf("Error = %q", res.Error)
	}
	if _, ok := sess.Get(context.Background()); ok {
		t.Error("token stored")
	}
}

func TestSignup(t *testing.T) {
	srv := apitest.New(t)
	sess := newSession(t, "")
	c := NewClient(srv.URL, sess, quietLogger())
	ctx := context.Background()

	res := c.Signup(ctx, SignupRequest{Firstname: "Awa", Lastname: "Ndiaye", Email: "awa@example.com", Password: "pw"})
	if !res.OK {
		t.Fatalf("Signup: %s", res.Error)
	}
	if _, ok := sess.Get(ctx); !ok {
		t.Error("token not stored after signup")
	}
	reqs := srv.RequestsTo(SignupPath)
	if len(reqs) != 1 || reqs[0].Body["role"] != "user" {
		t.Errorf("signup body = %+v, want default role user", reqs)
	}

	dup := c.Signup(ctx, SignupRequest{Firstname: "A", Lastname: "B", Email: "awa@example.com", Password: "pw"})
	if dup.OK || dup.Error != "Email already in use" {
		t.Errorf("duplicate signup = %+v", dup)
	}
}

func TestSignup_IncompleteSendsNothing(t *testing.T) {
	srv := apitest.New(t)
	c := NewClient(srv.URL, newSession(t, ""), quietLogger())

	res := c.Signup(context.Background(), SignupRequest{Firstname: "Awa", Email: "awa@example.com", Password: "pw"})
	if res.OK || res.Kind != model.KindClient {
		t.Fatalf("got %+v, want client failure", res)
	}
	if n := len(srv.Requests()); n != 0 {
		t.Errorf("%d requests sent, want 0", n)
	}
}

func TestClient_PersonnelScenarios(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("Awa", "Ndiaye", "awa@example.com", "secret", "admin")
	sec := srv.SeedSection("Logistique", "Service", "U1")
	srv.SeedPersonnel("M001", "Diallo", "Sergent", "Dakar", sec)

	c := NewClient(srv.URL, newSession(t, srv.IssueToken("awa@example.com")), quietLogger())
	ctx := context.Background()

	list := c.Get(ctx, "/personnel/all")
	if !list.OK {
		t.Fatalf("list: %s", list.Error)
	}
	rows := list.Records("data")
	if len(rows) != 1 || rows[0].String("matricule") != "M001" {
		t.Fatalf("rows = %+v", rows)
	}

	del := c.Delete(ctx, "/personnel/999")
	if del.OK || del.Status != 404 || del.Error != "not found" {
		t.Errorf("delete missing = %+v", del)
	}
	if err := del.Err(); err == nil || err.Error() != "not found (HTTP 404)" {
		t.Errorf("Err() = %v", err)
	}
}

func TestOrigin(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"http://localhost:3000", "http://localhost:3000", false},
		{"HTTPS://API.Example.com/v1/", "https://api.example.com", false},
		{"  http://10.0.0.1:8080/base ", "http://10.0.0.1:8080", false},
		{"localhost:3000", "", true},
		{"/relative", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Origin(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Origin(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Origin(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
