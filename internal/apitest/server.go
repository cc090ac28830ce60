// Package apitest runs an in-memory fake of the gestion HTTP API for tests.
//
// It speaks the same contract as the real server (JSON bodies, an "error"
// field on failures, bearer tokens from /auth/login and /auth/signup) and
// records every request it receives so tests can assert on ordering and
// headers.
package apitest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Request is one request observed by the fake server.
type Request struct {
	Method        string
	Path          string
	Authorization string
	Body          map[string]any
}

type account struct {
	ID        int
	Firstname string
	Lastname  string
	Email     string
	Password  string
	Role      string
}

func (a *account) record() map[string]any {
	return map[string]any{
		"id":        a.ID,
		"firstname": a.Firstname,
		"lastname":  a.Lastname,
		"email":     a.Email,
		"role":      a.Role,
	}
}

// Server is a fake gestion API.
type Server struct {
	*httptest.Server

	// ProbeDelay holds GET /protected before it answers.
	ProbeDelay time.Duration

	mu        sync.Mutex
	accounts  map[string]*account // by email
	tokens    map[string]string   // token -> email
	personnel []map[string]any
	sections  []map[string]any
	nextID    int
	requests  []Request
}

// New starts a fake server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		accounts: make(map[string]*account),
		tokens:   make(map[string]string),
		nextID:   1,
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recordMiddleware)

	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/signup", s.handleSignup)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/protected", s.handleProtected)
		r.Get("/auth/users", s.handleListUsers)
		r.Put("/auth/users/{id}", s.handleUpdateUser)
		r.Delete("/auth/users/{id}", s.handleDeleteUser)
	})

	r.Route("/personnel", func(r chi.Router) {
		r.Get("/all", s.handleListPersonnel)
		r.Post("/add", s.handleAddPersonnel)
		r.Post("/assign_section", s.handleAssignSection)
		r.Put("/{id}", s.handleUpdatePersonnel(false))
		r.Patch("/{id}", s.handleUpdatePersonnel(true))
		r.Delete("/{id}", s.handleDeletePersonnel)
	})

	r.Route("/section", func(r chi.Router) {
		r.Get("/all", s.handleListSections)
		r.Post("/add", s.handleAddSection)
		r.Put("/update/{id}", s.handleUpdateSection)
		r.Delete("/delete/{id}", s.handleDeleteSection)
	})

	return r
}

// --- Test helpers ---

// AddUser registers an account and returns its ID.
func (s *Server) AddUser(firstname, lastname, email, password, role string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(firstname, lastname, email, password, role).ID
}

// IssueToken returns a valid token for an existing account.
func (s *Server) IssueToken(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(email)
}

// Revoke invalidates a token.
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// SeedSection inserts a section and returns its ID.
func (s *Server) SeedSection(label, typ, unit string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.allocID()
	s.sections = append(s.sections, map[string]any{
		"id": id, "label": label, "type": typ, "unit": unit,
	})
	return id
}

// SeedPersonnel inserts a personnel record and returns its ID.
func (s *Server) SeedPersonnel(matricule, nom, qualification, affectation string, sectionIDs ...int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.allocID()
	secs := make([]any, 0, len(sectionIDs))
	for _, sid := range sectionIDs {
		secs = append(secs, strconv.Itoa(sid))
	}
	s.personnel = append(s.personnel, map[string]any{
		"id": id, "matricule": matricule, "nom": nom,
		"qualification": qualification, "affectation": affectation,
		"sections": secs,
	})
	return id
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestsTo returns the recorded requests whose path equals path.
func (s *Server) RequestsTo(path string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) allocID() int {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Server) addUserLocked(firstname, lastname, email, password, role string) *account {
	a := &account{
		ID:        s.allocID(),
		Firstname: firstname,
		Lastname:  lastname,
		Email:     email,
		Password:  password,
		Role:      role,
	}
	s.accounts[email] = a
	return a
}

func (s *Server) issueLocked(email string) string {
	token := "tok_" + uuid.New().String()
	s.tokens[token] = email
	return token
}

// --- Middleware ---

func (s *Server) recordMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := readBody(r)
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			Body:          body,
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

type ctxKey string

const ctxKeyEmail ctxKey = "email"

func contextWithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, ctxKeyEmail, email)
}

func emailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(ctxKeyEmail).(string)
	return email
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			respondError(w, http.StatusUnauthorized, "Token is missing")
			return
		}
		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			respondError(w, http.StatusUnauthorized, "Invalid token format")
			return
		}
		s.mu.Lock()
		email, ok := s.tokens[parts[1]]
		s.mu.Unlock()
		if !ok {
			respondError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(contextWithEmail(r.Context(), email)))
	})
}

// --- JSON helpers ---

// readBody decodes the JSON request body and restores it for the handler.
func readBody(r *http.Request) (map[string]any, error) {
	if r.Body == nil {
		return nil, nil
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]any{"error": msg})
}

func str(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return strings.TrimSpace(v)
}

func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	return id, err == nil
}
