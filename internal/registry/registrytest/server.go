package registrytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	Username = "api@example.fr"
	Password = "s3cret"

	signingKey = "registrytest-signing-key"
)

// GatewayPage is the body of scripted 5xx answers, with GatewayContentType.
const (
	GatewayPage        = "<html><body><h1>Service Unavailable</h1></body></html>"
	GatewayContentType = "text/html; charset=utf-8"
)

// Server is an in-process registry exposing the login and company endpoints.
// Tokens are HS256 JWTs that expire one hour after LastLogin.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	companies  map[string]string
	lastLogin  time.Time
	loginFails []int
	lookupFail []int
	loginDelay time.Duration
	lookupWait time.Duration

	logins  atomic.Int32
	lookups atomic.Int32
}

// NewServer starts a fake registry closed at test cleanup.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		companies: map[string]string{},
		lastLogin: time.Now().UTC().Truncate(time.Second),
	}

	r := chi.NewRouter()
	r.Post("/api/sso/login", s.handleLogin)
	r.Get("/api/companies/{siren}", s.handleCompany)
	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// AddCompany registers the document returned for siren.
func (s *Server) AddCompany(siren, document string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companies[siren] = document
}

// SetLastLogin fixes the lastLogin instant reported by the next logins.
func (s *Server) SetLastLogin(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLogin = t
}

// FailLogins makes the next logins answer with the given statuses, in order.
func (s *Server) FailLogins(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginFails = append(s.loginFails, statuses...)
}

// FailLookups makes the next company lookups answer with the given statuses, in order.
func (s *Server) FailLookups(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookupFail = append(s.lookupFail, statuses...)
}

// SetLoginDelay slows every login down.
func (s *Server) SetLoginDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginDelay = d
}

// SetLookupDelay slows every company lookup down.
func (s *Server) SetLookupDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookupWait = d
}

// Logins is the number of login calls received.
func (s *Server) Logins() int { return int(s.logins.Load()) }

// Lookups is the number of company calls received.
func (s *Server) Lookups() int { return int(s.lookups.Load()) }

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.logins.Add(1)

	s.mu.Lock()
	delay := s.loginDelay
	lastLogin := s.lastLogin
	var failStatus int
	if len(s.loginFails) > 0 {
		failStatus, s.loginFails = s.loginFails[0], s.loginFails[1:]
	}
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if failStatus != 0 {
		writeJSON(w, failStatus, map[string]any{"code": failStatus, "message": "login failed"})
		return
	}

	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"code": 400, "message": "invalid body"})
		return
	}
	if creds.Username != Username || creds.Password != Password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"code": 401, "message": "Invalid credentials"})
		return
	}

	token, err := issue(creds.Username, lastLogin)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"code": 500, "message": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user": map[string]any{
			"id":        1,
			"email":     creds.Username,
			"lastLogin": lastLogin.Format(time.RFC3339),
		},
	})
}

func (s *Server) handleCompany(w http.ResponseWriter, r *http.Request) {
	s.lookups.Add(1)

	s.mu.Lock()
	var failStatus int
	if len(s.lookupFail) > 0 {
		failStatus, s.lookupFail = s.lookupFail[0], s.lookupFail[1:]
	}
	document, found := s.companies[chi.URLParam(r, "siren")]
	delay := s.lookupWait
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if failStatus >= http.StatusInternalServerError {
		// Server errors come from the gateway in front of the registry.
		w.Header().Set("Content-Type", GatewayContentType)
		w.WriteHeader(failStatus)
		_, _ = w.Write([]byte(GatewayPage))
		return
	}
	if failStatus != 0 {
		writeJSON(w, failStatus, map[string]any{"code": failStatus, "message": http.StatusText(failStatus)})
		return
	}
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"code": 401, "message": "Invalid JWT Token"})
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]any{"code": 404, "message": "Company not found"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(document))
}

// IssueToken signs a token the company endpoint accepts, without going through login.
func (s *Server) IssueToken(t testing.TB) string {
	t.Helper()
	token, err := issue(Username, time.Now())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func issue(subject string, lastLogin time.Time) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(lastLogin),
		ExpiresAt: jwt.NewNumericDate(lastLogin.Add(time.Hour)),
		ID:        uuid.NewString(),
	}).SignedString([]byte(signingKey))
}

// authorized validates the bearer JWT. Expiry is not enforced so that tests can
// report stale lastLogin instants.
func (s *Server) authorized(r *http.Request) bool {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	_, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		return []byte(signingKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	return err == nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
