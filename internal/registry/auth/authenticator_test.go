package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"siren/internal/registry"
	"siren/internal/registry/metrics"
	"siren/internal/registry/models"
	"siren/internal/registry/registrytest"
)

type AuthenticatorSuite struct {
	suite.Suite
	server  *registrytest.Server
	metrics *metrics.Metrics
	auth    *Authenticator
}

func TestAuthenticatorSuite(t *testing.T) {
	suite.Run(t, new(AuthenticatorSuite))
}

func (s *AuthenticatorSuite) SetupTest() {
	s.server = registrytest.NewServer(s.T())
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.auth = New(s.server.URL, WithMetrics(s.metrics))
}

func validCreds() models.Credentials {
	return models.Credentials{Username: registrytest.Username, Password: registrytest.Password}
}

// =============================================================================
// Successful login
// =============================================================================

func (s *AuthenticatorSuite) TestExpiryFollowsRegistryLastLogin() {
	lastLogin := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.server.SetLastLogin(lastLogin)

	token, err := s.auth.Authenticate(context.Background(), validCreds())
	s.Require().NoError(err)

	s.NotEmpty(token.Value)
	s.True(token.ExpiresAt.Equal(lastLogin.Add(time.Hour)), "expires at %s", token.ExpiresAt)
	s.Equal(1, s.server.Logins())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.TokenRefreshes.WithLabelValues("success")))
}

func (s *AuthenticatorSuite) TestCustomValidity() {
	lastLogin := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.server.SetLastLogin(lastLogin)
	a := New(s.server.URL, WithValidity(15*time.Minute))

	token, err := a.Authenticate(context.Background(), validCreds())
	s.Require().NoError(err)
	s.True(token.ExpiresAt.Equal(lastLogin.Add(15 * time.Minute)))
}

func (s *AuthenticatorSuite) TestStaleLastLoginStillReturnsToken() {
	s.server.SetLastLogin(time.Now().Add(-2 * time.Hour))

	token, err := s.auth.Authenticate(context.Background(), validCreds())
	s.Require().NoError(err)
	s.NotEmpty(token.Value)
	s.False(token.Valid(time.Now()))
}

// =============================================================================
// Failures
// =============================================================================

func (s *AuthenticatorSuite) TestRejectedCredentials() {
	_, err := s.auth.Authenticate(context.Background(), models.Credentials{Username: "nobody", Password: "wrong"})
	s.Require().Error(err)
	s.ErrorIs(err, registry.ErrAuthentication)

	var re *registry.Error
	s.Require().ErrorAs(err, &re)
	s.Equal(http.StatusUnauthorized, re.Status)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.TokenRefreshes.WithLabelValues("failure")))
}

func (s *AuthenticatorSuite) TestServerErrorIsAuthenticationFailure() {
	s.server.FailLogins(http.StatusInternalServerError)

	_, err := s.auth.Authenticate(context.Background(), validCreds())
	s.ErrorIs(err, registry.ErrAuthentication)
	s.Equal(registry.OutcomeUnknown, registry.Classify(err).Kind)
}

func (s *AuthenticatorSuite) TestMalformedResponses() {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "<html>"},
		{name: "missing token", body: `{"user":{"lastLogin":"2026-03-01T10:00:00+01:00"}}`},
		{name: "missing user", body: `{"token":"abc"}`},
		{name: "missing lastLogin", body: `{"token":"abc","user":{}}`},
		{name: "unparseable lastLogin", body: `{"token":"abc","user":{"lastLogin":"yesterday"}}`},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL).Authenticate(context.Background(), validCreds())
			s.ErrorIs(err, registry.ErrAuthentication)
		})
	}
}

func (s *AuthenticatorSuite) TestLastLoginWithOffset() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"token":"abc","user":{"lastLogin":"2026-03-01T11:00:00+01:00"}}`))
	}))
	defer srv.Close()

	token, err := New(srv.URL).Authenticate(context.Background(), validCreds())
	s.Require().NoError(err)
	s.True(token.ExpiresAt.Equal(time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)))
}

func (s *AuthenticatorSuite) TestUnreachableRegistry() {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).Authenticate(context.Background(), validCreds())
	s.ErrorIs(err, registry.ErrAuthentication)
}

func (s *AuthenticatorSuite) TestCancelledContext() {
	s.server.SetLoginDelay(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.auth.Authenticate(ctx, validCreds())
	s.Require().Error(err)
	s.ErrorIs(err, context.DeadlineExceeded)
}
