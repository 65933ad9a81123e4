package httptransport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseledger/internal/profile"
	profilehandler "caseledger/internal/profile/handler"
	"caseledger/pkg/domain"
	"caseledger/pkg/platform/middleware/auth"
)

type stubProfileService struct{}

func (stubProfileService) BuildProfile(_ context.Context, seedID domain.AppearanceID, opts profile.BuildOptions) (*profile.Profile, error) {
	return &profile.Profile{SeedID: seedID, Policy: opts.Policy}, nil
}

func (stubProfileService) BuildCaseProfiles(context.Context, domain.CaseID, profile.BuildOptions) (*profile.CaseProfiles, error) {
	return &profile.CaseProfiles{}, nil
}

const signingKey = "test-signing-key"

func signToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(signingKey))
	require.NoError(t, err)
	return signed
}

func newTestRouter(health map[string]HealthCheck) http.Handler {
	return NewRouter(Deps{
		Logger:    slog.Default(),
		Profile:   profilehandler.New(stubProfileService{}, slog.Default()),
		Validator: auth.NewHMACValidator(signingKey),
		Health:    health,
	})
}

func TestProfileRouteRequiresAuth(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(nil))
	defer srv.Close()

	url := srv.URL + "/appearances/" + domain.NewAppearanceID().String() + "/profile"

	resp, err := http.Get(url)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "officer-1"))
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestHealthz(t *testing.T) {
	checks := map[string]HealthCheck{
		"store": func(context.Context) error { return nil },
	}
	srv := httptest.NewServer(newTestRouter(checks))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthzDegraded(t *testing.T) {
	checks := map[string]HealthCheck{
		"store": func(context.Context) error { return nil },
		"cache": func(context.Context) error { return errors.New("connection refused") },
	}
	srv := httptest.NewServer(newTestRouter(checks))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsUnauthenticated(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
