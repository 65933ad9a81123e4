// Package profile wires the full stack (store, resolver, service, handler,
// router, auth) and drives it over HTTP the way a records-system client
// would.
package profile

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseledger/internal/identity/resolver"
	"caseledger/internal/profile"
	profilehandler "caseledger/internal/profile/handler"
	"caseledger/internal/registry/models"
	"caseledger/internal/registry/store/memory"
	httptransport "caseledger/internal/transport/http"
	"caseledger/pkg/domain"
	"caseledger/pkg/platform/middleware/auth"
)

const signingKey = "integration-test-key"

func newStack(t *testing.T) (*memory.Store, *httptest.Server) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := memory.New()
	svc := profile.New(store, resolver.New(store, resolver.WithLogger(logger)),
		profile.WithLogger(logger))

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:    logger,
		Profile:   profilehandler.New(svc, logger),
		Validator: auth.NewHMACValidator(signingKey),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return store, srv
}

func bearerToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "officer-42",
		"role": "investigator",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(signingKey))
	require.NoError(t, err)
	return signed
}

func get(t *testing.T, srv *httptest.Server, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func seedCase(t *testing.T, store *memory.Store, number string, incident time.Time) domain.CaseID {
	t.Helper()
	id := domain.NewCaseID()
	require.NoError(t, store.AddCase(models.CaseRecord{
		ID:         id,
		CaseNumber: number,
		IncidentAt: incident,
		Status:     models.CaseStatusInCourt,
		Active:     true,
	}))
	return id
}

func TestProfileFlow(t *testing.T) {
	store, srv := newStack(t)
	token := bearerToken(t)

	person := models.Person{Name: "Ramesh Kumar", ContactNumber: "9000000001"}
	c1 := seedCase(t, store, "FIR-2024-001", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	c2 := seedCase(t, store, "FIR-2024-044", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))

	a1 := domain.NewAppearanceID()
	require.NoError(t, store.AddAccused(models.AccusedAppearance{
		AppearanceID: a1, Case: c1, Details: person, Custody: models.CustodyBailed,
	}))
	require.NoError(t, store.AddAccused(models.AccusedAppearance{
		AppearanceID: domain.NewAppearanceID(), Case: c2,
		Details: models.Person{Name: "R. Kumar", ContactNumber: "+91 90000-00001"},
		Custody: models.CustodyArrested,
	}))
	require.NoError(t, store.AddBailGrant(models.BailGrant{
		ID: domain.NewGrantID(), Case: c1, Accused: a1, Amount: 20000,
		GrantedOn: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
	}))

	resp := get(t, srv, "/appearances/"+a1.String()+"/profile", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var p profile.Profile
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	assert.Equal(t, a1, p.SeedID)
	assert.Len(t, p.Appearances, 2)
	assert.Equal(t, 2, p.Stats.TotalCases)
	assert.Equal(t, int64(20000), p.Stats.TotalBailAmount)
	assert.True(t, p.Stats.RepeatOffender)
	assert.False(t, p.Partial)
	require.Len(t, p.CaseHistory, 2)
	assert.Equal(t, "FIR-2024-044", p.CaseHistory[0].CaseNumber)
}

func TestCaseProfilesFlow(t *testing.T) {
	store, srv := newStack(t)
	token := bearerToken(t)

	shared := models.Person{Name: "Ramesh Kumar", ContactNumber: "9000000001"}
	c1 := seedCase(t, store, "FIR-2024-001", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	c2 := seedCase(t, store, "FIR-2024-044", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))

	require.NoError(t, store.AddAccused(models.AccusedAppearance{
		AppearanceID: domain.NewAppearanceID(), Case: c1, Details: shared, Custody: models.CustodyArrested,
	}))
	require.NoError(t, store.AddAccused(models.AccusedAppearance{
		AppearanceID: domain.NewAppearanceID(), Case: c1,
		Details: models.Person{Name: "Solo Accused"}, Custody: models.CustodyKnown,
	}))
	require.NoError(t, store.AddAccused(models.AccusedAppearance{
		AppearanceID: domain.NewAppearanceID(), Case: c2, Details: shared, Custody: models.CustodyBailed,
	}))

	resp := get(t, srv, "/cases/"+c1.String()+"/profiles", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out profile.CaseProfiles
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, c1, out.Case.ID)
	assert.Len(t, out.Profiles, 2)
}

func TestProfileFlowRejectsAnonymous(t *testing.T) {
	_, srv := newStack(t)

	resp := get(t, srv, "/appearances/"+domain.NewAppearanceID().String()+"/profile", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProfileFlowUnknownAppearance(t *testing.T) {
	_, srv := newStack(t)

	resp := get(t, srv, "/appearances/"+domain.NewAppearanceID().String()+"/profile", bearerToken(t))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
