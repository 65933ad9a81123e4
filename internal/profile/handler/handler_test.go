package handler

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"caseledger/internal/identity/matchkey"
	"caseledger/internal/profile"
	"caseledger/pkg/domain"
	dErrors "caseledger/pkg/domain-errors"
	"caseledger/pkg/testutil"
)

type stubService struct {
	lastOpts   profile.BuildOptions
	profileErr error
	caseErr    error
}

func (s *stubService) BuildProfile(_ context.Context, seedID domain.AppearanceID, opts profile.BuildOptions) (*profile.Profile, error) {
	s.lastOpts = opts
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	return &profile.Profile{SeedID: seedID, Policy: opts.Policy}, nil
}

func (s *stubService) BuildCaseProfiles(_ context.Context, _ domain.CaseID, opts profile.BuildOptions) (*profile.CaseProfiles, error) {
	s.lastOpts = opts
	if s.caseErr != nil {
		return nil, s.caseErr
	}
	return &profile.CaseProfiles{}, nil
}

func newRouter(svc *stubService) http.Handler {
	r := chi.NewRouter()
	New(svc, slog.Default()).Register(r)
	return r
}

func TestAppearanceProfile(t *testing.T) {
	svc := &stubService{}
	router := newRouter(svc)

	seedID := domain.NewAppearanceID()
	req := testutil.NewRequest(t, http.MethodGet,
		"/appearances/"+seedID.String()+"/profile?policy=name_guardian&exclude_seed_case=true&repeat_threshold=3")
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusOK(t, rr)
	got := testutil.UnmarshalResponse[profile.Profile](t, rr)
	assert.Equal(t, seedID, got.SeedID)

	assert.Equal(t, matchkey.PolicyNameGuardian, svc.lastOpts.Policy)
	assert.True(t, svc.lastOpts.ExcludeSeedCase)
	assert.Equal(t, 3, svc.lastOpts.RepeatThreshold)
	assert.Zero(t, svc.lastOpts.HighlightThreshold)
}

func TestAppearanceProfileDefaultsPolicy(t *testing.T) {
	svc := &stubService{}
	router := newRouter(svc)

	req := testutil.NewRequest(t, http.MethodGet,
		"/appearances/"+domain.NewAppearanceID().String()+"/profile")
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusOK(t, rr)
	assert.Equal(t, matchkey.PolicyContactOrNationalID, svc.lastOpts.Policy)
}

func TestAppearanceProfileBadInput(t *testing.T) {
	router := newRouter(&stubService{})

	cases := []struct {
		name string
		path string
	}{
		{"bad id", "/appearances/not-a-uuid/profile"},
		{"bad policy", "/appearances/" + domain.NewAppearanceID().String() + "/profile?policy=soundex"},
		{"bad threshold", "/appearances/" + domain.NewAppearanceID().String() + "/profile?repeat_threshold=0"},
		{"bad bool", "/appearances/" + domain.NewAppearanceID().String() + "/profile?exclude_seed_case=maybe"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.NewRequest(t, http.MethodGet, tc.path)
			rr := testutil.DoRequest(router, req)
			testutil.AssertStatus(t, rr, http.StatusBadRequest)
		})
	}
}

func TestAppearanceProfileNotFound(t *testing.T) {
	svc := &stubService{profileErr: dErrors.New(dErrors.CodeNotFound, "appearance not found")}
	router := newRouter(svc)

	req := testutil.NewRequest(t, http.MethodGet,
		"/appearances/"+domain.NewAppearanceID().String()+"/profile")
	req = testutil.WithRequestID(req, "req-123")
	req = testutil.WithSubject(req, "officer-1")
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}

func TestCaseProfiles(t *testing.T) {
	svc := &stubService{}
	router := newRouter(svc)

	req := testutil.NewRequest(t, http.MethodGet,
		"/cases/"+domain.NewCaseID().String()+"/profiles?highlight_threshold=5")
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusOK(t, rr)
	assert.Equal(t, 5, svc.lastOpts.HighlightThreshold)
}

func TestCaseProfilesUnavailable(t *testing.T) {
	svc := &stubService{caseErr: dErrors.New(dErrors.CodeUnavailable, "store unavailable")}
	router := newRouter(svc)

	req := testutil.NewRequest(t, http.MethodGet,
		"/cases/"+domain.NewCaseID().String()+"/profiles")
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
}
