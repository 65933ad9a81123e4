// Package handler exposes the profile read endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"caseledger/internal/identity/matchkey"
	"caseledger/internal/profile"
	"caseledger/pkg/domain"
	dErrors "caseledger/pkg/domain-errors"
	"caseledger/pkg/platform/httputil"
	"caseledger/pkg/requestcontext"
)

// Service is the slice of the profile service the handler needs.
type Service interface {
	BuildProfile(ctx context.Context, seedID domain.AppearanceID, opts profile.BuildOptions) (*profile.Profile, error)
	BuildCaseProfiles(ctx context.Context, caseID domain.CaseID, opts profile.BuildOptions) (*profile.CaseProfiles, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the profile routes on r. Authentication is applied by the
// router, not here.
func (h *Handler) Register(r chi.Router) {
	r.Get("/appearances/{appearanceID}/profile", h.handleAppearanceProfile)
	r.Get("/cases/{caseID}/profiles", h.handleCaseProfiles)
}

func (h *Handler) handleAppearanceProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	seedID, err := domain.ParseAppearanceID(chi.URLParam(r, "appearanceID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	opts, err := buildOptions(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	p, err := h.service.BuildProfile(ctx, seedID, opts)
	if err != nil {
		h.logger.ErrorContext(ctx, "profile build failed",
			"request_id", requestcontext.RequestID(ctx),
			"seed_id", seedID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleCaseProfiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caseID, err := domain.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	opts, err := buildOptions(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out, err := h.service.BuildCaseProfiles(ctx, caseID, opts)
	if err != nil {
		h.logger.ErrorContext(ctx, "case profiles build failed",
			"request_id", requestcontext.RequestID(ctx),
			"case_id", caseID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// buildOptions parses the shared query parameters. Absent parameters keep
// service defaults.
func buildOptions(r *http.Request) (profile.BuildOptions, error) {
	var opts profile.BuildOptions

	policy, err := matchkey.ParsePolicy(r.URL.Query().Get("policy"))
	if err != nil {
		return opts, err
	}
	opts.Policy = policy

	if raw := r.URL.Query().Get("exclude_seed_case"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return opts, dErrors.New(dErrors.CodeBadRequest, "exclude_seed_case must be a boolean")
		}
		opts.ExcludeSeedCase = v
	}
	if opts.RepeatThreshold, err = thresholdParam(r, "repeat_threshold"); err != nil {
		return opts, err
	}
	if opts.HighlightThreshold, err = thresholdParam(r, "highlight_threshold"); err != nil {
		return opts, err
	}
	return opts, nil
}

func thresholdParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, dErrors.New(dErrors.CodeBadRequest, name+" must be a positive integer")
	}
	return v, nil
}
