// Package httptransport assembles the public HTTP surface: the profile
// endpoints behind bearer auth, plus health and metrics.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	profilehandler "caseledger/internal/profile/handler"
	"caseledger/pkg/platform/httputil"
	"caseledger/pkg/platform/middleware/auth"
	"caseledger/pkg/platform/middleware/requestid"
	"caseledger/pkg/platform/middleware/requesttime"
)

// HealthCheck reports the liveness of one dependency.
type HealthCheck func(ctx context.Context) error

// Deps collects everything the router mounts.
type Deps struct {
	Logger  *slog.Logger
	Profile *profilehandler.Handler
	// Validator guards the profile routes. Nil leaves them open, for
	// development only.
	Validator auth.Validator
	// Health checks run on /healthz, keyed by dependency name.
	Health map[string]HealthCheck
}

// NewRouter wires the middleware chain and routes. Auth applies only to the
// profile endpoints; health and metrics stay unauthenticated for probes and
// scrapers.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/healthz", healthHandler(deps.Health))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(pr chi.Router) {
		if deps.Validator != nil {
			pr.Use(auth.RequireAuth(deps.Validator, deps.Logger))
		}
		deps.Profile.Register(pr)
	})

	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				deps[name] = err.Error()
				continue
			}
			deps[name] = "ok"
		}
		httputil.WriteJSON(w, status, map[string]any{
			"status":       httpStatusLabel(status),
			"dependencies": deps,
		})
	}
}

func httpStatusLabel(status int) string {
	if status == http.StatusOK {
		return "ok"
	}
	return "degraded"
}
