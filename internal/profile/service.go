package profile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"caseledger/internal/history"
	"caseledger/internal/identity/join"
	"caseledger/internal/identity/matchkey"
	"caseledger/internal/identity/resolver"
	"caseledger/internal/platform/metrics"
	"caseledger/internal/registry"
	"caseledger/internal/registry/models"
	"caseledger/internal/surety"
	"caseledger/pkg/domain"
	dErrors "caseledger/pkg/domain-errors"
	"caseledger/pkg/platform/sentinel"
	pstrings "caseledger/pkg/platform/strings"
)

// BuildOptions tune one profile build. The zero value uses the canonical
// policy and default thresholds.
type BuildOptions struct {
	Policy matchkey.Policy
	// ExcludeSeedCase restricts the view to other cases: every appearance
	// in the seed's own case, the seed included, is dropped.
	ExcludeSeedCase bool
	// RepeatThreshold overrides history.DefaultRepeatThreshold when > 0.
	RepeatThreshold int
	// HighlightThreshold overrides surety.DefaultHighlightThreshold
	// when > 0.
	HighlightThreshold int
}

// Service assembles profiles from the store through the resolver, joiner,
// aggregator and surety indexer.
type Service struct {
	store    registry.Store
	resolver *resolver.Resolver
	joiner   *join.Joiner
	logger   *slog.Logger
	metrics  *metrics.Metrics
	workers  int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithResolveWorkers caps concurrent per-person builds during whole-case
// resolution.
func WithResolveWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

func New(store registry.Store, res *resolver.Resolver, opts ...Option) *Service {
	s := &Service{
		store:    store,
		resolver: res,
		joiner:   join.New(store),
		logger:   slog.Default(),
		workers:  8,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildProfile assembles the full profile for one seed appearance: resolve
// the identity, hydrate case metadata in one batch, attach bail grants,
// aggregate history and index sureties. Hydration failures degrade the
// profile to partial rather than failing it; only an unknown seed or total
// store unavailability is an error.
func (s *Service) BuildProfile(ctx context.Context, seedID domain.AppearanceID, opts BuildOptions) (*Profile, error) {
	seed, err := s.store.GetAppearance(ctx, seedID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "appearance not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "appearance lookup failed")
	}
	return s.build(ctx, seed, opts, nil)
}

// BuildCaseProfiles assembles one profile per accused appearance on a
// case's roster. Resolutions share a memo session so a key looked up for
// one roster member is never re-fetched for another, and run concurrently
// under the worker cap. Any member failing fails the whole build; callers
// retry the case, not individual members.
func (s *Service) BuildCaseProfiles(ctx context.Context, caseID domain.CaseID, opts BuildOptions) (*CaseProfiles, error) {
	summaries, err := s.store.GetCaseSummaries(ctx, []domain.CaseID{caseID})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "case lookup failed")
	}
	cs, ok := summaries[caseID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "case not found")
	}

	roster, err := s.store.ListAccusedByCase(ctx, caseID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "roster lookup failed")
	}

	session := resolver.NewSession()
	profiles := make([]*Profile, len(roster))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, accused := range roster {
		g.Go(func() error {
			p, err := s.build(gctx, accused, opts, session)
			if err != nil {
				return err
			}
			profiles[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &CaseProfiles{Case: cs, Profiles: profiles}, nil
}

func (s *Service) build(ctx context.Context, seed models.PersonAppearance, opts BuildOptions, session *resolver.Session) (*Profile, error) {
	start := time.Now()

	var exclude *domain.CaseID
	if opts.ExcludeSeedCase {
		c := seed.CaseID()
		exclude = &c
	}

	res, err := s.resolver.Resolve(ctx, seed, opts.Policy, resolver.Options{
		ExcludeCase: exclude,
		Session:     session,
	})
	if err != nil {
		return nil, err
	}

	partial := res.Partial
	failed := append([]string(nil), res.FailedLookups...)

	cases, err := s.joiner.Hydrate(ctx, res.Appearances)
	if err != nil {
		s.logger.WarnContext(ctx, "case hydration degraded",
			"seed_id", seed.ID().String(),
			"error", err,
		)
		partial = true
		failed = append(failed, "case_metadata")
		cases = map[domain.CaseID]models.CaseSummary{}
	}

	var accusedIDs []domain.AppearanceID
	var sureties []models.SuretyAppearance
	var principalIDs []domain.AppearanceID
	for _, a := range res.Appearances {
		switch t := a.(type) {
		case models.AccusedAppearance:
			accusedIDs = append(accusedIDs, t.AppearanceID)
		case models.SuretyAppearance:
			sureties = append(sureties, t)
			if t.Principal != nil {
				principalIDs = append(principalIDs, *t.Principal)
			}
		}
	}

	// Grants are fetched for the identity's own accused appearances and
	// for the principals its surety appearances backed; the aggregator
	// only sums the former, the surety indexer only attaches the latter.
	seen := make(map[domain.AppearanceID]struct{}, len(accusedIDs)+len(principalIDs))
	grantOwners := make([]domain.AppearanceID, 0, len(accusedIDs)+len(principalIDs))
	for _, id := range append(append([]domain.AppearanceID(nil), accusedIDs...), principalIDs...) {
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			grantOwners = append(grantOwners, id)
		}
	}

	var grants []models.BailGrant
	if len(grantOwners) > 0 {
		grants, err = s.store.GetBailGrants(ctx, grantOwners)
		if err != nil {
			s.logger.WarnContext(ctx, "bail grant lookup degraded",
				"seed_id", seed.ID().String(),
				"error", err,
			)
			partial = true
			failed = append(failed, "bail_grants")
			grants = nil
		}
	}

	principals := map[domain.AppearanceID]models.PersonAppearance{}
	if len(principalIDs) > 0 {
		principals, err = s.store.GetAppearances(ctx, principalIDs)
		if err != nil {
			s.logger.WarnContext(ctx, "principal lookup degraded",
				"seed_id", seed.ID().String(),
				"error", err,
			)
			partial = true
			failed = append(failed, "principals")
			principals = map[domain.AppearanceID]models.PersonAppearance{}
		}
	}

	join.SortAppearances(res.Appearances, cases)

	stats, entries := history.Aggregate(res.Appearances, cases, grants, history.Options{
		RepeatThreshold: opts.RepeatThreshold,
		Partial:         partial,
	})
	suretyProfiles := surety.Index(sureties, grants, principals, surety.Options{
		HighlightThreshold: opts.HighlightThreshold,
	})

	views := make([]AppearanceView, 0, len(res.Appearances))
	for _, a := range res.Appearances {
		views = append(views, viewOf(a, cases))
	}

	policy := opts.Policy
	if policy == "" {
		policy = matchkey.PolicyContactOrNationalID
	}
	s.metrics.ObserveResolution(string(policy), time.Since(start), partial)

	return &Profile{
		SeedID:         seed.ID(),
		Policy:         policy,
		Keys:           res.Keys,
		Appearances:    views,
		Stats:          stats,
		CaseHistory:    entries,
		SuretyProfiles: suretyProfiles,
		Partial:        partial,
		FailedLookups:  pstrings.DedupeAndTrim(failed),
	}, nil
}
