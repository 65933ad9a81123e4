// Package resolver finds every appearance, across both roles, that shares a
// match key with a seed appearance. It is a pure read over the store: no
// state survives a call except the optional per-session memo cache.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"caseledger/internal/identity/matchkey"
	"caseledger/internal/platform/metrics"
	"caseledger/internal/registry/models"
	"caseledger/pkg/domain"
	dErrors "caseledger/pkg/domain-errors"
	"caseledger/pkg/platform/circuit"
	"caseledger/pkg/platform/sentinel"
)

// KeyLookup is the slice of the registry store the resolver needs.
type KeyLookup interface {
	FindByKey(ctx context.Context, role models.Role, key matchkey.Key, excludeCase *domain.CaseID) ([]models.PersonAppearance, error)
}

// Resolution is the outcome of resolving one seed. Appearances are deduped
// by (case, role, appearance id) and unordered; callers order them with
// join.SortAppearances once case metadata is hydrated, which is what makes
// repeated resolutions byte-identical.
type Resolution struct {
	Seed        models.PersonAppearance
	Keys        []matchkey.Key
	Appearances []models.PersonAppearance

	// Partial is set when one or more sub-lookups failed or timed out.
	// Counts derived from a partial resolution are lower bounds, never
	// exact, and every consumer must carry that marker forward.
	Partial bool
	// FailedLookups labels the key/role combinations that degraded,
	// e.g. "contact/surety".
	FailedLookups []string
}

// Options tune one resolution.
type Options struct {
	// ExcludeCase drops every appearance belonging to that case; used for
	// "other cases this person appears in". The exclusion also applies to
	// the seed itself.
	ExcludeCase *domain.CaseID
	// Session memoizes key lookups across resolutions that share it (one
	// case roster). Nil disables memoization.
	Session *Session
}

type Resolver struct {
	store         KeyLookup
	logger        *slog.Logger
	metrics       *metrics.Metrics
	breaker       *circuit.Breaker
	lookupTimeout time.Duration
	retryAttempts int
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithLookupTimeout bounds each key/role sub-lookup independently.
func WithLookupTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.lookupTimeout = d
		}
	}
}

// WithRetryAttempts bounds retries of a sub-lookup against a store
// reporting unavailable.
func WithRetryAttempts(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.retryAttempts = n
		}
	}
}

func New(store KeyLookup, opts ...Option) *Resolver {
	r := &Resolver{
		store:         store,
		breaker:       circuit.New("registry", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(2)),
		lookupTimeout: 3 * time.Second,
		retryAttempts: 3,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds every appearance sharing a match key with seed under the
// given policy. A seed with no usable keys resolves reflexively to itself;
// that is a valid outcome, not an error. Sub-lookups fan out concurrently,
// each with its own timeout; a failed sub-lookup degrades the result to
// partial instead of failing the resolution. Only total store
// unavailability (every sub-lookup failed) is returned as an error.
func (r *Resolver) Resolve(ctx context.Context, seed models.PersonAppearance, policy matchkey.Policy, opts Options) (*Resolution, error) {
	keys := matchkey.Extract(seed.Person(), policy)

	res := &Resolution{Seed: seed, Keys: keys}

	seen := make(map[models.AppearanceRef]struct{})
	include := func(a models.PersonAppearance) {
		if opts.ExcludeCase != nil && a.CaseID() == *opts.ExcludeCase {
			return
		}
		ref := models.RefOf(a)
		if _, dup := seen[ref]; dup {
			return
		}
		seen[ref] = struct{}{}
		res.Appearances = append(res.Appearances, a)
	}

	// Reflexivity: the seed is always a member of its own identity.
	include(seed)

	if len(keys) == 0 {
		return res, nil
	}

	type lookupResult struct {
		label       string
		appearances []models.PersonAppearance
		err         error
	}

	roles := []models.Role{models.RoleAccused, models.RoleSurety}
	results := make([]lookupResult, len(keys)*len(roles))

	g, gctx := errgroup.WithContext(ctx)
	i := 0
	for _, key := range keys {
		for _, role := range roles {
			slot := &results[i]
			slot.label = fmt.Sprintf("%s/%s", key.Type, role)
			g.Go(func() error {
				apps, err := r.lookup(gctx, role, key, opts)
				slot.appearances = apps
				slot.err = err
				// Sub-lookup failures degrade the result; they never
				// cancel sibling lookups.
				return nil
			})
			i++
		}
	}
	_ = g.Wait()

	failed := 0
	for _, lr := range results {
		if lr.err != nil {
			failed++
			res.Partial = true
			res.FailedLookups = append(res.FailedLookups, lr.label)
			r.metrics.IncLookupError(lr.label)
			if r.logger != nil {
				r.logger.WarnContext(ctx, "key lookup degraded",
					"lookup", lr.label,
					"error", lr.err,
				)
			}
			continue
		}
		for _, a := range lr.appearances {
			include(a)
		}
	}
	sort.Strings(res.FailedLookups)

	// If the caller's context died, report that rather than partial data.
	if err := ctx.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "resolution cancelled")
	}
	// Every sub-lookup failing means the store is unreachable, which is a
	// transient error distinct from "no matches found".
	if failed == len(results) {
		return nil, dErrors.New(dErrors.CodeUnavailable, "case records store unavailable")
	}
	return res, nil
}

// lookup executes one key/role sub-lookup with memoization, breaker
// fast-fail, per-attempt timeout and bounded backoff retry.
func (r *Resolver) lookup(ctx context.Context, role models.Role, key matchkey.Key, opts Options) ([]models.PersonAppearance, error) {
	if apps, ok := opts.Session.get(role, key, opts.ExcludeCase); ok {
		return apps, nil
	}

	if r.breaker.IsOpen() {
		return nil, fmt.Errorf("%s lookup: circuit open: %w", key.Type, sentinel.ErrUnavailable)
	}

	var lastErr error
	backoff := 100 * time.Millisecond
	for attempt := 0; attempt < r.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		attemptCtx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
		apps, err := r.store.FindByKey(attemptCtx, role, key, opts.ExcludeCase)
		cancel()
		if err == nil {
			r.breaker.RecordSuccess()
			opts.Session.put(role, key, opts.ExcludeCase, apps)
			return apps, nil
		}

		lastErr = err
		if _, change := r.breaker.RecordFailure(); change.Opened && r.logger != nil {
			r.logger.ErrorContext(ctx, "registry circuit opened", "breaker", r.breaker.Name())
		}
		// Retry only transient unavailability; timeouts and data errors
		// degrade immediately.
		if !errors.Is(err, sentinel.ErrUnavailable) {
			break
		}
	}
	return nil, lastErr
}

// Session memoizes key lookups within one resolution session. The same
// surety key is often queried repeatedly when resolving history for every
// accused person in one case; the snapshot-consistency trade is deliberate
// and scoped to a single request.
type Session struct {
	mu sync.RWMutex
	m  map[sessionKey][]models.PersonAppearance
}

type sessionKey struct {
	role    models.Role
	key     matchkey.Key
	exclude domain.CaseID
}

func NewSession() *Session {
	return &Session{m: make(map[sessionKey][]models.PersonAppearance)}
}

func sessionKeyOf(role models.Role, key matchkey.Key, exclude *domain.CaseID) sessionKey {
	sk := sessionKey{role: role, key: key}
	if exclude != nil {
		sk.exclude = *exclude
	}
	return sk
}

func (s *Session) get(role models.Role, key matchkey.Key, exclude *domain.CaseID) ([]models.PersonAppearance, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	apps, ok := s.m[sessionKeyOf(role, key, exclude)]
	return apps, ok
}

func (s *Session) put(role models.Role, key matchkey.Key, exclude *domain.CaseID, apps []models.PersonAppearance) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[sessionKeyOf(role, key, exclude)] = apps
}
