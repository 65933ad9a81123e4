// Package cached wraps a registry store with a Redis read-through cache for
// case summaries. Case metadata is the hottest read of the resolution
// pipeline and changes rarely; everything else passes through untouched.
// Cache failures degrade to the underlying store, never to the caller.
package cached

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"caseledger/internal/identity/matchkey"
	"caseledger/internal/platform/metrics"
	"caseledger/internal/registry"
	"caseledger/internal/registry/models"
	"caseledger/pkg/domain"
)

type Store struct {
	next    registry.Store
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

func New(next registry.Store, client *redis.Client, ttl time.Duration, opts ...Option) *Store {
	s := &Store{next: next, client: client, ttl: ttl}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func summaryKey(id domain.CaseID) string {
	return "caseledger:summary:" + id.String()
}

// GetCaseSummaries serves what it can from cache and batch-fetches the rest
// in one store round trip, preserving the single-batched-fetch contract.
func (s *Store) GetCaseSummaries(ctx context.Context, ids []domain.CaseID) (map[domain.CaseID]models.CaseSummary, error) {
	out := make(map[domain.CaseID]models.CaseSummary, len(ids))
	missing := ids

	if s.client != nil && len(ids) > 0 {
		keys := make([]string, len(ids))
		for i, id := range ids {
			keys[i] = summaryKey(id)
		}
		values, err := s.client.MGet(ctx, keys...).Result()
		if err != nil {
			s.warn(ctx, "summary cache read failed", err)
		} else {
			missing = make([]domain.CaseID, 0, len(ids))
			for i, v := range values {
				raw, ok := v.(string)
				if !ok {
					s.metrics.IncCacheMiss()
					missing = append(missing, ids[i])
					continue
				}
				var cs models.CaseSummary
				if err := json.Unmarshal([]byte(raw), &cs); err != nil {
					s.metrics.IncCacheMiss()
					missing = append(missing, ids[i])
					continue
				}
				s.metrics.IncCacheHit()
				out[ids[i]] = cs
			}
		}
	}

	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := s.next.GetCaseSummaries(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, cs := range fetched {
		out[id] = cs
		s.put(ctx, cs)
	}
	return out, nil
}

func (s *Store) put(ctx context.Context, cs models.CaseSummary) {
	if s.client == nil {
		return
	}
	raw, err := json.Marshal(cs)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, summaryKey(cs.ID), raw, s.ttl).Err(); err != nil {
		s.warn(ctx, "summary cache write failed", err)
	}
}

func (s *Store) warn(ctx context.Context, msg string, err error) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, "error", err)
	}
}

// Pass-throughs. Key lookups and grants are not cached: their result sets
// change with every data-entry edit and staleness there would surface as
// wrong counts rather than stale labels.

func (s *Store) GetAppearance(ctx context.Context, id domain.AppearanceID) (models.PersonAppearance, error) {
	return s.next.GetAppearance(ctx, id)
}

func (s *Store) GetAppearances(ctx context.Context, ids []domain.AppearanceID) (map[domain.AppearanceID]models.PersonAppearance, error) {
	return s.next.GetAppearances(ctx, ids)
}

func (s *Store) FindByKey(ctx context.Context, role models.Role, key matchkey.Key, excludeCase *domain.CaseID) ([]models.PersonAppearance, error) {
	return s.next.FindByKey(ctx, role, key, excludeCase)
}

func (s *Store) GetBailGrants(ctx context.Context, accusedIDs []domain.AppearanceID) ([]models.BailGrant, error) {
	return s.next.GetBailGrants(ctx, accusedIDs)
}

func (s *Store) ListAccusedByCase(ctx context.Context, caseID domain.CaseID) ([]models.AccusedAppearance, error) {
	return s.next.ListAccusedByCase(ctx, caseID)
}
