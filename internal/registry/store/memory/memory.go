// Package memory implements the registry store over in-process maps. It is
// the unit-test backbone and the dev-mode default; it intentionally favors
// clarity over performance.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"caseledger/internal/identity/matchkey"
	"caseledger/internal/registry/models"
	"caseledger/pkg/domain"
	"caseledger/pkg/platform/sentinel"
)

type indexKey struct {
	role models.Role
	key  matchkey.Key
}

// Store holds records and per-key indexes under one RW mutex. Writes happen
// only through the seeding methods; the engine itself never mutates.
type Store struct {
	mu          sync.RWMutex
	cases       map[domain.CaseID]models.CaseRecord
	appearances map[domain.AppearanceID]models.PersonAppearance
	byCase      map[domain.CaseID][]domain.AppearanceID
	byKey       map[indexKey][]domain.AppearanceID
	grants      map[domain.AppearanceID][]models.BailGrant
}

func New() *Store {
	return &Store{
		cases:       make(map[domain.CaseID]models.CaseRecord),
		appearances: make(map[domain.AppearanceID]models.PersonAppearance),
		byCase:      make(map[domain.CaseID][]domain.AppearanceID),
		byKey:       make(map[indexKey][]domain.AppearanceID),
		grants:      make(map[domain.AppearanceID][]models.BailGrant),
	}
}

// AddCase registers a case record.
func (s *Store) AddCase(c models.CaseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cases[c.ID]; ok {
		return fmt.Errorf("case %s: %w", c.ID, sentinel.ErrConflict)
	}
	s.cases[c.ID] = c
	return nil
}

// AddAccused registers an accused appearance. The case must already exist.
func (s *Store) AddAccused(a models.AccusedAppearance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addAppearanceLocked(a)
}

// AddSurety registers a surety appearance. The case must already exist and
// the principal reference, if present, must point to an accused appearance
// in the same case.
func (s *Store) AddSurety(a models.SuretyAppearance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.Principal != nil {
		principal, ok := s.appearances[*a.Principal]
		if !ok || principal.Role() != models.RoleAccused || principal.CaseID() != a.Case {
			return fmt.Errorf("surety principal %s must be an accused appearance in case %s: %w",
				a.Principal, a.Case, sentinel.ErrConflict)
		}
	}
	return s.addAppearanceLocked(a)
}

func (s *Store) addAppearanceLocked(a models.PersonAppearance) error {
	if _, ok := s.cases[a.CaseID()]; !ok {
		return fmt.Errorf("case %s for appearance %s: %w", a.CaseID(), a.ID(), sentinel.ErrNotFound)
	}
	if _, ok := s.appearances[a.ID()]; ok {
		return fmt.Errorf("appearance %s: %w", a.ID(), sentinel.ErrConflict)
	}
	s.appearances[a.ID()] = a
	s.byCase[a.CaseID()] = append(s.byCase[a.CaseID()], a.ID())

	// Index under every key of every policy so FindByKey is a map hit.
	for _, policy := range []matchkey.Policy{matchkey.PolicyContactOrNationalID, matchkey.PolicyNameGuardian} {
		for _, key := range matchkey.Extract(a.Person(), policy) {
			ik := indexKey{role: a.Role(), key: key}
			s.byKey[ik] = append(s.byKey[ik], a.ID())
		}
	}
	return nil
}

// AddBailGrant attaches a grant to an existing accused appearance.
func (s *Store) AddBailGrant(g models.BailGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	accused, ok := s.appearances[g.Accused]
	if !ok || accused.Role() != models.RoleAccused {
		return fmt.Errorf("accused appearance %s for grant %s: %w", g.Accused, g.ID, sentinel.ErrNotFound)
	}
	if accused.CaseID() != g.Case {
		return fmt.Errorf("grant %s case %s does not match accused case %s: %w",
			g.ID, g.Case, accused.CaseID(), sentinel.ErrConflict)
	}
	s.grants[g.Accused] = append(s.grants[g.Accused], g)
	return nil
}

func (s *Store) GetAppearance(_ context.Context, id domain.AppearanceID) (models.PersonAppearance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.appearances[id]; ok {
		return a, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *Store) GetAppearances(_ context.Context, ids []domain.AppearanceID) (map[domain.AppearanceID]models.PersonAppearance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.AppearanceID]models.PersonAppearance, len(ids))
	for _, id := range ids {
		if a, ok := s.appearances[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

func (s *Store) FindByKey(_ context.Context, role models.Role, key matchkey.Key, excludeCase *domain.CaseID) ([]models.PersonAppearance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byKey[indexKey{role: role, key: key}]
	out := make([]models.PersonAppearance, 0, len(ids))
	for _, id := range ids {
		a := s.appearances[id]
		if excludeCase != nil && a.CaseID() == *excludeCase {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID().String() < out[j].ID().String()
	})
	return out, nil
}

func (s *Store) GetCaseSummaries(_ context.Context, ids []domain.CaseID) (map[domain.CaseID]models.CaseSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.CaseID]models.CaseSummary, len(ids))
	for _, id := range ids {
		if c, ok := s.cases[id]; ok && c.Active {
			out[id] = c.Summary()
		}
	}
	return out, nil
}

func (s *Store) GetBailGrants(_ context.Context, accusedIDs []domain.AppearanceID) ([]models.BailGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.BailGrant
	for _, id := range accusedIDs {
		out = append(out, s.grants[id]...)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *Store) ListAccusedByCase(_ context.Context, caseID domain.CaseID) ([]models.AccusedAppearance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.AccusedAppearance
	for _, id := range s.byCase[caseID] {
		if a, ok := s.appearances[id].(models.AccusedAppearance); ok {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AppearanceID.String() < out[j].AppearanceID.String()
	})
	return out, nil
}
