// Package join hydrates resolved appearances with case metadata and fixes
// the canonical ordering of a resolved set.
package join

import (
	"context"
	"sort"

	"caseledger/internal/registry/models"
	"caseledger/pkg/domain"
)

// SummarySource is the slice of the registry store the joiner needs.
type SummarySource interface {
	GetCaseSummaries(ctx context.Context, ids []domain.CaseID) (map[domain.CaseID]models.CaseSummary, error)
}

type Joiner struct {
	store SummarySource
}

func New(store SummarySource) *Joiner {
	return &Joiner{store: store}
}

// Hydrate fetches summaries for the distinct case ids of the given
// appearances in one batched round trip. Ids that do not resolve are
// omitted from the map: a missing entry means "case metadata unavailable",
// not "the person was not involved". The legacy one-fetch-per-row pattern
// must not come back; this is the only summary read in the pipeline.
func (j *Joiner) Hydrate(ctx context.Context, appearances []models.PersonAppearance) (map[domain.CaseID]models.CaseSummary, error) {
	ids := DistinctCaseIDs(appearances)
	if len(ids) == 0 {
		return map[domain.CaseID]models.CaseSummary{}, nil
	}
	return j.store.GetCaseSummaries(ctx, ids)
}

// DistinctCaseIDs returns the deduplicated case ids of a resolved set, in
// deterministic order.
func DistinctCaseIDs(appearances []models.PersonAppearance) []domain.CaseID {
	seen := make(map[domain.CaseID]struct{}, len(appearances))
	var ids []domain.CaseID
	for _, a := range appearances {
		if _, ok := seen[a.CaseID()]; ok {
			continue
		}
		seen[a.CaseID()] = struct{}{}
		ids = append(ids, a.CaseID())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// SortAppearances orders a resolved set canonically: case incident date
// descending, case id ascending as tie-break, then role and appearance id
// for full determinism. Appearances whose case metadata is unavailable sort
// last. Resolving twice over an unchanged snapshot yields identical order.
func SortAppearances(appearances []models.PersonAppearance, cases map[domain.CaseID]models.CaseSummary) {
	sort.SliceStable(appearances, func(i, j int) bool {
		a, b := appearances[i], appearances[j]
		ca, okA := cases[a.CaseID()]
		cb, okB := cases[b.CaseID()]
		if okA != okB {
			return okA
		}
		if okA && !ca.IncidentAt.Equal(cb.IncidentAt) {
			return ca.IncidentAt.After(cb.IncidentAt)
		}
		if a.CaseID() != b.CaseID() {
			return a.CaseID().String() < b.CaseID().String()
		}
		if a.Role() != b.Role() {
			return a.Role() == models.RoleAccused
		}
		return a.ID().String() < b.ID().String()
	})
}
