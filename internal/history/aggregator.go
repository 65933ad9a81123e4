// Package history reduces a resolved appearance set into per-person
// criminal-history statistics and a previous-cases timeline. Aggregation is
// a pure function of its inputs; no state survives a call.
package history

import (
	"sort"
	"time"

	"caseledger/internal/registry/models"
	"caseledger/pkg/domain"
)

// DefaultRepeatThreshold flags a person whose identity spans two or more
// distinct cases. Screens in the records system disagree on the threshold,
// so it stays a caller parameter.
const DefaultRepeatThreshold = 2

// Options tune one aggregation.
type Options struct {
	// RepeatThreshold is the distinct-case count at which the repeat
	// flag is set. Zero means DefaultRepeatThreshold.
	RepeatThreshold int
	// Partial marks stats derived from a degraded resolution; the counts
	// are then lower bounds ("at least N"), never exact.
	Partial bool
}

// Stats are the per-person tallies. Custody, bail and absconding counts are
// computed only over accused-role appearances; surety appearances never
// contribute to them.
type Stats struct {
	TotalCases      int   `json:"total_cases"`
	BailCases       int   `json:"bail_cases"`
	CustodyCases    int   `json:"custody_cases"`
	AbscondingCases int   `json:"absconding_cases"`
	TotalBailAmount int64 `json:"total_bail_amount"`
	RepeatOffender  bool  `json:"repeat_offender"`
	// Partial mirrors Options.Partial: when set, every count is a lower
	// bound over the data that could be reached.
	Partial bool `json:"partial"`
}

// CaseHistoryEntry is one distinct case a resolved identity touches.
type CaseHistoryEntry struct {
	CaseID     domain.CaseID     `json:"case_id"`
	CaseNumber string            `json:"case_number,omitempty"`
	Roles      []models.Role     `json:"roles"`
	Status     models.CaseStatus `json:"status,omitempty"`
	IncidentAt time.Time         `json:"incident_at"`
	// DetailsAvailable is false when case metadata could not be hydrated;
	// the entry is still emitted so the involvement is never hidden.
	DetailsAvailable bool `json:"details_available"`
}

// Aggregate reduces a resolved, hydrated appearance set. Distinct-case
// counting is by case id: a person appearing as both accused and surety in
// one case counts that case once. Custody tallies count each distinct case
// once per custody category present among the identity's accused
// appearances there. Bail amounts sum the grants attached to the identity's
// bailed accused appearances.
func Aggregate(appearances []models.PersonAppearance, cases map[domain.CaseID]models.CaseSummary, grants []models.BailGrant, opts Options) (Stats, []CaseHistoryEntry) {
	threshold := opts.RepeatThreshold
	if threshold <= 0 {
		threshold = DefaultRepeatThreshold
	}

	type caseFacts struct {
		roles      map[models.Role]struct{}
		bailed     bool
		custody    bool
		absconding bool
	}
	byCase := make(map[domain.CaseID]*caseFacts)
	bailedAccused := make(map[domain.AppearanceID]struct{})

	for _, a := range appearances {
		facts := byCase[a.CaseID()]
		if facts == nil {
			facts = &caseFacts{roles: make(map[models.Role]struct{})}
			byCase[a.CaseID()] = facts
		}
		facts.roles[a.Role()] = struct{}{}

		accused, ok := a.(models.AccusedAppearance)
		if !ok {
			continue
		}
		switch accused.Custody {
		case models.CustodyBailed:
			facts.bailed = true
			bailedAccused[accused.AppearanceID] = struct{}{}
		case models.CustodyArrested:
			facts.custody = true
		case models.CustodyAbsconding:
			facts.absconding = true
		}
	}

	stats := Stats{TotalCases: len(byCase), Partial: opts.Partial}
	for _, facts := range byCase {
		if facts.bailed {
			stats.BailCases++
		}
		if facts.custody {
			stats.CustodyCases++
		}
		if facts.absconding {
			stats.AbscondingCases++
		}
	}
	for _, g := range grants {
		if _, ok := bailedAccused[g.Accused]; ok {
			stats.TotalBailAmount += g.Amount
		}
	}
	stats.RepeatOffender = stats.TotalCases >= threshold

	entries := make([]CaseHistoryEntry, 0, len(byCase))
	for caseID, facts := range byCase {
		entry := CaseHistoryEntry{CaseID: caseID, Roles: rolesOf(facts.roles)}
		if cs, ok := cases[caseID]; ok {
			entry.CaseNumber = cs.CaseNumber
			entry.Status = cs.Status
			entry.IncidentAt = cs.IncidentAt
			entry.DetailsAvailable = true
		}
		entries = append(entries, entry)
	}
	sortEntries(entries, cases)

	return stats, entries
}

func rolesOf(set map[models.Role]struct{}) []models.Role {
	roles := make([]models.Role, 0, len(set))
	if _, ok := set[models.RoleAccused]; ok {
		roles = append(roles, models.RoleAccused)
	}
	if _, ok := set[models.RoleSurety]; ok {
		roles = append(roles, models.RoleSurety)
	}
	return roles
}

// sortEntries mirrors the canonical appearance order: incident date
// descending, case id ascending, metadata-less entries last.
func sortEntries(entries []CaseHistoryEntry, cases map[domain.CaseID]models.CaseSummary) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		ca, okA := cases[a.CaseID]
		cb, okB := cases[b.CaseID]
		if okA != okB {
			return okA
		}
		if okA && !ca.IncidentAt.Equal(cb.IncidentAt) {
			return ca.IncidentAt.After(cb.IncidentAt)
		}
		return a.CaseID.String() < b.CaseID.String()
	})
}
