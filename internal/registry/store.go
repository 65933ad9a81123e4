// Package registry defines the store boundary of the resolution engine. The
// engine is read-only: record creation and editing belong to the CRUD layer
// of the records system, which shares the same database but not this code.
package registry

import (
	"context"

	"caseledger/internal/identity/matchkey"
	"caseledger/internal/registry/models"
	"caseledger/pkg/domain"
)

// Store is interface-driven to keep the resolution logic testable and to
// allow swapping in-memory, Postgres, or cached persistence without
// rewiring the engine. Implementations return sentinel errors
// (pkg/platform/sentinel) for infrastructure facts.
type Store interface {
	// GetAppearance fetches one appearance by id, any role.
	// Returns sentinel.ErrNotFound when it does not exist.
	GetAppearance(ctx context.Context, id domain.AppearanceID) (models.PersonAppearance, error)

	// GetAppearances batch-fetches appearances by id. Ids that do not
	// resolve are omitted from the result, not errors.
	GetAppearances(ctx context.Context, ids []domain.AppearanceID) (map[domain.AppearanceID]models.PersonAppearance, error)

	// FindByKey returns every appearance of the given role whose
	// normalized identity key equals key. When excludeCase is non-nil,
	// appearances belonging to that case are filtered out by the store.
	FindByKey(ctx context.Context, role models.Role, key matchkey.Key, excludeCase *domain.CaseID) ([]models.PersonAppearance, error)

	// GetCaseSummaries batch-fetches summaries for a set of case ids in
	// one round trip. Ids that do not resolve (deactivated, missing) are
	// omitted rather than erroring: a missing entry means "case metadata
	// unavailable", never "the person was not involved".
	GetCaseSummaries(ctx context.Context, ids []domain.CaseID) (map[domain.CaseID]models.CaseSummary, error)

	// GetBailGrants batch-fetches the bail grants attached to the given
	// accused appearances.
	GetBailGrants(ctx context.Context, accusedIDs []domain.AppearanceID) ([]models.BailGrant, error)

	// ListAccusedByCase returns the accused roster of one case, for
	// whole-case history resolution. An unknown case yields an empty
	// roster, not an error; callers that must distinguish check the case
	// through GetCaseSummaries.
	ListAccusedByCase(ctx context.Context, caseID domain.CaseID) ([]models.AccusedAppearance, error)
}
