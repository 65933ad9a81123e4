// Package profile assembles the full criminal-history view of one resolved
// identity: the appearance set, case history, tallies and surety profiles,
// ready for transport.
package profile

import (
	"caseledger/internal/history"
	"caseledger/internal/identity/matchkey"
	"caseledger/internal/registry/models"
	"caseledger/internal/surety"
	"caseledger/pkg/domain"
)

// AppearanceView is one resolved appearance flattened for the wire. Custody
// is present only for accused appearances, PrincipalID only for sureties.
type AppearanceView struct {
	AppearanceID domain.AppearanceID  `json:"id"`
	CaseID       domain.CaseID        `json:"case_id"`
	CaseNumber   string               `json:"case_number,omitempty"`
	Role         models.Role          `json:"role"`
	Name         string               `json:"name"`
	GuardianName string               `json:"guardian_name,omitempty"`
	Age          int                  `json:"age,omitempty"`
	Gender       string               `json:"gender,omitempty"`
	Contact      string               `json:"contact_number,omitempty"`
	NationalID   string               `json:"national_id,omitempty"`
	Address      string               `json:"address,omitempty"`
	Custody      models.CustodyState  `json:"custody,omitempty"`
	PrincipalID  *domain.AppearanceID `json:"principal_id,omitempty"`
}

// Profile is the assembled view for one seed appearance.
type Profile struct {
	SeedID         domain.AppearanceID        `json:"seed_id"`
	Policy         matchkey.Policy            `json:"policy"`
	Keys           []matchkey.Key             `json:"keys"`
	Appearances    []AppearanceView           `json:"appearances"`
	Stats          history.Stats              `json:"stats"`
	CaseHistory    []history.CaseHistoryEntry `json:"case_history"`
	SuretyProfiles []surety.Profile           `json:"surety_profiles,omitempty"`

	// Partial is set when any sub-lookup or hydration step degraded; the
	// stats are then lower bounds and FailedLookups labels what failed.
	Partial       bool     `json:"partial"`
	FailedLookups []string `json:"failed_lookups,omitempty"`
}

// CaseProfiles is the whole-roster view of one case: a profile per accused
// appearance on the roster.
type CaseProfiles struct {
	Case     models.CaseSummary `json:"case"`
	Profiles []*Profile         `json:"profiles"`
}

func viewOf(a models.PersonAppearance, cases map[domain.CaseID]models.CaseSummary) AppearanceView {
	p := a.Person()
	v := AppearanceView{
		AppearanceID: a.ID(),
		CaseID:       a.CaseID(),
		Role:         a.Role(),
		Name:         p.Name,
		GuardianName: p.GuardianName,
		Age:          p.Age,
		Gender:       p.Gender,
		Contact:      p.ContactNumber,
		NationalID:   p.NationalID,
		Address:      p.Address,
	}
	if cs, ok := cases[a.CaseID()]; ok {
		v.CaseNumber = cs.CaseNumber
	}
	switch t := a.(type) {
	case models.AccusedAppearance:
		v.Custody = t.Custody
	case models.SuretyAppearance:
		v.PrincipalID = t.Principal
	}
	return v
}
