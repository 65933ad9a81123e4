// Package models defines the persisted record shapes of the case-records
// store: cases, role-tagged person appearances, and bail grants. Derived
// query-time shapes (identities, history entries, surety profiles) live with
// the packages that compute them.
package models

import (
	"time"

	"caseledger/pkg/domain"
)

// CaseStatus is the case-management lifecycle enumeration. Transitions are
// driven by workflows outside this service; here the status is read-only.
type CaseStatus string

const (
	CaseStatusRegistered         CaseStatus = "registered"
	CaseStatusUnderInvestigation CaseStatus = "under_investigation"
	CaseStatusChargesheetFiled   CaseStatus = "chargesheet_filed"
	CaseStatusInCourt            CaseStatus = "in_court"
	CaseStatusClosed             CaseStatus = "closed"
	CaseStatusDisposed           CaseStatus = "disposed"
	CaseStatusOpen               CaseStatus = "open"
)

// CustodyState is the accused-role status enumeration.
type CustodyState string

const (
	CustodyUnknown    CustodyState = "unknown"
	CustodyKnown      CustodyState = "known"
	CustodyArrested   CustodyState = "arrested"
	CustodyBailed     CustodyState = "bailed"
	CustodyAbsconding CustodyState = "absconding"
)

// Role tags one person's involvement in one case.
type Role string

const (
	RoleAccused Role = "accused"
	RoleSurety  Role = "surety"
)

// Jurisdiction references the administrative hierarchy a case belongs to.
// Master data for these codes is maintained outside this service.
type Jurisdiction struct {
	StateCode    string `json:"state_code"`
	DistrictCode string `json:"district_code"`
	StationCode  string `json:"station_code"`
}

// CaseRecord is a tracked legal case.
//
// Invariants:
//   - Created once per incident; never deleted, only deactivated
//   - Status is mutated only by case-management workflows outside this core
type CaseRecord struct {
	ID           domain.CaseID `json:"id"`
	CaseNumber   string        `json:"case_number"`
	IncidentAt   time.Time     `json:"incident_at"`
	Jurisdiction Jurisdiction  `json:"jurisdiction"`
	Status       CaseStatus    `json:"status"`
	Description  string        `json:"description"`
	Active       bool          `json:"active"`
}

// Summary projects the fields every resolution consumer needs.
func (c CaseRecord) Summary() CaseSummary {
	return CaseSummary{
		ID:           c.ID,
		CaseNumber:   c.CaseNumber,
		IncidentAt:   c.IncidentAt,
		Jurisdiction: c.Jurisdiction,
		Status:       c.Status,
	}
}

// CaseSummary is the hydrated case metadata attached to resolved
// appearances.
type CaseSummary struct {
	ID           domain.CaseID `json:"id"`
	CaseNumber   string        `json:"case_number"`
	IncidentAt   time.Time     `json:"incident_at"`
	Jurisdiction Jurisdiction  `json:"jurisdiction"`
	Status       CaseStatus    `json:"status"`
}

// Person holds the identity fields shared by both appearance roles. Contact
// number and national ID are stored as entered; normalization happens only
// at match time.
type Person struct {
	Name          string `json:"name"`
	GuardianName  string `json:"guardian_name"`
	Age           int    `json:"age"`
	Gender        string `json:"gender"`
	ContactNumber string `json:"contact_number"`
	NationalID    string `json:"national_id"`
	Address       string `json:"address"`
}

// PersonAppearance is the sum type over the two role-tagged appearance
// shapes. Appearances belong to exactly one case and are never re-parented.
type PersonAppearance interface {
	ID() domain.AppearanceID
	CaseID() domain.CaseID
	Role() Role
	Person() Person
}

// AccusedAppearance is one person's accused-role involvement in one case.
type AccusedAppearance struct {
	AppearanceID domain.AppearanceID `json:"id"`
	Case         domain.CaseID       `json:"case_id"`
	Details      Person              `json:"details"`
	Custody      CustodyState        `json:"custody"`
}

func (a AccusedAppearance) ID() domain.AppearanceID { return a.AppearanceID }
func (a AccusedAppearance) CaseID() domain.CaseID   { return a.Case }
func (a AccusedAppearance) Role() Role              { return RoleAccused }
func (a AccusedAppearance) Person() Person          { return a.Details }

// SuretyAppearance is one person's surety-role involvement in one case.
//
// Invariant: Principal, when set, must reference an accused appearance in
// the same case. A nil Principal is an unlinked surety.
type SuretyAppearance struct {
	AppearanceID domain.AppearanceID  `json:"id"`
	Case         domain.CaseID        `json:"case_id"`
	Details      Person               `json:"details"`
	Principal    *domain.AppearanceID `json:"principal_id,omitempty"`
}

func (a SuretyAppearance) ID() domain.AppearanceID { return a.AppearanceID }
func (a SuretyAppearance) CaseID() domain.CaseID   { return a.Case }
func (a SuretyAppearance) Role() Role              { return RoleSurety }
func (a SuretyAppearance) Person() Person          { return a.Details }

// AppearanceRef uniquely identifies an appearance for deduplication. The
// same physical person appearing as both accused and surety across cases
// keeps one ref per appearance.
type AppearanceRef struct {
	Case domain.CaseID
	Role Role
	ID   domain.AppearanceID
}

func RefOf(a PersonAppearance) AppearanceRef {
	return AppearanceRef{Case: a.CaseID(), Role: a.Role(), ID: a.ID()}
}

// BailGrant records a bail order attached to an accused appearance with
// custody state bailed. The surety contact fields may duplicate a
// SuretyAppearance's or stand alone.
type BailGrant struct {
	ID            domain.GrantID      `json:"id"`
	Case          domain.CaseID       `json:"case_id"`
	Accused       domain.AppearanceID `json:"accused_id"`
	Amount        int64               `json:"amount"`
	GrantedOn     time.Time           `json:"granted_on"`
	OrderNumber   string              `json:"order_number"`
	Court         string              `json:"court"`
	SuretyName    string              `json:"surety_name"`
	SuretyContact string              `json:"surety_contact"`
}
