// Package domain holds the typed identifiers shared across the system.
// Distinct ID types prevent a case id from being passed where an appearance
// id is expected; the mistake becomes a compile error instead of a bad query.
package domain

import (
	"fmt"

	"github.com/google/uuid"

	dErrors "caseledger/pkg/domain-errors"
)

type (
	// CaseID identifies a CaseRecord.
	CaseID uuid.UUID
	// AppearanceID identifies one person's involvement in one case,
	// regardless of role.
	AppearanceID uuid.UUID
	// GrantID identifies a BailGrant.
	GrantID uuid.UUID
)

func (id CaseID) String() string       { return uuid.UUID(id).String() }
func (id AppearanceID) String() string { return uuid.UUID(id).String() }
func (id GrantID) String() string      { return uuid.UUID(id).String() }

func (id CaseID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id AppearanceID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id GrantID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }

// parseUUID enforces the shared invariant: IDs must be valid, non-nil UUIDs.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%s is not a valid UUID", kind))
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be the nil UUID")
	}
	return u, nil
}

func ParseCaseID(raw string) (CaseID, error) {
	u, err := parseUUID(raw, "case id")
	return CaseID(u), err
}

func ParseAppearanceID(raw string) (AppearanceID, error) {
	u, err := parseUUID(raw, "appearance id")
	return AppearanceID(u), err
}

func ParseGrantID(raw string) (GrantID, error) {
	u, err := parseUUID(raw, "grant id")
	return GrantID(u), err
}

func NewCaseID() CaseID             { return CaseID(uuid.New()) }
func NewAppearanceID() AppearanceID { return AppearanceID(uuid.New()) }
func NewGrantID() GrantID           { return GrantID(uuid.New()) }

// Defined types over uuid.UUID do not inherit its encoding.TextMarshaler
// implementation, so each ID type carries its own to keep JSON (and the
// cache codec) emitting canonical UUID strings.

func (id CaseID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *CaseID) UnmarshalText(b []byte) error {
	parsed, err := ParseCaseID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id AppearanceID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *AppearanceID) UnmarshalText(b []byte) error {
	parsed, err := ParseAppearanceID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id GrantID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *GrantID) UnmarshalText(b []byte) error {
	parsed, err := ParseGrantID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
