// Package matchkey derives normalized identity keys from person records.
// People in this store are linked only by incidentally-shared contact
// fields; there is no foreign key between a person's appearances across
// cases. Matching is exact-equality over normalized keys; no fuzzy or
// biometric matching.
package matchkey

import (
	"strings"

	dErrors "caseledger/pkg/domain-errors"

	"caseledger/internal/registry/models"
)

// KeyType names the field a match key was derived from.
type KeyType string

const (
	KeyContact    KeyType = "contact"
	KeyNationalID KeyType = "national_id"
	// KeyNameGuardian is the legacy linking key (name plus guardian name).
	// Collisions on names alone are a known, accepted imprecision of the
	// legacy repeat-offender report; new call sites should not adopt it.
	KeyNameGuardian KeyType = "name_guardian"
)

// Key is a normalized identity key. Equal Keys link appearances into one
// identity.
type Key struct {
	Type  KeyType `json:"type"`
	Value string  `json:"value"`
}

// Policy selects which key set a call site matches on. The source system's
// screens disagreed silently; the policy is an explicit caller parameter so
// the divergence is visible at every call site.
type Policy string

const (
	// PolicyContactOrNationalID is the canonical policy: an appearance
	// matches on its contact number or its national ID.
	PolicyContactOrNationalID Policy = "contact_or_national_id"
	// PolicyNameGuardian reproduces the legacy repeat-offender report,
	// which linked people by name + guardian name. See KeyNameGuardian for
	// the collision caveat.
	PolicyNameGuardian Policy = "name_guardian"
)

// ParsePolicy validates a caller-supplied policy string. Empty selects the
// canonical policy.
func ParsePolicy(raw string) (Policy, error) {
	switch Policy(raw) {
	case "":
		return PolicyContactOrNationalID, nil
	case PolicyContactOrNationalID, PolicyNameGuardian:
		return Policy(raw), nil
	default:
		return "", dErrors.New(dErrors.CodeBadRequest, "unknown match policy "+raw)
	}
}

// NormalizeContact strips everything but digits, so "+91 90000-00001" and
// "9000000001" link. An all-punctuation value normalizes to empty and is
// dropped.
func NormalizeContact(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeNationalID trims surrounding whitespace and uppercases.
func NormalizeNationalID(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// NormalizeName collapses internal whitespace and uppercases.
func NormalizeName(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), " "))
}

// Extract derives the match keys of a person under the given policy. Zero
// keys is a valid outcome: the appearance links to nothing but itself.
// Empty and whitespace-only values never become keys.
func Extract(p models.Person, policy Policy) []Key {
	var keys []Key
	switch policy {
	case PolicyNameGuardian:
		name := NormalizeName(p.Name)
		guardian := NormalizeName(p.GuardianName)
		if name != "" && guardian != "" {
			keys = append(keys, Key{Type: KeyNameGuardian, Value: name + "|" + guardian})
		}
	default:
		if contact := NormalizeContact(p.ContactNumber); contact != "" {
			keys = append(keys, Key{Type: KeyContact, Value: contact})
		}
		if nid := NormalizeNationalID(p.NationalID); nid != "" {
			keys = append(keys, Key{Type: KeyNationalID, Value: nid})
		}
	}
	return keys
}
