// Package surety groups surety appearances and bail grants by identity key
// to surface people who repeatedly vouch for release.
package surety

import (
	"sort"

	"caseledger/internal/identity/matchkey"
	"caseledger/internal/registry/models"
	"caseledger/pkg/domain"
)

// DefaultHighlightThreshold flags a surety who stood two or more times.
const DefaultHighlightThreshold = 2

// Options tune one indexing pass.
type Options struct {
	// HighlightThreshold is the occurrence count at which a surety is
	// flagged. Zero means DefaultHighlightThreshold.
	HighlightThreshold int
}

// Backing is one principal a surety stood for.
type Backing struct {
	CaseID        domain.CaseID `json:"case_id"`
	PrincipalName string        `json:"principal_name,omitempty"`
}

// Profile is the per-surety aggregate.
//
// Grouping key: the surety's normalized contact number, falling back to the
// normalized name when no contact number is present. The name fallback is a
// known, accepted imprecision: distinct people sharing a name collapse into
// one profile. It stays because unlinked paper records often carry no
// contact field at all.
type Profile struct {
	Key         matchkey.Key `json:"key"`
	Name        string       `json:"name"`
	Count       int          `json:"count"`
	TotalAmount int64        `json:"total_amount"`
	Flagged     bool         `json:"flagged"`
	// Backed lists the distinct principals this surety stood for.
	// Unlinked surety appearances contribute to Count but not here.
	Backed []Backing `json:"backed"`
}

type group struct {
	profile    Profile
	grantIDs   map[domain.GrantID]struct{}
	backedSeen map[Backing]struct{}
	principals map[domain.AppearanceID]struct{}
}

// Index groups surety appearances by identity key and folds in the bail
// grants they are associated with. A grant attaches to a group when the
// group backed the grant's accused appearance, or failing that when the
// grant's recorded surety contact matches the group's contact key. Each
// grant counts at most once. principals resolves a principal reference to
// its accused appearance for naming.
func Index(appearances []models.SuretyAppearance, grants []models.BailGrant, principals map[domain.AppearanceID]models.PersonAppearance, opts Options) []Profile {
	threshold := opts.HighlightThreshold
	if threshold <= 0 {
		threshold = DefaultHighlightThreshold
	}

	groups := make(map[matchkey.Key]*group)
	byAccused := make(map[domain.AppearanceID][]*group)

	for _, a := range appearances {
		key, ok := groupKey(a.Details)
		if !ok {
			continue
		}
		g := groups[key]
		if g == nil {
			g = &group{
				profile:    Profile{Key: key, Name: a.Details.Name},
				grantIDs:   make(map[domain.GrantID]struct{}),
				backedSeen: make(map[Backing]struct{}),
				principals: make(map[domain.AppearanceID]struct{}),
			}
			groups[key] = g
		}
		g.profile.Count++

		if a.Principal == nil {
			continue
		}
		if _, seen := g.principals[*a.Principal]; !seen {
			g.principals[*a.Principal] = struct{}{}
			byAccused[*a.Principal] = append(byAccused[*a.Principal], g)
		}
		backing := Backing{CaseID: a.Case}
		if p, ok := principals[*a.Principal]; ok {
			backing.PrincipalName = p.Person().Name
		}
		if _, dup := g.backedSeen[backing]; !dup {
			g.backedSeen[backing] = struct{}{}
			g.profile.Backed = append(g.profile.Backed, backing)
		}
	}

	for _, grant := range grants {
		g := ownerOf(groups, byAccused, grant)
		if g == nil {
			continue
		}
		if _, dup := g.grantIDs[grant.ID]; dup {
			continue
		}
		g.grantIDs[grant.ID] = struct{}{}
		g.profile.TotalAmount += grant.Amount
	}

	out := make([]Profile, 0, len(groups))
	for _, g := range groups {
		g.profile.Flagged = g.profile.Count >= threshold
		sort.Slice(g.profile.Backed, func(i, j int) bool {
			a, b := g.profile.Backed[i], g.profile.Backed[j]
			if a.CaseID != b.CaseID {
				return a.CaseID.String() < b.CaseID.String()
			}
			return a.PrincipalName < b.PrincipalName
		})
		out = append(out, g.profile)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.TotalAmount != b.TotalAmount {
			return a.TotalAmount > b.TotalAmount
		}
		return a.Key.Value < b.Key.Value
	})
	return out
}

// ownerOf picks the group a grant belongs to. Candidates backing the
// grant's accused win; the grant's own contact field disambiguates when
// several sureties backed the same accused, and attaches grants whose
// surety was never recorded as an appearance.
func ownerOf(groups map[matchkey.Key]*group, byAccused map[domain.AppearanceID][]*group, grant models.BailGrant) *group {
	contact := matchkey.NormalizeContact(grant.SuretyContact)
	candidates := byAccused[grant.Accused]
	if len(candidates) == 1 {
		return candidates[0]
	}
	if len(candidates) > 1 {
		if contact != "" {
			for _, g := range candidates {
				if g.profile.Key.Type == matchkey.KeyContact && g.profile.Key.Value == contact {
					return g
				}
			}
		}
		best := candidates[0]
		for _, g := range candidates[1:] {
			if g.profile.Key.Value < best.profile.Key.Value {
				best = g
			}
		}
		return best
	}
	if contact != "" {
		if g, ok := groups[matchkey.Key{Type: matchkey.KeyContact, Value: contact}]; ok {
			return g
		}
	}
	return nil
}

// groupKey derives the grouping key: contact number first, name fallback.
func groupKey(p models.Person) (matchkey.Key, bool) {
	if contact := matchkey.NormalizeContact(p.ContactNumber); contact != "" {
		return matchkey.Key{Type: matchkey.KeyContact, Value: contact}, true
	}
	if name := matchkey.NormalizeName(p.Name); name != "" {
		return matchkey.Key{Type: matchkey.KeyNameGuardian, Value: name}, true
	}
	return matchkey.Key{}, false
}
