// Package resolve turns what an operator typed into the static groups to
// change.
//
// Three criteria are supported:
//
//	ByID               first group whose id contains the text
//	BySubstring        every group whose name contains the text, ignoring case
//	ByMembershipNames  every group whose name is in a membership list
//
// Results keep catalog order. Only static groups are ever returned since the
// catalog holds nothing else.
package resolve

import (
	"strings"

	"mvc2c/internal/catalog"
)

// Criterion selects target groups. It is one of ByID, BySubstring or
// ByMembershipNames.
type Criterion interface {
	criterion()
}

// ByID matches the first group whose id, as a string, contains the value.
// "1" therefore also matches group 10 when it comes first.
type ByID string

// BySubstring matches every group whose name contains the value, ignoring
// case. The empty string matches every group.
type BySubstring string

// ByMembershipNames matches every group whose name exactly equals one of
// the names, typically the memberships of another computer.
type ByMembershipNames []string

func (ByID) criterion()              {}
func (BySubstring) criterion()       {}
func (ByMembershipNames) criterion() {}

// Resolve applies crit to the catalog.
func Resolve(c catalog.Catalog, crit Criterion) catalog.Catalog {
	switch crit := crit.(type) {
	case ByID:
		if g, ok := MatchID(c, string(crit)); ok {
			return catalog.Catalog{g}
		}
		return catalog.Catalog{}
	case BySubstring:
		return MatchSubstring(c, string(crit))
	case ByMembershipNames:
		return MatchMemberships(c, crit)
	}
	return catalog.Catalog{}
}

// MatchID returns the first group whose id string contains candidate.
func MatchID(c catalog.Catalog, candidate string) (catalog.StaticGroup, bool) {
	for _, g := range c {
		if strings.Contains(g.IDString(), candidate) {
			return g, true
		}
	}
	return catalog.StaticGroup{}, false
}

// MatchSubstring returns every group whose name contains s, ignoring case.
func MatchSubstring(c catalog.Catalog, s string) catalog.Catalog {
	needle := strings.ToLower(s)
	out := catalog.Catalog{}
	for _, g := range c {
		if strings.Contains(strings.ToLower(g.Name), needle) {
			out = append(out, g)
		}
	}
	return out
}

// MatchMemberships returns every group whose name is one of names.
// Comparison is exact and case-sensitive.
func MatchMemberships(c catalog.Catalog, names []string) catalog.Catalog {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	out := catalog.Catalog{}
	for _, g := range c {
		if _, ok := set[g.Name]; ok {
			out = append(out, g)
		}
	}
	return out
}
