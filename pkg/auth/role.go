package auth

import (
	"sort"
	"strings"
)

// Role is an access-control label granted to a principal or required by an
// endpoint. Custom endpoint roles are opaque strings compared by value; three
// reserved roles carry engine-level meaning.
type Role string

const (
	// RoleUser is granted to any authenticated identity.
	RoleUser Role = "USER"

	// RoleAdmin is granted when the platform reports the caller as an
	// administrator.
	RoleAdmin Role = "ADMIN"

	// RoleOptional marks endpoints that tolerate anonymous access. It is
	// also granted to every authenticated security context, so optional
	// endpoints admit any verified caller.
	RoleOptional Role = "OPTIONAL"
)

// RoleSet is an immutable-by-convention set of roles.
type RoleSet map[Role]struct{}

// NewRoleSet builds a RoleSet from the given roles.
func NewRoleSet(roles ...Role) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

// Contains reports whether the set contains the role.
func (s RoleSet) Contains(role Role) bool {
	_, ok := s[role]
	return ok
}

// Intersects reports whether the two sets share at least one role.
func (s RoleSet) Intersects(other RoleSet) bool {
	// Iterate over the smaller set.
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	for r := range small {
		if large.Contains(r) {
			return true
		}
	}
	return false
}

// Union returns a new set containing the roles of both sets.
func (s RoleSet) Union(other RoleSet) RoleSet {
	out := make(RoleSet, len(s)+len(other))
	for r := range s {
		out[r] = struct{}{}
	}
	for r := range other {
		out[r] = struct{}{}
	}
	return out
}

// List returns the roles in sorted order.
func (s RoleSet) List() []Role {
	out := make([]Role, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// String returns a stable, human-readable rendering for logs.
func (s RoleSet) String() string {
	roles := s.List()
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
