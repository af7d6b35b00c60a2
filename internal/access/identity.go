package access

import (
	"context"
	"sort"
	"strings"
)

// Role is a named privilege tier.
type Role string

const (
	// RoleAdmin moderates users, content and comments.
	RoleAdmin Role = "Admin"
	// RoleUser is the default tier for registered accounts.
	RoleUser Role = "User"
	// RoleCustomer is kept for accounts created by the legacy API.
	RoleCustomer Role = "Customer"
)

// ParseRole normalises a stored or submitted role name.
func ParseRole(raw string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "admin":
		return RoleAdmin, true
	case "user":
		return RoleUser, true
	case "customer":
		return RoleCustomer, true
	default:
		return "", false
	}
}

// RoleSet is an unordered set of roles.
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from the given roles, ignoring empty values.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		if r == "" {
			continue
		}
		set[r] = struct{}{}
	}
	return set
}

// ParseRoleSet converts raw role names, skipping unknown ones.
func ParseRoleSet(raw []string) RoleSet {
	set := make(RoleSet, len(raw))
	for _, v := range raw {
		if r, ok := ParseRole(v); ok {
			set[r] = struct{}{}
		}
	}
	return set
}

// Has reports membership.
func (s RoleSet) Has(role Role) bool {
	_, ok := s[role]
	return ok
}

// Intersects reports whether the two sets share at least one role.
func (s RoleSet) Intersects(other RoleSet) bool {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for r := range small {
		if large.Has(r) {
			return true
		}
	}
	return false
}

// Slice returns the roles sorted by name.
func (s RoleSet) Slice() []Role {
	out := make([]Role, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the sorted role names.
func (s RoleSet) Strings() []string {
	roles := s.Slice()
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

// Identity is the authenticated principal for a single request. The zero
// value is anonymous.
type Identity struct {
	userID string
	roles  RoleSet
}

// NewIdentity constructs an identity for the given user and roles.
func NewIdentity(userID string, roles ...Role) Identity {
	return Identity{userID: strings.TrimSpace(userID), roles: NewRoleSet(roles...)}
}

// Anonymous returns an unauthenticated identity.
func Anonymous() Identity {
	return Identity{}
}

// UserID returns the principal id when present.
func (i Identity) UserID() (string, bool) {
	return i.userID, i.userID != ""
}

// Roles returns a copy of the principal's role set.
func (i Identity) Roles() RoleSet {
	out := make(RoleSet, len(i.roles))
	for r := range i.roles {
		out[r] = struct{}{}
	}
	return out
}

// HasRole reports whether the principal holds role.
func (i Identity) HasRole(role Role) bool {
	return i.roles.Has(role)
}

// Authenticated reports whether both a user id and at least one role are present.
func (i Identity) Authenticated() bool {
	return i.userID != "" && len(i.roles) > 0
}

type identityContextKey struct{}

// WithIdentity stores the identity in ctx. It is called once per request at
// the trust boundary.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity, returning Anonymous when absent.
func IdentityFromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityContextKey{}).(Identity)
	return id
}
