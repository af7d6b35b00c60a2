package access

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// knownRoles are the roles the policy is expanded for.
var knownRoles = []Role{RoleAdmin, RoleUser, RoleCustomer}

// Policy answers which roles may perform an action class. It is backed by a
// casbin RBAC model and is safe for concurrent use.
type Policy struct {
	enforcer *casbin.SyncedEnforcer
	grants   map[Action]RoleSet
}

// NewPolicy loads the embedded model and policy.
func NewPolicy() (*Policy, error) {
	return NewPolicyFromString(embeddedPolicy)
}

// NewPolicyFromString loads the embedded model with a caller supplied policy.
func NewPolicyFromString(policy string) (*Policy, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("access: load casbin model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("access: create casbin enforcer: %w", err)
	}
	if err := loadPolicy(enforcer, policy); err != nil {
		return nil, err
	}

	p := &Policy{enforcer: enforcer, grants: make(map[Action]RoleSet, len(rules))}
	for action := range rules {
		set := NewRoleSet()
		for _, role := range knownRoles {
			ok, err := p.enforce(role, action)
			if err != nil {
				return nil, err
			}
			if ok {
				set[role] = struct{}{}
			}
		}
		p.grants[action] = set
	}
	return p, nil
}

// RolesFor returns the roles granted action. Unknown actions grant nothing.
func (p *Policy) RolesFor(action Action) RoleSet {
	granted, ok := p.grants[action]
	if !ok {
		return NewRoleSet()
	}
	out := make(RoleSet, len(granted))
	for r := range granted {
		out[r] = struct{}{}
	}
	return out
}

// Grants asks the enforcer directly whether any of roles may perform action.
func (p *Policy) Grants(roles RoleSet, action Action) (bool, error) {
	for _, role := range roles.Slice() {
		ok, err := p.enforce(role, action)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (p *Policy) enforce(role Role, action Action) (bool, error) {
	obj, act := action.split()
	ok, err := p.enforcer.Enforce(string(role), obj, act)
	if err != nil {
		return false, fmt.Errorf("access: enforce %s %s: %w", role, action, err)
	}
	return ok, nil
}

func loadPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		switch parts[0] {
		case "p":
			if len(parts) != 4 {
				return fmt.Errorf("access: malformed policy line %q", line)
			}
			if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return fmt.Errorf("access: add policy %q: %w", line, err)
			}
		case "g":
			if len(parts) != 3 {
				return fmt.Errorf("access: malformed grouping line %q", line)
			}
			if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("access: add grouping %q: %w", line, err)
			}
		default:
			return fmt.Errorf("access: unknown policy type in %q", line)
		}
	}
	return nil
}
