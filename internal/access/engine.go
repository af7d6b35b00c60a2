// Package access decides whether a principal may perform an action on a
// resource. Decisions are returned as values; only failures that prevent a
// decision from being reached are returned as errors.
package access

import (
	"context"
	"log/slog"
	"strings"
)

// Observer receives every decision produced by Evaluate.
type Observer interface {
	ObserveDecision(action Action, decision Decision)
}

// Engine evaluates access rules. It holds no per-request state and is safe
// for concurrent use.
type Engine struct {
	resolver *Resolver
	policy   *Policy
	logger   *slog.Logger
	observer Observer
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger used for denied decisions.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// WithObserver registers a decision observer.
func WithObserver(observer Observer) EngineOption {
	return func(e *Engine) { e.observer = observer }
}

// NewEngine constructs an Engine.
func NewEngine(resolver *Resolver, policy *Policy, opts ...EngineOption) *Engine {
	e := &Engine{resolver: resolver, policy: policy}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy exposes the role policy.
func (e *Engine) Policy() *Policy {
	return e.policy
}

// RequireAuthenticated allows any identity carrying a user id and at least
// one role.
func (e *Engine) RequireAuthenticated(id Identity) Decision {
	if !id.Authenticated() {
		return Deny(Unauthenticated)
	}
	return Allow()
}

// RequireRole allows identities holding at least one of roles.
func (e *Engine) RequireRole(id Identity, roles RoleSet) Decision {
	if d := e.RequireAuthenticated(id); !d.Allowed {
		return d
	}
	if id.roles.Intersects(roles) {
		return Allow()
	}
	return Deny(Forbidden)
}

// CheckOwnerOrRole is the ownership predicate over an already resolved
// projection.
func (e *Engine) CheckOwnerOrRole(id Identity, own Ownership, roles RoleSet) Decision {
	if !id.Authenticated() {
		return Deny(Unauthenticated)
	}
	uid, _ := id.UserID()
	if id.roles.Intersects(roles) {
		return Allow()
	}
	if owner := own.Owner(); owner != "" && sameID(owner, uid) {
		return Allow()
	}
	return Deny(Forbidden)
}

// RequireOwnerOrRole allows the resource owner or any holder of roles. The
// role check runs before the resource is fetched. A missing resource yields
// NotFound, never Forbidden.
func (e *Engine) RequireOwnerOrRole(ctx context.Context, id Identity, ref ResourceRef, roles RoleSet) (Decision, error) {
	if d := e.RequireAuthenticated(id); !d.Allowed {
		return d, nil
	}
	if _, ok := ParseID(ref.ID); !ok {
		return Deny(InvalidReference), nil
	}
	if id.roles.Intersects(roles) {
		return Allow(), nil
	}
	own, kind, err := e.resolver.Resolve(ctx, ref)
	if err != nil {
		return Decision{}, err
	}
	if kind != FailureNone {
		return Deny(kind), nil
	}
	return e.CheckOwnerOrRole(id, own, roles), nil
}

// RequireNotSelf denies destructive actions whose target is the caller.
func (e *Engine) RequireNotSelf(id Identity, targetID string) Decision {
	if !id.Authenticated() {
		return Deny(Unauthenticated)
	}
	uid, _ := id.UserID()
	if sameID(uid, targetID) {
		return Deny(SelfActionForbidden)
	}
	return Allow()
}

// Evaluate is the single entry point used by route guards. ref may be nil for
// actions that do not target a specific resource.
func (e *Engine) Evaluate(ctx context.Context, action Action, id Identity, ref *ResourceRef) (Decision, error) {
	d, err := e.evaluate(ctx, action, id, ref)
	if err != nil {
		if e.logger != nil {
			e.logger.Error("access evaluate", slog.String("action", string(action)), slog.Any("error", err))
		}
		return Decision{}, err
	}
	if !d.Allowed && e.logger != nil {
		uid, _ := id.UserID()
		attrs := []any{slog.String("action", string(action)), slog.String("user_id", uid), slog.String("reason", d.Reason.String())}
		if ref != nil {
			attrs = append(attrs, slog.String("kind", string(ref.Kind)), slog.String("ref", ref.ID))
		}
		e.logger.Info("access denied", attrs...)
	}
	if e.observer != nil {
		e.observer.ObserveDecision(action, d)
	}
	return d, nil
}

func (e *Engine) evaluate(ctx context.Context, action Action, id Identity, ref *ResourceRef) (Decision, error) {
	r, ok := rules[action]
	if !ok {
		return Deny(Forbidden), nil
	}
	if d := e.RequireAuthenticated(id); !d.Allowed {
		return d, nil
	}
	if r.notSelf {
		if ref == nil {
			return Deny(InvalidReference), nil
		}
		if d := e.RequireNotSelf(id, ref.ID); !d.Allowed {
			return d, nil
		}
	}

	roles := e.policy.RolesFor(action)
	if r.owned {
		if ref == nil {
			return Deny(InvalidReference), nil
		}
		return e.RequireOwnerOrRole(ctx, id, *ref, roles)
	}

	if d := e.RequireRole(id, roles); !d.Allowed {
		return d, nil
	}
	if ref != nil {
		if _, ok := ParseID(ref.ID); !ok {
			return Deny(InvalidReference), nil
		}
	}
	return Allow(), nil
}

func sameID(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	if pa, ok := ParseID(a); ok {
		if pb, ok := ParseID(b); ok {
			return pa == pb
		}
	}
	return a == b
}
