package dispatch

import (
	"log/slog"
	"net/http"

	"noteguard/internal/models"
	"noteguard/internal/ratelimit"
)

// ActorResolver supplies the authenticated actor id for a request, or ""
// when the request is anonymous. It is an external collaborator (session
// store, identity provider); errors from it must never fail the request.
type ActorResolver interface {
	ActorID(r *http.Request) (string, error)
}

// ActorResolverFunc adapts a function to the ActorResolver interface.
type ActorResolverFunc func(r *http.Request) (string, error)

func (f ActorResolverFunc) ActorID(r *http.Request) (string, error) {
	return f(r)
}

// PolicyTable holds one rate limit policy per route class.
type PolicyTable struct {
	AIGeneration ratelimit.Policy
	Notes        ratelimit.Policy
	GeneralAPI   ratelimit.Policy
	Auth         ratelimit.Policy
}

// PolicyTableFromConfig converts the configured limits into limiter
// policies.
func PolicyTableFromConfig(cfg models.LimitsConfig) PolicyTable {
	return PolicyTable{
		AIGeneration: ratelimit.Policy{Window: cfg.AIGeneration.Window, MaxRequests: cfg.AIGeneration.MaxRequests},
		Notes:        ratelimit.Policy{Window: cfg.Notes.Window, MaxRequests: cfg.Notes.MaxRequests},
		GeneralAPI:   ratelimit.Policy{Window: cfg.GeneralAPI.Window, MaxRequests: cfg.GeneralAPI.MaxRequests},
		Auth:         ratelimit.Policy{Window: cfg.Auth.Window, MaxRequests: cfg.Auth.MaxRequests},
	}
}

// policyFor returns the policy for a class; ok is false for ClassNone.
func (t PolicyTable) policyFor(class RouteClass) (ratelimit.Policy, bool) {
	switch class {
	case ClassAIGeneration:
		return t.AIGeneration, true
	case ClassNotes:
		return t.Notes, true
	case ClassAuth:
		return t.Auth, true
	case ClassGeneralAPI:
		return t.GeneralAPI, true
	default:
		return ratelimit.Policy{}, false
	}
}

// Result is the outcome of enforcing rate limits on one request. Limited
// reports whether a policy applied at all; when it is false the Decision
// is zero and no headers should be attached.
type Result struct {
	Class      RouteClass
	Identifier string
	Limited    bool
	Decision   ratelimit.Decision
}

// Enforcer composes classification, identity resolution, and the limiter
// into a single per-request decision. It is constructed once at the
// composition root and injected into the HTTP layer.
type Enforcer struct {
	limiter  ratelimit.Limiter
	policies PolicyTable
	actors   ActorResolver
	logger   *slog.Logger
}

// EnforcerOption configures optional Enforcer behavior.
type EnforcerOption func(*Enforcer)

// WithActorResolver supplies the authentication collaborator used to key
// counters by account rather than address.
func WithActorResolver(resolver ActorResolver) EnforcerOption {
	return func(e *Enforcer) {
		e.actors = resolver
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) EnforcerOption {
	return func(e *Enforcer) {
		e.logger = logger
	}
}

// NewEnforcer creates an enforcer over the given limiter and policy table.
func NewEnforcer(limiter ratelimit.Limiter, policies PolicyTable, opts ...EnforcerOption) *Enforcer {
	e := &Enforcer{
		limiter:  limiter,
		policies: policies,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enforce classifies the request, resolves the identifier, and consults the
// limiter. Unclassified routes are always allowed with no metadata. The
// auth class is keyed by address even for authenticated callers, so a
// credential-stuffing run cannot spread its budget across accounts.
func (e *Enforcer) Enforce(r *http.Request) Result {
	class := Classify(r.Method, r.URL.Path)

	policy, ok := e.policies.policyFor(class)
	if !ok {
		return Result{Class: class}
	}

	var identifier string
	if class == ClassAuth {
		identifier = addressIdentifier(r)
	} else {
		identifier = ResolveIdentifier(r, e.resolveActor(r))
	}

	decision := e.limiter.CheckAndConsume(identifier, policy)

	return Result{
		Class:      class,
		Identifier: identifier,
		Limited:    true,
		Decision:   decision,
	}
}

// resolveActor queries the authentication collaborator, degrading to
// anonymous on any error. Identity resolution fails open; the rate decision
// itself never does.
func (e *Enforcer) resolveActor(r *http.Request) string {
	if e.actors == nil {
		return ""
	}

	actorID, err := e.actors.ActorID(r)
	if err != nil {
		e.logger.Warn("actor resolution failed, falling back to address identity",
			"error", err,
			"path", r.URL.Path)
		return ""
	}
	return actorID
}
