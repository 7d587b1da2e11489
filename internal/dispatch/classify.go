// Package dispatch maps inbound requests to rate limit policies and turns
// limiter decisions into HTTP effects. It classifies requests by route
// class, resolves the actor identity the counter is keyed on, and exposes
// middleware that sets standard rate limit headers and rejects exhausted
// callers with 429.
package dispatch

import "strings"

// RouteClass identifies which rate limit policy applies to a request.
// Classes are mutually exclusive: a path matches exactly one, tested in
// precedence order.
type RouteClass int

const (
	// ClassNone applies no rate limiting at all.
	ClassNone RouteClass = iota
	// ClassAIGeneration covers LLM-backed draft, tag, and summary routes.
	ClassAIGeneration
	// ClassNotes covers note CRUD routes.
	ClassNotes
	// ClassAuth covers sign-in and session routes, always keyed by address.
	ClassAuth
	// ClassGeneralAPI is the catch-all for everything else under /api/.
	ClassGeneralAPI
)

func (c RouteClass) String() string {
	switch c {
	case ClassAIGeneration:
		return "ai_generation"
	case ClassNotes:
		return "notes"
	case ClassAuth:
		return "auth"
	case ClassGeneralAPI:
		return "general_api"
	default:
		return "none"
	}
}

// Classify maps a request path to its route class. Precedence order is
// fixed: AI generation first, then notes CRUD, then auth, then the /api/
// catch-all. Paths outside /api/ are unclassified and bypass limiting.
// The method is accepted for future use but does not affect the class.
func Classify(method, path string) RouteClass {
	switch {
	case strings.HasPrefix(path, "/api/ai/"):
		return ClassAIGeneration
	case strings.HasPrefix(path, "/api/notes"):
		return ClassNotes
	case strings.HasPrefix(path, "/api/auth"):
		return ClassAuth
	case strings.HasPrefix(path, "/api/"):
		return ClassGeneralAPI
	default:
		return ClassNone
	}
}
