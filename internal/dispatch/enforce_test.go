package dispatch

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noteguard/internal/ratelimit"
)

func testPolicies() PolicyTable {
	return PolicyTable{
		AIGeneration: ratelimit.Policy{Window: time.Minute, MaxRequests: 5},
		Notes:        ratelimit.Policy{Window: time.Minute, MaxRequests: 50},
		GeneralAPI:   ratelimit.Policy{Window: time.Minute, MaxRequests: 100},
		Auth:         ratelimit.Policy{Window: time.Minute, MaxRequests: 10},
	}
}

func TestEnforce_UnclassifiedRouteBypasses(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(5 * time.Minute)
	defer limiter.Close()
	enforcer := NewEnforcer(limiter, testPolicies())

	req := httptest.NewRequest("GET", "/health", nil)
	result := enforcer.Enforce(req)

	assert.Equal(t, ClassNone, result.Class)
	assert.False(t, result.Limited)
}

func TestEnforce_AnonymousUsesAddress(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(5 * time.Minute)
	defer limiter.Close()
	enforcer := NewEnforcer(limiter, testPolicies())

	req := httptest.NewRequest("GET", "/api/notes", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.50")
	result := enforcer.Enforce(req)

	assert.True(t, result.Limited)
	assert.Equal(t, ClassNotes, result.Class)
	assert.Equal(t, "ip:203.0.113.50", result.Identifier)
	assert.True(t, result.Decision.Allowed)
	assert.Equal(t, 49, result.Decision.Remaining)
}

func TestEnforce_AuthenticatedUsesActor(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(5 * time.Minute)
	defer limiter.Close()
	enforcer := NewEnforcer(limiter, testPolicies(),
		WithActorResolver(ActorResolverFunc(func(*http.Request) (string, error) {
			return "alice", nil
		})))

	req := httptest.NewRequest("POST", "/api/ai/generate", nil)
	result := enforcer.Enforce(req)

	assert.Equal(t, ClassAIGeneration, result.Class)
	assert.Equal(t, "user:alice", result.Identifier)
	assert.Equal(t, 5, result.Decision.Limit)
}

func TestEnforce_AuthClassAlwaysAddressScoped(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(5 * time.Minute)
	defer limiter.Close()
	enforcer := NewEnforcer(limiter, testPolicies(),
		WithActorResolver(ActorResolverFunc(func(*http.Request) (string, error) {
			return "alice", nil
		})))

	req := httptest.NewRequest("POST", "/api/auth/signin", nil)
	req.Header.Set("X-Real-IP", "198.51.100.7")
	result := enforcer.Enforce(req)

	assert.Equal(t, ClassAuth, result.Class)
	assert.Equal(t, "ip:198.51.100.7", result.Identifier)
}

func TestEnforce_ResolverErrorFallsBackToAddress(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(5 * time.Minute)
	defer limiter.Close()
	enforcer := NewEnforcer(limiter, testPolicies(),
		WithActorResolver(ActorResolverFunc(func(*http.Request) (string, error) {
			return "", errors.New("session store unavailable")
		})))

	req := httptest.NewRequest("GET", "/api/notes", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.50")
	result := enforcer.Enforce(req)

	// Identity resolution degrades; the request is still enforced
	assert.True(t, result.Limited)
	assert.Equal(t, "ip:203.0.113.50", result.Identifier)
	assert.True(t, result.Decision.Allowed)
}

func TestEnforce_ClassesDoNotShareCounters(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(5 * time.Minute)
	defer limiter.Close()
	policies := testPolicies()
	policies.AIGeneration = ratelimit.Policy{Window: time.Minute, MaxRequests: 1}
	enforcer := NewEnforcer(limiter, policies)

	aiReq := httptest.NewRequest("POST", "/api/ai/generate", nil)
	aiReq.Header.Set("X-Real-IP", "198.51.100.7")
	require.True(t, enforcer.Enforce(aiReq).Decision.Allowed)
	require.False(t, enforcer.Enforce(aiReq).Decision.Allowed)

	// Same caller still has full notes quota
	notesReq := httptest.NewRequest("GET", "/api/notes", nil)
	notesReq.Header.Set("X-Real-IP", "198.51.100.7")
	assert.True(t, enforcer.Enforce(notesReq).Decision.Allowed)
}
