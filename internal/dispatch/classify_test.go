package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want RouteClass
	}{
		{"/api/ai/generate", ClassAIGeneration},
		{"/api/ai/suggest-tags", ClassAIGeneration},
		{"/api/ai/summarize", ClassAIGeneration},
		{"/api/notes", ClassNotes},
		{"/api/notes/123", ClassNotes},
		{"/api/auth/signin", ClassAuth},
		{"/api/auth/session", ClassAuth},
		{"/api/tags", ClassGeneralAPI},
		{"/api/search", ClassGeneralAPI},
		{"/health", ClassNone},
		{"/metrics", ClassNone},
		{"/", ClassNone},
		{"/apidocs", ClassNone},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify("GET", tt.path))
		})
	}
}

func TestClassify_PrecedenceOrder(t *testing.T) {
	// AI routes live under /api/ too; the more specific class must win.
	assert.Equal(t, ClassAIGeneration, Classify("POST", "/api/ai/generate"))
	assert.Equal(t, ClassNotes, Classify("POST", "/api/notes"))
	assert.Equal(t, ClassAuth, Classify("POST", "/api/auth/signin"))
}

func TestRouteClass_String(t *testing.T) {
	assert.Equal(t, "ai_generation", ClassAIGeneration.String())
	assert.Equal(t, "notes", ClassNotes.String())
	assert.Equal(t, "auth", ClassAuth.String())
	assert.Equal(t, "general_api", ClassGeneralAPI.String())
	assert.Equal(t, "none", ClassNone.String())
}
