package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noteguard/internal/api"
	"noteguard/internal/config"
	"noteguard/internal/dispatch"
	"noteguard/internal/models"
	"noteguard/internal/ratelimit"
	"noteguard/internal/store"
	"noteguard/internal/webhook"
)

// Integration tests that exercise the full request path: config file,
// router, enforcement middleware, webhook authentication, event store.

const integrationSecret = "whsec_integration_secret"

func buildServer(t *testing.T, cfg *models.Config) (*httptest.Server, store.EventStore) {
	t.Helper()

	events, err := store.New(cfg.Storage)
	require.NoError(t, err)
	t.Cleanup(func() { events.Close() })

	limiter := ratelimit.NewMemoryLimiter(cfg.Limits.SweepInterval)
	t.Cleanup(limiter.Close)

	enforcer := dispatch.NewEnforcer(limiter, dispatch.PolicyTableFromConfig(cfg.Limits))
	handlers := api.NewHandlers(events, cfg.Webhook)

	router := api.SetupRoutes(handlers, cfg, dispatch.Middleware(enforcer))
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return server, events
}

func signWebhook(body []byte, at time.Time) string {
	ts := at.Unix()
	return fmt.Sprintf("t=%d,v1=%s", ts, webhook.ComputeSignature(body, ts, integrationSecret))
}

func postWebhook(t *testing.T, server *httptest.Server, body []byte, signature string) *http.Response {
	t.Helper()
	req, err := http.NewRequest("POST", server.URL+"/api/webhooks/identity", bytes.NewReader(body))
	require.NoError(t, err)
	if signature != "" {
		req.Header.Set(api.SignatureHeader, signature)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestIntegration_ConfigFileToRunningServer(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "noteguard.yaml")

	configYAML := fmt.Sprintf(`
server:
  port: 8080
  host: localhost
limits:
  enabled: true
  sweep_interval: 1m
  ai_generation:
    window: 60s
    max_requests: 2
  notes:
    window: 60s
    max_requests: 50
  general_api:
    window: 60s
    max_requests: 100
  auth:
    window: 60s
    max_requests: 10
webhook:
  secret: %s
  tolerance: 5m
storage:
  type: sqlite
  database:
    dsn: %s
logging:
  level: error
  format: json
  output: stderr
`, integrationSecret, filepath.Join(tempDir, "events.db"))

	require.NoError(t, os.WriteFile(configPath, []byte(configYAML), 0o600))

	cfg, err := config.Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Limits.AIGeneration.MaxRequests)

	server, events := buildServer(t, cfg)

	// Health endpoint is reachable and reports healthy components.
	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health models.HealthCheckResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, models.StatusHealthy, health.Status)

	// A signed webhook lands in the sqlite-backed store.
	body := []byte(`{"id":"evt_int_1","type":"user.created","object":"event","data":{"id":"u1"}}`)
	whResp := postWebhook(t, server, body, signWebhook(body, time.Now()))
	defer whResp.Body.Close()
	require.Equal(t, http.StatusAccepted, whResp.StatusCode)

	stored, err := events.GetEvent(context.Background(), "evt_int_1")
	require.NoError(t, err)
	assert.Equal(t, "user.created", stored.Type)
	assert.Equal(t, body, stored.Payload)
}

func TestIntegration_RateLimitExhaustionAndHeaders(t *testing.T) {
	cfg := models.NewDefaultConfig()
	cfg.Webhook.Secret = integrationSecret
	cfg.Limits.AIGeneration = models.PolicyConfig{Window: time.Minute, MaxRequests: 3}
	server, _ := buildServer(t, cfg)

	client := server.Client()

	var resp *http.Response
	for i := 0; i < 3; i++ {
		req, err := http.NewRequest("POST", server.URL+"/api/ai/generate", nil)
		require.NoError(t, err)
		req.Header.Set("X-Forwarded-For", "198.51.100.10")

		resp, err = client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, "3", resp.Header.Get("X-RateLimit-Limit"))
		assert.Equal(t, fmt.Sprintf("%d", 2-i), resp.Header.Get("X-RateLimit-Remaining"))
		assert.NotEqual(t, http.StatusTooManyRequests, resp.StatusCode)
	}

	// Fourth request in the window is rejected with retry metadata.
	req, err := http.NewRequest("POST", server.URL+"/api/ai/generate", nil)
	require.NoError(t, err)
	req.Header.Set("X-Forwarded-For", "198.51.100.10")

	resp, err = client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	var body models.RateLimitedResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, models.ErrorCodeRateLimited, body.Code)
	assert.False(t, body.ResetTime.IsZero())

	// A different caller still has a full window.
	req, err = http.NewRequest("POST", server.URL+"/api/ai/generate", nil)
	require.NoError(t, err)
	req.Header.Set("X-Forwarded-For", "198.51.100.99")

	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEqual(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestIntegration_WebhookReplayIsIdempotent(t *testing.T) {
	cfg := models.NewDefaultConfig()
	cfg.Webhook.Secret = integrationSecret
	server, events := buildServer(t, cfg)

	body := []byte(`{"id":"evt_replay","type":"user.updated","object":"event","data":{}}`)
	signature := signWebhook(body, time.Now())

	first := postWebhook(t, server, body, signature)
	first.Body.Close()
	require.Equal(t, http.StatusAccepted, first.StatusCode)

	// Same delivery again, still fresh and validly signed.
	second := postWebhook(t, server, body, signature)
	defer second.Body.Close()
	require.Equal(t, http.StatusAccepted, second.StatusCode)

	var ack models.WebhookAckResponse
	require.NoError(t, json.NewDecoder(second.Body).Decode(&ack))
	assert.Equal(t, "duplicate", ack.Status)

	stored, err := events.ListEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestIntegration_WebhookRejections(t *testing.T) {
	cfg := models.NewDefaultConfig()
	cfg.Webhook.Secret = integrationSecret
	server, _ := buildServer(t, cfg)

	body := []byte(`{"id":"evt_x","type":"user.created","object":"event","data":{}}`)

	t.Run("tampered body", func(t *testing.T) {
		signature := signWebhook(body, time.Now())
		tampered := bytes.Replace(body, []byte("user.created"), []byte("user.deleted"), 1)

		resp := postWebhook(t, server, tampered, signature)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("stale signature", func(t *testing.T) {
		resp := postWebhook(t, server, body, signWebhook(body, time.Now().Add(-time.Hour)))
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("missing header", func(t *testing.T) {
		resp := postWebhook(t, server, body, "")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("bad shape", func(t *testing.T) {
		malformed := []byte(`{"object":"event","data":{}}`)
		resp := postWebhook(t, server, malformed, signWebhook(malformed, time.Now()))
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestIntegration_MissingSecretFailsClosed(t *testing.T) {
	cfg := models.NewDefaultConfig()
	server, _ := buildServer(t, cfg)

	body := []byte(`{"id":"evt_y","type":"user.created","object":"event","data":{}}`)
	resp := postWebhook(t, server, body, signWebhook(body, time.Now()))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	// The health endpoint surfaces the misconfiguration.
	health, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer health.Body.Close()

	var status models.HealthCheckResponse
	require.NoError(t, json.NewDecoder(health.Body).Decode(&status))
	assert.Equal(t, models.StatusDegraded, status.Status)
}
