package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/2beens/apexhq/internal/athlete"
	"github.com/2beens/apexhq/internal/config"
	"github.com/2beens/apexhq/internal/kv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testChatReply = "Stay loose and trust the work."
	testProgram   = `{"dietPlan":"High protein, 2800 kcal.","schedule":[` +
		`{"title":"Tempo Run","type":"Training","notes":"5k easy","dayOffset":1},` +
		`{"title":"Film Study","type":"Meeting","dayOffset":2},` +
		`{"title":"Way Out","type":"Training","dayOffset":12}]}`
)

// newFakeModel answers program requests (those carrying a response schema)
// with testProgram and everything else with testChatReply.
func newFakeModel(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqBytes, err := io.ReadAll(r.Body)
		assert.NoError(t, err)

		text := testChatReply
		if bytes.Contains(reqBytes, []byte("responseSchema")) {
			text = testProgram
		}
		body, err := json.Marshal(map[string]any{
			"candidates": []any{
				map[string]any{
					"content": map[string]any{
						"role":  "model",
						"parts": []any{map[string]string{"text": text}},
					},
				},
			},
		})
		assert.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func getTestConfig(modelURL string) *config.Config {
	return &config.Config{
		Environment:             "test",
		Host:                    "127.0.0.1",
		Port:                    9070,
		PrometheusMetricsHost:   "127.0.0.1",
		PrometheusMetricsPort:   "9079",
		LogLevel:                "trace",
		StorageBackend:          config.StorageMemory,
		KeyPrefix:               "apex-test",
		LocalCacheSize:          1024 * 1024,
		SeedDemoData:            true,
		GeminiBaseURL:           modelURL,
		GeminiModel:             "gemini-test",
		CoachRateLimitPerMinute: 10,
		AllowedOrigins:          []string{"http://localhost:5173"},
	}
}

func newTestRouter(t *testing.T) (*Server, *mux.Router) {
	t.Helper()
	model := newFakeModel(t)
	s, err := NewServer(context.Background(), NewServerParams{
		Config:       getTestConfig(model.URL),
		GeminiAPIKey: "test-key",
	})
	require.NoError(t, err)
	t.Cleanup(s.otelShutdown)

	r, err := s.routerSetup()
	require.NoError(t, err)
	return s, r
}

func doRequest(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reqBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestNewServer_NoConfig(t *testing.T) {
	s, err := NewServer(context.Background(), NewServerParams{})
	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestNewServer_MemoryBackend(t *testing.T) {
	s, _ := newTestRouter(t)
	assert.Nil(t, s.redisClient)
	assert.IsType(t, &kv.CachedStore{}, s.kvStore)
	assert.True(t, s.gateway.Configured())
	// nothing persisted a session yet
	assert.Equal(t, "unauthenticated", string(s.sessionManager.State()))
	assert.Len(t, s.profileStore.ListSummaries(context.Background()), 2)

	count, err := testutil.GatherAndCount(s.promRegistry, "backend_main_document_cache_hit_rate")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestServer_RootAndUnknown(t *testing.T) {
	_, r := newTestRouter(t)

	rr := doRequest(t, r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "I'm OK, thanks ;)", rr.Body.String())

	rr = doRequest(t, r, http.MethodGet, "/athletes", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var summaries []athlete.Summary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &summaries))
	assert.Len(t, summaries, 2)

	// everything else is gated on a loaded profile
	rr = doRequest(t, r, http.MethodGet, "/data", "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.JSONEq(t, `{"state":"unauthenticated"}`, rr.Body.String())

	rr = doRequest(t, r, http.MethodPost, "/session/login", `{"athleteId":"`+athlete.DemoBoxerID+`"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, r, http.MethodGet, "/no-such-thing", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServer_CorsRejectsUnknownOrigin(t *testing.T) {
	_, r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/athletes", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/athletes", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_AthleteFlow(t *testing.T) {
	s, r := newTestRouter(t)

	rr := doRequest(t, r, http.MethodPost, "/session/login", `{"athleteId":"`+athlete.DemoBoxerID+`"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"state":"authenticated-with-profile"`)

	rr = doRequest(t, r, http.MethodGet, "/data", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var doc athlete.Document
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &doc))
	assert.Equal(t, athlete.DemoBoxerID, doc.AthleteID())

	rr = doRequest(t, r, http.MethodGet, "/dashboard", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, r, http.MethodPost, "/mental", `{"mood":8,"energy":7,"stress":3,"notes":"good session"}`)
	assert.Equal(t, http.StatusCreated, rr.Code)

	// coach chat goes through the model
	rr = doRequest(t, r, http.MethodPost, "/coach/chat", `{"message":"Nervous about the fight"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var chatRes struct {
		Reply    struct{ Text string } `json:"reply"`
		Messages []struct{ Role string }
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &chatRes))
	assert.Equal(t, testChatReply, chatRes.Reply.Text)
	// welcome, question, reply
	assert.Len(t, chatRes.Messages, 3)

	// the demo boxer has one future event (the fight) that the program replaces
	rr = doRequest(t, r, http.MethodPost, "/program/generate", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var result struct {
		Added     int
		Skipped   int
		Discarded int
		DietPlan  string
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Added)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Discarded)
	assert.Equal(t, "High protein, 2800 kcal.", result.DietPlan)

	// written through to the store
	stored := s.profileStore.Load(context.Background(), athlete.DemoBoxerID)
	assert.Equal(t, "High protein, 2800 kcal.", stored.Profile.DietaryPlan)
	assert.Len(t, stored.Events, 3)
	assert.Len(t, stored.MentalLogs, 3)

	rr = doRequest(t, r, http.MethodPost, "/program/reset", `{"confirm":false}`)
	assert.Equal(t, http.StatusPreconditionRequired, rr.Code)
	rr = doRequest(t, r, http.MethodPost, "/program/reset", `{"confirm":true}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	stored = s.profileStore.Load(context.Background(), athlete.DemoBoxerID)
	assert.Len(t, stored.Events, 1)

	rr = doRequest(t, r, http.MethodPost, "/session/logout", "")
	require.Equal(t, http.StatusOK, rr.Code)
	rr = doRequest(t, r, http.MethodGet, "/data", "")
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestServer_OnboardingFlow(t *testing.T) {
	_, r := newTestRouter(t)

	rr := doRequest(t, r, http.MethodPost, "/session/login", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"state":"authenticated-no-profile"`)

	rr = doRequest(t, r, http.MethodGet, "/data", "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.JSONEq(t, `{"state":"authenticated-no-profile"}`, rr.Body.String())

	rr = doRequest(t, r, http.MethodPost, "/session/onboarding", `{"name":"Nia Okafor","sport":"Sprinting"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doRequest(t, r, http.MethodGet, "/athletes", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Nia Okafor")

	// the new athlete starts with an empty calendar
	rr = doRequest(t, r, http.MethodGet, "/data", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var doc athlete.Document
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &doc))
	assert.Equal(t, "Nia Okafor", doc.Profile.Name)
	assert.Empty(t, doc.Events)
}

func TestServer_connStateMetrics(t *testing.T) {
	s, _ := newTestRouter(t)

	s.connStateMetrics(nil, http.StateNew)
	s.connStateMetrics(nil, http.StateNew)
	assert.Equal(t, float64(2), testutil.ToFloat64(s.metricsManager.GaugeRequests))
	s.connStateMetrics(nil, http.StateClosed)
	s.connStateMetrics(nil, http.StateActive)
	assert.Equal(t, float64(1), testutil.ToFloat64(s.metricsManager.GaugeRequests))
}
