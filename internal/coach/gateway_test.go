package coach

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/2beens/apexhq/internal/athlete"
	"github.com/2beens/apexhq/internal/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// idle keep-alive connections of the test servers' clients
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

var testNow = time.Date(2025, time.July, 9, 8, 0, 0, 0, time.UTC)

// fakeGemini serves generateContent and records the last request it got.
type fakeGemini struct {
	server   *httptest.Server
	calls    atomic.Int32
	mu       sync.Mutex
	lastPath string
	lastKey  string
	lastReq  geminiRequest
	status   int
	body     string
}

func newFakeGemini(t *testing.T, status int, body string) *fakeGemini {
	t.Helper()
	f := &fakeGemini{status: status, body: body}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.lastPath = r.URL.Path
		f.lastKey = r.Header.Get("x-goog-api-key")
		reqBytes, err := io.ReadAll(r.Body)
		if assert.NoError(t, err) {
			assert.NoError(t, json.Unmarshal(reqBytes, &f.lastReq))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(f.body))
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGemini) last() (string, string, geminiRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastPath, f.lastKey, f.lastReq
}

func replyBody(t *testing.T, texts ...string) string {
	t.Helper()
	parts := make([]map[string]string, 0, len(texts))
	for _, text := range texts {
		parts = append(parts, map[string]string{"text": text})
	}
	body, err := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{
				"content":      map[string]any{"role": "model", "parts": parts},
				"finishReason": "STOP",
			},
		},
	})
	require.NoError(t, err)
	return string(body)
}

func newTestGateway(f *fakeGemini, apiKey string, metricsManager *metrics.Manager) *Gateway {
	return NewGateway(f.server.Client(), f.server.URL+"/v1beta/", "gemini-test", apiKey, metricsManager)
}

func boxer() athlete.Document {
	return athlete.DemoDocuments(testNow)[0]
}

func TestGateway_Converse(t *testing.T) {
	f := newFakeGemini(t, http.StatusOK, replyBody(t, "Stay sharp. ", "Hydrate."))
	metricsManager := metrics.NewTestManager()
	g := newTestGateway(f, "secret-key", metricsManager)
	doc := boxer()
	logs, events := ChatContext(doc, athlete.DayOf(testNow))

	reply := g.Converse(context.Background(), "How do I handle the weight cut?", *doc.Profile, logs, events)
	assert.Equal(t, "Stay sharp. Hydrate.", reply)

	path, key, lastReq := f.last()
	assert.Equal(t, "/v1beta/models/gemini-test:generateContent", path)
	assert.Equal(t, "secret-key", key)
	require.Len(t, lastReq.Contents, 1)
	assert.Equal(t, "user", lastReq.Contents[0].Role)
	prompt := lastReq.Contents[0].Parts[0].Text
	assert.Contains(t, prompt, "athlete named Marcus 'Iron' Reeves")
	assert.Contains(t, prompt, "- Sport: Boxing (Heavyweight)")
	assert.Contains(t, prompt, "Mood 9/10, Energy 9/10")
	assert.Contains(t, prompt, "TITLE FIGHT vs. Johnson (Match)")
	assert.Contains(t, prompt, `Athlete asks: "How do I handle the weight cut?"`)
	assert.Equal(t, 0.7, lastReq.GenerationConfig.Temperature)
	assert.Nil(t, lastReq.GenerationConfig.ResponseSchema)

	assert.Equal(t, 1.0, testutil.ToFloat64(metricsManager.CounterCoachRequests.WithLabelValues(OpConverse, "ok")))
}

func TestGateway_ConverseFallbacks(t *testing.T) {
	doc := boxer()

	t.Run("unconfigured", func(t *testing.T) {
		f := newFakeGemini(t, http.StatusOK, replyBody(t, "never"))
		metricsManager := metrics.NewTestManager()
		g := newTestGateway(f, "  ", metricsManager)
		assert.False(t, g.Configured())
		assert.Equal(t, MessageUnconfigured, g.Converse(context.Background(), "hi", *doc.Profile, nil, nil))
		assert.Equal(t, int32(0), f.calls.Load())
		assert.Equal(t, 1.0, testutil.ToFloat64(metricsManager.CounterCoachRequests.WithLabelValues(OpConverse, "unconfigured")))
	})

	t.Run("empty reply", func(t *testing.T) {
		f := newFakeGemini(t, http.StatusOK, `{"candidates":[]}`)
		g := newTestGateway(f, "key", nil)
		assert.Equal(t, MessageEmptyReply, g.Converse(context.Background(), "hi", *doc.Profile, nil, nil))
	})

	t.Run("whitespace reply", func(t *testing.T) {
		f := newFakeGemini(t, http.StatusOK, replyBody(t, " \n "))
		g := newTestGateway(f, "key", nil)
		assert.Equal(t, MessageEmptyReply, g.Converse(context.Background(), "hi", *doc.Profile, nil, nil))
	})

	t.Run("non 2xx", func(t *testing.T) {
		f := newFakeGemini(t, http.StatusForbidden, `{"error":{"code":403,"message":"API key not valid"}}`)
		metricsManager := metrics.NewTestManager()
		g := newTestGateway(f, "key", metricsManager)
		assert.Equal(t, MessageConnectionFail, g.Converse(context.Background(), "hi", *doc.Profile, nil, nil))
		assert.Equal(t, 1.0, testutil.ToFloat64(metricsManager.CounterCoachRequests.WithLabelValues(OpConverse, "failure")))
	})

	t.Run("garbage body", func(t *testing.T) {
		f := newFakeGemini(t, http.StatusOK, `<html>`)
		g := newTestGateway(f, "key", nil)
		assert.Equal(t, MessageConnectionFail, g.Converse(context.Background(), "hi", *doc.Profile, nil, nil))
	})

	t.Run("unreachable", func(t *testing.T) {
		f := newFakeGemini(t, http.StatusOK, "")
		g := newTestGateway(f, "key", nil)
		f.server.Close()
		assert.Equal(t, MessageConnectionFail, g.Converse(context.Background(), "hi", *doc.Profile, nil, nil))
	})
}

func TestGateway_GenerateProgram(t *testing.T) {
	programJson := `{"dietPlan":"High protein, low sodium.","schedule":[
		{"title":"Run","type":"Training","notes":"5k easy","dayOffset":1},
		{"title":"Sparring","type":"Match","notes":"","dayOffset":3}
	]}`
	f := newFakeGemini(t, http.StatusOK, replyBody(t, "\n"+programJson+"\n"))
	metricsManager := metrics.NewTestManager()
	g := newTestGateway(f, "key", metricsManager)
	doc := boxer()

	program, ok := g.GenerateProgram(context.Background(), *doc.Profile)
	require.True(t, ok)
	assert.Equal(t, "High protein, low sodium.", program.DietPlan)
	require.Len(t, program.Schedule, 2)
	assert.Equal(t, ProgramItem{Title: "Run", Type: athlete.EventTraining, Notes: "5k easy", DayOffset: 1}, program.Schedule[0])
	assert.Equal(t, 3, program.Schedule[1].DayOffset)

	_, _, lastReq := f.last()
	cfg := lastReq.GenerationConfig
	assert.Equal(t, "application/json", cfg.ResponseMimeType)
	require.NotNil(t, cfg.ResponseSchema)
	assert.Equal(t, "OBJECT", cfg.ResponseSchema.Type)
	items := cfg.ResponseSchema.Properties["schedule"].Items
	require.NotNil(t, items)
	assert.Equal(t, []string{"Training", "Match", "Recovery", "Other"}, items.Properties["type"].Enum)
	assert.Equal(t, "INTEGER", items.Properties["dayOffset"].Type)
	assert.Contains(t, lastReq.Contents[0].Parts[0].Text, "Athlete: Marcus 'Iron' Reeves, Sport: Boxing, Phase: Peaking (Competition Ready)")

	assert.Equal(t, 1.0, testutil.ToFloat64(metricsManager.CounterCoachRequests.WithLabelValues(OpProgram, "ok")))
	assert.Equal(t, 1, testutil.CollectAndCount(metricsManager.HistCoachRequestDuration))
}

func TestGateway_GenerateProgramNoResult(t *testing.T) {
	doc := boxer()
	for name, tc := range map[string]struct {
		status int
		body   string
		apiKey string
	}{
		"unconfigured": {status: http.StatusOK, body: replyBody(t, `{"dietPlan":"x","schedule":[]}`)},
		"malformed":    {status: http.StatusOK, body: replyBody(t, `{"dietPlan": "x", "schedule": [`), apiKey: "key"},
		"not json":     {status: http.StatusOK, body: replyBody(t, "Here is your plan: run a lot"), apiKey: "key"},
		"empty":        {status: http.StatusOK, body: `{}`, apiKey: "key"},
		"server error": {status: http.StatusInternalServerError, body: "oops", apiKey: "key"},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFakeGemini(t, tc.status, tc.body)
			g := newTestGateway(f, tc.apiKey, metrics.NewTestManager())
			program, ok := g.GenerateProgram(context.Background(), *doc.Profile)
			assert.False(t, ok)
			assert.Nil(t, program)
		})
	}
}

func TestGateway_ContextCancelled(t *testing.T) {
	f := newFakeGemini(t, http.StatusOK, replyBody(t, "late"))
	g := newTestGateway(f, "key", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc := boxer()
	assert.Equal(t, MessageConnectionFail, g.Converse(ctx, "hi", *doc.Profile, nil, nil))
	_, ok := g.GenerateProgram(ctx, *doc.Profile)
	assert.False(t, ok)
}
