package coach

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/2beens/apexhq/internal/athlete"
	"github.com/2beens/apexhq/internal/telemetry/metrics"
	"github.com/2beens/apexhq/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	MessageUnconfigured   = "AI Configuration Error: API Key is missing. Please check your environment variables."
	MessageEmptyReply     = "I couldn't generate a response right now. Let's focus on your next training session."
	MessageConnectionFail = "Connection error with the coaching server. Please check your internet connection."

	OpConverse = "converse"
	OpProgram  = "program"

	temperature = 0.7
	// error bodies are logged, but only up to here
	maxLoggedBody = 512
)

var (
	errUnconfigured = errors.New("gemini api key missing")
	errEmptyReply   = errors.New("empty reply")
)

// Program is what the model returns for a program request. Day offsets are
// relative to today, 1 being tomorrow.
type Program struct {
	DietPlan string        `json:"dietPlan"`
	Schedule []ProgramItem `json:"schedule"`
}

type ProgramItem struct {
	Title     string            `json:"title"`
	Type      athlete.EventType `json:"type"`
	Notes     string            `json:"notes"`
	DayOffset int               `json:"dayOffset"`
}

// Gateway talks to the Gemini generateContent endpoint. None of its methods
// return errors: failures turn into fallback text or no result, they are
// logged and counted here.
type Gateway struct {
	httpClient     *http.Client
	baseURL        string
	model          string
	apiKey         string
	metricsManager *metrics.Manager
}

func NewGateway(
	httpClient *http.Client,
	baseURL, model, apiKey string,
	metricsManager *metrics.Manager,
) *Gateway {
	return &Gateway{
		httpClient:     httpClient,
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		model:          model,
		apiKey:         strings.TrimSpace(apiKey),
		metricsManager: metricsManager,
	}
}

func (g *Gateway) Configured() bool {
	return g.apiKey != ""
}

// Converse answers a single athlete message, grounded in their profile,
// recent mental logs and upcoming events.
func (g *Gateway) Converse(
	ctx context.Context,
	message string,
	profile athlete.Profile,
	recentLogs []athlete.MentalLog,
	upcoming []athlete.CalendarEvent,
) string {
	ctx, span := tracing.GlobalTracer.Start(ctx, "coach.converse")
	defer span.End()
	span.SetAttributes(
		attribute.String("athlete.id", profile.ID),
		attribute.Int("context.logs", len(recentLogs)),
		attribute.Int("context.events", len(upcoming)),
	)

	if !g.Configured() {
		g.observe(OpConverse, "unconfigured", 0)
		span.SetStatus(codes.Error, errUnconfigured.Error())
		return MessageUnconfigured
	}

	req := geminiRequest{
		Contents: []geminiContent{
			{
				Role:  "user",
				Parts: []geminiPart{{Text: chatPrompt(message, profile, recentLogs, upcoming)}},
			},
		},
		GenerationConfig: generationConfig{
			Temperature: temperature,
		},
	}

	start := time.Now()
	reply, err := g.generateContent(ctx, req)
	duration := time.Since(start)
	if err != nil {
		g.observe(OpConverse, "failure", duration)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Errorf("coach, converse for [%s]: %s", profile.ID, err)
		return MessageConnectionFail
	}

	if strings.TrimSpace(reply) == "" {
		g.observe(OpConverse, "empty", duration)
		span.SetStatus(codes.Error, errEmptyReply.Error())
		log.Warnf("coach, converse for [%s]: %s", profile.ID, errEmptyReply)
		return MessageEmptyReply
	}

	g.observe(OpConverse, "ok", duration)
	return reply
}

// GenerateProgram asks for a 7 day schedule plus a diet strategy. The reply
// is constrained to programSchema; anything that does not decode is no result.
func (g *Gateway) GenerateProgram(ctx context.Context, profile athlete.Profile) (*Program, bool) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "coach.generateProgram")
	defer span.End()
	span.SetAttributes(attribute.String("athlete.id", profile.ID))

	if !g.Configured() {
		g.observe(OpProgram, "unconfigured", 0)
		span.SetStatus(codes.Error, errUnconfigured.Error())
		return nil, false
	}

	req := geminiRequest{
		Contents: []geminiContent{
			{
				Role:  "user",
				Parts: []geminiPart{{Text: programPrompt(profile)}},
			},
		},
		GenerationConfig: generationConfig{
			Temperature:      temperature,
			ResponseMimeType: "application/json",
			ResponseSchema:   programSchema,
		},
	}

	start := time.Now()
	reply, err := g.generateContent(ctx, req)
	duration := time.Since(start)
	if err == nil {
		reply = strings.TrimSpace(reply)
		if reply == "" {
			err = errEmptyReply
		}
	}

	var program Program
	if err == nil {
		if jsonErr := json.Unmarshal([]byte(reply), &program); jsonErr != nil {
			err = fmt.Errorf("unmarshal program: %w", jsonErr)
		}
	}

	if err != nil {
		g.observe(OpProgram, "failure", duration)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Errorf("coach, generate program for [%s]: %s", profile.ID, err)
		return nil, false
	}

	g.observe(OpProgram, "ok", duration)
	span.SetAttributes(attribute.Int("program.items", len(program.Schedule)))
	return &program, true
}

func (g *Gateway) generateContent(ctx context.Context, gReq geminiRequest) (string, error) {
	reqJson, err := json.Marshal(gReq)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqJson))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := respBytes
		if len(body) > maxLoggedBody {
			body = body[:maxLoggedBody]
		}
		return "", fmt.Errorf("gemini responded %d: %s", resp.StatusCode, body)
	}

	var gResp geminiResponse
	if err := json.Unmarshal(respBytes, &gResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	return gResp.text(), nil
}

func (g *Gateway) observe(op, outcome string, duration time.Duration) {
	if g.metricsManager == nil {
		return
	}
	g.metricsManager.CounterCoachRequests.WithLabelValues(op, outcome).Inc()
	if duration > 0 {
		g.metricsManager.HistCoachRequestDuration.WithLabelValues(op).Observe(duration.Seconds())
	}
}
