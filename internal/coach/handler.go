package coach

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/2beens/apexhq/internal/appstate"
	"github.com/2beens/apexhq/internal/athlete"
	"github.com/2beens/apexhq/internal/telemetry/tracing"
	"github.com/2beens/apexhq/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type converser interface {
	Converse(
		ctx context.Context,
		message string,
		profile athlete.Profile,
		recentLogs []athlete.MentalLog,
		upcoming []athlete.CalendarEvent,
	) string
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply    *Message  `json:"reply,omitempty"`
	Messages []Message `json:"messages"`
	Busy     bool      `json:"busy"`
}

type Handler struct {
	gateway    converser
	aggregator *appstate.Aggregator
	desk       *Desk
	chat       *Chat
	NowFunc    func() time.Time
}

func NewHandler(gateway converser, aggregator *appstate.Aggregator, desk *Desk, chat *Chat) *Handler {
	return &Handler{
		gateway:    gateway,
		aggregator: aggregator,
		desk:       desk,
		chat:       chat,
		NowFunc:    time.Now,
	}
}

// SetupRoutes registers the coach routes under /coach, with the given
// middlewares (rate limiting) applied to them only.
func (h *Handler) SetupRoutes(mainRouter *mux.Router, middlewares ...mux.MiddlewareFunc) {
	coachRouter := mainRouter.PathPrefix("/coach").Subrouter()
	coachRouter.HandleFunc("/chat", h.HandleGetChat).Methods("GET", "OPTIONS").Name("get-chat")
	coachRouter.HandleFunc("/chat", h.HandleSendMessage).Methods("POST", "OPTIONS").Name("send-chat-message")
	coachRouter.Use(middlewares...)
}

func (h *Handler) HandleGetChat(w http.ResponseWriter, r *http.Request) {
	doc, epoch, ok := h.aggregator.Snapshot()
	if !ok || !doc.HasProfile() {
		appstate.WriteError(w, appstate.ErrNotLoaded)
		return
	}

	writeChat(w, chatResponse{
		Messages: h.chat.Transcript(doc.Profile, epoch),
		Busy:     h.desk.Busy(doc.AthleteID(), OpConverse),
	}, http.StatusOK)
}

func (h *Handler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.coach.chat")
	defer span.End()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		appstate.WriteError(w, appstate.ErrValidationSkipped)
		return
	}

	doc, epoch, ok := h.aggregator.Snapshot()
	if !ok || !doc.HasProfile() {
		appstate.WriteError(w, appstate.ErrNotLoaded)
		return
	}

	release, err := h.desk.Acquire(doc.AthleteID(), OpConverse)
	if err != nil {
		WriteBusy(w, err)
		return
	}
	defer release()

	if _, ok := h.chat.Append(doc.Profile, epoch, RoleUser, message); !ok {
		appstate.WriteError(w, appstate.ErrStale)
		return
	}

	recentLogs, upcoming := ChatContext(doc, athlete.DayOf(h.NowFunc()))
	replyText := h.gateway.Converse(ctx, message, *doc.Profile, recentLogs, upcoming)

	// the transcript only moves on when someone reads it, the aggregator knows
	// right away that the athlete changed (switch, logout, re-login)
	if h.aggregator.Epoch() != epoch {
		log.Debugf("coach, dropping reply for [%s], athlete changed", doc.AthleteID())
		appstate.WriteError(w, appstate.ErrStale)
		return
	}

	reply, ok := h.chat.Append(doc.Profile, epoch, RoleAssistant, replyText)
	if !ok {
		log.Debugf("coach, dropping reply for [%s], athlete changed", doc.AthleteID())
		appstate.WriteError(w, appstate.ErrStale)
		return
	}

	writeChat(w, chatResponse{
		Reply:    &reply,
		Messages: h.chat.Transcript(doc.Profile, epoch),
	}, http.StatusOK)
}

// WriteBusy answers ErrBusy with 409 and everything else as appstate does.
func WriteBusy(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrBusy) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	appstate.WriteError(w, err)
}

func writeChat(w http.ResponseWriter, res chatResponse, statusCode int) {
	resJson, err := json.Marshal(res)
	if err != nil {
		log.Errorf("coach, marshal chat response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponse(w, string(resJson), statusCode)
}
