package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/2beens/apexhq/internal/appstate"
	"github.com/2beens/apexhq/internal/athlete"
	"github.com/2beens/apexhq/internal/telemetry/tracing"
	"github.com/2beens/apexhq/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type stateResponse struct {
	State     State            `json:"state"`
	AthleteID string           `json:"athleteId,omitempty"`
	Profile   *athlete.Profile `json:"profile,omitempty"`
}

type loginRequest struct {
	AthleteID string `json:"athleteId"`
}

type Handler struct {
	manager    *Manager
	aggregator *appstate.Aggregator
}

func NewHandler(manager *Manager, aggregator *appstate.Aggregator) *Handler {
	return &Handler{
		manager:    manager,
		aggregator: aggregator,
	}
}

func (h *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/session", h.HandleGetSession).Methods("GET", "OPTIONS").Name("get-session")
	r.HandleFunc("/session/login", h.HandleLogin).Methods("POST", "OPTIONS").Name("login")
	r.HandleFunc("/session/logout", h.HandleLogout).Methods("POST", "OPTIONS").Name("logout")
	r.HandleFunc("/session/onboarding", h.HandleOnboarding).Methods("POST", "OPTIONS").Name("onboarding")
}

func (h *Handler) writeState(w http.ResponseWriter, state State, statusCode int) {
	res := stateResponse{
		State:     state,
		AthleteID: h.manager.AthleteID(),
	}
	if doc, _, ok := h.aggregator.Snapshot(); ok && doc.HasProfile() {
		res.Profile = doc.Profile
	}

	resJson, err := json.Marshal(res)
	if err != nil {
		log.Errorf("session handler, marshal state: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponse(w, string(resJson), statusCode)
}

func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	h.writeState(w, h.manager.State(), http.StatusOK)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.session.login")
	defer span.End()

	// an empty body is a login without athlete selection
	var req loginRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
	}

	state, err := h.manager.Login(ctx, req.AthleteID)
	if err != nil {
		span.RecordError(err)
		log.Errorf("login: %s", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	h.writeState(w, state, http.StatusOK)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.session.logout")
	defer span.End()

	h.writeState(w, h.manager.Logout(ctx), http.StatusOK)
}

// HandleOnboarding takes the bare profile as the body, no wrapping object.
func (h *Handler) HandleOnboarding(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.session.onboarding")
	defer span.End()

	var profile athlete.Profile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	if _, err := h.manager.CompleteOnboarding(ctx, profile); err != nil {
		switch {
		case errors.Is(err, ErrNotAuthenticated):
			http.Error(w, "not authenticated", http.StatusUnauthorized)
		case errors.Is(err, ErrAthleteExists):
			http.Error(w, "athlete already exists", http.StatusConflict)
		default:
			appstate.WriteError(w, err)
		}
		return
	}

	h.writeState(w, h.manager.State(), http.StatusCreated)
}
