package appstate

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/2beens/apexhq/internal/athlete"
	"github.com/2beens/apexhq/internal/telemetry/tracing"
	"github.com/2beens/apexhq/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	aggregator *Aggregator
	commands   *Commands
	NowFunc    func() time.Time
}

func NewHandler(aggregator *Aggregator, commands *Commands) *Handler {
	return &Handler{
		aggregator: aggregator,
		commands:   commands,
		NowFunc:    time.Now,
	}
}

func (h *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/data", h.HandleData).Methods("GET", "OPTIONS").Name("get-data")
	r.HandleFunc("/dashboard", h.HandleDashboard).Methods("GET", "OPTIONS").Name("get-dashboard")
	r.HandleFunc("/profile", h.HandleUpdateProfile).Methods("PUT", "OPTIONS").Name("update-profile")
	r.HandleFunc("/events", h.HandleAddEvent).Methods("POST", "OPTIONS").Name("new-event")
	r.HandleFunc("/events/{id}", h.HandleDeleteEvent).Methods("DELETE", "OPTIONS").Name("remove-event")
	r.HandleFunc("/mental", h.HandleAddMentalLog).Methods("POST", "OPTIONS").Name("new-mental-log")
	r.HandleFunc("/meals", h.HandleAddMeal).Methods("POST", "OPTIONS").Name("new-meal")
	r.HandleFunc("/contacts", h.HandleAddContact).Methods("POST", "OPTIONS").Name("new-contact")
	r.HandleFunc("/contacts/{id}", h.HandleDeleteContact).Methods("DELETE", "OPTIONS").Name("remove-contact")
}

// WriteError maps the aggregator errors to status codes.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidationSkipped):
		http.Error(w, "required fields missing", http.StatusUnprocessableEntity)
	case errors.Is(err, ErrEntryNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ErrNotLoaded):
		http.Error(w, "no athlete loaded", http.StatusConflict)
	case errors.Is(err, ErrStale):
		http.Error(w, "active athlete changed", http.StatusConflict)
	default:
		log.Errorf("appstate handler: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any, statusCode int) {
	resJson, err := json.Marshal(v)
	if err != nil {
		log.Errorf("marshal response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponse(w, string(resJson), statusCode)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		log.Debugf("%s %s, unmarshal json body: %s", r.Method, r.URL.Path, err)
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) HandleData(w http.ResponseWriter, r *http.Request) {
	doc, _, ok := h.aggregator.Snapshot()
	if !ok {
		WriteError(w, ErrNotLoaded)
		return
	}
	writeJSON(w, doc, http.StatusOK)
}

func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	doc, _, ok := h.aggregator.Snapshot()
	if !ok {
		WriteError(w, ErrNotLoaded)
		return
	}
	writeJSON(w, BuildDashboard(doc, h.NowFunc()), http.StatusOK)
}

func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.profile.update")
	defer span.End()

	var profile athlete.Profile
	if !decodeJSON(w, r, &profile) {
		return
	}

	updated, err := h.commands.UpdateProfile(ctx, profile)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, updated, http.StatusOK)
}

func (h *Handler) HandleAddEvent(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.events.new")
	defer span.End()

	var in NewEvent
	if !decodeJSON(w, r, &in) {
		return
	}

	event, err := h.commands.AddEvent(ctx, in)
	if err != nil {
		WriteError(w, err)
		return
	}
	log.Debugf("new event added: [%s] %s", event.Date, event.Title)
	writeJSON(w, event, http.StatusCreated)
}

func (h *Handler) HandleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.events.delete")
	defer span.End()

	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	if err := h.commands.DeleteEvent(ctx, id); err != nil {
		WriteError(w, err)
		return
	}
	pkg.WriteTextResponseOK(w, "deleted:"+id)
}

func (h *Handler) HandleAddMentalLog(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.mental.new")
	defer span.End()

	var in NewMentalLog
	if !decodeJSON(w, r, &in) {
		return
	}

	entry, err := h.commands.AddMentalLog(ctx, in)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, entry, http.StatusCreated)
}

func (h *Handler) HandleAddMeal(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.meals.new")
	defer span.End()

	var in NewMeal
	if !decodeJSON(w, r, &in) {
		return
	}

	meal, err := h.commands.AddMeal(ctx, in)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, meal, http.StatusCreated)
}

func (h *Handler) HandleAddContact(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.contacts.new")
	defer span.End()

	var in NewContact
	if !decodeJSON(w, r, &in) {
		return
	}

	contact, err := h.commands.AddContact(ctx, in)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, contact, http.StatusCreated)
}

func (h *Handler) HandleDeleteContact(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.contacts.delete")
	defer span.End()

	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	if err := h.commands.DeleteContact(ctx, id); err != nil {
		WriteError(w, err)
		return
	}
	pkg.WriteTextResponseOK(w, "deleted:"+id)
}
