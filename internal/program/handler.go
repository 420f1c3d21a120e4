package program

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/2beens/apexhq/internal/coach"
	"github.com/2beens/apexhq/internal/telemetry/tracing"
	"github.com/2beens/apexhq/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type resetRequest struct {
	Confirm bool `json:"confirm"`
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

func (h *Handler) SetupRoutes(mainRouter *mux.Router, middlewares ...mux.MiddlewareFunc) {
	programRouter := mainRouter.PathPrefix("/program").Subrouter()
	programRouter.HandleFunc("/generate", h.HandleGenerate).Methods("POST", "OPTIONS").Name("generate-program")
	programRouter.HandleFunc("/reset", h.HandleReset).Methods("POST", "OPTIONS").Name("reset-program")
	programRouter.Use(middlewares...)
}

func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.program.generate")
	defer span.End()

	result, err := h.service.Generate(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, result)
}

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.program.reset")
	defer span.End()

	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Reset(ctx, req.Confirm)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, result)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotConfirmed):
		http.Error(w, "confirm required: this deletes all future events", http.StatusPreconditionRequired)
	case errors.Is(err, ErrNoProgram):
		http.Error(w, "failed to generate program, check the coach configuration", http.StatusBadGateway)
	default:
		coach.WriteBusy(w, err)
	}
}

func writeResult(w http.ResponseWriter, result Result) {
	resJson, err := json.Marshal(result)
	if err != nil {
		log.Errorf("program, marshal result: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponseOK(w, string(resJson))
}
