package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/2beens/apexhq/internal/session"
	"github.com/2beens/apexhq/internal/telemetry/tracing"
	"github.com/2beens/apexhq/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=middleware_test

type sessionChecker interface {
	State() session.State
}

// AuthMiddlewareHandler lets through only requests made while an athlete
// with a profile is active, apart from the always allowed paths (health,
// quick-login list and the session endpoints themselves).
type AuthMiddlewareHandler struct {
	sessionChecker       sessionChecker
	allowedPaths         map[string]bool
	allowedPathsPrefixes []string
}

func NewAuthMiddlewareHandler(sessionChecker sessionChecker) *AuthMiddlewareHandler {
	return &AuthMiddlewareHandler{
		sessionChecker: sessionChecker,
		allowedPaths: map[string]bool{
			"/":         true,
			"/athletes": true,
			"/session":  true,
		},
		allowedPathsPrefixes: []string{
			"/session/",
		},
	}
}

func (h *AuthMiddlewareHandler) pathIsAlwaysAllowed(path string) bool {
	if h.allowedPaths[path] {
		return true
	}
	for _, prefix := range h.allowedPathsPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			if r.Method == http.MethodOptions {
				w.Header().Add("Allow", "GET, POST, PUT, DELETE, OPTIONS")
				w.WriteHeader(http.StatusOK)
				span.SetStatus(codes.Ok, "options-ok")
				return
			}

			if h.pathIsAlwaysAllowed(r.URL.Path) {
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			state := h.sessionChecker.State()
			span.SetAttributes(attribute.String("session.state", string(state)))
			if state == session.AuthenticatedWithProfile {
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			// the client routes on the state: login screen or onboarding
			log.Tracef("[%s] [auth middleware] rejected => %s", state, r.URL.Path)
			span.SetStatus(codes.Error, string(state))
			stateJson, err := json.Marshal(map[string]session.State{"state": state})
			if err != nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			pkg.WriteJSONResponse(w, string(stateJson), http.StatusConflict)
		})
	}
}
