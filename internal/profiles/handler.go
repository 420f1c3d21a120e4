package profiles

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/2beens/apexhq/internal/telemetry/tracing"
	"github.com/2beens/apexhq/pkg"

	log "github.com/sirupsen/logrus"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{
		store: store,
	}
}

// HandleList serves the quick-login list, most recently active first.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.athletes.list")
	defer span.End()

	summaries := h.store.ListSummaries(ctx)
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastActive.After(summaries[j].LastActive)
	})

	summariesJson, err := json.Marshal(summaries)
	if err != nil {
		log.Errorf("marshal athletes summaries: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(summariesJson))
}
