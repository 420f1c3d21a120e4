package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/apexhq/internal/athlete"
	"github.com/2beens/apexhq/internal/kv"
	"github.com/2beens/apexhq/internal/telemetry/metrics"
	"github.com/2beens/apexhq/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var ErrIndexCorrupt = errors.New("users index corrupt")

// Store keeps one JSON document per athlete plus the index of known athletes.
// It never returns storage errors to its callers: failures are logged,
// counted and degraded to the empty defaults.
type Store struct {
	kv             kv.Store
	keys           kv.Keys
	metricsManager *metrics.Manager
	// ability to inject the clock (for unit testing)
	NowFunc func() time.Time
}

func NewStore(kvStore kv.Store, keys kv.Keys, metricsManager *metrics.Manager) *Store {
	return &Store{
		kv:             kvStore,
		keys:           keys,
		metricsManager: metricsManager,
		NowFunc:        time.Now,
	}
}

func (s *Store) storeError(op string) {
	if s.metricsManager != nil {
		s.metricsManager.CounterStoreErrors.WithLabelValues(op).Inc()
	}
}

// ListSummaries returns the athletes index, or an empty slice if the index is
// absent or cannot be read.
func (s *Store) ListSummaries(ctx context.Context) []athlete.Summary {
	summaries, err := s.readIndex(ctx)
	if err != nil {
		return []athlete.Summary{}
	}
	return summaries
}

// readIndex differentiates an absent index (empty slice, no error) from a
// backend failure or a corrupt value (error). Writers must not rewrite the
// index on error, the documents of the other athletes are still stored.
func (s *Store) readIndex(ctx context.Context) ([]athlete.Summary, error) {
	indexBytes, err := s.kv.Get(ctx, s.keys.UsersIndex())
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return []athlete.Summary{}, nil
		}
		log.Errorf("profiles, read users index: %s", err)
		s.storeError("list")
		return nil, err
	}

	var summaries []athlete.Summary
	if err := json.Unmarshal(indexBytes, &summaries); err != nil {
		log.Errorf("profiles, users index corrupt: %s", err)
		s.storeError("list")
		return nil, fmt.Errorf("%w: %w", ErrIndexCorrupt, err)
	}
	if summaries == nil {
		summaries = []athlete.Summary{}
	}
	return summaries, nil
}

// Load returns the persisted document for the athlete, or the empty document
// when the id is empty, unknown, or its stored value is unreadable.
func (s *Store) Load(ctx context.Context, athleteID string) athlete.Document {
	if athleteID == "" {
		return athlete.EmptyDocument()
	}

	ctx, span := tracing.GlobalTracer.Start(ctx, "profiles.load")
	defer span.End()
	span.SetAttributes(attribute.String("athlete.id", athleteID))

	docBytes, err := s.kv.Get(ctx, s.keys.UserDocument(athleteID))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			log.Debugf("profiles, no document for athlete [%s]", athleteID)
			return athlete.EmptyDocument()
		}
		log.Errorf("profiles, load document [%s]: %s", athleteID, err)
		s.storeError("load")
		return athlete.EmptyDocument()
	}

	var doc athlete.Document
	if err := json.Unmarshal(docBytes, &doc); err != nil {
		log.Errorf("profiles, document [%s] corrupt, treating as no data: %s", athleteID, err)
		s.storeError("load")
		return athlete.EmptyDocument()
	}

	for _, fix := range doc.Normalize() {
		log.Warnf("profiles, document [%s] normalized: %s", athleteID, fix)
	}

	return doc
}

// Exists reports whether a document is stored for the athlete.
func (s *Store) Exists(ctx context.Context, athleteID string) bool {
	if athleteID == "" {
		return false
	}
	_, err := s.kv.Get(ctx, s.keys.UserDocument(athleteID))
	return err == nil
}

// Save writes the document and then upserts its index entry. The two writes
// are not atomic: a failure between them leaves the document valid and the
// index stale. Documents without a profile are ignored.
func (s *Store) Save(ctx context.Context, doc athlete.Document) {
	if doc.Profile == nil {
		log.Debugln("profiles, save skipped: document has no profile")
		return
	}

	athleteID := doc.Profile.ID
	ctx, span := tracing.GlobalTracer.Start(ctx, "profiles.save")
	defer span.End()
	span.SetAttributes(attribute.String("athlete.id", athleteID))

	toStore := doc.Clone()
	for _, fix := range toStore.Normalize() {
		log.Warnf("profiles, document [%s] normalized on save: %s", athleteID, fix)
	}

	docBytes, err := json.Marshal(toStore)
	if err != nil {
		log.Errorf("profiles, marshal document [%s]: %s", athleteID, err)
		s.storeError("save")
		return
	}

	if err := s.kv.Set(ctx, s.keys.UserDocument(athleteID), docBytes); err != nil {
		log.Errorf("profiles, save document [%s]: %s", athleteID, err)
		s.storeError("save")
		return
	}
	if s.metricsManager != nil {
		s.metricsManager.CounterProfileSaves.Inc()
	}

	s.upsertSummary(ctx, toStore)
}

func (s *Store) upsertSummary(ctx context.Context, doc athlete.Document) {
	summary, ok := doc.Summary()
	if !ok {
		return
	}
	summary.LastActive = s.NowFunc()

	summaries, err := s.readIndex(ctx)
	if err != nil {
		// writing now would replace the whole index with a single entry
		log.Errorf("profiles, index update for [%s] skipped, index unreadable: %s", summary.ID, err)
		return
	}

	replaced := false
	for i := range summaries {
		if summaries[i].ID == summary.ID {
			summaries[i] = summary
			replaced = true
			break
		}
	}
	if !replaced {
		summaries = append(summaries, summary)
	}

	indexBytes, err := json.Marshal(summaries)
	if err != nil {
		log.Errorf("profiles, marshal users index: %s", err)
		s.storeError("index")
		return
	}
	if err := s.kv.Set(ctx, s.keys.UsersIndex(), indexBytes); err != nil {
		log.Errorf("profiles, save users index: %s", err)
		s.storeError("index")
	}
}

// SeedIfEmpty stores the demo athletes when the index has no entries at all.
// Returns true if it seeded.
func (s *Store) SeedIfEmpty(ctx context.Context) bool {
	summaries, err := s.readIndex(ctx)
	if err != nil {
		log.Errorf("profiles, seed skipped, index unreadable: %s", err)
		return false
	}
	if len(summaries) > 0 {
		log.Debugf("profiles, seed skipped, %d athletes known", len(summaries))
		return false
	}

	log.Infoln("profiles, injecting demo data ...")
	for _, doc := range athlete.DemoDocuments(s.NowFunc()) {
		s.Save(ctx, doc)
	}
	return true
}
