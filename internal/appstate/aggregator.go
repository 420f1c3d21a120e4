package appstate

import (
	"context"
	"errors"
	"sync"

	"github.com/2beens/apexhq/internal/athlete"
	"github.com/2beens/apexhq/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrNotLoaded         = errors.New("no athlete document loaded")
	ErrStale             = errors.New("active athlete changed since the update was prepared")
	ErrValidationSkipped = errors.New("required fields missing, nothing done")
	ErrEntryNotFound     = errors.New("entry not found")
)

// Persister is the part of the profile store the aggregator writes through to.
type Persister interface {
	Load(ctx context.Context, athleteID string) athlete.Document
	Save(ctx context.Context, doc athlete.Document)
}

// Aggregator holds the single in-memory document of the active athlete and
// persists every change before reporting it done. All mutation goes through
// its mutex, so there is exactly one writer.
type Aggregator struct {
	mu    sync.Mutex
	store Persister
	doc   *athlete.Document
	// incremented every time the active document is swapped
	epoch uint64
}

func NewAggregator(store Persister) *Aggregator {
	return &Aggregator{
		store: store,
	}
}

func (a *Aggregator) Epoch() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.epoch
}

// Snapshot returns a deep copy of the loaded document, and false if none is loaded.
func (a *Aggregator) Snapshot() (athlete.Document, uint64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.doc == nil {
		return athlete.Document{}, a.epoch, false
	}
	return a.doc.Clone(), a.epoch, true
}

// Switch discards the current document and loads the given athlete's one.
func (a *Aggregator) Switch(ctx context.Context, athleteID string) athlete.Document {
	ctx, span := tracing.GlobalTracer.Start(ctx, "appstate.switch")
	defer span.End()
	span.SetAttributes(attribute.String("athlete.id", athleteID))

	a.mu.Lock()
	defer a.mu.Unlock()

	doc := a.store.Load(ctx, athleteID)
	a.doc = &doc
	a.epoch++
	log.Debugf("appstate, switched to athlete [%s], epoch %d", athleteID, a.epoch)
	return doc.Clone()
}

// Clear drops the loaded document; following updates are no-ops.
func (a *Aggregator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.doc = nil
	a.epoch++
}

// Replace installs a brand-new document and persists it.
func (a *Aggregator) Replace(ctx context.Context, doc athlete.Document) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "appstate.replace")
	defer span.End()
	span.SetAttributes(attribute.String("athlete.id", doc.AthleteID()))

	a.mu.Lock()
	defer a.mu.Unlock()

	installed := doc.Clone()
	installed.Normalize()
	a.store.Save(ctx, installed)
	a.doc = &installed
	a.epoch++
}

// Update merges the patch into the loaded document and saves the result.
// When nothing is loaded, or the loaded document is the profile-less
// placeholder, it does nothing and returns ErrNotLoaded.
func (a *Aggregator) Update(ctx context.Context, patch athlete.Patch) error {
	return a.modify(ctx, nil, func(athlete.Document) (athlete.Patch, error) {
		return patch, nil
	})
}

// UpdateAt is Update guarded by the epoch the caller observed. If the active
// athlete changed in the meantime the patch is dropped with ErrStale.
func (a *Aggregator) UpdateAt(ctx context.Context, epoch uint64, patch athlete.Patch) error {
	return a.modify(ctx, &epoch, func(athlete.Document) (athlete.Patch, error) {
		return patch, nil
	})
}

// UpdateAtFunc is UpdateAt with the patch derived from the document as it is
// at commit time, for updates that partition existing entries.
func (a *Aggregator) UpdateAtFunc(
	ctx context.Context,
	epoch uint64,
	buildPatch func(current athlete.Document) (athlete.Patch, error),
) error {
	return a.modify(ctx, &epoch, buildPatch)
}

// modify builds the patch from the current document under the lock, so
// read-modify-write commands never lose a concurrent change.
func (a *Aggregator) modify(
	ctx context.Context,
	epoch *uint64,
	buildPatch func(current athlete.Document) (athlete.Patch, error),
) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "appstate.update")
	defer func() {
		if errors.Is(err, ErrValidationSkipped) || errors.Is(err, ErrEntryNotFound) {
			tracing.EndSpan(span, nil)
			return
		}
		tracing.EndSpan(span, err)
	}()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.doc == nil {
		log.Debugln("appstate, update ignored: no document loaded")
		return ErrNotLoaded
	}
	if epoch != nil && *epoch != a.epoch {
		log.Warnf("appstate, stale update dropped: epoch %d, current %d", *epoch, a.epoch)
		return ErrStale
	}

	patch, err := buildPatch(a.doc.Clone())
	if err != nil {
		return err
	}
	if patch.IsEmpty() {
		return nil
	}

	merged := patch.Apply(*a.doc)
	// a document without a profile is never persisted, so memory would drift
	// from the store (placeholder after a login without an athlete)
	if !merged.HasProfile() {
		log.Debugln("appstate, update ignored: no profile to persist it under")
		return ErrNotLoaded
	}
	// the store normalizes too; doing it here keeps memory equal to what is persisted
	merged.Normalize()
	a.store.Save(ctx, merged)
	a.doc = &merged
	return nil
}
