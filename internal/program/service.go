package program

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/2beens/apexhq/internal/appstate"
	"github.com/2beens/apexhq/internal/athlete"
	"github.com/2beens/apexhq/internal/coach"
	"github.com/2beens/apexhq/internal/telemetry/tracing"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	minDayOffset = 1
	maxDayOffset = 7
)

var (
	ErrNotConfirmed = errors.New("reset requires confirmation")
	ErrNoProgram    = errors.New("coach returned no program")
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=program_test

type programGenerator interface {
	GenerateProgram(ctx context.Context, profile athlete.Profile) (*coach.Program, bool)
}

// Result tells the client what a generate or reset did to the calendar.
// Discarded counts the future events that were dropped, manual ones included.
type Result struct {
	Events    []athlete.CalendarEvent `json:"events"`
	Added     int                     `json:"added"`
	Skipped   int                     `json:"skipped"`
	Discarded int                     `json:"discarded"`
	DietPlan  string                  `json:"dietPlan,omitempty"`
}

type Service struct {
	generator  programGenerator
	aggregator *appstate.Aggregator
	desk       *coach.Desk

	NowFunc   func() time.Time
	NewIDFunc func() string
}

func NewService(generator programGenerator, aggregator *appstate.Aggregator, desk *coach.Desk) *Service {
	return &Service{
		generator:  generator,
		aggregator: aggregator,
		desk:       desk,
		NowFunc:    time.Now,
		NewIDFunc:  uuid.NewString,
	}
}

// Generate replaces the upcoming week with a freshly generated program.
// Events up to and including today are kept, everything after today is
// replaced by the new schedule, and the diet strategy lands in the profile.
func (s *Service) Generate(ctx context.Context) (_ Result, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "program.generate")
	defer func() {
		tracing.EndSpan(span, err)
	}()

	doc, epoch, ok := s.aggregator.Snapshot()
	if !ok || !doc.HasProfile() {
		return Result{}, appstate.ErrNotLoaded
	}
	span.SetAttributes(attribute.String("athlete.id", doc.AthleteID()))

	release, err := s.desk.Acquire(doc.AthleteID(), coach.OpProgram)
	if err != nil {
		return Result{}, err
	}
	defer release()

	program, ok := s.generator.GenerateProgram(ctx, *doc.Profile)
	if !ok || program == nil {
		return Result{}, ErrNoProgram
	}

	// dates are resolved when the program is inserted, not when it was requested
	today := athlete.DayOf(s.NowFunc())
	newEvents, skipped := s.scheduleEvents(program.Schedule, today)

	var result Result
	err = s.aggregator.UpdateAtFunc(ctx, epoch, func(current athlete.Document) (athlete.Patch, error) {
		past, future := partition(current.Events, today)
		events := append(past, newEvents...)

		profile := *current.Profile
		profile.DietaryPlan = program.DietPlan

		result = Result{
			Events:    events,
			Added:     len(newEvents),
			Skipped:   skipped,
			Discarded: len(future),
			DietPlan:  program.DietPlan,
		}

		patch := athlete.EventsPatch(events)
		patch.Profile = &profile
		return patch, nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("apply program: %w", err)
	}

	log.Infof(
		"program generated for [%s]: %d added, %d skipped, %d future events discarded",
		doc.AthleteID(), result.Added, result.Skipped, result.Discarded,
	)
	span.SetAttributes(
		attribute.Int("program.added", result.Added),
		attribute.Int("program.discarded", result.Discarded),
	)
	return result, nil
}

// Reset drops every event after today. It does nothing unless confirmed.
func (s *Service) Reset(ctx context.Context, confirmed bool) (_ Result, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "program.reset")
	defer func() {
		tracing.EndSpan(span, err)
	}()

	if !confirmed {
		return Result{}, ErrNotConfirmed
	}

	_, epoch, ok := s.aggregator.Snapshot()
	if !ok {
		return Result{}, appstate.ErrNotLoaded
	}

	today := athlete.DayOf(s.NowFunc())
	var result Result
	err = s.aggregator.UpdateAtFunc(ctx, epoch, func(current athlete.Document) (athlete.Patch, error) {
		past, future := partition(current.Events, today)
		result = Result{
			Events:    past,
			Discarded: len(future),
		}
		if len(future) == 0 {
			return athlete.Patch{}, nil
		}
		return athlete.EventsPatch(past), nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("reset program: %w", err)
	}

	log.Infof("program reset: %d future events discarded", result.Discarded)
	return result, nil
}

func (s *Service) scheduleEvents(items []coach.ProgramItem, today athlete.Day) ([]athlete.CalendarEvent, int) {
	events := make([]athlete.CalendarEvent, 0, len(items))
	skipped := 0
	for _, item := range items {
		if item.DayOffset < minDayOffset || item.DayOffset > maxDayOffset {
			log.Warnf("program, skipping %q: day offset %d out of range", item.Title, item.DayOffset)
			skipped++
			continue
		}

		eventType := item.Type
		if !eventType.IsValid() {
			eventType = athlete.EventOther
		}

		events = append(events, athlete.CalendarEvent{
			ID:    s.NewIDFunc(),
			Date:  today.AddDays(item.DayOffset),
			Title: strings.TrimSpace(item.Title),
			Type:  eventType,
			Notes: item.Notes,
		})
	}
	return events, skipped
}

// partition splits events into the ones dated today or earlier and the ones
// after today, keeping the order within each.
func partition(events []athlete.CalendarEvent, today athlete.Day) (past, future []athlete.CalendarEvent) {
	past = []athlete.CalendarEvent{}
	for _, e := range events {
		if e.Date.After(today) {
			future = append(future, e)
		} else {
			past = append(past, e)
		}
	}
	return past, future
}
