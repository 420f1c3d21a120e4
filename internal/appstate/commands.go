package appstate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/2beens/apexhq/internal/athlete"

	"github.com/google/uuid"
)

const defaultContactRole = "Support"

// Commands are the user-facing edits. Each one is a single aggregator update,
// built from the current document under the aggregator lock.
type Commands struct {
	aggregator *Aggregator
	// ability to inject id generator and clock (for unit testing)
	NewIDFunc func() string
	NowFunc   func() time.Time
}

func NewCommands(aggregator *Aggregator) *Commands {
	return &Commands{
		aggregator: aggregator,
		NewIDFunc:  uuid.NewString,
		NowFunc:    time.Now,
	}
}

type NewEvent struct {
	Date  athlete.Day       `json:"date"`
	Title string            `json:"title"`
	Type  athlete.EventType `json:"type"`
	Notes string            `json:"notes"`
}

type NewMentalLog struct {
	Mood   int    `json:"mood"`
	Energy int    `json:"energy"`
	Stress int    `json:"stress"`
	Notes  string `json:"notes"`
}

type NewMeal struct {
	Name     string           `json:"name"`
	Type     athlete.MealType `json:"type"`
	Calories *int             `json:"calories,omitempty"`
	Macros   *athlete.Macros  `json:"macros,omitempty"`
}

type NewContact struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	Notes string `json:"notes"`
}

// AddEvent appends an event. Title and date are required.
func (c *Commands) AddEvent(ctx context.Context, in NewEvent) (athlete.CalendarEvent, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" || in.Date.IsZero() {
		return athlete.CalendarEvent{}, fmt.Errorf("add event: %w", ErrValidationSkipped)
	}
	if !in.Date.IsValid() {
		return athlete.CalendarEvent{}, fmt.Errorf("add event, date [%s]: %w", in.Date, ErrValidationSkipped)
	}

	eventType := in.Type
	if eventType == "" {
		eventType = athlete.EventTraining
	}

	event := athlete.CalendarEvent{
		ID:    c.NewIDFunc(),
		Date:  in.Date,
		Title: title,
		Type:  eventType,
		Notes: in.Notes,
	}
	if !event.Type.IsValid() {
		event.Type = athlete.EventOther
	}

	err := c.aggregator.modify(ctx, nil, func(current athlete.Document) (athlete.Patch, error) {
		return athlete.EventsPatch(append(current.Events, event)), nil
	})
	return event, err
}

func (c *Commands) DeleteEvent(ctx context.Context, eventID string) error {
	return c.aggregator.modify(ctx, nil, func(current athlete.Document) (athlete.Patch, error) {
		kept := make([]athlete.CalendarEvent, 0, len(current.Events))
		for _, e := range current.Events {
			if e.ID != eventID {
				kept = append(kept, e)
			}
		}
		if len(kept) == len(current.Events) {
			return athlete.Patch{}, fmt.Errorf("delete event [%s]: %w", eventID, ErrEntryNotFound)
		}
		return athlete.EventsPatch(kept), nil
	})
}

// AddMentalLog prepends a log, newest first. Scores are clamped to 1..10.
func (c *Commands) AddMentalLog(ctx context.Context, in NewMentalLog) (athlete.MentalLog, error) {
	entry := athlete.MentalLog{
		ID:        c.NewIDFunc(),
		Timestamp: c.NowFunc(),
		Mood:      athlete.ClampScore(in.Mood),
		Energy:    athlete.ClampScore(in.Energy),
		Stress:    athlete.ClampScore(in.Stress),
		Notes:     in.Notes,
	}

	err := c.aggregator.modify(ctx, nil, func(current athlete.Document) (athlete.Patch, error) {
		return athlete.MentalLogsPatch(append([]athlete.MentalLog{entry}, current.MentalLogs...)), nil
	})
	return entry, err
}

// AddMeal prepends a meal. The name is required.
func (c *Commands) AddMeal(ctx context.Context, in NewMeal) (athlete.MealLog, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return athlete.MealLog{}, fmt.Errorf("add meal: %w", ErrValidationSkipped)
	}

	mealType := in.Type
	if mealType == "" {
		mealType = athlete.MealBreakfast
	}
	if !mealType.IsValid() {
		mealType = athlete.MealSnack
	}

	meal := athlete.MealLog{
		ID:        c.NewIDFunc(),
		Timestamp: c.NowFunc(),
		Name:      name,
		Type:      mealType,
		Calories:  in.Calories,
		Macros:    in.Macros,
	}

	err := c.aggregator.modify(ctx, nil, func(current athlete.Document) (athlete.Patch, error) {
		return athlete.MealLogsPatch(append([]athlete.MealLog{meal}, current.MealLogs...)), nil
	})
	return meal, err
}

// AddContact appends a contact. Name and phone are required.
func (c *Commands) AddContact(ctx context.Context, in NewContact) (athlete.Contact, error) {
	name, phone := strings.TrimSpace(in.Name), strings.TrimSpace(in.Phone)
	if name == "" || phone == "" {
		return athlete.Contact{}, fmt.Errorf("add contact: %w", ErrValidationSkipped)
	}

	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = defaultContactRole
	}

	contact := athlete.Contact{
		ID:    c.NewIDFunc(),
		Name:  name,
		Role:  role,
		Phone: phone,
		Email: in.Email,
		Notes: in.Notes,
	}

	err := c.aggregator.modify(ctx, nil, func(current athlete.Document) (athlete.Patch, error) {
		return athlete.ContactsPatch(append(current.Contacts, contact)), nil
	})
	return contact, err
}

func (c *Commands) DeleteContact(ctx context.Context, contactID string) error {
	return c.aggregator.modify(ctx, nil, func(current athlete.Document) (athlete.Patch, error) {
		kept := make([]athlete.Contact, 0, len(current.Contacts))
		for _, ct := range current.Contacts {
			if ct.ID != contactID {
				kept = append(kept, ct)
			}
		}
		if len(kept) == len(current.Contacts) {
			return athlete.Patch{}, fmt.Errorf("delete contact [%s]: %w", contactID, ErrEntryNotFound)
		}
		return athlete.ContactsPatch(kept), nil
	})
}

// UpdateProfile replaces the profile. The id never changes, and an edit that
// does not carry a dietary plan keeps the generated one.
func (c *Commands) UpdateProfile(ctx context.Context, profile athlete.Profile) (athlete.Profile, error) {
	if strings.TrimSpace(profile.Name) == "" || strings.TrimSpace(profile.Sport) == "" {
		return athlete.Profile{}, fmt.Errorf("update profile: %w", ErrValidationSkipped)
	}

	var updated athlete.Profile
	err := c.aggregator.modify(ctx, nil, func(current athlete.Document) (athlete.Patch, error) {
		if current.Profile == nil {
			return athlete.Patch{}, fmt.Errorf("update profile: %w", ErrNotLoaded)
		}
		updated = profile
		updated.ID = current.Profile.ID
		if updated.DietaryPlan == "" {
			updated.DietaryPlan = current.Profile.DietaryPlan
		}
		return athlete.ProfilePatch(updated), nil
	})
	if err != nil {
		return athlete.Profile{}, err
	}
	return updated, nil
}
