package athlete

import "fmt"

// Document is the aggregate root: one profile plus its logs, events and contacts.
// A Document with a nil Profile is only a pre-onboarding placeholder and is
// never persisted.
type Document struct {
	Profile    *Profile        `json:"profile"`
	MentalLogs []MentalLog     `json:"mentalLogs"`
	MealLogs   []MealLog       `json:"mealLogs"`
	Events     []CalendarEvent `json:"events"`
	Contacts   []Contact       `json:"contacts"`
}

// EmptyDocument returns the well-defined "no data" document.
func EmptyDocument() Document {
	return Document{
		MentalLogs: []MentalLog{},
		MealLogs:   []MealLog{},
		Events:     []CalendarEvent{},
		Contacts:   []Contact{},
	}
}

// NewDocument starts a fresh document for a just-onboarded athlete.
func NewDocument(profile Profile) Document {
	doc := EmptyDocument()
	doc.Profile = &profile
	return doc
}

func (d Document) HasProfile() bool {
	return d.Profile != nil
}

func (d Document) AthleteID() string {
	if d.Profile == nil {
		return ""
	}
	return d.Profile.ID
}

// Clone returns a deep copy, so callers never share slices with the original.
func (d Document) Clone() Document {
	c := Document{
		MentalLogs: append([]MentalLog{}, d.MentalLogs...),
		MealLogs:   make([]MealLog, 0, len(d.MealLogs)),
		Events:     append([]CalendarEvent{}, d.Events...),
		Contacts:   append([]Contact{}, d.Contacts...),
	}
	if d.Profile != nil {
		p := *d.Profile
		c.Profile = &p
	}
	for _, m := range d.MealLogs {
		if m.Calories != nil {
			cal := *m.Calories
			m.Calories = &cal
		}
		if m.Macros != nil {
			macros := *m.Macros
			m.Macros = &macros
		}
		c.MealLogs = append(c.MealLogs, m)
	}
	return c
}

// Normalize replaces nil lists with empty ones and maps unknown enum values
// (as read from storage) to their defaults. It returns a description of
// every value it had to fix.
func (d *Document) Normalize() []string {
	var fixes []string

	if d.MentalLogs == nil {
		d.MentalLogs = []MentalLog{}
	}
	if d.MealLogs == nil {
		d.MealLogs = []MealLog{}
	}
	if d.Events == nil {
		d.Events = []CalendarEvent{}
	}
	if d.Contacts == nil {
		d.Contacts = []Contact{}
	}

	if p := d.Profile; p != nil {
		if !p.TrainingPhase.IsValid() {
			fixes = append(fixes, fmt.Sprintf("training phase [%s] -> %s", p.TrainingPhase, PhaseMaintenance))
			p.TrainingPhase = PhaseMaintenance
		}
		if !p.ExperienceLevel.IsValid() {
			fixes = append(fixes, fmt.Sprintf("experience level [%s] -> %s", p.ExperienceLevel, LevelIntermediate))
			p.ExperienceLevel = LevelIntermediate
		}
		if !p.NextCompetitionDate.IsZero() && !p.NextCompetitionDate.IsValid() {
			fixes = append(fixes, fmt.Sprintf("next competition date [%s] dropped", p.NextCompetitionDate))
			p.NextCompetitionDate = ""
		}
	}

	for i := range d.MentalLogs {
		l := &d.MentalLogs[i]
		l.Mood, l.Energy, l.Stress = ClampScore(l.Mood), ClampScore(l.Energy), ClampScore(l.Stress)
	}

	for i := range d.MealLogs {
		if m := &d.MealLogs[i]; !m.Type.IsValid() {
			fixes = append(fixes, fmt.Sprintf("meal %s type [%s] -> %s", m.ID, m.Type, MealSnack))
			m.Type = MealSnack
		}
	}

	for i := range d.Events {
		if e := &d.Events[i]; !e.Type.IsValid() {
			fixes = append(fixes, fmt.Sprintf("event %s type [%s] -> %s", e.ID, e.Type, EventOther))
			e.Type = EventOther
		}
	}

	return fixes
}

// ClampScore keeps a mood/energy/stress score within 1..10.
func ClampScore(v int) int {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}

// Summary builds the index entry for the document. Returns false when
// there is no profile to summarize.
func (d Document) Summary() (Summary, bool) {
	if d.Profile == nil {
		return Summary{}, false
	}
	return Summary{
		ID:    d.Profile.ID,
		Name:  d.Profile.Name,
		Sport: d.Profile.Sport,
	}, true
}
