package athlete

import "time"

type Goals struct {
	ShortTerm string `json:"shortTerm"`
	LongTerm  string `json:"longTerm"`
}

// Profile is created once at onboarding. Only profile edits and the
// program generator (DietaryPlan) change it afterwards.
type Profile struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Age                 int             `json:"age"`
	Sport               string          `json:"sport"`
	Position            string          `json:"position"` // or weight class
	Height              string          `json:"height,omitempty"`
	Weight              string          `json:"weight,omitempty"`
	TrainingPhase       TrainingPhase   `json:"trainingPhase"`
	ExperienceLevel     ExperienceLevel `json:"experienceLevel"`
	Goals               Goals           `json:"goals"`
	Injuries            string          `json:"injuries"`
	TrainingFrequency   int             `json:"trainingFrequency"` // days per week
	NextCompetitionDate Day             `json:"nextCompetitionDate,omitempty"`
	DietaryPlan         string          `json:"dietaryPlan,omitempty"`
}

type MentalLog struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"date"`
	Mood      int       `json:"mood"`
	Energy    int       `json:"energy"`
	Stress    int       `json:"stress"`
	Notes     string    `json:"notes"`
}

type Macros struct {
	Protein int `json:"protein"`
	Carbs   int `json:"carbs"`
	Fats    int `json:"fats"`
}

type MealLog struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"date"`
	Name      string    `json:"name"`
	Type      MealType  `json:"type"`
	Calories  *int      `json:"calories,omitempty"`
	Macros    *Macros   `json:"macros,omitempty"`
}

type CalendarEvent struct {
	ID    string    `json:"id"`
	Date  Day       `json:"date"`
	Title string    `json:"title"`
	Type  EventType `json:"type"`
	Notes string    `json:"notes,omitempty"`
}

type Contact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// Summary is the denormalized index entry used by the quick-login list.
type Summary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Sport      string    `json:"sport"`
	LastActive time.Time `json:"lastActive"`
}
