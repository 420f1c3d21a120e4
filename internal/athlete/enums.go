package athlete

// TrainingPhase can be one of:
//   - Bulking, Cutting, Recovery, Maintenance
//   - Pre-Season, In-Season
//   - Peaking (Competition Ready)
type TrainingPhase string

const (
	PhaseBulking     TrainingPhase = "Bulking"
	PhaseCutting     TrainingPhase = "Cutting"
	PhaseRecovery    TrainingPhase = "Recovery"
	PhaseMaintenance TrainingPhase = "Maintenance"
	PhasePreSeason   TrainingPhase = "Pre-Season"
	PhaseInSeason    TrainingPhase = "In-Season"
	PhasePeaking     TrainingPhase = "Peaking (Competition Ready)"
)

func (p TrainingPhase) String() string {
	return string(p)
}

func (p TrainingPhase) IsValid() bool {
	switch p {
	case PhaseBulking,
		PhaseCutting,
		PhaseRecovery,
		PhaseMaintenance,
		PhasePreSeason,
		PhaseInSeason,
		PhasePeaking:
		return true
	default:
		return false
	}
}

type ExperienceLevel string

const (
	LevelBeginner     ExperienceLevel = "Beginner"
	LevelIntermediate ExperienceLevel = "Intermediate"
	LevelAdvanced     ExperienceLevel = "Advanced"
	LevelElite        ExperienceLevel = "Elite"
)

func (l ExperienceLevel) String() string {
	return string(l)
}

func (l ExperienceLevel) IsValid() bool {
	switch l {
	case LevelBeginner,
		LevelIntermediate,
		LevelAdvanced,
		LevelElite:
		return true
	default:
		return false
	}
}

type MealType string

const (
	MealBreakfast   MealType = "Breakfast"
	MealLunch       MealType = "Lunch"
	MealDinner      MealType = "Dinner"
	MealSnack       MealType = "Snack"
	MealPreWorkout  MealType = "Pre-Workout"
	MealPostWorkout MealType = "Post-Workout"
)

func (m MealType) String() string {
	return string(m)
}

func (m MealType) IsValid() bool {
	switch m {
	case MealBreakfast,
		MealLunch,
		MealDinner,
		MealSnack,
		MealPreWorkout,
		MealPostWorkout:
		return true
	default:
		return false
	}
}

// EventType is shared by manually added events and by the ones the
// program generator returns.
type EventType string

const (
	EventTraining EventType = "Training"
	EventMatch    EventType = "Match"
	EventRecovery EventType = "Recovery"
	EventOther    EventType = "Other"
)

// EventTypes lists the values in the order the calendar offers them.
var EventTypes = []EventType{EventTraining, EventMatch, EventRecovery, EventOther}

func (et EventType) String() string {
	return string(et)
}

func (et EventType) IsValid() bool {
	switch et {
	case EventTraining,
		EventMatch,
		EventRecovery,
		EventOther:
		return true
	default:
		return false
	}
}

// EventTypeNames returns the enum values as plain strings, e.g. for a
// response schema.
func EventTypeNames() []string {
	names := make([]string, 0, len(EventTypes))
	for _, et := range EventTypes {
		names = append(names, et.String())
	}
	return names
}
