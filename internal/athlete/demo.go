package athlete

import "time"

const (
	DemoBoxerID  = "demo-user-1"
	DemoTennisID = "demo-user-2"
)

// DemoDocuments returns the two seed athletes. All dates are relative to now,
// so a freshly seeded store always shows "today" events and an upcoming fight.
func DemoDocuments(now time.Time) []Document {
	return []Document{
		demoBoxer(now),
		demoTennisPlayer(now),
	}
}

func intPtr(v int) *int {
	return &v
}

func demoBoxer(now time.Time) Document {
	today := DayOf(now)
	return Document{
		Profile: &Profile{
			ID:              DemoBoxerID,
			Name:            "Marcus 'Iron' Reeves",
			Age:             24,
			Sport:           "Boxing",
			Position:        "Heavyweight",
			Height:          "6'2\"",
			Weight:          "215 lbs",
			TrainingPhase:   PhasePeaking,
			ExperienceLevel: LevelElite,
			Goals: Goals{
				ShortTerm: "Make weight for title fight",
				LongTerm:  "Unified World Champion",
			},
			Injuries:            "Minor left wrist soreness",
			TrainingFrequency:   6,
			NextCompetitionDate: today.AddDays(5),
		},
		MentalLogs: []MentalLog{
			{
				ID:        "m1",
				Timestamp: now,
				Mood:      9,
				Energy:    9,
				Stress:    7,
				Notes:     "Weight cut is tough but feeling sharp. Sparring was excellent.",
			},
			{
				ID:        "m2",
				Timestamp: now.AddDate(0, 0, -1),
				Mood:      7,
				Energy:    6,
				Stress:    5,
				Notes:     "Rest day. Visualized the walkout.",
			},
		},
		MealLogs: []MealLog{
			{
				ID:        "f1",
				Timestamp: now,
				Name:      "Egg whites & Oatmeal",
				Type:      MealBreakfast,
				Calories:  intPtr(450),
			},
			{
				ID:        "f2",
				Timestamp: now,
				Name:      "Chicken Breast & Greens",
				Type:      MealLunch,
				Calories:  intPtr(600),
			},
		},
		Events: []CalendarEvent{
			{
				ID:    "e1",
				Date:  today,
				Title: "Heavy Bag Work",
				Type:  EventTraining,
				Notes: "12 rounds, focus on cardio",
			},
			{
				ID:    "e2",
				Date:  today.AddDays(5),
				Title: "TITLE FIGHT vs. Johnson",
				Type:  EventMatch,
				Notes: "Main Event",
			},
		},
		Contacts: []Contact{
			{ID: "c1", Name: "Coach Mike", Role: "Head Coach", Phone: "555-0101", Notes: "Corner man"},
			{ID: "c2", Name: "Dr. Evans", Role: "Physio", Phone: "555-0102"},
		},
	}
}

func demoTennisPlayer(now time.Time) Document {
	today := DayOf(now)
	return Document{
		Profile: &Profile{
			ID:              DemoTennisID,
			Name:            "Sarah Jenkins",
			Age:             21,
			Sport:           "Tennis",
			Position:        "Singles",
			Height:          "5'8\"",
			Weight:          "135 lbs",
			TrainingPhase:   PhaseRecovery,
			ExperienceLevel: LevelAdvanced,
			Goals: Goals{
				ShortTerm: "Rehab ankle sprain",
				LongTerm:  "Top 50 Ranking",
			},
			Injuries:            "Grade 1 Ankle Sprain (Recovering)",
			TrainingFrequency:   4,
			NextCompetitionDate: today.AddDays(20),
		},
		MentalLogs: []MentalLog{
			{
				ID:        "s1",
				Timestamp: now,
				Mood:      6,
				Energy:    5,
				Stress:    3,
				Notes:     "Frustrated about the injury, but mobility is improving.",
			},
		},
		MealLogs: []MealLog{},
		Events: []CalendarEvent{
			{
				ID:    "se1",
				Date:  today,
				Title: "Physio Session",
				Type:  EventRecovery,
				Notes: "Ankle mobility work",
			},
			{
				ID:    "se2",
				Date:  today.AddDays(2),
				Title: "Light Hitting",
				Type:  EventTraining,
				Notes: "Stationary drills only",
			},
		},
		Contacts: []Contact{
			{ID: "sc1", Name: "Coach Sarah", Role: "Technical Coach", Phone: "555-0202"},
		},
	}
}
